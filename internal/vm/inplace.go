package vm

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kolkov/used/internal/runtime"
)

// tempPrefix is the name prefix of in-place temporary files.
const tempPrefix = "used"

// BackupPath returns the backup file name for path. A suffix containing
// '*' is a template: each '*' becomes the base name of path, and the
// result is placed next to path unless the template has a '/'.
func BackupPath(path, suffix string) string {
	if !strings.Contains(suffix, "*") {
		return path + suffix
	}
	name := strings.ReplaceAll(suffix, "*", filepath.Base(path))
	if strings.Contains(suffix, "/") {
		return name
	}
	return filepath.Join(filepath.Dir(path), name)
}

// editInPlace processes the current source into a temporary file next to
// path and then replaces path with it. On failure path is left untouched.
func (vm *VM) editInPlace(path string) (err error) {
	info, err := vm.fs.Stat(path)
	if err != nil {
		return &RuntimeError{Message: fmt.Sprintf("couldn't edit %s", path), Code: 2, Err: err}
	}
	tmp, err := afero.TempFile(vm.fs, filepath.Dir(path), tempPrefix)
	if err != nil {
		return &RuntimeError{Message: fmt.Sprintf("couldn't open temporary file for %s", path), Code: 2, Err: err}
	}
	tmpName := tmp.Name()
	if vm.cfg.Debug >= DebugProgram {
		vm.log.Info("editing in place", zap.String("file", path), zap.String("temp", tmpName))
	}

	vm.out = runtime.NewOutput(tmp, vm.charset)
	defer func() { vm.out = vm.stdout }()

	closed := false
	abort := func(cause error) error {
		var result *multierror.Error
		result = multierror.Append(result, cause)
		if !closed {
			if cerr := tmp.Close(); cerr != nil {
				result = multierror.Append(result, cerr)
			}
		}
		if rerr := vm.fs.Remove(tmpName); rerr != nil {
			result = multierror.Append(result, rerr)
		}
		if len(result.Errors) == 1 {
			return cause
		}
		return &RuntimeError{Message: fmt.Sprintf("couldn't edit %s", path), Code: 2, Err: result.ErrorOrNil()}
	}

	if err := vm.process(); err != nil {
		return abort(err)
	}
	if err := vm.out.Flush(); err != nil {
		return abort(ioError(err))
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return abort(ioError(err))
	}
	if err := vm.fs.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return abort(&RuntimeError{Message: fmt.Sprintf("couldn't set mode of %s", tmpName), Code: 2, Err: err})
	}
	backup := ""
	if vm.cfg.BackupSuffix != "" {
		backup = BackupPath(path, vm.cfg.BackupSuffix)
		if err := vm.fs.Rename(path, backup); err != nil {
			return abort(&RuntimeError{Message: fmt.Sprintf("couldn't rename %s to %s", path, backup), Code: 2, Err: err})
		}
	}
	if err := vm.fs.Rename(tmpName, path); err != nil {
		if backup != "" {
			// Put the original back.
			vm.fs.Rename(backup, path)
		}
		return abort(&RuntimeError{Message: fmt.Sprintf("couldn't rename %s", tmpName), Code: 2, Err: err})
	}
	return nil
}
