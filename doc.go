// Package used provides an embeddable sed stream editor.
//
// used implements the sed language in Go, featuring:
//   - POSIX sed with the common GNU extensions (0,/re/, first~step,
//     addr,+N, addr,~N, the I and M flags, T, F, R, W, z, Q)
//   - Basic, extended and engine-native regular expressions on coregex
//   - Separate and in-place processing of multiple files, with backups
//   - A pluggable filesystem (afero) and configurable character encoding
//
// # Quick Start
//
// For simple one-off execution:
//
//	output, err := used.Run(`s/hello/goodbye/`, strings.NewReader("hello world\n"), nil)
//
// With configuration:
//
//	output, err := used.Run(`s/(a+)b/\1/g`, input, &used.Config{
//	    Dialect:     used.Extended,
//	    NoAutoprint: true,
//	})
//
// # Stream Editor
//
// [Sed] accumulates script fragments like repeated -e and -f options and
// applies them to files or in-memory lines:
//
//	s := used.New(&used.Config{InPlace: true, BackupSuffix: "bak_*"})
//	if err := s.Load(`s/colour/color/g`); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := s.Apply(used.Files("notes.txt"), nil); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Errors are returned as specific types, each reporting its [Phase]:
//   - [CompileError]: malformed scripts
//   - [PatternError]: regular expressions or replacements that cannot be
//     translated
//   - [LabelError]: branches to undefined labels
//   - [RuntimeError]: failures while running, mostly I/O
//   - [ExitError]: q or Q with a non-zero exit code
//
// [ExitCode] maps any of them to a process exit status.
//
// # Thread Safety
//
// Range addresses keep their state on the compiled [Program], so neither
// a Program nor a Sed may be run concurrently.
package used
