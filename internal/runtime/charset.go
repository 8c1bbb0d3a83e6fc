package runtime

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset converts between a configured character encoding and the UTF-8
// strings the engine works on. The zero value is UTF-8.
type Charset struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// LookupCharset resolves an IANA or common encoding name such as "utf-8",
// "latin-1" or "windows-1252".
func LookupCharset(name string) (*Charset, error) {
	if name == "" {
		return &Charset{name: "utf-8"}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		// latin-1, iso-8859_1 and friends
		alt := strings.NewReplacer("-", "", "_", "").Replace(name)
		enc, err = ianaindex.IANA.Encoding(alt)
	}
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	if canon, _ := ianaindex.IANA.Name(enc); canon == "UTF-8" || enc == unicode.UTF8 {
		enc = nil
	}
	return &Charset{name: name, enc: enc}, nil
}

// Name returns the configured encoding name.
func (c *Charset) Name() string {
	if c == nil || c.name == "" {
		return "utf-8"
	}
	return c.name
}

// IsUTF8 reports whether no conversion takes place.
func (c *Charset) IsUTF8() bool {
	return c == nil || c.enc == nil
}

// Reader returns r decoded to UTF-8.
func (c *Charset) Reader(r io.Reader) io.Reader {
	if c.IsUTF8() {
		return r
	}
	return transform.NewReader(r, c.enc.NewDecoder())
}

// Writer returns a writer that encodes UTF-8 text written to it into w.
// Characters the encoding cannot represent are replaced.
func (c *Charset) Writer(w io.Writer) io.Writer {
	if c.IsUTF8() {
		return w
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(c.enc.NewEncoder()))
}

// DecodeString converts s from the configured encoding.
func (c *Charset) DecodeString(s string) (string, error) {
	if c.IsUTF8() {
		return s, nil
	}
	return c.enc.NewDecoder().String(s)
}
