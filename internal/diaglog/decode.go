package diaglog

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encodings lists the accepted values for NewDecodingReader.
var Encodings = []string{"utf-8", "cp437", "latin1"}

// NewDecodingReader wraps r so that it yields UTF-8 text decoded from the
// named encoding. For "utf-8" invalid byte sequences become U+FFFD, which
// keeps serial-line noise from corrupting the report.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// ValidEncoding reports whether name is accepted by NewDecodingReader.
func ValidEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "cp437", "ibm437":
		return charmap.CodePage437, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported log encoding %q: must be one of %v", name, Encodings)
	}
}
