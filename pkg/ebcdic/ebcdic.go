// Package ebcdic converts fixed-width text fields between the platform's
// legacy single-byte encoding (IBM-1047, the z/OS default EBCDIC code page)
// and Go strings.
//
// Text fields in the AT-TLS control block and in identity-mapping responses
// are fixed-size byte arrays. A field ends at its declared length or at the
// first NUL byte, whichever comes first.
package ebcdic

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrConversion is returned when text cannot be converted between encodings.
var ErrConversion = errors.New("ebcdic: text conversion failed")

// Terminator ends a text field before its declared length.
const Terminator byte = 0x00

// Transcoder converts between the legacy encoding and UTF-8.
type Transcoder interface {
	// Decode converts legacy-encoded bytes to a UTF-8 string.
	Decode(b []byte) (string, error)

	// Encode converts a UTF-8 string to legacy-encoded bytes.
	Encode(s string) ([]byte, error)
}

// IBM1047 is the default transcoder (EBCDIC Latin-1/Open Systems).
var IBM1047 Transcoder = charmapTranscoder{cm: charmap.CodePage1047}

// IBM037 transcodes EBCDIC US/Canada.
var IBM037 Transcoder = charmapTranscoder{cm: charmap.CodePage037}

type charmapTranscoder struct {
	cm *charmap.Charmap
}

func (t charmapTranscoder) Decode(b []byte) (string, error) {
	out, err := t.cm.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return string(out), nil
}

func (t charmapTranscoder) Encode(s string) ([]byte, error) {
	out, err := t.cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return out, nil
}

// FieldLen returns the effective length of a fixed-width field: the smaller
// of size, len(b) and the offset of the first terminator within size.
// A negative size yields 0.
func FieldLen(b []byte, size int) int {
	if size < 0 {
		return 0
	}
	size = min(size, len(b))
	for i := 0; i < size; i++ {
		if b[i] == Terminator {
			return i
		}
	}
	return size
}

// Field returns the effective bytes of a fixed-width field (see FieldLen).
// The result aliases b.
func Field(b []byte, size int) []byte {
	return b[:FieldLen(b, size)]
}

// DecodeField decodes the effective bytes of a fixed-width field with t.
func DecodeField(t Transcoder, b []byte, size int) (string, error) {
	return t.Decode(Field(b, size))
}

// TrimPadding removes trailing blanks and NULs left over from a padded
// fixed-width field.
func TrimPadding(s string) string {
	return strings.TrimRight(s, " \x00")
}
