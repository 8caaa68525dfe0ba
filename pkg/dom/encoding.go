package dom

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Encoding names reported by SniffEncoding.
const (
	EncodingUTF32LE = "UTF-32LE"
	EncodingUTF32BE = "UTF-32BE"
	EncodingUTF16LE = "UTF-16LE"
	EncodingUTF16BE = "UTF-16BE"
	EncodingUTF8    = "UTF-8"
	EncodingLatin1  = "ISO-8859-1"
)

var boms = []struct {
	prefix []byte
	name   string
	enc    encoding.Encoding
}{
	// UTF-32LE first: its BOM starts with the UTF-16LE one.
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, EncodingUTF32LE, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM)},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, EncodingUTF32BE, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM)},
	{[]byte{0xFF, 0xFE}, EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
	{[]byte{0xFE, 0xFF}, EncodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)},
	{[]byte{0xEF, 0xBB, 0xBF}, EncodingUTF8, unicode.UTF8BOM},
}

// SniffEncoding picks an encoding from the byte order mark, defaulting to
// ISO-8859-1.
func SniffEncoding(raw []byte) (string, encoding.Encoding) {
	for _, b := range boms {
		if bytes.HasPrefix(raw, b.prefix) {
			return b.name, b.enc
		}
	}
	return EncodingLatin1, charmap.ISO8859_1
}

// DecodeMarkup converts raw page bytes to text using SniffEncoding.
func DecodeMarkup(raw []byte) (text, name string, err error) {
	name, enc := SniffEncoding(raw)
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", name, fmt.Errorf("failed to decode %s markup: %w", name, err)
	}
	return string(out), name, nil
}
