package nfc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Record is one NDEF record from a tag read.
type Record struct {
	Type      string // NDEF record type, e.g. "text" or "url"
	MediaType string
	Encoding  string // declared text encoding; empty means UTF-8
	Language  string
	Payload   []byte
}

// Message is one tag read event: the list of records the reader saw.
// A Message with a nil Records slice is treated as a malformed read.
type Message struct {
	Records []Record
}

// Text decodes the record payload using its declared encoding. Malformed
// payloads return an error; the caller decides whether that skips the record
// or fails the read.
func (r Record) Text() (string, error) {
	switch strings.ToLower(r.Encoding) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(r.Payload) {
			return "", fmt.Errorf("payload is not valid utf-8")
		}
		return string(r.Payload), nil
	case "utf-16", "utf16":
		return decodeUTF16(r.Payload, unicode.BigEndian, unicode.UseBOM)
	case "utf-16be":
		return decodeUTF16(r.Payload, unicode.BigEndian, unicode.IgnoreBOM)
	case "utf-16le":
		return decodeUTF16(r.Payload, unicode.LittleEndian, unicode.IgnoreBOM)
	default:
		return "", fmt.Errorf("unsupported text encoding %q", r.Encoding)
	}
}

func decodeUTF16(payload []byte, endian unicode.Endianness, bom unicode.BOMPolicy) (string, error) {
	decoded, err := unicode.UTF16(endian, bom).NewDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(decoded), nil
}
