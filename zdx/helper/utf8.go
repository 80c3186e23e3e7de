// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package helper

import (
	"bytes"
	"errors"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// byte order marks to detect source file encoding
var (
	bomUtf8    = []byte{0xEF, 0xBB, 0xBF}
	bomUtf16le = []byte{0xFF, 0xFE}
	bomUtf16be = []byte{0xFE, 0xFF}
	bomUtf32le = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUtf32be = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// FileToUtf8 read file content and convert it to utf-8 string.
//
// If encodingName is not empty then file content converted from that encoding
// (encoding name as registered in IANA index, e.g.: windows-1252).
// If encoding name is empty then it is auto-detected by byte order mark:
// utf-8, utf-16LE, utf-16BE, utf-32LE, utf-32BE, default: utf-8.
func FileToUtf8(filePath string, encodingName string) (string, error) {

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	// if encoding explicitly specified then use it to convert content into utf-8
	if encodingName != "" {

		enc, err := ianaindex.IANA.Encoding(encodingName)
		if err != nil || enc == nil {
			return "", errors.New("invalid encoding name: " + encodingName)
		}
		s, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			return "", errors.New("failed to convert from " + encodingName + " : " + err.Error())
		}
		return string(s), nil
	}

	// detect byte order mark, utf-32 must be checked before utf-16
	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(raw, bomUtf32le):
		dec = utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUtf32be):
		dec = utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUtf16le):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUtf16be):
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case bytes.HasPrefix(raw, bomUtf8):
		return string(raw[len(bomUtf8):]), nil
	default:
		return string(raw), nil // no BOM: assume utf-8
	}

	s, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", errors.New("failed to convert file to utf-8: " + filePath + " : " + err.Error())
	}
	return string(s), nil
}
