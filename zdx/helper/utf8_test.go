// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package helper

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileToUtf8(t *testing.T) {

	// expected content of all test files
	const expected = "hello, привет"

	writeTemp := func(name string, data []byte) string {
		p := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	checkFile := func(path string) {
		s, err := FileToUtf8(path, "")
		if err != nil {
			t.Fatal(err)
		}
		if s != expected {
			t.Errorf("%s: expected: %q got: %q", path, expected, s)
		}
	}

	// utf-8 without BOM and with BOM
	checkFile(writeTemp("no_bom.txt", []byte(expected)))
	checkFile(writeTemp("utf8_bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte(expected)...)))

	// utf-16 LE with BOM
	le := []byte{0xFF, 0xFE}
	for _, r := range expected {
		le = append(le, byte(r), byte(r>>8)) // all test runes are in BMP
	}
	checkFile(writeTemp("utf16_le.txt", le))

	// utf-16 BE with BOM
	be := []byte{0xFE, 0xFF}
	for _, r := range expected {
		be = append(be, byte(r>>8), byte(r))
	}
	checkFile(writeTemp("utf16_be.txt", be))

	// utf-32 LE and BE with BOM
	le32 := []byte{0xFF, 0xFE, 0x00, 0x00}
	be32 := []byte{0x00, 0x00, 0xFE, 0xFF}
	for _, r := range expected {
		le32 = append(le32, byte(r), byte(r>>8), byte(r>>16), byte(r>>24))
		be32 = append(be32, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
	}
	checkFile(writeTemp("utf32_le.txt", le32))
	checkFile(writeTemp("utf32_be.txt", be32))
}

func TestFileToUtf8CodePage(t *testing.T) {

	// windows-1252: é is 0xE9
	p := filepath.Join(t.TempDir(), "cp1252.txt")
	if err := os.WriteFile(p, []byte{'c', 'a', 'f', 0xE9}, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := FileToUtf8(p, "windows-1252")
	if err != nil {
		t.Fatal(err)
	}
	if s != "café" {
		t.Errorf("expected: café got: %q", s)
	}

	if _, err := FileToUtf8(p, "no-such-encoding"); err == nil {
		t.Error("expected error for invalid encoding name")
	}
}
