// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zendx/go/zdx/engine"
)

// postUpload invoke handler with single-file multipart form built by hand
func postUpload(t *testing.T, handler http.HandlerFunc, fileName string, content string) *httptest.ResponseRecorder {

	body := "--zdsboundary\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"" + fileName + "\"\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"\r\n" +
		content + "\r\n" +
		"--zdsboundary--\r\n"

	req := httptest.NewRequest("POST", "/api/datasets/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=zdsboundary")

	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestUploadHandlerInvalidFilename(t *testing.T) {

	checkErr := func(fileName string, expected string) {
		w := postUpload(t, uploadHandler, fileName, "a\n1\n")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("invalid status of %q: %d, expected: %d", fileName, w.Code, http.StatusBadRequest)
		}
		if !strings.Contains(w.Body.String(), expected) {
			t.Errorf("invalid response of %q: %s, expected: %s", fileName, strings.TrimSpace(w.Body.String()), expected)
		}
	}

	checkErr("", "Invalid filename")
	checkErr(".", "Invalid filename")
	checkErr("..", "Invalid filename")
	checkErr("evil\\\\name.csv", "Invalid filename") // header quoted-string unescape leaves one backslash
	checkErr("notes.txt", "Unsupported file format: .txt")
}

func TestUploadHandlerName(t *testing.T) {

	e, err := engine.Open(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	theEngine = e
	theCfg.dataDir = t.TempDir()

	w := postUpload(t, uploadHandler, "tiny.csv", "id,g\n1,a\n2,b\n")
	if w.Code != http.StatusOK {
		t.Fatalf("invalid status: %d: %s", w.Code, strings.TrimSpace(w.Body.String()))
	}

	var res struct {
		Id       string `json:"id"`
		Name     string `json:"name"`
		RowCount int64  `json:"rowCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Name != "tiny.csv" { // display name keeps the file extension
		t.Errorf("invalid dataset name: %s, expected: tiny.csv", res.Name)
	}
	if res.RowCount != 2 {
		t.Errorf("invalid row count: %d, expected: 2", res.RowCount)
	}
}

func TestConvertCsvEncoding(t *testing.T) {

	theCfg.codePage = "windows-1252"
	t.Cleanup(func() { theCfg.codePage = "" })

	p := filepath.Join(t.TempDir(), "latin.csv")
	if err := os.WriteFile(p, []byte{'n', 'a', 'm', 'e', '\n', 'c', 'a', 'f', 0xE9, '\n'}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := convertCsvEncoding(p); err != nil {
		t.Fatal(err)
	}
	src, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != "name\ncafé\n" {
		t.Errorf("invalid converted content: %q, expected: %q", string(src), "name\ncafé\n")
	}

	// non-csv files are binary and must pass through unchanged
	b := filepath.Join(t.TempDir(), "book.xlsx")
	if err := os.WriteFile(b, []byte{0xE9}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := convertCsvEncoding(b); err != nil {
		t.Fatal(err)
	}
	if src, _ := os.ReadFile(b); len(src) != 1 || src[0] != 0xE9 {
		t.Errorf("binary file must not be converted")
	}
}
