// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package config

import (
	"testing"
)

func TestLoadIni(t *testing.T) {

	src := "; comments can start from ; or\r\n" +
		"# from # and empty lines are skipped\r\n" +
		"\r\n" +
		" [section test]  ; section comment\r\n" +
		" val = no comment\r\n" +
		" rem = ; comment only and empty value\r\n" +
		" nul =\r\n" +
		` dsn = "DSN='server'; UID='user'; PWD='pas#word';" ; quoted value` + "\r\n" +
		` t w = the "# quick #" brown 'fox ; jumps' over    ; escaped: ; and # chars` + "\r\n" +
		"[zds]\n" +
		"DataDir = data/files\n" +
		"Port = 4040\n"

	kvIni, err := loadIni(src)
	if err != nil {
		t.Fatal(err)
	}

	checkStr := func(key, expected string) {
		if v, ok := kvIni[key]; !ok || v != expected {
			t.Errorf("%s expected: %q got: %q", key, expected, v)
		}
	}

	checkStr("section test.val", "no comment")
	checkStr("section test.rem", "")
	checkStr("section test.nul", "")
	checkStr("section test.dsn", "DSN='server'; UID='user'; PWD='pas#word';")
	checkStr("section test.t w", `the "# quick #" brown 'fox ; jumps' over`)
	checkStr("zds.DataDir", "data/files")
	checkStr("zds.Port", "4040")
}

func TestLoadIniErrors(t *testing.T) {

	if _, err := loadIni("key = before any section\n"); err == nil {
		t.Error("expected error: key before first section")
	}
	if _, err := loadIni("[s]\nno equal sign here\n"); err == nil {
		t.Error("expected error: key=... expected")
	}
	if _, err := loadIni("[s ; broken ] section\n"); err == nil {
		t.Error("expected error: invalid section name")
	}
}
