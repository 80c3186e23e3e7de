// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package helper

import (
	"testing"
	"time"
)

func TestUnQuote(t *testing.T) {

	checkStr := func(src, expected string) {
		if v := UnQuote(src); v != expected {
			t.Errorf("expected: %s got: %s", expected, v)
		}
	}

	checkStr("", "")
	checkStr("  ", "")
	checkStr("abc", "abc")
	checkStr("  abc  ", "abc")
	checkStr(`"abc"`, "abc")
	checkStr(`'abc'`, "abc")
	checkStr(`  "abc"  `, "abc")
	checkStr(`"abc'`, `"abc'`)     // unbalanced quotes not removed
	checkStr(`" abc "`, " abc ")   // spaces inside quotes preserved
	checkStr(`"`, `"`)             // single quote char is not a quoted string
}

func TestMakeDateTime(t *testing.T) {

	tm := time.Date(2012, 8, 17, 16, 4, 59, int(148*time.Millisecond), time.UTC)
	if s := MakeDateTime(tm); s != "2012-08-17 16:04:59.0148" {
		t.Errorf("expected: 2012-08-17 16:04:59.0148 got: %s", s)
	}
}

func TestMakeTimeStamp(t *testing.T) {

	tm := time.Date(2012, 8, 17, 16, 4, 59, int(148*time.Millisecond), time.UTC)
	if s := MakeTimeStamp(tm); s != "20120817_160459_0148" {
		t.Errorf("expected: 20120817_160459_0148 got: %s", s)
	}
}

func TestCleanPath(t *testing.T) {

	checkStr := func(src, expected string) {
		if v := CleanPath(src); v != expected {
			t.Errorf("expected: %s got: %s", expected, v)
		}
	}

	checkStr("name.csv", "name.csv")
	checkStr("dir/name.csv", "dir_name.csv")
	checkStr(`dir\name.csv`, "dir_name.csv")
	checkStr("a:b*c?.csv", "a_b_c_.csv")
	checkStr(`"quoted".csv`, "_quoted_.csv")
}
