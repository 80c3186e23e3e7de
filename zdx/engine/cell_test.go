// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"strings"
	"testing"
)

func TestCleanCellExpr(t *testing.T) {

	checkStr := func(src, expected string) {
		if s := cleanCellExpr(src); s != expected {
			t.Errorf("invalid clean result: %s, expected: %s", s, expected)
		}
	}

	checkStr("a\r\nb\tc", "a  b c")
	checkStr("‘x’ and “y”", "'x' and 'y'")
	checkStr("`backtick`", "'backtick'")
	checkStr("plain 'quoted' text", "plain 'quoted' text")
}

func TestFirstKeyword(t *testing.T) {

	checkStr := func(src, expected string) {
		if s := firstKeyword(src); s != expected {
			t.Errorf("invalid first keyword: %s, expected: %s", s, expected)
		}
	}

	checkStr("select 1", "SELECT")
	checkStr("  WITH t AS (SELECT 1) SELECT * FROM t", "WITH")
	checkStr("from df select count(*)", "FROM")
	checkStr("1 + 1", "")
	checkStr("count(*)", "COUNT")
}

func TestErrorIfUnsafeSql(t *testing.T) {

	checkOk := func(src string) {
		if err := errorIfUnsafeSql(src); err != nil {
			t.Errorf("unexpected error for: %s: %v", src, err)
		}
	}
	checkErr := func(src, expected string) {
		err := errorIfUnsafeSql(src)
		if err == nil {
			t.Fatalf("expected error for: %s", src)
		}
		if !strings.Contains(err.Error(), expected) {
			t.Errorf("invalid error: %s, expected to contain: %s", err.Error(), expected)
		}
	}

	checkOk("SELECT COUNT(*) FROM df")
	checkOk("SELECT * FROM df WHERE name = 'O''Brien'")
	checkOk("SELECT ';' FROM df")   // semicolon inside 'quotes' is data
	checkOk("SELECT '--' FROM df")  // comment marker inside 'quotes' is data
	checkOk("SELECT updated_at FROM df") // column name is not the UPDATE keyword

	checkErr("SELECT 1; SELECT 2", "semicolon found")
	checkErr("SELECT 1 -- comment", "SQL -- comment found")
	checkErr("SELECT a \\ b FROM df", "escape sequence found")
	checkErr("DROP TABLE t", "unsafe SQL keyword found: DROP")
	checkErr("select * from df; update df set x = 1", "semicolon found")
	checkErr("PRAGMA database_list", "unsafe SQL keyword found: PRAGMA")
	checkErr("SELECT 'abc FROM df", "unbalanced SQL 'quotes'")
}
