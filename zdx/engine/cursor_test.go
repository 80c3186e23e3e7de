// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {

	token := makeCursor("g", "ASC", 42, "a")

	p, err := decodeCursor(token)
	if err != nil {
		t.Fatal(err)
	}
	if p.V != 1 {
		t.Errorf("invalid cursor version: %d, expected: 1", p.V)
	}
	if p.S == nil || *p.S != "g" {
		t.Errorf("invalid cursor sort column, expected: g")
	}
	if p.D != "ASC" {
		t.Errorf("invalid cursor direction: %s, expected: ASC", p.D)
	}
	if p.R == nil || *p.R != 42 {
		t.Errorf("invalid cursor row anchor, expected: 42")
	}
	if p.N != nil {
		t.Errorf("null marker must be omitted for non-null sort value")
	}
	if s, ok := p.K.(string); !ok || s != "a" {
		t.Errorf("invalid cursor sort key: %v, expected: a", p.K)
	}
}

func TestCursorNullAnchor(t *testing.T) {

	token := makeCursor("g", "DESC", 7, nil)

	p, err := decodeCursor(token)
	if err != nil {
		t.Fatal(err)
	}
	if p.N == nil || !*p.N {
		t.Errorf("null marker must be set for null sort value")
	}
	if p.K != nil {
		t.Errorf("sort key must be omitted for null sort value")
	}
}

func TestDecodeCursorInvalid(t *testing.T) {

	if _, err := decodeCursor("*** not a cursor ***"); !IsInvalid(err) {
		t.Errorf("expected invalid cursor error, got: %v", err)
	}
	// valid base64 of non-json content
	if _, err := decodeCursor("bm90IGpzb24"); !IsInvalid(err) {
		t.Errorf("expected invalid cursor error, got: %v", err)
	}
}

func TestCursorTimestampAnchor(t *testing.T) {

	// timestamp anchor keeps sub-second precision, midnight collapses to date
	ts := time.Date(2024, 1, 1, 10, 0, 0, 500000000, time.UTC)
	if s := serializeCursorValue(ts); s != "2024-01-01 10:00:00.5" {
		t.Errorf("invalid timestamp anchor: %v, expected: 2024-01-01 10:00:00.5", s)
	}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if s := serializeCursorValue(day); s != "2024-01-01" {
		t.Errorf("invalid date anchor: %v, expected: 2024-01-01", s)
	}

	// date and timestamp anchors resume as varchar literals,
	// the database casts them when comparing to the sort column
	checkPass := func(src string) {
		v, err := deserializeCursorValue(src, typeDate)
		if err != nil {
			t.Fatal(err)
		}
		if v != src {
			t.Errorf("invalid anchor value: %v, expected: %s", v, src)
		}
	}
	checkPass("2024-01-01")
	checkPass("2024-01-01 10:00:00")
	checkPass("2024-01-01 10:00:00.5")
}

func TestBuildCursorPredicate(t *testing.T) {

	colMeta := map[string]columnMeta{
		"g": {Name: "g", DuckType: "VARCHAR", AppType: typeString},
	}

	checkClause := func(token, sortColumn, sortDir, expected string, expectedParams []any) {
		clause, params, err := buildCursorPredicate(token, sortColumn, sortDir, colMeta)
		if err != nil {
			t.Fatal(err)
		}
		if clause != expected {
			t.Errorf("invalid clause: %s, expected: %s", clause, expected)
		}
		if len(params) != len(expectedParams) {
			t.Fatalf("invalid params count: %d, expected: %d", len(params), len(expectedParams))
		}
		for i := range params {
			if params[i] != expectedParams[i] {
				t.Errorf("invalid param [%d]: %v, expected: %v", i, params[i], expectedParams[i])
			}
		}
	}

	// unsorted: rowid only
	checkClause(
		makeCursor("", "ASC", 5, nil), "", "ASC",
		"rowid > ?", []any{int64(5)})

	// non-null anchor ascending
	checkClause(
		makeCursor("g", "ASC", 5, "a"), "g", "ASC",
		`(("g" > ?) OR ("g" = ? AND rowid > ?) OR "g" IS NULL)`, []any{"a", "a", int64(5)})

	// non-null anchor descending
	checkClause(
		makeCursor("g", "DESC", 5, "a"), "g", "DESC",
		`(("g" < ?) OR ("g" = ? AND rowid < ?) OR "g" IS NULL)`, []any{"a", "a", int64(5)})

	// null anchor: only null rows after it
	checkClause(
		makeCursor("g", "ASC", 5, nil), "g", "ASC",
		`("g" IS NULL AND rowid > ?)`, []any{int64(5)})
}

func TestBuildCursorPredicateStale(t *testing.T) {

	colMeta := map[string]columnMeta{
		"g":  {Name: "g", DuckType: "VARCHAR", AppType: typeString},
		"id": {Name: "id", DuckType: "BIGINT", AppType: typeInteger},
	}
	token := makeCursor("g", "ASC", 5, "a")

	checkErr := func(sortColumn, sortDir, expected string) {
		_, _, err := buildCursorPredicate(token, sortColumn, sortDir, colMeta)
		if !IsInvalid(err) {
			t.Fatalf("expected invalid cursor error, got: %v", err)
		}
		if err.Error() != expected {
			t.Errorf("invalid error: %s, expected: %s", err.Error(), expected)
		}
	}

	checkErr("id", "ASC", "Cursor does not match current sort column")
	checkErr("g", "DESC", "Cursor does not match current sort direction")

	// unsupported cursor version
	badVersion := encodeCursor(cursorPayload{V: 2, D: "ASC", R: new(int64)})
	if _, _, err := buildCursorPredicate(badVersion, "", "ASC", colMeta); err == nil ||
		err.Error() != "Invalid cursor version" {
		t.Errorf("expected invalid cursor version error, got: %v", err)
	}
}
