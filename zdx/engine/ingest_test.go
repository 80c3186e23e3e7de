// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"testing"
	"time"
)

func TestFileFormat(t *testing.T) {

	checkStr := func(path, expected string) {
		if s := fileFormat(path); s != expected {
			t.Errorf("invalid format of %s: %s, expected: %s", path, s, expected)
		}
	}

	checkStr("sales.csv", formatCsv)
	checkStr("SALES.CSV", formatCsv)
	checkStr("events.parquet", formatParquet)
	checkStr("book.xlsx", formatXlsx)
	checkStr("app.sqlite", formatSqlite)
	checkStr("app.db", formatSqlite)
	checkStr("readme.txt", "")
	checkStr("noext", "")
}

func TestImportSessionsCap(t *testing.T) {

	s := newImportSessions(2, time.Hour)

	newSes := func(id string) *importSession {
		return &importSession{id: id, created: time.Now()}
	}

	s.add(newSes("a"))
	s.add(newSes("b"))
	s.add(newSes("c")) // over the cap: oldest "a" must be evicted

	if _, ok := s.get("a"); ok {
		t.Errorf("session a must be evicted over the cap")
	}
	if _, ok := s.get("b"); !ok {
		t.Errorf("session b must be retained")
	}

	// get("b") refreshed its position, next eviction must drop "c"
	s.add(newSes("d"))

	if _, ok := s.get("c"); ok {
		t.Errorf("session c must be evicted as least recently used")
	}
	if _, ok := s.get("b"); !ok {
		t.Errorf("session b must be retained after refresh")
	}
	if _, ok := s.get("d"); !ok {
		t.Errorf("session d must be retained")
	}
}

func TestImportSessionsTtl(t *testing.T) {

	s := newImportSessions(10, time.Hour)

	s.add(&importSession{id: "old", created: time.Now().Add(-2 * time.Hour)})
	s.add(&importSession{id: "new", created: time.Now()})

	if _, ok := s.get("old"); ok {
		t.Errorf("expired session must be dropped")
	}
	if _, ok := s.get("new"); !ok {
		t.Errorf("live session must be retained")
	}
}

func TestImportSessionsRemove(t *testing.T) {

	s := newImportSessions(10, time.Hour)
	s.add(&importSession{id: "x", created: time.Now()})

	s.remove("x")
	if _, ok := s.get("x"); ok {
		t.Errorf("removed session must not be found")
	}
	s.remove("x") // second remove is no-op
}
