// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"strings"
	"time"
	"unicode"

	"github.com/zendx/go/zdx/zdxLog"
)

// cell result preview is bounded
const maxPreviewRows = 1000

// CellResult is ad-hoc cell outcome: a bounded table preview
// or a text rendering of a scalar result
type CellResult struct {
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	RowCount      int              `json:"rowCount"`
	ExecutionTime float64          `json:"executionTime"` // milliseconds
	TextOutput    string           `json:"textOutput,omitempty"`
}

// RunCell evaluate read-only sql expression against the dataset exposed
// as view df. The snippet is scanned for unsafe sql before execution:
// semicolons, comments, escapes and write or ddl keywords are rejected.
// A bare expression (not a select) is wrapped into a scalar select and
// returned as textOutput, a query returns up to 1000 preview rows.
func (e *Engine) RunCell(datasetId string, code string) (*CellResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.getTable(datasetId)
	if err != nil {
		return nil, err
	}

	src := cleanCellExpr(code)
	if strings.TrimSpace(src) == "" {
		return nil, NewInvalid("Cell expression is empty")
	}
	if err := errorIfUnsafeSql(src); err != nil {
		return nil, NewInvalid(err.Error())
	}

	// bare expression is evaluated as a scalar select over df,
	// so count(*) or max(x) aggregate the whole frame
	isScalar := false
	q := src
	switch firstKeyword(src) {
	case "SELECT", "WITH", "FROM":
	default:
		q = "SELECT (" + src + ") AS value FROM df LIMIT 1"
		isScalar = true
	}

	start := time.Now()

	viewSql := "CREATE OR REPLACE VIEW df AS SELECT * FROM " + quoteIdent(table)
	zdxLog.LogSql(viewSql)
	if _, err := e.db.Exec(viewSql); err != nil {
		return nil, err
	}

	names, raw, qErr := e.selectRows(q)

	zdxLog.LogSql("DROP VIEW IF EXISTS df")
	if _, err := e.db.Exec("DROP VIEW IF EXISTS df"); err != nil && qErr == nil {
		return nil, err
	}
	if qErr != nil {
		return nil, NewInvalid("Cell expression failed: " + qErr.Error())
	}

	elapsed := round2(time.Since(start).Seconds() * 1000)

	if isScalar {
		out := ""
		if len(raw) > 0 && len(raw[0]) > 0 {
			out = stringify(raw[0][0])
		}
		return &CellResult{
			Columns:       []string{},
			Rows:          []map[string]any{},
			RowCount:      0,
			ExecutionTime: elapsed,
			TextOutput:    out,
		}, nil
	}

	if len(raw) > maxPreviewRows {
		raw = raw[:maxPreviewRows]
	}
	rows := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		m := make(map[string]any, len(names))
		for i, c := range names {
			m[c] = normalizeValue(r[i])
		}
		rows = append(rows, m)
	}

	return &CellResult{
		Columns:       names,
		Rows:          rows,
		RowCount:      len(rows),
		ExecutionTime: elapsed,
	}, nil
}

// firstKeyword return upper-cased first identifier of the expression
func firstKeyword(src string) string {
	s := strings.TrimSpace(src)
	end := len(s)
	for i, c := range s {
		if !unicode.IsLetter(c) {
			end = i
			break
		}
	}
	return strings.ToUpper(s[:end])
}

// cleanCellExpr replace cr-lf by spaces and unify unsafe quote characters
func cleanCellExpr(src string) string {

	var sb strings.Builder
	for _, c := range src {
		if c == '\r' || c == '\n' || c == '\t' {
			c = '\x20'
		}
		if isUnsafeQuote(c) {
			c = '\''
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// isUnsafeQuote return true if character is "remote" unicode quote
func isUnsafeQuote(c rune) bool {
	switch c {
	case '‘', '’', '‚', '‛', '“', '”', '„', '‟', '`', '´':
		return true
	}
	return false
}

// errorIfUnsafeSql return error if expression contains semicolon, -- comment,
// \ escape or unsafe sql keyword outside of 'quotes'
func errorIfUnsafeSql(src string) error {

	nStart := 0
	var err error

	for nEnd := 0; nStart >= 0 && nEnd >= 0; {

		if nStart, nEnd, err = nextUnquoted(src, nStart); err != nil {
			return err
		}
		if nStart < 0 || nEnd < 0 { // end of source string
			break
		}

		part := src[nStart:nEnd]
		if strings.Contains(part, ";") {
			return NewInvalid("Error in expression, semicolon found: " + src)
		}
		if strings.Contains(part, "--") {
			return NewInvalid("Error in expression, SQL -- comment found: " + src)
		}
		if strings.Contains(part, "\\") {
			return NewInvalid("Error in expression, SQL \\ escape sequence found: " + src)
		}
		if err = errorIfUnsafeSqlKeyword(part); err != nil {
			return err
		}

		nStart = nEnd // to the next part of source string
	}
	return nil
}

// errorIfUnsafeSqlKeyword return error if part of expression contains
// write, ddl or engine-control sql keyword
func errorIfUnsafeSqlKeyword(src string) error {

	unsafeSqlKeywords := [...]string{ // list is incomplete by nature
		"ALTER",
		"ATTACH",
		"BEGIN",
		"CALL",
		"COMMIT",
		"COPY",
		"CREATE",
		"DELETE",
		"DETACH",
		"DROP",
		"EXEC",
		"EXECUTE",
		"EXPORT",
		"FORCE",
		"GRANT",
		"IMPORT",
		"INSERT",
		"INSTALL",
		"LOAD",
		"MERGE",
		"PRAGMA",
		"REPLACE",
		"REVOKE",
		"ROLLBACK",
		"SET",
		"TRUNCATE",
		"UPDATE",
		"VACUUM",
	}

	upper := strings.ToUpper(src)
	words := strings.FieldsFunc(upper, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_'
	})

	for _, w := range words {
		for _, kw := range unsafeSqlKeywords {
			if w == kw {
				return NewInvalid("Error in expression, unsafe SQL keyword found: " + kw)
			}
		}
	}
	return nil
}

// nextUnquoted find next part of source string outside of sql 'quotes'
// at start position, return start and end position of unquoted part
func nextUnquoted(src string, startPos int) (int, int, error) {

	if startPos >= len(src) {
		return startPos, -1, nil
	}
	if startPos < 0 {
		return -1, -1, NewInvalid("Invalid expression parse position in: " + src)
	}

	nPos := startPos
	isInside := false

	for k, c := range src[startPos:] {

		if c != '\'' {
			continue
		}
		// else: this is sql ' quote: end or begin of quoted constant

		isInside = !isInside
		if !isInside {
			nPos = startPos + k + 1 // next char position after closing ' quote
			continue
		}
		// else start of 'quotes'

		if startPos+k > nPos { // found part of source string outside of sql 'quotes'
			return nPos, startPos + k, nil
		}
	}

	// sql 'quotes' must be closed (paired)
	if isInside {
		return -1, -1, NewInvalid("Error in expression, unbalanced SQL 'quotes' in: " + src)
	}

	// if there is any part of the string after last closing 'quote' then return it as result
	if nPos < len(src) {
		return nPos, len(src), nil
	}
	// else nothing after last closing 'quotes'
	return nPos, -1, nil
}
