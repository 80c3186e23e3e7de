// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

/*
Pagination cursor is opaque url-safe base64 of minified json:

	{"v":1,"s":"sort column or null","d":"ASC","r":rowid,"n":true,"k":value}

where r is rowid of the last returned row, k is its sort column value
and n marks the sort value was null. When sort column is set exactly one
of n or k is present. Cursor is only valid to resume the same sort:
sort column or direction mismatch on decode is a stale cursor error.
*/
type cursorPayload struct {
	V int     `json:"v"`           // cursor version, must be 1
	S *string `json:"s"`           // sort column or null when unsorted
	D string  `json:"d"`           // sort direction: ASC or DESC
	R *int64  `json:"r"`           // rowid of the anchor row
	N *bool   `json:"n,omitempty"` // true if anchor sort value was null
	K any     `json:"k,omitempty"` // anchor sort value when non-null
}

// encodeCursor return url-safe base64 of minified json without padding
func encodeCursor(p cursorPayload) string {
	raw, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor parse cursor token, any failure is invalid cursor error
func decodeCursor(token string) (cursorPayload, error) {

	var p cursorPayload

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return p, NewInvalid("Invalid cursor")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, NewInvalid("Invalid cursor")
	}
	return p, nil
}

// makeCursor build next page cursor from the last retained row
func makeCursor(sortColumn string, sortDir string, rowid int64, sortVal any) string {

	p := cursorPayload{V: 1, D: sortDir, R: &rowid}

	if sortColumn != "" {
		p.S = &sortColumn
		if sortVal == nil {
			isNull := true
			p.N = &isNull
		} else {
			p.K = serializeCursorValue(sortVal)
		}
	}
	return encodeCursor(p)
}

// serializeCursorValue return json-safe rendering of the anchor sort value
func serializeCursorValue(v any) any {
	switch val := v.(type) {
	case string, bool, int64, int32, int, float64, float32:
		return val
	case time.Time:
		return formatCursorTime(val)
	default:
		return normalizeValue(val)
	}
}

// formatCursorTime render timestamp anchor keeping sub-second precision,
// midnight values collapse to date-only form
func formatCursorTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05.999999")
}

// deserializeCursorValue convert decoded json anchor value back to
// a bind parameter of the sort column semantic type.
// Date and timestamp anchors stay varchar literals, the database
// casts them when comparing to the sort column.
func deserializeCursorValue(v any, appType string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch appType {
	case typeInteger, typeFloat, typeBoolean:
		return coerceValue(v, appType, "cursor", "resume")
	case typeDate:
		return stringify(v), nil
	}
	return normalizeValue(v), nil
}

// buildCursorPredicate compile keyset predicate selecting rows strictly after
// the cursor anchor under the declared order, rowid is the universal tie-breaker.
// Order places nulls last so after a non-null anchor all null rows still remain.
func buildCursorPredicate(
	token string, sortColumn string, sortDir string, colMeta map[string]columnMeta,
) (string, []any, error) {

	p, err := decodeCursor(token)
	if err != nil {
		return "", nil, err
	}

	if p.V != 1 {
		return "", nil, NewInvalid("Invalid cursor version")
	}
	cursorSort := ""
	if p.S != nil {
		cursorSort = *p.S
	}
	if cursorSort != sortColumn {
		return "", nil, NewInvalid("Cursor does not match current sort column")
	}
	if p.D != sortDir {
		return "", nil, NewInvalid("Cursor does not match current sort direction")
	}
	if p.R == nil {
		return "", nil, NewInvalid("Cursor is missing row anchor")
	}
	anchorRowid := *p.R

	if sortColumn == "" {
		return "rowid > ?", []any{anchorRowid}, nil
	}

	sortSql := quoteIdent(sortColumn)
	appType := colMeta[sortColumn].AppType

	if p.N != nil && *p.N {
		if sortDir == "ASC" {
			return "(" + sortSql + " IS NULL AND rowid > ?)", []any{anchorRowid}, nil
		}
		return "(" + sortSql + " IS NULL AND rowid < ?)", []any{anchorRowid}, nil
	}

	if p.K == nil {
		return "", nil, NewInvalid("Cursor is missing sort key")
	}
	anchorValue, err := deserializeCursorValue(p.K, appType)
	if err != nil {
		return "", nil, NewInvalid("Invalid cursor sort key")
	}

	if sortDir == "ASC" {
		return "((" + sortSql + " > ?) OR (" + sortSql + " = ? AND rowid > ?) OR " + sortSql + " IS NULL)",
			[]any{anchorValue, anchorValue, anchorRowid}, nil
	}
	return "((" + sortSql + " < ?) OR (" + sortSql + " = ? AND rowid < ?) OR " + sortSql + " IS NULL)",
		[]any{anchorValue, anchorValue, anchorRowid}, nil
}
