// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"strings"
)

// Page is one page of dataset rows with pagination cursors
type Page struct {
	Rows         []map[string]any `json:"rows"`
	Columns      []string         `json:"columns"`
	TotalRows    int64            `json:"totalRows"`
	FilteredRows int64            `json:"filteredRows"`
	Page         int              `json:"page"`
	PageSize     int              `json:"pageSize"`
	TotalPages   int64            `json:"totalPages"`
	NextCursor   *string          `json:"nextCursor"`
	PrevCursor   *string          `json:"prevCursor"`
}

// GetPage fetch a page of rows with keyset pagination, sort and filters.
//
// Rows are ordered by sort column with nulls last and rowid as tie-breaker,
// or by rowid only when unsorted. If cursor is set then additional keyset
// predicate selects rows strictly after the cursor anchor, which makes
// pagination stable at any depth. Page number is echoed back for the client,
// the cursor is the pagination truth.
func (e *Engine) GetPage(
	datasetId string, page int, pageSize int,
	sortColumn string, sortDirection string,
	filters []Filter, cursor string,
) (*Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pageSize < 1 || pageSize > 10000 {
		return nil, NewInvalid("page_size must be between 1 and 10000")
	}

	table, err := e.getTable(datasetId)
	if err != nil {
		return nil, err
	}
	tableSql := quoteIdent(table)

	_, colMeta, err := e.getColumnMeta(table)
	if err != nil {
		return nil, err
	}
	if sortColumn != "" {
		if _, ok := colMeta[sortColumn]; !ok {
			return nil, NewInvalid("Invalid sort column: " + sortColumn)
		}
	}

	sortDir := "ASC"
	if sortDirection == "desc" {
		sortDir = "DESC"
	}

	filterClauses, filterParams, err := buildFilterClauses(filters, colMeta)
	if err != nil {
		return nil, err
	}

	whereFilterSql := ""
	if len(filterClauses) > 0 {
		whereFilterSql = "WHERE " + strings.Join(filterClauses, " AND ")
	}

	filteredRows, err := e.selectCount(
		"SELECT COUNT(*) FROM "+tableSql+" "+whereFilterSql, filterParams...)
	if err != nil {
		return nil, NewInvalid("Invalid query input: " + err.Error())
	}
	totalRows, err := e.selectCount("SELECT COUNT(*) FROM " + tableSql)
	if err != nil {
		return nil, err
	}

	queryClauses := append([]string{}, filterClauses...)
	queryParams := append([]any{}, filterParams...)

	if cursor != "" {
		keysetClause, keysetParams, err := buildCursorPredicate(cursor, sortColumn, sortDir, colMeta)
		if err != nil {
			return nil, err
		}
		queryClauses = append(queryClauses, keysetClause)
		queryParams = append(queryParams, keysetParams...)
	}

	whereQuerySql := ""
	if len(queryClauses) > 0 {
		whereQuerySql = "WHERE " + strings.Join(queryClauses, " AND ")
	}

	orderSql := "ORDER BY rowid ASC"
	if sortColumn != "" {
		orderSql = "ORDER BY " + quoteIdent(sortColumn) + " " + sortDir + " NULLS LAST, rowid " + sortDir
	}

	q := `SELECT *, rowid AS "__rowid__" FROM ` + tableSql + " " + whereQuerySql + " " + orderSql + " LIMIT ?"
	queryParams = append(queryParams, pageSize+1)

	colNames, rawRows, err := e.selectRows(q, queryParams...)
	if err != nil {
		return nil, NewInvalid("Invalid query input: " + err.Error())
	}

	hasMore := len(rawRows) > pageSize
	if hasMore {
		rawRows = rawRows[:pageSize]
	}

	rowidIdx := -1
	sortIdx := -1
	for i, c := range colNames {
		if c == "__rowid__" {
			rowidIdx = i
		}
		if sortColumn != "" && c == sortColumn {
			sortIdx = i
		}
	}
	if rowidIdx < 0 {
		return nil, NewInvalid("Invalid query input: rowid column missing")
	}

	columns := make([]string, 0, len(colNames)-1)
	for _, c := range colNames {
		if c != "__rowid__" {
			columns = append(columns, c)
		}
	}

	rows := make([]map[string]any, 0, len(rawRows))
	for _, raw := range rawRows {
		m := make(map[string]any, len(columns))
		for i, c := range colNames {
			if c == "__rowid__" {
				continue
			}
			m[c] = normalizeValue(raw[i])
		}
		rows = append(rows, m)
	}

	var nextCursor *string
	if hasMore && len(rawRows) > 0 {
		last := rawRows[len(rawRows)-1]

		var sortVal any
		if sortIdx >= 0 {
			sortVal = last[sortIdx]
		}
		c := makeCursor(sortColumn, sortDir, toInt64(last[rowidIdx]), sortVal)
		nextCursor = &c
	}
	var prevCursor *string
	if cursor != "" {
		prevCursor = &cursor
	}

	totalPages := (filteredRows + int64(pageSize) - 1) / int64(pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Rows:         rows,
		Columns:      columns,
		TotalRows:    totalRows,
		FilteredRows: filteredRows,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		NextCursor:   nextCursor,
		PrevCursor:   prevCursor,
	}, nil
}
