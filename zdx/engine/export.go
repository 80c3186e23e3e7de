// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// ExportCsv return filtered and sorted dataset rows as csv bytes:
// header line followed by data rows, nulls rendered as empty fields,
// non-primitive values stringified. Rows are fully materialized
// so the engine lock is not held while the response body is written.
func (e *Engine) ExportCsv(
	datasetId string, sortColumn string, sortDirection string, filters []Filter,
) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

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
	whereSql := ""
	if len(filterClauses) > 0 {
		whereSql = "WHERE " + strings.Join(filterClauses, " AND ")
	}

	orderSql := "ORDER BY rowid ASC"
	if sortColumn != "" {
		orderSql = "ORDER BY " + quoteIdent(sortColumn) + " " + sortDir + " NULLS LAST"
	}

	colNames, rows, err := e.selectRows(
		"SELECT * FROM "+tableSql+" "+whereSql+" "+orderSql, filterParams...)
	if err != nil {
		return nil, NewInvalid("Export failed: " + err.Error())
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(colNames); err != nil {
		return nil, err
	}
	record := make([]string, len(colNames))
	for _, row := range rows {
		for i, v := range row {
			record[i] = stringify(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
