// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"sort"
	"strconv"
	"time"
)

// SchemaColumn is schema entry of one column with distribution sparkline
type SchemaColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	NullCount   int64  `json:"nullCount"`
	TotalCount  int64  `json:"totalCount"`
	UniqueCount int64  `json:"uniqueCount"`
	Sparkline   []int  `json:"sparkline"`
}

// Schema is dataset columns with row count
type Schema struct {
	Columns  []SchemaColumn `json:"columns"`
	RowCount int64          `json:"rowCount"`
}

// sparkline bucket count and sample size for schema display
const (
	sparklineBins       = 8
	sparklineSampleRows = 2000
)

// GetSchema return dataset columns with null and unique counts
// and a small per-column distribution sparkline built from a sample.
func (e *Engine) GetSchema(datasetId string) (*Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.getTable(datasetId)
	if err != nil {
		return nil, err
	}
	tableSql := quoteIdent(table)

	cols, _, err := e.getColumnMeta(table)
	if err != nil {
		return nil, err
	}
	rowCount, err := e.selectCount("SELECT COUNT(*) FROM " + tableSql)
	if err != nil {
		return nil, err
	}

	sparklines, err := e.buildSchemaSparklines(tableSql, cols, rowCount)
	if err != nil {
		return nil, err
	}

	schema := &Schema{Columns: make([]SchemaColumn, 0, len(cols)), RowCount: rowCount}
	for _, cm := range cols {
		colSql := quoteIdent(cm.Name)

		stats, err := e.selectFirst(
			"SELECT COUNT(*) FILTER (WHERE " + colSql + " IS NULL), COUNT(DISTINCT " + colSql + ")" +
				" FROM " + tableSql)
		if err != nil {
			return nil, err
		}

		schema.Columns = append(schema.Columns, SchemaColumn{
			Name:        cm.Name,
			Type:        cm.AppType,
			NullCount:   toInt64(stats[0]),
			TotalCount:  rowCount,
			UniqueCount: toInt64(stats[1]),
			Sparkline:   sparklines[cm.Name],
		})
	}
	return schema, nil
}

// buildSchemaSparklines sample up to 2000 rows once and compute
// per-column bucket counts, it must be called under lock
func (e *Engine) buildSchemaSparklines(
	tableSql string, cols []columnMeta, rowCount int64,
) (map[string][]int, error) {

	sparklines := map[string][]int{}
	for _, cm := range cols {
		sparklines[cm.Name] = []int{}
	}
	if rowCount <= 0 || len(cols) < 1 {
		return sparklines, nil
	}

	sampleSize := int64(sparklineSampleRows)
	if rowCount < sampleSize {
		sampleSize = rowCount
	}

	sampleSql := "SELECT * FROM " + tableSql + " LIMIT " + strconv.FormatInt(sampleSize, 10)
	if rowCount > sampleSize {
		sampleSql = "SELECT * FROM " + tableSql + " USING SAMPLE " + strconv.FormatInt(sampleSize, 10) + " ROWS"
	}

	names, rows, err := e.selectRows(sampleSql)
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return sparklines, nil
	}

	colIdx := map[string]int{}
	for i, n := range names {
		colIdx[n] = i
	}

	for _, cm := range cols {
		idx, ok := colIdx[cm.Name]
		if !ok {
			continue
		}
		values := make([]any, 0, len(rows))
		for _, r := range rows {
			values = append(values, r[idx])
		}
		sparklines[cm.Name] = computeSparkline(values, cm.AppType, sparklineBins)
	}
	return sparklines, nil
}

// computeSparkline bucket sampled values:
// numeric and date into equal-width bins (exact frequencies when distinct <= bins),
// boolean into [false count, true count], string into top value counts descending
func computeSparkline(values []any, appType string, bins int) []int {

	nonNull := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) < 1 {
		return []int{}
	}

	switch appType {
	case typeInteger, typeFloat:
		numeric := make([]float64, 0, len(nonNull))
		for _, v := range nonNull {
			if f, ok := toFloat64(v); ok {
				numeric = append(numeric, f)
			}
		}
		return binOrFrequencies(numeric, bins)

	case typeDate:
		stamps := make([]float64, 0, len(nonNull))
		for _, v := range nonNull {
			if t, ok := v.(time.Time); ok {
				stamps = append(stamps, float64(t.Unix()))
			}
		}
		return binOrFrequencies(stamps, bins)

	case typeBoolean:
		trueCount := 0
		for _, v := range nonNull {
			if b, ok := v.(bool); ok && b {
				trueCount++
			}
		}
		return []int{len(nonNull) - trueCount, trueCount}
	}

	// string: frequencies in key order when distinct <= bins, else top counts
	counts := map[string]int{}
	for _, v := range nonNull {
		counts[stringify(v)]++
	}
	if len(counts) <= bins {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]int, 0, len(keys))
		for _, k := range keys {
			out = append(out, counts[k])
		}
		return out
	}
	all := make([]int, 0, len(counts))
	for _, c := range counts {
		all = append(all, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(all)))
	return all[:bins]
}

// binOrFrequencies return exact frequencies when distinct values fit into bins,
// else equal-width bin counts
func binOrFrequencies(values []float64, bins int) []int {
	if len(values) < 1 {
		return []int{}
	}

	freq := map[float64]int{}
	for _, v := range values {
		freq[v]++
	}
	if len(freq) <= bins {
		keys := make([]float64, 0, len(freq))
		for k := range freq {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		out := make([]int, 0, len(keys))
		for _, k := range keys {
			out = append(out, freq[k])
		}
		return out
	}
	return binNumeric(values, bins)
}

// binNumeric bucket values into equal-width bins between min and max
func binNumeric(values []float64, bins int) []int {
	if len(values) < 1 {
		return []int{}
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]int, bins)
	if lo == hi {
		out[bins/2] = len(values)
		return out
	}

	width := (hi - lo) / float64(bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx]++
	}
	return out
}
