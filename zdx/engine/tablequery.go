// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Aggregation is one aggregation of the table query:
// op is count, sum, avg, min or max, column "*" is legal only with count,
// output alias defaults to <op>_<column> with "*" replaced by "all"
type Aggregation struct {
	Op     string `json:"op"`
	Column string `json:"column"`
	As     string `json:"as"`
}

// HavingItem is one HAVING condition on an aggregation alias of the same query
type HavingItem struct {
	Metric   string `json:"metric"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// SortItem is one ORDER BY item: real column or aggregation alias
type SortItem struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// TableQuery is structured query spec: filters, group by, aggregations, having, sort, limit
type TableQuery struct {
	Filters      []Filter      `json:"filters"`
	GroupBy      []string      `json:"groupBy"`
	Aggregations []Aggregation `json:"aggregations"`
	Having       []HavingItem  `json:"having"`
	Sort         []SortItem    `json:"sort"`
	Limit        int           `json:"limit"`
}

// TableQueryResult is table query rows with the generated sql
// and an equivalent pandas expression for display
type TableQueryResult struct {
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	RowCount        int              `json:"rowCount"`
	GeneratedSql    string           `json:"generatedSql"`
	GeneratedPython string           `json:"generatedPython"`
}

// sql aggregation functions by op
var aggOps = map[string]string{
	"count": "COUNT",
	"sum":   "SUM",
	"avg":   "AVG",
	"min":   "MIN",
	"max":   "MAX",
}

// aggAlias return output alias of the aggregation: explicit "as" or <op>_<column>
func aggAlias(a Aggregation) string {
	if s := strings.TrimSpace(a.As); s != "" {
		return a.As
	}
	return a.Op + "_" + strings.ReplaceAll(a.Column, "*", "all")
}

// RunTableQuery compile the structured spec into parameterized sql, execute it
// and return rows together with generated sql and equivalent pandas expression.
//
// Composition rules:
//   - select parts are group-by columns followed by op(target) AS alias,
//   - aggregations with groupBy => GROUP BY group columns,
//   - aggregations without groupBy => whole table aggregate,
//   - groupBy without aggregations => distinct projection,
//   - HAVING is allowed only with both aggregations and groupBy,
//   - ORDER BY appends NULLS LAST to each item.
func (e *Engine) RunTableQuery(datasetId string, spec TableQuery) (*TableQueryResult, error) {
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

	for _, col := range spec.GroupBy {
		if col == "" {
			return nil, NewInvalid("groupBy must be an array of column names")
		}
		if _, ok := colMeta[col]; !ok {
			return nil, NewInvalid("Invalid groupBy column: " + col)
		}
	}

	limit := spec.Limit
	if limit == 0 {
		limit = 200
	}
	if limit < 1 || limit > 10000 {
		return nil, NewInvalid("limit must be an integer between 1 and 10000")
	}

	filterClauses, filterParams, err := buildFilterClauses(spec.Filters, colMeta)
	if err != nil {
		return nil, err
	}
	whereSql := ""
	if len(filterClauses) > 0 {
		whereSql = "WHERE " + strings.Join(filterClauses, " AND ")
	}

	selectParts := []string{}
	for _, col := range spec.GroupBy {
		selectParts = append(selectParts, quoteIdent(col))
	}

	// validate aggregations, derive alias semantic types for having
	aggAliasTypes := map[string]string{}
	for _, a := range spec.Aggregations {
		fn, ok := aggOps[a.Op]
		if !ok {
			return nil, NewInvalid("Unsupported aggregation op: " + a.Op)
		}
		if a.Column == "" {
			return nil, NewInvalid("Aggregation column is required")
		}
		if a.Column != "*" {
			cm, ok := colMeta[a.Column]
			if !ok {
				return nil, NewInvalid("Invalid aggregation column: " + a.Column)
			}
			if (a.Op == "sum" || a.Op == "avg") && cm.AppType != typeInteger && cm.AppType != typeFloat {
				return nil, NewInvalid("Aggregation " + a.Op + " requires numeric column: " + a.Column)
			}
		} else if a.Op != "count" {
			return nil, NewInvalid("Aggregation column * is only valid with count")
		}

		target := "*"
		if a.Column != "*" {
			target = quoteIdent(a.Column)
		}
		alias := aggAlias(a)
		selectParts = append(selectParts, fn+"("+target+") AS "+quoteIdent(alias))

		switch {
		case a.Op == "count":
			aggAliasTypes[alias] = typeInteger
		case a.Op == "avg" || a.Column == "*":
			aggAliasTypes[alias] = typeFloat
		default:
			aggAliasTypes[alias] = colMeta[a.Column].AppType
		}
	}

	hasAgg := len(spec.Aggregations) > 0

	selectSql := "*"
	if len(selectParts) > 0 {
		selectSql = strings.Join(selectParts, ", ")
	}

	groupSql := ""
	if len(spec.GroupBy) > 0 {
		quoted := make([]string, len(spec.GroupBy))
		for i, c := range spec.GroupBy {
			quoted[i] = quoteIdent(c)
		}
		groupSql = "GROUP BY " + strings.Join(quoted, ", ")
	}

	havingClauses := []string{}
	havingParams := []any{}
	if len(spec.Having) > 0 {
		if !hasAgg {
			return nil, NewInvalid("HAVING requires at least one aggregation")
		}
		if len(spec.GroupBy) < 1 {
			return nil, NewInvalid("HAVING requires groupBy with aggregations")
		}

		for _, h := range spec.Having {
			if h.Metric == "" {
				return nil, NewInvalid("HAVING metric is required")
			}
			metricType, ok := aggAliasTypes[h.Metric]
			if !ok {
				return nil, NewInvalid("Invalid HAVING metric: " + h.Metric)
			}
			if !havingOperators[h.Operator] {
				return nil, NewInvalid(
					"Unsupported HAVING operator '" + h.Operator + "' for metric '" + h.Metric + "'")
			}
			value, err := coerceValue(h.Value, metricType, h.Metric, h.Operator)
			if err != nil {
				return nil, err
			}
			havingClauses = append(havingClauses, quoteIdent(h.Metric)+" "+h.Operator+" ?")
			havingParams = append(havingParams, value)
		}
	}
	havingSql := ""
	if len(havingClauses) > 0 {
		havingSql = "HAVING " + strings.Join(havingClauses, " AND ")
	}

	orderParts := []string{}
	for _, s := range spec.Sort {
		if s.Column == "" {
			return nil, NewInvalid("Sort column is required")
		}
		_, isCol := colMeta[s.Column]
		_, isAlias := aggAliasTypes[s.Column]
		if !isCol && !isAlias {
			return nil, NewInvalid("Invalid sort column: " + s.Column)
		}
		dir := "ASC"
		if s.Direction == "desc" {
			dir = "DESC"
		}
		orderParts = append(orderParts, quoteIdent(s.Column)+" "+dir+" NULLS LAST")
	}
	orderSql := ""
	if len(orderParts) > 0 {
		orderSql = "ORDER BY " + strings.Join(orderParts, ", ")
	}

	q := "SELECT " + selectSql + " FROM " + tableSql +
		" " + whereSql + " " + groupSql + " " + havingSql + " " + orderSql + " LIMIT ?"
	params := append(append(append([]any{}, filterParams...), havingParams...), limit)

	colNames, rawRows, err := e.selectRows(q, params...)
	if err != nil {
		return nil, NewInvalid("Table query failed: " + err.Error())
	}

	rows := make([]map[string]any, 0, len(rawRows))
	for _, raw := range rawRows {
		m := make(map[string]any, len(colNames))
		for i, c := range colNames {
			m[c] = normalizeValue(raw[i])
		}
		rows = append(rows, m)
	}

	return &TableQueryResult{
		Columns:         colNames,
		Rows:            rows,
		RowCount:        len(rows),
		GeneratedSql:    q,
		GeneratedPython: toPythonQueryRepr(spec, limit),
	}, nil
}

// toPythonQueryRepr compose an equivalent pandas expression string by
// structured concatenation of chained operations. The string is documentation
// returned to the client for display and copy-paste, it is never executed.
func toPythonQueryRepr(spec TableQuery, limit int) string {

	var sb strings.Builder
	sb.WriteString("df")

	for _, f := range spec.Filters {
		col := pyRepr(f.Column)
		val := pyRepr(f.Value)
		switch f.Operator {
		case "is_null":
			sb.WriteString("[df[" + col + "].isna()]")
		case "is_not_null":
			sb.WriteString("[df[" + col + "].notna()]")
		case "=", "!=", ">", "<", ">=", "<=":
			pyOp := f.Operator
			if pyOp == "=" {
				pyOp = "=="
			}
			sb.WriteString("[df[" + col + "] " + pyOp + " " + val + "]")
		case "contains":
			sb.WriteString("[df[" + col + "].astype(str).str.contains(" + val + ", case=False, na=False)]")
		case "starts_with":
			sb.WriteString("[df[" + col + "].astype(str).str.startswith(" + val + ", na=False)]")
		}
	}

	pandasOps := map[string]string{
		"count": "count", "sum": "sum", "avg": "mean", "min": "min", "max": "max",
	}

	if len(spec.Aggregations) > 0 {
		if len(spec.GroupBy) > 0 {
			chunks := make([]string, 0, len(spec.Aggregations))
			for _, a := range spec.Aggregations {
				col := a.Column
				if col == "*" {
					col = spec.GroupBy[0]
				}
				chunks = append(chunks,
					pyRepr(aggAlias(a))+": ("+pyRepr(col)+", "+pyRepr(pandasOps[a.Op])+")")
			}
			sb.WriteString(".groupby(" + pyReprStrings(spec.GroupBy) +
				", dropna=False).agg({" + strings.Join(chunks, ", ") + "}).reset_index()")

			if len(spec.Having) > 0 {
				conds := make([]string, 0, len(spec.Having))
				for _, h := range spec.Having {
					pyOp := h.Operator
					if pyOp == "=" {
						pyOp = "=="
					}
					conds = append(conds, "(`"+h.Metric+"` "+pyOp+" "+pyRepr(h.Value)+")")
				}
				sb.WriteString(".query(" + pyRepr(strings.Join(conds, " and ")) + ")")
			}
		} else if len(spec.Aggregations) == 1 {
			a := spec.Aggregations[0]
			if a.Column == "*" && a.Op == "count" {
				sb.WriteString(".shape[0]")
			} else {
				sb.WriteString("[" + pyRepr(a.Column) + "]." + pandasOps[a.Op] + "()")
			}
		}
	}

	if len(spec.Sort) > 0 {
		cols := make([]string, 0, len(spec.Sort))
		asc := make([]string, 0, len(spec.Sort))
		for _, s := range spec.Sort {
			cols = append(cols, s.Column)
			if s.Direction != "desc" {
				asc = append(asc, "True")
			} else {
				asc = append(asc, "False")
			}
		}
		sb.WriteString(".sort_values(" + pyReprStrings(cols) +
			", ascending=[" + strings.Join(asc, ", ") + "])")
	}

	sb.WriteString(".head(" + strconv.Itoa(limit) + ")")
	return sb.String()
}

// pyRepr render scalar like python repr: strings single-quoted with escapes,
// booleans True/False, nil None, numbers as-is
func pyRepr(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		s := strings.ReplaceAll(val, `\`, `\\`)
		s = strings.ReplaceAll(s, `'`, `\'`)
		return "'" + s + "'"
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// pyReprStrings render string slice like python repr of a list
func pyReprStrings(items []string) string {
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = pyRepr(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
