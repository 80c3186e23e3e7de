// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Filter is one row filter: column, operator and value.
// Operators is_null and is_not_null ignore the value.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// filter operators allowed per semantic column type
var filterOperatorsByType = map[string]map[string]bool{
	typeString:  {"=": true, "!=": true, "contains": true, "starts_with": true, "is_null": true, "is_not_null": true},
	typeInteger: {"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true, "is_null": true, "is_not_null": true},
	typeFloat:   {"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true, "is_null": true, "is_not_null": true},
	typeDate:    {"=": true, ">": true, "<": true, ">=": true, "<=": true, "is_null": true, "is_not_null": true},
	typeBoolean: {"=": true, "!=": true, "is_null": true, "is_not_null": true},
}

// having operators allowed for aggregation metrics
var havingOperators = map[string]bool{
	"=": true, "!=": true, ">": true, "<": true, ">=": true, "<=": true,
}

// buildFilterClause compile one filter into parameterized predicate fragment.
// Column must exist and operator must be allowed for its semantic type.
func buildFilterClause(f Filter, colMeta map[string]columnMeta) (string, []any, error) {

	if f.Column == "" {
		return "", nil, NewInvalid("Filter column is required")
	}
	cm, ok := colMeta[f.Column]
	if !ok {
		return "", nil, NewInvalid("Invalid filter column: " + f.Column)
	}
	if f.Operator == "" {
		return "", nil, NewInvalid("Filter operator is required for column: " + f.Column)
	}

	allowed := filterOperatorsByType[cm.AppType]
	if allowed == nil {
		allowed = filterOperatorsByType[typeString]
	}
	if !allowed[f.Operator] {
		return "", nil, NewInvalid(
			"Unsupported operator '" + f.Operator + "' for column '" + f.Column + "' (" + cm.AppType + ")")
	}

	colSql := quoteIdent(f.Column)

	switch f.Operator {
	case "is_null":
		return colSql + " IS NULL", nil, nil
	case "is_not_null":
		return colSql + " IS NOT NULL", nil, nil
	}

	value, err := coerceValue(f.Value, cm.AppType, f.Column, f.Operator)
	if err != nil {
		return "", nil, err
	}

	switch f.Operator {
	case "=", "!=", ">", "<", ">=", "<=":
		return colSql + " " + f.Operator + " ?", []any{value}, nil
	case "contains":
		return colSql + " ILIKE ?", []any{"%" + fmt.Sprint(value) + "%"}, nil
	case "starts_with":
		return colSql + " ILIKE ?", []any{fmt.Sprint(value) + "%"}, nil
	}
	return "", nil, NewInvalid("Unsupported operator '" + f.Operator + "'")
}

// coerceValue convert untrusted scalar to a bind parameter of the column semantic type.
// Null values are rejected, null-predicate operators never call it.
func coerceValue(value any, appType string, col string, op string) (any, error) {

	if value == nil {
		return nil, NewInvalid("Filter value is required for column '" + col + "' and operator '" + op + "'")
	}

	switch appType {
	case typeInteger:
		switch v := value.(type) {
		case float64: // json numbers arrive as float64, truncate fraction
			return int64(v), nil
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, NewInvalid(fmt.Sprintf("Invalid integer value for column '%s': %v", col, value))
			}
			return n, nil
		}
		return nil, NewInvalid(fmt.Sprintf("Invalid integer value for column '%s': %v", col, value))

	case typeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, NewInvalid(fmt.Sprintf("Invalid float value for column '%s': %v", col, value))
			}
			return f, nil
		}
		return nil, NewInvalid(fmt.Sprintf("Invalid float value for column '%s': %v", col, value))

	case typeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "t", "yes", "y":
				return true, nil
			case "0", "false", "f", "no", "n":
				return false, nil
			}
		}
		return nil, NewInvalid(fmt.Sprintf("Invalid boolean value for column '%s': %v", col, value))

	case typeDate:
		switch v := value.(type) {
		case time.Time:
			return v.Format("2006-01-02"), nil
		case string:
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				return nil, NewInvalid(
					fmt.Sprintf("Invalid date value for column '%s': %v. Expected YYYY-MM-DD.", col, value))
			}
			return d.Format("2006-01-02"), nil
		}
		return nil, NewInvalid(fmt.Sprintf("Invalid date value for column '%s': %v", col, value))
	}

	// string: stringify any scalar
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

// buildFilterClauses compile all filters joined by AND
func buildFilterClauses(filters []Filter, colMeta map[string]columnMeta) ([]string, []any, error) {

	clauses := []string{}
	params := []any{}

	for _, f := range filters {
		c, p, err := buildFilterClause(f, colMeta)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, c)
		params = append(params, p...)
	}
	return clauses, params, nil
}
