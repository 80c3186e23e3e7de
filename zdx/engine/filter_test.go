// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"strings"
	"testing"
)

// column descriptors shared by filter tests
var filterTestMeta = map[string]columnMeta{
	"name":   {Name: "name", DuckType: "VARCHAR", AppType: typeString},
	"age":    {Name: "age", DuckType: "BIGINT", AppType: typeInteger},
	"price":  {Name: "price", DuckType: "DOUBLE", AppType: typeFloat},
	"dob":    {Name: "dob", DuckType: "DATE", AppType: typeDate},
	"active": {Name: "active", DuckType: "BOOLEAN", AppType: typeBoolean},
}

func TestBuildFilterClause(t *testing.T) {

	checkClause := func(f Filter, expected string, expectedParams []any) {
		clause, params, err := buildFilterClause(f, filterTestMeta)
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

	checkClause(Filter{Column: "name", Operator: "is_null"}, `"name" IS NULL`, nil)
	checkClause(Filter{Column: "name", Operator: "is_not_null"}, `"name" IS NOT NULL`, nil)
	checkClause(Filter{Column: "name", Operator: "contains", Value: "ab"}, `"name" ILIKE ?`, []any{"%ab%"})
	checkClause(Filter{Column: "name", Operator: "starts_with", Value: "ab"}, `"name" ILIKE ?`, []any{"ab%"})
	checkClause(Filter{Column: "age", Operator: ">=", Value: float64(21)}, `"age" >= ?`, []any{int64(21)})
	checkClause(Filter{Column: "active", Operator: "=", Value: "yes"}, `"active" = ?`, []any{true})
	checkClause(Filter{Column: "dob", Operator: "<", Value: "2024-02-29"}, `"dob" < ?`, []any{"2024-02-29"})
}

func TestBuildFilterClauseErrors(t *testing.T) {

	checkErr := func(f Filter, expected string) {
		_, _, err := buildFilterClause(f, filterTestMeta)
		if !IsInvalid(err) {
			t.Fatalf("expected invalid filter error, got: %v", err)
		}
		if !strings.Contains(err.Error(), expected) {
			t.Errorf("invalid error: %s, expected to contain: %s", err.Error(), expected)
		}
	}

	checkErr(Filter{Operator: "="}, "Filter column is required")
	checkErr(Filter{Column: "no_such", Operator: "="}, "Invalid filter column: no_such")
	checkErr(Filter{Column: "name"}, "Filter operator is required for column: name")

	// operator not allowed for the column type
	checkErr(Filter{Column: "age", Operator: "contains", Value: "1"}, "Unsupported operator 'contains'")
	checkErr(Filter{Column: "dob", Operator: "!=", Value: "2024-01-01"}, "Unsupported operator '!='")
	checkErr(Filter{Column: "active", Operator: ">", Value: true}, "Unsupported operator '>'")
}

func TestCoerceValue(t *testing.T) {

	check := func(value any, appType string, expected any) {
		v, err := coerceValue(value, appType, "c", "=")
		if err != nil {
			t.Fatal(err)
		}
		if v != expected {
			t.Errorf("invalid value: %v (%T), expected: %v (%T)", v, v, expected, expected)
		}
	}
	checkErr := func(value any, appType string, expected string) {
		_, err := coerceValue(value, appType, "c", "=")
		if !IsInvalid(err) {
			t.Fatalf("expected invalid value error, got: %v", err)
		}
		if !strings.Contains(err.Error(), expected) {
			t.Errorf("invalid error: %s, expected to contain: %s", err.Error(), expected)
		}
	}

	// json numbers arrive as float64, integer fraction is truncated
	check(float64(12.9), typeInteger, int64(12))
	check(" 42 ", typeInteger, int64(42))
	check(float64(2), typeFloat, float64(2))
	check("3.5", typeFloat, float64(3.5))
	check("Yes", typeBoolean, true)
	check("0", typeBoolean, false)
	check("2024-02-29", typeDate, "2024-02-29")
	check(123, typeString, "123")

	checkErr(nil, typeInteger, "Filter value is required for column 'c'")
	checkErr("abc", typeInteger, "Invalid integer value for column 'c': abc")
	checkErr("abc", typeFloat, "Invalid float value for column 'c': abc")
	checkErr("maybe", typeBoolean, "Invalid boolean value for column 'c': maybe")
	checkErr("2024-02-30", typeDate, "Expected YYYY-MM-DD.")
	checkErr("29/02/2024", typeDate, "Invalid date value for column 'c'")
}
