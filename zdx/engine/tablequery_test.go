// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"testing"
)

func TestAggAlias(t *testing.T) {

	checkStr := func(a Aggregation, expected string) {
		if s := aggAlias(a); s != expected {
			t.Errorf("invalid alias: %s, expected: %s", s, expected)
		}
	}

	checkStr(Aggregation{Op: "sum", Column: "amount", As: "amount_total"}, "amount_total")
	checkStr(Aggregation{Op: "sum", Column: "amount"}, "sum_amount")
	checkStr(Aggregation{Op: "count", Column: "*"}, "count_all")
	checkStr(Aggregation{Op: "avg", Column: "price", As: "  "}, "avg_price")
}

func TestPyRepr(t *testing.T) {

	checkStr := func(v any, expected string) {
		if s := pyRepr(v); s != expected {
			t.Errorf("invalid repr: %s, expected: %s", s, expected)
		}
	}

	checkStr(nil, "None")
	checkStr(true, "True")
	checkStr(false, "False")
	checkStr("it's", `'it\'s'`)
	checkStr(float64(100), "100") // json number without fraction
	checkStr(float64(2.5), "2.5")
	checkStr(42, "42")
}

func TestToPythonQueryRepr(t *testing.T) {

	spec := TableQuery{
		Filters: []Filter{
			{Column: "country", Operator: "=", Value: "CA"},
		},
		GroupBy: []string{"country"},
		Aggregations: []Aggregation{
			{Op: "sum", Column: "amount", As: "amount_total"},
		},
		Having: []HavingItem{
			{Metric: "amount_total", Operator: ">", Value: float64(100)},
		},
		Sort: []SortItem{
			{Column: "amount_total", Direction: "desc"},
		},
	}

	expected := "df[df['country'] == 'CA']" +
		".groupby(['country'], dropna=False)" +
		".agg({'amount_total': ('amount', 'sum')}).reset_index()" +
		".query('(`amount_total` > 100)')" +
		".sort_values(['amount_total'], ascending=[False])" +
		".head(50)"

	if s := toPythonQueryRepr(spec, 50); s != expected {
		t.Errorf("invalid python repr:\n%s\nexpected:\n%s", s, expected)
	}
}

func TestToPythonQueryReprScalar(t *testing.T) {

	// single whole-table aggregation without grouping
	spec := TableQuery{
		Aggregations: []Aggregation{{Op: "count", Column: "*"}},
	}
	if s := toPythonQueryRepr(spec, 200); s != "df.shape[0].head(200)" {
		t.Errorf("invalid python repr: %s", s)
	}

	spec = TableQuery{
		Filters:      []Filter{{Column: "age", Operator: "is_not_null"}},
		Aggregations: []Aggregation{{Op: "avg", Column: "age"}},
	}
	if s := toPythonQueryRepr(spec, 200); s != "df[df['age'].notna()]['age'].mean().head(200)" {
		t.Errorf("invalid python repr: %s", s)
	}
}
