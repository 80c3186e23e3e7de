// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"strconv"
)

// full profile row limit: larger tables are profiled over a uniform sample
const profileFullRowLimit = 1000000

// ValueCount is value with its frequency
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// PatternClass is string value class with frequency and share
type PatternClass struct {
	Label    string  `json:"label"`
	Count    int64   `json:"count"`
	SharePct float64 `json:"sharePct"`
}

// HistogramBin is one equal-width numeric histogram bin
type HistogramBin struct {
	Bin   int     `json:"bin"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int64   `json:"count"`
}

// MonthCount is monthly date histogram entry, label is YYYY-MM
type MonthCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ColumnProfile is per-column statistics report.
// Stats content depends on the column semantic type.
type ColumnProfile struct {
	Column                string         `json:"column"`
	Type                  string         `json:"type"`
	TotalRows             int64          `json:"totalRows"`
	Sampled               bool           `json:"sampled"`
	SampleSize            int64          `json:"sampleSize"`
	NonNullCount          int64          `json:"nonNullCount"`
	NullCount             int64          `json:"nullCount"`
	UniqueCount           int64          `json:"uniqueCount"`
	Stats                 map[string]any `json:"stats,omitempty"`
	Histogram             any            `json:"histogram,omitempty"`
	TopValues             []ValueCount   `json:"topValues,omitempty"`
	PatternClasses        []PatternClass `json:"patternClasses,omitempty"`
	Top10CoveragePct      *float64       `json:"top10CoveragePct,omitempty"`
	TailProfile           string         `json:"tailProfile,omitempty"`
	DominantValue         *any           `json:"dominantValue,omitempty"`
	DominantValueCount    int64          `json:"dominantValueCount,omitempty"`
	DominantValueSharePct *float64       `json:"dominantValueSharePct,omitempty"`
}

// ProfileColumn return per-column statistics: null and unique counts,
// type-specific stats, histogram, top values and dominant value.
// Tables over the full profile limit are profiled on a uniform sample.
func (e *Engine) ProfileColumn(datasetId string, column string) (*ColumnProfile, error) {
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
	cm, ok := colMeta[column]
	if !ok {
		return nil, NewNotFound("Column not found: " + column)
	}
	colSql := quoteIdent(column)

	totalRows, err := e.selectCount("SELECT COUNT(*) FROM " + tableSql)
	if err != nil {
		return nil, err
	}

	sampled := totalRows > profileFullRowLimit
	profileSize := totalRows
	sourceSql := tableSql
	if sampled {
		profileSize = profileFullRowLimit
		sourceSql = "(SELECT * FROM " + tableSql + " USING SAMPLE " + strconv.Itoa(profileFullRowLimit) + " ROWS)"
	}

	base, err := e.selectFirst(
		"SELECT COUNT(*), COUNT(" + colSql + "), COUNT(*) - COUNT(" + colSql + "), COUNT(DISTINCT " + colSql + ")" +
			" FROM " + sourceSql)
	if err != nil {
		return nil, err
	}
	nonNull := toInt64(base[1])

	p := &ColumnProfile{
		Column:       column,
		Type:         cm.AppType,
		TotalRows:    totalRows,
		Sampled:      sampled,
		SampleSize:   profileSize,
		NonNullCount: nonNull,
		NullCount:    toInt64(base[2]),
		UniqueCount:  toInt64(base[3]),
	}

	var dominantValue *string // nil means tie between top two values
	var dominantCount int64
	hasDominant := false

	switch cm.AppType {
	case typeInteger, typeFloat:
		stats, err := e.profileNumeric(sourceSql, colSql)
		if err != nil {
			return nil, err
		}
		if len(stats) > 0 {
			if err := e.profileNumericQuality(sourceSql, colSql, nonNull, stats); err != nil {
				return nil, err
			}
		}
		p.Stats = stats
		if p.Histogram, err = e.profileHistogramNumeric(sourceSql, colSql, 20); err != nil {
			return nil, err
		}
		if dominantValue, dominantCount, hasDominant, err = e.profileDominantValue(sourceSql, colSql); err != nil {
			return nil, err
		}

	case typeString:
		topValues, err := e.profileTopValues(sourceSql, colSql, 10)
		if err != nil {
			return nil, err
		}
		p.TopValues = topValues
		if dominantValue, dominantCount, hasDominant, err = e.profileDominantValue(sourceSql, colSql); err != nil {
			return nil, err
		}

		lengths, err := e.selectFirst(
			"SELECT MIN(LENGTH(" + colSql + ")), MAX(LENGTH(" + colSql + ")), MEDIAN(LENGTH(" + colSql + "))" +
				" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
		if err != nil {
			return nil, err
		}
		stats := map[string]any{}
		if lengths != nil && lengths[0] != nil {
			stats["minLength"] = toInt64(lengths[0])
			stats["maxLength"] = toInt64(lengths[1])
			stats["medianLength"] = safeNumber(lengths[2])
		}
		if err := e.profileStringQuality(sourceSql, colSql, nonNull, stats); err != nil {
			return nil, err
		}

		classes, distinctPatterns, err := e.profileStringPatterns(sourceSql, colSql)
		if err != nil {
			return nil, err
		}
		p.PatternClasses = classes
		stats["distinctPatternCount"] = distinctPatterns
		p.Stats = stats

		coverage := 0.0
		if nonNull > 0 && len(topValues) > 0 {
			var topTotal int64
			for _, v := range topValues {
				topTotal += v.Count
			}
			coverage = float64(topTotal) / float64(nonNull) * 100
		}
		pct := round2(coverage)
		p.Top10CoveragePct = &pct
		switch {
		case coverage >= 70:
			p.TailProfile = "low"
		case coverage >= 40:
			p.TailProfile = "medium"
		default:
			p.TailProfile = "high"
		}

	case typeDate:
		row, err := e.selectFirst(
			"SELECT MIN(" + colSql + "), MAX(" + colSql + ")" +
				" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
		if err != nil {
			return nil, err
		}
		if row != nil && row[0] != nil {
			stats := map[string]any{
				"min": normalizeValue(row[0]),
				"max": normalizeValue(row[1]),
			}
			if err := e.profileDateGaps(sourceSql, colSql, stats); err != nil {
				return nil, err
			}
			p.Stats = stats
		}
		if p.Histogram, err = e.profileHistogramDate(sourceSql, colSql); err != nil {
			return nil, err
		}
		if dominantValue, dominantCount, hasDominant, err = e.profileDominantValue(sourceSql, colSql); err != nil {
			return nil, err
		}

	case typeBoolean:
		stats, trueCount, falseCount, err := e.profileBooleanSplit(sourceSql, colSql, profileSize)
		if err != nil {
			return nil, err
		}
		p.Stats = stats
		hasDominant = true
		switch {
		case trueCount == falseCount:
			dominantValue = nil
			dominantCount = trueCount
		case trueCount > falseCount:
			s := "true"
			dominantValue = &s
			dominantCount = trueCount
		default:
			s := "false"
			dominantValue = &s
			dominantCount = falseCount
		}
	}

	if hasDominant && nonNull > 0 && dominantCount > 0 {
		var dv any
		if dominantValue != nil {
			dv = *dominantValue
			share := round2(float64(dominantCount) / float64(nonNull) * 100)
			p.DominantValueSharePct = &share
		}
		p.DominantValue = &dv
		p.DominantValueCount = dominantCount
	}

	return p, nil
}

// profileNumeric return min, max, mean, median, stddev and percentiles,
// rounded to 4 decimals, null for NaN or Inf
func (e *Engine) profileNumeric(sourceSql, colSql string) (map[string]any, error) {

	row, err := e.selectFirst(
		"SELECT MIN(" + colSql + "), MAX(" + colSql + "), " +
			"ROUND(AVG(" + colSql + ")::DOUBLE, 4), " +
			"ROUND(MEDIAN(" + colSql + ")::DOUBLE, 4), " +
			"ROUND(STDDEV(" + colSql + ")::DOUBLE, 4), " +
			"ROUND(QUANTILE_CONT(" + colSql + ", 0.25)::DOUBLE, 4), " +
			"ROUND(QUANTILE_CONT(" + colSql + ", 0.75)::DOUBLE, 4), " +
			"ROUND(QUANTILE_CONT(" + colSql + ", 0.95)::DOUBLE, 4), " +
			"ROUND(QUANTILE_CONT(" + colSql + ", 0.99)::DOUBLE, 4) " +
			"FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
	if err != nil {
		return nil, err
	}
	if row == nil || row[0] == nil {
		return map[string]any{}, nil
	}
	return map[string]any{
		"min":    safeNumber(row[0]),
		"max":    safeNumber(row[1]),
		"mean":   safeNumber(row[2]),
		"median": safeNumber(row[3]),
		"stddev": safeNumber(row[4]),
		"p25":    safeNumber(row[5]),
		"p75":    safeNumber(row[6]),
		"p95":    safeNumber(row[7]),
		"p99":    safeNumber(row[8]),
	}, nil
}

// profileHistogramNumeric return equal-width bins histogram of non-null values
func (e *Engine) profileHistogramNumeric(sourceSql, colSql string, bins int) ([]HistogramBin, error) {

	bounds, err := e.selectFirst(
		"SELECT MIN(" + colSql + ")::DOUBLE, MAX(" + colSql + ")::DOUBLE" +
			" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
	if err != nil {
		return nil, err
	}
	if bounds == nil || bounds[0] == nil {
		return nil, nil
	}
	lo, _ := toFloat64(bounds[0])
	hi, _ := toFloat64(bounds[1])
	if lo == hi {
		return nil, nil
	}
	binWidth := (hi - lo) / float64(bins)

	_, rows, err := e.selectRows(
		"SELECT FLOOR(("+colSql+"::DOUBLE - ?) / ?)::INTEGER AS bin, COUNT(*)"+
			" FROM "+sourceSql+" WHERE "+colSql+" IS NOT NULL"+
			" GROUP BY bin ORDER BY bin",
		lo, binWidth)
	if err != nil {
		return nil, err
	}

	histogram := make([]HistogramBin, 0, len(rows))
	for _, r := range rows {
		idx := int(toInt64(r[0]))
		if idx < 0 {
			idx = 0
		}
		if idx > bins-1 {
			idx = bins - 1
		}
		edge := lo + float64(idx)*binWidth
		histogram = append(histogram, HistogramBin{
			Bin:   idx,
			Low:   round4(edge),
			High:  round4(edge + binWidth),
			Count: toInt64(r[1]),
		})
	}
	return histogram, nil
}

// profileHistogramDate return monthly histogram of non-null date values
func (e *Engine) profileHistogramDate(sourceSql, colSql string) ([]MonthCount, error) {

	_, rows, err := e.selectRows(
		"SELECT DATE_TRUNC('month', " + colSql + "::TIMESTAMP) AS month, COUNT(*)" +
			" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL" +
			" GROUP BY month ORDER BY month")
	if err != nil {
		return nil, err
	}

	out := make([]MonthCount, 0, len(rows))
	for _, r := range rows {
		label := ""
		if s, ok := normalizeValue(r[0]).(string); ok && len(s) >= 7 {
			label = s[:7]
		}
		out = append(out, MonthCount{Label: label, Count: toInt64(r[1])})
	}
	return out, nil
}

// profileTopValues return most frequent non-null values
func (e *Engine) profileTopValues(sourceSql, colSql string, limit int) ([]ValueCount, error) {

	_, rows, err := e.selectRows(
		"SELECT "+colSql+", COUNT(*) AS cnt FROM "+sourceSql+
			" WHERE "+colSql+" IS NOT NULL GROUP BY "+colSql+
			" ORDER BY cnt DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}

	out := make([]ValueCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ValueCount{Value: stringify(r[0]), Count: toInt64(r[1])})
	}
	return out, nil
}

// profileDominantValue return the single most frequent non-null value,
// value is nil when top two counts are equal
func (e *Engine) profileDominantValue(sourceSql, colSql string) (*string, int64, bool, error) {

	_, counts, err := e.selectRows(
		"SELECT COUNT(*) AS cnt FROM " + sourceSql +
			" WHERE " + colSql + " IS NOT NULL GROUP BY " + colSql +
			" ORDER BY cnt DESC LIMIT 2")
	if err != nil {
		return nil, 0, false, err
	}
	if len(counts) < 1 {
		return nil, 0, false, nil
	}
	if len(counts) > 1 && toInt64(counts[0][0]) == toInt64(counts[1][0]) {
		return nil, toInt64(counts[0][0]), true, nil
	}

	row, err := e.selectFirst(
		"SELECT " + colSql + ", COUNT(*) AS cnt FROM " + sourceSql +
			" WHERE " + colSql + " IS NOT NULL GROUP BY " + colSql +
			" ORDER BY cnt DESC, " + colSql + " ASC LIMIT 1")
	if err != nil {
		return nil, 0, false, err
	}
	if row == nil {
		return nil, 0, false, nil
	}
	v := stringify(row[0])
	return &v, toInt64(row[1]), true, nil
}

// profileNumericQuality add zero, negative and iqr-outlier rates to stats
func (e *Engine) profileNumericQuality(
	sourceSql, colSql string, nonNullCount int64, stats map[string]any,
) error {
	if nonNullCount <= 0 {
		return nil
	}

	counts, err := e.selectFirst(
		"SELECT COUNT(*) FILTER (WHERE " + colSql + " = 0), COUNT(*) FILTER (WHERE " + colSql + " < 0)" +
			" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
	if err != nil {
		return err
	}
	zeroCount := toInt64(counts[0])
	negCount := toInt64(counts[1])

	stats["zeroRatePct"] = round2(float64(zeroCount) / float64(nonNullCount) * 100)
	stats["negativeRatePct"] = round2(float64(negCount) / float64(nonNullCount) * 100)

	p25, okLow := toFloat64(stats["p25"])
	p75, okHigh := toFloat64(stats["p75"])
	if !okLow || !okHigh {
		stats["outlierRatePct"] = nil
		return nil
	}
	iqr := p75 - p25
	low := p25 - 1.5*iqr
	high := p75 + 1.5*iqr

	outliers, err := e.selectCount(
		"SELECT COUNT(*) FROM "+sourceSql+
			" WHERE "+colSql+" IS NOT NULL AND ("+colSql+" < ? OR "+colSql+" > ?)",
		low, high)
	if err != nil {
		return err
	}
	stats["outlierRatePct"] = round2(float64(outliers) / float64(nonNullCount) * 100)
	return nil
}

// profileDateGaps add missing days and largest day gap to stats
func (e *Engine) profileDateGaps(sourceSql, colSql string, stats map[string]any) error {

	span, err := e.selectFirst(
		"SELECT DATEDIFF('day', MIN(" + colSql + "::DATE), MAX(" + colSql + "::DATE)) + 1, " +
			"COUNT(DISTINCT " + colSql + "::DATE)" +
			" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL")
	if err != nil {
		return err
	}
	if span == nil || span[0] == nil {
		return nil
	}
	spanDays := toInt64(span[0])
	distinctDays := toInt64(span[1])
	missingDays := spanDays - distinctDays
	if missingDays < 0 {
		missingDays = 0
	}

	gap, err := e.selectCount(
		"WITH ordered_days AS (" +
			" SELECT DISTINCT " + colSql + "::DATE AS d" +
			" FROM " + sourceSql + " WHERE " + colSql + " IS NOT NULL" +
			"), gaps AS (" +
			" SELECT DATEDIFF('day', LAG(d) OVER (ORDER BY d), d) - 1 AS gap_days" +
			" FROM ordered_days" +
			") " +
			"SELECT COALESCE(MAX(gap_days), 0) FROM gaps")
	if err != nil {
		return err
	}
	if gap < 0 {
		gap = 0
	}

	stats["missingPeriodDays"] = missingDays
	stats["largestGapDays"] = gap
	return nil
}

// profileStringQuality add blank-or-whitespace value counts to stats
func (e *Engine) profileStringQuality(
	sourceSql, colSql string, nonNullCount int64, stats map[string]any,
) error {
	if nonNullCount <= 0 {
		return nil
	}

	blank, err := e.selectCount(
		"SELECT COUNT(*) FROM " + sourceSql +
			" WHERE " + colSql + " IS NOT NULL AND LENGTH(TRIM(CAST(" + colSql + " AS VARCHAR))) = 0")
	if err != nil {
		return err
	}
	stats["blankWhitespaceCount"] = blank
	stats["blankWhitespacePct"] = round2(float64(blank) / float64(nonNullCount) * 100)
	return nil
}

// profileStringPatterns classify trimmed non-empty values into up to 5 classes
// (uuid, email, numeric-only, code-like, free-text) and count distinct
// letter/digit masks: [A-Za-z] => A, [0-9] => 9
func (e *Engine) profileStringPatterns(sourceSql, colSql string) ([]PatternClass, int64, error) {

	valsSql := "WITH vals AS (" +
		" SELECT TRIM(CAST(" + colSql + " AS VARCHAR)) AS v" +
		" FROM " + sourceSql +
		" WHERE " + colSql + " IS NOT NULL AND LENGTH(TRIM(CAST(" + colSql + " AS VARCHAR))) > 0" +
		")"

	_, classRows, err := e.selectRows(
		valsSql +
			", classes AS (" +
			" SELECT CASE" +
			" WHEN REGEXP_MATCHES(LOWER(v), '^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$') THEN 'uuid'" +
			" WHEN REGEXP_MATCHES(v, '^[A-Za-z0-9._%+\\-]+@[A-Za-z0-9.\\-]+\\.[A-Za-z]{2,}$') THEN 'email'" +
			" WHEN REGEXP_MATCHES(v, '^[0-9]+$') THEN 'numeric-only'" +
			" WHEN REGEXP_MATCHES(v, '[0-9]') AND REGEXP_MATCHES(v, '[A-Za-z]') AND REGEXP_MATCHES(v, '^[A-Za-z0-9_\\-]+$') THEN 'code-like'" +
			" ELSE 'free-text'" +
			" END AS cls" +
			" FROM vals" +
			") " +
			"SELECT cls, COUNT(*) AS cnt FROM classes GROUP BY cls ORDER BY cnt DESC LIMIT 5")
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, r := range classRows {
		total += toInt64(r[1])
	}
	classes := make([]PatternClass, 0, len(classRows))
	for _, r := range classRows {
		share := 0.0
		if total > 0 {
			share = round2(float64(toInt64(r[1])) / float64(total) * 100)
		}
		classes = append(classes, PatternClass{
			Label:    stringify(r[0]),
			Count:    toInt64(r[1]),
			SharePct: share,
		})
	}

	distinctPatterns, err := e.selectCount(
		valsSql +
			" SELECT COUNT(DISTINCT REGEXP_REPLACE(REGEXP_REPLACE(v, '[A-Za-z]', 'A', 'g'), '[0-9]', '9', 'g'))" +
			" FROM vals")
	if err != nil {
		return nil, 0, err
	}
	return classes, distinctPatterns, nil
}

// profileBooleanSplit return true, false and null counts with shares of profiled rows
func (e *Engine) profileBooleanSplit(
	sourceSql, colSql string, totalProfiledRows int64,
) (map[string]any, int64, int64, error) {

	row, err := e.selectFirst(
		"SELECT " +
			"COUNT(*) FILTER (WHERE " + colSql + " = TRUE), " +
			"COUNT(*) FILTER (WHERE " + colSql + " = FALSE), " +
			"COUNT(*) FILTER (WHERE " + colSql + " IS NULL) " +
			"FROM " + sourceSql)
	if err != nil {
		return nil, 0, 0, err
	}
	trueCount := toInt64(row[0])
	falseCount := toInt64(row[1])
	nullCount := toInt64(row[2])

	denom := totalProfiledRows
	if denom < 1 {
		denom = 1
	}
	stats := map[string]any{
		"trueCount":     trueCount,
		"falseCount":    falseCount,
		"nullCount":     nullCount,
		"trueSharePct":  round2(float64(trueCount) / float64(denom) * 100),
		"falseSharePct": round2(float64(falseCount) / float64(denom) * 100),
		"nullSharePct":  round2(float64(nullCount) / float64(denom) * 100),
	}
	return stats, trueCount, falseCount, nil
}
