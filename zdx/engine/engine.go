// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

/*
Package engine is the query engine over an embedded DuckDB database.

Every uploaded file is loaded into its own immutable table ds_<id> where <id>
is a random 12 hex characters dataset id. All subsequent operations (schema,
paged reads, profile, structured table query, csv export, ad-hoc sql) resolve
the table through the dataset registry and compose parameterized sql:
identifiers are validated against the table columns and double-quoted,
all scalar values are passed as bind parameters.

DuckDB connection is not safe for concurrent use,
all engine calls are serialized by the engine mutex.
*/
package engine

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	duckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/zendx/go/zdx/zdxLog"
)

// semantic column types used by filter, sort and profile compilers
const (
	typeString  = "string"
	typeInteger = "integer"
	typeFloat   = "float"
	typeDate    = "date"
	typeBoolean = "boolean"
)

// map DuckDB storage type to semantic type, default is string
var duckTypeMap = map[string]string{
	"VARCHAR":                  typeString,
	"BOOLEAN":                  typeBoolean,
	"BIGINT":                   typeInteger,
	"INTEGER":                  typeInteger,
	"SMALLINT":                 typeInteger,
	"TINYINT":                  typeInteger,
	"HUGEINT":                  typeInteger,
	"UBIGINT":                  typeInteger,
	"UINTEGER":                 typeInteger,
	"USMALLINT":                typeInteger,
	"UTINYINT":                 typeInteger,
	"DOUBLE":                   typeFloat,
	"FLOAT":                    typeFloat,
	"DECIMAL":                  typeFloat,
	"DATE":                     typeDate,
	"TIMESTAMP":                typeDate,
	"TIMESTAMP WITH TIME ZONE": typeDate,
	"TIME":                     typeString,
	"INTERVAL":                 typeString,
	"BLOB":                     typeString,
}

// mapDuckType return semantic type by DuckDB storage type, e.g.: DECIMAL(18,4) => float
func mapDuckType(duckType string) string {
	base := strings.TrimSpace(strings.SplitN(strings.ToUpper(duckType), "(", 2)[0])
	if t, ok := duckTypeMap[base]; ok {
		return t
	}
	return typeString
}

// datasetInfo is dataset registry entry
type datasetInfo struct {
	table    string // physical table name: ds_<id>
	name     string // display name, e.g. original file name
	format   string // source file format: csv, parquet, xlsx, sqlite
	rowCount int64  // row count at load time, tables are immutable
}

// columnMeta is column descriptor from DuckDB catalog
type columnMeta struct {
	Name     string // column name, original casing preserved
	DuckType string // storage type, e.g. DECIMAL(18,4)
	AppType  string // semantic type: string, integer, float, date, boolean
}

// Engine is resource handle: DuckDB connection, dataset registry and import sessions.
type Engine struct {
	mu       sync.Mutex             // lock to serialize all engine calls
	db       *sql.DB                // single DuckDB in-memory connection
	datasets map[string]datasetInfo // dataset id => registry entry
	imports  *importSessions        // pending discover-import sessions
}

// Open create new engine with in-memory DuckDB database.
// maxImports is the cap of pending import sessions and importTtl is
// their expiration, 0 means default for both.
func Open(maxImports int, importTtl time.Duration) (*Engine, error) {

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // single connection, serialized by engine mutex

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Engine{
		db:       db,
		datasets: make(map[string]datasetInfo),
		imports:  newImportSessions(maxImports, importTtl),
	}, nil
}

// Close engine database connection
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Close()
}

// DatasetName return dataset display name by id or empty "" if dataset not found
func (e *Engine) DatasetName(datasetId string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ds, ok := e.datasets[datasetId]; ok {
		return ds.name
	}
	return ""
}

// newDatasetId return new random dataset id: 12 hex characters
func newDatasetId() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// quoteIdent wrap identifier in double quotes with embedded quotes doubled.
// It is the only identifier escaping, all identifiers pass through it.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// getTable return table name by dataset id, it must be called under lock
func (e *Engine) getTable(datasetId string) (string, error) {
	ds, ok := e.datasets[datasetId]
	if !ok {
		return "", NewNotFound("Dataset not found: " + datasetId)
	}
	return ds.table, nil
}

// getColumnMeta return catalog columns of the table in catalog order
// and (name => descriptor) map, it must be called under lock
func (e *Engine) getColumnMeta(table string) ([]columnMeta, map[string]columnMeta, error) {

	q := "PRAGMA table_info(" + quoteIdent(table) + ")"
	zdxLog.LogSql(q)

	rows, err := e.db.Query(q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols := []columnMeta{}
	byName := map[string]columnMeta{}

	for rows.Next() {
		var cid int
		var name, duckType string
		var notNull bool
		var dflt sql.NullString
		var pk bool
		if err := rows.Scan(&cid, &name, &duckType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, err
		}
		cm := columnMeta{Name: name, DuckType: duckType, AppType: mapDuckType(duckType)}
		cols = append(cols, cm)
		byName[name] = cm
	}
	return cols, byName, rows.Err()
}

// selectRows run select query and return column names with rows of driver values,
// it must be called under lock
func (e *Engine) selectRows(query string, args ...any) ([]string, [][]any, error) {

	zdxLog.LogSql(query)

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var all [][]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		all = append(all, vals)
	}
	return names, all, rows.Err()
}

// selectFirst run select query and return first row of driver values or nil if no rows,
// it must be called under lock
func (e *Engine) selectFirst(query string, args ...any) ([]any, error) {

	_, rows, err := e.selectRows(query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, nil
	}
	return rows[0], nil
}

// selectCount run select count query and return the count, it must be called under lock
func (e *Engine) selectCount(query string, args ...any) (int64, error) {

	row, err := e.selectFirst(query, args...)
	if err != nil {
		return 0, err
	}
	if len(row) < 1 {
		return 0, nil
	}
	return toInt64(row[0]), nil
}

// normalizeValue project driver value for json output:
// string, integer, float, boolean and null pass through,
// date and timestamp formatted as ISO string, anything else stringified
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool:
		return val
	case int64, int32, int16, int8, int, uint64, uint32, uint16, uint8:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil // json has no NaN or Inf
		}
		return val
	case float32:
		return normalizeValue(float64(val))
	case []byte:
		return string(val)
	case time.Time:
		return formatTime(val)
	case duckdb.Decimal:
		return normalizeValue(val.Float64())
	default:
		return fmt.Sprint(val)
	}
}

// stringify render driver value as display string, empty for null
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return formatTime(val)
	case duckdb.Decimal:
		return fmt.Sprint(val.Float64())
	default:
		return fmt.Sprint(val)
	}
}

// formatTime return date as YYYY-MM-DD or timestamp as YYYY-MM-DD hh:mm:ss
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// toInt64 convert driver value to int64, zero if not a number
func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint64:
		return int64(val)
	case uint32:
		return int64(val)
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	}
	return 0
}

// toFloat64 convert driver value to float64, return false if not a number
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case duckdb.Decimal:
		return val.Float64(), true
	}
	return 0, false
}

// safeNumber return json-safe number: null for NaN or Inf,
// integers reported without fraction when exact
func safeNumber(v any) any {
	f, ok := toFloat64(v)
	if v == nil || !ok {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// round2 round to 2 decimals
func round2(f float64) float64 { return math.Round(f*100) / 100 }

// round4 round to 4 decimals
func round4(f float64) float64 { return math.Round(f*10000) / 10000 }

// QueryResult is ad-hoc sql result
type QueryResult struct {
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	RowCount      int              `json:"rowCount"`
	ExecutionTime float64          `json:"executionTime"` // seconds
}

// RunQuery execute ad-hoc sql against the dataset.
// Temporary view named data is bound to the dataset table, user sql executed
// and the view dropped, all under the engine lock so no other request
// can observe data view bound to a different table.
func (e *Engine) RunQuery(datasetId string, sqlText string) (*QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.getTable(datasetId)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	q := "CREATE OR REPLACE VIEW data AS SELECT * FROM " + quoteIdent(table)
	zdxLog.LogSql(q)
	if _, err := e.db.Exec(q); err != nil {
		return nil, err
	}

	names, raw, qErr := e.selectRows(sqlText)

	zdxLog.LogSql("DROP VIEW IF EXISTS data")
	if _, err := e.db.Exec("DROP VIEW IF EXISTS data"); err != nil && qErr == nil {
		return nil, err
	}
	if qErr != nil {
		return nil, NewInvalid("Query failed: " + qErr.Error())
	}

	rows := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		m := make(map[string]any, len(names))
		for i, c := range names {
			m[c] = normalizeValue(r[i])
		}
		rows = append(rows, m)
	}

	return &QueryResult{
		Columns:       names,
		Rows:          rows,
		RowCount:      len(rows),
		ExecutionTime: round4(time.Since(start).Seconds()),
	}, nil
}
