// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import (
	"container/list"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"

	"github.com/zendx/go/zdx/zdxLog"
)

// import session defaults: sessions expire after ttl, oldest evicted over the cap
const (
	importSessionTtl        = time.Hour
	defaultImportSessionCap = 64
)

// source file formats
const (
	formatCsv     = "csv"
	formatParquet = "parquet"
	formatXlsx    = "xlsx"
	formatSqlite  = "sqlite"
)

// DiscoverResult is the outcome of the discovery phase:
// entities available in the file and the import session id to select them
type DiscoverResult struct {
	ImportId          string   `json:"importId"`
	Name              string   `json:"name"`
	Format            string   `json:"format"`
	Entities          []string `json:"entities"`
	RequiresSelection bool     `json:"requiresSelection"`
}

// ImportRequest select discovered entities to import
type ImportRequest struct {
	ImportId         string   `json:"importId"`
	SelectedEntities []string `json:"selectedEntities"`
	ImportMode       string   `json:"importMode"`      // selected or all
	DatasetNameMode  string   `json:"datasetNameMode"` // filename_entity or entity_only
}

// ImportedDataset is one dataset created by import
type ImportedDataset struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Entity   string `json:"entity"`
	RowCount int64  `json:"rowCount"`
}

// ImportResult is all datasets created by one import request
type ImportResult struct {
	ImportId string            `json:"importId"`
	Datasets []ImportedDataset `json:"datasets"`
}

// importSession retains discovery outcome until entities are selected
type importSession struct {
	id       string
	path     string    // uploaded file path
	name     string    // original file name, display metadata only
	format   string    // csv, parquet, xlsx, sqlite
	entities []string  // available entity names
	created  time.Time // for ttl expiration
}

// importSessions is bounded lru of pending sessions with ttl.
// It is accessed under the engine lock and does its own locking never.
type importSessions struct {
	maxSize int
	ttl     time.Duration
	lru     *list.List               // front is most recently used
	byId    map[string]*list.Element // session id => lru element
}

func newImportSessions(maxSize int, ttl time.Duration) *importSessions {
	if maxSize < 1 {
		maxSize = defaultImportSessionCap
	}
	if ttl <= 0 {
		ttl = importSessionTtl
	}
	return &importSessions{
		maxSize: maxSize,
		ttl:     ttl,
		lru:     list.New(),
		byId:    make(map[string]*list.Element),
	}
}

// prune drop expired sessions and evict oldest over the cap
func (s *importSessions) prune() {
	now := time.Now()

	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		ses := el.Value.(*importSession)
		if now.Sub(ses.created) > s.ttl {
			s.lru.Remove(el)
			delete(s.byId, ses.id)
		}
		el = prev
	}
	for s.lru.Len() > s.maxSize {
		el := s.lru.Back()
		ses := el.Value.(*importSession)
		s.lru.Remove(el)
		delete(s.byId, ses.id)
	}
}

// add new session, evicting expired and over-cap sessions
func (s *importSessions) add(ses *importSession) {
	s.byId[ses.id] = s.lru.PushFront(ses)
	s.prune()
}

// get session by id, refreshing its lru position
func (s *importSessions) get(id string) (*importSession, bool) {
	s.prune()
	el, ok := s.byId[id]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(el)
	return el.Value.(*importSession), true
}

// remove session by id, e.g. consumed by successful import
func (s *importSessions) remove(id string) {
	if el, ok := s.byId[id]; ok {
		s.lru.Remove(el)
		delete(s.byId, id)
	}
}

// fileFormat return source format by file extension or "" if not supported
func fileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCsv
	case ".parquet":
		return formatParquet
	case ".xlsx":
		return formatXlsx
	case ".sqlite", ".db":
		return formatSqlite
	}
	return ""
}

// LoadFile load single-entity file (csv or parquet) into a new dataset
// and return dataset id. Multi-entity formats must go through
// Discover and Import instead.
func (e *Engine) LoadFile(path string, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch fileFormat(path) {
	case formatCsv:
		return e.createDataset(name, formatCsv,
			"read_csv_auto(?, header=true, all_varchar=false)", path)
	case formatParquet:
		return e.createDataset(name, formatParquet, "read_parquet(?)", path)
	case formatXlsx, formatSqlite:
		return "", NewUnsupported("Multi-entity file format requires discover and import: " + filepath.Base(path))
	}
	return "", NewUnsupported("Unsupported file format: " + filepath.Ext(path))
}

// createDataset create ds_<id> table from the reader expression
// and register the dataset, it must be called under lock
func (e *Engine) createDataset(name string, format string, readerSql string, args ...any) (string, error) {

	datasetId := newDatasetId()
	table := "ds_" + datasetId

	q := "CREATE TABLE " + quoteIdent(table) + " AS SELECT * FROM " + readerSql
	zdxLog.LogSql(q)
	if _, err := e.db.Exec(q, args...); err != nil {
		return "", NewInvalid("Failed to load file: " + err.Error())
	}
	rowCount, err := e.selectCount("SELECT COUNT(*) FROM " + quoteIdent(table))
	if err != nil {
		e.db.Exec("DROP TABLE IF EXISTS " + quoteIdent(table))
		return "", err
	}

	e.datasets[datasetId] = datasetInfo{table: table, name: name, format: format, rowCount: rowCount}
	return datasetId, nil
}

// dropDataset drop dataset table and unregister it, it must be called under lock
func (e *Engine) dropDataset(datasetId string) {
	ds, ok := e.datasets[datasetId]
	if !ok {
		return
	}
	q := "DROP TABLE IF EXISTS " + quoteIdent(ds.table)
	zdxLog.LogSql(q)
	e.db.Exec(q)
	delete(e.datasets, datasetId)
}

// Discover list loadable entities of the file and open an import session:
// csv and parquet yield one synthetic entity "data", sqlite lists tables,
// xlsx lists sheet names.
func (e *Engine) Discover(path string, name string) (*DiscoverResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	format := fileFormat(path)

	var entities []string
	var err error

	switch format {
	case formatCsv, formatParquet:
		entities = []string{"data"}
	case formatXlsx:
		entities, err = listExcelSheets(path)
	case formatSqlite:
		entities, err = listSqliteTables(path)
	default:
		return nil, NewUnsupported("Unsupported file format: " + filepath.Ext(path))
	}
	if err != nil {
		return nil, NewInvalid("Failed to read file: " + err.Error())
	}
	if len(entities) < 1 {
		return nil, NewInvalid("No loadable entities found in file: " + name)
	}

	ses := &importSession{
		id:       strings.ReplaceAll(uuid.New().String(), "-", ""),
		path:     path,
		name:     name,
		format:   format,
		entities: entities,
		created:  time.Now(),
	}
	e.imports.add(ses)

	return &DiscoverResult{
		ImportId:          ses.id,
		Name:              name,
		Format:            format,
		Entities:          entities,
		RequiresSelection: format == formatXlsx || format == formatSqlite,
	}, nil
}

// Import create one dataset per selected entity of the import session.
// Unknown selected entities fail the whole import atomically, nothing is
// registered. Session is consumed on success.
func (e *Engine) Import(req ImportRequest) (*ImportResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ses, ok := e.imports.get(req.ImportId)
	if !ok {
		return nil, NewNotFound("Import session not found: " + req.ImportId)
	}

	known := map[string]bool{}
	for _, ent := range ses.entities {
		known[ent] = true
	}

	var selected []string
	switch req.ImportMode {
	case "all":
		selected = ses.entities
	case "", "selected":
		selected = req.SelectedEntities
		for _, ent := range selected {
			if !known[ent] {
				return nil, NewInvalid("Unknown entity selected: " + ent)
			}
		}
	default:
		return nil, NewInvalid("Invalid import mode: " + req.ImportMode)
	}
	if len(selected) < 1 {
		return nil, NewInvalid("No entities selected for import")
	}

	baseName := strings.TrimSuffix(ses.name, filepath.Ext(ses.name))

	created := []ImportedDataset{}
	fail := func(err error) (*ImportResult, error) {
		for _, d := range created {
			e.dropDataset(d.Id)
		}
		return nil, err
	}

	var xl *excelize.File
	if ses.format == formatXlsx {
		var err error
		if xl, err = excelize.OpenFile(ses.path); err != nil {
			return nil, NewInvalid("Failed to read file: " + err.Error())
		}
		defer xl.Close()
	}

	for _, entity := range selected {

		var datasetName string
		if req.DatasetNameMode == "entity_only" {
			datasetName = entity
		} else {
			datasetName = baseName + " - " + entity
		}

		var datasetId string
		var err error

		switch ses.format {
		case formatCsv:
			datasetId, err = e.createDataset(datasetName, formatCsv,
				"read_csv_auto(?, header=true, all_varchar=false)", ses.path)
		case formatParquet:
			datasetId, err = e.createDataset(datasetName, formatParquet, "read_parquet(?)", ses.path)
		case formatSqlite:
			datasetId, err = e.createDataset(datasetName, formatSqlite, "sqlite_scan(?, ?)", ses.path, entity)
		case formatXlsx:
			datasetId, err = e.createDatasetFromSheet(xl, entity, datasetName)
		}
		if err != nil {
			return fail(err)
		}
		created = append(created, ImportedDataset{
			Id: datasetId, Name: datasetName, Entity: entity, RowCount: e.datasets[datasetId].rowCount,
		})
	}

	e.imports.remove(req.ImportId)
	return &ImportResult{ImportId: req.ImportId, Datasets: created}, nil
}

// createDatasetFromSheet extract one Excel sheet into a temporary csv file
// and load it with the csv reader, it must be called under lock
func (e *Engine) createDatasetFromSheet(xl *excelize.File, sheet string, name string) (string, error) {

	rows, err := xl.GetRows(sheet)
	if err != nil {
		return "", NewInvalid("Failed to read sheet '" + sheet + "': " + err.Error())
	}
	if len(rows) < 1 {
		return "", NewInvalid("Sheet is empty: " + sheet)
	}

	tmp, err := os.CreateTemp("", "zdx_sheet_*.csv")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := csv.NewWriter(tmp)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return e.createDataset(name, formatXlsx,
		"read_csv_auto(?, header=true, all_varchar=false)", tmpPath)
}

// listExcelSheets return sheet names of the workbook
func listExcelSheets(path string) ([]string, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer xl.Close()
	return xl.GetSheetList(), nil
}

// listSqliteTables return user table names of the SQLite database file
func listSqliteTables(path string) ([]string, error) {

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
