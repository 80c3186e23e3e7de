// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package main

import (
	"net/http"
	"strings"

	"github.com/zendx/go/zdx/engine"
)

// queryHandler execute ad-hoc sql against the dataset exposed as view data.
// POST /api/datasets/:dataset/query
// Request body: { "sql": "SELECT * FROM data LIMIT 10" }
func queryHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	var req struct {
		Sql string `json:"sql"`
	}
	if !jsonRequestDecode(w, r, true, &req) {
		return
	}
	if strings.TrimSpace(req.Sql) == "" {
		http.Error(w, "SQL query is empty", http.StatusBadRequest)
		return
	}

	result, err := theEngine.RunQuery(datasetId, req.Sql)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}

// tableQueryHandler compile and execute structured table query:
// filters, group by, aggregations, having, sort and limit.
// POST /api/datasets/:dataset/table-query
func tableQueryHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	var spec engine.TableQuery
	if !jsonRequestDecode(w, r, false, &spec) {
		return
	}

	result, err := theEngine.RunTableQuery(datasetId, spec)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}

// cellHandler evaluate read-only sql expression against the dataset exposed as view df.
// POST /api/datasets/:dataset/cell
// Request body: { "code": "SELECT COUNT(*) FROM df" }
func cellHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	var req struct {
		Code string `json:"code"`
	}
	if !jsonRequestDecode(w, r, true, &req) {
		return
	}

	result, err := theEngine.RunCell(datasetId, req.Code)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}

// importHandler create datasets from entities selected in a discover session.
// POST /api/datasets/import
// Request body: { "importId": "...", "selectedEntities": [...], "importMode": "selected", "datasetNameMode": "filename_entity" }
func importHandler(w http.ResponseWriter, r *http.Request) {

	var req engine.ImportRequest
	if !jsonRequestDecode(w, r, true, &req) {
		return
	}
	if req.ImportId == "" {
		http.Error(w, "Import id is required", http.StatusBadRequest)
		return
	}

	result, err := theEngine.Import(req)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}
