// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package main

import (
	"net/http"
)

// datasetListHandler return all registered datasets.
// GET /api/datasets
func datasetListHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, r, theEngine.ListDatasets())
}

// schemaHandler return dataset columns with null and unique counts,
// row count and per-column distribution sparklines.
// GET /api/datasets/:dataset/schema
func schemaHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	schema, err := theEngine.GetSchema(datasetId)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, schema)
}

// pageHandler return a page of dataset rows with keyset pagination, sort and filters.
// GET /api/datasets/:dataset/page?page=0&page_size=200&sort_column=name&sort_direction=asc&filters=[...]&cursor=...
func pageHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	page, ok := getIntRequestParam(r, "page", 0)
	if !ok || page < 0 {
		http.Error(w, "Invalid page number", http.StatusBadRequest)
		return
	}
	pageSize, ok := getIntRequestParam(r, "page_size", 200)
	if !ok || pageSize < 1 || pageSize > 10000 {
		http.Error(w, "Invalid page size, must be between 1 and 10000", http.StatusBadRequest)
		return
	}

	filters, ok := parseFiltersParam(w, r)
	if !ok {
		return
	}

	result, err := theEngine.GetPage(
		datasetId,
		page,
		pageSize,
		getRequestParam(r, "sort_column"),
		getRequestParam(r, "sort_direction"),
		filters,
		getRequestParam(r, "cursor"),
	)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}

// profileHandler return per-column statistics report.
// GET /api/datasets/:dataset/profile/:column
func profileHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")
	column := getRequestParam(r, "column")

	profile, err := theEngine.ProfileColumn(datasetId, column)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, profile)
}

// exportHandler return filtered and sorted dataset rows as csv attachment.
// GET /api/datasets/:dataset/export?sort_column=name&sort_direction=asc&filters=[...]
func exportHandler(w http.ResponseWriter, r *http.Request) {

	datasetId := getRequestParam(r, "dataset")

	filters, ok := parseFiltersParam(w, r)
	if !ok {
		return
	}

	csvBytes, err := theEngine.ExportCsv(
		datasetId,
		getRequestParam(r, "sort_column"),
		getRequestParam(r, "sort_direction"),
		filters,
	)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}

	name := theEngine.DatasetName(datasetId)
	if name == "" {
		name = "export"
	}
	csvSetHeaders(w, name)
	w.Write(csvBytes)
}
