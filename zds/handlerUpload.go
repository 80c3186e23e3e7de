// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package main

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/zendx/go/zdx/engine"
	"github.com/zendx/go/zdx/helper"
	"github.com/zendx/go/zdx/zdxLog"
)

// file extensions accepted by upload and discover
var uploadFileExt = []string{".csv", ".parquet", ".xlsx", ".sqlite", ".db"}

// saveUploadFile read single file part of multipart form and save it into data directory.
// Saved file name is unique: uuid prefix followed by original file name.
// On error it writes error response and return false.
func saveUploadFile(w http.ResponseWriter, r *http.Request) (string, string, bool) {

	// parse multipart form: only single part expected with source file attached
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "Error at multipart form open", http.StatusBadRequest)
		return "", "", false
	}

	part, err := mr.NextPart()
	if err == io.EOF {
		http.Error(w, "Invalid (empty) next part of multipart form", http.StatusBadRequest)
		return "", "", false
	}
	if err != nil {
		http.Error(w, "Failed to get next part of multipart form: "+err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	defer part.Close()

	// file name must be a base name without any directory parts
	fName := part.FileName()

	if fName == "" || fName == "." || fName == ".." ||
		path.Base(fName) != fName || fName != helper.CleanPath(fName) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return "", "", false
	}

	ext := strings.ToLower(path.Ext(fName))
	isOk := false
	for _, e := range uploadFileExt {
		if ext == e {
			isOk = true
			break
		}
	}
	if !isOk {
		http.Error(w, "Unsupported file format: "+ext, http.StatusBadRequest)
		return "", "", false
	}

	// save source file into data directory under unique name
	zdxLog.Log("Upload of: ", fName)

	savePath := filepath.Join(theCfg.dataDir, strings.ReplaceAll(uuid.New().String(), "-", "")+"_"+fName)

	if err = helper.SaveTo(savePath, part); err != nil {
		zdxLog.Log("Error: unable to write into ", savePath, ": ", err.Error())
		http.Error(w, "Error: unable to write into "+fName, http.StatusInternalServerError)
		return "", "", false
	}

	if err = convertCsvEncoding(savePath); err != nil {
		zdxLog.Log("Error: unable to convert ", savePath, ": ", err.Error())
		http.Error(w, "Error: unable to convert file: "+fName, http.StatusInternalServerError)
		return "", "", false
	}
	return savePath, fName, true
}

// convertCsvEncoding rewrite saved csv file as utf-8
// if source code page option specified, e.g.: windows-1252.
// Other formats are binary and not converted.
func convertCsvEncoding(savePath string) error {

	if theCfg.codePage == "" || strings.ToLower(filepath.Ext(savePath)) != ".csv" {
		return nil
	}
	src, err := helper.FileToUtf8(savePath, theCfg.codePage)
	if err != nil {
		return err
	}
	return os.WriteFile(savePath, []byte(src), 0644)
}

// uploadHandler load single-entity file (csv or parquet) and create new dataset.
// POST /api/datasets/upload
// Multipart form with single file part attached.
func uploadHandler(w http.ResponseWriter, r *http.Request) {

	savePath, fName, ok := saveUploadFile(w, r)
	if !ok {
		return
	}

	// dataset display name is the original file name, extension included
	dsId, err := theEngine.LoadFile(savePath, fName)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}

	schema, err := theEngine.GetSchema(dsId)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}

	jsonResponse(w, r,
		struct {
			Id       string                `json:"id"`
			Name     string                `json:"name"`
			RowCount int64                 `json:"rowCount"`
			Columns  []engine.SchemaColumn `json:"columns"`
		}{
			Id:       dsId,
			Name:     fName,
			RowCount: schema.RowCount,
			Columns:  schema.Columns,
		})
}

// discoverHandler inspect multi-entity file (xlsx or sqlite) and start import session.
// POST /api/datasets/discover
// Multipart form with single file part attached.
func discoverHandler(w http.ResponseWriter, r *http.Request) {

	savePath, fName, ok := saveUploadFile(w, r)
	if !ok {
		return
	}

	result, err := theEngine.Discover(savePath, fName)
	if err != nil {
		engineErrorResponse(w, err)
		return
	}
	jsonResponse(w, r, result)
}
