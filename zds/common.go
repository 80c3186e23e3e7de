// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/husobee/vestigo"

	"github.com/zendx/go/zdx/engine"
	"github.com/zendx/go/zdx/zdxLog"
)

// logRequest is a middelware to log http request
func logRequest(next http.HandlerFunc) http.HandlerFunc {
	if isLogRequest {
		return func(w http.ResponseWriter, r *http.Request) {
			zdxLog.Log(r.Method, ": ", r.Host, r.URL)
			next(w, r)
		}
	} // else
	return next
}

// get value of url parameter ?name or router parameter /:name
func getRequestParam(r *http.Request, name string) string {

	v := r.URL.Query().Get(name)
	if v == "" {
		v = vestigo.Param(r, name)
	}
	return v
}

// get integer value of url parameter ?name or router parameter /:name
func getIntRequestParam(r *http.Request, name string, defaultVal int) (int, bool) {

	v := r.URL.Query().Get(name)
	if v == "" {
		v = vestigo.Param(r, name)
	}
	if v == "" {
		return defaultVal, true // no such parameter: return default value
	}
	if nVal, err := strconv.Atoi(v); err == nil {
		return nVal, true // return result: value is integer
	}
	return defaultVal, false // value is not integer
}

// parseFiltersParam parse optional ?filters url parameter: json array of filter objects.
// On error it writes 400 bad request response and return false.
func parseFiltersParam(w http.ResponseWriter, r *http.Request) ([]engine.Filter, bool) {

	src := getRequestParam(r, "filters")
	if src == "" {
		return nil, true
	}

	var filters []engine.Filter
	if err := json.Unmarshal([]byte(src), &filters); err != nil {
		http.Error(w, "Invalid filters JSON", http.StatusBadRequest)
		return nil, false
	}
	return filters, true
}

// engineErrorResponse translate engine error kind to http status:
// not found => 404, invalid request or unsupported input => 400, else 500
func engineErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case engine.IsInvalid(err) || engine.IsUnsupported(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// set csv response headers: Content-Type: text/csv, Content-Disposition and Cache-Control
func csvSetHeaders(w http.ResponseWriter, name string) {

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+`"`+url.QueryEscape(name)+".csv"+`"`)
	w.Header().Set("Cache-Control", "no-cache")
}

// set Content-Type header by extension and invoke next handler.
// This function exist to suppress Windows registry content type overrides
func setContentType(next http.Handler) http.Handler {

	var ctDef = map[string]string{
		".css": "text/css; charset=utf-8",
		".js":  "text/javascript",
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if ext := filepath.Ext(r.URL.Path); ext != "" {
			if ct := ctDef[strings.ToLower(ext)]; ct != "" {
				w.Header().Set("Content-Type", ct)
			}
		}
		next.ServeHTTP(w, r) // invoke next handler
	})
}
