// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

/*
zds is Zen Data Explorer web-service: upload tabular files and explore them
with paged reads, filters, aggregation queries, column profiles and csv export.

Arguments can be specified on command line or through .ini file:

	zds -ini my.ini
	zds -ZenData.OptionsFile my.ini

Command line arguments take precedence over ini-file.

	-l localhost:4040
	-zds.Listen localhost:4040

address to listen, default: localhost:4040.

	-zds.RootDir

server root directory, default: current directory.
If UI is used then html subdirectory must exist in root directory.

	-zds.DataDir data

directory to store uploaded files, default: data, relative to root directory.

	-zds.ApiOnly false

if true then API only web-service, it does not serve UI html.

	-zds.MaxImports 64

cap of pending discover-import sessions.

	-zds.ImportTtl 60

expiration of pending discover-import sessions, minutes.

	-zds.LogRequest false

if true then log HTTP requests.

	-zds.CodePage

code page to convert source files into utf-8, e.g.: windows-1252.

Also a standard set of log options, i.e.:

	-v (short of -ZenData.LogToConsole)
	-ZenData.LogToFile true
	-ZenData.LogSql true
*/
package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/husobee/vestigo"

	"github.com/zendx/go/zdx/config"
	"github.com/zendx/go/zdx/engine"
	"github.com/zendx/go/zdx/helper"
	"github.com/zendx/go/zdx/zdxLog"
)

// config keys to get values from ini-file or command line arguments.
const (
	rootDirArgKey    = "zds.RootDir"    // root directory, expected subdir: html
	dataDirArgKey    = "zds.DataDir"    // uploaded files directory, if relative then must be relative to root directory
	listenArgKey     = "zds.Listen"     // address to listen, default: localhost:4040
	listenShortKey   = "l"              // address to listen (short form)
	logRequestArgKey = "zds.LogRequest" // if true then log http request
	apiOnlyArgKey    = "zds.ApiOnly"    // if true then API only web-service, no UI
	maxImportsArgKey = "zds.MaxImports" // cap of pending import sessions
	importTtlArgKey  = "zds.ImportTtl"  // expiration of pending import sessions, minutes
	encodingArgKey   = "zds.CodePage"   // code page for converting source files, e.g. windows-1252
)

// front-end UI subdirectory with html and javascript
const htmlSubDir = "html"

// if true then log http requests
var isLogRequest bool

// service configuration
var theCfg = struct {
	dataDir  string // uploaded files directory
	codePage string // if not empty then convert uploaded csv files into utf-8
}{
	dataDir: "data",
}

// data-exploration engine, single instance shared by all handlers
var theEngine *engine.Engine

// main entry point: wrapper to handle errors
func main() {
	defer exitOnPanic() // fatal error handler: log and exit

	err := mainBody(os.Args)
	if err != nil {
		zdxLog.Log(err.Error())
		os.Exit(1)
	}
	zdxLog.Log("Done.") // completed OK
}

// actual main body
func mainBody(args []string) error {

	// set command line argument keys and ini-file keys
	_ = flag.String(rootDirArgKey, "", "root directory, default: current directory")
	_ = flag.String(dataDirArgKey, "data", "uploaded files directory, if relative then must be relative to root directory")
	_ = flag.String(listenArgKey, "localhost:4040", "address to listen")
	_ = flag.String(listenShortKey, "localhost:4040", "address to listen (short form of "+listenArgKey+")")
	_ = flag.Bool(logRequestArgKey, false, "if true then log HTTP requests")
	_ = flag.Bool(apiOnlyArgKey, false, "if true then API only web-service, no UI")
	_ = flag.Int(maxImportsArgKey, 64, "cap of pending import sessions")
	_ = flag.Int(importTtlArgKey, 60, "expiration of pending import sessions, minutes")
	_ = flag.String(encodingArgKey, "", "code page to convert source file into utf-8, e.g.: windows-1252")

	// pairs of full and short argument names to map short name to full name
	var optFs = []config.FullShort{
		{Full: listenArgKey, Short: listenShortKey},
	}

	// parse command line arguments and ini-file
	runOpts, logOpts, err := config.New(encodingArgKey, optFs)
	if err != nil {
		return errors.New("Invalid arguments: " + err.Error())
	}
	isLogRequest = runOpts.Bool(logRequestArgKey)
	isApiOnly := runOpts.Bool(apiOnlyArgKey)
	rootDir := runOpts.String(rootDirArgKey) // server root directory

	// if UI required then server root directory must have html subdir
	if !isApiOnly {
		htmlDir := filepath.Join(rootDir, htmlSubDir)
		if ok, err := helper.IsDirExist(htmlDir); err != nil {
			return err
		} else if !ok {
			return errors.New("Error: directory not exist: " + htmlDir)
		}
	}

	// change to root directory
	if rootDir != "" && rootDir != "." {
		if err := os.Chdir(rootDir); err != nil {
			return errors.New("Error: unable to change directory: " + err.Error())
		}
	}
	zdxLog.New(logOpts) // adjust log options, log path can be relative to root directory

	if rootDir != "" && rootDir != "." {
		zdxLog.Log("Changing directory to: ", rootDir)
	}

	// uploaded files directory must exist
	theCfg.dataDir = runOpts.String(dataDirArgKey)
	if theCfg.dataDir == "" {
		return errors.New("Error: data directory argument cannot be empty")
	}
	if err := os.MkdirAll(theCfg.dataDir, 0755); err != nil {
		return errors.New("Error: unable to create data directory: " + err.Error())
	}
	zdxLog.Log("Data directory: ", theCfg.dataDir)

	theCfg.codePage = runOpts.String(encodingArgKey) // convert uploaded csv files from that code page

	// open data-exploration engine
	theEngine, err = engine.Open(
		runOpts.Int(maxImportsArgKey, 64),
		time.Duration(runOpts.Int(importTtlArgKey, 60))*time.Minute,
	)
	if err != nil {
		return errors.New("Error at engine open: " + err.Error())
	}
	defer theEngine.Close()

	// setup router and start server
	router := vestigo.NewRouter()

	router.SetGlobalCors(&vestigo.CorsAccessControl{
		AllowOrigin:  []string{"*"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
	})

	apiGetRoutes(router)  // get /api web-service routes
	apiPostRoutes(router) // post /api web-service routes

	// set web root handler: UI web pages or "not found" if this is web-service mode
	if !isApiOnly {
		router.Get("/*", homeHandler, logRequest) // serve UI web pages
	} else {
		router.Get("/*", http.NotFound) // only /api, any other pages not found
	}

	addr := runOpts.String(listenArgKey)
	zdxLog.Log("Starting at " + addr)
	if !isApiOnly {
		zdxLog.Log("To start open in your browser: " + addr)
	}
	zdxLog.Log("To finish press Ctrl+C")

	err = http.ListenAndServe(addr, router)
	return err
}

// exitOnPanic log error message and exit with return = 2
func exitOnPanic() {
	r := recover()
	if r == nil {
		return // not in panic
	}
	switch e := r.(type) {
	case error:
		zdxLog.Log(e.Error())
	case string:
		zdxLog.Log(e)
	default:
		zdxLog.Log("FAILED")
	}
	os.Exit(2) // final exit
}

// add http GET routes to web-service /api
func apiGetRoutes(router *vestigo.Router) {

	//
	// GET dataset list and schema
	//

	// GET /api/datasets
	// GET /api/datasets/
	router.Get("/api/datasets", datasetListHandler, logRequest)
	router.Get("/api/datasets/", datasetListHandler, logRequest)

	// GET /api/datasets/:dataset/schema
	router.Get("/api/datasets/:dataset/schema", schemaHandler, logRequest)

	//
	// GET dataset rows and column profile
	//

	// GET /api/datasets/:dataset/page?page=0&page_size=200&sort_column=name&sort_direction=asc&filters=[...]&cursor=...
	router.Get("/api/datasets/:dataset/page", pageHandler, logRequest)

	// GET /api/datasets/:dataset/profile/:column
	router.Get("/api/datasets/:dataset/profile/:column", profileHandler, logRequest)

	// GET /api/datasets/:dataset/export?sort_column=name&sort_direction=asc&filters=[...]
	router.Get("/api/datasets/:dataset/export", exportHandler, logRequest)
}

// add http POST routes to web-service /api
func apiPostRoutes(router *vestigo.Router) {

	//
	// POST dataset upload and import
	//

	// POST /api/datasets/upload
	router.Post("/api/datasets/upload", uploadHandler, logRequest)

	// POST /api/datasets/discover
	router.Post("/api/datasets/discover", discoverHandler, logRequest)

	// POST /api/datasets/import
	router.Post("/api/datasets/import", importHandler, logRequest)

	//
	// POST dataset queries
	//

	// POST /api/datasets/:dataset/query
	router.Post("/api/datasets/:dataset/query", queryHandler, logRequest)

	// POST /api/datasets/:dataset/table-query
	router.Post("/api/datasets/:dataset/table-query", tableQueryHandler, logRequest)

	// POST /api/datasets/:dataset/cell
	router.Post("/api/datasets/:dataset/cell", cellHandler, logRequest)
}

// homeHandler is static pages handler for front-end UI served from html subdirectory
func homeHandler(w http.ResponseWriter, r *http.Request) {
	setContentType(http.FileServer(http.Dir(htmlSubDir))).ServeHTTP(w, r)
}
