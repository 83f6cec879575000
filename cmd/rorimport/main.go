package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"rorimport/internal/importer"
	"rorimport/internal/metrics"
	"rorimport/internal/metrics/datadog"
	"rorimport/internal/metrics/prompush"
	"rorimport/internal/setup"
	"rorimport/internal/storage"

	// register all storage backends with the factory.
	_ "rorimport/internal/storage/all"
)

// main is the entry point for the import binary. It resolves the run
// parameters, optionally initializes a metrics backend, opens the storage
// repository, and executes the import.
func main() {
	var (
		dataFolder  string
		sourceFile  string
		dataVersion string
		dataDate    string
		testRun     bool

		createTables bool
		summary      bool
		batchSize    int
		maxRecords   int

		storageKind string
		dsn         string
		schema      string
		ddlPath     string

		metricsBackendFlg string
		pushGatewayURLFlg string
	)

	flag.StringVar(&dataFolder, "f", "", "data folder containing the source file (env data_folder_path)")
	flag.StringVar(&sourceFile, "s", "", "source file name (env src_file_name)")
	flag.StringVar(&dataVersion, "v", "", "data version, e.g. v1.58 (env data_version; normally parsed from the file name)")
	flag.StringVar(&dataDate, "d", "", "data date, YYYY-MM-DD (env data_date; normally parsed from the file name)")
	flag.BoolVar(&testRun, "t", false, "test run: stamp sentinel version v99 and date 2030-01-01")

	flag.BoolVar(&createTables, "create-tables", false, "run the DDL script before importing")
	flag.BoolVar(&summary, "summary", true, "log per-table row totals after the import")
	flag.IntVar(&batchSize, "batch-size", importer.DefaultBatchSize, "records per batch flush")
	flag.IntVar(&maxRecords, "max-records", 0, "process at most this many records (0 = all); development aid")

	flag.StringVar(&storageKind, "storage", "postgres", "storage backend (postgres, sqlite, mssql)")
	flag.StringVar(&dsn, "dsn", "", "storage DSN (overrides env db_conn_string)")
	flag.StringVar(&schema, "schema", "ror", "target schema for the import tables")
	flag.StringVar(&ddlPath, "ddl", "db_scripts/create_ror_tables.sql", "DDL script for -create-tables")

	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")

	flag.Parse()

	params, err := setup.Resolve(setup.Options{
		DataFolder:  dataFolder,
		SourceFile:  sourceFile,
		DataVersion: dataVersion,
		DataDate:    dataDate,
		TestRun:     testRun,
	})
	if err != nil {
		fatalf("setup: %v", err)
	}

	// Log to stderr and to a per-run file next to the data.
	logPath := setup.LogFilePath(params.DataFolder, params.SourceFile, time.Now())
	logFile, err := os.Create(logPath)
	if err != nil {
		fatalf("create log file: %v", err)
	}
	defer logFile.Close()
	logger := log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)

	logger.Printf("PROGRAM START")
	logger.Printf("data_folder: %s", params.DataFolder)
	logger.Printf("source_file_name: %s", params.SourceFile)
	logger.Printf("data_version: %s", params.DataVersion)
	logger.Printf("data_date: %s", params.DataDate)
	logger.Printf("storage: %s schema=%s", storageKind, schema)

	stopMetrics := setupMetrics(metricsBackendFlg, pushGatewayURLFlg, logger)
	defer stopMetrics()

	if dsn == "" {
		dsn = os.Getenv("db_conn_string")
	}
	if dsn == "" {
		fatalf("storage DSN not provided via -dsn or env db_conn_string")
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: storageKind, DSN: dsn, Schema: schema})
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer repo.Close()

	imp := &importer.Importer{
		Repo:       repo,
		Logger:     logger,
		BatchSize:  batchSize,
		MaxRecords: maxRecords,
	}

	if createTables {
		if err := imp.CreateTables(ctx, ddlPath); err != nil {
			logger.Fatalf("%v", err)
		}
	}

	start := time.Now()
	stats, err := imp.Run(ctx, params.SourcePath)
	if err != nil {
		logger.Fatalf("import failed: %v", err)
	}
	logger.Printf("imported %d of %d records in %s",
		stats.Processed, stats.Found, time.Since(start).Truncate(time.Millisecond))

	if summary {
		if err := imp.Summarise(ctx); err != nil {
			logger.Fatalf("%v", err)
		}
	}
}

// setupMetrics installs the selected metrics backend and returns its
// shutdown function. The default is the discard backend.
func setupMetrics(backendName, pushGatewayURL string, logger *log.Logger) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b := prompush.NewBackend(prompush.Options{URL: gwURL, JobName: "rorimport"})
		metrics.SetBackend(b)
		logger.Printf("metrics: backend=pushgateway url=%s", gwURL)
		return func() {
			if err := metrics.Flush(); err != nil {
				logger.Printf("metrics: flush error: %v", err)
			}
		}

	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "rorimport",
			Tags:    extraTags,
		})
		if err != nil {
			logger.Printf("metrics: failed to init datadog backend: %v; metrics disabled", err)
			return func() {}
		}
		metrics.SetBackend(b)
		logger.Printf("metrics: backend=datadog tags=%v", extraTags)
		// Close stops the periodic flush loop and submits one final time.
		return func() {
			if err := b.Close(); err != nil {
				logger.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		// metrics disabled; discard backend remains

	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
