package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"baac/internal/metrics"
	"baac/internal/metrics/datadog"
	"baac/internal/pipeline"
	"baac/internal/storage"

	// register all storage backends with the factory; -db-kind picks one
	// at runtime.
	_ "baac/internal/storage/all"
)

// main is the entry point for the cleaning binary. It resolves the run
// configuration from flags, optionally initializes a metrics backend, and
// executes one full run.
func main() {
	var cfg pipeline.Config

	flag.StringVar(&cfg.InputDir, "in", "data", "directory holding the raw yearly extracts")
	flag.StringVar(&cfg.CaractPath, "caract", "", "path to the caracteristiques extract (overrides -in)")
	flag.StringVar(&cfg.LieuxPath, "lieux", "", "path to the lieux extract (overrides -in)")
	flag.StringVar(&cfg.UsagersPath, "usagers", "", "path to the usagers extract (overrides -in)")
	flag.StringVar(&cfg.VehiculesPath, "vehicules", "", "path to the vehicules extract (overrides -in)")
	flag.StringVar(&cfg.OutDir, "out", "out", "directory for the cleaned and merged CSV artifacts")
	flag.Int64Var(&cfg.Year, "year", 2023, "report year (artifact names and age derivation)")

	flag.StringVar(&cfg.Storage.Kind, "db-kind", "", "storage backend for the merged table (sqlite, postgres, mssql); empty skips the publish")
	flag.StringVar(&cfg.Storage.DSN, "db-dsn", "", "storage DSN")
	flag.StringVar(&cfg.MergedTable, "db-table", "", "merged table name (default accidents_<year>)")

	metricsBackend := flag.String("metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = os.Getenv("BAAC_DB_DSN")
	}

	// Decide metrics backend: flag → env → default.
	backendName := *metricsBackend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		// Buffers metrics and submits periodically, plus one final submit
		// at shutdown via Close().
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "baac",
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=datadog job_name=baac")
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	runner := &pipeline.Runner{
		Logger:        log.Default(),
		NewRepository: storage.New,
	}

	start := time.Now()
	if err := runner.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}
