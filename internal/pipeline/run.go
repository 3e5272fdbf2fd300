// Package pipeline wires the whole cleaning run together: load, audit,
// clean, derive, prune, join, export, and the optional database publish.
//
// The run is a synchronous single pass. Each stage is an explicit pure
// function from the previous stage's output; nothing here mutates a table
// another stage still reads.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"baac/internal/audit"
	"baac/internal/baac"
	"baac/internal/cleaner"
	"baac/internal/derive"
	"baac/internal/export"
	"baac/internal/frame"
	"baac/internal/join"
	"baac/internal/metrics"
	parsercsv "baac/internal/parser/csv"
	"baac/internal/storage"
)

// Logger is the minimal logging interface used by the runner. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Config describes one cleaning run.
type Config struct {
	// InputDir holds the four raw extracts named caract-<year>.csv,
	// lieux-<year>.csv, usagers-<year>.csv, vehicules-<year>.csv.
	// Individual paths below override the convention when set.
	InputDir string

	CaractPath    string
	LieuxPath     string
	UsagersPath   string
	VehiculesPath string

	// OutDir receives the cleaned and merged CSV artifacts.
	OutDir string

	// Year is the report year: used in artifact names, the age derivation,
	// and the year-consistency diagnostic. Defaults to 2023.
	Year int64

	// Storage optionally publishes the merged table into a database.
	// Leave Kind empty to skip.
	Storage storage.Config

	// MergedTable is the database table name for the publish step.
	MergedTable string
}

func (c Config) year() int64 {
	if c.Year == 0 {
		return 2023
	}
	return c.Year
}

func (c Config) path(explicit, stem string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(c.InputDir, fmt.Sprintf("%s-%d.csv", stem, c.year()))
}

// Runner executes cleaning runs. The repository factory is a seam so tests
// can capture the publish step without a real database.
type Runner struct {
	Logger Logger

	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
}

// NewDefaultRunner returns a Runner wired to the registered storage
// backends and the standard logger.
func NewDefaultRunner() *Runner {
	return &Runner{
		Logger:        log.Default(),
		NewRepository: storage.New,
	}
}

func (r *Runner) logf() func(format string, v ...any) {
	if r.Logger == nil {
		return func(string, ...any) {}
	}
	return r.Logger.Printf
}

// step times one stage, records its metrics, and propagates its error.
func step(logf func(string, ...any), stage string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
	}
	dur := time.Since(start)

	labels := metrics.Labels{"stage": stage, "status": status}
	metrics.IncCounter("pipeline_step_total", 1, labels)
	metrics.ObserveHistogram("pipeline_step_duration_seconds", dur.Seconds(), labels)

	logf("stage=%s status=%s duration=%s", stage, status, dur.Truncate(time.Millisecond))
	return err
}

// Run executes one full cleaning run.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	logf := r.logf()
	year := cfg.year()

	var rawCaract, rawLieux, rawUsagers, rawVehicules *frame.Frame
	if err := step(logf, "load", func() error {
		var err error
		if rawCaract, err = r.loadRaw(cfg.path(cfg.CaractPath, "caract"), "caracteristiques"); err != nil {
			return err
		}
		if rawLieux, err = r.loadRaw(cfg.path(cfg.LieuxPath, "lieux"), "lieux"); err != nil {
			return err
		}
		if rawUsagers, err = r.loadRaw(cfg.path(cfg.UsagersPath, "usagers"), "usagers"); err != nil {
			return err
		}
		rawVehicules, err = r.loadRaw(cfg.path(cfg.VehiculesPath, "vehicules"), "vehicules")
		return err
	}); err != nil {
		return err
	}

	// Pre-clean diagnostics. Observational only: the run continues whatever
	// they show.
	rawSummaries := map[string]audit.Summary{}
	_ = step(logf, "audit_raw", func() error {
		rawSummaries["caracteristiques"] = r.describe("caracteristiques", "raw", rawCaract, []string{"Num_Acc"})
		rawSummaries["lieux"] = r.describe("lieux", "raw", rawLieux, []string{"Num_Acc"})
		rawSummaries["usagers"] = r.describe("usagers", "raw", rawUsagers, []string{"Num_Acc", "id_usager"})
		rawSummaries["vehicules"] = r.describe("vehicules", "raw", rawVehicules, []string{"Num_Acc", "id_vehicule"})
		r.checkYear(rawCaract, year)
		return nil
	})

	var (
		accidents *baac.AccidentTable
		locations *baac.LocationTable
		users     *baac.UserTable
		vehicles  *baac.VehicleTable
	)
	if err := step(logf, "clean", func() error {
		var err error
		if accidents, err = cleaner.CleanAccidents(rawCaract); err != nil {
			return err
		}
		if locations, err = cleaner.CleanLocations(rawLieux); err != nil {
			return err
		}
		if users, err = cleaner.CleanUsers(rawUsagers); err != nil {
			return err
		}
		vehicles, err = cleaner.CleanVehicles(rawVehicules)
		return err
	}); err != nil {
		return err
	}

	_ = step(logf, "derive", func() error {
		derive.EnrichAccidents(accidents)
		derive.EnrichUsers(users, year)
		// Zone classification needs the built-up flag borrowed from the
		// accident table, so locations are enriched last.
		derive.EnrichLocations(locations, accidents)
		return nil
	})

	caractClean := accidents.Frame().Drop(baac.AccidentPrune...)
	lieuxClean := locations.Frame().Drop(baac.LocationPrune...)
	usagersClean := users.Frame().Drop(baac.UserPrune...)
	vehiculesClean := vehicles.Frame().Drop(baac.VehiclePrune...)

	_ = step(logf, "audit_clean", func() error {
		clean := map[string]*frame.Frame{
			"caracteristiques": caractClean,
			"lieux":            lieuxClean,
			"usagers":          usagersClean,
			"vehicules":        vehiculesClean,
		}
		keys := map[string][]string{
			"caracteristiques": {"Num_Acc"},
			"lieux":            {"Num_Acc"},
			"usagers":          {"Num_Acc", "id_usager"},
			"vehicules":        {"Num_Acc", "id_vehicule"},
		}
		for table, f := range clean {
			s := r.describe(table, "clean", f, keys[table])
			r.recordNulled(table, rawSummaries[table], s)
		}
		return nil
	})

	var merged *frame.Frame
	if err := step(logf, "join", func() error {
		var err error
		merged, err = r.merge(caractClean, lieuxClean, usagersClean, vehiculesClean)
		return err
	}); err != nil {
		return err
	}

	if err := step(logf, "export", func() error {
		outputs := []struct {
			name string
			f    *frame.Frame
		}{
			{fmt.Sprintf("caract_%d_clean.csv", year), caractClean},
			{fmt.Sprintf("lieux_%d_clean.csv", year), lieuxClean},
			{fmt.Sprintf("usagers_%d_clean.csv", year), usagersClean},
			{fmt.Sprintf("vehicules_%d_clean.csv", year), vehiculesClean},
			{fmt.Sprintf("final_%d.csv", year), merged},
		}
		for _, o := range outputs {
			path := filepath.Join(cfg.OutDir, o.name)
			if err := export.WriteCSV(path, o.f); err != nil {
				return err
			}
			logf("stage=export file=%s rows=%d cols=%d", path, o.f.NumRows(), len(o.f.Cols))
		}
		return nil
	}); err != nil {
		return err
	}

	if cfg.Storage.Kind != "" {
		if err := step(logf, "publish", func() error {
			return r.publish(ctx, cfg, merged)
		}); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) loadRaw(path, table string) (*frame.Frame, error) {
	logf := r.logf()
	f, err := parsercsv.ReadFile(path, parsercsv.Options{
		Comma:     ';',
		TrimSpace: true,
		OnErr: func(line int, err error) {
			logf("stage=parse table=%s line=%d err=%v", table, line, err)
		},
	})
	if err != nil {
		return nil, err
	}

	if extras, cErr := contractFor(table).ValidateHeader(f.Cols); cErr == nil && len(extras) > 0 {
		logf("stage=parse table=%s extra_columns=%v", table, extras)
	}
	return f, nil
}

func contractFor(table string) baac.Contract {
	switch table {
	case "caracteristiques":
		return baac.AccidentContract
	case "lieux":
		return baac.LocationContract
	case "usagers":
		return baac.UserContract
	default:
		return baac.VehicleContract
	}
}

func (r *Runner) describe(table, phase string, f *frame.Frame, keys []string) audit.Summary {
	s := audit.Describe(table, phase, f, keys, cleaner.Ranges(table))
	if r.Logger != nil {
		s.Log(r.Logger)
	}
	metrics.IncCounter("pipeline_rows_total", float64(s.Rows),
		metrics.Labels{"table": table, "phase": phase})
	return s
}

// recordNulled reports how many cells cleaning turned to null, per table.
func (r *Runner) recordNulled(table string, raw, clean audit.Summary) {
	rawMissing, cleanMissing := 0, 0
	for _, n := range raw.MissingByCol {
		rawMissing += n
	}
	for _, n := range clean.MissingByCol {
		cleanMissing += n
	}
	nulled := cleanMissing - rawMissing
	if nulled < 0 {
		nulled = 0
	}
	r.logf()("stage=clean table=%s nulled=%d", table, nulled)
	metrics.IncCounter("pipeline_nulled_total", float64(nulled), metrics.Labels{"table": table})
}

// checkYear counts accident rows whose year differs from the report year,
// mirroring the pre-clean year-consistency diagnostic.
func (r *Runner) checkYear(caract *frame.Frame, year int64) {
	ci := caract.ColIndex("an")
	if ci < 0 {
		return
	}
	bad := 0
	for _, row := range caract.Rows {
		n := cleaner.ParseInt(row[ci])
		if n != nil && *n != year {
			bad++
		}
	}
	r.logf()("stage=audit table=caracteristiques phase=raw year_mismatch=%d", bad)
}

// merge runs the left-join cascade:
// caracteristiques ⟕ lieux (Num_Acc) ⟕ vehicules (Num_Acc) ⟕ usagers
// (Num_Acc, id_vehicule). Unmatched rows are counted and logged, never
// fatal: a miss is a legitimate left-join outcome, and a systematic miss
// (e.g. a key-type mismatch) shows up as a large unmatched count.
func (r *Runner) merge(caract, lieux, usagers, vehicules *frame.Frame) (*frame.Frame, error) {
	logf := r.logf()
	onAcc := []join.On{{Left: "Num_Acc", Right: "Num_Acc"}}

	stage := func(name string, left, right *frame.Frame, on []join.On, suffix string) (*frame.Frame, error) {
		out, st, err := join.Left(left, right, on, suffix)
		if err != nil {
			return nil, fmt.Errorf("join %s: %w", name, err)
		}
		logf("stage=join with=%s left=%d right=%d out=%d unmatched=%d",
			name, st.LeftRows, st.RightRows, st.OutRows, st.Unmatched)
		metrics.IncCounter("pipeline_join_unmatched_total", float64(st.Unmatched),
			metrics.Labels{"stage": name})
		return out, nil
	}

	out, err := stage("lieux", caract, lieux, onAcc, "_lieux")
	if err != nil {
		return nil, err
	}
	out, err = stage("vehicules", out, vehicules, onAcc, "_veh")
	if err != nil {
		return nil, err
	}
	out, err = stage("usagers", out, usagers, []join.On{
		{Left: "Num_Acc", Right: "Num_Acc"},
		{Left: "id_vehicule", Right: "id_vehicule"},
	}, "_usager")
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) publish(ctx context.Context, cfg Config, merged *frame.Frame) error {
	table := cfg.MergedTable
	if table == "" {
		table = fmt.Sprintf("accidents_%d", cfg.year())
	}

	repo, err := r.NewRepository(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage %s: %w", cfg.Storage.Kind, err)
	}
	defer repo.Close()

	cols := storage.InferColumns(merged)
	n, err := repo.Replace(ctx, table, cols, merged.Rows)
	if err != nil {
		return fmt.Errorf("publish %s: %w", table, err)
	}
	r.logf()("stage=publish kind=%s table=%s rows=%d", cfg.Storage.Kind, table, n)
	return nil
}
