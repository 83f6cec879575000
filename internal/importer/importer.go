// Package importer orchestrates one import run: read the snapshot file,
// decode it, fan records out into the accumulator groups, and flush them to
// storage on a fixed batch cadence.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rorimport/internal/accumulate"
	"rorimport/internal/metrics"
	"rorimport/internal/ror"
	"rorimport/internal/storage"
)

// DefaultBatchSize is the flush cadence in records.
const DefaultBatchSize = 200

// Logger is the minimal logging interface used by the importer.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Stats reports what a run saw and what it durably wrote.
type Stats struct {
	// Found is the number of records decoded from the source file.
	Found int
	// Processed is the number of records flushed to storage.
	Processed int
}

// Importer drives one import run against a Repository.
type Importer struct {
	Repo   storage.Repository
	Logger Logger

	// BatchSize is the flush cadence. Zero means DefaultBatchSize.
	BatchSize int

	// MaxRecords caps how many records are processed; 0 means the whole
	// file. A development aid for trial runs against large snapshots.
	MaxRecords int
}

func (imp *Importer) logf(format string, v ...any) {
	if imp.Logger == nil {
		log.Default().Printf(format, v...)
		return
	}
	imp.Logger.Printf(format, v...)
}

// CreateTables runs the externally supplied DDL script before an import.
func (imp *Importer) CreateTables(ctx context.Context, scriptPath string) error {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read ddl script: %w", err)
	}
	if err := imp.Repo.ExecScript(ctx, string(script)); err != nil {
		return fmt.Errorf("execute ddl script: %w", err)
	}
	imp.logf("tables created from %s", scriptPath)
	return nil
}

// Run imports the snapshot at path.
//
// The whole file is decoded before anything is written, so a malformed
// snapshot never leaves partial rows behind. A storage failure aborts the run
// but leaves previously committed batches in place; cleaning up after a
// partial run is the caller's concern.
func (imp *Importer) Run(ctx context.Context, path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read source file: %w", err)
	}
	imp.logf("got the data from %s", path)

	records, err := ror.DecodeRecords(data)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Found: len(records)}
	imp.logf("%d records found", stats.Found)
	metrics.IncCounter(metrics.RecordsTotal, float64(stats.Found), metrics.Labels{"kind": "found"})

	batchSize := imp.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	core := accumulate.NewCore(batchSize)
	required := accumulate.NewRequired(batchSize)
	nonRequired := accumulate.NewNonRequired(batchSize)

	for i := range records {
		if imp.MaxRecords > 0 && i >= imp.MaxRecords {
			imp.logf("stopping after %d records (max records cap)", imp.MaxRecords)
			break
		}
		r := &records[i]
		id := ror.ExtractID(r.ID)
		imp.checkQuality(r, i)

		core.Add(r, id)
		required.Add(r, id)
		nonRequired.Add(r, id)

		if (i+1)%batchSize == 0 {
			if err := imp.flush(ctx, core, required, nonRequired); err != nil {
				return stats, err
			}
			stats.Processed = i + 1
			imp.logf("%d records processed", stats.Processed)
		}
	}

	// Residual flush; runs even when the remainder is empty.
	remainder := core.Len()
	if err := imp.flush(ctx, core, required, nonRequired); err != nil {
		return stats, err
	}
	stats.Processed += remainder

	imp.logf("total records processed: %d", stats.Processed)
	metrics.IncCounter(metrics.RecordsTotal, float64(stats.Processed), metrics.Labels{"kind": "processed"})
	return stats, nil
}

// flush writes all three groups inside one transaction, so a mid-flush
// failure never leaves a batch partially applied across the nine tables.
func (imp *Importer) flush(ctx context.Context, core *accumulate.Core, required *accumulate.Required, nonRequired *accumulate.NonRequired) error {
	start := time.Now()

	tx, err := imp.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := core.Flush(ctx, tx); err != nil {
		return fmt.Errorf("flush core tables: %w", err)
	}
	if err := required.Flush(ctx, tx); err != nil {
		return fmt.Errorf("flush required tables: %w", err)
	}
	if err := nonRequired.Flush(ctx, tx); err != nil {
		return fmt.Errorf("flush non-required tables: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	metrics.IncCounter(metrics.BatchesTotal, 1, nil)
	metrics.ObserveHistogram(metrics.FlushSeconds, time.Since(start).Seconds(), nil)
	return nil
}

// checkQuality logs non-fatal anomalies; the record is imported regardless.
func (imp *Importer) checkQuality(r *ror.Record, index int) {
	if !ror.HasCanonicalForm(r.ID) {
		imp.logf("record %d: identifier %q does not match the expected shape", index, r.ID)
		metrics.IncCounter(metrics.WarningsTotal, 1, metrics.Labels{"kind": "id_shape"})
	}
	for _, n := range r.Names {
		if !ror.ValidLangTag(n.Lang) {
			imp.logf("record %d: name %q carries invalid language tag %q", index, n.Value, n.Lang)
			metrics.IncCounter(metrics.WarningsTotal, 1, metrics.Labels{"kind": "lang_code"})
		}
	}
}

// Summarise logs the total row count of each import table.
func (imp *Importer) Summarise(ctx context.Context) error {
	imp.logf("")
	imp.logf("************************************")
	imp.logf("Total record numbers for each table:")
	imp.logf("************************************")
	imp.logf("")

	for _, table := range accumulate.AllTables() {
		n, err := imp.Repo.CountRows(ctx, table)
		if err != nil {
			return fmt.Errorf("summarise %s: %w", table, err)
		}
		imp.logf("total records in %s: %d", table, n)
	}

	imp.logf("")
	imp.logf("************************************")
	imp.logf("")
	return nil
}
