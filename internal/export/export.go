// Package export writes exposure tables to per-location files, one file per
// distinct loc so downstream time-series tooling can pick up a single
// location without touching the rest.
package export

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatGob Format = "gob"
)

// ParseFormat validates a format name from caller input.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatGob:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q: want csv or gob", s)
	}
}

func (f Format) ext() string { return string(f) }

// Exporter writes exposure tables to disk.
type Exporter struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Exporter.
func New(logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{logger: logger, metrics: metrics}
}

// Write partitions the table by location and writes one file per partition,
// named <loc>.<ext>, creating dir if absent. It returns the written paths.
// An empty table creates the directory and nothing else.
func (e *Exporter) Write(table *exposure.Table, dir string, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	parts := table.PartitionByLoc()
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		loc := part.Rows[0].Loc
		path := filepath.Join(dir, loc+"."+format.ext())

		var err error
		switch format {
		case FormatCSV:
			err = writeCSV(path, part)
		case FormatGob:
			err = writeGob(path, part)
		}
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", loc, err)
		}

		paths = append(paths, path)
		e.metrics.FilesExported.Inc()
	}

	e.logger.Info("export complete",
		"dir", dir,
		"format", string(format),
		"locations", len(paths),
		"rows", len(table.Rows),
	)
	return paths, nil
}

// writeCSV emits a UTF-8, comma-delimited file: header row plus one row per
// exposure, no index column.
func writeCSV(path string, table *exposure.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Columns()); err != nil {
		return err
	}
	if err := w.WriteAll(table.Records()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeGob(path string, table *exposure.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(table); err != nil {
		return err
	}
	return f.Close()
}

// ReadGob loads a gob-encoded table partition, the inverse of a FormatGob Write.
func ReadGob(path string) (*exposure.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var table exposure.Table
	if err := gob.NewDecoder(f).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &table, nil
}
