// Package metrics reads the validation metrics written by an ultralytics
// training run (results.csv) into a MetricsSnapshot.
package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"helmetweb/internal/model"
)

// Column names of the ultralytics results table.
const (
	PrecisionColumn = "metrics/precision(B)"
	RecallColumn    = "metrics/recall(B)"
	MAP50Column     = "metrics/mAP50(B)"
)

// ErrNoRows is returned when the table has a header but no epochs.
var ErrNoRows = errors.New("metrics table has no rows")

// Load reads the table at path. A missing file is not an error and yields a
// zero snapshot.
func Load(path string) (model.MetricsSnapshot, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.MetricsSnapshot{}, nil
	}
	if err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("open metrics table: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts the last row of a results table.
func Parse(r io.Reader) (model.MetricsSnapshot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.MetricsSnapshot{}, ErrNoRows
		}
		return model.MetricsSnapshot{}, fmt.Errorf("read metrics header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var last []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.MetricsSnapshot{}, fmt.Errorf("read metrics row: %w", err)
		}
		last = record
	}
	if last == nil {
		return model.MetricsSnapshot{}, ErrNoRows
	}

	var snapshot model.MetricsSnapshot
	fields := []struct {
		column string
		dst    *float64
	}{
		{PrecisionColumn, &snapshot.Precision},
		{RecallColumn, &snapshot.Recall},
		{MAP50Column, &snapshot.MAP50},
	}
	for _, f := range fields {
		idx, ok := columns[f.column]
		if !ok || idx >= len(last) {
			return model.MetricsSnapshot{}, fmt.Errorf("metrics column %q not found", f.column)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(last[idx]), 64)
		if err != nil {
			return model.MetricsSnapshot{}, fmt.Errorf("parse %s: %w", f.column, err)
		}
		*f.dst = Percent(value)
	}

	return snapshot, nil
}

// Percent scales a ratio to a percentage rounded to two decimals.
func Percent(ratio float64) float64 {
	return math.Round(ratio*100*100) / 100
}
