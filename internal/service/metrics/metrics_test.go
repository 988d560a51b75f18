package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helmetweb/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Header padding matches what ultralytics writes.
const resultsCSV = `                  epoch,      train/box_loss,   metrics/precision(B),      metrics/recall(B),       metrics/mAP50(B),    metrics/mAP50-95(B)
                      1,                1.512,                0.61234,                0.50001,                0.55555,                0.30000
                      2,                1.201,                  0.873,                0.81249,                0.90456,                0.51234
`

func TestParse_UsesLastRow(t *testing.T) {
	snapshot, err := Parse(strings.NewReader(resultsCSV))
	require.NoError(t, err)

	assert.Equal(t, model.MetricsSnapshot{Precision: 87.3, Recall: 81.25, MAP50: 90.46}, snapshot)
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("epoch,metrics/precision(B)\n1,0.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), RecallColumn)
}

func TestParse_NoRows(t *testing.T) {
	_, err := Parse(strings.NewReader("metrics/precision(B),metrics/recall(B),metrics/mAP50(B)\n"))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParse_BadNumber(t *testing.T) {
	_, err := Parse(strings.NewReader("metrics/precision(B),metrics/recall(B),metrics/mAP50(B)\nx,0.1,0.2\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFileIsZero(t *testing.T) {
	snapshot, err := Load(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, err)
	assert.Equal(t, model.MetricsSnapshot{}, snapshot)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(resultsCSV), 0644))

	snapshot, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 87.3, snapshot.Precision, 1e-9)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected float64
	}{
		{0.873, 87.3},
		{0.12346, 12.35},
		{1, 100},
		{0, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, Percent(tt.ratio), 1e-9, "Percent(%v)", tt.ratio)
	}
}
