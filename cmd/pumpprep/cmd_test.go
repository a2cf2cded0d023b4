package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
	"github.com/YuminosukeSato/pumpprep/preprocessing"
)

var header = []string{
	"id", "amount_tsh", "gps_height", "longitude", "latitude", "num_private",
	"population", "construction_year", "status_group", "installer", "funder",
	"quality_group", "quantity", "management_group", "source_class",
	"wpt_name", "subvillage", "scheme_name", "recorded_by", "region_code",
	"district_code", "lga", "ward", "public_meeting", "permit", "basin",
}

// writePumps writes n functional and n non functional pumps plus two rows
// that the filters drop.
func writePumps(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(header))

	row := func(i int, status, year, population string) []string {
		return []string{
			fmt.Sprint(70000 + i), fmt.Sprint(i % 4 * 250), fmt.Sprint(900 + i), "34.9", "-9.8", "0",
			population, year, status, []string{"DWE", "RWE"}[i%2], "Roman",
			"good", "enough", "user-group", "groundwater",
			"none", "Mnyusi", "Roman", "GeoData", "11",
			"5", "Ludewa", "Mundindi", "True", "False", "Lake Nyasa",
		}
	}
	for i := 0; i < n; i++ {
		require.NoError(t, w.Write(row(i, "functional", fmt.Sprint(1990+i%20), fmt.Sprint(20+i))))
		require.NoError(t, w.Write(row(n+i, "non functional", fmt.Sprint(1975+i%20), fmt.Sprint(30+i))))
	}
	require.NoError(t, w.Write(row(2*n, "functional", "0", "100")))
	require.NoError(t, w.Write(row(2*n+1, "functional needs repair", "2001", "100")))
	w.Flush()
	require.NoError(t, w.Error())

	path := filepath.Join(dir, "pumps.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPrepareCommand(t *testing.T) {
	dir := t.TempDir()
	input := writePumps(t, dir, 30)
	output := filepath.Join(dir, "clean.csv")

	stdout, stderr, err := run(t, "prepare", "--input", input, "--output", output)
	require.NoError(t, err, stderr)

	var diag struct {
		RunID       string         `json:"run_id"`
		Seed        int64          `json:"seed"`
		LevelCounts map[string]int `json:"level_counts"`
		Partition   struct {
			Train     int   `json:"train"`
			Test      int   `json:"test"`
			FoldSizes []int `json:"fold_sizes"`
		} `json:"partition"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &diag))
	assert.NotEmpty(t, diag.RunID)
	assert.Equal(t, int64(42), diag.Seed)
	assert.Equal(t, map[string]int{"functional": 30, "non functional": 30}, diag.LevelCounts)
	assert.Equal(t, 60, diag.Partition.Train+diag.Partition.Test)
	assert.Contains(t, stderr, "pipeline finished")

	fh, err := os.Open(output)
	require.NoError(t, err)
	defer fh.Close()
	records, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 61)

	cols := records[0]
	assert.Equal(t, "split", cols[len(cols)-2])
	assert.Equal(t, "fold", cols[len(cols)-1])
	assert.NotContains(t, cols, "wpt_name")

	splits := map[string]int{}
	for _, rec := range records[1:] {
		split, fold := rec[len(rec)-2], rec[len(rec)-1]
		splits[split]++
		if split == "test" {
			assert.Empty(t, fold)
		} else {
			assert.NotEmpty(t, fold)
		}
	}
	assert.Equal(t, diag.Partition.Train, splits["train"])
	assert.Equal(t, diag.Partition.Test, splits["test"])
}

func TestWritePartitionedRejectsClash(t *testing.T) {
	clean, err := table.New([]string{"id", "fold"})
	require.NoError(t, err)
	require.NoError(t, clean.Append(table.Row{"id": table.V("1"), "fold": table.V("a")}))

	path := filepath.Join(t.TempDir(), "out.csv")
	err = writePartitioned(path, &preprocessing.Result{Clean: clean})

	var validationErr *errors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "fold", validationErr.Value)
	assert.Contains(t, err.Error(), "already has a column named fold")
	assert.NoFileExists(t, path)
}

func TestPrepareSeedOverride(t *testing.T) {
	input := writePumps(t, t.TempDir(), 20)

	stdout, _, err := run(t, "prepare", "--input", input, "--seed", "7", "--log-format", "slog")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"seed": 7`)
}

func TestSlogFormatRoutesWarnings(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	defer errors.SetZerologWarnFunc(nil)

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"config", "show", "--log-format", "slog", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, cmd.Execute())

	errors.Warn(errors.NewDataConversionWarning("population", "missing", "training mean", "imputed"))
	assert.Contains(t, errOut.String(), `"severity":"WARN"`)
	assert.Contains(t, errOut.String(), "column 'population'")
}

func TestPrepareErrors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		_, _, err := run(t, "prepare")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input")
	})

	t.Run("unknown source", func(t *testing.T) {
		_, _, err := run(t, "prepare", "--source", "parquet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "csv or postgres")
	})

	t.Run("too few rows per level", func(t *testing.T) {
		input := writePumps(t, t.TempDir(), 3)
		_, _, err := run(t, "prepare", "--input", input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 required")
	})
}

func TestBenchCommand(t *testing.T) {
	input := writePumps(t, t.TempDir(), 30)

	stdout, stderr, err := run(t, "bench", "--input", input, "--model", "majority")
	require.NoError(t, err, stderr)

	var report benchReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "majority", report.Model)
	require.NotNil(t, report.CV)
	assert.Len(t, report.CV.Folds, 5)
	// 同数のクラスなので定数予測のAUCは0.5
	assert.InDelta(t, 0.5, report.CV.MeanAUC, 1e-9)
	require.NotNil(t, report.Holdout)
	assert.Equal(t, -1, report.Holdout.Fold)
}

func TestBenchCommandLogistic(t *testing.T) {
	input := writePumps(t, t.TempDir(), 30)

	stdout, stderr, err := run(t, "bench", "--input", input)
	require.NoError(t, err, stderr)

	var report benchReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "logistic", report.Model)
	require.NotNil(t, report.CV)
	// 建設年で状態がほぼ分かれるので定数予測より良くなる
	assert.Greater(t, report.CV.MeanAUC, 0.6)

	_, _, err = run(t, "bench", "--input", input, "--model", "forest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "majority or logistic")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pumpprep.yaml")

	stdout, _, err := run(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	_, _, err = run(t, "config", "init", "--output", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = run(t, "config", "init", "--output", path, "--force")
	require.NoError(t, err)

	t.Setenv("PUMPPREP_POSTGRES_DSN", "postgres://pump:secret@db:5432/pumps")
	stdout, _, err = run(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "status_column: status_group")
	assert.Contains(t, stdout, "postgres://****@db:5432/pumps")
	assert.NotContains(t, stdout, "secret")
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"postgres://u:p@host/db", "postgres://****@host/db"},
		{"host=db user=u password=p", "****"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mask(tt.in))
	}
}
