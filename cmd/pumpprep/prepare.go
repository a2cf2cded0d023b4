package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/dataset"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
	"github.com/YuminosukeSato/pumpprep/pkg/log"
	"github.com/YuminosukeSato/pumpprep/preprocessing"
)

// inputFlags selects the raw data source.
type inputFlags struct {
	input  string
	source string
	seed   int64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "raw CSV file")
	cmd.Flags().StringVar(&f.source, "source", "", "csv or postgres (default: csv when --input is set)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed for split and folds (overrides config)")
}

func newPrepareCmd(a *app) *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Run the preparation pipeline and print diagnostics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.prepare(cmd, &in)
			if err != nil {
				return err
			}
			if output != "" {
				if err := writePartitioned(output, result); err != nil {
					return err
				}
				a.logger.Info("clean table written", log.SourceKey, output, log.RowsOutKey, result.Clean.Len())
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Diagnostics)
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&output, "output", "", "write the clean table with split and fold columns to this CSV file")
	return cmd
}

// prepare loads the raw table and runs the pipeline.
func (a *app) prepare(cmd *cobra.Command, in *inputFlags) (*preprocessing.Result, error) {
	pcfg := a.cfg.Pipeline
	if cmd.Flags().Changed("seed") {
		pcfg.Seed = in.seed
	}

	src, err := a.source(in)
	if err != nil {
		return nil, err
	}
	logger := a.component("dataset")
	logger.Info("loading raw table", log.OperationKey, log.OperationLoad, log.SourceKey, src.Name())
	raw, err := src.Load(a.context(cmd))
	if err != nil {
		logger.Error("load failed", log.SourceKey, src.Name(), "error", err)
		return nil, err
	}

	p, err := preprocessing.NewPipeline(pcfg, preprocessing.WithLogger(a.component("preprocessing")))
	if err != nil {
		return nil, err
	}
	return p.Run(raw)
}

func (a *app) source(in *inputFlags) (dataset.Source, error) {
	kind := in.source
	if kind == "" {
		kind = "csv"
		if in.input == "" && a.cfg.Postgres.DSN != "" {
			kind = "postgres"
		}
	}
	switch kind {
	case "csv":
		if in.input == "" {
			return nil, errors.NewValidationError("input", "a CSV path is required", in.input)
		}
		return dataset.CSVFile{Path: in.input, Options: dataset.CSVOptions{
			NAValues:  a.cfg.CSV.NAValues,
			Delimiter: a.cfg.Delimiter(),
			Kinds:     a.cfg.Pipeline.Kinds(),
		}}, nil
	case "postgres":
		return dataset.PostgresSource{
			DSN:      a.cfg.Postgres.DSN,
			Query:    a.cfg.Postgres.Query,
			Kinds:    a.cfg.Pipeline.Kinds(),
			NAValues: a.cfg.CSV.NAValues,
		}, nil
	default:
		return nil, errors.NewValidationError("source", "must be csv or postgres", kind)
	}
}

const (
	splitColumn = "split"
	foldColumn  = "fold"
)

// writePartitioned writes the clean table plus a split column (train/test)
// and a fold column (fold index for training rows, empty for test rows).
func writePartitioned(path string, result *preprocessing.Result) error {
	clean, part := result.Clean, result.Partition
	for _, col := range []string{splitColumn, foldColumn} {
		if clean.Has(col) {
			return errors.NewValidationError("output",
				"clean table already has a column named "+col+"; drop or rename it via pipeline.drop_columns", col)
		}
	}

	split := make(map[table.RowRef]string, clean.Len())
	fold := make(map[table.RowRef]string, clean.Len())
	for _, ref := range part.Test() {
		split[ref] = "test"
	}
	for _, ref := range part.Train() {
		split[ref] = "train"
	}
	for i, refs := range part.Folds() {
		for _, ref := range refs {
			fold[ref] = strconv.Itoa(i)
		}
	}

	columns := append(clean.Columns(), splitColumn, foldColumn)
	out, err := table.New(columns)
	if err != nil {
		return err
	}
	for i, row := range clean.Rows() {
		r := row.Clone()
		ref := table.RowRef(i)
		r[splitColumn] = table.V(split[ref])
		if f, ok := fold[ref]; ok {
			r[foldColumn] = table.V(f)
		}
		if err := out.Append(r); err != nil {
			return err
		}
	}

	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := dataset.WriteCSV(fh, out); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
