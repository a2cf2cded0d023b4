package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/pumpprep/bench"
	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/preprocessing"
)

type benchReport struct {
	RunID   string          `json:"run_id"`
	Model   string          `json:"model"`
	CV      *bench.CVResult `json:"cv"`
	Holdout *bench.Score    `json:"holdout"`
}

func newBenchCmd(a *app) *cobra.Command {
	var in inputFlags
	var modelName string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Cross-validate a classifier (majority or logistic) on the prepared data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := a.cfg.Bench.Model
			if cmd.Flags().Changed("model") {
				name = modelName
			}
			seed := a.cfg.Pipeline.Seed
			if cmd.Flags().Changed("seed") {
				seed = in.seed
			}
			newClassifier, err := bench.NewClassifierFactory(name, uint64(seed))
			if err != nil {
				return err
			}
			result, err := a.prepare(cmd, &in)
			if err != nil {
				return err
			}

			encOpts := a.cfg.Encoder
			opts := bench.Options{
				StatusColumn:  a.cfg.Pipeline.StatusColumn,
				PositiveLevel: a.cfg.Bench.PositiveLevel,
				Threshold:     a.cfg.Bench.Threshold,
				MaxWorkers:    a.cfg.Bench.MaxWorkers,
				Encoder: func() model.TableEncoder {
					return preprocessing.NewOneHotEncoder(encOpts)
				},
				Logger: a.component("bench"),
			}
			cv, err := bench.CrossValidate(result.Clean, result.Partition, newClassifier, opts)
			if err != nil {
				return err
			}
			holdout, err := bench.Evaluate(result.Clean, result.Partition, newClassifier, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(benchReport{
				RunID:   result.Diagnostics.RunID,
				Model:   name,
				CV:      cv,
				Holdout: holdout,
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&modelName, "model", "", "classifier: "+strings.Join(bench.Models(), "|")+" (overrides config)")
	return cmd
}
