package preprocessing

import (
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/model_selection"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// Config names every column set the pipeline touches. Columns are always
// referenced by name; the pipeline checks that each one exists before it
// transforms anything.
type Config struct {
	IDColumn         string   `mapstructure:"id_column" yaml:"id_column"`
	StatusColumn     string   `mapstructure:"status_column" yaml:"status_column"`
	StatusLevels     []string `mapstructure:"status_levels" yaml:"status_levels"`
	PopulationColumn string   `mapstructure:"population_column" yaml:"population_column"`
	MinPopulation    float64  `mapstructure:"min_population" yaml:"min_population"`

	// Sentinel is the literal that means "not recorded".
	Sentinel string `mapstructure:"sentinel" yaml:"sentinel"`
	// YearSentinelColumns are normalized before any filtering.
	YearSentinelColumns []string `mapstructure:"year_sentinel_columns" yaml:"year_sentinel_columns"`
	// NumericSentinelColumns are normalized after column projection.
	NumericSentinelColumns []string `mapstructure:"numeric_sentinel_columns" yaml:"numeric_sentinel_columns"`
	// SentinelExcluded are never normalized, even when listed above. Zero is
	// a legitimate identifier, amount or elevation.
	SentinelExcluded []string `mapstructure:"sentinel_excluded" yaml:"sentinel_excluded"`

	RequiredColumns []string `mapstructure:"required_columns" yaml:"required_columns"`
	DropColumns     []string `mapstructure:"drop_columns" yaml:"drop_columns"`
	NumericColumns  []string `mapstructure:"numeric_columns" yaml:"numeric_columns"`

	Seed          int64   `mapstructure:"seed" yaml:"seed"`
	TrainFraction float64 `mapstructure:"train_fraction" yaml:"train_fraction"`
	Folds         int     `mapstructure:"folds" yaml:"folds"`
}

// DefaultConfig returns the column sets of the water-point dataset.
func DefaultConfig() Config {
	return Config{
		IDColumn:               "id",
		StatusColumn:           "status_group",
		StatusLevels:           []string{"functional", "non functional"},
		PopulationColumn:       "population",
		MinPopulation:          1,
		Sentinel:               "0",
		YearSentinelColumns:    []string{"construction_year"},
		NumericSentinelColumns: []string{"longitude", "latitude", "population", "construction_year", "num_private"},
		SentinelExcluded:       []string{"id", "amount_tsh", "gps_height"},
		RequiredColumns: []string{
			"status_group", "installer", "funder", "quality_group", "quantity",
			"management_group", "source_class", "id", "construction_year",
		},
		DropColumns: []string{
			"wpt_name", "subvillage", "scheme_name", "recorded_by",
			"region_code", "district_code", "lga", "ward",
			"public_meeting", "permit",
		},
		NumericColumns: []string{
			"amount_tsh", "gps_height", "longitude", "latitude",
			"num_private", "population", "construction_year",
		},
		Seed:          42,
		TrainFraction: model_selection.DefaultTrainFraction,
		Folds:         model_selection.DefaultFolds,
	}
}

// Validate checks internal consistency. Schema checks against an actual
// table happen in Pipeline.Validate.
func (c Config) Validate() error {
	if c.IDColumn == "" {
		return errors.NewValidationError("id_column", "must be set", c.IDColumn)
	}
	if c.StatusColumn == "" {
		return errors.NewValidationError("status_column", "must be set", c.StatusColumn)
	}
	if c.PopulationColumn == "" {
		return errors.NewValidationError("population_column", "must be set", c.PopulationColumn)
	}
	if len(c.StatusLevels) != 2 {
		return errors.NewValidationError("status_levels", "exactly two levels are required", c.StatusLevels)
	}
	if c.StatusLevels[0] == c.StatusLevels[1] {
		return errors.NewValidationError("status_levels", "levels must differ", c.StatusLevels)
	}
	if c.Sentinel == "" {
		return errors.NewValidationError("sentinel", "must be set", c.Sentinel)
	}
	if !(c.TrainFraction > 0 && c.TrainFraction < 1) {
		return errors.NewValidationError("train_fraction", "must be in (0, 1)", c.TrainFraction)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("folds", "must be at least 2", c.Folds)
	}

	dropped := toSet(c.DropColumns)
	protected := append([]string{c.IDColumn, c.StatusColumn, c.PopulationColumn}, c.RequiredColumns...)
	for _, col := range protected {
		if dropped[col] {
			return errors.NewValidationError("drop_columns", "cannot drop a required column", col)
		}
	}
	for _, col := range c.NumericSentinelColumns {
		if dropped[col] {
			return errors.NewValidationError("numeric_sentinel_columns", "column is dropped before numeric sentinel normalization", col)
		}
	}
	numeric := toSet(c.NumericColumns)
	if !numeric[c.PopulationColumn] {
		return errors.NewValidationError("numeric_columns", "population column must be numeric", c.PopulationColumn)
	}
	if numeric[c.IDColumn] {
		return errors.NewValidationError("numeric_columns", "identifier column is an opaque key", c.IDColumn)
	}
	return nil
}

// NamedColumns returns every column the configuration names, deduplicated,
// in first-seen order.
func (c Config) NamedColumns() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(cols ...string) {
		for _, col := range cols {
			if col != "" && !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	add(c.IDColumn, c.StatusColumn, c.PopulationColumn)
	add(c.RequiredColumns...)
	add(c.YearSentinelColumns...)
	add(c.NumericSentinelColumns...)
	add(c.DropColumns...)
	add(c.NumericColumns...)
	return out
}

// numericSentinelTargets is NumericSentinelColumns minus SentinelExcluded.
func (c Config) numericSentinelTargets() []string {
	excluded := toSet(c.SentinelExcluded)
	var out []string
	for _, col := range c.NumericSentinelColumns {
		if !excluded[col] {
			out = append(out, col)
		}
	}
	return out
}

// yearSentinelTargets is YearSentinelColumns minus SentinelExcluded.
func (c Config) yearSentinelTargets() []string {
	excluded := toSet(c.SentinelExcluded)
	var out []string
	for _, col := range c.YearSentinelColumns {
		if !excluded[col] {
			out = append(out, col)
		}
	}
	return out
}

// splitOptions and foldOptions thread the explicit seed into model_selection.
func (c Config) splitOptions() model_selection.SplitOptions {
	return model_selection.SplitOptions{Seed: c.Seed, StrataColumn: c.StatusColumn, TrainFraction: c.TrainFraction}
}

func (c Config) foldOptions() model_selection.FoldOptions {
	return model_selection.FoldOptions{Seed: c.Seed, StrataColumn: c.StatusColumn, K: c.Folds}
}

func toSet(cols []string) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, col := range cols {
		out[col] = true
	}
	return out
}

// Kinds returns the column kinds implied by the configuration, for loaders
// that attach kinds at read time.
func (c Config) Kinds() map[string]table.Kind {
	kinds := make(map[string]table.Kind, len(c.NumericColumns)+1)
	for _, col := range c.NumericColumns {
		kinds[col] = table.KindNumeric
	}
	kinds[c.IDColumn] = table.KindIdentifier
	return kinds
}
