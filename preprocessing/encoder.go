package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// 調査データには "other" や "unknown" という実在の水準があるため、
// 予約名は山括弧で囲む。訓練データに同名の水準があれば Fit が失敗する。
const (
	// OtherLevel collects categorical levels rarer than RareThreshold in
	// the training rows.
	OtherLevel = "<other>"
	// UnknownLevel receives missing values and levels never seen in the
	// training rows.
	UnknownLevel = "<unknown>"

	// DefaultRareThreshold is the minimum training frequency of a level
	// that keeps its own indicator column.
	DefaultRareThreshold = 0.01
)

// EncoderOptions configures OneHotEncoder.
type EncoderOptions struct {
	// Exclude lists columns that are never features (identifier, target).
	Exclude       []string `mapstructure:"exclude" yaml:"exclude"`
	RareThreshold float64  `mapstructure:"rare_threshold" yaml:"rare_threshold"`
	Scaling       Scaling  `mapstructure:"scaling" yaml:"scaling"`
	MinVariance   float64  `mapstructure:"min_variance" yaml:"min_variance"`
}

// DefaultEncoderOptions excludes the identifier and status columns of cfg.
func DefaultEncoderOptions(cfg Config) EncoderOptions {
	return EncoderOptions{
		Exclude:       []string{cfg.IDColumn, cfg.StatusColumn},
		RareThreshold: DefaultRareThreshold,
		Scaling:       ScalingStandard,
	}
}

// OneHotEncoder turns a clean table into a dense feature matrix.
//
// Numeric columns pass through with missing values imputed by the training
// mean. Categorical columns expand into one indicator per kept level plus
// OtherLevel and UnknownLevel. Constant columns are then removed by a
// VarianceThreshold and the rest are scaled.
//
// Everything is learned from the table given to Fit; Transform applies the
// same encoding to any other slice of the same clean table.
type OneHotEncoder struct {
	opts  EncoderOptions
	state *model.StateManager

	numeric     []string
	means       map[string]float64
	categorical []string
	levels      map[string][]string
	index       map[string]map[string]int
	rare        map[string]map[string]bool
	rawNames    []string

	variance *VarianceThreshold
	scaler   model.Transformer
	names    []string
}

// NewOneHotEncoder creates an encoder.
func NewOneHotEncoder(opts EncoderOptions) *OneHotEncoder {
	return &OneHotEncoder{
		opts:  opts,
		state: model.NewStateManager("OneHotEncoder"),
	}
}

// Fit learns means, levels, the variance mask and scaling from t.
func (e *OneHotEncoder) Fit(t *table.Table) error {
	if t.Len() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.opts.RareThreshold < 0 || e.opts.RareThreshold >= 1 {
		return errors.NewValidationError("rare_threshold", "must be in [0, 1)", e.opts.RareThreshold)
	}
	scaler, err := newScaler(e.opts.Scaling)
	if err != nil {
		return err
	}

	excluded := toSet(e.opts.Exclude)
	e.numeric = without(t.ColumnsOfKind(table.KindNumeric), excluded)
	e.categorical = without(t.ColumnsOfKind(table.KindCategorical), excluded)
	if len(e.numeric)+len(e.categorical) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "table has no feature columns")
	}

	if err := e.fitNumeric(t); err != nil {
		return err
	}
	if err := e.fitCategorical(t); err != nil {
		return err
	}

	raw, err := e.encodeRaw(t)
	if err != nil {
		return err
	}

	e.variance = NewVarianceThreshold(e.opts.MinVariance)
	if err := e.variance.Fit(raw); err != nil {
		return err
	}
	support := e.variance.Support()
	if len(support) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "every feature is constant on the training rows")
	}
	e.names = make([]string, len(support))
	for k, j := range support {
		e.names[k] = e.rawNames[j]
	}

	reduced, err := e.variance.Transform(raw)
	if err != nil {
		return err
	}
	e.scaler = scaler
	if e.scaler != nil {
		if err := e.scaler.Fit(reduced); err != nil {
			return err
		}
	}

	e.state.SetFitted(len(e.names), t.Len())
	return nil
}

// Transform encodes t with the fitted parameters.
func (e *OneHotEncoder) Transform(t *table.Table) (*mat.Dense, error) {
	if err := e.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}
	raw, err := e.encodeRaw(t)
	if err != nil {
		return nil, err
	}
	out, err := e.variance.Transform(raw)
	if err != nil {
		return nil, err
	}
	if e.scaler != nil {
		if out, err = e.scaler.Transform(out); err != nil {
			return nil, err
		}
	}
	return mat.DenseCopyOf(out), nil
}

// FitTransform runs Fit then Transform on the same table.
func (e *OneHotEncoder) FitTransform(t *table.Table) (*mat.Dense, error) {
	if err := e.Fit(t); err != nil {
		return nil, err
	}
	return e.Transform(t)
}

// FeatureNames returns the surviving feature names: the column name for a
// numeric feature, "column=level" for an indicator.
func (e *OneHotEncoder) FeatureNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

func (e *OneHotEncoder) fitNumeric(t *table.Table) error {
	e.means = make(map[string]float64, len(e.numeric))
	for _, col := range e.numeric {
		values, err := t.Values(col)
		if err != nil {
			return err
		}
		sum, n, missing := 0.0, 0, 0
		for _, v := range values {
			if v.Missing {
				missing++
				continue
			}
			f, err := v.Float()
			if err != nil {
				return errors.NewFieldValidationError("encode", col, "value is not a number", v.Raw)
			}
			sum += f
			n++
		}
		// 全て欠損の列は 0 で補完
		e.means[col] = errors.SafeDivide(sum, float64(n))
		if missing > 0 {
			errors.Warn(errors.NewDataConversionWarning(col, "missing", "training mean",
				"numeric feature has missing values in the training rows"))
		}
	}
	return nil
}

func (e *OneHotEncoder) fitCategorical(t *table.Table) error {
	e.levels = make(map[string][]string, len(e.categorical))
	e.index = make(map[string]map[string]int, len(e.categorical))
	e.rare = make(map[string]map[string]bool, len(e.categorical))
	e.rawNames = append([]string(nil), e.numeric...)

	n := float64(t.Len())
	for _, col := range e.categorical {
		counts := t.Counts(col, false)
		var kept []string
		rare := make(map[string]bool)
		for level, c := range counts {
			if level == OtherLevel || level == UnknownLevel {
				return errors.NewFieldValidationError("encode", col, "level collides with a reserved encoder level", level)
			}
			if float64(c)/n >= e.opts.RareThreshold {
				kept = append(kept, level)
			} else {
				rare[level] = true
			}
		}
		sort.Strings(kept)
		kept = append(kept, OtherLevel, UnknownLevel)

		idx := make(map[string]int, len(kept))
		for i, level := range kept {
			idx[level] = len(e.rawNames) + i
		}
		for _, level := range kept {
			e.rawNames = append(e.rawNames, col+"="+level)
		}
		e.levels[col] = kept
		e.index[col] = idx
		e.rare[col] = rare
	}
	return nil
}

// encodeRaw builds the unfiltered, unscaled matrix.
func (e *OneHotEncoder) encodeRaw(t *table.Table) (*mat.Dense, error) {
	for _, col := range append(append([]string(nil), e.numeric...), e.categorical...) {
		if !t.Has(col) {
			return nil, errors.NewSchemaError("encode", col)
		}
	}

	out := mat.NewDense(t.Len(), len(e.rawNames), nil)
	for i, row := range t.Rows() {
		for j, col := range e.numeric {
			v := row.Get(col)
			if v.Missing {
				out.Set(i, j, e.means[col])
				continue
			}
			f, err := v.Float()
			if err != nil {
				return nil, errors.NewFieldValidationError("encode", col, "value is not a number", v.Raw)
			}
			out.Set(i, j, f)
		}
		for _, col := range e.categorical {
			out.Set(i, e.column(col, row.Get(col)), 1)
		}
	}
	return out, nil
}

// column maps a categorical value to its indicator column.
func (e *OneHotEncoder) column(col string, v table.Value) int {
	idx := e.index[col]
	switch {
	case v.Missing:
		return idx[UnknownLevel]
	case e.rare[col][v.Raw]:
		return idx[OtherLevel]
	}
	if j, ok := idx[v.Raw]; ok {
		return j
	}
	return idx[UnknownLevel]
}

func without(cols []string, excluded map[string]bool) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		if !excluded[col] {
			out = append(out, col)
		}
	}
	return out
}

var _ model.TableEncoder = (*OneHotEncoder)(nil)
