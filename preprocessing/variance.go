package preprocessing

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// VarianceThreshold drops feature columns whose training variance is not
// above Threshold. With the default of 0 it removes constant columns, such
// as a one-hot indicator for a level absent from the training fold.
type VarianceThreshold struct {
	state *model.StateManager

	Threshold float64
	Variances []float64
	support   []int
}

// NewVarianceThreshold creates a VarianceThreshold.
func NewVarianceThreshold(threshold float64) *VarianceThreshold {
	return &VarianceThreshold{
		state:     model.NewStateManager("VarianceThreshold"),
		Threshold: threshold,
	}
}

// Fit records the population variance of each column.
func (v *VarianceThreshold) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("VarianceThreshold.Fit", "empty data", errors.ErrEmptyData)
	}
	if v.Threshold < 0 {
		return errors.NewValidationError("threshold", "must be non-negative", v.Threshold)
	}

	v.Variances = make([]float64, c)
	v.support = v.support[:0]
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		_, std := stat.PopMeanStdDev(col, nil)
		v.Variances[j] = std * std
		if v.Variances[j] > v.Threshold {
			v.support = append(v.support, j)
		}
	}
	v.state.SetFitted(c, r)
	return nil
}

// Support returns the indices of the kept columns.
func (v *VarianceThreshold) Support() []int {
	out := make([]int, len(v.support))
	copy(out, v.support)
	return out
}

// Transform keeps the supported columns. When every column is constant the
// result has zero columns.
func (v *VarianceThreshold) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := v.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if nFeatures, _ := v.state.Dimensions(); c != nFeatures {
		return nil, errors.NewDimensionError("VarianceThreshold.Transform", nFeatures, c, 1)
	}
	if len(v.support) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(r, len(v.support), nil)
	for i := 0; i < r; i++ {
		for k, j := range v.support {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out, nil
}

// FitTransform runs Fit then Transform.
func (v *VarianceThreshold) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := v.Fit(X); err != nil {
		return nil, err
	}
	return v.Transform(X)
}
