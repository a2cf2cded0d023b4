package bench

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// MajorityClassifier predicts the training positive rate for every row.
// It is the floor any real classifier has to beat.
type MajorityClassifier struct {
	state *model.StateManager
	rate  float64
}

// NewMajorityClassifier creates an unfitted baseline.
func NewMajorityClassifier() *MajorityClassifier {
	return &MajorityClassifier{state: model.NewStateManager("MajorityClassifier")}
}

// Fit records the share of y equal to 1.
func (m *MajorityClassifier) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 {
		return errors.NewModelError("MajorityClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("MajorityClassifier.Fit", rows, yRows, 0)
	}
	var pos float64
	for i := 0; i < yRows; i++ {
		pos += y.At(i, 0)
	}
	m.rate = pos / float64(yRows)
	m.state.SetFitted(cols, rows)
	return nil
}

// Rate returns the fitted positive rate.
func (m *MajorityClassifier) Rate() float64 {
	return m.rate
}

// PredictProba returns an n×1 matrix filled with the positive rate.
func (m *MajorityClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if nFeatures, _ := m.state.Dimensions(); cols != nFeatures {
		return nil, errors.NewDimensionError("MajorityClassifier.PredictProba", nFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, m.rate)
	}
	return out, nil
}

var _ model.Classifier = (*MajorityClassifier)(nil)
