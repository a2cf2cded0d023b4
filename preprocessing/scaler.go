package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// Scaling はエンコーダが数値特徴量に適用するスケーリング方式
type Scaling string

const (
	// ScalingStandard は平均0・標準偏差1に変換する
	ScalingStandard Scaling = "standard"
	// ScalingMinMax は [0, 1] に変換する
	ScalingMinMax Scaling = "minmax"
	// ScalingNone はスケーリングしない
	ScalingNone Scaling = "none"
)

// newScaler は方式に対応する Transformer を返す。ScalingNone は nil
func newScaler(s Scaling) (model.Transformer, error) {
	switch s {
	case ScalingStandard, "":
		return NewStandardScaler(true, true), nil
	case ScalingMinMax:
		return NewMinMaxScaler([2]float64{0, 1}), nil
	case ScalingNone:
		return nil, nil
	default:
		return nil, errors.NewValidationError("scaling", "unknown scaling", string(s))
	}
}

// StandardScaler は特徴量を平均0、標準偏差1に標準化する
// 分散が0の列はスケール1として扱い、ゼロ除算を避ける
type StandardScaler struct {
	state *model.StateManager

	Mean  []float64
	Scale []float64

	WithMean bool
	WithStd  bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager("StandardScaler"),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// Fit は列ごとの平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd && std > 1e-8 {
			s.Scale[j] = std
		}
	}

	s.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計量で標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if nFeatures, _ := s.state.Dimensions(); c != nFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", nFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform はFitとTransformを続けて実行する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	nFeatures, _ := s.state.Dimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)", s.WithMean, s.WithStd, nFeatures)
}

// MinMaxScaler は特徴量を FeatureRange に線形変換する
// 定数列は幅1として扱う
type MinMaxScaler struct {
	state *model.StateManager

	DataMin []float64
	Range   []float64

	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		state:        model.NewStateManager("MinMaxScaler"),
		FeatureRange: featureRange,
	}
}

// Fit は列ごとの最小値と幅を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if m.FeatureRange[1] <= m.FeatureRange[0] {
		return errors.NewValidationError("feature_range", "max must exceed min", m.FeatureRange)
	}

	m.DataMin = make([]float64, c)
	m.Range = make([]float64, c)
	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		m.DataMin[j] = lo
		m.Range[j] = hi - lo
		if m.Range[j] < 1e-8 {
			m.Range[j] = 1
		}
	}

	m.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの最小値と幅でスケーリングする
// 訓練範囲外の値は FeatureRange の外に出る（クリップしない）
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if nFeatures, _ := m.state.Dimensions(); c != nFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", nFeatures, c, 1)
	}

	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Range[j]*width + m.FeatureRange[0]
	}, X)
	return result, nil
}

// FitTransform はFitとTransformを続けて実行する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}
