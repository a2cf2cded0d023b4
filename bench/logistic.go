package bench

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// LogisticRegression は L2 正則化付きの二値ロジスティック回帰
// 勾配降下法 (学習率 1/(1+0.1·iter)) で係数を求める。y は 0/1 の列ベクトル
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	C            float64 // 正則化の強さの逆数。0 以下なら正則化なし
	FitIntercept bool
	MaxIter      int
	Tol          float64 // 勾配の最大絶対値がこれを下回ったら停止
	Seed         uint64  // 係数の初期値に使う乱数のシード

	// Fitted parameters
	Coef      []float64
	Intercept float64
	NIter     int
}

// LogisticOption は LogisticRegression の関数オプション
type LogisticOption func(*LogisticRegression)

// WithC sets the inverse regularization strength.
func WithC(c float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithMaxIter sets the iteration cap.
func WithMaxIter(n int) LogisticOption {
	return func(lr *LogisticRegression) { lr.MaxIter = n }
}

// WithTol sets the gradient tolerance.
func WithTol(tol float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// WithSeed seeds the coefficient initialization.
func WithSeed(seed uint64) LogisticOption {
	return func(lr *LogisticRegression) { lr.Seed = seed }
}

// NewLogisticRegression creates an unfitted classifier with C=1,
// 100 iterations and tol 1e-4.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager("LogisticRegression"),
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit trains the model on X (n×p) and y (n×1, values 0 or 1).
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}
	if lr.MaxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.MaxIter)
	}
	for i := 0; i < nSamples; i++ {
		if v := y.At(i, 0); v != 0 && v != 1 {
			return errors.NewValidationError("y", "labels must be 0 or 1", v)
		}
	}

	r := rand.New(rand.NewPCG(lr.Seed, 0))
	weights := make([]float64, nFeatures)
	for j := range weights {
		weights[j] = r.NormFloat64() * 0.01
	}
	intercept := 0.0

	lambda := 0.0
	if lr.C > 0 {
		lambda = 1.0 / lr.C
	}
	n := float64(nSamples)
	grad := make([]float64, nFeatures)

	lr.NIter = 0
	for iter := 0; iter < lr.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0
		for i := 0; i < nSamples; i++ {
			diff := sigmoid(linear(X, i, weights, intercept)) - y.At(i, 0)
			gradIntercept += diff
			for j := 0; j < nFeatures; j++ {
				grad[j] += diff * X.At(i, j)
			}
		}

		maxGrad := 0.0
		if lr.FitIntercept {
			gradIntercept /= n
			maxGrad = math.Abs(gradIntercept)
		}
		for j := range grad {
			grad[j] = grad[j]/n + lambda*weights[j]
			maxGrad = math.Max(maxGrad, math.Abs(grad[j]))
		}

		rate := 1.0 / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= rate * grad[j]
		}
		if lr.FitIntercept {
			intercept -= rate * gradIntercept
		}
		lr.NIter = iter + 1
		if maxGrad < lr.Tol {
			break
		}
	}

	lr.Coef = weights
	lr.Intercept = intercept
	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba returns P(y=1) as an n×1 matrix.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if nFeatures, _ := lr.state.Dimensions(); cols != nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", nFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, sigmoid(linear(X, i, lr.Coef, lr.Intercept)))
	}
	return out, nil
}

func linear(X mat.Matrix, i int, weights []float64, intercept float64) float64 {
	z := intercept
	for j, w := range weights {
		z += X.At(i, j) * w
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

var _ model.Classifier = (*LogisticRegression)(nil)
