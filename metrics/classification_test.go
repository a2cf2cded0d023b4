package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

func vec(values []float64) *mat.VecDense {
	if len(values) == 0 {
		return nil
	}
	return mat.NewVecDense(len(values), values)
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{name: "perfect", yTrue: []float64{0, 0, 0, 1, 1, 1}, yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}, want: 1.0},
		{name: "inverted", yTrue: []float64{0, 0, 0, 1, 1, 1}, yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1}, want: 0.0},
		{name: "all ties", yTrue: []float64{0, 1, 0, 1}, yPred: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "typical", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.75},
		{name: "partial tie", yTrue: []float64{0, 1, 1}, yPred: []float64{0.6, 0.6, 0.9}, want: 0.75},
		{name: "only functional pumps", yTrue: []float64{0, 0, 0, 0}, yPred: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.5},
		{name: "non-binary labels", yTrue: []float64{0, 0.5, 1}, yPred: []float64{0.1, 0.5, 0.9}, wantErr: true},
		{name: "length mismatch", yTrue: []float64{0, 1}, yPred: []float64{0.5}, wantErr: true},
		{name: "empty", wantErr: true},
	}

	errors.SetWarningHandler(func(error) {})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(vec(tt.yTrue), vec(tt.yPred))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAUCSingleClassWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })

	got, err := AUC(vec([]float64{1, 1}), vec([]float64{0.2, 0.9}))
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	require.Len(t, warnings, 1)
	var undefined *errors.UndefinedMetricWarning
	require.True(t, errors.As(warnings[0], &undefined))
	assert.Equal(t, "roc_auc", undefined.Metric)
}

func TestAUCMatrix(t *testing.T) {
	got, err := AUCMatrix(
		mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
		mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-9)

	_, err = AUCMatrix(nil, mat.NewDense(1, 1, []float64{0.5}))
	assert.Error(t, err)
	_, err = AUCMatrix(&mat.Dense{}, &mat.Dense{})
	assert.Error(t, err)
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{name: "clipped perfect", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0, 0, 1, 1}, want: 0.0},
		{name: "typical", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.1, 0.2, 0.8, 0.9}, want: 0.164252},
		{name: "confidently wrong", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.9, 0.9, 0.1, 0.1}, want: 2.3025851},
		{name: "non-binary labels", yTrue: []float64{0, 0.5, 1}, yPred: []float64{0.1, 0.5, 0.9}, wantErr: true},
		{name: "empty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(vec(tt.yTrue), vec(tt.yPred))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-4)
		})
	}
}

func TestAccuracyAndError(t *testing.T) {
	yTrue := vec([]float64{0, 0, 1, 1, 1})
	yPred := vec([]float64{0, 1, 1, 1, 0})

	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, acc, 1e-9)

	e, err := ClassificationError(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, e, 1e-9)

	_, err = Accuracy(yTrue, vec([]float64{0}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = ClassificationError(nil, nil)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestThreshold(t *testing.T) {
	got := Threshold(vec([]float64{0.2, 0.5, 0.7}), 0.5)
	assert.Equal(t, []float64{0, 1, 1}, got.RawVector().Data)
}

func BenchmarkAUC(b *testing.B) {
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			yTrue[i] = 1
		}
		yPred[i] = float64(i%97) / 97
	}
	yt, yp := vec(yTrue), vec(yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yt, yp)
	}
}
