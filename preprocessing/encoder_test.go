package preprocessing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

func encoderTable(t *testing.T) *table.Table {
	t.Helper()
	kinds := map[string]table.Kind{"id": table.KindIdentifier, "population": table.KindNumeric}
	columns := []string{"id", "population", "basin", "status_group"}
	var rows []table.Row
	for i := 0; i < 100; i++ {
		basin := "Pangani"
		if i%2 == 0 {
			basin = "Rufiji"
		}
		if i == 0 {
			basin = "Lake Rukwa" // 1% 未満ではないが閾値を上げたテストで rare になる
		}
		pop := table.V("100")
		if i%4 == 0 {
			pop = table.V("300")
		}
		if i == 99 {
			pop = table.Missing()
		}
		rows = append(rows, table.Row{
			"id":           table.V("x"),
			"population":   pop,
			"basin":        table.V(basin),
			"status_group": table.V("functional"),
		})
	}
	return smallTable(t, kinds, columns, rows...)
}

func TestOneHotEncoderFeatures(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })

	tbl := encoderTable(t)
	opts := DefaultEncoderOptions(DefaultConfig())
	opts.RareThreshold = 0.05
	opts.Scaling = ScalingNone
	enc := NewOneHotEncoder(opts)

	X, err := enc.FitTransform(tbl)
	require.NoError(t, err)

	// Lake Rukwa は1行なので other に入り、unknown は定数なので除去される
	assert.Equal(t, []string{"population", "basin=Pangani", "basin=Rufiji", "basin=<other>"}, enc.FeatureNames())
	r, c := X.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 4, c)

	assert.Equal(t, 1.0, X.At(0, 3))
	assert.Equal(t, 1.0, X.At(1, 1))

	// 欠損値は訓練平均で補完される
	var sum float64
	for i := 0; i < 99; i++ {
		sum += X.At(i, 0)
	}
	assert.InDelta(t, sum/99, X.At(99, 0), 1e-9)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "population")
}

func TestOneHotEncoderUnseenLevel(t *testing.T) {
	tbl := encoderTable(t)
	opts := DefaultEncoderOptions(DefaultConfig())
	opts.Scaling = ScalingNone
	enc := NewOneHotEncoder(opts)
	require.NoError(t, enc.Fit(tbl.Subset([]table.RowRef{1, 2, 3, 4})))

	test := smallTable(t, map[string]table.Kind{"population": table.KindNumeric}, []string{"id", "population", "basin", "status_group"},
		table.Row{"population": table.V("100"), "basin": table.V("Wami / Ruvu")},
	)
	X, err := enc.Transform(test)
	require.NoError(t, err)

	// 訓練に unknown の行が無いので列自体が除去され、全ての指標が0になる
	names := enc.FeatureNames()
	for j, name := range names {
		if name != "population" {
			assert.Equal(t, 0.0, X.At(0, j), name)
		}
	}
}

func TestOneHotEncoderRealOtherAndUnknownLevels(t *testing.T) {
	kinds := map[string]table.Kind{"id": table.KindIdentifier, "x": table.KindNumeric}
	columns := []string{"id", "x", "quality_group", "status_group"}
	var rows []table.Row
	for i := 0; i < 100; i++ {
		level := "good"
		switch {
		case i < 30:
			level = "unknown"
		case i < 60:
			level = "other"
		case i == 99:
			level = "milky"
		}
		rows = append(rows, table.Row{
			"id":            table.V(fmt.Sprint(i)),
			"x":             table.V(fmt.Sprint(i % 7)),
			"quality_group": table.V(level),
			"status_group":  table.V("functional"),
		})
	}
	opts := DefaultEncoderOptions(DefaultConfig())
	opts.RareThreshold = 0.05
	opts.Scaling = ScalingNone
	enc := NewOneHotEncoder(opts)
	require.NoError(t, enc.Fit(smallTable(t, kinds, columns, rows...)))

	// 実在の "other"/"unknown" は独立した指標列のまま、rare な milky は <other> に入る
	assert.Equal(t, []string{
		"x", "quality_group=good", "quality_group=other", "quality_group=unknown", "quality_group=<other>",
	}, enc.FeatureNames())

	row := func(level string) table.Row {
		return table.Row{"id": table.V("t"), "x": table.V("1"), "quality_group": table.V(level)}
	}
	X, err := enc.Transform(smallTable(t, kinds, columns,
		row("salty"), row("unknown"), row("milky"), row("other"),
	))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0, 0, 0, 0}, mat.Row(nil, 0, X))
	assert.Equal(t, []float64{1, 0, 0, 1, 0}, mat.Row(nil, 1, X))
	assert.Equal(t, []float64{1, 0, 0, 0, 1}, mat.Row(nil, 2, X))
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, mat.Row(nil, 3, X))
}

func TestOneHotEncoderRejectsReservedLevel(t *testing.T) {
	tbl := smallTable(t, nil, []string{"id", "quality_group", "status_group"},
		table.Row{"id": table.V("1"), "quality_group": table.V("good")},
		table.Row{"id": table.V("2"), "quality_group": table.V(UnknownLevel)},
	)
	err := NewOneHotEncoder(DefaultEncoderOptions(DefaultConfig())).Fit(tbl)

	var validationErr *errors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "quality_group", validationErr.ParamName)
	assert.Equal(t, UnknownLevel, validationErr.Value)
}

func TestOneHotEncoderScaling(t *testing.T) {
	enc := NewOneHotEncoder(DefaultEncoderOptions(DefaultConfig()))
	X, err := enc.FitTransform(encoderTable(t))
	require.NoError(t, err)

	_, c := X.Dims()
	col := make([]float64, 100)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		var mean float64
		for _, v := range col {
			mean += v
		}
		assert.InDelta(t, 0, mean/100, 1e-9)
	}
}

func TestOneHotEncoderErrors(t *testing.T) {
	enc := NewOneHotEncoder(DefaultEncoderOptions(DefaultConfig()))
	_, err := enc.Transform(encoderTable(t))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	bad := DefaultEncoderOptions(DefaultConfig())
	bad.Scaling = "robust"
	assert.Error(t, NewOneHotEncoder(bad).Fit(encoderTable(t)))

	require.NoError(t, enc.Fit(encoderTable(t)))
	_, err = enc.Transform(smallTable(t, nil, []string{"id"}, table.Row{"id": table.V("1")}))
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardScaler(true, true)
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, -1.3416407865, out.At(0, 0), 1e-9)
	// 定数列はスケール1
	assert.Equal(t, 1.0, s.Scale[1])
	assert.Equal(t, 0.0, out.At(2, 1))

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{10, 20, 30})
	m := NewMinMaxScaler([2]float64{0, 1})
	out, err := m.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, out))

	_, err = NewMinMaxScaler([2]float64{0, 1}).Transform(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}

func TestVarianceThreshold(t *testing.T) {
	X := mat.NewDense(3, 3, []float64{
		1, 0, 7,
		2, 0, 7,
		3, 1, 7,
	})
	v := NewVarianceThreshold(0)
	out, err := v.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, v.Support())
	_, c := out.Dims()
	assert.Equal(t, 2, c)
	assert.Zero(t, v.Variances[2])
}
