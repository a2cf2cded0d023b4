package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("validate", "construction_year")

	assert.Equal(t, "pumpprep: validate: required column 'construction_year' is absent from the input schema", err.Error())

	var schemaErr *SchemaError
	require.True(t, As(err, &schemaErr))
	assert.Equal(t, "construction_year", schemaErr.Column)
	assert.Equal(t, "validate", schemaErr.Stage)

	// スタックトレースの存在確認
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func TestNewDataInsufficientError(t *testing.T) {
	err := NewDataInsufficientError("fold", "non functional", 3, 5)

	assert.Equal(t, "pumpprep: fold: level 'non functional' has 3 rows, at least 5 required", err.Error())

	var insufficient *DataInsufficientError
	require.True(t, As(err, &insufficient))
	assert.Equal(t, "non functional", insufficient.Level)
	assert.Equal(t, 3, insufficient.Have)
	assert.Equal(t, 5, insufficient.Need)
}

func TestValidationErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "config parameter",
			err:     NewValidationError("train_fraction", "must be in (0, 1)", 1.5),
			wantMsg: "pumpprep: validation failed for parameter 'train_fraction': must be in (0, 1) (got: 1.5)",
		},
		{
			name:    "column predicate",
			err:     NewFieldValidationError("population_filter", "population", "not a number", "many"),
			wantMsg: "pumpprep: population_filter: validation failed for column 'population': not a number (got: many)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			var validationErr *ValidationError
			assert.True(t, As(tt.err, &validationErr))
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	inner := New("boom")
	err := NewModelError("bench.fit", "fold 2", inner)

	assert.Equal(t, "pumpprep: bench.fit: fold 2: boom", err.Error())
	assert.True(t, Is(err, inner))
}

func TestWrapKeepsType(t *testing.T) {
	err := Wrap(NewSchemaError("validate", "id"), "loading pumps.csv")

	var schemaErr *SchemaError
	require.True(t, As(err, &schemaErr))
	assert.True(t, strings.HasPrefix(err.Error(), "loading pumps.csv: "))
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().EmbedObject(&DataInsufficientError{Stage: "split", Level: "functional", Have: 1, Need: 2}).Msg("failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DataInsufficientError", entry["type"])
	assert.Equal(t, "functional", entry["level"])
	assert.Equal(t, 2.0, entry["need"])
}

func TestWarnUsesZerologFunc(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("roc_auc", "a single class in y_true", 0.5))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "roc_auc")
}

func TestWarnFallsBackToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })

	Warn(NewDataConversionWarning("population", "missing", "mean", "imputed from training rows"))

	require.Len(t, got, 1)
	assert.Equal(t, "column 'population': data converted from missing to mean. Reason: imputed from training rows", got[0].Error())
}

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "bench.fit")
			panic("index out of range")
		}

		err := fn()
		var panicErr *PanicError
		require.True(t, As(err, &panicErr))
		assert.Equal(t, "bench.fit", panicErr.Operation)
		assert.Equal(t, "panic in bench.fit: index out of range", panicErr.Error())
		assert.NotEmpty(t, panicErr.StackTrace)
	})

	t.Run("no panic keeps nil", func(t *testing.T) {
		err := SafeExecute("noop", func() error { return nil })
		assert.NoError(t, err)
	})

	t.Run("existing error is kept", func(t *testing.T) {
		original := fmt.Errorf("original")
		fn := func() (err error) {
			defer Recover(&err, "op")
			err = original
			panic("late")
		}

		err := fn()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in op: late")
		assert.True(t, Is(err, original))
	})
}

func TestCheckProbabilities(t *testing.T) {
	ok := probs{0, 0.25, 1}
	assert.NoError(t, CheckProbabilities("predict_proba", ok))

	bad := probs{0.1, 1.2}
	err := CheckProbabilities("predict_proba", bad)
	var instability *NumericalInstabilityError
	require.True(t, As(err, &instability))
	assert.Equal(t, 1, instability.Row)
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 0.5, SafeDivide(1, 2))
	assert.Equal(t, 1.0, ClipValue(3, 0, 1))
}

type probs []float64

func (p probs) At(i, _ int) float64 { return p[i] }
func (p probs) Dims() (int, int)     { return len(p), 1 }
