package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

func smallTable(t *testing.T, kinds map[string]table.Kind, columns []string, rows ...table.Row) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, table.WithKinds(kinds))
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, tbl.Append(r))
	}
	return tbl
}

func TestSentinelNormalizer(t *testing.T) {
	kinds := map[string]table.Kind{"latitude": table.KindNumeric}
	tbl := smallTable(t, kinds, []string{"latitude", "scheme"},
		table.Row{"latitude": table.V("0"), "scheme": table.V("0")},
		table.Row{"latitude": table.V(" -0.0 "), "scheme": table.V("0.0")},
		table.Row{"latitude": table.V("-9.85"), "scheme": table.Missing()},
	)

	s := NewSentinelNormalizer("numeric_sentinel", []string{"latitude", "scheme"}, "0")
	out, report, err := s.Apply(tbl)
	require.NoError(t, err)

	assert.True(t, out.Row(0).Get("latitude").Missing)
	assert.True(t, out.Row(1).Get("latitude").Missing)
	assert.Equal(t, table.V("-9.85"), out.Row(2).Get("latitude"))

	// カテゴリ列では文字列として一致した場合のみ置き換える
	assert.True(t, out.Row(0).Get("scheme").Missing)
	assert.Equal(t, table.V("0.0"), out.Row(1).Get("scheme"))

	assert.Equal(t, 3, report.ValuesReplaced)
	assert.Equal(t, 3, report.RowsOut)

	// 入力は変更されない
	assert.Equal(t, table.V("0"), tbl.Row(0).Get("latitude"))
}

func TestSentinelNormalizerSchemaError(t *testing.T) {
	tbl := smallTable(t, nil, []string{"a"}, table.Row{"a": table.V("1")})
	_, _, err := NewSentinelNormalizer("year_sentinel", []string{"construction_year"}, "0").Apply(tbl)

	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "year_sentinel", schemaErr.Stage)
	assert.Equal(t, "construction_year", schemaErr.Column)
}

func TestStatusFilter(t *testing.T) {
	tbl := smallTable(t, nil, []string{"status_group"},
		table.Row{"status_group": table.V("functional")},
		table.Row{"status_group": table.V("Functional")},
		table.Row{"status_group": table.V("functional needs repair")},
		table.Row{"status_group": table.V("non functional")},
		table.Row{"status_group": table.V("functional ")},
		table.Row{"status_group": table.Missing()},
	)
	f := &StatusFilter{Column: "status_group", Levels: []string{"functional", "non functional"}}
	out, report, err := f.Apply(tbl)
	require.NoError(t, err)

	// 前後の空白は無視するが、大文字小文字は区別する
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 3, report.Dropped)
}

func TestColumnProjection(t *testing.T) {
	tbl := smallTable(t, nil, []string{"a", "b", "c"}, table.Row{"a": table.V("1"), "b": table.V("2"), "c": table.V("3")})

	out, _, err := (&ColumnProjection{Columns: []string{"b"}}).Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.Columns())

	_, _, err = (&ColumnProjection{Columns: []string{"z"}}).Apply(tbl)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestCategoricalNormalizer(t *testing.T) {
	kinds := map[string]table.Kind{"id": table.KindIdentifier, "population": table.KindNumeric}
	tbl := smallTable(t, kinds, []string{"id", "population", "installer"},
		table.Row{"id": table.V(" 7 "), "population": table.V("10"), "installer": table.V(" RWE")},
		table.Row{"id": table.V("8"), "population": table.V("12"), "installer": table.V("DWE")},
		table.Row{"id": table.V("9"), "population": table.Missing(), "installer": table.V("   ")},
	)

	out, report, err := (&CategoricalNormalizer{}).Apply(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"DWE", "RWE"}, out.Domain("installer"))
	assert.Equal(t, table.V("RWE"), out.Row(0).Get("installer"))
	assert.True(t, out.Row(2).Get("installer").Missing)
	assert.Equal(t, table.V(" 7 "), out.Row(0).Get("id"))
	assert.Nil(t, out.Domain("id"))
	assert.Equal(t, 2, report.ValuesReplaced)
}

func TestCategoricalNormalizerRejectsBadNumber(t *testing.T) {
	kinds := map[string]table.Kind{"gps_height": table.KindNumeric}
	tbl := smallTable(t, kinds, []string{"gps_height"}, table.Row{"gps_height": table.V("high")})

	_, _, err := (&CategoricalNormalizer{}).Apply(tbl)
	var validationErr *errors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "categorical", validationErr.Stage)
	assert.Equal(t, "gps_height", validationErr.ParamName)
}
