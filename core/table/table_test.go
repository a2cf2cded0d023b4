package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

func newPumps(t *testing.T) *Table {
	t.Helper()
	tbl, err := New([]string{"id", "population", "status_group"},
		WithKinds(map[string]Kind{"id": KindIdentifier, "population": KindNumeric}))
	require.NoError(t, err)
	require.NoError(t, tbl.Append(Row{"id": V("1"), "population": V("120"), "status_group": V("functional")}))
	require.NoError(t, tbl.Append(Row{"id": V("2"), "status_group": V("non functional")}))
	require.NoError(t, tbl.Append(Row{"id": V("3"), "population": V("0"), "status_group": V("functional")}))
	return tbl
}

func TestNewRejectsBadSchemas(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{"id", "id"})
	var validationErr *errors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "id", validationErr.Value)
}

func TestAppendFillsMissingAndRejectsUnknown(t *testing.T) {
	tbl := newPumps(t)

	assert.True(t, tbl.Row(1).Get("population").Missing)
	assert.Equal(t, 3, tbl.Len())

	err := tbl.Append(Row{"lga": V("Ludewa")})
	assert.Error(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestKinds(t *testing.T) {
	tbl := newPumps(t)

	assert.Equal(t, KindIdentifier, tbl.Kind("id"))
	assert.Equal(t, KindNumeric, tbl.Kind("population"))
	assert.Equal(t, KindCategorical, tbl.Kind("status_group"))
	assert.Equal(t, []string{"status_group"}, tbl.ColumnsOfKind(KindCategorical))
	assert.Equal(t, "numeric", KindNumeric.String())
}

func TestFilterSharesRows(t *testing.T) {
	tbl := newPumps(t)

	out, err := tbl.Filter(func(r Row) (bool, error) {
		return r.Get("status_group").Raw == "functional", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, KindNumeric, out.Kind("population"))
}

func TestFilterPropagatesError(t *testing.T) {
	tbl := newPumps(t)
	boom := errors.New("boom")

	_, err := tbl.Filter(func(Row) (bool, error) { return false, boom })
	assert.True(t, errors.Is(err, boom))
}

func TestMapDoesNotTouchInput(t *testing.T) {
	tbl := newPumps(t)

	out, err := tbl.Map(func(r Row) (Row, error) {
		c := r.Clone()
		c["population"] = Missing()
		return c, nil
	})
	require.NoError(t, err)
	assert.True(t, out.Row(0).Get("population").Missing)
	assert.Equal(t, "120", tbl.Row(0).Get("population").Raw)
}

func TestDrop(t *testing.T) {
	tbl := newPumps(t)

	out := tbl.Drop("population", "not_there")
	assert.Equal(t, []string{"id", "status_group"}, out.Columns())
	assert.False(t, out.Has("population"))
	_, present := out.Row(0)["population"]
	assert.False(t, present)
	assert.True(t, tbl.Has("population"))
}

func TestSubsetAndCounts(t *testing.T) {
	tbl := newPumps(t)

	sub := tbl.Subset([]RowRef{2, 0})
	assert.Equal(t, "3", sub.Row(0).Get("id").Raw)
	assert.Equal(t, map[string]int{"functional": 2}, sub.Counts("status_group", false))
	assert.Equal(t, map[string]int{"120": 1, "0": 1, "": 1}, tbl.Counts("population", true))
}

func TestWithDomainsSorts(t *testing.T) {
	tbl := newPumps(t).WithDomains(map[string][]string{
		"status_group": {"non functional", "functional"},
		"ghost":        {"x"},
	})

	assert.Equal(t, []string{"functional", "non functional"}, tbl.Domain("status_group"))
	assert.Nil(t, tbl.Domain("ghost"))
	assert.Equal(t, []string{"functional", "non functional"}, tbl.Drop("id").Domain("status_group"))
}

func TestValues(t *testing.T) {
	tbl := newPumps(t)

	vals, err := tbl.Values("population")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	f, err := vals[0].Float()
	require.NoError(t, err)
	assert.Equal(t, 120.0, f)
	_, err = vals[1].Float()
	assert.Error(t, err)
	assert.Equal(t, "NA", vals[1].String())

	_, err = tbl.Values("gps_height")
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}
