package preprocessing

import (
	"strings"

	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// RequiredFieldFilter drops rows that are missing any of Columns. Blank
// text counts as missing.
type RequiredFieldFilter struct {
	Columns []string
}

// Name returns "required_filter".
func (f *RequiredFieldFilter) Name() string { return "required_filter" }

// Apply implements model.Stage.
func (f *RequiredFieldFilter) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	for _, col := range f.Columns {
		if !t.Has(col) {
			return nil, model.StageReport{Stage: f.Name(), RowsIn: t.Len()}, errors.NewSchemaError(f.Name(), col)
		}
	}
	return filterStage(f.Name(), t, func(row table.Row) (bool, error) {
		for _, col := range f.Columns {
			if isBlank(row.Get(col)) {
				return false, nil
			}
		}
		return true, nil
	})
}

// StatusFilter keeps rows whose trimmed status is exactly one of Levels,
// matching the trimming CategoricalNormalizer applies afterwards. Every
// other label, including "functional needs repair", is excluded rather
// than merged into a kept level.
type StatusFilter struct {
	Column string
	Levels []string
}

// Name returns "status_filter".
func (f *StatusFilter) Name() string { return "status_filter" }

// Apply implements model.Stage.
func (f *StatusFilter) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	if !t.Has(f.Column) {
		return nil, model.StageReport{Stage: f.Name(), RowsIn: t.Len()}, errors.NewSchemaError(f.Name(), f.Column)
	}
	keep := toSet(f.Levels)
	return filterStage(f.Name(), t, func(row table.Row) (bool, error) {
		v := row.Get(f.Column)
		return !v.Missing && keep[strings.TrimSpace(v.Raw)], nil
	})
}

// PopulationFilter keeps rows whose population is strictly greater than
// Min. A missing population cannot satisfy the predicate and is dropped;
// a present value that is not a number is a ValidationError.
type PopulationFilter struct {
	Column string
	Min    float64
}

// Name returns "population_filter".
func (f *PopulationFilter) Name() string { return "population_filter" }

// Apply implements model.Stage.
func (f *PopulationFilter) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	if !t.Has(f.Column) {
		return nil, model.StageReport{Stage: f.Name(), RowsIn: t.Len()}, errors.NewSchemaError(f.Name(), f.Column)
	}
	return filterStage(f.Name(), t, func(row table.Row) (bool, error) {
		v := row.Get(f.Column)
		if isBlank(v) {
			return false, nil
		}
		pop, err := v.Float()
		if err != nil {
			return false, errors.NewFieldValidationError(f.Name(), f.Column, "population is not a number", v.Raw)
		}
		return pop > f.Min, nil
	})
}

// ColumnProjection removes Columns from the schema. Naming a column that
// does not exist is a SchemaError so a renamed input cannot silently keep
// a column that was meant to go.
type ColumnProjection struct {
	Columns []string
}

// Name returns "projection".
func (p *ColumnProjection) Name() string { return "projection" }

// Apply implements model.Stage.
func (p *ColumnProjection) Apply(t *table.Table) (*table.Table, model.StageReport, error) {
	report := model.StageReport{Stage: p.Name(), RowsIn: t.Len()}
	for _, col := range p.Columns {
		if !t.Has(col) {
			return nil, report, errors.NewSchemaError(p.Name(), col)
		}
	}
	out := t.Drop(p.Columns...)
	report.RowsOut = out.Len()
	return out, report, nil
}

func filterStage(name string, t *table.Table, keep func(table.Row) (bool, error)) (*table.Table, model.StageReport, error) {
	report := model.StageReport{Stage: name, RowsIn: t.Len()}
	out, err := t.Filter(keep)
	if err != nil {
		return nil, report, err
	}
	report.RowsOut = out.Len()
	report.Dropped = report.RowsIn - report.RowsOut
	return out, report, nil
}

func isBlank(v table.Value) bool {
	return v.Missing || strings.TrimSpace(v.Raw) == ""
}
