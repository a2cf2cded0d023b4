package model_selection

import (
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// Partition is the train/test split of a clean table plus the stratified
// folds of its training subset. Accessors return row references into the
// table, never row copies.
type Partition struct {
	table *table.Table
	train []table.RowRef
	test  []table.RowRef
	folds [][]table.RowRef

	Seed         int64
	StrataColumn string
}

// NewPartition splits t and folds the training refs.
func NewPartition(t *table.Table, split SplitOptions, fold FoldOptions) (*Partition, error) {
	train, test, err := Split(t, split)
	if err != nil {
		return nil, err
	}
	folds, err := KFold(t, train, fold)
	if err != nil {
		return nil, err
	}
	return &Partition{
		table:        t,
		train:        train,
		test:         test,
		folds:        folds,
		Seed:         split.Seed,
		StrataColumn: split.StrataColumn,
	}, nil
}

// Table returns the table the references point into.
func (p *Partition) Table() *table.Table {
	return p.table
}

// Train returns the training refs in ascending order.
func (p *Partition) Train() []table.RowRef {
	return cloneRefs(p.train)
}

// Test returns the held-out refs in ascending order.
func (p *Partition) Test() []table.RowRef {
	return cloneRefs(p.test)
}

// K returns the number of folds.
func (p *Partition) K() int {
	return len(p.folds)
}

// Folds returns the held-out refs of each fold.
func (p *Partition) Folds() [][]table.RowRef {
	out := make([][]table.RowRef, len(p.folds))
	for i, f := range p.folds {
		out[i] = cloneRefs(f)
	}
	return out
}

// FoldTrain returns the training refs outside fold i.
func (p *Partition) FoldTrain(i int) ([]table.RowRef, error) {
	if i < 0 || i >= len(p.folds) {
		return nil, errors.NewValidationError("fold", "index out of range", i)
	}
	held := make(map[table.RowRef]bool, len(p.folds[i]))
	for _, ref := range p.folds[i] {
		held[ref] = true
	}
	out := make([]table.RowRef, 0, len(p.train)-len(p.folds[i]))
	for _, ref := range p.train {
		if !held[ref] {
			out = append(out, ref)
		}
	}
	return out, nil
}

// FoldTest returns the held-out refs of fold i.
func (p *Partition) FoldTest(i int) ([]table.RowRef, error) {
	if i < 0 || i >= len(p.folds) {
		return nil, errors.NewValidationError("fold", "index out of range", i)
	}
	return cloneRefs(p.folds[i]), nil
}

// Summary reports sizes and per-level proportions for diagnostics.
type Summary struct {
	Train            int                `json:"train"`
	Test             int                `json:"test"`
	FoldSizes        []int              `json:"fold_sizes"`
	TrainProportions map[string]float64 `json:"train_proportions"`
	TestProportions  map[string]float64 `json:"test_proportions"`
}

// Summary computes a Summary.
func (p *Partition) Summary() Summary {
	sizes := make([]int, len(p.folds))
	for i, f := range p.folds {
		sizes[i] = len(f)
	}
	return Summary{
		Train:            len(p.train),
		Test:             len(p.test),
		FoldSizes:        sizes,
		TrainProportions: Proportions(p.table, p.train, p.StrataColumn),
		TestProportions:  Proportions(p.table, p.test, p.StrataColumn),
	}
}

func cloneRefs(refs []table.RowRef) []table.RowRef {
	out := make([]table.RowRef, len(refs))
	copy(out, refs)
	return out
}
