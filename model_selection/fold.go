package model_selection

import (
	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

const foldStream uint64 = 0xbf58476d1ce4e5b9

// DefaultFolds is the number of cross-validation folds.
const DefaultFolds = 5

// FoldOptions configures KFold.
type FoldOptions struct {
	Seed         int64
	StrataColumn string
	K            int
}

// Validate checks the options.
func (o FoldOptions) Validate() error {
	if o.StrataColumn == "" {
		return errors.NewValidationError("strata_column", "must be set", o.StrataColumn)
	}
	if o.K < 2 {
		return errors.NewValidationError("folds", "must be at least 2", o.K)
	}
	return nil
}

// KFold deals refs into K stratified folds. Each stratum is shuffled and
// dealt round-robin; the dealing position carries over between strata so
// fold sizes differ by at most one and each fold's stratum counts differ by
// at most one. Every ref lands in exactly one fold; each fold is sorted.
//
// Every stratum needs at least K rows, otherwise some fold would miss it
// and KFold fails with DataInsufficientError.
func KFold(t *table.Table, refs []table.RowRef, opts FoldOptions) ([][]table.RowRef, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	own := make([]table.RowRef, len(refs))
	copy(own, refs)
	s, err := groupByStratum("fold", t, own, opts.StrataColumn)
	if err != nil {
		return nil, err
	}
	if len(s.levels) == 0 {
		return nil, errors.NewValueError("fold", "no rows to fold")
	}

	r := newRand(opts.Seed, foldStream)
	folds := make([][]table.RowRef, opts.K)
	pos := 0
	for _, level := range s.levels {
		group := s.groups[level]
		if len(group) < opts.K {
			return nil, errors.NewDataInsufficientError("fold", level, len(group), opts.K)
		}
		shuffle(r, group)
		for _, ref := range group {
			folds[pos%opts.K] = append(folds[pos%opts.K], ref)
			pos++
		}
	}
	for i := range folds {
		sortRefs(folds[i])
	}
	return folds, nil
}
