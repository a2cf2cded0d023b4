package model_selection

import (
	"math"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// splitStream keeps the split shuffle independent of the fold shuffle for the same seed.
const splitStream uint64 = 0x9e3779b97f4a7c15

// DefaultTrainFraction is the share of each stratum assigned to training.
const DefaultTrainFraction = 0.75

// SplitOptions configures Split.
type SplitOptions struct {
	Seed          int64
	StrataColumn  string
	TrainFraction float64
}

// Validate checks the options.
func (o SplitOptions) Validate() error {
	if o.StrataColumn == "" {
		return errors.NewValidationError("strata_column", "must be set", o.StrataColumn)
	}
	if !(o.TrainFraction > 0 && o.TrainFraction < 1) {
		return errors.NewValidationError("train_fraction", "must be in (0, 1)", o.TrainFraction)
	}
	return nil
}

// Split assigns every row of t to either train or test, stratified on
// opts.StrataColumn. Within each stratum round(n*TrainFraction) rows, clamped
// so both sides receive at least one, go to train. Both slices are sorted.
//
// A stratum with fewer than two rows cannot appear on both sides and fails
// with DataInsufficientError.
func Split(t *table.Table, opts SplitOptions) (train, test []table.RowRef, err error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	s, err := groupByStratum("split", t, AllRefs(t), opts.StrataColumn)
	if err != nil {
		return nil, nil, err
	}
	if len(s.levels) == 0 {
		return nil, nil, errors.NewValueError("split", "table has no rows")
	}

	r := newRand(opts.Seed, splitStream)
	train = make([]table.RowRef, 0, int(float64(t.Len())*opts.TrainFraction)+len(s.levels))
	test = make([]table.RowRef, 0, t.Len()/4+len(s.levels))
	for _, level := range s.levels {
		group := s.groups[level]
		n := len(group)
		if n < 2 {
			return nil, nil, errors.NewDataInsufficientError("split", level, n, 2)
		}
		nTrain := TrainCount(n, opts.TrainFraction)
		shuffle(r, group)
		train = append(train, group[:nTrain]...)
		test = append(test, group[nTrain:]...)
	}
	sortRefs(train)
	sortRefs(test)
	return train, test, nil
}

// TrainCount is the number of rows of an n-row stratum that Split assigns
// to train.
func TrainCount(n int, fraction float64) int {
	nTrain := int(math.Round(float64(n) * fraction))
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain > n-1 {
		nTrain = n - 1
	}
	return nTrain
}

// MinStratumRows is the smallest stratum size that survives Split with the
// given fraction and still leaves k training rows for KFold.
func MinStratumRows(fraction float64, k int) int {
	n := 2
	for TrainCount(n, fraction) < k {
		n++
	}
	return n
}
