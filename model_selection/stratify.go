// Package model_selection partitions a clean table into stratified
// train/test subsets and stratified cross-validation folds.
//
// Every function takes its seed explicitly. Nothing here reads or writes a
// process-wide random source, so results depend only on the table, the
// references, and the options.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// strata groups refs by the value of column. Levels come back sorted so the
// order in which groups consume the random stream is fixed.
type strata struct {
	levels []string
	groups map[string][]table.RowRef
}

func groupByStratum(stage string, t *table.Table, refs []table.RowRef, column string) (*strata, error) {
	if !t.Has(column) {
		return nil, errors.NewSchemaError(stage, column)
	}
	s := &strata{groups: make(map[string][]table.RowRef)}
	for _, ref := range refs {
		if int(ref) < 0 || int(ref) >= t.Len() {
			return nil, errors.NewFieldValidationError(stage, column, "row reference out of range", int(ref))
		}
		v := t.Row(ref).Get(column)
		if v.Missing {
			return nil, errors.NewFieldValidationError(stage, column, "stratum value is missing", int(ref))
		}
		if _, seen := s.groups[v.Raw]; !seen {
			s.levels = append(s.levels, v.Raw)
		}
		s.groups[v.Raw] = append(s.groups[v.Raw], ref)
	}
	sort.Strings(s.levels)
	for _, level := range s.levels {
		g := s.groups[level]
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
	}
	return s, nil
}

// newRand returns a PCG source for seed. stream separates independent uses
// of the same seed (split vs. fold).
func newRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^stream))
}

func shuffle(r *rand.Rand, refs []table.RowRef) {
	r.Shuffle(len(refs), func(i, j int) {
		refs[i], refs[j] = refs[j], refs[i]
	})
}

func sortRefs(refs []table.RowRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
}

// AllRefs returns references to every row of t in order.
func AllRefs(t *table.Table) []table.RowRef {
	refs := make([]table.RowRef, t.Len())
	for i := range refs {
		refs[i] = table.RowRef(i)
	}
	return refs
}

// Proportions returns the share of each stratum level among refs.
func Proportions(t *table.Table, refs []table.RowRef, column string) map[string]float64 {
	out := make(map[string]float64)
	if len(refs) == 0 {
		return out
	}
	for _, ref := range refs {
		v := t.Row(ref).Get(column)
		if v.Missing {
			continue
		}
		out[v.Raw]++
	}
	for k := range out {
		out[k] /= float64(len(refs))
	}
	return out
}
