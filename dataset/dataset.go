// Package dataset loads raw water-point records into a table.Table.
//
// Every loader keeps values as text. Tokens that mean "not available" become
// missing values; sentinel values such as "0" are left alone because the
// preparation pipeline decides which columns they apply to.
package dataset

import (
	"context"

	"github.com/YuminosukeSato/pumpprep/core/table"
)

// DefaultNAValues are always read as missing.
var DefaultNAValues = []string{"", "NA", "NaN", "<nil>"}

// Source produces a raw table.
type Source interface {
	Load(ctx context.Context) (*table.Table, error)
	// Name identifies the source in logs.
	Name() string
}

func naSet(extra []string) []string {
	seen := make(map[string]bool, len(DefaultNAValues)+len(extra))
	var out []string
	for _, tok := range append(append([]string(nil), DefaultNAValues...), extra...) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
