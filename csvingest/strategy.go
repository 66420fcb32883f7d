package csvingest

import (
	"regexp"
	"strings"
)

// IDColumnStrategy proposes the identifier column for a header.
type IDColumnStrategy interface {
	Name() string
	Resolve(columns []string) (string, bool)
}

// StrategyFunc adapts a function into an IDColumnStrategy.
type StrategyFunc struct {
	Label string
	Fn    func(columns []string) (string, bool)
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Resolve(columns []string) (string, bool) { return s.Fn(columns) }

// DefaultStrategies is the identifier resolution order: the deepest
// hierarchy level column, then the first column.
func DefaultStrategies() []IDColumnStrategy {
	return []IDColumnStrategy{DeepestLevel, FirstColumn}
}

var levelColumn = regexp.MustCompile(`(?i)^codice_\d+_livello$`)

// DeepestLevel picks the lexicographically greatest codice_<N>_livello
// column, ignoring case and returning the name as written in the header.
// Comparison is on the full name, so it orders correctly only up to nine
// levels.
var DeepestLevel IDColumnStrategy = StrategyFunc{
	Label: "deepest-level",
	Fn: func(columns []string) (string, bool) {
		best, bestKey := "", ""
		for _, c := range columns {
			if !levelColumn.MatchString(c) {
				continue
			}
			if key := strings.ToLower(c); key > bestKey {
				best, bestKey = c, key
			}
		}
		return best, best != ""
	},
}

// FirstColumn picks the first column of the header, even when its name is
// blank.
var FirstColumn IDColumnStrategy = StrategyFunc{
	Label: "first-column",
	Fn: func(columns []string) (string, bool) {
		if len(columns) == 0 {
			return "", false
		}
		return columns[0], true
	},
}
