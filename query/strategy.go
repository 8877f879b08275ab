package query

import (
	"sort"
)

// Strategy is one of the three execution paths of a groupby query, ordered
// by increasing data movement.
type Strategy int

const (
	// StrategyIndexed applies the local aggregator per partition with no
	// shuffle. Usable only when the grouping columns already define the
	// partitioning key and partitions are sorted by it.
	StrategyIndexed Strategy = iota

	// StrategyAggregate partially aggregates per partition, shuffles the
	// much smaller partial states, then merges them per key.
	StrategyAggregate

	// StrategyFunc shuffles raw records and applies an opaque user function
	// once every record of a key has arrived. The reduction cannot be
	// decomposed, so raw data must move.
	StrategyFunc
)

func (s Strategy) String() string {
	switch s {
	case StrategyIndexed:
		return "indexed"
	case StrategyAggregate:
		return "aggregate"
	case StrategyFunc:
		return "func"
	}
	return "unknown"
}

// SelectStrategy picks the execution path for a validated plan.
func SelectStrategy(p Plan) Strategy {
	if p.Layout.Sorted && sameColumns(p.Layout.PartitionedBy, p.GroupColumns) {
		return StrategyIndexed
	}
	if p.Reduction.Func != nil {
		return StrategyFunc
	}
	return StrategyAggregate
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
