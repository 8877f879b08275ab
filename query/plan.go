package query

import (
	"fmt"
	"strings"

	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/row"
	"github.com/samber/lo"
)

// keySeparator joins formatted group column values into a single routing key.
const keySeparator = "\x1f"

// Reduction identifies what to compute per group: either a built-in
// associative aggregate by name, or an opaque user function.
type Reduction struct {
	// Aggregate is a built-in aggregate name (sum, count, mean, min, max,
	// nunique). Ignored when Func is set.
	Aggregate string

	// Column is the value column the built-in aggregate reads.
	// Not required for count.
	Column string

	// Func is an arbitrary user reduction. When set, raw records are shuffled
	// and the function is applied once per key after the exchange.
	Func reduce.GroupFunc

	// As overrides the result column name. Defaults to the aggregate name,
	// or "result" for user functions.
	As string
}

// ResultColumn returns the column name final result rows carry the aggregate
// value under.
func (r Reduction) ResultColumn() string {
	if r.As != "" {
		return r.As
	}
	if r.Func != nil {
		return "result"
	}
	return r.Aggregate
}

// Layout is the caller-supplied claim about how input partitions are already
// organized. It is trusted as accurate and never verified: a caller lying
// about pre-partitioning produces silently wrong results on the fast path.
type Layout struct {
	// PartitionedBy names the columns the input is currently partitioned by,
	// if any: all rows sharing a value tuple of these columns reside in a
	// single partition.
	PartitionedBy []string

	// Sorted reports whether each partition is sorted by PartitionedBy.
	Sorted bool
}

// Plan describes one groupby/aggregation query.
type Plan struct {
	// GroupColumns are the columns whose value tuple forms the group key.
	GroupColumns []string

	Reduction Reduction

	Layout Layout

	// KnownKeys optionally enumerates every group key value in the dataset.
	// When set, keys are routed with a finite-key assignment instead of
	// hashing; a key outside the set fails the query.
	KnownKeys []string
}

// Validate resolves the plan against the dataset schema before execution.
// It fails with a ConfigurationError on unresolvable columns or a bad
// reduction spec.
func (p Plan) Validate(schema []string) error {
	if len(p.GroupColumns) == 0 {
		return &ConfigurationError{Reason: "no grouping columns given"}
	}
	missing := lo.Filter(p.GroupColumns, func(c string, _ int) bool {
		return !lo.Contains(schema, c)
	})
	if len(missing) > 0 {
		return &ConfigurationError{
			Reason:  "grouping columns not found in schema",
			Columns: missing,
		}
	}
	if p.Reduction.Func != nil {
		return nil
	}
	if _, err := reduce.NewByName(p.Reduction.Aggregate, p.Reduction.Column); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}
	if p.Reduction.Column != "" && !lo.Contains(schema, p.Reduction.Column) {
		return &ConfigurationError{
			Reason:  "value column not found in schema",
			Columns: []string{p.Reduction.Column},
		}
	}
	return nil
}

// KeyOf extracts the group key of a row: the group column values formatted
// and joined with an unprintable separator. Original column values are
// carried separately (KeyColumnsOf), so result rows keep typed columns.
func (p Plan) KeyOf(r row.Row) string {
	parts := make([]string, len(p.GroupColumns))
	for i, c := range p.GroupColumns {
		parts[i] = fmt.Sprint(r[c])
	}
	return strings.Join(parts, keySeparator)
}

// KeyColumnsOf extracts the group columns of a row with their original
// values and types.
func (p Plan) KeyColumnsOf(r row.Row) row.Row {
	cols := make(row.Row, len(p.GroupColumns))
	for _, c := range p.GroupColumns {
		cols[c] = r[c]
	}
	return cols
}

// SchemaOf infers the column set of a dataset by scanning the rows of the
// given partitions.
func SchemaOf(pp []partitions.Partition) []string {
	seen := make(map[string]struct{})
	var schema []string
	for _, p := range pp {
		for _, r := range p.Rows {
			for c := range r {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					schema = append(schema, c)
				}
			}
		}
	}
	return schema
}
