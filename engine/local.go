package engine

import (
	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/row"
	"github.com/ab180/regroup/shuffle"
)

// localAggregate folds the rows of the given partitions into one partial
// aggregate state per key. Each key's reducer is cloned from the query's
// prototype, so no state is shared across keys or workers.
func (r *run) localAggregate(pp []partitions.Partition) ([]shuffle.Item, error) {
	index := make(map[string]int)
	var items []shuffle.Item
	for _, p := range pp {
		for _, rw := range p.Rows {
			key := r.plan.KeyOf(rw)
			i, ok := index[key]
			if !ok {
				items = append(items, shuffle.Item{
					Key:        key,
					KeyColumns: r.plan.KeyColumnsOf(rw),
					State:      reduce.NewFromPrototype(r.proto),
				})
				i = len(items) - 1
				index[key] = i
			}
			if err := items[i].State.Reduce(rw); err != nil {
				return nil, &reduce.ReductionError{Key: key, Cause: err}
			}
		}
	}
	r.metrics.AddMetric("RowsRead", int64(partitions.NumRows(pp)))
	r.metrics.AddMetric("LocalKeys", int64(len(items)))
	return items, nil
}

// groupLocal buckets raw rows by key without aggregating them. It is used on
// the arbitrary-function path, where the reduction cannot be decomposed and
// whole records must reach the key's destination worker.
func (r *run) groupLocal(pp []partitions.Partition) ([]shuffle.Item, error) {
	index := make(map[string]int)
	var items []shuffle.Item
	for _, p := range pp {
		for _, rw := range p.Rows {
			key := r.plan.KeyOf(rw)
			i, ok := index[key]
			if !ok {
				items = append(items, shuffle.Item{
					Key:        key,
					KeyColumns: r.plan.KeyColumnsOf(rw),
				})
				i = len(items) - 1
				index[key] = i
			}
			items[i].Rows = append(items[i].Rows, rw)
		}
	}
	r.metrics.AddMetric("RowsRead", int64(partitions.NumRows(pp)))
	r.metrics.AddMetric("LocalKeys", int64(len(items)))
	return items, nil
}

// aggregateWhole aggregates and finalizes a single partition in place,
// for the indexed fast path.
func (r *run) aggregateWhole(p partitions.Partition) (partitions.Partition, error) {
	var (
		rows []row.Row
		err  error
	)
	if r.plan.Reduction.Func != nil {
		var items []shuffle.Item
		items, err = r.groupLocal([]partitions.Partition{p})
		if err == nil {
			rows, err = r.applyFunc(items)
		}
	} else {
		var items []shuffle.Item
		items, err = r.localAggregate([]partitions.Partition{p})
		if err == nil {
			rows, err = r.finalizeItems(items)
		}
	}
	if err != nil {
		return partitions.Partition{}, err
	}
	return partitions.Partition{ID: p.ID, Rows: rows}, nil
}
