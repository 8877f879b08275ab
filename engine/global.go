package engine

import (
	"strconv"

	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/row"
	"github.com/ab180/regroup/shuffle"
)

// globalAggregate merges the partial states addressed to worker w into final
// result rows. Buckets arrive sorted by ascending source index and are folded
// in that order, which fixes the floating-point merge order for a given
// worker count.
func (r *run) globalAggregate(w int, buckets []shuffle.Bucket) (partitions.Partition, error) {
	index := make(map[string]int)
	var merged []shuffle.Item
	for _, b := range buckets {
		items, err := b.Decode(r.codec)
		if err != nil {
			return partitions.Partition{}, err
		}
		for _, it := range items {
			i, ok := index[it.Key]
			if !ok {
				merged = append(merged, it)
				index[it.Key] = len(merged) - 1
				continue
			}
			if err := merged[i].State.Merge(it.State); err != nil {
				return partitions.Partition{}, &reduce.ReductionError{Key: it.Key, Cause: err}
			}
		}
	}
	rows, err := r.finalizeItems(merged)
	if err != nil {
		return partitions.Partition{}, err
	}
	r.metrics.AddMetric("GlobalKeys", int64(len(merged)))
	return partitions.Partition{ID: strconv.Itoa(w), Rows: rows}, nil
}

// globalApply concatenates each key's raw rows from all sources, then applies
// the user function once per key. Rows keep source order: ascending source
// worker index first, then their order within the source partition.
func (r *run) globalApply(w int, buckets []shuffle.Bucket) (partitions.Partition, error) {
	index := make(map[string]int)
	var merged []shuffle.Item
	for _, b := range buckets {
		items, err := b.Decode(r.codec)
		if err != nil {
			return partitions.Partition{}, err
		}
		for _, it := range items {
			i, ok := index[it.Key]
			if !ok {
				merged = append(merged, it)
				index[it.Key] = len(merged) - 1
				continue
			}
			merged[i].Rows = append(merged[i].Rows, it.Rows...)
		}
	}
	rows, err := r.applyFunc(merged)
	if err != nil {
		return partitions.Partition{}, err
	}
	r.metrics.AddMetric("GlobalKeys", int64(len(merged)))
	return partitions.Partition{ID: strconv.Itoa(w), Rows: rows}, nil
}

// finalizeItems turns aggregate states into result rows: the group columns
// of each key plus the aggregate value column.
func (r *run) finalizeItems(items []shuffle.Item) ([]row.Row, error) {
	resultCol := r.plan.Reduction.ResultColumn()
	rows := make([]row.Row, len(items))
	for i, it := range items {
		rows[i] = it.KeyColumns.Merge(row.Row{resultCol: it.State.Result()})
	}
	return rows, nil
}

// applyFunc runs the user reduction once per key, after every row bearing
// the key has been gathered.
func (r *run) applyFunc(items []shuffle.Item) ([]row.Row, error) {
	fn := r.plan.Reduction.Func
	resultCol := r.plan.Reduction.ResultColumn()
	rows := make([]row.Row, len(items))
	for i, it := range items {
		v, err := fn.Apply(it.Key, it.Rows)
		if err != nil {
			return nil, &reduce.ReductionError{Key: it.Key, Cause: err}
		}
		rows[i] = it.KeyColumns.Merge(row.Row{resultCol: v})
	}
	return rows, nil
}
