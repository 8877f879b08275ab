// Package regroup is an embedded, data-parallel groupby/aggregation engine.
// A dataset split into immutable partitions is aggregated by key with one of
// three strategies: a no-shuffle fast path for pre-partitioned inputs, a
// two-stage path that shuffles small partial aggregates, and a raw-record
// shuffle path for arbitrary user reductions.
package regroup

import (
	"context"

	"github.com/ab180/regroup/engine"
	"github.com/ab180/regroup/metric"
	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/pkg/retry"
	"github.com/ab180/regroup/query"
	"github.com/ab180/regroup/row"
	"github.com/airbloc/logger"
	"github.com/pkg/errors"
)

var log = logger.New("regroup")

// Result holds the output of a completed query.
type Result struct {
	// Partitions carry the result rows: one row per group key, holding the
	// group columns and the aggregate value column.
	Partitions []partitions.Partition

	metrics metric.Metrics
}

// Rows flattens the result partitions into a single row slice.
func (r *Result) Rows() (rows []row.Row) {
	for _, p := range r.Partitions {
		rows = append(rows, p.Rows...)
	}
	return
}

// Metrics returns the query's counter snapshot.
func (r *Result) Metrics() metric.Metrics {
	return r.metrics
}

// GroupByAggregate runs one groupby/aggregation query over the dataset.
//
// It fails with a ConfigurationError for unresolvable columns or a bad
// reduction spec, a TransferError for an incomplete shuffle, and a
// ReductionError when a reducer or user function fails. All failures abort
// the whole query; no partial result is ever returned.
func GroupByAggregate(ctx context.Context, ds *Dataset, plan query.Plan, opts ...Option) (*Result, error) {
	opt := DefaultOptions()
	for _, o := range opts {
		o(&opt)
	}
	res, err := engine.New(opt).Run(ctx, ds.Partitions, plan)
	if err != nil {
		return nil, err
	}
	return &Result{Partitions: res.Partitions, metrics: res.Metrics}, nil
}

// GroupByAggregateWithResubmit is GroupByAggregate with caller-side
// resubmission: a query that failed with a TransferError is submitted again
// as a whole, since a failed exchange leaves nothing to resume from. Other
// failures are returned immediately.
func GroupByAggregateWithResubmit(ctx context.Context, ds *Dataset, plan query.Plan, opts ...Option) (*Result, error) {
	return retry.DoWithResult(func() (*Result, error) {
		res, err := GroupByAggregate(ctx, ds, plan, opts...)
		if err != nil {
			var transferErr *TransferError
			if errors.As(err, &transferErr) {
				log.Error("shuffle exchange failed, resubmitting query: {}", err)
			}
			return nil, err
		}
		return res, nil
	}, retry.WithRetryIf(func(err error) bool {
		var transferErr *TransferError
		return errors.As(err, &transferErr)
	}))
}
