package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ab180/regroup/internal/errchannel"
	"github.com/ab180/regroup/internal/errgroup"
	"github.com/ab180/regroup/internal/util"
	"github.com/ab180/regroup/metric"
	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/query"
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/shuffle"
	"github.com/airbloc/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var log = logger.New("regroup.engine")

// Engine executes groupby/aggregation queries over partitioned datasets.
// Workers are goroutines that own their partitions exclusively; the shuffle
// exchange is the only point where data crosses workers.
type Engine struct {
	opt Options
}

func New(opt Options) *Engine {
	return &Engine{opt: opt}
}

// RunResult is the final output of one query.
type RunResult struct {
	// Partitions hold the result rows: the group columns of each key plus
	// the aggregate value column.
	Partitions []partitions.Partition

	// Metrics is a snapshot of the query's counters.
	Metrics metric.Metrics
}

// Run executes one query to completion and returns its result partitions.
// On any stage failure the whole query aborts and no partial result is
// returned.
//
// Partial aggregates are merged in ascending source-worker order, so results
// are reproducible across runs at a fixed worker count. They may differ
// across worker counts for reductions that are not exact in floating point.
func (e *Engine) Run(ctx context.Context, input []partitions.Partition, plan query.Plan) (*RunResult, error) {
	if len(input) == 0 {
		return &RunResult{Metrics: metric.Metrics{}}, nil
	}
	if err := plan.Validate(query.SchemaOf(input)); err != nil {
		return nil, err
	}
	r, err := e.newRun(input, plan)
	if err != nil {
		return nil, err
	}

	metric.RunningQueriesGauge.Inc()
	defer metric.RunningQueriesGauge.Dec()

	log.Verbose("query {} starts: strategy={}, workers={}, partitions={}, rows={}",
		r.id, r.strategy, r.numWorkers, len(input), partitions.NumRows(input))

	var out []partitions.Partition
	if r.strategy == query.StrategyIndexed {
		out, err = r.runIndexed(ctx)
	} else {
		out, err = r.runShuffled(ctx)
	}
	if err != nil {
		r.transition(stateFailed)
		metric.QueriesCounter.WithLabelValues("failed").Inc()
		select {
		case cause := <-r.firstErr.Recv():
			log.Error("query {} failed: {}", r.id, cause)
		default:
		}
		r.firstErr.Close()
		return nil, err
	}
	r.transition(stateDone)
	r.firstErr.Close()
	metric.QueriesCounter.WithLabelValues("done").Inc()

	mm := r.metrics.Collect()
	log.Verbose("query {} done. metrics:\n{}", r.id, mm)
	return &RunResult{Partitions: out, Metrics: mm}, nil
}

// run is the per-query execution state.
type run struct {
	id       string
	plan     query.Plan
	strategy query.Strategy
	opt      Options

	input      []partitions.Partition
	numWorkers int
	owned      [][]int // input partition indexes per worker

	assigner partitions.Assigner
	codec    *shuffle.Codec
	proto    reduce.Reducer

	state    *atomic.Int32
	firstErr *errchannel.ErrChannel
	metrics  metric.Repository
}

func (e *Engine) newRun(input []partitions.Partition, plan query.Plan) (*run, error) {
	r := &run{
		id:       util.GenerateID("q"),
		plan:     plan,
		strategy: query.SelectStrategy(plan),
		opt:      e.opt,
		input:    input,
		state:    atomic.NewInt32(int32(stateInit)),
		firstErr: errchannel.New(),
		metrics:  metric.NewRepository(),
	}
	r.numWorkers = e.opt.Concurrency
	if r.numWorkers > len(input) {
		r.numWorkers = len(input)
	}
	r.owned = make([][]int, r.numWorkers)
	for i := range input {
		w := i % r.numWorkers
		r.owned[w] = append(r.owned[w], i)
	}

	if plan.Reduction.Func == nil {
		proto, err := reduce.NewByName(plan.Reduction.Aggregate, plan.Reduction.Column)
		if err != nil {
			return nil, &query.ConfigurationError{Reason: err.Error()}
		}
		r.proto = proto
		log.Verbose("query {} reduces with {}", r.id, util.NameOfType(proto))
	}

	r.assigner = e.opt.Assigner
	if len(plan.KnownKeys) > 0 {
		fk := partitions.NewFiniteKeyAssigner(plan.KnownKeys)
		r.assigner = fk
		log.Verbose("query {} key assignments:\n{}", r.id, fk.Assignments(r.numWorkers).Pretty())
	} else if r.assigner == nil {
		r.assigner = partitions.NewHashKeyAssigner()
	}

	if e.opt.SerializeExchange && r.strategy == query.StrategyFunc {
		r.codec = shuffle.DefaultCodec()
	}
	return r, nil
}

// runShuffled executes the aggregate and arbitrary-function paths. Stages
// run one at a time across all workers, so the per-query state machine is
// INIT → LOCAL_AGGREGATE → SHUFFLE → GLOBAL_AGGREGATE → DONE.
func (r *run) runShuffled(ctx context.Context) ([]partitions.Partition, error) {
	funcPath := r.strategy == query.StrategyFunc

	outgoing := make([][]shuffle.Item, r.numWorkers)
	err := r.runStage(ctx, stateLocalAggregate, func(ctx context.Context, w int) error {
		var (
			items []shuffle.Item
			err   error
		)
		if funcPath {
			items, err = r.groupLocal(r.ownedPartitions(w))
		} else {
			items, err = r.localAggregate(r.ownedPartitions(w))
		}
		if err != nil {
			return err
		}
		outgoing[w] = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The exchanger owns the exchange buffers for exactly one barrier.
	ex := shuffle.NewExchanger(r.numWorkers, r.opt.ShuffleTimeout)
	incoming := make([][]shuffle.Bucket, r.numWorkers)
	err = r.runStage(ctx, stateShuffle, func(ctx context.Context, w int) error {
		writer := shuffle.NewWriter(w, r.numWorkers, r.assigner, r.codec)
		for _, it := range outgoing[w] {
			if err := writer.Write(it); err != nil {
				if errors.Is(err, partitions.ErrNoWorker) {
					return &query.ConfigurationError{Reason: err.Error()}
				}
				return err
			}
		}
		outgoing[w] = nil // ownership moves to the exchange

		buckets, err := writer.Buckets()
		if err != nil {
			return err
		}
		r.metrics.AddMetric("ShuffledItems", int64(writer.NumItems()))
		metric.ShuffledItemsCounter.Add(float64(writer.NumItems()))

		received, err := ex.Exchange(ctx, w, buckets)
		if err != nil {
			return err
		}
		incoming[w] = received
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]partitions.Partition, r.numWorkers)
	err = r.runStage(ctx, stateGlobalAggregate, func(ctx context.Context, w int) error {
		var (
			out partitions.Partition
			err error
		)
		if funcPath {
			out, err = r.globalApply(w, incoming[w])
		} else {
			out, err = r.globalAggregate(w, incoming[w])
		}
		if err != nil {
			return err
		}
		incoming[w] = nil // consumed
		results[w] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// runIndexed executes the fast path: the input is already partitioned and
// sorted by the group columns, so each partition is aggregated and finalized
// in place with no shuffle.
func (r *run) runIndexed(ctx context.Context) ([]partitions.Partition, error) {
	results := make([]partitions.Partition, len(r.input))
	err := r.runStage(ctx, stateLocalAggregate, func(ctx context.Context, w int) error {
		for _, pi := range r.owned[w] {
			p := r.input[pi]
			out, err := r.aggregateWhole(p)
			if err != nil {
				return err
			}
			results[pi] = out
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// runStage transitions the query into the given stage and runs fn once per
// worker, concurrently. The first failure cancels the stage; every real
// failure is collected, cancellation fallout is not.
func (r *run) runStage(ctx context.Context, next queryState, fn func(ctx context.Context, w int) error) error {
	r.transition(next)
	begin := time.Now()
	defer func() {
		metric.StageDurationHistogram.WithLabelValues(next.String()).
			Observe(time.Since(begin).Seconds())
	}()

	wg, wctx := errgroup.WithContext(ctx)
	var (
		mu   sync.Mutex
		merr *multierror.Error
	)
	for w := 0; w < r.numWorkers; w++ {
		w := w
		wg.Go(func() error {
			err := fn(wctx, w)
			if err == nil {
				return nil
			}
			if wctx.Err() != nil && errors.Is(err, context.Canceled) {
				// canceled because another worker already failed
				return err
			}
			r.firstErr.Send(err)
			mu.Lock()
			merr = multierror.Append(merr, errors.Wrapf(err, "worker #%d in %s", w, next))
			mu.Unlock()
			return err
		})
	}
	if err := wg.Wait(); err != nil {
		if combined := merr.ErrorOrNil(); combined != nil {
			return combined
		}
		return err
	}
	return nil
}

func (r *run) transition(next queryState) {
	prev := queryState(r.state.Swap(int32(next)))
	log.Verbose("query {}: {} -> {}", r.id, prev, next)
}

func (r *run) ownedPartitions(w int) []partitions.Partition {
	pp := make([]partitions.Partition, len(r.owned[w]))
	for i, pi := range r.owned[w] {
		pp[i] = r.input[pi]
	}
	return pp
}
