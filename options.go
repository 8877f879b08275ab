package regroup

import (
	"time"

	"github.com/ab180/regroup/engine"
	"github.com/ab180/regroup/partitions"
)

// Option adjusts engine options for one query.
type Option func(o *engine.Options)

func DefaultOptions() engine.Options {
	return engine.DefaultOptions()
}

// WithConcurrency sets the number of data-parallel workers.
func WithConcurrency(n int) Option {
	return func(o *engine.Options) {
		o.Concurrency = n
	}
}

// WithShuffleTimeout bounds the wait on the shuffle exchange barrier.
func WithShuffleTimeout(d time.Duration) Option {
	return func(o *engine.Options) {
		o.ShuffleTimeout = d
	}
}

// WithAssigner replaces the default fnv1a key-to-worker assignment.
func WithAssigner(a partitions.Assigner) Option {
	return func(o *engine.Options) {
		o.Assigner = a
	}
}

// WithSerializedExchange makes raw-record buckets travel serialized and
// compressed through the exchange, surfacing non-serializable rows at
// shuffle time. Only affects the arbitrary-function path.
func WithSerializedExchange() Option {
	return func(o *engine.Options) {
		o.SerializeExchange = true
	}
}
