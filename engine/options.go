package engine

import (
	"runtime"
	"time"

	"github.com/ab180/regroup/partitions"
	"github.com/ab180/regroup/shuffle"
	"github.com/creasty/defaults"
)

type Options struct {
	// Concurrency is the number of data-parallel workers participating in a
	// query. By default, it will be the number of CPUs in the machine.
	// It is capped at the number of input partitions.
	Concurrency int `default:"-"`

	// ShuffleTimeout bounds how long a worker waits on the exchange barrier
	// before the query fails with a TransferError.
	ShuffleTimeout time.Duration

	// Assigner routes group keys to destination workers. Defaults to fnv1a
	// hashing. Ignored when the plan enumerates KnownKeys.
	Assigner partitions.Assigner

	// SerializeExchange makes raw-record buckets travel msgpack+lz4 encoded
	// through the exchange, surfacing non-serializable rows at shuffle time
	// instead of downstream. Only affects the arbitrary-function path.
	SerializeExchange bool `default:"false"`
}

func DefaultOptions() (o Options) {
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.ShuffleTimeout == 0 {
		o.ShuffleTimeout = shuffle.DefaultTimeout
	}
	return
}
