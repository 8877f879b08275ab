package shuffle

import (
	"github.com/ab180/regroup/partitions"
	"github.com/pkg/errors"
)

// Writer buckets a source worker's items by destination, using an assigner
// to route each item's key. It implements partitions.Context so assigners
// that route relative to the current worker can resolve it.
type Writer struct {
	source     int
	numWorkers int
	assigner   partitions.Assigner
	codec      *Codec
	buckets    [][]Item
}

// NewWriter creates a writer for one source worker of an exchange.
// A non-nil codec makes Buckets serialize raw-record buckets, surfacing
// non-serializable rows before the exchange instead of downstream.
func NewWriter(source, numWorkers int, assigner partitions.Assigner, codec *Codec) *Writer {
	return &Writer{
		source:     source,
		numWorkers: numWorkers,
		assigner:   assigner,
		codec:      codec,
		buckets:    make([][]Item, numWorkers),
	}
}

// WorkerIndex implements partitions.Context.
func (w *Writer) WorkerIndex() int { return w.source }

// Write routes one item into its destination bucket.
func (w *Writer) Write(it Item) error {
	dest, err := w.assigner.DetermineWorker(w, it.Key, w.numWorkers)
	if err != nil {
		return errors.Wrapf(err, "route key %q", it.Key)
	}
	if dest < 0 || dest >= w.numWorkers {
		return errors.Errorf("assigner routed key %q to worker #%d of %d", it.Key, dest, w.numWorkers)
	}
	w.buckets[dest] = append(w.buckets[dest], it)
	return nil
}

// Buckets finalizes the writer into one outgoing bucket per destination,
// including empty buckets: every (source, destination) pair of the exchange
// must be covered for the barrier to complete.
func (w *Writer) Buckets() ([]Bucket, error) {
	out := make([]Bucket, w.numWorkers)
	for dest := range out {
		out[dest] = Bucket{Source: w.source, Items: w.buckets[dest]}
		if w.codec != nil {
			payload, err := w.codec.Encode(w.buckets[dest])
			if err != nil {
				return nil, errors.Wrapf(err, "encode bucket for worker #%d", dest)
			}
			out[dest] = Bucket{Source: w.source, Payload: payload}
		}
	}
	return out, nil
}

// NumItems returns the number of items written so far.
func (w *Writer) NumItems() (n int) {
	for _, b := range w.buckets {
		n += len(b)
	}
	return
}
