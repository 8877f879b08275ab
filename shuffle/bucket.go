package shuffle

import (
	"github.com/ab180/regroup/reduce"
	"github.com/ab180/regroup/row"
)

// Item is one unit of shuffled data for a single group key: either a partial
// aggregate state (aggregate path) or the raw records of the key gathered on
// one source worker (arbitrary-function path).
type Item struct {
	// Key is the routing key derived from the group columns.
	Key string

	// KeyColumns carries the original group column values, so final result
	// rows keep typed columns instead of the formatted key.
	KeyColumns row.Row

	// Rows holds raw records on the arbitrary-function path.
	Rows []row.Row

	// State holds the mergeable partial aggregate on the aggregate path.
	State reduce.Reducer
}

// Bucket is the set of items one source worker addressed to one destination.
// Every exchange delivers exactly one bucket per (source, destination) pair,
// even if it is empty.
type Bucket struct {
	// Source is the index of the worker that produced the bucket.
	Source int

	Items []Item

	// Payload replaces Items when the exchange is serialized; decode it with
	// Bucket.Decode before consuming.
	Payload []byte
}

// Decode returns the bucket's items, decoding Payload through the codec if
// the bucket traveled serialized.
func (b Bucket) Decode(c *Codec) ([]Item, error) {
	if b.Payload == nil {
		return b.Items, nil
	}
	if c == nil {
		c = DefaultCodec()
	}
	return c.Decode(b.Payload)
}
