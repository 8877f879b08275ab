package shuffle

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds how long a destination waits on the exchange barrier
// before failing with a TransferError.
const DefaultTimeout = 10 * time.Second

// Exchanger performs one all-to-all bucket exchange between a fixed set of
// workers. Each of the numWorkers participants calls Exchange exactly once;
// the call deposits one outgoing bucket per destination and then blocks until
// the participant holds exactly one bucket from every source.
//
// The exchange is all-or-nothing: a destination either receives its complete
// bucket set or fails with a TransferError, and no partially received state
// is ever returned. The inbox channels are owned by the Exchanger for the
// duration of one barrier; an Exchanger must not be reused across queries.
type Exchanger struct {
	numWorkers int
	timeout    time.Duration
	inboxes    []chan Bucket
}

// NewExchanger prepares an exchange between numWorkers participants.
// A timeout of zero means DefaultTimeout.
func NewExchanger(numWorkers int, timeout time.Duration) *Exchanger {
	if numWorkers <= 0 {
		panic("shuffle: exchanger needs at least one worker")
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	inboxes := make([]chan Bucket, numWorkers)
	for i := range inboxes {
		// capacity for one bucket per source, so deposits never block
		inboxes[i] = make(chan Bucket, numWorkers)
	}
	return &Exchanger{
		numWorkers: numWorkers,
		timeout:    timeout,
		inboxes:    inboxes,
	}
}

// Exchange deposits source's outgoing buckets (indexed by destination) and
// blocks until one bucket from every source has arrived for source itself.
// Received buckets are returned sorted by ascending source index, giving
// downstream merges a fixed order.
//
// On cancellation or timeout, in-flight buckets are discarded and an error is
// returned; no partial bucket set is ever exposed.
func (e *Exchanger) Exchange(ctx context.Context, source int, outgoing []Bucket) ([]Bucket, error) {
	if len(outgoing) != e.numWorkers {
		return nil, errors.Errorf("shuffle: worker #%d produced %d buckets for %d destinations",
			source, len(outgoing), e.numWorkers)
	}
	for dest, b := range outgoing {
		b.Source = source
		select {
		case e.inboxes[dest] <- b:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	received := make([]Bucket, 0, e.numWorkers)
	arrived := make([]bool, e.numWorkers)
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	for len(received) < e.numWorkers {
		select {
		case b := <-e.inboxes[source]:
			if arrived[b.Source] {
				return nil, errors.Errorf("shuffle: worker #%d received a duplicate bucket from #%d",
					source, b.Source)
			}
			arrived[b.Source] = true
			received = append(received, b)

		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timer.C:
			return nil, &TransferError{
				Destination: source,
				Missing:     missingSources(arrived),
				Wait:        e.timeout,
			}
		}
	}
	sort.Slice(received, func(i, j int) bool { return received[i].Source < received[j].Source })
	return received, nil
}

func missingSources(arrived []bool) (missing []int) {
	for i, ok := range arrived {
		if !ok {
			missing = append(missing, i)
		}
	}
	return
}
