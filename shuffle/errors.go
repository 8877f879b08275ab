package shuffle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransferError reports an incomplete exchange: a destination worker did not
// receive a bucket from every source within the bounded wait. The exchange is
// never retried automatically; the whole query aborts.
type TransferError struct {
	// Destination is the worker that was left waiting.
	Destination int

	// Missing lists the source workers whose buckets never arrived.
	Missing []int

	// Wait is how long the destination waited before giving up.
	Wait time.Duration
}

func (e *TransferError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		missing[i] = "#" + strconv.Itoa(s)
	}
	return fmt.Sprintf("shuffle exchange incomplete: worker #%d did not receive buckets from %s within %s",
		e.Destination, strings.Join(missing, ", "), e.Wait)
}
