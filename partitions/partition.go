package partitions

import (
	"strconv"

	"github.com/ab180/regroup/row"
)

// Partition is a disjoint, worker-local subset of a dataset.
// It is immutable once created; shuffle and aggregation stages replace
// partitions wholesale instead of mutating them.
type Partition struct {
	ID   string
	Rows []row.Row
}

// PlanForNumberOf creates empty partitions for the number of workers.
// It uses its index number for each partition's ID.
func PlanForNumberOf(numWorkers int) []Partition {
	pp := make([]Partition, numWorkers)
	for i := 0; i < numWorkers; i++ {
		pp[i] = Partition{ID: strconv.Itoa(i)}
	}
	return pp
}

// NumRows returns the total number of rows across the given partitions.
func NumRows(pp []Partition) (n int) {
	for _, p := range pp {
		n += len(p.Rows)
	}
	return
}
