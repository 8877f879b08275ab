package reduce

import (
	"github.com/ab180/regroup/row"
)

// GroupFunc is the capability interface for arbitrary, non-decomposable
// reductions. It is applied exactly once per key, after every row bearing the
// key has been collected on one worker. Rows arrive ordered by source worker
// index, then by their order within the source partition.
type GroupFunc interface {
	Apply(key string, rows []row.Row) (interface{}, error)
}

// GroupFuncOf adapts a plain function into a GroupFunc.
type GroupFuncOf func(key string, rows []row.Row) (interface{}, error)

func (f GroupFuncOf) Apply(key string, rows []row.Row) (interface{}, error) {
	return f(key, rows)
}
