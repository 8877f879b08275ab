package reduce

import (
	"reflect"

	"github.com/ab180/regroup/row"
	"github.com/jinzhu/copier"
	"github.com/modern-go/reflect2"
)

// Reducer accumulates a mergeable partial aggregate for one group key.
//
// Merging two reducers that consumed disjoint row sets must yield the same
// state as a single reducer consuming their union; this associativity is what
// allows local partial aggregation before the shuffle.
type Reducer interface {
	// Reduce folds a single row into the partial state.
	Reduce(r row.Row) error

	// Merge combines another reducer's partial state into this one.
	// The other reducer must be of the same concrete type.
	Merge(other Reducer) error

	// Result finalizes the state into the aggregate value.
	Result() interface{}
}

// NewFromPrototype clones a per-key reducer instance from a configured
// prototype, so that each group key accumulates into its own state.
func NewFromPrototype(prototype Reducer) Reducer {
	r := reflect2.Type2(typeOf(prototype)).New()
	if err := copier.Copy(r, prototype); err != nil {
		panic("failed to instantiate reducer: " + err.Error())
	}
	return r.(Reducer)
}

func typeOf(v interface{}) reflect.Type {
	typ := reflect.TypeOf(v)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ
}
