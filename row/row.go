package row

import (
	"github.com/vmihailenco/msgpack"
)

// Row is a single record: a mapping from column name to value.
// A Row is owned by exactly one partition and is never mutated in place;
// derived rows are built with Merge.
type Row map[string]interface{}

func (r *Row) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, r)
}

func (r Row) Marshal() ([]byte, error) {
	return msgpack.Marshal(r)
}

// Merge returns a new row containing the columns of r overlaid with the
// columns of a. Neither input is modified.
func (r Row) Merge(a Row) Row {
	o := make(Row, len(r)+len(a))
	for k := range r {
		o[k] = r[k]
	}
	for k := range a {
		o[k] = a[k]
	}
	return o
}

// Columns returns an unordered list of the row's column names.
func (r Row) Columns() (cc []string) {
	for k := range r {
		cc = append(cc, k)
	}
	return
}
