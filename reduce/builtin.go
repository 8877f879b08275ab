package reduce

import (
	"fmt"

	"github.com/ab180/regroup/row"
	"github.com/pkg/errors"
)

// ErrUnknownAggregate is returned by NewByName for unrecognized names.
var ErrUnknownAggregate = errors.New("unknown aggregate")

// NewByName returns a prototype reducer for a built-in aggregate name:
// sum, count, mean, min, max, nunique. All built-ins are associative and
// commutative, so they can be partially aggregated before the shuffle.
func NewByName(name, column string) (Reducer, error) {
	if name != "count" && column == "" {
		return nil, errors.Errorf("aggregate %q requires a value column", name)
	}
	switch name {
	case "sum":
		return &Sum{Column: column}, nil
	case "count":
		return &Count{}, nil
	case "mean":
		return &Mean{Column: column}, nil
	case "min":
		return &Min{Column: column}, nil
	case "max":
		return &Max{Column: column}, nil
	case "nunique", "n-unique":
		return &NUnique{Column: column}, nil
	}
	return nil, errors.Wrapf(ErrUnknownAggregate, "%q", name)
}

func mergeMismatch(dst, src Reducer) error {
	return errors.Errorf("cannot merge %T into %T", src, dst)
}

// Sum accumulates the float64 sum of a column.
type Sum struct {
	Column string

	sum float64
}

func (s *Sum) Reduce(r row.Row) error {
	v, err := columnValue(r, s.Column)
	if err != nil {
		return err
	}
	n, err := float64Of(v)
	if err != nil {
		return err
	}
	s.sum += n
	return nil
}

func (s *Sum) Merge(other Reducer) error {
	o, ok := other.(*Sum)
	if !ok {
		return mergeMismatch(s, other)
	}
	s.sum += o.sum
	return nil
}

func (s *Sum) Result() interface{} { return s.sum }

// Count counts rows. It needs no value column.
type Count struct {
	count int64
}

func (c *Count) Reduce(row.Row) error {
	c.count++
	return nil
}

func (c *Count) Merge(other Reducer) error {
	o, ok := other.(*Count)
	if !ok {
		return mergeMismatch(c, other)
	}
	c.count += o.count
	return nil
}

func (c *Count) Result() interface{} { return c.count }

// Mean is decomposed into a (sum, count) pair locally and finalized to
// sum/count only after the global merge, so partial states stay mergeable.
type Mean struct {
	Column string

	sum   float64
	count int64
}

func (m *Mean) Reduce(r row.Row) error {
	v, err := columnValue(r, m.Column)
	if err != nil {
		return err
	}
	n, err := float64Of(v)
	if err != nil {
		return err
	}
	m.sum += n
	m.count++
	return nil
}

func (m *Mean) Merge(other Reducer) error {
	o, ok := other.(*Mean)
	if !ok {
		return mergeMismatch(m, other)
	}
	m.sum += o.sum
	m.count += o.count
	return nil
}

func (m *Mean) Result() interface{} {
	if m.count == 0 {
		return nil
	}
	return m.sum / float64(m.count)
}

// Min keeps the smallest float64 value of a column.
type Min struct {
	Column string

	val  float64
	seen bool
}

func (m *Min) Reduce(r row.Row) error {
	v, err := columnValue(r, m.Column)
	if err != nil {
		return err
	}
	n, err := float64Of(v)
	if err != nil {
		return err
	}
	if !m.seen || n < m.val {
		m.val = n
		m.seen = true
	}
	return nil
}

func (m *Min) Merge(other Reducer) error {
	o, ok := other.(*Min)
	if !ok {
		return mergeMismatch(m, other)
	}
	if o.seen && (!m.seen || o.val < m.val) {
		m.val = o.val
		m.seen = true
	}
	return nil
}

func (m *Min) Result() interface{} {
	if !m.seen {
		return nil
	}
	return m.val
}

// Max keeps the largest float64 value of a column.
type Max struct {
	Column string

	val  float64
	seen bool
}

func (m *Max) Reduce(r row.Row) error {
	v, err := columnValue(r, m.Column)
	if err != nil {
		return err
	}
	n, err := float64Of(v)
	if err != nil {
		return err
	}
	if !m.seen || n > m.val {
		m.val = n
		m.seen = true
	}
	return nil
}

func (m *Max) Merge(other Reducer) error {
	o, ok := other.(*Max)
	if !ok {
		return mergeMismatch(m, other)
	}
	if o.seen && (!m.seen || o.val > m.val) {
		m.val = o.val
		m.seen = true
	}
	return nil
}

func (m *Max) Result() interface{} {
	if !m.seen {
		return nil
	}
	return m.val
}

// NUnique counts distinct values of a column. The partial state is the value
// set itself; global merge unions the sets and finalizes to a count.
type NUnique struct {
	Column string

	seen map[string]struct{}
}

func (n *NUnique) Reduce(r row.Row) error {
	v, err := columnValue(r, n.Column)
	if err != nil {
		return err
	}
	if n.seen == nil {
		n.seen = make(map[string]struct{})
	}
	n.seen[fmt.Sprint(v)] = struct{}{}
	return nil
}

func (n *NUnique) Merge(other Reducer) error {
	o, ok := other.(*NUnique)
	if !ok {
		return mergeMismatch(n, other)
	}
	if n.seen == nil {
		n.seen = make(map[string]struct{})
	}
	for v := range o.seen {
		n.seen[v] = struct{}{}
	}
	return nil
}

func (n *NUnique) Result() interface{} { return int64(len(n.seen)) }
