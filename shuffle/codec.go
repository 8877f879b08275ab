package shuffle

import (
	"bytes"
	"io"
	"sync"

	"github.com/ab180/regroup/row"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// Codec serializes raw-record buckets with msgpack and compresses them with
// lz4. Partial aggregate states are in-memory objects and cannot travel
// through the codec; it is only legal on the arbitrary-function path.
type Codec struct{}

var defaultCodec = &Codec{}

func DefaultCodec() *Codec { return defaultCodec }

type wireItem struct {
	Key        string                   `msgpack:"k"`
	KeyColumns map[string]interface{}   `msgpack:"c"`
	Rows       []map[string]interface{} `msgpack:"r"`
}

func (c *Codec) Encode(items []Item) ([]byte, error) {
	wire := make([]wireItem, len(items))
	for i, it := range items {
		if it.State != nil {
			return nil, errors.Errorf("partial aggregate state of key %q is not serializable", it.Key)
		}
		rows := make([]map[string]interface{}, len(it.Rows))
		for j, r := range it.Rows {
			rows[j] = r
		}
		wire[i] = wireItem{
			Key:        it.Key,
			KeyColumns: it.KeyColumns,
			Rows:       rows,
		}
	}
	packed, err := msgpack.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(err, "marshal bucket")
	}
	return compress(packed)
}

func (c *Codec) Decode(data []byte) ([]Item, error) {
	packed, err := decompress(data)
	if err != nil {
		return nil, err
	}
	var wire []wireItem
	if err := msgpack.Unmarshal(packed, &wire); err != nil {
		return nil, errors.Wrap(err, "unmarshal bucket")
	}
	items := make([]Item, len(wire))
	for i, w := range wire {
		rows := make([]row.Row, len(w.Rows))
		for j, r := range w.Rows {
			rows[j] = r
		}
		items[i] = Item{
			Key:        w.Key,
			KeyColumns: w.KeyColumns,
			Rows:       rows,
		}
	}
	return items, nil
}

var (
	writerPool = sync.Pool{
		New: func() interface{} {
			return lz4.NewWriter(nil)
		},
	}
	readerPool = sync.Pool{
		New: func() interface{} {
			return lz4.NewReader(nil)
		},
	}
)

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := writerPool.Get().(*lz4.Writer)
	defer writerPool.Put(zw)

	zw.Reset(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, errors.Wrap(err, "compress bucket")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compress bucket")
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	zr := readerPool.Get().(*lz4.Reader)
	defer readerPool.Put(zr)

	zr.Reset(bytes.NewReader(src))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompress bucket")
	}
	return out, nil
}
