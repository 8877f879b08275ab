package row

import (
	"bufio"
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// FromNDJSON reads newline-delimited JSON objects into rows.
// Blank lines are skipped; anything other than a JSON object fails.
func FromNDJSON(in io.Reader) (rows []Row, err error) {
	r := bufio.NewReader(in)
	lineNo := 0
	for {
		line, err := readline(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		lineNo++
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg := map[string]interface{}{}
		if err := jsoniter.Unmarshal(line, &msg); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		rows = append(rows, Row(msg))
	}
	return rows, nil
}

func readline(r *bufio.Reader) (line []byte, err error) {
	var isPrefix = true
	var ln []byte
	var buf bytes.Buffer
	for isPrefix && err == nil {
		ln, isPrefix, err = r.ReadLine()
		buf.Write(ln)
	}
	line = buf.Bytes()
	return
}
