package reduce

import (
	"github.com/pkg/errors"
)

// float64Of coerces a row value into float64. Both the local and the global
// aggregation stages accumulate through this single coercion, so partial and
// final states share the same numeric type.
func float64Of(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, errors.Errorf("value %v (%T) is not numeric", v, v)
}

func columnValue(r map[string]interface{}, column string) (interface{}, error) {
	v, ok := r[column]
	if !ok {
		return nil, errors.Errorf("row has no column %q", column)
	}
	return v, nil
}
