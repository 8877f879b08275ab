package row

import (
	"reflect"

	"github.com/pkg/errors"
)

// From converts arbitrary Go values into rows using reflection.
// Supported inputs: a Row or map[string]interface{}, a slice/array of either,
// and a slice/array of structs (exported fields become columns).
func From(values interface{}) (rows []Row, err error) {
	if rr, ok := values.([]Row); ok {
		return rr, nil
	}
	inputVal := reflect.ValueOf(values)
	switch inputVal.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < inputVal.Len(); i++ {
			r, err := fromValue(inputVal.Index(i).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "element #%d", i)
			}
			rows = append(rows, r)
		}
	default:
		r, err := fromValue(values)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func fromValue(v interface{}) (Row, error) {
	switch typed := v.(type) {
	case Row:
		return typed, nil
	case map[string]interface{}:
		return Row(typed), nil
	}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, errors.Errorf("unsupported row type %s", val.Kind())
	}
	r := make(Row, val.NumField())
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" {
			// unexported
			continue
		}
		r[f.Name] = val.Field(i).Interface()
	}
	return r, nil
}
