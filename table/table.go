// Package table holds the tabular view of raw documents used by the curation
// job: rows, inferred column types, and their Arrow and Avro encodings.
package table

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Row is one decoded document. Numbers are json.Number.
type Row map[string]interface{}

// Kind is the type of a column.
type Kind int

// Column kinds. String is also used for nested objects and arrays, which are
// stored as their JSON text, and for columns whose values disagree on type.
const (
	String Kind = iota
	Bool
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return "string"
}

// Column is a named, typed, nullable column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of columns.
type Schema struct {
	Columns []Column
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Infer picks a kind for each of the named columns from the values present in
// rows. Nulls and absent values don't count. A column with no values at all
// is a String column.
func Infer(rows []Row, names []string) Schema {
	s := Schema{Columns: make([]Column, len(names))}
	for i, name := range names {
		s.Columns[i] = Column{Name: name, Kind: inferKind(rows, name)}
	}
	return s
}

func inferKind(rows []Row, name string) Kind {
	seen := false
	kind := String
	for _, row := range rows {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		k := kindOf(v)
		if !seen {
			kind, seen = k, true
			continue
		}
		kind = widen(kind, k)
		if kind == String {
			return String
		}
	}
	return kind
}

func kindOf(v interface{}) Kind {
	switch vt := v.(type) {
	case bool:
		return Bool
	case json.Number:
		if _, err := vt.Int64(); err == nil {
			return Int
		}
		if _, err := vt.Float64(); err == nil {
			return Float
		}
		return String
	case int, int32, int64:
		return Int
	case float32, float64:
		return Float
	}
	return String
}

func widen(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case (a == Int && b == Float) || (a == Float && b == Int):
		return Float
	}
	return String
}

// Value converts v to the Go value stored for a column of kind k: bool,
// int64, float64 or string, or nil for a null.
func Value(k Kind, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.Errorf("%v (%T) is not a bool", v, v)
		}
		return b, nil
	case Int:
		switch vt := v.(type) {
		case json.Number:
			i, err := vt.Int64()
			return i, errors.Wrapf(err, "converting %s to int", vt)
		case int:
			return int64(vt), nil
		case int32:
			return int64(vt), nil
		case int64:
			return vt, nil
		}
		return nil, errors.Errorf("%v (%T) is not an int", v, v)
	case Float:
		switch vt := v.(type) {
		case json.Number:
			f, err := vt.Float64()
			return f, errors.Wrapf(err, "converting %s to float", vt)
		case float64:
			return vt, nil
		case float32:
			return float64(vt), nil
		case int:
			return float64(vt), nil
		case int32:
			return float64(vt), nil
		case int64:
			return float64(vt), nil
		}
		return nil, errors.Errorf("%v (%T) is not a float", v, v)
	}
	return Text(v)
}

// Text renders v as a string: strings are unchanged, numbers keep their
// original text, and anything else is encoded as JSON.
func Text(v interface{}) (string, error) {
	switch vt := v.(type) {
	case string:
		return vt, nil
	case json.Number:
		return vt.String(), nil
	case bool:
		return strconv.FormatBool(vt), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "encoding %T as JSON", v)
	}
	return string(b), nil
}
