package table

import (
	"encoding/json"

	"github.com/linkedin/goavro/v2"
	"github.com/pkg/errors"
)

func (k Kind) avroType() string {
	switch k {
	case Bool:
		return "boolean"
	case Int:
		return "long"
	case Float:
		return "double"
	}
	return "string"
}

// AvroSchema returns an Avro record schema named name for s. Every field is
// a union with null, defaulting to null.
func (s Schema) AvroSchema(name string) (string, error) {
	type field struct {
		Name    string      `json:"name"`
		Type    []string    `json:"type"`
		Default interface{} `json:"default"`
	}
	rec := struct {
		Type   string  `json:"type"`
		Name   string  `json:"name"`
		Fields []field `json:"fields"`
	}{Type: "record", Name: name, Fields: make([]field, len(s.Columns))}
	for i, c := range s.Columns {
		rec.Fields[i] = field{Name: c.Name, Type: []string{"null", c.Kind.avroType()}}
	}
	b, err := json.Marshal(rec)
	return string(b), errors.Wrap(err, "encoding avro schema")
}

// AvroNative converts row to the native form goavro expects for a record of
// s: a map with each non-null value wrapped as a union.
func (s Schema) AvroNative(row Row) (map[string]interface{}, error) {
	native := make(map[string]interface{}, len(s.Columns))
	for _, c := range s.Columns {
		v, err := Value(c.Kind, row[c.Name])
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", c.Name)
		}
		if v == nil {
			native[c.Name] = nil
			continue
		}
		native[c.Name] = goavro.Union(c.Kind.avroType(), v)
	}
	return native, nil
}
