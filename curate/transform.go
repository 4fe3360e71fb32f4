package curate

import (
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
)

// Fields are the columns the job projects every raw document onto.
var Fields = []string{"timestamp", "user_id", "event_type", "data"}

// PartitionKeys are the columns the curated zone is partitioned by.
var PartitionKeys = []string{"year", "month", "day"}

// Transformer turns the raw rows into curated rows. It may change the number
// of rows as well as their contents.
type Transformer interface {
	Transform(rows []table.Row) ([]table.Row, error)
}

// TransformFunc adapts a function to the Transformer interface.
type TransformFunc func(rows []table.Row) ([]table.Row, error)

// Transform implements Transformer.
func (f TransformFunc) Transform(rows []table.Row) ([]table.Row, error) {
	return f(rows)
}

// Select is a Transformer which projects each row onto Fields, keeping the
// Carry columns alongside when they are present. Values are not changed and
// no rows are dropped.
type Select struct {
	Fields []string
	Carry  []string
}

// NewSelect returns a Select of fields which carries the partition keys.
func NewSelect(fields ...string) *Select {
	return &Select{Fields: fields, Carry: PartitionKeys}
}

// Transform implements Transformer. Selecting a field which no row has is an
// error; rows which lack a field that others have get a null.
func (s *Select) Transform(rows []table.Row) ([]table.Row, error) {
	// An empty raw zone selects nothing and the run succeeds without output.
	if len(rows) == 0 {
		return rows, nil
	}
	for _, f := range s.Fields {
		if !anyHas(rows, f) {
			return nil, errors.Errorf("cannot select column '%s': no raw record has it", f)
		}
	}
	out := make([]table.Row, len(rows))
	for i, row := range rows {
		o := make(table.Row, len(s.Fields)+len(s.Carry))
		for _, f := range s.Fields {
			o[f] = row[f]
		}
		for _, c := range s.Carry {
			if v, ok := row[c]; ok {
				o[c] = v
			}
		}
		out[i] = o
	}
	return out, nil
}

func anyHas(rows []table.Row, field string) bool {
	for _, row := range rows {
		if _, ok := row[field]; ok {
			return true
		}
	}
	return false
}
