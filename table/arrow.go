package table

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

func (k Kind) arrowType() arrow.DataType {
	switch k {
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Int:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

// Arrow returns the Arrow schema for s. Every field is nullable.
func (s Schema) Arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Kind.arrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds an Arrow record holding rows. The caller must Release it.
func (s Schema) Record(mem memory.Allocator, rows []Row) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, s.Arrow())
	defer b.Release()
	for r, row := range rows {
		for i, c := range s.Columns {
			v, err := Value(c.Kind, row[c.Name])
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %s", r, c.Name)
			}
			fb := b.Field(i)
			if v == nil {
				fb.AppendNull()
				continue
			}
			switch c.Kind {
			case Bool:
				fb.(*array.BooleanBuilder).Append(v.(bool))
			case Int:
				fb.(*array.Int64Builder).Append(v.(int64))
			case Float:
				fb.(*array.Float64Builder).Append(v.(float64))
			default:
				fb.(*array.StringBuilder).Append(v.(string))
			}
		}
	}
	return b.NewRecord(), nil
}
