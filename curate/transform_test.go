package curate

import (
	"encoding/json"
	"testing"

	"github.com/pilosa/datalake/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	rows := []table.Row{
		{"timestamp": "t1", "user_id": json.Number("1"), "event_type": "click", "data": "d", "extra": "x", "year": json.Number("2024"), "month": json.Number("1"), "day": json.Number("2")},
		{"timestamp": "t2", "user_id": json.Number("2"), "event_type": "view", "data": nil},
		{"timestamp": "t3", "event_type": "view", "data": map[string]interface{}{"k": "v"}, "year": "2024"},
	}
	out, err := NewSelect(Fields...).Transform(rows)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, table.Row{"timestamp": "t1", "user_id": json.Number("1"), "event_type": "click", "data": "d", "year": json.Number("2024"), "month": json.Number("1"), "day": json.Number("2")}, out[0])
	assert.Equal(t, table.Row{"timestamp": "t2", "user_id": json.Number("2"), "event_type": "view", "data": nil}, out[1])
	assert.Equal(t, table.Row{"timestamp": "t3", "user_id": nil, "event_type": "view", "data": map[string]interface{}{"k": "v"}, "year": "2024"}, out[2])

	// the input is untouched
	assert.Equal(t, "x", rows[0]["extra"])
}

func TestSelectMissingColumn(t *testing.T) {
	rows := []table.Row{{"timestamp": "t1", "event_type": "click", "data": "d"}}
	_, err := NewSelect(Fields...).Transform(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
}

func TestSelectNoRows(t *testing.T) {
	out, err := NewSelect(Fields...).Transform(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTransformFunc(t *testing.T) {
	double := TransformFunc(func(rows []table.Row) ([]table.Row, error) {
		return append(rows, rows...), nil
	})
	out, err := double.Transform([]table.Row{{"a": "b"}})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
