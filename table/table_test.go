package table

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows() []Row {
	return []Row{
		{"timestamp": "2024-01-02T03:04:05Z", "user_id": json.Number("42"), "event_type": "click", "data": map[string]interface{}{"x": json.Number("1")}, "score": json.Number("1.5"), "ok": true},
		{"timestamp": "2024-01-02T03:04:06Z", "user_id": json.Number("43"), "event_type": "view", "data": "plain", "score": json.Number("2"), "ok": nil},
		{"timestamp": "2024-01-02T03:04:07Z", "event_type": "view", "data": []interface{}{json.Number("1"), "a"}},
	}
}

func TestInfer(t *testing.T) {
	s := Infer(rows(), []string{"timestamp", "user_id", "event_type", "data", "score", "ok", "missing"})
	kinds := make(map[string]Kind)
	for _, c := range s.Columns {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, map[string]Kind{
		"timestamp":  String,
		"user_id":    Int,
		"event_type": String,
		"data":       String,
		"score":      Float,
		"ok":         Bool,
		"missing":    String,
	}, kinds)
	assert.Equal(t, []string{"timestamp", "user_id", "event_type", "data", "score", "ok", "missing"}, s.Names())
}

func TestInferMixed(t *testing.T) {
	s := Infer([]Row{{"v": true}, {"v": json.Number("1")}}, []string{"v"})
	assert.Equal(t, String, s.Columns[0].Kind)
	s = Infer([]Row{{"v": json.Number("1e400")}}, []string{"v"})
	assert.Equal(t, String, s.Columns[0].Kind)
}

func TestText(t *testing.T) {
	for _, test := range []struct {
		in  interface{}
		out string
	}{
		{"s", "s"},
		{json.Number("1.50"), "1.50"},
		{true, "true"},
		{map[string]interface{}{"b": json.Number("2"), "a": "x"}, `{"a":"x","b":2}`},
		{[]interface{}{json.Number("1"), nil}, `[1,null]`},
	} {
		out, err := Text(test.in)
		require.NoError(t, err)
		assert.Equal(t, test.out, out)
	}
}

func TestRecord(t *testing.T) {
	s := Infer(rows(), []string{"timestamp", "user_id", "data", "score", "ok"})
	rec, err := s.Record(memory.NewGoAllocator(), rows())
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(3), rec.NumRows())
	require.Equal(t, int64(5), rec.NumCols())
	assert.Equal(t, arrow.PrimitiveTypes.Int64, rec.Schema().Field(1).Type)

	ts := rec.Column(0).(*array.String)
	assert.Equal(t, "2024-01-02T03:04:07Z", ts.Value(2))
	users := rec.Column(1).(*array.Int64)
	assert.Equal(t, int64(42), users.Value(0))
	assert.True(t, users.IsNull(2))
	data := rec.Column(2).(*array.String)
	assert.Equal(t, `{"x":1}`, data.Value(0))
	assert.Equal(t, "plain", data.Value(1))
	assert.Equal(t, `[1,"a"]`, data.Value(2))
	score := rec.Column(3).(*array.Float64)
	assert.Equal(t, 2.0, score.Value(1))
	ok := rec.Column(4).(*array.Boolean)
	assert.True(t, ok.Value(0))
	assert.True(t, ok.IsNull(1))
}

func TestAvroRoundTrip(t *testing.T) {
	s := Infer(rows(), []string{"timestamp", "user_id", "event_type", "data", "score", "ok"})
	schema, err := s.AvroSchema("curated")
	require.NoError(t, err)
	codec, err := goavro.NewCodec(schema)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: buf, Codec: codec})
	require.NoError(t, err)
	for _, row := range rows() {
		native, err := s.AvroNative(row)
		require.NoError(t, err)
		require.NoError(t, w.Append([]interface{}{native}))
	}

	r, err := goavro.NewOCFReader(buf)
	require.NoError(t, err)
	var got []map[string]interface{}
	for r.Scan() {
		datum, err := r.Read()
		require.NoError(t, err)
		got = append(got, datum.(map[string]interface{}))
	}
	require.NoError(t, r.Err())
	require.Len(t, got, 3)
	assert.Equal(t, map[string]interface{}{"long": int64(42)}, got[0]["user_id"])
	assert.Equal(t, map[string]interface{}{"string": `{"x":1}`}, got[0]["data"])
	assert.Nil(t, got[2]["user_id"])
	assert.Nil(t, got[1]["ok"])
}
