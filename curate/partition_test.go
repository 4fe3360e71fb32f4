package curate

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/pilosa/datalake/mock"
	"github.com/pilosa/datalake/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(ts string, user int, y, m, d string) table.Row {
	return table.Row{
		"timestamp":  ts,
		"user_id":    json.Number(strconv.Itoa(user)),
		"event_type": "click",
		"data":       "payload",
		"year":       json.Number(y),
		"month":      json.Number(m),
		"day":        json.Number(d),
	}
}

func readParquet(t *testing.T, body []byte) arrow.Table {
	t.Helper()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(body),
		parquet.NewReaderProperties(memory.DefaultAllocator), pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	return tbl
}

func TestPartitionedWrite(t *testing.T) {
	store := mock.NewStore()
	rows := []table.Row{
		event("2024-01-02T00:00:00Z", 1, "2024", "1", "2"),
		event("2024-01-03T00:00:00Z", 2, "2024", "1", "3"),
		event("2024-01-02T00:00:01Z", 3, "2024", "1", "2"),
	}
	w := &PartitionedWriter{
		Store:      store,
		Bucket:     "curated",
		Prefix:     CuratedPrefix,
		RunID:      "job-20240104T000000Z",
		Schema:     table.Infer(rows, Fields),
		Partitions: PartitionKeys,
	}
	keys, err := w.Write(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"curated/year=2024/month=1/day=2/part-00000-job-20240104T000000Z.snappy.parquet",
		"curated/year=2024/month=1/day=3/part-00001-job-20240104T000000Z.snappy.parquet",
	}, keys)

	body, ok := store.Object("curated", keys[0])
	require.True(t, ok)
	tbl := readParquet(t, body)
	defer tbl.Release()
	assert.Equal(t, int64(2), tbl.NumRows())
	require.Equal(t, int64(4), tbl.NumCols())
	names := make([]string, 0, 4)
	for _, f := range tbl.Schema().Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, Fields, names)

	users := tbl.Column(1).Data().Chunk(0).(*array.Int64)
	assert.Equal(t, int64(1), users.Value(0))
	assert.Equal(t, int64(3), users.Value(1))
}

func TestPartitionedWriteMissingPartition(t *testing.T) {
	store := mock.NewStore()
	a := event("2024-01-02T00:00:00Z", 1, "2024", "1", "2")
	b := event("2024-01-02T00:00:00Z", 2, "2024", "1", "2")
	delete(a, "day")
	delete(b, "day")
	rows := []table.Row{a, b}
	w := &PartitionedWriter{
		Store:      store,
		Bucket:     "curated",
		Prefix:     CuratedPrefix,
		RunID:      "run",
		Schema:     table.Infer(rows, Fields),
		Partitions: PartitionKeys,
	}
	_, err := w.Write(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'day'")
	assert.Empty(t, store.Puts)
}

func TestPartitionedWriteDefaultPartition(t *testing.T) {
	store := mock.NewStore()
	good := event("2024-01-02T00:00:00Z", 1, "2024", "1", "2")
	absent := event("2024-01-02T00:00:01Z", 2, "2024", "1", "2")
	delete(absent, "day")
	null := event("2024-01-02T00:00:02Z", 3, "2024", "1", "2")
	null["day"] = nil
	empty := event("2024-01-02T00:00:03Z", 4, "2024", "1", "2")
	empty["month"] = ""
	rows := []table.Row{good, absent, null, empty}
	w := &PartitionedWriter{
		Store:      store,
		Bucket:     "curated",
		Prefix:     CuratedPrefix,
		RunID:      "run",
		Schema:     table.Infer(rows, Fields),
		Partitions: PartitionKeys,
	}
	keys, err := w.Write(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"curated/year=2024/month=1/day=2/part-00000-run.snappy.parquet",
		"curated/year=2024/month=1/day=__HIVE_DEFAULT_PARTITION__/part-00001-run.snappy.parquet",
		"curated/year=2024/month=__HIVE_DEFAULT_PARTITION__/day=2/part-00002-run.snappy.parquet",
	}, keys)

	body, ok := store.Object("curated", keys[1])
	require.True(t, ok)
	tbl := readParquet(t, body)
	defer tbl.Release()
	assert.Equal(t, int64(2), tbl.NumRows())
}

func TestEscapePathValue(t *testing.T) {
	assert.Equal(t, DefaultPartition, escapePathValue(""))
	assert.Equal(t, "2024", escapePathValue("2024"))
	assert.Equal(t, "a%2Fb%3Dc", escapePathValue("a/b=c"))
}
