package redshift

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/linkedin/goavro/v2"
	"github.com/pilosa/datalake/mock"
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sqls []string
	err  error
}

func (f *fakeConn) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("COPY"), nil
}

var testRows = []table.Row{
	{"timestamp": "2024-01-02T03:04:05Z", "user_id": json.Number("1"), "event_type": "click", "data": "x"},
	{"timestamp": "2024-01-02T03:04:06Z", "user_id": json.Number("2"), "event_type": "view", "data": nil},
}

func testSchema() table.Schema {
	return table.Infer(testRows, []string{"timestamp", "user_id", "event_type", "data"})
}

func TestCopySQL(t *testing.T) {
	assert.Equal(t,
		`COPY "events" FROM 's3://curated/temp/run-1/' IAM_ROLE 'arn:aws:iam::123456789012:role/load' FORMAT AS AVRO 'auto'`,
		CopySQL("events", "s3://curated/temp/run-1/", "arn:aws:iam::123456789012:role/load"))
	assert.Equal(t,
		`COPY "public"."events" FROM 's3://curated/temp/it''s/' IAM_ROLE default FORMAT AS AVRO 'auto'`,
		CopySQL("public.events", "s3://curated/temp/it's/", ""))
}

func TestLoad(t *testing.T) {
	store := mock.NewStore()
	conn := &fakeConn{}
	l := &Loader{Store: store, Bucket: "curated", Table: "events"}

	require.NoError(t, l.Load(context.Background(), conn, "job-20240102T030405Z", testSchema(), testRows))

	require.Len(t, store.Puts, 1)
	put := store.Puts[0]
	assert.Equal(t, "curated", put.Bucket)
	assert.Equal(t, "temp/job-20240102T030405Z/part-00000.avro", put.Key)

	r, err := goavro.NewOCFReader(bytes.NewReader(put.Body))
	require.NoError(t, err)
	n := 0
	for r.Scan() {
		datum, err := r.Read()
		require.NoError(t, err)
		rec := datum.(map[string]interface{})
		assert.Len(t, rec, 4)
		n++
	}
	assert.Equal(t, 2, n)

	require.Len(t, conn.sqls, 1)
	assert.Equal(t, `COPY "events" FROM 's3://curated/temp/job-20240102T030405Z/' IAM_ROLE default FORMAT AS AVRO 'auto'`, conn.sqls[0])
}

func TestLoadTwiceCopiesTwice(t *testing.T) {
	store := mock.NewStore()
	conn := &fakeConn{}
	l := &Loader{Store: store, Bucket: "curated", Table: "events"}
	require.NoError(t, l.Load(context.Background(), conn, "run-1", testSchema(), testRows))
	require.NoError(t, l.Load(context.Background(), conn, "run-2", testSchema(), testRows))
	assert.Len(t, conn.sqls, 2)
	assert.Len(t, store.Puts, 2)
}

func TestLoadNoRows(t *testing.T) {
	store := mock.NewStore()
	conn := &fakeConn{}
	l := &Loader{Store: store, Bucket: "curated", Table: "events"}
	require.NoError(t, l.Load(context.Background(), conn, "run-1", testSchema(), nil))
	assert.Empty(t, conn.sqls)
	assert.Empty(t, store.Puts)
}

func TestLoadCopyError(t *testing.T) {
	conn := &fakeConn{err: errors.New("permission denied")}
	l := &Loader{Store: mock.NewStore(), Bucket: "curated", Table: "events"}
	err := l.Load(context.Background(), conn, "run-1", testSchema(), testRows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copying into events")
}

func TestConnConfig(t *testing.T) {
	c := ConnConfig{Host: HostFor("analytics"), Port: DefaultPort, Database: "analytics", User: "admin", Password: "s3cr3t"}
	assert.Equal(t, "jdbc:redshift://analytics.redshift.amazonaws.com:5439/analytics", c.JDBCURL())
	assert.NotContains(t, c.String(), "s3cr3t")

	cfg, err := c.pgxConfig()
	require.NoError(t, err)
	assert.Equal(t, "analytics.redshift.amazonaws.com", cfg.Host)
	assert.Equal(t, uint16(5439), cfg.Port)
	assert.Equal(t, "analytics", cfg.Database)
	assert.Equal(t, "admin", cfg.User)
	assert.Equal(t, "s3cr3t", cfg.Password)
	assert.NotNil(t, cfg.TLSConfig)
}
