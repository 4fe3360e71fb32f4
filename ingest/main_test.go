package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/datalake/mock"
	"github.com/pilosa/datalake/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trigger event as delivered by the platform.
const event = `{
  "Records": [
    {
      "kinesis": {
        "kinesisSchemaVersion": "1.0",
        "partitionKey": "p1",
        "sequenceNumber": "49590338271490256608559692538361571095921575989136588898",
        "data": "eyJhIjoxfQ==",
        "approximateArrivalTimestamp": 1545084650.987
      },
      "eventSource": "aws:kinesis",
      "eventVersion": "1.0",
      "eventID": "shardId-000000000006:49590338271490256608559692538361571095921575989136588898",
      "eventName": "aws:kinesis:record",
      "awsRegion": "us-east-2",
      "eventSourceARN": "arn:aws:kinesis:us-east-2:123456789012:stream/lambda-stream"
    }
  ]
}`

func TestBatchDecoding(t *testing.T) {
	var b Batch
	require.NoError(t, json.Unmarshal([]byte(event), &b))
	require.Len(t, b.Records, 1)
	k := b.Records[0].Kinesis
	assert.Equal(t, "p1", k.PartitionKey)
	assert.Equal(t, "eyJhIjoxfQ==", k.Data)
	assert.Equal(t, int64(1545084650), k.ApproximateArrivalTimestamp.Unix())
	assert.Equal(t, "aws:kinesis", b.Records[0].EventSource)
}

func TestMainEventFromStdin(t *testing.T) {
	st := mock.NewStore()
	out := &bytes.Buffer{}
	m := NewMain()
	m.RawBucket = "raw-bucket"
	m.EventFile = "-"
	m.Stdin = strings.NewReader(event)
	m.Stdout = out
	m.Store = st
	m.Now = fixedClock(t0)

	require.NoError(t, m.Run(context.Background()))
	require.Len(t, st.Puts, 1)
	assert.Equal(t, "raw/2024/01/02/03/04/05/p1.json", st.Puts[0].Key)
	assert.Equal(t, `{"a": 1}`, string(st.Puts[0].Body))
	assert.JSONEq(t, `{"statusCode": 200, "body": "\"Successfully processed records\""}`, out.String())
}

func TestMainFileBackend(t *testing.T) {
	d, err := ioutil.TempDir("", "ingestmain")
	require.NoError(t, err)
	defer os.RemoveAll(d)
	eventPath := filepath.Join(d, "event.json")
	require.NoError(t, ioutil.WriteFile(eventPath, []byte(event), 0644))

	m := NewMain()
	m.RawBucket = "raw-bucket"
	m.EventFile = eventPath
	m.Config = store.Config{StoreBackend: store.BackendFile, StoreRoot: filepath.Join(d, "lake")}
	m.Stdout = ioutil.Discard
	m.Now = fixedClock(t0)

	require.NoError(t, m.Run(context.Background()))
	body, err := ioutil.ReadFile(filepath.Join(d, "lake", "raw-bucket", "raw", "2024", "01", "02", "03", "04", "05", "p1.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(body))
}

func TestMainRequiresBucket(t *testing.T) {
	m := NewMain()
	m.Store = mock.NewStore()
	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAW_BUCKET")
}
