package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/IBM/sarama"
	"github.com/linkedin/goavro/v2"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/ingest"
	"github.com/pilosa/datalake/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventSchema = `{
	"type": "record",
	"name": "event",
	"fields": [
		{"name": "timestamp", "type": "string"},
		{"name": "user_id", "type": "long"},
		{"name": "event_type", "type": "string"}
	]
}`

func registryServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/schemas/ids/7" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"schema": eventSchema})
	}))
}

func avroValue(t *testing.T, id uint32, native map[string]interface{}) []byte {
	codec, err := goavro.NewCodec(eventSchema)
	require.NoError(t, err)
	buf := make([]byte, 5)
	binary.BigEndian.PutUint32(buf[1:], id)
	buf, err = codec.BinaryFromNative(buf, native)
	require.NoError(t, err)
	return buf
}

func TestRegistryDecode(t *testing.T) {
	var hits int32
	srv := registryServer(t, &hits)
	defer srv.Close()

	r := NewRegistry(srv.URL)
	val := avroValue(t, 7, map[string]interface{}{"timestamp": "2024-01-02T03:04:05Z", "user_id": int64(42), "event_type": "click"})
	for i := 0; i < 2; i++ {
		text, err := r.Decode(context.Background(), val)
		require.NoError(t, err)
		assert.JSONEq(t, `{"timestamp": "2024-01-02T03:04:05Z", "user_id": 42, "event_type": "click"}`, string(text))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "schema is cached")
}

func TestRegistryErrors(t *testing.T) {
	var hits int32
	srv := registryServer(t, &hits)
	defer srv.Close()
	r := NewRegistry(srv.URL)

	_, err := r.Decode(context.Background(), []byte(`{"a":1}`))
	assert.Error(t, err)

	_, err = r.Decode(context.Background(), avroValue(t, 8, map[string]interface{}{"timestamp": "t", "user_id": int64(1), "event_type": "e"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code: 404")
}

func TestNewRegistryURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8081", NewRegistry("localhost:8081").URL)
	assert.Equal(t, "https://registry.example.com", NewRegistry("https://registry.example.com/").URL)
}

func TestConsumeClaimAvro(t *testing.T) {
	var hits int32
	srv := registryServer(t, &hits)
	defer srv.Close()

	store := mock.NewStore()
	gh := &groupHandler{
		storer:   ingest.NewHandler(store, "raw-bucket"),
		registry: NewRegistry(srv.URL),
		log:      datalake.NopLogger{},
		stats:    datalake.NopStatter{},
		cancel:   func() {},
	}
	s := &fakeSession{ctx: context.Background()}
	m := &sarama.ConsumerMessage{Topic: "events", Key: []byte("p1"),
		Value: avroValue(t, 7, map[string]interface{}{"timestamp": "t", "user_id": int64(1), "event_type": "click"})}
	require.NoError(t, gh.ConsumeClaim(s, newClaim(m)))
	require.Len(t, store.Puts, 1)
	assert.JSONEq(t, `{"timestamp": "t", "user_id": 1, "event_type": "click"}`, string(store.Puts[0].Body))
}
