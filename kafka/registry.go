package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"

	"github.com/linkedin/goavro/v2"
	"github.com/pkg/errors"
)

// Registry decodes values in the Confluent wire format, a zero byte and a
// four byte schema ID followed by Avro binary, into Avro's JSON encoding,
// fetching schemas from a schema registry.
type Registry struct {
	URL    string
	Client *http.Client

	lock  sync.RWMutex
	cache map[int32]*goavro.Codec
}

// NewRegistry returns a Registry for the schema registry at url. A url
// without a scheme is taken to be http.
func NewRegistry(url string) *Registry {
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	return &Registry{
		URL:    strings.TrimSuffix(url, "/"),
		Client: http.DefaultClient,
		cache:  make(map[int32]*goavro.Codec),
	}
}

// Decode returns the JSON form of val.
func (r *Registry) Decode(ctx context.Context, val []byte) ([]byte, error) {
	if len(val) <= 5 || val[0] != 0 {
		return nil, errors.Errorf("unexpected magic byte or length in avro kafka value, should be 0x00, but got 0x%.8x", val)
	}
	id := int32(binary.BigEndian.Uint32(val[1:5]))
	codec, err := r.codec(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting avro codec for schema %d", id)
	}
	native, _, err := codec.NativeFromBinary(val[5:])
	if err != nil {
		return nil, errors.Wrap(err, "decoding avro value")
	}
	text, err := codec.TextualFromNative(nil, native)
	return text, errors.Wrap(err, "encoding avro value as json")
}

type schemaResponse struct {
	Schema string `json:"schema"`
}

func (r *Registry) codec(ctx context.Context, id int32) (*goavro.Codec, error) {
	r.lock.RLock()
	codec, ok := r.cache[id]
	r.lock.RUnlock()
	if ok {
		return codec, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/schemas/ids/%d", r.URL, id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building schema request")
	}
	req.Header.Set("Accept", "application/vnd.schemaregistry.v1+json")
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "getting schema from registry")
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading schema response")
	}
	if resp.StatusCode >= 300 {
		return nil, errors.Errorf("failed to get schema, code: %d, resp: %s", resp.StatusCode, body)
	}
	schema := schemaResponse{}
	if err := json.Unmarshal(body, &schema); err != nil {
		return nil, errors.Wrap(err, "decoding schema from registry")
	}
	codec, err = goavro.NewCodec(schema.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "parsing schema")
	}

	r.lock.Lock()
	r.cache[id] = codec
	r.lock.Unlock()
	return codec, nil
}
