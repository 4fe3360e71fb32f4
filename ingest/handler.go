package ingest

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/json"
	"github.com/pkg/errors"
)

// RawPrefix is the prefix under which every raw object is written.
const RawPrefix = "raw/"

// keyLayout gives second granularity and sorts lexically in time order.
const keyLayout = "2006/01/02/15/04/05"

// Key returns the raw zone key for a record with partitionKey written at t:
// raw/<yyyy>/<MM>/<dd>/<HH>/<mm>/<ss>/<partitionKey>.json.
func Key(t time.Time, partitionKey string) string {
	return RawPrefix + t.Format(keyLayout) + "/" + partitionKey + ".json"
}

// HandlerOption is a functional option type for Handler.
type HandlerOption func(h *Handler)

// OptHandlerClock sets the function the handler gets the write time from. The
// default is time.Now in UTC.
func OptHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// OptHandlerLogger sets the handler's logger.
func OptHandlerLogger(log datalake.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// OptHandlerStatter sets the handler's statter.
func OptHandlerStatter(stats datalake.Statter) HandlerOption {
	return func(h *Handler) {
		h.stats = stats
	}
}

// Handler copies stream records into the raw zone. It holds no state between
// calls, so one Handler may serve every invocation of a process.
type Handler struct {
	store  datalake.ObjectStore
	bucket string

	now   func() time.Time
	log   datalake.Logger
	stats datalake.Statter
}

// NewHandler returns a Handler which writes to bucket through store.
func NewHandler(store datalake.ObjectStore, bucket string, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		bucket: bucket,
		now:    func() time.Time { return time.Now().UTC() },
		log:    datalake.NopLogger{},
		stats:  datalake.NopStatter{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle stores every record of batch, in order. The first record which can't
// be decoded or stored fails the whole batch; records after it are not
// attempted and records before it stay written.
func (h *Handler) Handle(ctx context.Context, batch Batch) (Response, error) {
	log := h.log
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = datalake.WithField(log, "request_id", lc.AwsRequestID)
	}
	start := time.Now()
	for i, rec := range batch.Records {
		payload, err := base64.StdEncoding.DecodeString(rec.Kinesis.Data)
		if err != nil {
			return Response{}, errors.Wrapf(err, "decoding base64 payload of record %d", i)
		}
		key, err := h.Store(ctx, payload, rec.Kinesis.PartitionKey)
		if err != nil {
			return Response{}, errors.Wrapf(err, "storing record %d", i)
		}
		log.Debugf("record %d seq=%s stored at %s", i, rec.Kinesis.SequenceNumber, key)
	}
	h.stats.Timing("ingest.batch", time.Since(start), 1)
	log.Printf("stored %d records in %s", len(batch.Records), h.bucket)
	return Response{StatusCode: 200, Body: successBody}, nil
}

// Store writes one decoded payload to the raw zone and returns the key it was
// written at. The payload must be a single JSON value.
func (h *Handler) Store(ctx context.Context, payload []byte, partitionKey string) (string, error) {
	body, err := json.Reencode(payload)
	if err != nil {
		return "", errors.Wrap(err, "parsing JSON payload")
	}
	key := Key(h.now(), partitionKey)
	err = h.store.PutObject(ctx, h.bucket, key, body, "application/json")
	if err != nil {
		return "", errors.Wrapf(err, "putting object %s", key)
	}
	h.stats.Count("ingest.records", 1, 1)
	h.stats.Count("ingest.bytes", int64(len(body)), 1)
	return key, nil
}
