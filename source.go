package datalake

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ObjectStore is the interface to a bucket based object storage service.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// PutObject writes body at key in bucket, replacing any existing object.
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
	// ListObjects returns the keys of every object under prefix, recursively,
	// in lexical order.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	// GetObject opens the object at key for reading.
	GetObject(ctx context.Context, bucket, key string) (NamedReadCloser, error)
}

// NamedReadCloser is an io.ReadCloser which knows where it came from.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
	Meta() map[string]interface{}
}

// RawSource is the interface for getting a sequence of readers, one per
// underlying object or file. NextReader returns io.EOF when there are no more.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// PrefixSource is a RawSource over all of the objects under a prefix in a
// bucket. The listing is taken once, when the source is created.
type PrefixSource struct {
	ctx    context.Context
	store  ObjectStore
	bucket string
	keys   []string
	idx    *uint64
}

// NewPrefixSource lists the objects under prefix and returns a source which
// will open them one at a time.
func NewPrefixSource(ctx context.Context, store ObjectStore, bucket, prefix string) (*PrefixSource, error) {
	keys, err := store.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "listing objects under %s/%s", bucket, prefix)
	}
	idx := uint64(0)
	return &PrefixSource{
		ctx:    ctx,
		store:  store,
		bucket: bucket,
		keys:   keys,
		idx:    &idx,
	}, nil
}

// Keys returns the listing the source was created with.
func (s *PrefixSource) Keys() []string {
	return s.keys
}

// NextReader implements RawSource.
func (s *PrefixSource) NextReader() (NamedReadCloser, error) {
	idx := atomic.AddUint64(s.idx, 1) - 1
	if int(idx) >= len(s.keys) {
		return nil, io.EOF
	}
	key := s.keys[idx]
	r, err := s.store.GetObject(s.ctx, s.bucket, key)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", key)
	}
	return r, nil
}
