package mock

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// Put is a single recorded call to Store.PutObject.
type Put struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
}

// Store is an in-memory datalake.ObjectStore. Every successful put is recorded
// in order in Puts. If FailPut is set, it is consulted before each put and any
// error it returns is returned without storing anything.
type Store struct {
	mu      sync.Mutex
	objects map[string]map[string]Put

	Puts    []Put
	FailPut func(bucket, key string) error
}

var _ datalake.ObjectStore = &Store{}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{objects: make(map[string]map[string]Put)}
}

// PutObject implements datalake.ObjectStore.
func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		if err := s.FailPut(bucket, key); err != nil {
			return err
		}
	}
	if s.objects == nil {
		s.objects = make(map[string]map[string]Put)
	}
	b, ok := s.objects[bucket]
	if !ok {
		b = make(map[string]Put)
		s.objects[bucket] = b
	}
	p := Put{Bucket: bucket, Key: key, Body: append([]byte(nil), body...), ContentType: contentType}
	b[key] = p
	s.Puts = append(s.Puts, p)
	return nil
}

// ListObjects implements datalake.ObjectStore.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0)
	for k := range s.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject implements datalake.ObjectStore.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (datalake.NamedReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.objects[bucket][key]
	if !ok {
		return nil, errors.Errorf("no such object %s/%s", bucket, key)
	}
	return &object{name: key, ReadCloser: ioutil.NopCloser(bytes.NewReader(p.Body))}, nil
}

// Object returns the body stored at key, and whether it exists.
func (s *Store) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.objects[bucket][key]
	return p.Body, ok
}

// MustPut stores body at key and panics on error. It does not go through
// FailPut and is not recorded in Puts; it is for seeding test fixtures.
func (s *Store) MustPut(bucket, key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string]map[string]Put)
	}
	if s.objects[bucket] == nil {
		s.objects[bucket] = make(map[string]Put)
	}
	s.objects[bucket][key] = Put{Bucket: bucket, Key: key, Body: []byte(body)}
}

type object struct {
	name string
	io.ReadCloser
}

func (o *object) Name() string                 { return o.name }
func (o *object) Meta() map[string]interface{} { return nil }
