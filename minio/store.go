// Package minio provides a datalake.ObjectStore for S3 compatible servers
// such as MinIO.
package minio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// Config has the parameters used to connect to the server.
type Config struct {
	Endpoint  string // host:port of the server.
	AccessKey string
	SecretKey string
	Insecure  bool // Use plain HTTP.
	Region    string
}

// access is the part of the minio client the Store uses, so tests can swap
// in a fake.
type access interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// client narrows *minio.Client's GetObject to return an io.ReadCloser.
type client struct {
	ref *minio.Client
}

var _ access = &client{}

func (c *client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return c.ref.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (c *client) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return c.ref.ListObjects(ctx, bucketName, opts)
}

func (c *client) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.ref.GetObject(ctx, bucketName, objectName, opts)
}

// Store is a datalake.ObjectStore on an S3 compatible server.
type Store struct {
	client access
}

var _ datalake.ObjectStore = &Store{}

// New returns a Store connected according to config.
func New(config *Config) (*Store, error) {
	if config.Endpoint == "" {
		return nil, errors.New("an endpoint is required")
	}
	ref, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: !config.Insecure,
		Region: config.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "getting minio client")
	}
	return &Store{client: &client{ref: ref}}, nil
}

// PutObject implements datalake.ObjectStore.
func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "putting %s/%s", bucket, key)
}

// ListObjects implements datalake.ObjectStore.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := make([]string, 0)
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	for obj := range s.client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "listing %s/%s", bucket, prefix)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject implements datalake.ObjectStore.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (datalake.NamedReadCloser, error) {
	r, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s/%s", bucket, key)
	}
	return &object{name: key, ReadCloser: r}, nil
}

type object struct {
	name string
	io.ReadCloser
}

func (o *object) Name() string                 { return o.name }
func (o *object) Meta() map[string]interface{} { return nil }
