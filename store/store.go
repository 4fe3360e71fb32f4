// Package store opens the datalake.ObjectStore selected by configuration.
package store

import (
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/aws/s3"
	"github.com/pilosa/datalake/file"
	"github.com/pilosa/datalake/minio"
	"github.com/pkg/errors"
)

// Backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendFile  = "file"
)

// Config holds the object store settings shared by every command. It is
// meant to be embedded in a command's Main with `flag:"!embed"`.
type Config struct {
	StoreBackend   string `help:"Object store backend: s3, minio or file."`
	StoreRegion    string `help:"AWS region. Empty uses the AWS environment."`
	StoreEndpoint  string `help:"Alternative S3 endpoint (s3), or host:port of the server (minio)."`
	StoreAccessKey string `help:"Access key for the minio backend."`
	StoreSecretKey string `help:"Secret key for the minio backend."`
	StoreInsecure  bool   `help:"Use plain HTTP with the minio backend."`
	StoreRoot      string `help:"Root directory for the file backend; buckets are subdirectories."`
}

// NewConfig returns a Config for S3.
func NewConfig() Config {
	return Config{StoreBackend: BackendS3}
}

// Open returns the configured ObjectStore.
func (c Config) Open() (datalake.ObjectStore, error) {
	switch c.StoreBackend {
	case BackendS3, "":
		opts := []s3.StoreOption{s3.OptStoreRegion(c.StoreRegion)}
		if c.StoreEndpoint != "" {
			opts = append(opts, s3.OptStoreEndpoint(c.StoreEndpoint))
		}
		s, err := s3.NewStore(opts...)
		if err != nil {
			return nil, errors.Wrap(err, "getting s3 store")
		}
		return s, nil
	case BackendMinio:
		s, err := minio.New(&minio.Config{
			Endpoint:  c.StoreEndpoint,
			AccessKey: c.StoreAccessKey,
			SecretKey: c.StoreSecretKey,
			Insecure:  c.StoreInsecure,
			Region:    c.StoreRegion,
		})
		if err != nil {
			return nil, errors.Wrap(err, "getting minio store")
		}
		return s, nil
	case BackendFile:
		s, err := file.NewStore(c.StoreRoot)
		if err != nil {
			return nil, errors.Wrap(err, "getting file store")
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown store backend '%s'", c.StoreBackend)
	}
}
