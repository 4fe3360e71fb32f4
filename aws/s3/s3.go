// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// StoreOption is a functional option type for s3.Store.
type StoreOption func(s *Store)

// OptStoreRegion is a StoreOption which sets the AWS region for a Store.
func OptStoreRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

// OptStoreEndpoint points the Store at an alternative S3 endpoint. Path style
// addressing is used whenever an endpoint is set.
func OptStoreEndpoint(endpoint string) StoreOption {
	return func(s *Store) {
		s.endpoint = endpoint
	}
}

// OptStoreClient makes the Store use client rather than creating its own.
func OptStoreClient(client s3iface.S3API) StoreOption {
	return func(s *Store) {
		s.s3 = client
	}
}

// Store is a datalake.ObjectStore backed by S3.
type Store struct {
	region   string
	endpoint string

	sess *session.Session
	s3   s3iface.S3API
}

var _ datalake.ObjectStore = &Store{}

// NewStore returns a new Store with the options applied. Unless a client is
// supplied, credentials come from the default AWS provider chain.
func NewStore(opts ...StoreOption) (s *Store, err error) {
	s = &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.s3 != nil {
		return s, nil
	}
	cfg := &aws.Config{}
	if s.region != "" {
		cfg.Region = aws.String(s.region)
	}
	if s.endpoint != "" {
		cfg.Endpoint = aws.String(s.endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	s.sess, err = session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	s.s3 = s3.New(s.sess)
	return s, nil
}

// Session returns the AWS session the Store was created with, or nil if it
// was given a client.
func (s *Store) Session() *session.Session {
	return s.sess
}

// PutObject implements datalake.ObjectStore.
func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return errors.Wrapf(err, "putting s3://%s/%s", bucket, key)
}

// ListObjects implements datalake.ObjectStore. Zero length "directory"
// markers, whose keys end in a slash, are skipped.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := s.s3.ListObjectsV2PagesWithContext(ctx,
		&s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(prefix)},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				key := aws.StringValue(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}
				keys = append(keys, key)
			}
			return true
		})
	if err != nil {
		return nil, errors.Wrapf(err, "listing s3://%s/%s", bucket, prefix)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject implements datalake.ObjectStore.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (datalake.NamedReadCloser, error) {
	result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", bucket, key)
	}
	return &objReader{
		name: key,
		body: result.Body,
		meta: map[string]interface{}{
			"size":         aws.Int64Value(result.ContentLength),
			"content-type": aws.StringValue(result.ContentType),
		},
	}, nil
}

type objReader struct {
	name string
	body io.ReadCloser
	meta map[string]interface{}
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

func (o *objReader) Meta() map[string]interface{} {
	return o.meta
}
