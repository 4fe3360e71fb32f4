package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// Store is a datalake.ObjectStore on the local filesystem. Each bucket is a
// directory under the root and each key a path within it.
type Store struct {
	root string
}

var _ datalake.ObjectStore = &Store{}

// NewStore returns a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("a root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(err, "creating root directory")
	}
	return &Store{root: root}, nil
}

func (s *Store) path(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", errors.Errorf("invalid bucket name %q", bucket)
	}
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Join(s.root, bucket)+string(filepath.Separator)) {
		return "", errors.Errorf("key %q escapes bucket %s", key, bucket)
	}
	return p, nil
}

// PutObject implements datalake.ObjectStore. The content type is not kept.
func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", key)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(p), ".put-")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing %s", key)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), p), "renaming into %s", key)
}

// ListObjects implements datalake.ObjectStore. A bucket directory which does
// not exist lists as empty.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	dir, err := s.path(bucket, "x")
	if err != nil {
		return nil, err
	}
	dir = filepath.Dir(dir)
	keys := make([]string, 0)
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", dir)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObject implements datalake.ObjectStore.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (datalake.NamedReadCloser, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	return &metaFile{File: f, key: key}, nil
}

type metaFile struct {
	*os.File
	key string
}

func (m *metaFile) Name() string {
	return m.key
}

func (m *metaFile) Meta() map[string]interface{} {
	info, err := m.File.Stat()
	if err != nil {
		return nil
	}
	return map[string]interface{}{"size": info.Size(), "modified": info.ModTime()}
}
