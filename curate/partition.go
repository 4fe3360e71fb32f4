package curate

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
)

// CuratedPrefix is the prefix of the curated zone in the curated bucket.
const CuratedPrefix = "curated/"

// DefaultPartition is the directory name used for null and empty partition
// values, as Hive and Spark name it.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// PartitionedWriter writes rows as Snappy compressed Parquet files, one per
// distinct combination of partition values, under
// <Prefix><k1>=<v1>/<k2>=<v2>/.../part-<n>-<RunID>.snappy.parquet. The
// partition columns are not written into the files.
type PartitionedWriter struct {
	Store      datalake.ObjectStore
	Bucket     string
	Prefix     string
	RunID      string
	Schema     table.Schema
	Partitions []string

	Alloc memory.Allocator
}

type partition struct {
	path string
	rows []table.Row
}

// Write writes rows and returns the keys of the files written. Every
// partition column must be present on at least one row; if one isn't,
// nothing is written. Rows whose value for a partition column is null, absent
// or empty go in the DefaultPartition directory for that column.
func (w *PartitionedWriter) Write(ctx context.Context, rows []table.Row) ([]string, error) {
	parts, err := w.group(rows)
	if err != nil {
		return nil, err
	}
	alloc := w.Alloc
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}

	keys := make([]string, 0, len(parts))
	for i, p := range parts {
		body, err := w.encode(alloc, p.rows)
		if err != nil {
			return keys, errors.Wrapf(err, "encoding partition %s", p.path)
		}
		key := fmt.Sprintf("%s%spart-%05d-%s.snappy.parquet", w.Prefix, p.path, i, w.RunID)
		if err := w.Store.PutObject(ctx, w.Bucket, key, body, "application/vnd.apache.parquet"); err != nil {
			return keys, errors.Wrapf(err, "writing %s", key)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// group splits rows by partition path, ordered by path.
func (w *PartitionedWriter) group(rows []table.Row) ([]*partition, error) {
	if len(rows) > 0 {
		for _, col := range w.Partitions {
			if !anyHas(rows, col) {
				return nil, errors.Errorf("partition column '%s' is not present on any row", col)
			}
		}
	}
	byPath := make(map[string]*partition)
	for r, row := range rows {
		var path strings.Builder
		for _, col := range w.Partitions {
			s := ""
			if v := row[col]; v != nil {
				var err error
				if s, err = table.Text(v); err != nil {
					return nil, errors.Wrapf(err, "partition column '%s' of row %d", col, r)
				}
			}
			path.WriteString(col)
			path.WriteByte('=')
			path.WriteString(escapePathValue(s))
			path.WriteByte('/')
		}
		p, ok := byPath[path.String()]
		if !ok {
			p = &partition{path: path.String()}
			byPath[p.path] = p
		}
		p.rows = append(p.rows, row)
	}
	parts := make([]*partition, 0, len(byPath))
	for _, p := range byPath {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].path < parts[j].path })
	return parts, nil
}

func (w *PartitionedWriter) encode(alloc memory.Allocator, rows []table.Row) ([]byte, error) {
	rec, err := w.Schema.Record(alloc, rows)
	if err != nil {
		return nil, errors.Wrap(err, "building record")
	}
	defer rec.Release()

	buf := &bytes.Buffer{}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(alloc),
	)
	fw, err := pqarrow.NewFileWriter(rec.Schema(), buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, errors.Wrap(err, "getting parquet writer")
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "writing record")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, "closing parquet writer")
	}
	return buf.Bytes(), nil
}

// escapePathValue percent-encodes the characters which can't appear in a
// partition directory name. An empty value maps to DefaultPartition.
func escapePathValue(s string) string {
	if s == "" {
		return DefaultPartition
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte(`"#%'*/:=?\{[]^`, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
