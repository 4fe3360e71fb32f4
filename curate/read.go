package curate

import (
	"context"
	"io"

	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/json"
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
)

// ReadRaw reads every JSON object in every object under prefix in bucket,
// recursively, in key order. An object may hold several JSON documents one
// after another. A document which is an array contributes each object in it
// as a row. Values which aren't objects are skipped and counted. Malformed
// JSON aborts the read.
func ReadRaw(ctx context.Context, store datalake.ObjectStore, bucket, prefix string) (rows []table.Row, skipped int, err error) {
	rs, err := datalake.NewPrefixSource(ctx, store, bucket, prefix)
	if err != nil {
		return nil, 0, errors.Wrap(err, "getting raw source")
	}
	src := json.NewSourceFromRawSource(rs)
	rows = make([]table.Row, 0, len(rs.Keys()))
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return rows, src.Skipped(), nil
		} else if err != nil {
			return nil, 0, errors.Wrap(err, "reading raw records")
		}
		rows = append(rows, table.Row(rec))
	}
}
