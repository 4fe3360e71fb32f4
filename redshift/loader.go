package redshift

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/linkedin/goavro/v2"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
)

// TempPrefix is where staging data goes in the staging bucket.
const TempPrefix = "temp/"

// Loader stages rows in object storage and loads them into Table.
type Loader struct {
	Store  datalake.ObjectStore
	Bucket string // staging bucket
	Table  string // optionally schema qualified
	// IAMRole is the role the cluster assumes to read the staging data. Empty
	// means the cluster's default role.
	IAMRole string

	Log datalake.Logger
}

// StagingURI returns the S3 URI rows for runID are staged under.
func (l *Loader) StagingURI(runID string) string {
	return fmt.Sprintf("s3://%s/%s%s/", l.Bucket, TempPrefix, runID)
}

// Stage writes rows as an Avro container file under the staging prefix for
// runID and returns its key.
func (l *Loader) Stage(ctx context.Context, runID string, schema table.Schema, rows []table.Row) (string, error) {
	avroSchema, err := schema.AvroSchema("curated")
	if err != nil {
		return "", err
	}
	buf := &bytes.Buffer{}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               buf,
		Schema:          avroSchema,
		CompressionName: goavro.CompressionNullLabel,
	})
	if err != nil {
		return "", errors.Wrap(err, "getting avro writer")
	}
	natives := make([]interface{}, len(rows))
	for i, row := range rows {
		natives[i], err = schema.AvroNative(row)
		if err != nil {
			return "", errors.Wrapf(err, "converting row %d", i)
		}
	}
	if err := w.Append(natives); err != nil {
		return "", errors.Wrap(err, "appending avro records")
	}
	key := fmt.Sprintf("%s%s/part-00000.avro", TempPrefix, runID)
	if err := l.Store.PutObject(ctx, l.Bucket, key, buf.Bytes(), "avro/binary"); err != nil {
		return "", errors.Wrapf(err, "writing %s", key)
	}
	return key, nil
}

// CopySQL returns the COPY statement loading the Avro files under uri into
// table.
func CopySQL(tbl, uri, iamRole string) string {
	role := "default"
	if iamRole != "" {
		role = quoteLiteral(iamRole)
	}
	return fmt.Sprintf("COPY %s FROM %s IAM_ROLE %s FORMAT AS AVRO 'auto'",
		quoteTable(tbl), quoteLiteral(uri), role)
}

// Load stages rows for runID and copies them into the table through conn.
// Nothing happens when there are no rows. Load is not idempotent: loading
// the same rows twice leaves two copies in the table.
func (l *Loader) Load(ctx context.Context, conn Execer, runID string, schema table.Schema, rows []table.Row) error {
	log := l.Log
	if log == nil {
		log = datalake.NopLogger{}
	}
	if len(rows) == 0 {
		log.Printf("no rows to load into %s", l.Table)
		return nil
	}
	key, err := l.Stage(ctx, runID, schema, rows)
	if err != nil {
		return errors.Wrap(err, "staging rows")
	}
	log.Debugf("staged %d rows at s3://%s/%s", len(rows), l.Bucket, key)

	sql := CopySQL(l.Table, l.StagingURI(runID), l.IAMRole)
	tag, err := conn.Exec(ctx, sql)
	if err != nil {
		return errors.Wrapf(err, "copying into %s", l.Table)
	}
	log.Printf("loaded %d rows into %s (%s)", len(rows), l.Table, tag.String())
	return nil
}

func quoteTable(tbl string) string {
	return pgx.Identifier(strings.Split(tbl, ".")).Sanitize()
}

func quoteLiteral(s string) string {
	return "'" + strings.Replace(s, "'", "''", -1) + "'"
}
