package curate

import (
	"context"
	"fmt"
	"time"

	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/aws/secrets"
	"github.com/pilosa/datalake/prom"
	"github.com/pilosa/datalake/redshift"
	"github.com/pilosa/datalake/store"
	"github.com/pilosa/datalake/table"
	"github.com/pkg/errors"
)

// RawPrefix is where the job reads raw documents from in the raw bucket.
const RawPrefix = "raw/"

// Main contains the configuration for a curation run.
type Main struct {
	JobName          string `help:"Name of the job. Part of the run ID which names output files."`
	RawBucket        string `help:"Bucket holding the raw zone."`
	CuratedBucket    string `help:"Bucket the curated zone and warehouse staging files are written to."`
	RedshiftDatabase string `help:"Warehouse database name."`
	RedshiftTable    string `help:"Warehouse table to load, optionally schema qualified."`

	RedshiftHost      string `help:"Warehouse host. Defaults to <database>.redshift.amazonaws.com."`
	RedshiftPort      int    `help:"Warehouse port."`
	RedshiftUser      string `help:"Warehouse user."`
	RedshiftSecret    string `help:"Secret holding the warehouse password."`
	RedshiftSecretKey string `help:"JSON key of the password within the secret. Empty uses the whole secret."`
	IamRole           string `help:"IAM role the warehouse assumes to read staged files. Empty uses the cluster default."`
	Pushgateway       string `help:"Prometheus Pushgateway URL to push run metrics to."`
	LogPath           string `help:"Log file to write to. Empty means stderr."`
	Verbose           bool   `help:"Enable verbose logging."`
	store.Config      `flag:"!embed"`

	Store       datalake.ObjectStore `flag:"-"`
	Secrets     secrets.Resolver     `flag:"-"`
	Connect     redshift.ConnectFunc `flag:"-"`
	Now         func() time.Time     `flag:"-"`
	Transformer Transformer          `flag:"-"`
	Stats       datalake.Statter     `flag:"-"`

	log datalake.Logger
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		RedshiftPort:      redshift.DefaultPort,
		RedshiftUser:      "admin",
		RedshiftSecret:    "redshift-password",
		RedshiftSecretKey: "password",
		Config:            store.NewConfig(),
		Connect:           redshift.Connect,
		Now:               time.Now,
	}
}

func (m *Main) validate() error {
	for _, p := range []struct{ name, val string }{
		{"JOB_NAME", m.JobName},
		{"RAW_BUCKET", m.RawBucket},
		{"CURATED_BUCKET", m.CuratedBucket},
		{"REDSHIFT_DATABASE", m.RedshiftDatabase},
		{"REDSHIFT_TABLE", m.RedshiftTable},
	} {
		if p.val == "" {
			return errors.Errorf("%s must be set", p.name)
		}
	}
	return nil
}

// RunID returns the run ID for a run started at t.
func (m *Main) RunID(t time.Time) string {
	return fmt.Sprintf("%s-%s", m.JobName, t.UTC().Format("20060102T150405Z"))
}

// ConnConfig returns the warehouse connection settings without a password.
func (m *Main) ConnConfig() redshift.ConnConfig {
	host := m.RedshiftHost
	if host == "" {
		host = redshift.HostFor(m.RedshiftDatabase)
	}
	return redshift.ConnConfig{
		Host:     host,
		Port:     m.RedshiftPort,
		Database: m.RedshiftDatabase,
		User:     m.RedshiftUser,
	}
}

func (m *Main) setup() (err error) {
	if m.log == nil {
		m.log, err = datalake.OpenLogger(m.LogPath, m.Verbose)
		if err != nil {
			return err
		}
	}
	if m.Store == nil {
		m.Store, err = m.Config.Open()
		if err != nil {
			return errors.Wrap(err, "opening object store")
		}
	}
	if m.Secrets == nil {
		m.Secrets, err = secrets.NewManager(m.StoreRegion)
		if err != nil {
			return errors.Wrap(err, "getting secrets manager")
		}
	}
	if m.Connect == nil {
		m.Connect = redshift.Connect
	}
	if m.Now == nil {
		m.Now = time.Now
	}
	if m.Transformer == nil {
		m.Transformer = NewSelect(Fields...)
	}
	if m.Stats == nil {
		if m.Pushgateway != "" {
			m.Stats = prom.NewStatter()
		} else {
			m.Stats = datalake.NopStatter{}
		}
	}
	return nil
}

// Run reads the whole raw zone, projects it, writes it to the curated zone
// as partitioned Parquet, and loads it into the warehouse table, in that
// order. A failure part way leaves whatever was already written in place.
// Metrics are pushed whether or not the run succeeds.
func (m *Main) Run(ctx context.Context) (err error) {
	if err := m.validate(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}
	if err := m.setup(); err != nil {
		return err
	}
	start := m.Now()
	runID := m.RunID(start)
	log := datalake.WithField(m.log, "run", runID)
	log.Printf("starting job %s", m.JobName)

	defer func() {
		m.Stats.Timing("curate.duration", m.Now().Sub(start), 1)
		if err != nil {
			m.Stats.Count("curate.failures", 1, 1)
		}
		perr := m.push(ctx)
		if err == nil {
			err = errors.Wrap(perr, "pushing metrics")
		} else if perr != nil {
			log.Printf("pushing metrics after failed run: %v", perr)
		}
	}()
	return m.run(ctx, log, runID)
}

func (m *Main) run(ctx context.Context, log datalake.Logger, runID string) error {
	rows, skipped, err := ReadRaw(ctx, m.Store, m.RawBucket, RawPrefix)
	if err != nil {
		return errors.Wrapf(err, "reading s3://%s/%s", m.RawBucket, RawPrefix)
	}
	m.Stats.Count("curate.rows_read", int64(len(rows)), 1)
	if skipped > 0 {
		m.Stats.Count("curate.values_skipped", int64(skipped), 1)
		log.Printf("skipped %d raw values which are not objects", skipped)
	}
	log.Printf("read %d raw records", len(rows))

	rows, err = m.Transformer.Transform(rows)
	if err != nil {
		return errors.Wrap(err, "transforming rows")
	}
	schema := table.Infer(rows, Fields)

	w := &PartitionedWriter{
		Store:      m.Store,
		Bucket:     m.CuratedBucket,
		Prefix:     CuratedPrefix,
		RunID:      runID,
		Schema:     schema,
		Partitions: PartitionKeys,
	}
	keys, err := w.Write(ctx, rows)
	m.Stats.Count("curate.files_written", int64(len(keys)), 1)
	if err != nil {
		return errors.Wrap(err, "writing curated zone")
	}
	for _, k := range keys {
		log.Debugf("wrote s3://%s/%s", m.CuratedBucket, k)
	}
	m.Stats.Count("curate.rows_written", int64(len(rows)), 1)

	if err := m.load(ctx, log, runID, schema, rows); err != nil {
		return err
	}

	log.Printf("committed job %s: %d rows in %d files", m.JobName, len(rows), len(keys))
	return nil
}

func (m *Main) load(ctx context.Context, log datalake.Logger, runID string, schema table.Schema, rows []table.Row) error {
	l := &redshift.Loader{
		Store:   m.Store,
		Bucket:  m.CuratedBucket,
		Table:   m.RedshiftTable,
		IAMRole: m.IamRole,
		Log:     log,
	}
	if len(rows) == 0 {
		return l.Load(ctx, nil, runID, schema, rows)
	}
	cc := m.ConnConfig()
	pw, err := m.Secrets.Resolve(ctx, m.RedshiftSecret, m.RedshiftSecretKey)
	if err != nil {
		return errors.Wrap(err, "resolving warehouse password")
	}
	cc.Password = pw
	log.Printf("connecting to %s", cc.JDBCURL())
	conn, err := m.Connect(ctx, cc)
	if err != nil {
		return errors.Wrap(err, "connecting to warehouse")
	}
	defer conn.Close(context.Background())
	return errors.Wrap(l.Load(ctx, conn, runID, schema, rows), "loading warehouse")
}

func (m *Main) push(ctx context.Context) error {
	if m.Pushgateway == "" {
		return nil
	}
	ps, ok := m.Stats.(*prom.Statter)
	if !ok {
		return nil
	}
	return ps.Push(ctx, m.Pushgateway, m.JobName)
}
