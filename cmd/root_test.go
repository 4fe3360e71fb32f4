package cmd

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly replaces the RunE of the named subcommand so that executing the
// root command only parses configuration.
func parseOnly(t *testing.T, rc *cobra.Command, name string) {
	t.Helper()
	sub, _, err := rc.Find([]string{name})
	require.NoError(t, err)
	require.Equal(t, name, sub.Name())
	sub.RunE = func(cmd *cobra.Command, args []string) error { return nil }
}

func TestCurateConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "datalake.toml")
	require.NoError(t, ioutil.WriteFile(cfg, []byte(`
curated-bucket = "from-file"
redshift-table = "from-file"
redshift-port = 5440
`), 0600))
	t.Setenv("RAW_BUCKET", "from-env")
	t.Setenv("REDSHIFT_TABLE", "from-env")
	t.Setenv("STORE_BACKEND", "file")

	rc := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{})
	parseOnly(t, rc, "curate")
	rc.SetArgs([]string{"curate",
		"--config", cfg,
		"--JOB_NAME", "nightly",
		"--REDSHIFT_DATABASE", "analytics",
		"--job-bookmark-option", "job-bookmark-disable",
		"--TempDir", "s3://glue-temp/",
	})
	require.NoError(t, rc.Execute())

	assert.Equal(t, "nightly", CurateMain.JobName)
	assert.Equal(t, "from-env", CurateMain.RawBucket)
	assert.Equal(t, "from-file", CurateMain.CuratedBucket)
	assert.Equal(t, "analytics", CurateMain.RedshiftDatabase)
	// env beats file
	assert.Equal(t, "from-env", CurateMain.RedshiftTable)
	assert.Equal(t, 5440, CurateMain.RedshiftPort)
	assert.Equal(t, "admin", CurateMain.RedshiftUser)
	assert.Equal(t, "redshift-password", CurateMain.RedshiftSecret)
	assert.Equal(t, "file", CurateMain.StoreBackend)
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("RAW_BUCKET", "from-env")
	rc := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{})
	parseOnly(t, rc, "ingest")
	rc.SetArgs([]string{"ingest", "--raw-bucket", "from-flag"})
	require.NoError(t, rc.Execute())
	assert.Equal(t, "from-flag", IngestMain.RawBucket)
}

func TestKafkaDefaults(t *testing.T) {
	rc := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{})
	parseOnly(t, rc, "kafka")
	rc.SetArgs([]string{"kafka", "--topics", "a,b"})
	require.NoError(t, rc.Execute())
	assert.Equal(t, []string{"localhost:9092"}, KafkaMain.Hosts)
	assert.Equal(t, []string{"a", "b"}, KafkaMain.Topics)
	assert.Equal(t, "datalake", KafkaMain.Group)
}

func TestBadConfigFile(t *testing.T) {
	rc := NewRootCommand(&bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{})
	parseOnly(t, rc, "curate")
	rc.SetArgs([]string{"curate", "--config", filepath.Join(t.TempDir(), "missing.toml")})
	err := rc.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading configuration file")
}

func TestIngestRunsEventFile(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	stdin := bytes.NewBufferString(`{"Records": [{"kinesis": {"partitionKey": "p1", "data": "eyJhIjoxfQ=="}}]}`)
	rc := NewRootCommand(stdin, out, &bytes.Buffer{})
	rc.SetArgs([]string{"ingest", "--event-file", "-", "--raw-bucket", "raw", "--store-backend", "file", "--store-root", dir})
	require.NoError(t, rc.Execute())
	assert.JSONEq(t, `{"statusCode": 200, "body": "\"Successfully processed records\""}`, out.String())

	matches, err := filepath.Glob(filepath.Join(dir, "raw", "raw", "*", "*", "*", "*", "*", "*", "p1.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	body, err := ioutil.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(body))
}
