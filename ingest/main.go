package ingest

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/store"
	"github.com/pkg/errors"
)

// Main contains the configuration for the ingest handler.
type Main struct {
	RawBucket    string `help:"Bucket of the raw zone that records are written to."`
	EventFile    string `help:"Handle the stream event in this file once and exit instead of serving Lambda invocations. '-' reads stdin."`
	LogPath      string `help:"Log file to write to. Empty means stderr."`
	Verbose      bool   `help:"Enable verbose logging."`
	store.Config `flag:"!embed"`

	Stdin  io.Reader            `flag:"-"`
	Stdout io.Writer            `flag:"-"`
	Store  datalake.ObjectStore `flag:"-"`
	Now    func() time.Time     `flag:"-"`
	Stats  datalake.Statter     `flag:"-"`

	log datalake.Logger
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Config: store.NewConfig(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

func (m *Main) validate() error {
	if m.RawBucket == "" {
		return errors.New("RAW_BUCKET must be set")
	}
	return nil
}

// Handler sets up logging and storage and returns the configured Handler.
func (m *Main) Handler() (*Handler, error) {
	if err := m.validate(); err != nil {
		return nil, errors.Wrap(err, "validating configuration")
	}
	var err error
	if m.log == nil {
		m.log, err = datalake.OpenLogger(m.LogPath, m.Verbose)
		if err != nil {
			return nil, err
		}
	}
	if m.Store == nil {
		m.Store, err = m.Config.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening object store")
		}
	}
	opts := []HandlerOption{OptHandlerLogger(m.log)}
	if m.Now != nil {
		opts = append(opts, OptHandlerClock(m.Now))
	}
	if m.Stats != nil {
		opts = append(opts, OptHandlerStatter(m.Stats))
	}
	return NewHandler(m.Store, m.RawBucket, opts...), nil
}

// Run serves Lambda invocations until the process is stopped, or, if
// EventFile is set, handles that one event and writes the response to Stdout.
func (m *Main) Run(ctx context.Context) error {
	h, err := m.Handler()
	if err != nil {
		return err
	}
	if m.EventFile == "" {
		m.log.Printf("serving stream events for bucket %s", m.RawBucket)
		lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx))
		return nil
	}

	var raw []byte
	if m.EventFile == "-" {
		raw, err = ioutil.ReadAll(m.Stdin)
	} else {
		raw, err = ioutil.ReadFile(m.EventFile)
	}
	if err != nil {
		return errors.Wrap(err, "reading event")
	}
	var batch Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return errors.Wrap(err, "decoding event")
	}
	resp, err := h.Handle(ctx, batch)
	if err != nil {
		return errors.Wrap(err, "handling event")
	}
	return errors.Wrap(json.NewEncoder(m.Stdout).Encode(resp), "writing response")
}
