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

package kafka

import (
	"context"
	"time"

	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/ingest"
	"github.com/pilosa/datalake/store"
	"github.com/pilosa/datalake/termstat"
	"github.com/pkg/errors"
)

// Main holds the options for feeding the raw zone from Kafka.
type Main struct {
	Hosts         []string      `help:"Comma separated list of Kafka hosts and ports."`
	Topics        []string      `help:"Comma separated list of Kafka topics."`
	Group         string        `help:"Kafka consumer group."`
	KafkaVersion  string        `help:"Kafka protocol version."`
	Oldest        bool          `help:"Start from the oldest offset when the group has none committed."`
	RegistryUrl   string        `help:"Confluent schema registry URL. Set it if message values are Avro."`
	RawBucket     string        `help:"Bucket of the raw zone that records are written to."`
	StatsInterval time.Duration `help:"How often to log message counts. 0 disables."`
	LogPath       string        `help:"Log file to write to. Empty means stderr."`
	Verbose       bool          `help:"Enable verbose logging."`
	TLSConfig     `flag:"!embed"`
	store.Config  `flag:"!embed"`

	Store datalake.ObjectStore `flag:"-"`

	log datalake.Logger
}

// NewMain returns a new Main.
func NewMain() *Main {
	c := NewConsumer(nil)
	return &Main{
		Hosts:         c.Hosts,
		Topics:        c.Topics,
		Group:         c.Group,
		KafkaVersion:  c.Version,
		StatsInterval: time.Second * 10,
		Config:        store.NewConfig(),
	}
}

// Run consumes until ctx is done or storing a message fails.
func (m *Main) Run(ctx context.Context) (err error) {
	if m.RawBucket == "" {
		return errors.New("RAW_BUCKET must be set")
	}
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
	var stats datalake.Statter = datalake.NopStatter{}
	if m.StatsInterval > 0 {
		col := termstat.NewCollector(m.log)
		go col.Run(ctx, m.StatsInterval)
		stats = col
	}

	h := ingest.NewHandler(m.Store, m.RawBucket, ingest.OptHandlerLogger(m.log), ingest.OptHandlerStatter(stats))
	c := NewConsumer(h, OptConsumerLogger(m.log), OptConsumerStatter(stats))
	c.Hosts = m.Hosts
	c.Topics = m.Topics
	c.Group = m.Group
	c.Version = m.KafkaVersion
	c.Oldest = m.Oldest
	c.TLS = m.TLSConfig
	if m.RegistryUrl != "" {
		c.Registry = NewRegistry(m.RegistryUrl)
	}
	return errors.Wrap(c.Run(ctx), "running kafka consumer")
}
