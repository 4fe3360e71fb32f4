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

// Package kafkagen produces generated clickstream events to a Kafka topic for
// local runs of the kafka command.
package kafkagen

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/pilosa/datalake"
	"github.com/pilosa/datalake/fake"
	"github.com/pkg/errors"
)

// Main holds the execution state for the kafka generator.
type Main struct {
	Hosts        []string      `help:"Comma separated list of Kafka hosts and ports."`
	Topic        string        `help:"Topic to produce to."`
	KafkaVersion string        `help:"Kafka protocol version."`
	Rate         time.Duration `help:"Time between events."`
	Count        int           `help:"Number of events to send. 0 sends until stopped."`
	Seed         int64         `help:"Random seed."`
	Verbose      bool          `help:"Enable verbose logging."`

	Now         func() time.Time                                                      `flag:"-"`
	NewProducer func(addrs []string, cfg *sarama.Config) (sarama.SyncProducer, error) `flag:"-"`

	log datalake.Logger
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Hosts:        []string{"localhost:9092"},
		Topic:        "events",
		KafkaVersion: sarama.DefaultVersion.String(),
		Rate:         time.Second,
		Now:          time.Now,
		NewProducer:  sarama.NewSyncProducer,
	}
}

// JSONEvent implements the sarama.Encoder interface for Event using json.
type JSONEvent fake.Event

// Encode marshals the event to json.
func (e JSONEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Length returns the length of the marshalled json.
func (e JSONEvent) Length() int {
	bytes, _ := e.Encode()
	return len(bytes)
}

// Run sends Count events, or sends until ctx is done if Count is 0.
func (m *Main) Run(ctx context.Context) error {
	if m.log == nil {
		m.log = datalake.NewStdLogger(os.Stderr)
		if m.Verbose {
			m.log = datalake.NewVerboseLogger(os.Stderr)
		}
	}
	version, err := sarama.ParseKafkaVersion(m.KafkaVersion)
	if err != nil {
		return errors.Wrap(err, "parsing kafka version")
	}
	conf := sarama.NewConfig()
	conf.Version = version
	conf.Producer.Return.Successes = true
	producer, err := m.NewProducer(m.Hosts, conf)
	if err != nil {
		return errors.Wrap(err, "getting new producer")
	}
	defer producer.Close()

	g := fake.NewEventGenerator(m.Seed, m.Now())
	ticker := time.NewTicker(m.Rate)
	defer ticker.Stop()
	for sent := 0; m.Count == 0 || sent < m.Count; sent++ {
		ev := g.Event()
		msg := &sarama.ProducerMessage{
			Topic: m.Topic,
			Key:   sarama.StringEncoder(strconv.Itoa(ev.UserID)),
			Value: JSONEvent(*ev),
		}
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			return errors.Wrapf(err, "sending event %d", sent)
		}
		m.log.Debugf("sent %s event for user %d to %s/%d@%d", ev.EventType, ev.UserID, m.Topic, partition, offset)
		if m.Count != 0 && sent+1 == m.Count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
