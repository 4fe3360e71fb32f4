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

// Package kafka feeds records from Kafka topics into the raw zone through
// the same store step the stream handler uses.
package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// Storer stores one record payload under its partition key and returns the
// key it was written at. *ingest.Handler implements it.
type Storer interface {
	Store(ctx context.Context, payload []byte, partitionKey string) (string, error)
}

// Consumer reads Hosts/Topics as a member of Group and stores every message.
type Consumer struct {
	Hosts   []string
	Topics  []string
	Group   string
	Version string
	Oldest  bool
	TLS     TLSConfig

	// Registry, if set, decodes Avro message values to JSON before they are
	// stored.
	Registry *Registry

	storer Storer
	log    datalake.Logger
	stats  datalake.Statter

	newGroup func(addrs []string, group string, cfg *sarama.Config) (sarama.ConsumerGroup, error)
}

// ConsumerOption is a functional option for Consumer.
type ConsumerOption func(c *Consumer)

// OptConsumerLogger sets the logger.
func OptConsumerLogger(l datalake.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.log = l
	}
}

// OptConsumerStatter sets the statter.
func OptConsumerStatter(s datalake.Statter) ConsumerOption {
	return func(c *Consumer) {
		c.stats = s
	}
}

// NewConsumer gets a new Consumer storing messages with storer.
func NewConsumer(storer Storer, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		Hosts:    []string{"localhost:9092"},
		Topics:   []string{"events"},
		Group:    "datalake",
		Version:  sarama.DefaultVersion.String(),
		storer:   storer,
		log:      datalake.NopLogger{},
		stats:    datalake.NopStatter{},
		newGroup: sarama.NewConsumerGroup,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) config(ctx context.Context) (*sarama.Config, error) {
	version, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return nil, errors.Wrap(err, "parsing kafka version")
	}
	cfg := sarama.NewConfig()
	cfg.Version = version
	cfg.ClientID = "datalake"
	if c.Oldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	tlsCfg, err := c.TLS.Config(ctx, c.log)
	if err != nil {
		return nil, errors.Wrap(err, "getting tls config")
	}
	if tlsCfg != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = tlsCfg
	}
	return cfg, nil
}

// Run consumes until ctx is done or a message can't be stored. Messages are
// stored one at a time per partition and their offsets marked only once
// stored, so a failure leaves them to be redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	cfg, err := c.config(ctx)
	if err != nil {
		return err
	}
	group, err := c.newGroup(c.Hosts, c.Group, cfg)
	if err != nil {
		return errors.Wrap(err, "getting consumer group")
	}
	defer group.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h := &groupHandler{storer: c.storer, registry: c.Registry, log: c.log, stats: c.stats, cancel: cancel}
	c.log.Printf("consuming %v from %v as group %s", c.Topics, c.Hosts, c.Group)
	for {
		err := group.Consume(ctx, c.Topics, h)
		if herr := h.error(); herr != nil {
			return herr
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "consuming")
		}
		c.log.Debugf("consumer group session ended, rejoining")
	}
}

var _ sarama.ConsumerGroupHandler = &groupHandler{}

type groupHandler struct {
	storer   Storer
	registry *Registry
	log      datalake.Logger
	stats    datalake.Statter
	cancel   context.CancelFunc

	mu  sync.Mutex
	err error
}

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.Debugf("joined generation %d as %s: %v", session.GenerationID(), session.MemberID(), session.Claims())
	return nil
}

func (h *groupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim stores each message of claim in order.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			key, err := h.store(ctx, msg)
			if err != nil {
				err = errors.Wrapf(err, "storing message %s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
				h.fail(err)
				return err
			}
			session.MarkMessage(msg, "")
			h.stats.Count("kafka.messages", 1, 1)
			h.log.Debugf("stored %s/%d@%d at %s", msg.Topic, msg.Partition, msg.Offset, key)
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *groupHandler) store(ctx context.Context, msg *sarama.ConsumerMessage) (string, error) {
	val := msg.Value
	if h.registry != nil {
		var err error
		val, err = h.registry.Decode(ctx, val)
		if err != nil {
			return "", err
		}
	}
	return h.storer.Store(ctx, val, PartitionKey(msg))
}

func (h *groupHandler) fail(err error) {
	h.mu.Lock()
	if h.err == nil {
		h.err = err
	}
	h.mu.Unlock()
	h.cancel()
}

func (h *groupHandler) error() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// PartitionKey is the key a message is stored under: its Kafka key, or
// <topic>-<partition>-<offset> when it has none.
func PartitionKey(msg *sarama.ConsumerMessage) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
}
