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

// Package termstat provides a stats implementation which periodically logs
// the statistics it has collected. It is meant for long running local
// commands in lieu of an actual collector. Only counts and gauges are kept.
package termstat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pilosa/datalake"
)

// Collector collects stats and logs them.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []float64
	changed bool
	log     datalake.Logger
}

// NewCollector returns a Collector which logs to log.
func NewCollector(log datalake.Logger) *Collector {
	return &Collector{
		indexes: make(map[string]int),
		log:     log,
	}
}

// Run logs the stats every interval, if they changed, until ctx is done.
func (t *Collector) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			t.write()
			return
		case <-tick.C:
			t.write()
		}
	}
}

func (t *Collector) index(name string) int {
	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.stats)
		t.stats = append(t.stats, 0)
		t.names = append(t.names, name)
		t.indexes[name] = idx
	}
	return idx
}

// Count adds value to the named stat at the specified rate.
func (t *Collector) Count(name string, value int64, rate float64, tags ...string) {
	if rate < 1 && rand.Float64() > rate {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stats[t.index(name)] += float64(value)
	t.changed = true
}

// Gauge sets the named stat to value.
func (t *Collector) Gauge(name string, value float64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stats[t.index(name)] = value
	t.changed = true
}

// String returns the current stats as "name: value" pairs in the order the
// names were first seen.
func (t *Collector) String() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.string()
}

func (t *Collector) string() string {
	parts := make([]string, len(t.stats))
	for i, v := range t.stats {
		parts[i] = fmt.Sprintf("%s: %g", t.names[i], v)
	}
	return strings.Join(parts, " ")
}

func (t *Collector) write() {
	t.lock.Lock()
	if !t.changed {
		t.lock.Unlock()
		return
	}
	s := t.string()
	t.changed = false
	t.lock.Unlock()
	t.log.Printf("stats %s", s)
}

// Histogram does nothing.
func (t *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (t *Collector) Set(name string, value string, rate float64, tags ...string) {}

// Timing does nothing.
func (t *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {}
