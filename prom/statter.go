// Package prom implements datalake.Statter on a prometheus registry which can
// be pushed to a Pushgateway when a batch run finishes.
package prom

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace prefixes every metric name.
const Namespace = "datalake"

// Statter records datalake stats in its own registry. Metrics are created the
// first time their name is used. Tags are "key:value" pairs and become
// labels; the set of tag keys used with a name must not change.
type Statter struct {
	mu         sync.Mutex
	reg        *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewStatter returns a Statter with an empty registry.
func NewStatter() *Statter {
	return &Statter{
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the registry metrics are recorded in.
func (s *Statter) Registry() *prometheus.Registry {
	return s.reg
}

// Count adds value to the counter name_total. The rate is ignored.
func (s *Statter) Count(name string, value int64, rate float64, tags ...string) {
	keys, vals := labels(tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      MetricName(name) + "_total",
			Help:      "datalake count " + name,
		}, keys)
		s.reg.MustRegister(c)
		s.counters[name] = c
	}
	c.WithLabelValues(vals...).Add(float64(value))
}

// Gauge sets the gauge name to value.
func (s *Statter) Gauge(name string, value float64, rate float64, tags ...string) {
	s.gauge(name, tags).Set(value)
}

// Histogram observes value in the histogram name.
func (s *Statter) Histogram(name string, value float64, rate float64, tags ...string) {
	s.histogram(name, "datalake histogram "+name, tags).Observe(value)
}

// Set records that value was seen by setting the gauge name with a "value"
// label to 1.
func (s *Statter) Set(name string, value string, rate float64, tags ...string) {
	s.gauge(name, append(tags, "value:"+value)).Set(1)
}

// Timing observes value in seconds in the histogram name_seconds.
func (s *Statter) Timing(name string, value time.Duration, rate float64, tags ...string) {
	s.histogram(name+".seconds", "datalake timing "+name, tags).Observe(value.Seconds())
}

func (s *Statter) gauge(name string, tags []string) prometheus.Gauge {
	keys, vals := labels(tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      MetricName(name),
			Help:      "datalake gauge " + name,
		}, keys)
		s.reg.MustRegister(g)
		s.gauges[name] = g
	}
	return g.WithLabelValues(vals...)
}

func (s *Statter) histogram(name, help string, tags []string) prometheus.Observer {
	keys, vals := labels(tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      MetricName(name),
			Help:      help,
		}, keys)
		s.reg.MustRegister(h)
		s.histograms[name] = h
	}
	return h.WithLabelValues(vals...)
}

// Push sends every metric in the registry to the Pushgateway at url, grouped
// under job. It replaces whatever was pushed for job before.
func (s *Statter) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).Gatherer(s.reg).PushContext(ctx)
	return errors.Wrapf(err, "pushing metrics to %s", url)
}

// MetricName turns a dotted stat name into a prometheus metric name:
// "curate.rows_read" becomes "curate_rows_read".
func MetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// labels splits "key:value" tags into label names and values. A tag without a
// colon is a label named after itself with an empty value.
func labels(tags []string) (keys, vals []string) {
	keys = make([]string, len(tags))
	vals = make([]string, len(tags))
	for i, t := range tags {
		k, v, _ := strings.Cut(t, ":")
		keys[i] = MetricName(k)
		vals[i] = v
	}
	return keys, vals
}
