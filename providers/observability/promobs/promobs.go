// Package promobs exports observability.Metrics as Prometheus collectors.
//
// Collectors are created on first use. The label set of a metric is fixed by
// the attributes passed on that first observation; later observations fill
// missing labels with "" and ignore extra attributes. Metric names are
// prefixed and have dots replaced with underscores, and counters get the
// conventional _total suffix.
package promobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/jsonguard/providers/observability"
)

// DefaultPrefix is prepended to every metric name.
const DefaultPrefix = "jsonguard"

// Option configures a Metrics.
type Option func(*Metrics)

// WithPrefix replaces DefaultPrefix. An empty prefix disables prefixing.
func WithPrefix(prefix string) Option {
	return func(m *Metrics) {
		m.prefix = prefix
	}
}

// WithBuckets sets the histogram buckets. The default suits small counts
// such as attempts per run.
func WithBuckets(buckets []float64) Option {
	return func(m *Metrics) {
		m.buckets = buckets
	}
}

// Metrics implements observability.Metrics on a prometheus.Registerer.
type Metrics struct {
	registerer prometheus.Registerer
	prefix     string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Metrics = (*Metrics)(nil)

// New returns Metrics registering its collectors with registerer. A nil
// registerer uses prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer, opts ...Option) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		registerer: registerer,
		prefix:     DefaultPrefix,
		buckets:    prometheus.LinearBuckets(1, 1, 10),
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Metrics) Counter(name string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[name]
	if !ok {
		c = &counter{parent: m, name: m.metricName(name) + "_total", help: "Total " + name + "."}
		m.counters[name] = c
	}
	return c
}

func (m *Metrics) Histogram(name string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histograms[name]
	if !ok {
		h = &histogram{parent: m, name: m.metricName(name), help: "Distribution of " + name + "."}
		m.histograms[name] = h
	}
	return h
}

// WriteTextfile writes everything gathered by gatherer to path in the text
// exposition format read by the node exporter textfile collector.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) metricName(name string) string {
	name = sanitize(name)
	if m.prefix == "" {
		return name
	}
	return sanitize(m.prefix) + "_" + name
}

// sanitize maps a dotted metric or attribute name to a valid Prometheus name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// register registers c and returns the collector actually in use, which is
// the existing one when an identical collector was registered before.
func (m *Metrics) register(c prometheus.Collector) (prometheus.Collector, error) {
	if err := m.registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

// labelSet binds attribute keys to Prometheus label names on first use.
type labelSet struct {
	keys   []string
	labels []string
}

func newLabelSet(attrs []observability.Attribute) labelSet {
	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, attr.Key)
	}
	sort.Strings(keys)

	labels := make([]string, len(keys))
	for i, key := range keys {
		labels[i] = sanitize(key)
	}
	return labelSet{keys: keys, labels: labels}
}

func (l labelSet) values(attrs []observability.Attribute) []string {
	byKey := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		byKey[attr.Key] = fmt.Sprint(attr.Value)
	}

	values := make([]string, len(l.keys))
	for i, key := range l.keys {
		values[i] = byKey[key]
	}
	return values
}

type counter struct {
	parent *Metrics
	name   string
	help   string

	once   sync.Once
	labels labelSet
	vec    *prometheus.CounterVec
}

func (c *counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	c.once.Do(func() {
		c.labels = newLabelSet(attrs)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: c.name, Help: c.help}, c.labels.labels)
		if registered, err := c.parent.register(vec); err == nil {
			if existing, ok := registered.(*prometheus.CounterVec); ok {
				vec = existing
			}
		}
		c.vec = vec
	})

	if value < 0 {
		return
	}
	c.vec.WithLabelValues(c.labels.values(attrs)...).Add(float64(value))
}

type histogram struct {
	parent *Metrics
	name   string
	help   string

	once   sync.Once
	labels labelSet
	vec    *prometheus.HistogramVec
}

func (h *histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	h.once.Do(func() {
		h.labels = newLabelSet(attrs)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    h.name,
			Help:    h.help,
			Buckets: h.parent.buckets,
		}, h.labels.labels)
		if registered, err := h.parent.register(vec); err == nil {
			if existing, ok := registered.(*prometheus.HistogramVec); ok {
				vec = existing
			}
		}
		h.vec = vec
	})

	h.vec.WithLabelValues(h.labels.values(attrs)...).Observe(value)
}
