package prom

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements core.MetricsRecorder on a prometheus registry. Vectors
// are created lazily, one per metric name, labelled by the sorted tag keys of
// the first observation.
type Recorder struct {
	registry   *prometheus.Registry
	namespace  string
	buckets    []float64
	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

type counterVec struct {
	labels []string
	vec    *prometheus.CounterVec
}

type histogramVec struct {
	labels []string
	vec    *prometheus.HistogramVec
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = strings.TrimSpace(namespace)
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

func NewRecorder(registry *prometheus.Registry, opts ...Option) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	recorder := &Recorder{
		registry:   registry,
		buckets:    prometheus.DefBuckets,
		counters:   map[string]*counterVec{},
		histograms: map[string]*histogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(name, tags)
	if counter == nil {
		return
	}
	observer, err := counter.vec.GetMetricWithLabelValues(labelValues(counter.labels, tags)...)
	if err != nil {
		return
	}
	observer.Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(name, tags)
	if histogram == nil {
		return
	}
	observer, err := histogram.vec.GetMetricWithLabelValues(labelValues(histogram.labels, tags)...)
	if err != nil {
		return
	}
	observer.Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) *counterVec {
	name = metricName(name)
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[name]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Counter " + name,
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		return nil
	}
	entry := &counterVec{labels: labels, vec: vec}
	r.counters[name] = entry
	return entry
}

func (r *Recorder) histogram(name string, tags map[string]string) *histogramVec {
	name = metricName(name)
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[name]; ok {
		return existing
	}
	labels := labelNames(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Histogram " + name,
		Buckets:   r.buckets,
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		return nil
	}
	entry := &histogramVec{labels: labels, vec: vec}
	r.histograms[name] = entry
	return entry
}

func metricName(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		key = metricName(key)
		if key != "" {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// labelValues projects tags onto the label set fixed at registration. Tags
// missing from that set are dropped; absent labels become "".
func labelValues(labels []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[metricName(key)] = value
	}
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = normalized[label]
	}
	return values
}
