package mempool

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/poolkit/pool"
)

// StatsFunc returns the pool snapshots a Collector exports. Pools are not
// safe for concurrent use, so the function usually returns copies taken by
// the goroutine that owns the pools rather than calling Stats itself.
type StatsFunc func() []pool.Stats

// Collector exports pool statistics as Prometheus metrics labelled by
// backend and context.
type Collector struct {
	stats StatsFunc
	descs []metricDesc
}

type metricDesc struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(pool.Stats) float64
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector reading from fn on every scrape.
func NewCollector(fn StatsFunc) *Collector {
	labels := []string{"backend", "context"}
	gauge := func(name, help string, v func(pool.Stats) float64) metricDesc {
		return metricDesc{prometheus.NewDesc(prometheus.BuildFQName("mempool", "", name), help, labels, nil), prometheus.GaugeValue, v}
	}
	counter := func(name, help string, v func(pool.Stats) float64) metricDesc {
		return metricDesc{prometheus.NewDesc(prometheus.BuildFQName("mempool", "", name), help, labels, nil), prometheus.CounterValue, v}
	}
	return &Collector{
		stats: fn,
		descs: []metricDesc{
			gauge("live_elements", "Elements currently allocated.", func(s pool.Stats) float64 { return float64(s.Live) }),
			gauge("in_use_bytes", "Bytes reserved by live elements.", func(s pool.Stats) float64 { return float64(s.InUse) }),
			gauge("capacity_bytes", "Bytes obtained from the memory source.", func(s pool.Stats) float64 { return float64(s.Capacity) }),
			gauge("regions", "Chunks, regions or arenas held.", func(s pool.Stats) float64 { return float64(s.Regions) }),
			gauge("free_blocks", "Free slots or free blocks.", func(s pool.Stats) float64 { return float64(s.FreeBlocks) }),
			gauge("largest_free_bytes", "Largest allocation that fits without growth.", func(s pool.Stats) float64 { return float64(s.LargestFree) }),
			counter("allocs_total", "Successful allocations.", func(s pool.Stats) float64 { return float64(s.Allocs) }),
			counter("frees_total", "Frees.", func(s pool.Stats) float64 { return float64(s.Frees) }),
			counter("failures_total", "Allocations that returned nil.", func(s pool.Stats) float64 { return float64(s.Failures) }),
			counter("regions_grown_total", "Regions created.", func(s pool.Stats) float64 { return float64(s.Grown) }),
			counter("regions_released_total", "Regions released by GC.", func(s pool.Stats) float64 { return float64(s.Released) }),
			counter("relocated_total", "Elements moved by Repack.", func(s pool.Stats) float64 { return float64(s.Relocated) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

// Collect implements prometheus.Collector. Pools sharing a backend and
// context are summed into one series.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range mergeByLabels(c.stats()) {
		for _, d := range c.descs {
			ch <- prometheus.MustNewConstMetric(d.desc, d.kind, d.value(s), s.Backend, s.Context)
		}
	}
}

type labelKey struct{ backend, context string }

// mergeByLabels folds records with equal labels together, keeping the order
// in which each label pair first appears.
func mergeByLabels(stats []pool.Stats) []pool.Stats {
	groups := make(map[labelKey][]pool.Stats, len(stats))
	var order []labelKey
	for _, s := range stats {
		k := labelKey{s.Backend, s.Context}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
	}

	out := make([]pool.Stats, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g) == 1 {
			out = append(out, g[0])
			continue
		}
		t := Total(g...)
		t.Backend, t.Context = k.backend, k.context
		out = append(out, t)
	}
	return out
}
