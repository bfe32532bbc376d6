package mempool

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/pool"
)

func Test_CollectorExportsEveryPool(t *testing.T) {
	c := NewCollector(func() []pool.Stats { return sample })
	require.Equal(t, 2*12, testutil.CollectAndCount(c))

	expected := `
# HELP mempool_live_elements Elements currently allocated.
# TYPE mempool_live_elements gauge
mempool_live_elements{backend="buddy",context=""} 3
mempool_live_elements{backend="chained_pool",context="nodes"} 1200
# HELP mempool_failures_total Allocations that returned nil.
# TYPE mempool_failures_total counter
mempool_failures_total{backend="buddy",context=""} 2
mempool_failures_total{backend="chained_pool",context="nodes"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"mempool_live_elements", "mempool_failures_total"))
}

func Test_CollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(func() []pool.Stats { return nil })))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

func Test_CollectorSumsSharedLabels(t *testing.T) {
	twins := []pool.Stats{
		{Backend: "chained_pool", Context: "w", Live: 3, InUse: 48, Allocs: 5},
		{Backend: "buddy", Context: "w", Live: 1},
		{Backend: "chained_pool", Context: "w", Live: 4, InUse: 64, Allocs: 7},
	}
	c := NewCollector(func() []pool.Stats { return twins })

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	_, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 2*12, testutil.CollectAndCount(c))

	expected := `
# HELP mempool_live_elements Elements currently allocated.
# TYPE mempool_live_elements gauge
mempool_live_elements{backend="buddy",context="w"} 1
mempool_live_elements{backend="chained_pool",context="w"} 7
# HELP mempool_allocs_total Successful allocations.
# TYPE mempool_allocs_total counter
mempool_allocs_total{backend="buddy",context="w"} 0
mempool_allocs_total{backend="chained_pool",context="w"} 12
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"mempool_live_elements", "mempool_allocs_total"))
}

func Test_CollectorLivePool(t *testing.T) {
	p, err := newRegistry(t).Add("fixed_bitmap", "live", "element_size=8")
	require.NoError(t, err)
	defer p.Close()
	p.Alloc(8)
	p.Alloc(8)

	c := NewCollector(func() []pool.Stats { return []pool.Stats{p.Stats()} })
	require.InDelta(t, 2, testutil.ToFloat64(filter{c, "mempool_live_elements"}), 0)
}

// filter narrows a collector to one metric so testutil.ToFloat64 accepts it.
type filter struct {
	prometheus.Collector
	name string
}

func (f filter) Collect(ch chan<- prometheus.Metric) {
	all := make(chan prometheus.Metric)
	go func() {
		f.Collector.Collect(all)
		close(all)
	}()
	for m := range all {
		if strings.Contains(m.Desc().String(), `"`+f.name+`"`) {
			ch <- m
		}
	}
}
