/*
Package mempool is the batteries-included entry point to poolkit.

It owns a process-wide Default registry holding the five built-in backends,
and adds helpers that sit on top of a pool: a handle table that survives
compaction, lazily created fixed-size pools keyed by type, and reporting in
text, JSON and Prometheus form.

# Quick Start

	if err := mempool.Init(); err != nil {
	    log.Fatal(err)
	}
	defer mempool.Shutdown()

	p, err := mempool.Add("chained_pool", "nodes", "element_size=64")
	if err != nil {
	    log.Fatal(err)
	}
	defer p.Close()

# Surviving Repack

Repack moves elements. Code that keeps elements across a Repack should hold
Handle values instead of slices:

	h := mempool.NewHandles(p)
	id := h.Alloc(64)
	copy(h.Get(id), payload)
	h.Repack()
	data := h.Get(id) // still the same bytes, possibly at a new address

# Reporting

	mempool.WriteReport(os.Stdout, p.Stats())
	data, _ := mempool.MarshalStats(p.Stats())
	prometheus.MustRegister(mempool.NewCollector(snapshot))

# Thread Safety

Nothing in this package locks. Init, Shutdown and Add touch the Default
registry and must not race with each other; pools, Handles and Slots must
each be used from one goroutine at a time.
*/
package mempool
