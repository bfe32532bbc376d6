package pool

// Stats is a point-in-time usage report for one pool.
type Stats struct {
	Backend     string `json:"backend"`
	Context     string `json:"context,omitempty"`
	ElementSize int    `json:"element_size"`
	Alignment   int    `json:"alignment"`

	// Filled in by the backend.
	Live        int    `json:"live"`         // elements currently allocated
	InUse       int    `json:"in_use"`       // bytes reserved by live elements (slot or block granularity)
	Capacity    int    `json:"capacity"`     // bytes currently obtained from the memory source
	Regions     int    `json:"regions"`      // chunks, regions or arenas currently held
	FreeBlocks  int    `json:"free_blocks"`  // free slots or free buddy blocks
	LargestFree int    `json:"largest_free"` // largest single allocation that fits without growth
	Grown       uint64 `json:"grown"`        // regions created over the pool lifetime
	Released    uint64 `json:"released"`     // regions returned by GC over the pool lifetime
	Relocated   uint64 `json:"relocated"`    // elements moved by Repack over the pool lifetime

	// Filled in by Pool.
	Allocs   uint64 `json:"allocs"`
	Frees    uint64 `json:"frees"`
	Failures uint64 `json:"failures"`
}

// Utilization is InUse over Capacity, or 0 for an empty pool.
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.InUse) / float64(s.Capacity)
}
