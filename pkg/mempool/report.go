package mempool

import (
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/poolkit/pool"
)

// Total sums the counters of stats into one record labelled "total".
// Largest free block is the maximum, not the sum.
func Total(stats ...pool.Stats) pool.Stats {
	t := pool.Stats{Backend: "total"}
	for _, s := range stats {
		t.Live += s.Live
		t.InUse += s.InUse
		t.Capacity += s.Capacity
		t.Regions += s.Regions
		t.FreeBlocks += s.FreeBlocks
		t.LargestFree = max(t.LargestFree, s.LargestFree)
		t.Grown += s.Grown
		t.Released += s.Released
		t.Relocated += s.Relocated
		t.Allocs += s.Allocs
		t.Frees += s.Frees
		t.Failures += s.Failures
	}
	return t
}

var reportPrinter = message.NewPrinter(language.English)

// WriteReport writes stats as an aligned table with grouped digits. More
// than one record adds a total row.
func WriteReport(w io.Writer, stats ...pool.Stats) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	tw := tabwriter.NewWriter(bb, 0, 0, 2, ' ', 0)
	reportPrinter.Fprintln(tw, "BACKEND\tCONTEXT\tLIVE\tIN USE\tCAPACITY\tUTIL\tREGIONS\tFREE\tLARGEST\tALLOCS\tFREES\tFAILED\tMOVED")
	rows := stats
	if len(stats) > 1 {
		rows = append(rows[:len(rows):len(rows)], Total(stats...))
	}
	for _, s := range rows {
		reportPrinter.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.1f%%\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.Backend, dash(s.Context), s.Live, s.InUse, s.Capacity, 100*s.Utilization(),
			s.Regions, s.FreeBlocks, s.LargestFree, s.Allocs, s.Frees, s.Failures, s.Relocated)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := bb.WriteTo(w)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Snapshot is the JSON document produced by MarshalStats.
type Snapshot struct {
	Pools []pool.Stats `json:"pools"`
	Total pool.Stats   `json:"total"`
}

// MarshalStats encodes stats and their total as JSON.
func MarshalStats(stats ...pool.Stats) ([]byte, error) {
	if stats == nil {
		stats = []pool.Stats{}
	}
	return json.Marshal(Snapshot{Pools: stats, Total: Total(stats...)})
}
