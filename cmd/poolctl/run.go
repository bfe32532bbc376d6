package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pkg/mempool"
	"github.com/joshuapare/poolkit/pool"
)

var (
	runBackend     string
	runOptions     string
	runCount       int
	runPools       int
	runSize        int
	runSeed        uint64
	runRepack      bool
	runGC          bool
	runMetricsAddr string
	runHold        bool
)

// publishEvery is how many operations a worker performs between snapshots.
const publishEvery = 1024

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runBackend, "backend", "b", "chained_pool", "Backend to exercise")
	cmd.Flags().StringVarP(&runOptions, "options", "o", "", "Backend options (key=value,...)")
	cmd.Flags().IntVarP(&runCount, "count", "n", 10000, "Operations per pool")
	cmd.Flags().IntVarP(&runPools, "pools", "p", 1, "Pools to drive concurrently, one goroutine each")
	cmd.Flags().IntVar(&runSize, "size", 32, "Element size; the maximum request size for variable-size backends")
	cmd.Flags().Uint64Var(&runSeed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&runRepack, "repack", false, "Repack every pool after the workload")
	cmd.Flags().BoolVar(&runGC, "gc", false, "Run GC on every pool after the workload")
	cmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&runHold, "hold", false, "Keep serving metrics after the run until interrupted")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive a random allocation workload",
		Long: `The run command creates one or more pools from a backend and performs a
random mix of allocations and frees on each, verifying element contents as it
goes. Each pool is driven by its own goroutine.

Example:
  poolctl run --backend buddy --options size=64k --size 200
  poolctl run -b chained_pool -o chunk_size=16k --pools 4 --repack --gc
  poolctl run -b fixed_bitmap --json
  poolctl run --metrics-addr :9090 --hold`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context())
		},
	}
}

// workload describes what every worker does with its pool.
type workload struct {
	count  int
	size   int
	fixed  bool
	repack bool
	gc     bool
}

type liveElem struct {
	id  mempool.Handle
	tag int
}

// drive runs w against p. Elements are held through a Handles table so they
// survive Repack; every element is checked before it is freed.
func (w workload) drive(ctx context.Context, p *pool.Pool, rng *rand.Rand, publish func(pool.Stats)) error {
	h := mempool.NewHandles(p)
	var live []liveElem

	for op := range w.count {
		if op%publishEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			publish(p.Stats())
		}
		if len(live) == 0 || rng.IntN(3) > 0 {
			size := w.size
			if !w.fixed {
				size = 1 + rng.IntN(w.size)
			}
			id := h.Alloc(size)
			if id == 0 {
				continue
			}
			fill(h.Get(id), op)
			live = append(live, liveElem{id, op})
			continue
		}
		i := rng.IntN(len(live))
		if err := verify(p, h, live[i]); err != nil {
			return err
		}
		h.Free(live[i].id)
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
	}

	if w.repack {
		h.Repack()
	}
	for _, e := range live {
		if err := verify(p, h, e); err != nil {
			return err
		}
	}
	if w.gc {
		p.GC()
	}
	publish(p.Stats())
	return nil
}

func fill(b []byte, tag int) {
	for i := range b {
		b[i] = byte(tag + i)
	}
}

func verify(p *pool.Pool, h *mempool.Handles, e liveElem) error {
	b := h.Get(e.id)
	for i := range b {
		if b[i] != byte(e.tag+i) {
			return fmt.Errorf("pool %s: element %d corrupted at byte %d", p.Context(), e.id, i)
		}
	}
	return nil
}

func runRun(ctx context.Context) error {
	if runPools < 1 || runCount < 0 || runSize < 1 {
		return errors.New("--pools and --size must be positive, --count not negative")
	}

	w := workload{
		count:  runCount,
		size:   runSize,
		fixed:  catalog[runBackend].Sizing == "fixed",
		repack: runRepack,
		gc:     runGC,
	}
	options := runOptions
	if w.fixed {
		opts, err := pool.ParseOptions(options)
		if err != nil {
			return err
		}
		if !opts.Has("element_size") {
			options = fmt.Sprintf("element_size=%d,%s", runSize, options)
		}
	}

	pools := make([]*pool.Pool, 0, runPools)
	defer func() {
		for _, p := range pools {
			p.Close()
		}
	}()
	for i := range runPools {
		p, err := mempool.Add(runBackend, fmt.Sprintf("worker-%d", i), options)
		if err != nil {
			return err
		}
		pools = append(pools, p)
	}
	if w.fixed && pools[0].ElementSize() < w.size {
		w.size = pools[0].ElementSize()
	}

	var mu sync.Mutex
	snapshots := make([]pool.Stats, len(pools))
	snapshot := func() []pool.Stats {
		mu.Lock()
		defer mu.Unlock()
		return append([]pool.Stats(nil), snapshots...)
	}

	if runMetricsAddr != "" {
		srv, addr, err := serveMetrics(runMetricsAddr, snapshot)
		if err != nil {
			return err
		}
		defer srv.Close()
		printInfo("metrics: http://%s/metrics\n", addr)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pools {
		rng := rand.New(rand.NewPCG(runSeed, uint64(i)))
		publish := func(s pool.Stats) {
			mu.Lock()
			snapshots[i] = s
			mu.Unlock()
		}
		g.Go(func() error { return w.drive(gctx, p, rng, publish) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.L.Info("workload finished", "backend", runBackend, "pools", len(pools), "elapsed", time.Since(start))

	stats := make([]pool.Stats, len(pools))
	for i, p := range pools {
		stats[i] = p.Statistics()
	}

	switch {
	case jsonOut:
		data, err := mempool.MarshalStats(stats...)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(os.Stdout, "%s\n", data); err != nil {
			return err
		}
	case !quiet:
		if err := mempool.WriteReport(os.Stdout, stats...); err != nil {
			return err
		}
	}

	if runMetricsAddr != "" && runHold {
		printInfo("serving metrics until interrupted\n")
		<-ctx.Done()
	}
	return nil
}

// serveMetrics exposes a Collector over fn at /metrics on addr.
func serveMetrics(addr string, fn mempool.StatsFunc) (*http.Server, net.Addr, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(mempool.NewCollector(fn)); err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("metrics server stopped", "error", err)
		}
	}()
	logger.L.Info("metrics listening", "addr", ln.Addr().String())
	return srv, ln.Addr(), nil
}
