package main

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/pkg/mempool"
	"github.com/joshuapare/poolkit/pool"
)

func TestDriveEveryBackend(t *testing.T) {
	tests := []struct {
		backend string
		options string
		w       workload
	}{
		{"pass_through", "", workload{count: 3000, size: 300}},
		{"chained_pool", "element_size=24,chunk_size=512", workload{count: 3000, size: 24, fixed: true, repack: true, gc: true}},
		{"buddy", "size=16k,min_block=16", workload{count: 3000, size: 500, repack: true, gc: true}},
		{"fixed_bitmap", "element_size=40,slots=64", workload{count: 3000, size: 40, fixed: true, gc: true}},
		{"one_big", "element_size=16,item_count=100", workload{count: 3000, size: 16, fixed: true}},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			reg := pool.NewRegistry()
			require.NoError(t, mempool.RegisterAll(reg))
			p, err := reg.Add(tc.backend, "drive", tc.options)
			require.NoError(t, err)
			defer p.Close()

			var last pool.Stats
			publishes := 0
			err = tc.w.drive(context.Background(), p, rand.New(rand.NewPCG(5, 6)), func(s pool.Stats) {
				last = s
				publishes++
			})
			require.NoError(t, err)
			require.Equal(t, 4, publishes, "three periodic snapshots and a final one")
			require.Equal(t, p.Stats(), last)
			require.EqualValues(t, last.Allocs-last.Frees, last.Live)
		})
	}
}

func TestDriveCancelled(t *testing.T) {
	reg := pool.NewRegistry()
	require.NoError(t, mempool.RegisterAll(reg))
	p, err := reg.Add("pass_through", "", "")
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := workload{count: 10, size: 8}
	err = w.drive(ctx, p, rand.New(rand.NewPCG(1, 1)), func(pool.Stats) {})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunCommand(t *testing.T) {
	resetFlags(t)
	require.NoError(t, setup(rootCmd, nil))
	runBackend, runOptions = "buddy", "size=64k"
	runCount, runPools, runSize = 2000, 3, 128
	runRepack, runGC = true, true

	out, err := captureOutput(t, func() error { return runRun(context.Background()) })
	require.NoError(t, err)
	for _, want := range []string{"BACKEND", "worker-0", "worker-1", "worker-2", "total"} {
		require.Contains(t, out, want)
	}
}

func TestRunCommandJSON(t *testing.T) {
	resetFlags(t)
	require.NoError(t, setup(rootCmd, nil))
	runBackend, runOptions = "fixed_bitmap", "slots=64"
	runCount, runPools, runSize = 500, 2, 12
	jsonOut = true

	out, err := captureOutput(t, func() error { return runRun(context.Background()) })
	require.NoError(t, err)

	var snap mempool.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Pools, 2)
	require.Equal(t, 12, snap.Pools[0].ElementSize, "element_size is added from --size")
	require.Equal(t, snap.Pools[0].Allocs+snap.Pools[1].Allocs, snap.Total.Allocs)
}

func TestRunCommandErrors(t *testing.T) {
	resetFlags(t)
	require.NoError(t, setup(rootCmd, nil))

	runBackend = "nope"
	_, err := captureOutput(t, func() error { return runRun(context.Background()) })
	require.ErrorIs(t, err, pool.ErrNotFound)

	runBackend, runOptions = "one_big", "element_size=8"
	_, err = captureOutput(t, func() error { return runRun(context.Background()) })
	require.ErrorIs(t, err, pool.ErrInvalidOption, "item_count is mandatory")

	runBackend, runOptions, runPools = "chained_pool", "", 0
	_, err = captureOutput(t, func() error { return runRun(context.Background()) })
	require.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	stats := []pool.Stats{{Backend: "buddy", Context: "worker-0", Live: 7}}
	srv, addr, err := serveMetrics("127.0.0.1:0", func() []pool.Stats { return stats })
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `mempool_live_elements{backend="buddy",context="worker-0"} 7`), string(body))
}
