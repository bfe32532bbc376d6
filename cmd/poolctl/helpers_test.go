package main

import (
	"bytes"
	"os"
	"testing"
)

// captureOutput captures stdout while running fn.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	<-done
	return buf.String(), fnErr
}

// resetFlags restores every global flag to its default.
func resetFlags(t *testing.T) {
	t.Helper()
	quiet, jsonOut, logLevel, logDir = false, false, "", ""
	runBackend, runOptions = "chained_pool", ""
	runCount, runPools, runSize, runSeed = 10000, 1, 32, 1
	runRepack, runGC, runMetricsAddr, runHold = false, false, "", false
	t.Cleanup(teardown)
}
