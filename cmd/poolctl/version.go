package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty,omitempty"`
	Go      string `json:"go"`
}

// currentBuild reports the ldflags stamp. Unstamped dev builds fall back to
// the module version and VCS settings the toolchain embeds.
func currentBuild() buildInfo {
	b := buildInfo{Version: version, Commit: commit, Date: date, Go: runtime.Version()}
	if version != "dev" {
		return b
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		b.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			b.Date = s.Value
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}

func runVersion() error {
	b := currentBuild()
	if jsonOut {
		return printJSON(b)
	}
	suffix := ""
	if b.Dirty {
		suffix = " (modified)"
	}
	fmt.Fprintf(os.Stdout, "poolctl %s\n", b.Version)
	fmt.Fprintf(os.Stdout, "  commit: %s%s\n", b.Commit, suffix)
	fmt.Fprintf(os.Stdout, "  built:  %s\n", b.Date)
	fmt.Fprintf(os.Stdout, "  go:     %s\n", b.Go)
	return nil
}
