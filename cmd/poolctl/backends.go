package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/pkg/mempool"
)

// backendInfo describes a registered backend for the backends command.
type backendInfo struct {
	Name    string   `json:"name"`
	Sizing  string   `json:"sizing"`
	Options []string `json:"options"`
	Summary string   `json:"summary"`
}

var catalog = map[string]backendInfo{
	"pass_through": {Sizing: "variable", Summary: "one source allocation per element"},
	"chained_pool": {Sizing: "fixed", Options: []string{"chunk_size"}, Summary: "linked chunks with LIFO free slots, compacts"},
	"buddy":        {Sizing: "variable", Options: []string{"size", "min_block", "grow"}, Summary: "power-of-two blocks, out-of-band metadata, compacts"},
	"fixed_bitmap": {Sizing: "fixed", Options: []string{"slots"}, Summary: "regions tracked by occupancy bitmaps"},
	"one_big":      {Sizing: "fixed", Options: []string{"item_count"}, Summary: "single preallocated region, never grows"},
}

func init() {
	rootCmd.AddCommand(newBackendsCmd())
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered backends",
		Long: `The backends command lists every registered backend with its sizing
model and the options it understands beyond element_size, alignment and source.

Example:
  poolctl backends
  poolctl backends --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackends()
		},
	}
}

func runBackends() error {
	var infos []backendInfo
	for _, name := range mempool.Default.Names() {
		info := catalog[name]
		info.Name = name
		if info.Options == nil {
			info.Options = []string{}
		}
		infos = append(infos, info)
	}

	if jsonOut {
		return printJSON(infos)
	}
	if quiet {
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZING\tOPTIONS\tSUMMARY")
	for _, info := range infos {
		opts := "-"
		if len(info.Options) > 0 {
			opts = strings.Join(info.Options, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Sizing, opts, info.Summary)
	}
	return tw.Flush()
}
