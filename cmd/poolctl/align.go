package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/pool"
)

var defaultAlignSizes = []int{1, 2, 3, 4, 7, 8, 12, 16, 24, 32, 48, 64, 100}

func init() {
	rootCmd.AddCommand(newAlignCmd())
}

func newAlignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "align [size...]",
		Short: "Show default alignment and rounded size per element size",
		Long: `The align command prints the alignment a pool uses when none is given
and the element size rounded up to it.

Example:
  poolctl align
  poolctl align 5 40 4096`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(args)
		},
	}
}

type alignRow struct {
	Size      int `json:"size"`
	Alignment int `json:"alignment"`
	Rounded   int `json:"rounded"`
}

func runAlign(args []string) error {
	sizes := defaultAlignSizes
	if len(args) > 0 {
		sizes = make([]int, 0, len(args))
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid size %q", a)
			}
			sizes = append(sizes, n)
		}
	}

	rows := make([]alignRow, 0, len(sizes))
	for _, n := range sizes {
		rows = append(rows, alignRow{Size: n, Alignment: pool.AlignOf(n), Rounded: pool.RoundSize(n)})
	}

	if jsonOut {
		return printJSON(rows)
	}
	if quiet {
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SIZE\tALIGN\tROUNDED\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t\n", r.Size, r.Alignment, r.Rounded)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printInfo("max alignment: %d\n", pool.MaxAlignment)
	return nil
}
