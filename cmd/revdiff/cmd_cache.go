package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the diff caches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Drop every cached diff and tombstone, on disk as well",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.operations()
			if err != nil {
				return err
			}
			if err := ops.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "caches flushed")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache counters for this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.operations()
			if err != nil {
				return err
			}
			stats := ops.CacheStats()
			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)
			w := cmd.OutOrStdout()
			for _, name := range names {
				s := stats[name]
				fmt.Fprintf(w, "%-6s entries=%d hits=%d misses=%d loads=%d tombstones=%d\n",
					name, s.Entries, s.Hits, s.Misses, s.Loads, s.Tombstones)
			}
			return nil
		},
	})
	return cmd
}
