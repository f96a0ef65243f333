package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/patch"
)

func newAutoMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "automerge <merge-revision>",
		Short: "Create or look up the auto-merge commit of a merge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.operations()
			if err != nil {
				return err
			}
			hashes, err := a.resolveCommits(args[0])
			if err != nil {
				return err
			}
			h, err := ops.AutoMerge(a.project, hashes[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, h)
			if a.cfg.AutoMerge.Save {
				fmt.Fprintf(w, "ref: %s\n", patch.AutoMergeRef(hashes[0]))
			}
			return nil
		},
	}
}
