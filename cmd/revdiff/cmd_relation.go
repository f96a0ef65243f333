package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRelationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relation <old-revision> <new-revision>",
		Short: "Classify how two patch sets relate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := a.operations()
			if err != nil {
				return err
			}
			hashes, err := a.resolveCommits(args[0], args[1])
			if err != nil {
				return err
			}
			rel, err := ops.Relation(a.project, hashes[0], hashes[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rel)
			return nil
		},
	}
}
