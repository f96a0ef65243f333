package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/patch"
)

func newLogCmd(a *app) *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log <revision>",
		Short: "Show first-parent history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openProject()
			if err != nil {
				return err
			}
			start, _, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}
			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				c := e.Commit
				if oneline {
					fmt.Fprintf(out, "%s %s\n", e.Hash.Short(), patch.ShortMessage(c.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				if len(c.Parents) > 1 {
					fmt.Fprint(out, "Merge:")
					for _, p := range c.Parents {
						fmt.Fprintf(out, " %s", p.Short())
					}
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "Author: %s\n", c.Author)
				fmt.Fprintf(out, "Date:   %s\n", c.Author.Time().Format("2006-01-02 15:04:05 -0700"))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", patch.ShortMessage(c.Message))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show")
	return cmd
}
