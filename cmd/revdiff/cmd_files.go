package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/patch"
)

func newFilesCmd(a *app) *cobra.Command {
	var (
		base       string
		parentNum  int
		whitespace string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "files <revision>",
		Short: "List files modified by a commit",
		Long: "List files modified by a commit against one of its parents (default: its\n" +
			"parent, or the auto-merge for merge commits), or against --base.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.whitespace(whitespace)
			if err != nil {
				return err
			}
			ops, err := a.operations()
			if err != nil {
				return err
			}

			exprs := []string{args[0]}
			if base != "" {
				exprs = append(exprs, base)
			}
			hashes, err := a.resolveCommits(exprs...)
			if err != nil {
				return err
			}

			opts := patch.ListOptions{Whitespace: ws}
			var files *patch.ModifiedFiles
			if base != "" {
				files, err = ops.ListModifiedFiles(a.project, hashes[1], hashes[0], opts)
			} else {
				files, err = ops.ListModifiedFilesAgainstParent(a.project, hashes[0], parentNum, opts)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), files.Outputs())
			}
			printFileList(cmd.OutOrStdout(), files.Outputs())
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "compare against this revision instead of a parent")
	cmd.Flags().IntVar(&parentNum, "parent", 0, "1-based parent to compare against; 0 picks the default base")
	cmd.Flags().StringVarP(&whitespace, "whitespace", "w", "", "whitespace mode: none, trailing, change or all")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print outputs as JSON")
	return cmd
}

func printFileList(w io.Writer, outputs []patch.FileDiffOutput) {
	for _, out := range outputs {
		ins, del := lineCounts(out)
		path := out.Path()
		if (out.ChangeType == patch.ChangeRenamed || out.ChangeType == patch.ChangeCopied) && out.OldPath != nil {
			path = *out.OldPath + " -> " + path
		}
		switch {
		case out.PatchType == patch.PatchBinary:
			fmt.Fprintf(w, "%-8s %-11s %s\n", out.ChangeType, "binary", path)
			continue
		case out.EditsSkipped:
			fmt.Fprintf(w, "%-8s %-11s %s\n", out.ChangeType, "too large", path)
			continue
		}
		fmt.Fprintf(w, "%-8s +%-4d -%-4d %s\n", out.ChangeType, ins, del, path)
	}
}

func lineCounts(out patch.FileDiffOutput) (ins, del int) {
	for _, e := range out.Edits {
		ins += e.NewLen
		del += e.OldLen
	}
	return ins, del
}
