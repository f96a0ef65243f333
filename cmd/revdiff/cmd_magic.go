package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/patch"
)

func newMagicCmd(a *app) *cobra.Command {
	var (
		mergeList bool
		parentNum int
		numbered  bool
	)

	cmd := &cobra.Command{
		Use:   "magic <revision>",
		Short: "Print the synthetic commit message or merge list file of a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openProject()
			if err != nil {
				return err
			}
			h, _, err := r.ResolveCommit(args[0])
			if err != nil {
				return err
			}

			synth := patch.NewMagicFileSynthesizer(r)
			var m patch.MagicFile
			if mergeList {
				cmp := patch.AgainstAutoMerge()
				if parentNum > 0 {
					cmp = patch.AgainstParent(parentNum)
				}
				m, err = synth.ForMergeList(h, cmp)
			} else {
				m, err = synth.ForCommitMessage(h)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !numbered {
				fmt.Fprint(w, m.FileContent())
				return nil
			}
			// Lines from the modifiable part are marked so reviewers can
			// tell what the author wrote.
			start := m.StartLineOfModifiableContent()
			for i, line := range splitKeepEmpty(m.FileContent()) {
				n := i + 1
				marker := " "
				if m.ModifiableContent != "" && n >= start {
					marker = "*"
				}
				fmt.Fprintf(w, "%4d%s %s\n", n, marker, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mergeList, "merge-list", false, "print /MERGE_LIST instead of /COMMIT_MSG")
	cmd.Flags().IntVar(&parentNum, "parent", 0, "base parent for the merge list")
	cmd.Flags().BoolVarP(&numbered, "numbered", "n", false, "number lines and mark the modifiable part")
	return cmd
}

func splitKeepEmpty(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
