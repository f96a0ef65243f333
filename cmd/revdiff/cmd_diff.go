package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/patch"
	"github.com/odvcencio/revdiff/pkg/repo"
)

const defaultContextLines = 3

func newDiffCmd(a *app) *cobra.Command {
	var (
		base         string
		parentNum    int
		whitespace   string
		contextLines int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "diff <revision> <path>",
		Short: "Show the diff of one file in a commit",
		Long: "Show the diff of one file, including the synthetic /COMMIT_MSG and\n" +
			"/MERGE_LIST files, against a parent of the commit or against --base.",
		Args: cobra.ExactArgs(2),
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

			var out patch.FileDiffOutput
			if base != "" {
				out, err = ops.GetModifiedFile(a.project, hashes[1], hashes[0], args[1], ws)
			} else {
				out, err = ops.GetModifiedFileAgainstParent(a.project, hashes[0], parentNum, args[1], ws)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(w, out)
			}
			if out.Empty() {
				return nil
			}
			for _, line := range out.HeaderLines {
				fmt.Fprintln(w, line)
			}
			if out.PatchType == patch.PatchBinary || len(out.Edits) == 0 {
				return nil
			}

			r, err := a.openProject()
			if err != nil {
				return err
			}
			oldText, newText, err := sideTexts(r, out)
			if err != nil {
				return err
			}
			printHunks(w, linediff.SplitLines(oldText), linediff.SplitLines(newText), out.Edits, contextLines)
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "compare against this revision instead of a parent")
	cmd.Flags().IntVar(&parentNum, "parent", 0, "1-based parent to compare against; 0 picks the default base")
	cmd.Flags().StringVarP(&whitespace, "whitespace", "w", "", "whitespace mode: none, trailing, change or all")
	cmd.Flags().IntVarP(&contextLines, "unified", "U", defaultContextLines, "lines of context around each change")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the output as JSON")
	return cmd
}

// sideTexts loads the old and new contents an output's edits refer to.
func sideTexts(r *repo.Repo, out patch.FileDiffOutput) (oldText, newText []byte, err error) {
	if patch.IsMagicPath(out.Path()) {
		synth := patch.NewMagicFileSynthesizer(r)
		render := func(h object.Hash) ([]byte, error) {
			var m patch.MagicFile
			var err error
			if out.Path() == patch.MergeListPath {
				m, err = synth.ForMergeList(h, out.ComparisonType)
			} else {
				m, err = synth.ForCommitMessage(h)
			}
			if err != nil {
				return nil, err
			}
			return []byte(m.FileContent()), nil
		}
		if out.OldPath != nil {
			if oldText, err = render(out.OldCommitID); err != nil {
				return nil, nil, err
			}
		}
		newText, err = render(out.NewCommitID)
		return oldText, newText, err
	}

	if out.OldPath != nil {
		if oldText, err = fileAt(r, out.OldCommitID, *out.OldPath); err != nil {
			return nil, nil, err
		}
	}
	if out.NewPath != nil {
		if newText, err = fileAt(r, out.NewCommitID, *out.NewPath); err != nil {
			return nil, nil, err
		}
	}
	return oldText, newText, nil
}

// fileAt reads path from rev, which names a commit or, for root commits,
// the empty tree.
func fileAt(r *repo.Repo, rev object.Hash, path string) ([]byte, error) {
	tree := rev
	if c, err := r.ReadCommit(rev); err == nil {
		tree = c.TreeHash
	}
	e, ok, err := r.EntryAtPath(tree, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

type hunk struct {
	edits []linediff.Edit
}

// groupHunks merges edits whose context windows touch.
func groupHunks(edits []linediff.Edit, contextLines int) []hunk {
	var hunks []hunk
	for _, e := range edits {
		if n := len(hunks); n > 0 {
			last := hunks[n-1].edits[len(hunks[n-1].edits)-1]
			if e.OldStart-last.OldEnd() <= 2*contextLines {
				hunks[n-1].edits = append(hunks[n-1].edits, e)
				continue
			}
		}
		hunks = append(hunks, hunk{edits: []linediff.Edit{e}})
	}
	return hunks
}

func printHunks(w io.Writer, oldLines, newLines []string, edits []linediff.Edit, contextLines int) {
	if contextLines < 0 {
		contextLines = 0
	}
	for _, h := range groupHunks(edits, contextLines) {
		first, last := h.edits[0], h.edits[len(h.edits)-1]

		oldStart := max(0, first.OldStart-contextLines)
		newStart := first.NewStart - (first.OldStart - oldStart)
		oldEnd := min(len(oldLines), last.OldEnd()+contextLines)
		newEnd := last.NewEnd() + (oldEnd - last.OldEnd())

		fmt.Fprintf(w, "@@ -%s +%s @@\n",
			lineRange(oldStart, oldEnd-oldStart),
			lineRange(newStart, newEnd-newStart))

		pos := oldStart
		for _, e := range h.edits {
			for ; pos < e.OldStart; pos++ {
				fmt.Fprintf(w, " %s\n", oldLines[pos])
			}
			for i := e.OldStart; i < e.OldEnd(); i++ {
				fmt.Fprintf(w, "-%s\n", oldLines[i])
			}
			for i := e.NewStart; i < e.NewEnd(); i++ {
				fmt.Fprintf(w, "+%s\n", newLines[i])
			}
			pos = e.OldEnd()
		}
		for ; pos < oldEnd; pos++ {
			fmt.Fprintf(w, " %s\n", oldLines[pos])
		}
	}
}

// lineRange formats a 0-based start and count as a 1-based hunk range.
// An empty range names the line before it.
func lineRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start+1, count)
}
