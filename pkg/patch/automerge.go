package patch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/repo"
)

// AutoMergeRefPrefix is the ref namespace auto-merge commits are kept in.
const AutoMergeRefPrefix = "refs/cache-automerge/"

// AutoMergeRef returns the ref that records the auto-merge of mergeCommit:
// refs/cache-automerge/<first two hex digits>/<rest>.
func AutoMergeRef(mergeCommit object.Hash) string {
	return AutoMergeRefPrefix + string(mergeCommit[:2]) + "/" + string(mergeCommit[2:])
}

// AutoMergeOptions configures AutoMerger.
type AutoMergeOptions struct {
	// Save persists the auto-merge ref. When false the commit is still
	// written but nothing points at it.
	Save        bool
	AuthorName  string
	AuthorEmail string
}

// DefaultAutoMergeOptions are used for zero-valued identity fields.
var DefaultAutoMergeOptions = AutoMergeOptions{
	Save:        true,
	AuthorName:  "Auto-Merge",
	AuthorEmail: "automerge@revdiff.local",
}

// AutoMerger computes the trial merge of a merge commit's parents, the base
// a merge commit is diffed against by default.
type AutoMerger struct {
	opts   AutoMergeOptions
	logger *slog.Logger
}

func NewAutoMerger(opts AutoMergeOptions, logger *slog.Logger) *AutoMerger {
	if opts.AuthorName == "" {
		opts.AuthorName = DefaultAutoMergeOptions.AuthorName
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = DefaultAutoMergeOptions.AuthorEmail
	}
	return &AutoMerger{opts: opts, logger: orDiscard(logger)}
}

// Merge returns the auto-merge commit for mergeCommit, creating it on first
// use. The commit's content is a pure function of the merge commit, so
// concurrent first callers compute the same hash; the ref is created with
// compare-and-swap against "absent" and a caller that loses the race
// returns what the winner stored. Merge conflicts are kept in the tree as
// conflict markers and never fail the call.
func (m *AutoMerger) Merge(r *repo.Repo, mergeCommit object.Hash) (object.Hash, error) {
	c, err := r.Store.ReadCommit(mergeCommit)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return "", notFound("auto-merge: commit %s", mergeCommit)
		}
		return "", fmt.Errorf("auto-merge: %w", err)
	}
	if len(c.Parents) < 2 {
		return "", fmt.Errorf("auto-merge: %s is not a merge commit", mergeCommit.Short())
	}

	ref := AutoMergeRef(mergeCommit)
	existing, err := r.ReadRef(ref)
	switch {
	case err == nil && r.Store.Has(existing):
		m.logger.Debug("auto-merge reused", "commit", mergeCommit, "automerge", existing)
		return existing, nil
	case err != nil && !errors.Is(err, repo.ErrRefNotFound):
		return "", fmt.Errorf("auto-merge: %w", err)
	}

	id, report, err := m.build(r, mergeCommit, c)
	if err != nil {
		return "", err
	}
	if !m.opts.Save {
		m.logger.Debug("auto-merge computed without saving", "commit", mergeCommit, "automerge", id)
		return id, nil
	}

	if existing != "" {
		// The ref points at an object that no longer exists.
		err = r.UpdateRefCAS(ref, id, existing)
	} else {
		err = r.CreateRef(ref, id, "automerge")
	}
	switch {
	case err == nil:
		m.logger.Info("auto-merge created",
			"commit", mergeCommit,
			"automerge", id,
			"conflict_files", report.ConflictFiles,
		)
		return id, nil
	case errors.Is(err, repo.ErrRefCASMismatch):
		stored, readErr := r.ReadRef(ref)
		if readErr != nil {
			return "", fmt.Errorf("auto-merge: re-read after lost race: %w", readErr)
		}
		m.logger.Debug("auto-merge created concurrently", "commit", mergeCommit, "automerge", stored)
		return stored, nil
	case errors.Is(err, repo.ErrRefUpdatedButReflogAppendFailed):
		m.logger.Warn("auto-merge ref created without reflog entry", "ref", ref, "error", err)
		return id, nil
	default:
		return "", fmt.Errorf("auto-merge: %w", err)
	}
}

// build merges the parents left to right and writes the auto-merge commit.
// Each step merges the next parent into the accumulated tree using the
// merge base of the first parent and that parent.
func (m *AutoMerger) build(r *repo.Repo, mergeCommit object.Hash, c *object.CommitObj) (object.Hash, *repo.TreeMergeReport, error) {
	first, err := r.Store.ReadCommit(c.Parents[0])
	if err != nil {
		return "", nil, fmt.Errorf("auto-merge: parent 1: %w", err)
	}

	tree := first.TreeHash
	total := &repo.TreeMergeReport{}
	for i := 1; i < len(c.Parents); i++ {
		parent, err := r.Store.ReadCommit(c.Parents[i])
		if err != nil {
			return "", nil, fmt.Errorf("auto-merge: parent %d: %w", i+1, err)
		}
		baseTree, err := mergeBaseTree(r, c.Parents[0], c.Parents[i])
		if err != nil {
			return "", nil, err
		}

		var report *repo.TreeMergeReport
		tree, report, err = r.MergeTrees(baseTree, tree, parent.TreeHash, mergeLabels(i))
		if err != nil {
			return "", nil, fmt.Errorf("auto-merge: %w", err)
		}
		total.Files = append(total.Files, report.Files...)
		total.ConflictFiles += report.ConflictFiles
		total.TotalConflicts += report.TotalConflicts
	}

	ident := object.Identity{
		Name:     m.opts.AuthorName,
		Email:    m.opts.AuthorEmail,
		When:     c.Committer.When,
		Timezone: c.Committer.Timezone,
	}
	id, err := r.CommitTree(repo.CommitOptions{
		Tree:      tree,
		Parents:   c.Parents,
		Author:    ident,
		Committer: ident,
		Message:   fmt.Sprintf("Auto-merge of %s\n", mergeCommit),
	})
	if err != nil {
		return "", nil, fmt.Errorf("auto-merge: %w", err)
	}
	return id, total, nil
}

func mergeBaseTree(r *repo.Repo, a, b object.Hash) (object.Hash, error) {
	base, err := r.FindMergeBase(a, b)
	if err != nil {
		return "", fmt.Errorf("auto-merge: merge base: %w", err)
	}
	if base == "" {
		return "", nil
	}
	bc, err := r.Store.ReadCommit(base)
	if err != nil {
		return "", fmt.Errorf("auto-merge: merge base: %w", err)
	}
	return bc.TreeHash, nil
}

// mergeLabels names the sides of step i (merging parent i+1).
func mergeLabels(i int) linediff.Labels {
	ours := "PARENT1"
	if i > 1 {
		ours = fmt.Sprintf("PARENT1..%d", i)
	}
	return linediff.Labels{Ours: ours, Theirs: fmt.Sprintf("PARENT%d", i+1)}
}
