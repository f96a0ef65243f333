package patch

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/odvcencio/revdiff/pkg/config"
	"github.com/odvcencio/revdiff/pkg/diffcache"
	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/repo"
)

// RepoOpener resolves a project name to its repository. *repo.Manager
// implements it.
type RepoOpener interface {
	Open(project string) (*repo.Repo, error)
}

// ListOptions tune a file listing.
type ListOptions struct {
	Whitespace linediff.Whitespace
}

// ModifiedFiles is an ordered path to FileDiffOutput mapping: the commit
// message file first, the merge list second when present, then real paths
// in sorted order.
type ModifiedFiles struct {
	outputs []FileDiffOutput
	index   map[string]int
}

func newModifiedFiles(outputs []FileDiffOutput) *ModifiedFiles {
	m := &ModifiedFiles{outputs: outputs, index: make(map[string]int, len(outputs))}
	for i, out := range outputs {
		m.index[out.Path()] = i
	}
	return m
}

// Paths returns the paths in listing order.
func (m *ModifiedFiles) Paths() []string {
	paths := make([]string, len(m.outputs))
	for i, out := range m.outputs {
		paths[i] = out.Path()
	}
	return paths
}

// Get returns a copy of the output for path.
func (m *ModifiedFiles) Get(path string) (FileDiffOutput, bool) {
	i, ok := m.index[path]
	if !ok {
		return FileDiffOutput{}, false
	}
	return m.outputs[i].Clone(), true
}

// Outputs returns copies of the outputs in listing order.
func (m *ModifiedFiles) Outputs() []FileDiffOutput {
	return cloneOutputs(m.outputs)
}

func (m *ModifiedFiles) Len() int { return len(m.outputs) }

// DiffOperations answers "what changed between two revisions" for one file
// or a whole commit, caching every answer.
type DiffOperations struct {
	repos     RepoOpener
	cfg       config.Config
	computer  *DiffComputer
	autoMerge *AutoMerger
	files     *diffcache.Cache[FileDiffOutput]
	lists     *diffcache.Cache[[]FileDiffOutput]
	// rejected remembers the actual size behind each tombstoned file key,
	// which the tombstone itself does not record.
	rejected *lru.Cache[diffcache.Key, int64]
	logger   *slog.Logger
}

// NewDiffOperations wires the computer, validators, auto-merger and caches
// described by cfg. A nil logger discards output.
func NewDiffOperations(repos RepoOpener, cfg *config.Config, logger *slog.Logger) (*DiffOperations, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = orDiscard(logger)

	cacheOpts := diffcache.Options{
		MaxEntries: cfg.Cache.MaxEntries,
		Dir:        cfg.Cache.Dir,
		Logger:     logger,
	}
	files, err := diffcache.New[FileDiffOutput]("files", cacheOpts)
	if err != nil {
		return nil, fmt.Errorf("diff operations: %w", err)
	}
	lists, err := diffcache.New[[]FileDiffOutput]("lists", cacheOpts)
	if err != nil {
		files.Close()
		return nil, fmt.Errorf("diff operations: %w", err)
	}

	rejectedSize := cfg.Cache.MaxEntries
	if rejectedSize <= 0 {
		rejectedSize = diffcache.DefaultMaxEntries
	}
	rejected, err := lru.New[diffcache.Key, int64](rejectedSize)
	if err != nil {
		files.Close()
		lists.Close()
		return nil, fmt.Errorf("diff operations: %w", err)
	}

	computer := NewDiffComputer(SizeValidator{MaxFileSizeBytes: cfg.Diff.MaxFileSizeBytes})
	computer.MaxEditBytes = cfg.Diff.MaxFileSizeBytes

	autoMerge := NewAutoMerger(AutoMergeOptions{
		Save:        cfg.AutoMerge.Save,
		AuthorName:  cfg.AutoMerge.AuthorName,
		AuthorEmail: cfg.AutoMerge.AuthorEmail,
	}, logger)

	return &DiffOperations{
		repos:     repos,
		cfg:       *cfg,
		computer:  computer,
		autoMerge: autoMerge,
		files:     files,
		lists:     lists,
		rejected:  rejected,
		logger:    logger,
	}, nil
}

// GetModifiedFileAgainstParent diffs path of newCommit against its
// parentNum-th parent. parentNum 0 selects the default base: the empty tree
// for a root commit, the only parent of an ordinary commit, and the
// auto-merge of a merge commit.
func (o *DiffOperations) GetModifiedFileAgainstParent(project string, newCommit object.Hash, parentNum int, path string, ws linediff.Whitespace) (FileDiffOutput, error) {
	if err := checkArgs(newCommit, parentNum); err != nil {
		return FileDiffOutput{}, err
	}
	key := o.key(project, "", newCommit, parentNum, path, ws)
	return o.getFile(key, func() (FileDiffOutput, error) {
		r, err := o.open(project)
		if err != nil {
			return FileDiffOutput{}, err
		}
		req, newC, err := o.againstParent(r, newCommit, parentNum, ws)
		if err != nil {
			return FileDiffOutput{}, err
		}
		return o.computeFile(r, req, newC, nil, path)
	})
}

// ListModifiedFilesAgainstParent lists every changed path of commit
// against the base GetModifiedFileAgainstParent would use, including the
// synthetic files.
func (o *DiffOperations) ListModifiedFilesAgainstParent(project string, commit object.Hash, parentNum int, opts ListOptions) (*ModifiedFiles, error) {
	if err := checkArgs(commit, parentNum); err != nil {
		return nil, err
	}
	key := o.key(project, "", commit, parentNum, diffcache.AllFiles, opts.Whitespace)
	outs, err := o.lists.Get(key, func() ([]FileDiffOutput, error) {
		r, err := o.open(project)
		if err != nil {
			return nil, err
		}
		req, newC, err := o.againstParent(r, commit, parentNum, opts.Whitespace)
		if err != nil {
			return nil, err
		}
		return o.listAll(r, req, newC, nil)
	})
	if err != nil {
		return nil, o.cacheErr(key, err)
	}
	return newModifiedFiles(cloneOutputs(outs)), nil
}

// GetModifiedFile diffs path between two independent revisions.
func (o *DiffOperations) GetModifiedFile(project string, oldCommit, newCommit object.Hash, path string, ws linediff.Whitespace) (FileDiffOutput, error) {
	if err := checkArgs(oldCommit, 0); err != nil {
		return FileDiffOutput{}, err
	}
	if err := checkArgs(newCommit, 0); err != nil {
		return FileDiffOutput{}, err
	}
	key := o.key(project, oldCommit, newCommit, 0, path, ws)
	return o.getFile(key, func() (FileDiffOutput, error) {
		r, err := o.open(project)
		if err != nil {
			return FileDiffOutput{}, err
		}
		req, oldC, newC, err := o.againstPatchSet(r, oldCommit, newCommit, ws)
		if err != nil {
			return FileDiffOutput{}, err
		}
		return o.computeFile(r, req, newC, oldC, path)
	})
}

// ListModifiedFiles lists every changed path between two independent
// revisions. Identical revisions list only the synthetic files.
func (o *DiffOperations) ListModifiedFiles(project string, oldCommit, newCommit object.Hash, opts ListOptions) (*ModifiedFiles, error) {
	if err := checkArgs(oldCommit, 0); err != nil {
		return nil, err
	}
	if err := checkArgs(newCommit, 0); err != nil {
		return nil, err
	}
	key := o.key(project, oldCommit, newCommit, 0, diffcache.AllFiles, opts.Whitespace)
	outs, err := o.lists.Get(key, func() ([]FileDiffOutput, error) {
		r, err := o.open(project)
		if err != nil {
			return nil, err
		}
		req, oldC, newC, err := o.againstPatchSet(r, oldCommit, newCommit, opts.Whitespace)
		if err != nil {
			return nil, err
		}
		return o.listAll(r, req, newC, oldC)
	})
	if err != nil {
		return nil, o.cacheErr(key, err)
	}
	return newModifiedFiles(cloneOutputs(outs)), nil
}

// AutoMerge returns the auto-merge commit of a merge commit, creating it
// on first use.
func (o *DiffOperations) AutoMerge(project string, mergeCommit object.Hash) (object.Hash, error) {
	r, err := o.open(project)
	if err != nil {
		return "", err
	}
	return o.autoMerge.Merge(r, mergeCommit)
}

// Relation classifies oldCommit against newCommit.
func (o *DiffOperations) Relation(project string, oldCommit, newCommit object.Hash) (RelationType, error) {
	r, err := o.open(project)
	if err != nil {
		return RelationOther, err
	}
	return NewRelationAnalyzer(r, o.logger).Classify(oldCommit, newCommit), nil
}

// Flush empties both caches.
func (o *DiffOperations) Flush() error {
	o.rejected.Purge()
	if err := o.files.Flush(); err != nil {
		return err
	}
	return o.lists.Flush()
}

// CacheStats reports counters per cache.
func (o *DiffOperations) CacheStats() map[string]diffcache.Stats {
	return map[string]diffcache.Stats{
		"files": o.files.Stats(),
		"lists": o.lists.Stats(),
	}
}

func (o *DiffOperations) Close() {
	o.files.Close()
	o.lists.Close()
}

// getFile serves a single-file request through the files cache. The
// result is a copy the caller may modify.
func (o *DiffOperations) getFile(key diffcache.Key, load func() (FileDiffOutput, error)) (FileDiffOutput, error) {
	out, err := o.files.Get(key, func() (FileDiffOutput, error) {
		out, err := load()
		var tooLarge *SizeLimitExceededError
		if errors.As(err, &tooLarge) {
			o.rejected.Add(key, tooLarge.Actual)
		}
		return out, err
	})
	if err != nil {
		return FileDiffOutput{}, o.cacheErr(key, err)
	}
	return out.Clone(), nil
}

func (o *DiffOperations) key(project string, oldCommit, newCommit object.Hash, parentNum int, path string, ws linediff.Whitespace) diffcache.Key {
	return diffcache.Key{
		Project:    project,
		OldCommit:  oldCommit,
		NewCommit:  newCommit,
		ParentNum:  parentNum,
		Path:       path,
		Whitespace: ws,
		SizeLimit:  o.cfg.Diff.MaxFileSizeBytes,
	}
}

func (o *DiffOperations) open(project string) (*repo.Repo, error) {
	r, err := o.repos.Open(project)
	if err != nil {
		if errors.Is(err, repo.ErrProjectNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return r, nil
}

// againstParent resolves the old side for a parent-relative comparison.
// The old commit id is always set: the parent, the auto-merge commit, or
// for a root commit the empty tree.
func (o *DiffOperations) againstParent(r *repo.Repo, newCommit object.Hash, parentNum int, ws linediff.Whitespace) (DiffRequest, *object.CommitObj, error) {
	c, err := readCommit(r, newCommit)
	if err != nil {
		return DiffRequest{}, nil, err
	}
	req := DiffRequest{NewCommit: newCommit, NewTree: c.TreeHash, Whitespace: ws}

	switch {
	case parentNum > 0:
		if parentNum > len(c.Parents) {
			return DiffRequest{}, nil, notFound("parent %d of %s (%d parents)", parentNum, newCommit.Short(), len(c.Parents))
		}
		req.Comparison = AgainstParent(parentNum)
		req.OldCommit = c.Parents[parentNum-1]
	case len(c.Parents) == 0:
		empty, err := r.EmptyTree()
		if err != nil {
			return DiffRequest{}, nil, fmt.Errorf("empty tree: %w", err)
		}
		req.Comparison = AgainstRoot()
		req.OldCommit = empty
		req.OldTree = empty
		return req, c, nil
	case len(c.Parents) == 1:
		req.Comparison = AgainstParent(1)
		req.OldCommit = c.Parents[0]
	default:
		id, err := o.autoMerge.Merge(r, newCommit)
		if err != nil {
			return DiffRequest{}, nil, err
		}
		req.Comparison = AgainstAutoMerge()
		req.OldCommit = id
	}

	oldC, err := readCommit(r, req.OldCommit)
	if err != nil {
		return DiffRequest{}, nil, err
	}
	req.OldTree = oldC.TreeHash
	return req, c, nil
}

func (o *DiffOperations) againstPatchSet(r *repo.Repo, oldCommit, newCommit object.Hash, ws linediff.Whitespace) (DiffRequest, *object.CommitObj, *object.CommitObj, error) {
	oldC, err := readCommit(r, oldCommit)
	if err != nil {
		return DiffRequest{}, nil, nil, err
	}
	newC, err := readCommit(r, newCommit)
	if err != nil {
		return DiffRequest{}, nil, nil, err
	}
	return DiffRequest{
		OldCommit:  oldCommit,
		NewCommit:  newCommit,
		OldTree:    oldC.TreeHash,
		NewTree:    newC.TreeHash,
		Comparison: AgainstOtherPatchSet(),
		Whitespace: ws,
	}, oldC, newC, nil
}

// computeFile serves one path; oldC is nil unless comparing two patch sets.
func (o *DiffOperations) computeFile(r *repo.Repo, req DiffRequest, newC, oldC *object.CommitObj, path string) (FileDiffOutput, error) {
	switch path {
	case CommitMsgPath, MergeListPath:
		if path == MergeListPath && !hasMergeList(newC, oldC) {
			return FileDiffOutput{}, notFound("path %q in %s: not a merge commit", path, req.NewCommit.Short())
		}
		oldContent, newContent, err := o.magicContent(r, req, path)
		if err != nil {
			return FileDiffOutput{}, err
		}
		return o.computer.ComputeMagic(req, path, oldContent, newContent)
	default:
		return o.computer.ComputeFile(r, req, path)
	}
}

func (o *DiffOperations) listAll(r *repo.Repo, req DiffRequest, newC, oldC *object.CommitObj) ([]FileDiffOutput, error) {
	paths := []string{CommitMsgPath}
	if hasMergeList(newC, oldC) {
		paths = append(paths, MergeListPath)
	}

	var outs []FileDiffOutput
	for _, p := range paths {
		oldContent, newContent, err := o.magicContent(r, req, p)
		if err != nil {
			return nil, err
		}
		outs = append(outs, magicOutput(req, p, oldContent, newContent))
	}

	if req.Comparison.IsAgainstOtherPatchSet() {
		rel := NewRelationAnalyzer(r, o.logger).Classify(req.OldCommit, req.NewCommit)
		o.logger.Debug("list modified files", "old", req.OldCommit, "new", req.NewCommit, "relation", rel)
		if rel == RelationIdentical {
			return outs, nil
		}
	}

	files, err := o.computer.ComputeAll(r, req)
	if err != nil {
		return nil, err
	}
	return append(outs, files...), nil
}

// magicContent renders a synthetic file for both sides. The old side is nil
// for comparisons against a parent or the auto-merge.
func (o *DiffOperations) magicContent(r *repo.Repo, req DiffRequest, path string) (*string, string, error) {
	synth := NewMagicFileSynthesizer(r)
	render := func(h object.Hash) (string, error) {
		var mf MagicFile
		var err error
		if path == CommitMsgPath {
			mf, err = synth.ForCommitMessage(h)
		} else {
			mf, err = synth.ForMergeList(h, req.Comparison)
		}
		return mf.FileContent(), err
	}

	newContent, err := render(req.NewCommit)
	if err != nil {
		return nil, "", err
	}
	if req.Comparison.IsAgainstParentOrAutoMerge() || req.Comparison.IsAgainstRoot() {
		return nil, newContent, nil
	}
	oldContent, err := render(req.OldCommit)
	if err != nil {
		return nil, "", err
	}
	return &oldContent, newContent, nil
}

func hasMergeList(newC, oldC *object.CommitObj) bool {
	return len(newC.Parents) > 1 || (oldC != nil && len(oldC.Parents) > 1)
}

func readCommit(r *repo.Repo, h object.Hash) (*object.CommitObj, error) {
	c, err := r.ReadCommit(h)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return nil, notFound("commit %s", h.Short())
		}
		return nil, fmt.Errorf("read commit %s: %w", h.Short(), err)
	}
	return c, nil
}

func checkArgs(commit object.Hash, parentNum int) error {
	if !object.IsFullHash(string(commit)) {
		return notFound("commit %q", commit)
	}
	if parentNum < 0 {
		return fmt.Errorf("parent number %d: must be >= 0", parentNum)
	}
	return nil
}

// cacheErr turns a cached rejection back into the *SizeLimitExceededError
// the first request got. Actual is SizeUnknown when the rejection was
// recorded by another process or has been evicted.
func (o *DiffOperations) cacheErr(key diffcache.Key, err error) error {
	if err == nil || !errors.Is(err, diffcache.ErrTombstoned) {
		return err
	}
	actual, ok := o.rejected.Get(key)
	if !ok {
		actual = SizeUnknown
	}
	return &SizeLimitExceededError{
		Path:      key.Path,
		Threshold: key.SizeLimit,
		Actual:    actual,
		cause:     err,
	}
}
