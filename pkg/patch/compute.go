package patch

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/repo"
)

// binarySniffLen is how much of each side is searched for a NUL byte.
const binarySniffLen = 8000

const devNull = "/dev/null"

var emptyBlob = object.HashObject(object.TypeBlob, nil)

// DiffRequest names the two sides of a comparison. An empty tree hash is
// the empty tree.
type DiffRequest struct {
	OldCommit  object.Hash
	NewCommit  object.Hash
	OldTree    object.Hash
	NewTree    object.Hash
	Comparison ComparisonType
	Whitespace linediff.Whitespace
}

// DiffComputer turns tree entries and synthetic content into FileDiffOutput
// values.
type DiffComputer struct {
	validators Validators

	// MaxEditBytes bounds edit computation in ComputeAll. A file with
	// either side larger is listed with its sizes and EditsSkipped set.
	// Zero means unlimited.
	MaxEditBytes int64
}

// NewDiffComputer returns a computer that checks single-file results with
// validators.
func NewDiffComputer(validators ...Validator) *DiffComputer {
	return &DiffComputer{validators: validators}
}

type fileSide struct {
	path string
	mode string
	blob object.Hash
	data []byte
}

// content is the side's bytes; a missing side is empty.
func (s *fileSide) content() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

// ComputeFile diffs one path. A path missing on one side is ADDED or
// DELETED; a path missing on both is ErrNotFound; a path identical on both
// sides yields an output for which Empty reports true.
func (d *DiffComputer) ComputeFile(r *repo.Repo, req DiffRequest, path string) (FileDiffOutput, error) {
	oldE, oldOK, err := entryAt(r, req.OldTree, path)
	if err != nil {
		return FileDiffOutput{}, err
	}
	newE, newOK, err := entryAt(r, req.NewTree, path)
	if err != nil {
		return FileDiffOutput{}, err
	}

	switch {
	case !oldOK && !newOK:
		return FileDiffOutput{}, notFound("path %q in %s", path, req.NewCommit.Short())
	case oldOK && newOK && oldE.BlobHash == newE.BlobHash && oldE.Mode == newE.Mode:
		return FileDiffOutput{
			OldCommitID:    req.OldCommit,
			NewCommitID:    req.NewCommit,
			ComparisonType: req.Comparison,
			ChangeType:     ChangeModified,
			PatchType:      PatchUnified,
			OldPath:        strPtr(path),
			NewPath:        strPtr(path),
			OldMode:        strPtr(oldE.Mode),
			NewMode:        strPtr(newE.Mode),
		}, nil
	}

	var oldSide, newSide *fileSide
	if oldOK {
		if oldSide, err = loadSide(r, oldE); err != nil {
			return FileDiffOutput{}, err
		}
	}
	if newOK {
		if newSide, err = loadSide(r, newE); err != nil {
			return FileDiffOutput{}, err
		}
	}

	out := describe(req, oldSide, newSide, changeTypeOf(oldSide, newSide))
	if err := d.validators.Validate(out); err != nil {
		return FileDiffOutput{}, err
	}
	fillEdits(&out, oldSide.content(), newSide.content(), req.Whitespace)
	return out, nil
}

// ComputeAll diffs every path that differs between the two trees, sorted by
// path. Deleted and added paths with identical content are reported as one
// RENAMED output; an added path whose content matches a path that still
// exists unchanged is COPIED from it. Results are not validated; files
// over MaxEditBytes are listed without edits.
func (d *DiffComputer) ComputeAll(r *repo.Repo, req DiffRequest) ([]FileDiffOutput, error) {
	oldFiles, err := flattenOptional(r, req.OldTree)
	if err != nil {
		return nil, err
	}
	newFiles, err := flattenOptional(r, req.NewTree)
	if err != nil {
		return nil, err
	}

	var added, deleted, modified []string
	for p, ne := range newFiles {
		oe, ok := oldFiles[p]
		switch {
		case !ok:
			added = append(added, p)
		case oe.BlobHash != ne.BlobHash || oe.Mode != ne.Mode:
			modified = append(modified, p)
		}
	}
	for p := range oldFiles {
		if _, ok := newFiles[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(added)
	sort.Strings(deleted)
	sort.Strings(modified)

	sources := detectRenames(oldFiles, newFiles, added, deleted)
	renamedFrom := make(map[string]bool)
	for _, src := range sources {
		if !src.copy {
			renamedFrom[src.path] = true
		}
	}

	outputs := make([]FileDiffOutput, 0, len(added)+len(deleted)+len(modified))
	emit := func(oldE, newE *repo.TreeFileEntry, ct ChangeType) error {
		var oldSide, newSide *fileSide
		var err error
		if oldE != nil {
			if oldSide, err = loadSide(r, *oldE); err != nil {
				return err
			}
		}
		if newE != nil {
			if newSide, err = loadSide(r, *newE); err != nil {
				return err
			}
		}
		out := describe(req, oldSide, newSide, ct)
		if d.overEditLimit(oldSide, newSide) && out.PatchType != PatchBinary {
			out.EditsSkipped = true
			out.HeaderLines = gitHeader(out)
		} else {
			fillEdits(&out, oldSide.content(), newSide.content(), req.Whitespace)
		}
		outputs = append(outputs, out)
		return nil
	}

	for _, p := range modified {
		oe, ne := oldFiles[p], newFiles[p]
		if err := emit(&oe, &ne, ChangeModified); err != nil {
			return nil, err
		}
	}
	for _, p := range added {
		ne := newFiles[p]
		if src, ok := sources[p]; ok {
			oe := oldFiles[src.path]
			ct := ChangeRenamed
			if src.copy {
				ct = ChangeCopied
			}
			if err := emit(&oe, &ne, ct); err != nil {
				return nil, err
			}
			continue
		}
		if err := emit(nil, &ne, ChangeAdded); err != nil {
			return nil, err
		}
	}
	for _, p := range deleted {
		if renamedFrom[p] {
			continue
		}
		oe := oldFiles[p]
		if err := emit(&oe, nil, ChangeDeleted); err != nil {
			return nil, err
		}
	}

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Path() < outputs[j].Path() })
	return outputs, nil
}

// ComputeMagic diffs a synthetic file. oldContent is nil when the old side
// has no counterpart, which is the case for comparisons against a parent or
// the auto-merge: the whole file is then shown as added. The result is
// validated like a real file.
func (d *DiffComputer) ComputeMagic(req DiffRequest, path string, oldContent *string, newContent string) (FileDiffOutput, error) {
	out := magicOutput(req, path, oldContent, newContent)
	if err := d.validators.Validate(out); err != nil {
		return FileDiffOutput{}, err
	}
	return out, nil
}

func magicOutput(req DiffRequest, path string, oldContent *string, newContent string) FileDiffOutput {
	out := FileDiffOutput{
		OldCommitID:    req.OldCommit,
		NewCommitID:    req.NewCommit,
		ComparisonType: req.Comparison,
		ChangeType:     ChangeAdded,
		PatchType:      PatchUnified,
		NewPath:        strPtr(path),
		NewMode:        strPtr(object.TreeModeFile),
	}

	var oldData []byte
	header := []string{fmt.Sprintf("diff --git %s b/%s", devNull, path), "--- " + devNull}
	if oldContent != nil {
		oldData = []byte(*oldContent)
		out.ChangeType = ChangeModified
		out.OldPath = strPtr(path)
		out.OldMode = strPtr(object.TreeModeFile)
		header = []string{fmt.Sprintf("diff --git a/%s b/%s", path, path), "--- a/" + path}
	}
	out.HeaderLines = append(header, "+++ b/"+path)

	newData := []byte(newContent)
	out.Edits = linediff.Diff(oldData, newData, req.Whitespace)
	out.Size = int64(len(newData))
	out.SizeDelta = int64(len(newData) - len(oldData))
	return out
}

// describe fills in everything but the edits and header lines, which is
// all validators look at.
func describe(req DiffRequest, oldSide, newSide *fileSide, ct ChangeType) FileDiffOutput {
	out := FileDiffOutput{
		OldCommitID:    req.OldCommit,
		NewCommitID:    req.NewCommit,
		ComparisonType: req.Comparison,
		ChangeType:     ct,
		PatchType:      PatchUnified,
	}
	if oldSide != nil {
		out.OldPath = strPtr(oldSide.path)
		out.OldMode = strPtr(oldSide.mode)
	}
	if newSide != nil {
		out.NewPath = strPtr(newSide.path)
		out.NewMode = strPtr(newSide.mode)
	}
	oldData, newData := oldSide.content(), newSide.content()
	out.Size = int64(len(newData))
	out.SizeDelta = int64(len(newData) - len(oldData))
	if isBinary(oldData) || isBinary(newData) {
		out.PatchType = PatchBinary
	}
	return out
}

// fillEdits diffs a described output and renders its header.
func fillEdits(out *FileDiffOutput, oldData, newData []byte, ws linediff.Whitespace) {
	if out.PatchType != PatchBinary {
		out.Edits = linediff.Diff(oldData, newData, ws)
		if out.ChangeType == ChangeModified && isRewrite(out.Edits, oldData, newData) {
			out.ChangeType = ChangeRewrite
		}
	}
	out.HeaderLines = gitHeader(*out)
}

func (d *DiffComputer) overEditLimit(oldSide, newSide *fileSide) bool {
	if d.MaxEditBytes <= 0 {
		return false
	}
	return int64(len(oldSide.content())) > d.MaxEditBytes || int64(len(newSide.content())) > d.MaxEditBytes
}

// gitHeader renders the "diff --git" preamble of out.
func gitHeader(out FileDiffOutput) []string {
	oldPath, newPath := out.Path(), out.Path()
	if out.OldPath != nil {
		oldPath = *out.OldPath
	}
	if out.NewPath != nil {
		newPath = *out.NewPath
	}

	h := []string{fmt.Sprintf("diff --git a/%s b/%s", oldPath, newPath)}
	switch out.ChangeType {
	case ChangeAdded:
		h = append(h, "new file mode "+*out.NewMode)
	case ChangeDeleted:
		h = append(h, "deleted file mode "+*out.OldMode)
	default:
		if *out.OldMode != *out.NewMode {
			h = append(h, "old mode "+*out.OldMode, "new mode "+*out.NewMode)
		}
		switch out.ChangeType {
		case ChangeRenamed:
			h = append(h, "similarity index 100%", "rename from "+oldPath, "rename to "+newPath)
		case ChangeCopied:
			h = append(h, "similarity index 100%", "copy from "+oldPath, "copy to "+newPath)
		}
	}

	if out.PatchType == PatchBinary {
		return append(h, "Binary files differ")
	}
	if len(out.Edits) == 0 && !out.EditsSkipped {
		return h
	}
	oldName, newName := "a/"+oldPath, "b/"+newPath
	if out.ChangeType == ChangeAdded {
		oldName = devNull
	}
	if out.ChangeType == ChangeDeleted {
		newName = devNull
	}
	return append(h, "--- "+oldName, "+++ "+newName)
}

func changeTypeOf(oldSide, newSide *fileSide) ChangeType {
	switch {
	case oldSide == nil:
		return ChangeAdded
	case newSide == nil:
		return ChangeDeleted
	default:
		return ChangeModified
	}
}

// isBinary applies git's heuristic: a NUL byte near the start.
func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// isRewrite reports whether edits replace every line of both sides.
func isRewrite(edits []linediff.Edit, oldData, newData []byte) bool {
	if len(edits) != 1 || len(oldData) == 0 || len(newData) == 0 {
		return false
	}
	e := edits[0]
	return e.OldStart == 0 && e.OldLen == linediff.CountLines(oldData) &&
		e.NewStart == 0 && e.NewLen == linediff.CountLines(newData)
}

type renameSource struct {
	path string
	copy bool
}

// detectRenames pairs added paths with old paths of identical content.
// Deleted paths are preferred and consumed once; otherwise any old path
// kept unchanged in the new tree, content and mode, is a copy source.
// Empty files never pair.
func detectRenames(oldFiles, newFiles map[string]repo.TreeFileEntry, added, deleted []string) map[string]renameSource {
	if len(added) == 0 {
		return nil
	}
	deletedByBlob := make(map[object.Hash][]string)
	for _, p := range deleted {
		h := oldFiles[p].BlobHash
		deletedByBlob[h] = append(deletedByBlob[h], p)
	}

	keptByBlob := make(map[object.Hash]string)
	for p, oe := range oldFiles {
		ne, ok := newFiles[p]
		if !ok || ne.BlobHash != oe.BlobHash || ne.Mode != oe.Mode {
			continue
		}
		if cur, seen := keptByBlob[oe.BlobHash]; !seen || p < cur {
			keptByBlob[oe.BlobHash] = p
		}
	}

	sources := make(map[string]renameSource)
	for _, p := range added {
		h := newFiles[p].BlobHash
		if h == emptyBlob {
			continue
		}
		if cands := deletedByBlob[h]; len(cands) > 0 {
			sources[p] = renameSource{path: cands[0]}
			deletedByBlob[h] = cands[1:]
			continue
		}
		if src, ok := keptByBlob[h]; ok {
			sources[p] = renameSource{path: src, copy: true}
		}
	}
	return sources
}

func entryAt(r *repo.Repo, tree object.Hash, path string) (repo.TreeFileEntry, bool, error) {
	if tree == "" {
		return repo.TreeFileEntry{}, false, nil
	}
	e, ok, err := r.EntryAtPath(tree, path)
	if err != nil {
		return repo.TreeFileEntry{}, false, fmt.Errorf("lookup %q: %w", path, err)
	}
	return e, ok, nil
}

func flattenOptional(r *repo.Repo, tree object.Hash) (map[string]repo.TreeFileEntry, error) {
	if tree == "" {
		return map[string]repo.TreeFileEntry{}, nil
	}
	files, err := r.FlattenTreeMap(tree)
	if err != nil {
		return nil, fmt.Errorf("flatten tree %s: %w", tree.Short(), err)
	}
	return files, nil
}

func loadSide(r *repo.Repo, e repo.TreeFileEntry) (*fileSide, error) {
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		return nil, fmt.Errorf("read blob %s for %q: %w", e.BlobHash.Short(), e.Path, err)
	}
	return &fileSide{path: e.Path, mode: e.Mode, blob: e.BlobHash, data: blob.Data}, nil
}
