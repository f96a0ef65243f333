package repo

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
)

// File merge statuses reported by MergeTrees.
const (
	MergeStatusClean    = "clean"
	MergeStatusConflict = "conflict"
	MergeStatusAdded    = "added"
	MergeStatusDeleted  = "deleted"
)

// FileMergeReport records the merge outcome for a single file.
type FileMergeReport struct {
	Path          string
	Status        string
	ConflictCount int
}

// TreeMergeReport is the overall result of a tree-level merge.
type TreeMergeReport struct {
	Files          []FileMergeReport
	ConflictFiles  int
	TotalConflicts int
}

// HasConflicts reports whether any file conflicted.
func (m *TreeMergeReport) HasConflicts() bool { return m.ConflictFiles > 0 }

// MergeTrees merges the trees ours and theirs against base and writes the
// result to the store. base may be "" for unrelated histories, in which
// case both sides are merged against the empty tree.
//
// Conflicts never fail the merge: conflicting regions are written into the
// file content between markers named by labels, and a file deleted on one
// side but modified on the other keeps the modified content inside a
// conflict block. Errors come only from object store access.
func (r *Repo) MergeTrees(base, ours, theirs object.Hash, labels linediff.Labels) (object.Hash, *TreeMergeReport, error) {
	baseMap, err := r.flattenOptional(base)
	if err != nil {
		return "", nil, fmt.Errorf("merge trees: base: %w", err)
	}
	oursMap, err := r.FlattenTreeMap(ours)
	if err != nil {
		return "", nil, fmt.Errorf("merge trees: ours: %w", err)
	}
	theirsMap, err := r.FlattenTreeMap(theirs)
	if err != nil {
		return "", nil, fmt.Errorf("merge trees: theirs: %w", err)
	}

	report := &TreeMergeReport{}
	var merged []TreeFileEntry

	for _, path := range collectAllPaths(baseMap, oursMap, theirsMap) {
		b, inBase := baseMap[path]
		o, inOurs := oursMap[path]
		t, inTheirs := theirsMap[path]

		var (
			fr   FileMergeReport
			out  TreeFileEntry
			keep bool
		)
		switch {
		case inOurs && inTheirs:
			if !inBase {
				b = TreeFileEntry{}
			}
			fr, out, err = r.mergeFile(path, b, o, t, labels)
			if err != nil {
				return "", nil, fmt.Errorf("merge file %q: %w", path, err)
			}
			keep = true

		case inBase && inOurs && !inTheirs:
			fr, out, keep, err = r.mergeDeletion(path, b, o, labels, true)
			if err != nil {
				return "", nil, err
			}

		case inBase && !inOurs && inTheirs:
			fr, out, keep, err = r.mergeDeletion(path, b, t, labels, false)
			if err != nil {
				return "", nil, err
			}

		case !inBase && inOurs:
			fr = FileMergeReport{Path: path, Status: MergeStatusAdded}
			out, keep = o, true

		case !inBase && inTheirs:
			fr = FileMergeReport{Path: path, Status: MergeStatusAdded}
			out, keep = t, true

		default:
			fr = FileMergeReport{Path: path, Status: MergeStatusDeleted}
		}

		report.Files = append(report.Files, fr)
		if fr.Status == MergeStatusConflict {
			report.ConflictFiles++
			report.TotalConflicts += fr.ConflictCount
		}
		if keep {
			out.Path = path
			merged = append(merged, out)
		}
	}

	treeHash, err := r.BuildTree(merged)
	if err != nil {
		return "", nil, fmt.Errorf("merge trees: %w", err)
	}
	return treeHash, report, nil
}

func (r *Repo) flattenOptional(tree object.Hash) (map[string]TreeFileEntry, error) {
	if tree == "" {
		return map[string]TreeFileEntry{}, nil
	}
	return r.FlattenTreeMap(tree)
}

// mergeFile merges a path present on both sides. base is the zero entry
// when the path was added on both sides.
func (r *Repo) mergeFile(path string, base, ours, theirs TreeFileEntry, labels linediff.Labels) (FileMergeReport, TreeFileEntry, error) {
	clean := FileMergeReport{Path: path, Status: MergeStatusClean}

	if sameFile(ours, theirs) {
		return clean, ours, nil
	}
	if base.BlobHash != "" {
		if sameFile(ours, base) {
			return clean, theirs, nil
		}
		if sameFile(theirs, base) {
			return clean, ours, nil
		}
	}

	mode := ours.Mode
	if ours.Mode == base.Mode {
		mode = theirs.Mode
	}
	if ours.BlobHash == theirs.BlobHash {
		return clean, TreeFileEntry{Mode: mode, BlobHash: ours.BlobHash}, nil
	}

	var baseData []byte
	if base.BlobHash != "" {
		data, err := r.readBlobData(base.BlobHash)
		if err != nil {
			return FileMergeReport{}, TreeFileEntry{}, err
		}
		baseData = data
	}
	oursData, err := r.readBlobData(ours.BlobHash)
	if err != nil {
		return FileMergeReport{}, TreeFileEntry{}, err
	}
	theirsData, err := r.readBlobData(theirs.BlobHash)
	if err != nil {
		return FileMergeReport{}, TreeFileEntry{}, err
	}

	res := linediff.Merge3(baseData, oursData, theirsData, labels)
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: res.Merged})
	if err != nil {
		return FileMergeReport{}, TreeFileEntry{}, fmt.Errorf("write merged blob: %w", err)
	}

	fr := FileMergeReport{Path: path, Status: MergeStatusClean, ConflictCount: res.Conflicts}
	if res.HasConflicts() {
		fr.Status = MergeStatusConflict
	}
	return fr, TreeFileEntry{Mode: mode, BlobHash: blobHash}, nil
}

// mergeDeletion handles a path deleted on one side. survivor is the entry on
// the side that kept it; oursKept says which side that is.
func (r *Repo) mergeDeletion(path string, base, survivor TreeFileEntry, labels linediff.Labels, oursKept bool) (FileMergeReport, TreeFileEntry, bool, error) {
	if sameFile(survivor, base) {
		return FileMergeReport{Path: path, Status: MergeStatusDeleted}, TreeFileEntry{}, false, nil
	}

	// Delete-vs-modify is a conflict.
	data, err := r.readBlobData(survivor.BlobHash)
	if err != nil {
		return FileMergeReport{}, TreeFileEntry{}, false, fmt.Errorf("merge file %q: %w", path, err)
	}
	var content []byte
	if oursKept {
		content = renderFileConflict(data, nil, labels)
	} else {
		content = renderFileConflict(nil, data, labels)
	}
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return FileMergeReport{}, TreeFileEntry{}, false, fmt.Errorf("merge file %q: write blob: %w", path, err)
	}
	fr := FileMergeReport{Path: path, Status: MergeStatusConflict, ConflictCount: 1}
	return fr, TreeFileEntry{Mode: survivor.Mode, BlobHash: blobHash}, true, nil
}

func sameFile(a, b TreeFileEntry) bool {
	return a.BlobHash == b.BlobHash && normalizeFileMode(a.Mode) == normalizeFileMode(b.Mode)
}

func renderFileConflict(ours, theirs []byte, labels linediff.Labels) []byte {
	if labels.Ours == "" {
		labels.Ours = linediff.DefaultLabels.Ours
	}
	if labels.Theirs == "" {
		labels.Theirs = linediff.DefaultLabels.Theirs
	}
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< " + labels.Ours + "\n")
	buf.Write(ours)
	if len(ours) > 0 && ours[len(ours)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	buf.Write(theirs)
	if len(theirs) > 0 && theirs[len(theirs)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> " + labels.Theirs + "\n")
	return buf.Bytes()
}

// readBlobData reads a blob from the store and returns its raw data.
func (r *Repo) readBlobData(h object.Hash) ([]byte, error) {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return blob.Data, nil
}

// collectAllPaths returns a sorted, deduplicated list of all file paths
// across three file maps.
func collectAllPaths(base, ours, theirs map[string]TreeFileEntry) []string {
	seen := make(map[string]bool, len(ours)+len(theirs))
	for _, m := range []map[string]TreeFileEntry{base, ours, theirs} {
		for p := range m {
			seen[p] = true
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
