package repo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/odvcencio/revdiff/pkg/object"
)

// EntryAtPath looks up one file in a tree, reading only the subtrees on
// its path. The boolean is false when relPath is absent, invalid, or names
// a directory.
func (r *Repo) EntryAtPath(treeHash object.Hash, relPath string) (TreeFileEntry, bool, error) {
	if validateTreePath(relPath) != nil {
		return TreeFileEntry{}, false, nil
	}

	dir, name := "", relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		dir, name = relPath[:i], relPath[i+1:]
	}

	current := treeHash
	if dir != "" {
		for _, part := range strings.Split(dir, "/") {
			e, ok, err := r.treeChild(current, part)
			if err != nil || !ok || !e.IsDir {
				return TreeFileEntry{}, false, err
			}
			current = e.Hash
		}
	}

	e, ok, err := r.treeChild(current, name)
	if err != nil || !ok || e.IsDir {
		return TreeFileEntry{}, false, err
	}
	return TreeFileEntry{Path: relPath, Mode: normalizeFileMode(e.Mode), BlobHash: e.Hash}, true, nil
}

// treeChild finds name among the entries of tree h.
func (r *Repo) treeChild(h object.Hash, name string) (object.TreeEntry, bool, error) {
	tr, err := r.Store.ReadTree(h)
	if err != nil {
		return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", h.Short(), err)
	}
	// Stored trees are sorted by name.
	i, found := slices.BinarySearchFunc(tr.Entries, name, func(e object.TreeEntry, name string) int {
		return strings.Compare(e.Name, name)
	})
	if !found {
		return object.TreeEntry{}, false, nil
	}
	return tr.Entries[i], true, nil
}
