package repo

import (
	"fmt"
	"testing"

	"github.com/odvcencio/revdiff/pkg/object"
)

var testIdent = object.Identity{
	Name:     "Test Author",
	Email:    "test@example.com",
	When:     1_700_000_000,
	Timezone: "+0000",
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

// writeTree stores files (path -> content) as a tree.
func writeTree(t *testing.T, r *Repo, files map[string]string) object.Hash {
	t.Helper()
	var entries []TreeFileEntry
	for p, content := range files {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(content)})
		if err != nil {
			t.Fatalf("WriteBlob(%s): %v", p, err)
		}
		entries = append(entries, TreeFileEntry{Path: p, Mode: object.TreeModeFile, BlobHash: h})
	}
	tree, err := r.BuildTree(entries)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	return tree
}

func writeCommit(t *testing.T, r *Repo, tree object.Hash, parents []object.Hash, message string) object.Hash {
	t.Helper()
	h, err := r.CommitTree(CommitOptions{
		Tree:    tree,
		Parents: parents,
		Author:  testIdent,
		Message: message,
	})
	if err != nil {
		t.Fatalf("CommitTree(%q): %v", message, err)
	}
	return h
}

// writeChain writes n single-parent commits on top of parent ("" for a new
// root) and returns them oldest first.
func writeChain(t *testing.T, r *Repo, parent object.Hash, n int, label string) []object.Hash {
	t.Helper()
	tree, err := r.EmptyTree()
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	var out []object.Hash
	for i := 0; i < n; i++ {
		var parents []object.Hash
		if parent != "" {
			parents = []object.Hash{parent}
		}
		parent = writeCommit(t, r, tree, parents, fmt.Sprintf("%s-%d\n", label, i))
		out = append(out, parent)
	}
	return out
}
