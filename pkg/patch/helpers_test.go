package patch

import (
	"testing"
	"time"

	"github.com/odvcencio/revdiff/pkg/config"
	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/repo"
)

const testProject = "demo"

var testIdent = object.NewIdentity("Test Author", "test@example.com", time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC))

// newTestProject creates project "demo" under a fresh manager.
func newTestProject(t *testing.T) (*repo.Manager, *repo.Repo) {
	t.Helper()
	m := repo.NewManager(t.TempDir())
	r, err := m.Create(testProject)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return m, r
}

func newTestRepo(t *testing.T) *repo.Repo {
	t.Helper()
	_, r := newTestProject(t)
	return r
}

func newTestOperations(t *testing.T, m *repo.Manager, cfg *config.Config) *DiffOperations {
	t.Helper()
	ops, err := NewDiffOperations(m, cfg, nil)
	if err != nil {
		t.Fatalf("NewDiffOperations: %v", err)
	}
	t.Cleanup(ops.Close)
	return ops
}

// writeTree stores files (path -> content) as a tree.
func writeTree(t *testing.T, r *repo.Repo, files map[string]string) object.Hash {
	t.Helper()
	var entries []repo.TreeFileEntry
	for p, content := range files {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(content)})
		if err != nil {
			t.Fatalf("WriteBlob(%s): %v", p, err)
		}
		entries = append(entries, repo.TreeFileEntry{Path: p, Mode: object.TreeModeFile, BlobHash: h})
	}
	tree, err := r.BuildTree(entries)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	return tree
}

func writeCommit(t *testing.T, r *repo.Repo, tree object.Hash, parents []object.Hash, message string) object.Hash {
	t.Helper()
	h, err := r.CommitTree(repo.CommitOptions{
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

// commitFiles writes files as a tree and commits it on parents.
func commitFiles(t *testing.T, r *repo.Repo, files map[string]string, message string, parents ...object.Hash) object.Hash {
	t.Helper()
	return writeCommit(t, r, writeTree(t, r, files), parents, message)
}

func emptyTree(t *testing.T, r *repo.Repo) object.Hash {
	t.Helper()
	tree, err := r.EmptyTree()
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	return tree
}
