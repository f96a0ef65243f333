package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/revdiff/pkg/object"
)

func TestCommitTree_DefaultsCommitterToAuthor(t *testing.T) {
	r := newTestRepo(t)
	tree, err := r.EmptyTree()
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	h, err := r.CommitTree(CommitOptions{Tree: tree, Author: testIdent, Message: "m\n"})
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Committer != testIdent {
		t.Fatalf("committer = %+v, want %+v", c.Committer, testIdent)
	}
}

func TestCommitTree_RejectsMissingParent(t *testing.T) {
	r := newTestRepo(t)
	tree, err := r.EmptyTree()
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	_, err = r.CommitTree(CommitOptions{
		Tree:    tree,
		Parents: []object.Hash{object.HashBytes([]byte("missing"))},
		Author:  testIdent,
	})
	if err == nil {
		t.Fatal("expected error for missing parent")
	}
}

func TestLog_FirstParent(t *testing.T) {
	r := newTestRepo(t)
	chain := writeChain(t, r, "", 3, "c")

	entries, err := r.Log(chain[2], 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Log returned %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Hash != chain[2-i] {
			t.Errorf("entry %d = %s, want %s", i, e.Hash.Short(), chain[2-i].Short())
		}
	}

	limited, err := r.Log(chain[2], 2)
	if err != nil {
		t.Fatalf("Log(limit): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Log(limit 2) = %d entries", len(limited))
	}
}

func TestSnapshotDir(t *testing.T) {
	r := newTestRepo(t)
	src := t.TempDir()
	mustWrite := func(rel, content string, perm os.FileMode) {
		p := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), perm); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	mustWrite("main.go", "package main\n", 0o644)
	mustWrite("bin/run.sh", "#!/bin/sh\n", 0o755)
	mustWrite(".hidden/secret", "x\n", 0o644)

	tree, err := r.SnapshotDir(src)
	if err != nil {
		t.Fatalf("SnapshotDir: %v", err)
	}
	files, err := r.FlattenTreeMap(tree)
	if err != nil {
		t.Fatalf("FlattenTreeMap: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshot has %d files (%v), want 2", len(files), files)
	}
	if files["bin/run.sh"].Mode != object.TreeModeExecutable {
		t.Fatalf("run.sh mode = %q", files["bin/run.sh"].Mode)
	}
	if files["main.go"].Mode != object.TreeModeFile {
		t.Fatalf("main.go mode = %q", files["main.go"].Mode)
	}
}
