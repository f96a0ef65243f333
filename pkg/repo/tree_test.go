package repo

import (
	"reflect"
	"testing"

	"github.com/odvcencio/revdiff/pkg/object"
)

func TestBuildTreeFlattenRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	tree := writeTree(t, r, map[string]string{
		"a.go":         "package a\n",
		"a/x.go":       "package x\n",
		"a-b/y.go":     "package y\n",
		"docs/README":  "readme\n",
		"deep/1/2/3.c": "int x;\n",
	})

	files, err := r.FlattenTree(tree)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
		if f.Mode != object.TreeModeFile {
			t.Errorf("%s: mode = %q, want %q", f.Path, f.Mode, object.TreeModeFile)
		}
	}
	want := []string{"a-b/y.go", "a.go", "a/x.go", "deep/1/2/3.c", "docs/README"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	again := writeTree(t, r, map[string]string{
		"deep/1/2/3.c": "int x;\n",
		"docs/README":  "readme\n",
		"a-b/y.go":     "package y\n",
		"a/x.go":       "package x\n",
		"a.go":         "package a\n",
	})
	if again != tree {
		t.Fatalf("tree hash not deterministic: %s vs %s", again, tree)
	}
}

func TestBuildTree_RejectsBadPaths(t *testing.T) {
	r := newTestRepo(t)
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	for _, p := range []string{"", "/abs", "a/../b", "a//b", "tab\tname"} {
		if _, err := r.BuildTree([]TreeFileEntry{{Path: p, BlobHash: blob}}); err == nil {
			t.Errorf("BuildTree(%q): expected error", p)
		}
	}
	_, err = r.BuildTree([]TreeFileEntry{{Path: "a", BlobHash: blob}, {Path: "a/b", BlobHash: blob}})
	if err == nil {
		t.Error("expected file/directory collision error")
	}
}

func TestBuildTree_KeepsModes(t *testing.T) {
	r := newTestRepo(t)
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("#!/bin/sh\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	tree, err := r.BuildTree([]TreeFileEntry{
		{Path: "run.sh", Mode: object.TreeModeExecutable, BlobHash: blob},
		{Path: "link", Mode: object.TreeModeSymlink, BlobHash: blob},
		{Path: "plain", BlobHash: blob},
	})
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	m, err := r.FlattenTreeMap(tree)
	if err != nil {
		t.Fatalf("FlattenTreeMap: %v", err)
	}
	if m["run.sh"].Mode != object.TreeModeExecutable || m["link"].Mode != object.TreeModeSymlink || m["plain"].Mode != object.TreeModeFile {
		t.Fatalf("unexpected modes: %+v", m)
	}
}

func TestEntryAtPath(t *testing.T) {
	r := newTestRepo(t)
	tree := writeTree(t, r, map[string]string{"pkg/util/util.go": "package util\n", "main.go": "package main\n"})

	e, ok, err := r.EntryAtPath(tree, "pkg/util/util.go")
	if err != nil || !ok {
		t.Fatalf("EntryAtPath(util.go) = %v, %v", ok, err)
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "package util\n" {
		t.Fatalf("content = %q", blob.Data)
	}

	for _, p := range []string{"pkg/util", "pkg/missing.go", "main.go/x", "nope"} {
		if _, ok, err := r.EntryAtPath(tree, p); err != nil || ok {
			t.Errorf("EntryAtPath(%q) = %v, %v; want not found", p, ok, err)
		}
	}
}

func TestEmptyTree(t *testing.T) {
	r := newTestRepo(t)
	tree, err := r.EmptyTree()
	if err != nil {
		t.Fatalf("EmptyTree: %v", err)
	}
	files, err := r.FlattenTree(tree)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("empty tree has %d files", len(files))
	}
	built, err := r.BuildTree(nil)
	if err != nil {
		t.Fatalf("BuildTree(nil): %v", err)
	}
	if built != tree {
		t.Fatalf("BuildTree(nil) = %s, want empty tree %s", built, tree)
	}
}
