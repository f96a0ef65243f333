package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/revdiff/pkg/object"
)

const testDate = "2023-11-14T22:13:20Z"

func TestCLI_CommitListAndDiff(t *testing.T) {
	root := t.TempDir()
	mustRun(t, root, "init", "demo")

	first := commitDir(t, root, map[string]string{
		"a.txt": "one\ntwo\nthree\n",
	}, "first", "refs/heads/main")
	second := commitDir(t, root, map[string]string{
		"a.txt": "one\n2\nthree\n",
		"b.txt": "new\n",
	}, "second", "refs/heads/topic", "--parent", "main")

	files := mustRun(t, root, "--project", "demo", "files", "topic")
	lines := strings.Split(strings.TrimSuffix(files, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("files output has %d lines, want 3:\n%s", len(lines), files)
	}
	for i, want := range []string{"ADDED", "MODIFIED +1    -1    a.txt", "ADDED    +1    -0    b.txt"} {
		if !strings.HasPrefix(lines[i], want) {
			t.Fatalf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
	if !strings.HasSuffix(lines[0], "/COMMIT_MSG") {
		t.Fatalf("first listed file = %q, want /COMMIT_MSG", lines[0])
	}

	diff := mustRun(t, root, "--project", "demo", "diff", "topic", "a.txt")
	if !strings.HasPrefix(diff, "diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n") {
		t.Fatalf("diff header mismatch:\n%s", diff)
	}
	if !strings.HasSuffix(diff, "@@ -1,3 +1,3 @@\n one\n-two\n+2\n three\n") {
		t.Fatalf("diff hunk mismatch:\n%s", diff)
	}

	msg := mustRun(t, root, "--project", "demo", "diff", second.Short(), "/COMMIT_MSG")
	if !strings.Contains(msg, "+Parent:     "+first.Short()+" (first)\n") {
		t.Fatalf("commit message diff missing parent line:\n%s", msg)
	}
	if !strings.Contains(msg, "--- /dev/null\n") {
		t.Fatalf("commit message diff should add the file:\n%s", msg)
	}

	rel := mustRun(t, root, "--project", "demo", "relation", string(first), "topic")
	if rel != "LHS_PARENT_OF_RHS\n" {
		t.Fatalf("relation = %q", rel)
	}

	log := mustRun(t, root, "--project", "demo", "log", "--oneline", "topic")
	want := second.Short() + " second\n" + first.Short() + " first\n"
	if log != want {
		t.Fatalf("log = %q, want %q", log, want)
	}
}

func TestCLI_FilesAgainstBase(t *testing.T) {
	root := t.TempDir()
	mustRun(t, root, "init", "demo")
	commitDir(t, root, map[string]string{"a.txt": "x\n"}, "first", "refs/heads/main")
	commitDir(t, root, map[string]string{"a.txt": "y\n"}, "second", "refs/heads/topic", "--parent", "main")

	out := mustRun(t, root, "--project", "demo", "files", "topic", "--base", "main")
	if !strings.Contains(out, "MODIFIED") || !strings.Contains(out, "a.txt") {
		t.Fatalf("files against base:\n%s", out)
	}
	if !strings.Contains(out, "/COMMIT_MSG") {
		t.Fatalf("patch set listing should include /COMMIT_MSG:\n%s", out)
	}

	same := mustRun(t, root, "--project", "demo", "files", "topic", "--base", "topic")
	if same != "MODIFIED +0    -0    /COMMIT_MSG\n" {
		t.Fatalf("identical patch sets should list only an unchanged /COMMIT_MSG:\n%s", same)
	}
}

func TestCLI_MagicNumbered(t *testing.T) {
	root := t.TempDir()
	mustRun(t, root, "init", "demo")
	commitDir(t, root, map[string]string{"a.txt": "x\n"}, "subject\n\nbody", "refs/heads/main")

	out := mustRun(t, root, "--project", "demo", "magic", "--numbered", "main")
	if !strings.Contains(out, "   6* subject\n") {
		t.Fatalf("numbered magic output missing marked subject:\n%s", out)
	}
	if !strings.Contains(out, "   1  Author:") {
		t.Fatalf("numbered magic output missing header:\n%s", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	root := t.TempDir()
	mustRun(t, root, "init", "demo")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no project", []string{"files", "main"}, "no project given"},
		{"unknown project", []string{"--project", "nope", "files", "main"}, "nope"},
		{"unknown revision", []string{"--project", "demo", "files", "main"}, "unknown revision"},
		{"bad whitespace", []string{"--project", "demo", "files", "main", "-w", "sometimes"}, "whitespace"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, root, tc.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := parseIdentity("Jane Roe <jane@example.com>", mustTime(t))
	if err != nil {
		t.Fatalf("parseIdentity: %v", err)
	}
	if id.Name != "Jane Roe" || id.Email != "jane@example.com" {
		t.Fatalf("identity = %+v", id)
	}
	for _, bad := range []string{"Jane", "<jane@example.com>", "Jane <jane@example.com> extra"} {
		if _, err := parseIdentity(bad, mustTime(t)); err == nil {
			t.Fatalf("parseIdentity(%q): expected error", bad)
		}
	}
}

func mustTime(t *testing.T) time.Time {
	t.Helper()
	when, err := time.Parse(time.RFC3339, testDate)
	if err != nil {
		t.Fatalf("parse %s: %v", testDate, err)
	}
	return when
}

func commitDir(t *testing.T, root string, files map[string]string, msg, ref string, extra ...string) object.Hash {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	args := append([]string{"--project", "demo", "commit", dir, "-m", msg, "--date", testDate, "--ref", ref}, extra...)
	out := mustRun(t, root, args...)
	h := object.Hash(strings.TrimSpace(out))
	if !object.IsFullHash(string(h)) {
		t.Fatalf("commit printed %q, want a hash", out)
	}
	return h
}

func mustRun(t *testing.T, root string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, root, args...)
	if err != nil {
		t.Fatalf("revdiff %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--root", root}, args...))
	err := cmd.Execute()
	return out.String(), err
}
