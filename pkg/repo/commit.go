package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/revdiff/pkg/object"
)

// CommitOptions describes a commit to create with CommitTree.
type CommitOptions struct {
	Tree      object.Hash
	Parents   []object.Hash
	Author    object.Identity
	Committer object.Identity // defaults to Author
	Message   string
}

// CommitTree writes a commit object. Parents must already be stored.
func (r *Repo) CommitTree(opts CommitOptions) (object.Hash, error) {
	if opts.Tree == "" {
		return "", fmt.Errorf("commit: missing tree")
	}
	if _, err := r.Store.ReadTree(opts.Tree); err != nil {
		return "", fmt.Errorf("commit: tree %s: %w", opts.Tree, err)
	}
	for _, p := range opts.Parents {
		if _, err := r.Store.ReadCommit(p); err != nil {
			return "", fmt.Errorf("commit: parent %s: %w", p, err)
		}
	}
	committer := opts.Committer
	if committer.Name == "" && committer.Email == "" {
		committer = opts.Author
	}

	h, err := r.Store.WriteCommit(&object.CommitObj{
		TreeHash:  opts.Tree,
		Parents:   opts.Parents,
		Author:    opts.Author,
		Committer: committer,
		Message:   opts.Message,
	})
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}
	return h, nil
}

// SnapshotDir stores every regular file and symlink under dir as blobs and
// returns the tree that holds them. Dot-directories are skipped.
func (r *Repo) SnapshotDir(dir string) (object.Hash, error) {
	var files []TreeFileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		var data []byte
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			data = []byte(target)
		case info.Mode().IsRegular():
			data, err = os.ReadFile(path)
			if err != nil {
				return err
			}
		default:
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: data})
		if err != nil {
			return err
		}
		files = append(files, TreeFileEntry{
			Path:     filepath.ToSlash(rel),
			Mode:     modeFromFileInfo(info),
			BlobHash: blobHash,
		})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", dir, err)
	}
	return r.BuildTree(files)
}

// LogEntry is one commit in a Log walk.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits newest first. A limit
// of zero walks to the root.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for current != "" && (limit <= 0 || len(entries) < limit) {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) && len(entries) > 0 {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return entries, nil
}
