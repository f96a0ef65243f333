package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/revdiff/pkg/object"
)

// Repo is an opened repository: an object store plus refs and reflogs, all
// rooted in a single directory.
//
//	<dir>/objects/ab/cdef...   loose objects
//	<dir>/refs/...             one file per ref holding a hash
//	<dir>/logs/refs/...        reflog per ref
type Repo struct {
	Dir   string
	Store *object.Store

	memo *ancestryMemo
}

// Init creates a new repository at dir. It fails if dir already holds one.
func Init(dir string) (*Repo, error) {
	if isRepoDir(dir) {
		return nil, fmt.Errorf("init: repository already exists at %s", dir)
	}
	for _, d := range []string{
		filepath.Join(dir, "objects"),
		filepath.Join(dir, "refs", "heads"),
		filepath.Join(dir, "logs", "refs"),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}
	return newRepo(dir), nil
}

// Open opens the repository at dir.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}
	if !isRepoDir(abs) {
		return nil, fmt.Errorf("open: %s: %w", abs, ErrNotRepository)
	}
	return newRepo(abs), nil
}

func newRepo(dir string) *Repo {
	return &Repo{Dir: dir, Store: object.NewStore(dir), memo: newAncestryMemo()}
}

func isRepoDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "objects"))
	if err != nil || !info.IsDir() {
		return false
	}
	info, err = os.Stat(filepath.Join(dir, "refs"))
	return err == nil && info.IsDir()
}

// ReadCommit reads the commit h from the object store.
func (r *Repo) ReadCommit(h object.Hash) (*object.CommitObj, error) {
	return r.Store.ReadCommit(h)
}
