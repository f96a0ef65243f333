package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/revdiff/pkg/object"
)

var (
	ErrRefCASMismatch                  = errors.New("ref compare-and-swap mismatch")
	ErrRefNotFound                     = errors.New("ref not found")
	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")
)

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// ValidateRefName checks that name is a full ref name ("refs/...") that
// stays inside the refs directory and cannot collide with a lock file.
func ValidateRefName(name string) error {
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("ref %q: must start with refs/", name)
	}
	for _, part := range strings.Split(name, "/") {
		switch {
		case part == "", part == ".", part == "..":
			return fmt.Errorf("ref %q: invalid path element %q", name, part)
		case strings.HasSuffix(part, ".lock"):
			return fmt.Errorf("ref %q: element %q ends with .lock", name, part)
		case strings.ContainsAny(part, " \t\n\\:?*[~^"):
			return fmt.Errorf("ref %q: invalid character in %q", name, part)
		}
	}
	return nil
}

func (r *Repo) refPath(name string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(name))
}

// ReadRef returns the hash stored in the full ref name. A missing ref
// returns an error wrapping ErrRefNotFound.
func (r *Repo) ReadRef(name string) (object.Hash, error) {
	if err := ValidateRefName(name); err != nil {
		return "", fmt.Errorf("read ref: %w", err)
	}
	h, err := readRefHash(r.refPath(name))
	if err != nil {
		return "", fmt.Errorf("read ref %q: %w", name, err)
	}
	if h == "" {
		return "", fmt.Errorf("read ref %q: %w", name, ErrRefNotFound)
	}
	return h, nil
}

// ResolveRef resolves a ref name to an object hash. Names starting with
// "refs/" are read as given; anything else is tried as refs/heads/<name>
// and then refs/tags/<name>.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if strings.HasPrefix(name, "refs/") {
		return r.ReadRef(name)
	}
	for _, prefix := range []string{"refs/heads/", "refs/tags/"} {
		h, err := r.ReadRef(prefix + name)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, ErrRefNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("resolve ref %q: %w", name, ErrRefNotFound)
}

// UpdateRef unconditionally points name at h.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.updateRef(name, h, "update", false, "")
}

// UpdateRefCAS writes a hash to the named ref using lockfile + rename atomic
// semantics. If expectedOld is provided, the update only succeeds when the
// current ref hash matches it; an expectedOld of "" requires the ref to be
// absent.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	if len(expectedOld) == 1 {
		return r.updateRef(name, h, "update", true, expectedOld[0])
	}
	return r.updateRef(name, h, "update", false, "")
}

// CreateRef points a new ref at h, recording reason in the reflog. It fails
// with ErrRefCASMismatch when the ref already exists.
func (r *Repo) CreateRef(name string, h object.Hash, reason string) error {
	return r.updateRef(name, h, reason, true, "")
}

func (r *Repo) updateRef(name string, h object.Hash, reason string, hasExpectedOld bool, wantOldHash object.Hash) error {
	if err := ValidateRefName(name); err != nil {
		return fmt.Errorf("update ref: %w", err)
	}
	if !object.IsFullHash(string(h)) {
		return fmt.Errorf("update ref %q: invalid hash %q", name, h)
	}

	refPath := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			displayRefHash(wantOldHash),
			displayRefHash(oldHash),
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}
	return nil
}

func displayRefHash(h object.Hash) string {
	if h == "" {
		return "<absent>"
	}
	return string(h)
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash returns "" for a missing ref file.
func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

// ListRefs lists refs under refs/<prefix>, keyed by full ref name.
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	dir := filepath.Join(r.Dir, "refs")
	if p := strings.Trim(strings.TrimPrefix(prefix, "refs/"), "/"); p != "" {
		dir = filepath.Join(dir, filepath.FromSlash(p))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}
		rel, err := filepath.Rel(r.Dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}
