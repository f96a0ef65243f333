package repo

import (
	"errors"
	"fmt"

	"github.com/odvcencio/revdiff/pkg/object"
)

var (
	// ErrUnknownRevision is returned when an expression names nothing.
	ErrUnknownRevision = errors.New("unknown revision")
	// ErrAmbiguousRevision is returned when a hash prefix matches more
	// than one object.
	ErrAmbiguousRevision = errors.New("ambiguous revision")
)

// Resolve turns a revision expression into an object hash. Accepted forms,
// tried in order: a full hash of a stored object, a ref name (see
// ResolveRef), and a unique hash prefix of at least four characters.
func (r *Repo) Resolve(expr string) (object.Hash, error) {
	if object.IsFullHash(expr) {
		h := object.Hash(expr)
		if r.Store.Has(h) {
			return h, nil
		}
		return "", fmt.Errorf("resolve %q: %w", expr, ErrUnknownRevision)
	}

	h, err := r.ResolveRef(expr)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, ErrRefNotFound) && !object.IsHashPrefix(expr) {
		return "", fmt.Errorf("resolve %q: %w", expr, err)
	}

	if object.IsHashPrefix(expr) {
		matches, err := r.Store.HashesWithPrefix(expr)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", expr, err)
		}
		switch len(matches) {
		case 0:
		case 1:
			return matches[0], nil
		default:
			return "", fmt.Errorf("resolve %q: %w (%d objects)", expr, ErrAmbiguousRevision, len(matches))
		}
	}
	return "", fmt.Errorf("resolve %q: %w", expr, ErrUnknownRevision)
}

// ResolveCommit resolves expr and reads the commit it names.
func (r *Repo) ResolveCommit(expr string) (object.Hash, *object.CommitObj, error) {
	h, err := r.Resolve(expr)
	if err != nil {
		return "", nil, err
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %q: %w", expr, err)
	}
	return h, c, nil
}
