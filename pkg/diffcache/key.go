// Package diffcache memoizes diff results per request key, suppressing
// duplicate concurrent computations and remembering oversized results as
// tombstones.
package diffcache

import (
	"fmt"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
)

// AllFiles is the Path of a key that caches a whole listing.
const AllFiles = "all"

// Key identifies one cached result. It is comparable and used directly as
// the memory-tier map key.
type Key struct {
	Project   string
	OldCommit object.Hash
	NewCommit object.Hash
	ParentNum int
	Path      string
	// Whitespace and SizeLimit change the result, so they are part of the
	// identity.
	Whitespace linediff.Whitespace
	SizeLimit  int64
}

// String renders k unambiguously. It names the single-flight group and,
// hashed, the disk-tier file.
func (k Key) String() string {
	return fmt.Sprintf("%q old=%s new=%s parent=%d ws=%s limit=%d path=%q",
		k.Project, k.OldCommit, k.NewCommit, k.ParentNum, k.Whitespace, k.SizeLimit, k.Path)
}
