package patch

import (
	"fmt"
	"strconv"
	"strings"
)

type comparisonKind int

const (
	kindUnset comparisonKind = iota
	kindParent
	kindAutoMerge
	kindRoot
	kindOtherPatchSet
)

// ComparisonType records what the old side of a diff is. Exactly one
// variant is active; the zero value is invalid.
type ComparisonType struct {
	kind      comparisonKind
	parentNum int
}

// AgainstParent compares against the commit's n-th parent (1-based).
// It panics if n < 1.
func AgainstParent(n int) ComparisonType {
	if n < 1 {
		panic(fmt.Sprintf("patch: parent number %d out of range", n))
	}
	return ComparisonType{kind: kindParent, parentNum: n}
}

// AgainstAutoMerge compares a merge commit against the trial merge of its
// parents.
func AgainstAutoMerge() ComparisonType { return ComparisonType{kind: kindAutoMerge} }

// AgainstRoot compares a root commit against the empty tree.
func AgainstRoot() ComparisonType { return ComparisonType{kind: kindRoot} }

// AgainstOtherPatchSet compares two arbitrary commits, typically two
// revisions of one change.
func AgainstOtherPatchSet() ComparisonType { return ComparisonType{kind: kindOtherPatchSet} }

func (c ComparisonType) IsAgainstParent() bool { return c.kind == kindParent }
func (c ComparisonType) IsAgainstAutoMerge() bool { return c.kind == kindAutoMerge }
func (c ComparisonType) IsAgainstRoot() bool { return c.kind == kindRoot }
func (c ComparisonType) IsAgainstOtherPatchSet() bool { return c.kind == kindOtherPatchSet }

// IsAgainstParentOrAutoMerge reports whether the old side is derived from
// the new commit itself rather than being an independent revision.
func (c ComparisonType) IsAgainstParentOrAutoMerge() bool {
	return c.kind == kindParent || c.kind == kindAutoMerge
}

// ParentNum returns the 1-based parent number for AgainstParent.
func (c ComparisonType) ParentNum() (int, bool) {
	if c.kind != kindParent {
		return 0, false
	}
	return c.parentNum, true
}

// IsZero reports whether c was never set.
func (c ComparisonType) IsZero() bool { return c.kind == kindUnset }

func (c ComparisonType) String() string {
	switch c.kind {
	case kindParent:
		return "parent:" + strconv.Itoa(c.parentNum)
	case kindAutoMerge:
		return "automerge"
	case kindRoot:
		return "root"
	case kindOtherPatchSet:
		return "patchset"
	default:
		return "unset"
	}
}

// ParseComparisonType is the inverse of String.
func ParseComparisonType(s string) (ComparisonType, error) {
	switch s {
	case "automerge":
		return AgainstAutoMerge(), nil
	case "root":
		return AgainstRoot(), nil
	case "patchset":
		return AgainstOtherPatchSet(), nil
	}
	if rest, ok := strings.CutPrefix(s, "parent:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return ComparisonType{}, fmt.Errorf("parse comparison type %q: bad parent number", s)
		}
		return AgainstParent(n), nil
	}
	return ComparisonType{}, fmt.Errorf("parse comparison type %q: unknown variant", s)
}

func (c ComparisonType) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("marshal comparison type: unset")
	}
	return []byte(c.String()), nil
}

func (c *ComparisonType) UnmarshalText(text []byte) error {
	parsed, err := ParseComparisonType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
