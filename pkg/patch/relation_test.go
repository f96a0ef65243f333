package patch

import (
	"errors"
	"testing"

	"github.com/odvcencio/revdiff/pkg/object"
)

func TestClassify(t *testing.T) {
	r := newTestRepo(t)
	tree := emptyTree(t, r)

	root := writeCommit(t, r, tree, nil, "root\n")
	a := writeCommit(t, r, tree, []object.Hash{root}, "a\n")
	b := writeCommit(t, r, tree, []object.Hash{root}, "b\n")
	merge := writeCommit(t, r, tree, []object.Hash{a, b}, "merge\n")
	a2 := writeCommit(t, r, tree, []object.Hash{a}, "a2\n")
	b2 := writeCommit(t, r, tree, []object.Hash{b}, "b2\n")
	onA := writeCommit(t, r, tree, []object.Hash{a}, "on a\n")
	onA2 := writeCommit(t, r, tree, []object.Hash{a2}, "on a2\n")
	disjoint := writeCommit(t, r, tree, nil, "other root\n")

	tests := []struct {
		name     string
		old, new object.Hash
		want     RelationType
	}{
		{"identical", a, a, RelationIdentical},
		{"siblings", a, b, RelationSameParent},
		{"parent of child", root, a, RelationLHSParentOfRHS},
		{"child of parent", a, root, RelationRHSParentOfLHS},
		{"disjoint roots", a, disjoint, RelationOther},
		{"parent vs merge", a, merge, RelationMergeCommit},
		{"merge vs parent", merge, b, RelationMergeCommit},
		{"shared base", a2, b2, RelationCommonBase},
		{"old parent is ancestor", onA, onA2, RelationLHSParentAncestorOfRHSParent},
		{"new parent is ancestor", onA2, onA, RelationRHSParentAncestorOfLHSParent},
	}

	analyzer := NewRelationAnalyzer(r, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analyzer.Classify(tt.old, tt.new); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

// fakeHistory is an in-memory Ancestry.
type fakeHistory struct {
	commits map[object.Hash]*object.CommitObj
	fail    error
}

func (f *fakeHistory) ReadCommit(h object.Hash) (*object.CommitObj, error) {
	c, ok := f.commits[h]
	if !ok {
		return nil, object.ErrObjectNotFound
	}
	return c, nil
}

func (f *fakeHistory) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	for cur := descendant; ; {
		c, ok := f.commits[cur]
		if !ok || len(c.Parents) == 0 {
			return false, nil
		}
		cur = c.Parents[0]
		if cur == ancestor {
			return true, nil
		}
	}
}

func (f *fakeHistory) FindMergeBase(a, b object.Hash) (object.Hash, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return "", nil
}

func TestClassifyNeverFails(t *testing.T) {
	h := &fakeHistory{
		commits: map[object.Hash]*object.CommitObj{
			"p1": {},
			"p2": {},
			"c1": {Parents: []object.Hash{"p1"}},
			"c2": {Parents: []object.Hash{"p2"}},
		},
		fail: errors.New("traversal limit"),
	}
	analyzer := NewRelationAnalyzer(h, nil)

	if got := analyzer.Classify("c1", "missing"); got != RelationOther {
		t.Fatalf("Classify(unreadable) = %s, want OTHER", got)
	}
	if got := analyzer.Classify("c1", "c2"); got != RelationOther {
		t.Fatalf("Classify(failing ancestry) = %s, want OTHER", got)
	}
	if got := analyzer.Classify("missing", "missing"); got != RelationIdentical {
		t.Fatalf("Classify(equal ids) = %s, want IDENTICAL", got)
	}
}
