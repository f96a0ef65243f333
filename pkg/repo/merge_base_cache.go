package repo

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/odvcencio/revdiff/pkg/object"
)

// ancestryMemoSize bounds each table of an ancestryMemo. Commits are
// immutable, so an evicted entry is recomputed, never stale.
const ancestryMemoSize = 1 << 16

// commitPair is an unordered pair of commits.
type commitPair struct {
	lo, hi object.Hash
}

func pairOf(a, b object.Hash) commitPair {
	if a <= b {
		return commitPair{lo: a, hi: b}
	}
	return commitPair{lo: b, hi: a}
}

type mergeBaseResult struct {
	base  object.Hash
	found bool
}

// ancestryMemo remembers what ancestry queries learn about the commit
// graph. One memo is shared by every caller of a Repo.
type ancestryMemo struct {
	parentLists *lru.Cache[object.Hash, []object.Hash]
	generations *lru.Cache[object.Hash, uint64]
	mergeBases  *lru.Cache[commitPair, mergeBaseResult]
}

func newAncestryMemo() *ancestryMemo {
	return &ancestryMemo{
		parentLists: newLRU[object.Hash, []object.Hash](ancestryMemoSize),
		generations: newLRU[object.Hash, uint64](ancestryMemoSize),
		mergeBases:  newLRU[commitPair, mergeBaseResult](ancestryMemoSize),
	}
}

func newLRU[K comparable, V any](size int) *lru.Cache[K, V] {
	c, err := lru.New[K, V](size)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	return c
}

func (m *ancestryMemo) mergeBase(a, b object.Hash) (mergeBaseResult, bool) {
	return m.mergeBases.Get(pairOf(a, b))
}

func (m *ancestryMemo) rememberMergeBase(a, b, base object.Hash, found bool) {
	m.mergeBases.Add(pairOf(a, b), mergeBaseResult{base: base, found: found})
}

// parents returns the parent list of commit h.
func (m *ancestryMemo) parents(r *Repo, h object.Hash) ([]object.Hash, error) {
	if ps, ok := m.parentLists.Get(h); ok {
		return ps, nil
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("ancestry: read commit %s: %w", h, err)
	}
	m.parentLists.Add(h, c.Parents)
	return c.Parents, nil
}

// generation is 1 for a root commit and one more than the highest parent
// generation otherwise. The walk is iterative so long linear histories do
// not grow the goroutine stack.
func (m *ancestryMemo) generation(r *Repo, h object.Hash) (uint64, error) {
	if h == "" {
		return 0, nil
	}
	if g, ok := m.generations.Get(h); ok {
		return g, nil
	}

	type frame struct {
		hash    object.Hash
		parents []object.Hash
		next    int
		highest uint64
	}
	onStack := make(map[object.Hash]bool)
	var stack []*frame
	push := func(c object.Hash) error {
		ps, err := m.parents(r, c)
		if err != nil {
			return err
		}
		onStack[c] = true
		stack = append(stack, &frame{hash: c, parents: ps})
		return nil
	}

	if err := push(h); err != nil {
		return 0, err
	}
	for {
		top := stack[len(stack)-1]
		if top.next < len(top.parents) {
			p := top.parents[top.next]
			top.next++
			if p == "" {
				continue
			}
			if g, ok := m.generations.Get(p); ok {
				top.highest = max(top.highest, g)
				continue
			}
			if onStack[p] {
				return 0, fmt.Errorf("ancestry: commit graph cycle detected at %s", p)
			}
			if err := push(p); err != nil {
				return 0, err
			}
			continue
		}

		g := top.highest + 1
		m.generations.Add(top.hash, g)
		delete(onStack, top.hash)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return g, nil
		}
		below := stack[len(stack)-1]
		below.highest = max(below.highest, g)
	}
}
