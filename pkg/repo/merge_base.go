package repo

import (
	"fmt"

	"github.com/odvcencio/revdiff/pkg/object"
)

const (
	maxMergeBaseBFSSteps = 1_000_000
	maxMergeBaseBFSDepth = 1_000_000
)

// These vars allow tests to tighten safety limits without affecting
// production defaults.
var (
	mergeBaseBFSStepsLimit = maxMergeBaseBFSSteps
	mergeBaseBFSDepthLimit = maxMergeBaseBFSDepth
)

type mergeBaseTraversalQueueItem struct {
	hash  object.Hash
	depth int
}

func mergeBaseTraversalLimits() (maxSteps int, maxDepth int) {
	maxSteps = normalizeMergeBaseTraversalLimit(mergeBaseBFSStepsLimit, maxMergeBaseBFSSteps)
	maxDepth = normalizeMergeBaseTraversalLimit(mergeBaseBFSDepthLimit, maxMergeBaseBFSDepth)

	return maxSteps, maxDepth
}

func normalizeMergeBaseTraversalLimit(limit, hardMax int) int {
	// Keep safety defaults as hard bounds; test hooks may only tighten.
	if limit <= 0 || limit > hardMax {
		return hardMax
	}
	return limit
}

func mergeBaseStepsLimitError(limit int) error {
	return fmt.Errorf("find merge base: traversal exceeded maximum steps (%d)", limit)
}

func mergeBaseDepthLimitError(limit int) error {
	return fmt.Errorf("find merge base: traversal exceeded maximum depth (%d)", limit)
}

// FindMergeBase finds the best common ancestor of two commits: the one with
// the highest generation number, ties broken by hash. It returns "" when the
// histories are disjoint. Generation numbers prune the walk, linear
// histories take a direct ancestor check, and results are memoized per pair.
func (r *Repo) FindMergeBase(a, b object.Hash) (object.Hash, error) {
	if a == "" || b == "" {
		return "", nil
	}
	if a == b {
		return a, nil
	}

	memo := r.memo
	if cached, ok := memo.mergeBase(a, b); ok {
		return cached.base, nil
	}

	genA, err := memo.generation(r, a)
	if err != nil {
		return "", err
	}
	genB, err := memo.generation(r, b)
	if err != nil {
		return "", err
	}

	// One side may already contain the other. The reverse check returns
	// at once when generations rule it out.
	older, newer := queuedCommit{a, genA}, queuedCommit{b, genB}
	if genA > genB {
		older, newer = newer, older
	}
	for _, pair := range [2][2]queuedCommit{{older, newer}, {newer, older}} {
		anc, desc := pair[0], pair[1]
		ok, err := r.isAncestorWithGeneration(memo, anc.hash, desc.hash, anc.generation, desc.generation)
		if err != nil {
			return "", err
		}
		if ok {
			memo.rememberMergeBase(a, b, anc.hash, true)
			return anc.hash, nil
		}
	}

	base, found, err := r.findMergeBaseWithPruning(memo, a, b, genA, genB)
	if err != nil {
		return "", err
	}
	memo.rememberMergeBase(a, b, base, found)
	return base, nil
}

// IsAncestor reports whether ancestor is reachable from descendant by
// following parent links. A commit is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == "" || descendant == "" {
		return false, nil
	}
	if ancestor == descendant {
		return true, nil
	}
	memo := r.memo
	if cached, ok := memo.mergeBase(ancestor, descendant); ok {
		return cached.found && cached.base == ancestor, nil
	}
	genA, err := memo.generation(r, ancestor)
	if err != nil {
		return false, err
	}
	genD, err := memo.generation(r, descendant)
	if err != nil {
		return false, err
	}
	return r.isAncestorWithGeneration(memo, ancestor, descendant, genA, genD)
}

func (r *Repo) isAncestorWithGeneration(memo *ancestryMemo, ancestor, descendant object.Hash, ancestorGeneration, descendantGeneration uint64) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	if ancestorGeneration > descendantGeneration {
		return false, nil
	}

	maxSteps, maxDepth := mergeBaseTraversalLimits()
	visited := map[object.Hash]struct{}{descendant: {}}
	queue := []mergeBaseTraversalQueueItem{{hash: descendant, depth: 0}}
	steps := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		steps++
		if steps > maxSteps {
			return false, mergeBaseStepsLimitError(maxSteps)
		}
		if item.depth > maxDepth {
			return false, mergeBaseDepthLimitError(maxDepth)
		}

		cur := item.hash
		if cur == ancestor {
			return true, nil
		}

		curGeneration, err := memo.generation(r, cur)
		if err != nil {
			return false, err
		}
		if curGeneration <= ancestorGeneration {
			continue
		}

		parents, err := memo.parents(r, cur)
		if err != nil {
			return false, err
		}
		for _, p := range parents {
			if p == "" {
				continue
			}
			if _, seen := visited[p]; seen {
				continue
			}
			parentGeneration, err := memo.generation(r, p)
			if err != nil {
				return false, err
			}
			if parentGeneration < ancestorGeneration {
				continue
			}
			childDepth := item.depth + 1
			if childDepth > maxDepth {
				return false, mergeBaseDepthLimitError(maxDepth)
			}
			visited[p] = struct{}{}
			queue = append(queue, mergeBaseTraversalQueueItem{hash: p, depth: childDepth})
		}
	}

	return false, nil
}

// findMergeBaseWithPruning walks back from both commits at once, always
// expanding the highest-generation commit of either side. The first commit
// reached from both sides is a candidate; the walk stops once neither queue
// can produce a higher one.
func (r *Repo) findMergeBaseWithPruning(memo *ancestryMemo, a, b object.Hash, genA, genB uint64) (object.Hash, bool, error) {
	maxSteps, maxDepth := mergeBaseTraversalLimits()
	sides := [2]*frontier{newFrontier(a, genA), newFrontier(b, genB)}

	var best queuedCommit
	found := false
	consider := func(c queuedCommit) {
		if !found || c.before(best) {
			best, found = c, true
		}
	}

	for steps := 1; ; steps++ {
		topA, okA := sides[0].queue.top()
		topB, okB := sides[1].queue.top()
		if !okA && !okB {
			break
		}
		if found && (!okA || topA.generation < best.generation) && (!okB || topB.generation < best.generation) {
			break
		}
		if steps > maxSteps {
			return "", false, mergeBaseStepsLimitError(maxSteps)
		}

		side := 0
		if !okA || (okB && topB.before(topA)) {
			side = 1
		}
		cur, other := sides[side], sides[1-side]

		item := cur.pop()
		if found && item.generation < best.generation {
			continue
		}
		depth := cur.depth[item.hash]
		if depth > maxDepth {
			return "", false, mergeBaseDepthLimitError(maxDepth)
		}
		if other.reached(item.hash) {
			consider(item)
		}

		parents, err := memo.parents(r, item.hash)
		if err != nil {
			return "", false, err
		}
		for _, p := range parents {
			if p == "" {
				continue
			}
			pg, err := memo.generation(r, p)
			if err != nil {
				return "", false, err
			}
			if found && pg < best.generation {
				continue
			}
			if depth+1 > maxDepth {
				return "", false, mergeBaseDepthLimitError(maxDepth)
			}
			parent := queuedCommit{hash: p, generation: pg}
			if cur.add(parent, depth+1) && other.reached(p) {
				consider(parent)
			}
		}
	}

	return best.hash, found, nil
}
