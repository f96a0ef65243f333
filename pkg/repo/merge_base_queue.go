package repo

import (
	"container/heap"

	"github.com/odvcencio/revdiff/pkg/object"
)

type queuedCommit struct {
	hash       object.Hash
	generation uint64
}

// before orders commits for a merge-base walk: higher generation first,
// then lower hash.
func (c queuedCommit) before(o queuedCommit) bool {
	if c.generation != o.generation {
		return c.generation > o.generation
	}
	return c.hash < o.hash
}

// generationQueue is a heap of commits ordered by before.
type generationQueue []queuedCommit

func (q generationQueue) Len() int           { return len(q) }
func (q generationQueue) Less(i, j int) bool { return q[i].before(q[j]) }
func (q generationQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *generationQueue) Push(x any)        { *q = append(*q, x.(queuedCommit)) }

func (q *generationQueue) Pop() any {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

func (q generationQueue) top() (queuedCommit, bool) {
	if len(q) == 0 {
		return queuedCommit{}, false
	}
	return q[0], true
}

// frontier is one side of a merge-base walk: every commit reached so far
// with its distance from the start, and a queue of those not yet expanded.
type frontier struct {
	queue generationQueue
	depth map[object.Hash]int
}

func newFrontier(start object.Hash, generation uint64) *frontier {
	return &frontier{
		queue: generationQueue{{hash: start, generation: generation}},
		depth: map[object.Hash]int{start: 0},
	}
}

func (f *frontier) reached(h object.Hash) bool {
	_, ok := f.depth[h]
	return ok
}

// add queues h unless it was reached before.
func (f *frontier) add(c queuedCommit, depth int) bool {
	if f.reached(c.hash) {
		return false
	}
	f.depth[c.hash] = depth
	heap.Push(&f.queue, c)
	return true
}

func (f *frontier) pop() queuedCommit {
	return heap.Pop(&f.queue).(queuedCommit)
}
