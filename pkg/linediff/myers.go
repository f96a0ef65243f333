package linediff

// Diff compares oldData and newData line by line, treating lines as equal
// when their whitespace-normalized forms under ws match. The result lists
// the changed regions in ascending order; identical inputs produce no edits.
//
// Under WhitespaceNone a last line without a terminating newline differs
// from the same text with one. The other modes treat the newline as
// whitespace.
func Diff(oldData, newData []byte, ws Whitespace) []Edit {
	return diffLines(SplitLines(oldData), SplitLines(newData), ws, missingNewline(oldData), missingNewline(newData))
}

// DiffLines is Diff over pre-split lines, all taken as newline-terminated.
func DiffLines(a, b []string, ws Whitespace) []Edit {
	return diffLines(a, b, ws, false, false)
}

func missingNewline(data []byte) bool {
	return len(data) > 0 && data[len(data)-1] != '\n'
}

func diffLines(a, b []string, ws Whitespace, aOpen, bOpen bool) []Edit {
	ids := make(map[string]int, len(a)+len(b))
	x := internLines(ids, a, ws, aOpen)
	y := internLines(ids, b, ws, bOpen)

	s := newMyersSolver(x, y)
	s.compare(0, len(x), 0, len(y))
	return s.edits()
}

// internLines maps each distinct comparison key to a small integer so the
// search compares ints instead of strings. open marks a last line with no
// terminating newline.
func internLines(ids map[string]int, lines []string, ws Whitespace, open bool) []int {
	out := make([]int, len(lines))
	for i, line := range lines {
		k := ws.key(line)
		if open && ws == WhitespaceNone && i == len(lines)-1 {
			// Split lines never contain '\n'.
			k += "\n"
		}
		id, ok := ids[k]
		if !ok {
			id = len(ids)
			ids[k] = id
		}
		out[i] = id
	}
	return out
}

// myersSolver finds a shortest edit script in linear space: each region is
// split at the middle snake of its optimal path and both halves are solved
// recursively. Running time is O((N+M)*D); memory is O(N+M).
type myersSolver struct {
	a, b     []int
	deleted  []bool // deleted[i]: a[i] is not part of the common subsequence
	inserted []bool // inserted[j]: b[j] is not part of the common subsequence
	vf, vb   []int
}

func newMyersSolver(a, b []int) *myersSolver {
	return &myersSolver{
		a:        a,
		b:        b,
		deleted:  make([]bool, len(a)),
		inserted: make([]bool, len(b)),
	}
}

func (s *myersSolver) compare(aLo, aHi, bLo, bHi int) {
	for aLo < aHi && bLo < bHi && s.a[aLo] == s.b[bLo] {
		aLo++
		bLo++
	}
	for aLo < aHi && bLo < bHi && s.a[aHi-1] == s.b[bHi-1] {
		aHi--
		bHi--
	}

	switch {
	case aLo == aHi:
		markRange(s.inserted, bLo, bHi)
	case bLo == bHi:
		markRange(s.deleted, aLo, aHi)
	default:
		x, y, ok := s.middleSnake(aLo, aHi, bLo, bHi)
		if !ok || (x == aLo && y == bLo) || (x == aHi && y == bHi) {
			markRange(s.deleted, aLo, aHi)
			markRange(s.inserted, bLo, bHi)
			return
		}
		s.compare(aLo, x, bLo, y)
		s.compare(x, aHi, y, bHi)
	}
}

func markRange(marks []bool, lo, hi int) {
	for i := lo; i < hi; i++ {
		marks[i] = true
	}
}

// middleSnake runs the forward and reverse searches over a[aLo:aHi] and
// b[bLo:bHi] until their paths overlap, and returns the overlap point. ok
// is false when the regions share no line.
func (s *myersSolver) middleSnake(aLo, aHi, bLo, bHi int) (x, y int, ok bool) {
	n, m := aHi-aLo, bHi-bLo
	maxD := (n + m + 1) / 2
	off := maxD
	vf := grow(&s.vf, 2*maxD+2)
	vb := grow(&s.vb, 2*maxD+2)
	vf[off+1], vb[off+1] = 0, 0

	delta := n - m
	// With an odd delta the forward path meets the reverse one; otherwise
	// the reverse path meets the forward one.
	front := delta%2 != 0
	fStart, fEnd, rStart, rEnd := 0, 0, 0, 0

	for d := 0; d < maxD; d++ {
		for k := -d + fStart; k <= d-fEnd; k += 2 {
			i := off + k
			var x1 int
			if k == -d || (k != d && vf[i-1] < vf[i+1]) {
				x1 = vf[i+1]
			} else {
				x1 = vf[i-1] + 1
			}
			y1 := x1 - k
			for x1 < n && y1 < m && s.a[aLo+x1] == s.b[bLo+y1] {
				x1++
				y1++
			}
			vf[i] = x1

			switch {
			case x1 > n:
				fEnd += 2
			case y1 > m:
				fStart += 2
			case front:
				j := off + delta - k
				if j >= 0 && j < len(vb) && vb[j] != -1 && x1 >= n-vb[j] {
					return aLo + x1, bLo + y1, true
				}
			}
		}

		for k := -d + rStart; k <= d-rEnd; k += 2 {
			i := off + k
			var x2 int
			if k == -d || (k != d && vb[i-1] < vb[i+1]) {
				x2 = vb[i+1]
			} else {
				x2 = vb[i-1] + 1
			}
			y2 := x2 - k
			for x2 < n && y2 < m && s.a[aHi-1-x2] == s.b[bHi-1-y2] {
				x2++
				y2++
			}
			vb[i] = x2

			switch {
			case x2 > n:
				rEnd += 2
			case y2 > m:
				rStart += 2
			case !front:
				j := off + delta - k
				if j >= 0 && j < len(vf) && vf[j] != -1 {
					x1 := vf[j]
					y1 := off + x1 - j
					if x1 >= n-x2 {
						return aLo + x1, bLo + y1, true
					}
				}
			}
		}
	}
	return 0, 0, false
}

// grow resizes *buf to n entries, all set to -1.
func grow(buf *[]int, n int) []int {
	if cap(*buf) < n {
		*buf = make([]int, n)
	}
	v := (*buf)[:n]
	for i := range v {
		v[i] = -1
	}
	return v
}

// edits folds runs of deleted and inserted lines into Edit regions.
func (s *myersSolver) edits() []Edit {
	var edits []Edit
	n, m := len(s.a), len(s.b)
	i, j := 0, 0
	for i < n || j < m {
		if i < n && j < m && !s.deleted[i] && !s.inserted[j] {
			i++
			j++
			continue
		}
		e := Edit{OldStart: i, NewStart: j}
		for i < n && s.deleted[i] {
			i++
		}
		for j < m && s.inserted[j] {
			j++
		}
		e.OldLen, e.NewLen = i-e.OldStart, j-e.NewStart
		if e.OldLen == 0 && e.NewLen == 0 {
			break
		}
		edits = append(edits, e)
	}
	return edits
}
