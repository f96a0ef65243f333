package linediff

import "bytes"

// Labels name the two sides in conflict markers.
type Labels struct {
	Ours   string
	Theirs string
}

// DefaultLabels is used when Merge3 is given empty labels.
var DefaultLabels = Labels{Ours: "ours", Theirs: "theirs"}

// MergeResult holds the outcome of a three-way merge.
type MergeResult struct {
	Merged    []byte // Full merged content, with conflict markers if Conflicts > 0.
	Conflicts int    // Number of conflicting regions.
}

// HasConflicts reports whether any region conflicted.
func (r MergeResult) HasConflicts() bool { return r.Conflicts > 0 }

// Merge3 performs a line-level three-way merge of ours and theirs against
// base.
//
// Both sides are diffed against base. Edits from either side whose base
// ranges overlap or touch are grouped into one region; a region changed by
// only one side takes that side's lines, a region both sides changed
// identically is taken once, and anything else becomes a conflict block:
//
//	<<<<<<< ours
//	...
//	=======
//	...
//	>>>>>>> theirs
//
// Merged output is always newline-terminated.
func Merge3(base, ours, theirs []byte, labels Labels) MergeResult {
	if labels.Ours == "" {
		labels.Ours = DefaultLabels.Ours
	}
	if labels.Theirs == "" {
		labels.Theirs = DefaultLabels.Theirs
	}

	baseLines := SplitLines(base)
	oursLines := SplitLines(ours)
	theirsLines := SplitLines(theirs)

	oe := DiffLines(baseLines, oursLines, WhitespaceNone)
	te := DiffLines(baseLines, theirsLines, WhitespaceNone)

	var (
		buf    bytes.Buffer
		result MergeResult
		pos    int // next unconsumed base line
		oi, ti int // next unconsumed edit on each side
		oDelta int // ours index minus base index before oe[oi]
		tDelta int
	)

	for oi < len(oe) || ti < len(te) {
		start := nextStart(oe, oi, te, ti)
		end := start
		oFirst, tFirst := oi, ti

		// Grow the region until no edit from either side starts inside it.
		for {
			grew := false
			for oi < len(oe) && oe[oi].OldStart <= end {
				end = maxInt(end, oe[oi].OldEnd())
				oi++
				grew = true
			}
			for ti < len(te) && te[ti].OldStart <= end {
				end = maxInt(end, te[ti].OldEnd())
				ti++
				grew = true
			}
			if !grew {
				break
			}
		}

		writeLines(&buf, baseLines[pos:start])

		oRegion, oNext := sideRegion(oursLines, oe[oFirst:oi], start, end, oDelta)
		tRegion, tNext := sideRegion(theirsLines, te[tFirst:ti], start, end, tDelta)
		oChanged := oi > oFirst
		tChanged := ti > tFirst

		switch {
		case oChanged && !tChanged:
			writeLines(&buf, oRegion)
		case tChanged && !oChanged:
			writeLines(&buf, tRegion)
		case linesEqual(oRegion, tRegion):
			writeLines(&buf, oRegion)
		default:
			result.Conflicts++
			writeConflict(&buf, labels, oRegion, tRegion)
		}

		oDelta, tDelta = oNext, tNext
		pos = end
	}
	writeLines(&buf, baseLines[pos:])

	result.Merged = buf.Bytes()
	return result
}

func nextStart(oe []Edit, oi int, te []Edit, ti int) int {
	switch {
	case oi >= len(oe):
		return te[ti].OldStart
	case ti >= len(te):
		return oe[oi].OldStart
	default:
		return minInt(oe[oi].OldStart, te[ti].OldStart)
	}
}

// sideRegion returns the lines one side holds for base range [start, end)
// and that side's index delta after the region.
func sideRegion(lines []string, edits []Edit, start, end, delta int) ([]string, int) {
	after := delta
	for _, e := range edits {
		after += e.NewLen - e.OldLen
	}
	return lines[start+delta : end+after], after
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func writeConflict(buf *bytes.Buffer, labels Labels, oursLines, theirsLines []string) {
	buf.WriteString("<<<<<<< " + labels.Ours + "\n")
	writeLines(buf, oursLines)
	buf.WriteString("=======\n")
	writeLines(buf, theirsLines)
	buf.WriteString(">>>>>>> " + labels.Theirs + "\n")
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
