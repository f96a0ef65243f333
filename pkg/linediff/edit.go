package linediff

import "fmt"

// Edit describes one changed region between an old and a new text. Start
// positions are 0-based line indices; a zero length marks a pure insertion
// (OldLen == 0) or pure deletion (NewLen == 0).
type Edit struct {
	OldStart int `json:"old_start"`
	OldLen   int `json:"old_len"`
	NewStart int `json:"new_start"`
	NewLen   int `json:"new_len"`
}

// EditType classifies an Edit.
type EditType int

const (
	EditInsert EditType = iota
	EditDelete
	EditReplace
	EditEmpty
)

// Type reports what kind of change e is.
func (e Edit) Type() EditType {
	switch {
	case e.OldLen == 0 && e.NewLen == 0:
		return EditEmpty
	case e.OldLen == 0:
		return EditInsert
	case e.NewLen == 0:
		return EditDelete
	default:
		return EditReplace
	}
}

// OldEnd is the exclusive end of the old region.
func (e Edit) OldEnd() int { return e.OldStart + e.OldLen }

// NewEnd is the exclusive end of the new region.
func (e Edit) NewEnd() int { return e.NewStart + e.NewLen }

func (e Edit) String() string {
	return fmt.Sprintf("Edit[%d-%d,%d-%d]", e.OldStart, e.OldEnd(), e.NewStart, e.NewEnd())
}

// SplitLines splits data into lines. A trailing newline does not produce an
// extra empty element (matching standard text file conventions).
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

// CountLines returns the number of lines SplitLines would produce.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
