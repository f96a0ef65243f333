package linediff

import (
	"fmt"
	"strings"
	"unicode"
)

// Whitespace selects which whitespace differences a diff ignores.
type Whitespace int

const (
	WhitespaceNone     Whitespace = iota // Compare lines byte for byte.
	WhitespaceTrailing                   // Ignore whitespace at the end of a line.
	WhitespaceChange                     // Treat any run of whitespace as one space.
	WhitespaceAll                        // Ignore all whitespace.
)

var whitespaceNames = map[Whitespace]string{
	WhitespaceNone:     "none",
	WhitespaceTrailing: "trailing",
	WhitespaceChange:   "change",
	WhitespaceAll:      "all",
}

func (w Whitespace) String() string {
	if name, ok := whitespaceNames[w]; ok {
		return name
	}
	return fmt.Sprintf("whitespace(%d)", int(w))
}

// ParseWhitespace maps a configuration value onto a Whitespace mode. The
// empty string selects WhitespaceNone.
func ParseWhitespace(s string) (Whitespace, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return WhitespaceNone, nil
	}
	for w, name := range whitespaceNames {
		if name == s {
			return w, nil
		}
	}
	return WhitespaceNone, fmt.Errorf("unknown whitespace mode %q (want none, trailing, change or all)", s)
}

// MarshalText lets Whitespace appear in TOML and JSON as its name.
func (w Whitespace) MarshalText() ([]byte, error) {
	if _, ok := whitespaceNames[w]; !ok {
		return nil, fmt.Errorf("unknown whitespace mode %d", int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (w *Whitespace) UnmarshalText(text []byte) error {
	parsed, err := ParseWhitespace(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// key returns the comparison key for line under mode w.
func (w Whitespace) key(line string) string {
	switch w {
	case WhitespaceTrailing:
		return strings.TrimRightFunc(line, unicode.IsSpace)
	case WhitespaceChange:
		return collapseSpace(strings.TrimRightFunc(line, unicode.IsSpace))
	case WhitespaceAll:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, line)
	default:
		return line
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
