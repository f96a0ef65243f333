package patch

import (
	"fmt"
	"strings"

	"github.com/odvcencio/revdiff/pkg/object"
)

// Paths of the synthetic files listed next to real tree entries.
const (
	CommitMsgPath = "/COMMIT_MSG"
	MergeListPath = "/MERGE_LIST"
)

// IsMagicPath reports whether p names a synthetic file.
func IsMagicPath(p string) bool {
	return p == CommitMsgPath || p == MergeListPath
}

const identityDateLayout = "2006-01-02 15:04:05 -0700"

// MagicFile is the content of a synthetic file. GeneratedContent is derived
// from commit metadata; ModifiableContent is text the author controls (the
// commit message). Review comments address lines of the concatenation, so
// both parts are byte-stable.
type MagicFile struct {
	GeneratedContent  string
	ModifiableContent string
}

// FileContent returns the full text of the file.
func (m MagicFile) FileContent() string {
	return m.GeneratedContent + m.ModifiableContent
}

// StartLineOfModifiableContent is the 1-based line where ModifiableContent
// begins.
func (m MagicFile) StartLineOfModifiableContent() int {
	return 1 + strings.Count(m.GeneratedContent, "\n")
}

// MagicFileSynthesizer renders the commit-message and merge-list files.
type MagicFileSynthesizer struct {
	commits CommitReader
}

func NewMagicFileSynthesizer(commits CommitReader) *MagicFileSynthesizer {
	return &MagicFileSynthesizer{commits: commits}
}

// ForCommitMessage renders the commit-message file of commit h:
//
//	Merge Of:   <abbrev> (<subject>)     one line per parent of a merge
//	            <abbrev> (<subject>)
//	Parent:     <abbrev> (<subject>)     single-parent commits
//	Author:     <name> <<email>>
//	AuthorDate: 2006-01-02 15:04:05 -0700
//	Commit:     <name> <<email>>
//	CommitDate: 2006-01-02 15:04:05 -0700
//	<blank line>
//	<commit message>
//
// Everything up to and including the blank line is generated content; the
// message, newline-terminated, is the modifiable content.
func (s *MagicFileSynthesizer) ForCommitMessage(h object.Hash) (MagicFile, error) {
	c, err := s.readCommit(h)
	if err != nil {
		return MagicFile{}, err
	}

	var b strings.Builder
	switch {
	case len(c.Parents) > 1:
		for i, p := range c.Parents {
			line, err := s.parentLine(p)
			if err != nil {
				return MagicFile{}, err
			}
			label := ""
			if i == 0 {
				label = "Merge Of:"
			}
			writeHeader(&b, label, line)
		}
	case len(c.Parents) == 1:
		line, err := s.parentLine(c.Parents[0])
		if err != nil {
			return MagicFile{}, err
		}
		writeHeader(&b, "Parent:", line)
	}
	writeHeader(&b, "Author:", c.Author.String())
	writeHeader(&b, "AuthorDate:", formatIdentityDate(c.Author))
	writeHeader(&b, "Commit:", c.Committer.String())
	writeHeader(&b, "CommitDate:", formatIdentityDate(c.Committer))
	b.WriteByte('\n')

	return MagicFile{
		GeneratedContent:  b.String(),
		ModifiableContent: ensureTrailingNewline(c.Message),
	}, nil
}

// ForMergeList renders the merge-list file of commit h: the parents other
// than the one compared against, which are the commits the merge brings
// in. Non-merge commits have an empty merge list. Comparisons that do not
// name a parent use parent 1.
func (s *MagicFileSynthesizer) ForMergeList(h object.Hash, cmp ComparisonType) (MagicFile, error) {
	c, err := s.readCommit(h)
	if err != nil {
		return MagicFile{}, err
	}
	if len(c.Parents) < 2 {
		return MagicFile{}, nil
	}

	base := 1
	if n, ok := cmp.ParentNum(); ok {
		base = n
	}
	if base > len(c.Parents) {
		return MagicFile{}, notFound("merge list of %s: parent %d of %d", h.Short(), base, len(c.Parents))
	}

	var b strings.Builder
	b.WriteString("Merge List:\n\n")
	for i, p := range c.Parents {
		if i+1 == base {
			continue
		}
		pc, err := s.readCommit(p)
		if err != nil {
			return MagicFile{}, err
		}
		fmt.Fprintf(&b, "* %s %s\n", p.Short(), ShortMessage(pc.Message))
	}
	return MagicFile{GeneratedContent: b.String()}, nil
}

func (s *MagicFileSynthesizer) readCommit(h object.Hash) (*object.CommitObj, error) {
	c, err := s.commits.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", h.Short(), err)
	}
	return c, nil
}

func (s *MagicFileSynthesizer) parentLine(p object.Hash) (string, error) {
	pc, err := s.readCommit(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", p.Short(), ShortMessage(pc.Message)), nil
}

// writeHeader writes one "Label:     value" line with the value at column 12.
func writeHeader(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-12s%s\n", label, value)
}

func formatIdentityDate(id object.Identity) string {
	return id.Time().Format(identityDateLayout)
}

// ShortMessage returns the first paragraph of a commit message with its
// line breaks folded into spaces.
func ShortMessage(msg string) string {
	if i := strings.Index(msg, "\n\n"); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	return strings.ReplaceAll(msg, "\n", " ")
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
