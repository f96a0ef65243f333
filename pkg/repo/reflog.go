package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/odvcencio/revdiff/pkg/object"
)

var zeroHash = object.Hash(strings.Repeat("0", 64))

// Every ref movement is recorded under this actor.
const (
	reflogName  = "revdiff"
	reflogEmail = "revdiff@localhost"
)

// ReflogEntry is one recorded ref movement.
type ReflogEntry struct {
	Ref     string
	OldHash object.Hash // "" when the ref was created
	NewHash object.Hash
	Who     object.Identity
	Reason  string
}

// Time is when the movement was recorded.
func (e ReflogEntry) Time() time.Time { return e.Who.Time() }

func (r *Repo) reflogPath(ref string) string {
	return filepath.Join(r.Dir, "logs", filepath.FromSlash(ref))
}

// appendReflog writes one line in git's reflog layout:
//
//	<old> <new> Name <email> <seconds> <zone>\t<reason>
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		reason = "update"
	}
	if oldHash == "" {
		oldHash = zeroHash
	}
	who := object.NewIdentity(reflogName, reflogEmail, time.Now())

	logPath := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog %s: mkdir: %w", ref, err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: open: %w", ref, err)
	}
	_, werr := fmt.Fprintf(f, "%s %s %s\t%s\n", oldHash, newHash, object.FormatIdentity(who), reason)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("reflog %s: write: %w", ref, werr)
	}
	if cerr != nil {
		return fmt.Errorf("reflog %s: close: %w", ref, cerr)
	}
	return nil
}

// ReadReflog returns up to limit entries for the full ref name, newest
// first. A limit of zero returns every entry. Malformed lines are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	if err := ValidateRefName(ref); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	f, err := os.Open(r.reflogPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog %s: %w", ref, err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if e, ok := parseReflogLine(ref, scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog %s: %w", ref, err)
	}

	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	head, reason, ok := strings.Cut(line, "\t")
	if !ok {
		return ReflogEntry{}, false
	}
	oldHash, rest, ok := strings.Cut(head, " ")
	if !ok {
		return ReflogEntry{}, false
	}
	newHash, ident, ok := strings.Cut(rest, " ")
	if !ok || !object.IsFullHash(oldHash) || !object.IsFullHash(newHash) {
		return ReflogEntry{}, false
	}
	who, err := object.ParseIdentity(ident)
	if err != nil {
		return ReflogEntry{}, false
	}
	e := ReflogEntry{
		Ref:     ref,
		OldHash: object.Hash(oldHash),
		NewHash: object.Hash(newHash),
		Who:     who,
		Reason:  reason,
	}
	if e.OldHash == zeroHash {
		e.OldHash = ""
	}
	return e, true
}
