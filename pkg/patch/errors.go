package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a project, commit, parent or path cannot
	// be resolved.
	ErrNotFound = errors.New("not found")

	// ErrTooLarge matches both a fresh *SizeLimitExceededError and a cached
	// rejection of the same request.
	ErrTooLarge = errors.New("diff exceeds size limit")
)

// SizeUnknown is the Actual size of a rejection served from a tombstone
// whose size was not remembered.
const SizeUnknown int64 = -1

// SizeLimitExceededError reports a non-binary file whose new content is
// larger than the configured threshold. Sizes are in bytes. The same error
// is returned when the rejection comes from the diff cache; it then wraps
// diffcache.ErrTombstoned.
type SizeLimitExceededError struct {
	Path      string
	Threshold int64
	Actual    int64

	cause error
}

func (e *SizeLimitExceededError) Error() string {
	actual := "unknown"
	if e.Actual != SizeUnknown {
		actual = fmt.Sprintf("%d bytes", e.Actual)
	}
	return fmt.Sprintf(
		"file size for file %q exceeded the max file size threshold: threshold = %d bytes, actual size = %s",
		e.Path, e.Threshold, actual,
	)
}

func (e *SizeLimitExceededError) Is(target error) bool {
	return target == ErrTooLarge
}

func (e *SizeLimitExceededError) Unwrap() error { return e.cause }

// TooLarge marks the error for the diff cache, which stores a tombstone
// instead of retrying.
func (e *SizeLimitExceededError) TooLarge() bool { return true }

func notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
