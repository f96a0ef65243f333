package diffcache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/revdiff/pkg/linediff"
)

type result struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
}

type tooLarge struct{ size int64 }

func (e *tooLarge) Error() string  { return fmt.Sprintf("too large: %d", e.size) }
func (e *tooLarge) TooLarge() bool { return true }

func testKey(path string) Key {
	return Key{
		Project:    "demo",
		OldCommit:  "aaaa",
		NewCommit:  "bbbb",
		ParentNum:  1,
		Path:       path,
		Whitespace: linediff.WhitespaceNone,
		SizeLimit:  1000,
	}
}

func newTestCache(t *testing.T, dir string) *Cache[result] {
	t.Helper()
	c, err := New[result]("test", Options{MaxEntries: 16, Dir: dir})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestTombstoneRoundTrip(t *testing.T) {
	data, err := Marshal(TombstoneEntry[result]())
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"tombstone"}`, string(data))

	e, err := Unmarshal[result](data)
	require.NoError(t, err)
	require.True(t, e.IsTombstone())
	require.Equal(t, result{}, e.Value)
}

func TestValueRoundTrip(t *testing.T) {
	data, err := Marshal(ValueEntry(result{Path: "a.go", Lines: 3}))
	require.NoError(t, err)

	e, err := Unmarshal[result](data)
	require.NoError(t, err)
	require.False(t, e.IsTombstone())
	require.Equal(t, result{Path: "a.go", Lines: 3}, e.Value)
}

func TestUnmarshalUnknownKind(t *testing.T) {
	_, err := Unmarshal[result]([]byte(`{"kind":"ghost"}`))
	require.ErrorContains(t, err, "unknown kind")
}

func TestKeyStringDistinguishesFields(t *testing.T) {
	base := testKey("a.go")
	variants := []Key{base}
	k := base
	k.Whitespace = linediff.WhitespaceAll
	variants = append(variants, k)
	k = base
	k.SizeLimit = 0
	variants = append(variants, k)
	k = base
	k.ParentNum = 2
	variants = append(variants, k)
	k = base
	k.Path = AllFiles
	variants = append(variants, k)

	seen := map[string]bool{}
	for _, v := range variants {
		s := v.String()
		require.False(t, seen[s], "duplicate key string %s", s)
		seen[s] = true
	}
}

func TestGetLoadsOnce(t *testing.T) {
	c := newTestCache(t, "")
	var calls int
	load := func() (result, error) {
		calls++
		return result{Path: "a.go", Lines: 1}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Get(testKey("a.go"), load)
		require.NoError(t, err)
		require.Equal(t, "a.go", got.Path)
	}
	require.Equal(t, 1, calls)

	st := c.Stats()
	require.Equal(t, int64(2), st.Hits)
	require.Equal(t, int64(1), st.Misses)
	require.Equal(t, int64(1), st.Loads)
	require.Equal(t, 1, st.Entries)
}

func TestGetSharesConcurrentLoad(t *testing.T) {
	c := newTestCache(t, "")
	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (result, error) {
		calls.Add(1)
		<-release
		return result{Path: "big.go", Lines: 42}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = c.Get(testKey("big.go"), load)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 42, results[i].Lines)
	}
}

func TestTooLargeStoresTombstone(t *testing.T) {
	c := newTestCache(t, "")
	var calls int
	load := func() (result, error) {
		calls++
		return result{}, fmt.Errorf("compute: %w", &tooLarge{size: 1 << 30})
	}

	_, err := c.Get(testKey("huge.bin"), load)
	var tl *tooLarge
	require.ErrorAs(t, err, &tl)

	_, err = c.Get(testKey("huge.bin"), load)
	require.ErrorIs(t, err, ErrTombstoned)
	require.Equal(t, 1, calls)
	require.Equal(t, int64(1), c.Stats().Tombstones)

	e, ok := c.Peek(testKey("huge.bin"))
	require.True(t, ok)
	require.True(t, e.IsTombstone())
}

func TestOtherErrorsAreNotCached(t *testing.T) {
	c := newTestCache(t, "")
	boom := errors.New("object store unavailable")
	var calls int
	load := func() (result, error) {
		calls++
		if calls == 1 {
			return result{}, boom
		}
		return result{Path: "a.go"}, nil
	}

	_, err := c.Get(testKey("a.go"), load)
	require.ErrorIs(t, err, boom)

	got, err := c.Get(testKey("a.go"), load)
	require.NoError(t, err)
	require.Equal(t, "a.go", got.Path)
	require.Equal(t, 2, calls)
}

func TestDiskTierSurvivesNewCache(t *testing.T) {
	dir := t.TempDir()
	first := newTestCache(t, dir)
	_, err := first.Get(testKey("a.go"), func() (result, error) {
		return result{Path: "a.go", Lines: 7}, nil
	})
	require.NoError(t, err)
	_, err = first.Get(testKey("huge.bin"), func() (result, error) {
		return result{}, &tooLarge{size: 5000}
	})
	require.Error(t, err)

	second := newTestCache(t, dir)
	got, err := second.Get(testKey("a.go"), func() (result, error) {
		t.Fatal("loader called despite disk entry")
		return result{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, got.Lines)

	_, err = second.Get(testKey("huge.bin"), func() (result, error) {
		t.Fatal("loader called despite disk tombstone")
		return result{}, nil
	})
	require.ErrorIs(t, err, ErrTombstoned)
}

func TestFlush(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)
	var calls int
	load := func() (result, error) {
		calls++
		return result{Path: "a.go"}, nil
	}
	_, err := c.Get(testKey("a.go"), load)
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	require.Equal(t, 0, c.Stats().Entries)

	_, err = c.Get(testKey("a.go"), load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
