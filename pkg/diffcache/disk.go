package diffcache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// diskTier persists serialized entries below dir using the object store's
// fan-out layout, named by the BLAKE2b-256 of the key string:
//
//	<dir>/<name>/ab/cdef...
type diskTier struct {
	dir   string
	codec *codec
}

func newDiskTier(dir string) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk cache mkdir: %w", err)
	}
	c, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("disk cache codec: %w", err)
	}
	return &diskTier{dir: dir, codec: c}, nil
}

func (d *diskTier) path(key string) string {
	sum := blake2b.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(d.dir, name[:2], name[2:])
}

// load returns the stored bytes for key. A missing file is a miss, not an
// error.
func (d *diskTier) load(key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("disk cache read: %w", err)
	}
	data, err := d.codec.decompress(raw)
	if err != nil {
		return nil, false, fmt.Errorf("disk cache decompress: %w", err)
	}
	return data, true, nil
}

// store writes data for key atomically: temp file, then rename.
func (d *diskTier) store(key string, data []byte) error {
	p := d.path(key)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("disk cache mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("disk cache tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(d.codec.compress(data)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("disk cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("disk cache close: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("disk cache rename: %w", err)
	}
	return nil
}

// flush removes every stored entry but keeps dir itself.
func (d *diskTier) flush() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("disk cache flush: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(d.dir, e.Name())); err != nil {
			return fmt.Errorf("disk cache flush: %w", err)
		}
	}
	return nil
}

func (d *diskTier) close() {
	d.codec.close()
}
