package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/odvcencio/revdiff/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	Mode     string
	BlobHash object.Hash
}

// BuildTree writes a hierarchical tree for the given file entries and
// returns the root tree hash. Paths use forward slashes
// (e.g. "pkg/util/util.go"). An empty list yields the empty tree.
func (r *Repo) BuildTree(files []TreeFileEntry) (object.Hash, error) {
	byPath := make(map[string]TreeFileEntry, len(files))
	for _, f := range files {
		if err := validateTreePath(f.Path); err != nil {
			return "", fmt.Errorf("build tree: %w", err)
		}
		byPath[f.Path] = f
	}
	return r.buildTreeDir(byPath, "")
}

func validateTreePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return fmt.Errorf("invalid path %q", p)
	}
	if strings.ContainsAny(p, "\t\n") {
		return fmt.Errorf("path %q contains a tab or newline", p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == "." || part == ".." {
			return fmt.Errorf("invalid path %q", p)
		}
	}
	return nil
}

// buildTreeDir builds a TreeObj for the given directory prefix and writes it
// to the store. It returns the tree's hash.
func (r *Repo) buildTreeDir(files map[string]TreeFileEntry, prefix string) (object.Hash, error) {
	direct := make(map[string]TreeFileEntry)
	subdirs := make(map[string]struct{})

	for p, entry := range files {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		if slash := strings.IndexByte(rel, '/'); slash < 0 {
			direct[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(direct)+len(subdirs))
	for name := range direct {
		names = append(names, name)
	}
	for name := range subdirs {
		if _, isFile := direct[name]; isFile {
			return "", fmt.Errorf("build tree: %q is both a file and a directory", path.Join(prefix, name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]object.TreeEntry, 0, len(names))
	for _, name := range names {
		if entry, isFile := direct[name]; isFile {
			entries = append(entries, object.TreeEntry{
				Name: name,
				Mode: normalizeFileMode(entry.Mode),
				Hash: entry.BlobHash,
			})
			continue
		}
		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := r.buildTreeDir(files, childPrefix)
		if err != nil {
			return "", err
		}
		entries = append(entries, object.TreeEntry{
			Name:  name,
			IsDir: true,
			Mode:  object.TreeModeDir,
			Hash:  subHash,
		})
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// EmptyTree writes (if needed) and returns the tree with no entries.
func (r *Repo) EmptyTree() (object.Hash, error) {
	return r.Store.WriteTree(&object.TreeObj{})
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes) in path order.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	files, err := r.flattenTreeRec(h, "")
	if err != nil {
		return nil, err
	}
	// Directory "a" sorts before "a.go" per level, but "a/x" after it by path.
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// FlattenTreeMap is FlattenTree indexed by path.
func (r *Repo) FlattenTreeMap(h object.Hash) (map[string]TreeFileEntry, error) {
	files, err := r.FlattenTree(h)
	if err != nil {
		return nil, err
	}
	return indexByPath(files), nil
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}
		if entry.IsDir {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{
			Path:     fullPath,
			Mode:     entry.Mode,
			BlobHash: entry.Hash,
		})
	}
	return result, nil
}

// indexByPath creates a map from file path to TreeFileEntry.
func indexByPath(entries []TreeFileEntry) map[string]TreeFileEntry {
	m := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}
