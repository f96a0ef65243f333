package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotRepository is returned when a directory holds no repository.
var ErrNotRepository = errors.New("not a repository")

// ErrProjectNotFound is returned by Manager.Open for unknown projects.
var ErrProjectNotFound = errors.New("project not found")

// Manager maps project names to repositories under one root directory.
// Project "platform/build" lives in <root>/platform/build.git. Opened
// repositories are kept for the lifetime of the Manager so their ancestry
// caches are shared between callers.
type Manager struct {
	root string

	mu    sync.Mutex
	repos map[string]*Repo
}

// NewManager returns a Manager for projects under root.
func NewManager(root string) *Manager {
	return &Manager{root: root, repos: make(map[string]*Repo)}
}

// Root returns the directory projects are stored under.
func (m *Manager) Root() string { return m.root }

func (m *Manager) projectDir(project string) (string, error) {
	if err := ValidateProjectName(project); err != nil {
		return "", err
	}
	return filepath.Join(m.root, filepath.FromSlash(project)+".git"), nil
}

// ValidateProjectName rejects names that could escape the projects root.
func ValidateProjectName(project string) error {
	if project == "" {
		return fmt.Errorf("project name is empty")
	}
	if strings.HasPrefix(project, "/") || strings.HasSuffix(project, "/") {
		return fmt.Errorf("project %q: leading or trailing slash", project)
	}
	if path.Clean(project) != project {
		return fmt.Errorf("project %q: not a clean path", project)
	}
	for _, part := range strings.Split(project, "/") {
		if part == "." || part == ".." || strings.HasSuffix(part, ".git") {
			return fmt.Errorf("project %q: invalid path element %q", project, part)
		}
	}
	return nil
}

// Open returns the repository for project.
func (m *Manager) Open(project string) (*Repo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.repos[project]; ok {
		return r, nil
	}
	dir, err := m.projectDir(project)
	if err != nil {
		return nil, err
	}
	r, err := Open(dir)
	if err != nil {
		if errors.Is(err, ErrNotRepository) {
			return nil, fmt.Errorf("open project %q: %w", project, ErrProjectNotFound)
		}
		return nil, fmt.Errorf("open project %q: %w", project, err)
	}
	m.repos[project] = r
	return r, nil
}

// Create initializes a new repository for project.
func (m *Manager) Create(project string) (*Repo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.projectDir(project)
	if err != nil {
		return nil, err
	}
	r, err := Init(dir)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", project, err)
	}
	m.repos[project] = r
	return r, nil
}

// List returns the names of all projects under the root, sorted.
func (m *Manager) List() ([]string, error) {
	var projects []string
	err := filepath.WalkDir(m.root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() || !strings.HasSuffix(d.Name(), ".git") {
			return nil
		}
		if isRepoDir(p) {
			rel, err := filepath.Rel(m.root, p)
			if err != nil {
				return err
			}
			projects = append(projects, strings.TrimSuffix(filepath.ToSlash(rel), ".git"))
		}
		return filepath.SkipDir
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	sort.Strings(projects)
	return projects, nil
}
