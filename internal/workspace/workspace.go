// Package workspace locates the workspace root and maps the configured
// directory names onto absolute paths. Every other package receives a Layout
// instead of consulting the process working directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/superuser-pal/PAL-Second-Brain/internal/config"
)

// Layout holds the absolute workspace root and the configured names below it.
type Layout struct {
	Root          string
	DomainsDir    string
	ProjectsDir   string
	ProjectPrefix string
	TasksDir      string
	MasterFile    string
	BaselineDB    string
}

// NewLayout builds a Layout for root from cfg.
func NewLayout(root string, cfg *config.Config) Layout {
	return Layout{
		Root:          root,
		DomainsDir:    cfg.DomainsDir,
		ProjectsDir:   cfg.ProjectsDir,
		ProjectPrefix: cfg.ProjectPrefix,
		TasksDir:      cfg.TasksDir,
		MasterFile:    cfg.MasterFile,
		BaselineDB:    cfg.BaselineDB,
	}
}

// Abs resolves p against the root; absolute paths are returned unchanged.
func (l Layout) Abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(l.Root, p)
}

// DomainsPath returns the directory scanned for domains.
func (l Layout) DomainsPath() string {
	return l.Abs(l.DomainsDir)
}

// TasksPath returns the directory holding the master document.
func (l Layout) TasksPath() string {
	return l.Abs(l.TasksDir)
}

// MasterPath returns the default master document path.
func (l Layout) MasterPath() string {
	return filepath.Join(l.TasksPath(), l.MasterFile)
}

// BaselinePath returns the pull baseline database path.
func (l Layout) BaselinePath() string {
	if filepath.IsAbs(l.BaselineDB) {
		return l.BaselineDB
	}
	return filepath.Join(l.TasksPath(), l.BaselineDB)
}

// Rel returns p relative to the root using forward slashes. Paths outside
// the root are returned as cleaned absolute slash paths.
func (l Layout) Rel(p string) string {
	rel, err := filepath.Rel(l.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(p))
	}
	return filepath.ToSlash(rel)
}

// Resolve picks the workspace root.
//
// An explicit root always wins. Otherwise the working directory is used when
// it contains domainsDir; failing that, the root of the enclosing git work
// tree is used when it contains domainsDir; otherwise the working directory.
func Resolve(explicit, domainsDir string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root %s: %w", explicit, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("workspace root: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace root %s is not a directory", abs)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	if isDir(filepath.Join(cwd, domainsDir)) {
		return cwd, nil
	}

	if root, ok := GitRoot(cwd); ok && isDir(filepath.Join(root, domainsDir)) {
		return root, nil
	}

	return cwd, nil
}

// GitRoot returns the work tree root of the repository containing dir.
func GitRoot(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	// bare repositories have no work tree
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return wt.Filesystem.Root(), true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
