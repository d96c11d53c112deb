// Package testutil provides isolated workspaces for sync-tasks tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/superuser-pal/PAL-Second-Brain/internal/config"
	"github.com/superuser-pal/PAL-Second-Brain/internal/workspace"
)

// Workspace is a temporary workspace root with a mocked HOME.
type Workspace struct {
	Root   string
	Home   string
	Config *config.Config
	t      *testing.T
}

// NewWorkspace creates an empty workspace using the default layout.
// HOME is pointed at a temp dir so no global config leaks in.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()

	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.DefaultConfig()
	if err := os.MkdirAll(filepath.Join(root, cfg.DomainsDir), 0755); err != nil {
		t.Fatalf("Failed to create domains dir: %v", err)
	}

	return &Workspace{Root: root, Home: home, Config: cfg, t: t}
}

// Layout returns the workspace layout for the default config.
func (w *Workspace) Layout() workspace.Layout {
	return workspace.NewLayout(w.Root, w.Config)
}

// ProjectPath returns the workspace-relative path of a project file.
func (w *Workspace) ProjectPath(domain, file string) string {
	return filepath.ToSlash(filepath.Join(w.Config.DomainsDir, domain, w.Config.ProjectsDir, file))
}

// WriteProject writes a project file under domain and returns its
// workspace-relative path.
func (w *Workspace) WriteProject(domain, file, content string) string {
	w.t.Helper()
	rel := w.ProjectPath(domain, file)
	w.WriteFile(rel, content)
	return rel
}

// WriteFile creates a file relative to the root, including parent dirs.
func (w *Workspace) WriteFile(rel, content string) {
	w.t.Helper()

	path := w.path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		w.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		w.t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// ReadFile returns the content of a file relative to the root.
func (w *Workspace) ReadFile(rel string) string {
	w.t.Helper()

	data, err := os.ReadFile(w.path(rel))
	if err != nil {
		w.t.Fatalf("Failed to read %s: %v", rel, err)
	}
	return string(data)
}

// FileExists reports whether rel exists.
func (w *Workspace) FileExists(rel string) bool {
	_, err := os.Stat(w.path(rel))
	return err == nil
}

// Touch sets the modification time of rel.
func (w *Workspace) Touch(rel string, at time.Time) {
	w.t.Helper()
	if err := os.Chtimes(w.path(rel), at, at); err != nil {
		w.t.Fatalf("Failed to touch %s: %v", rel, err)
	}
}

// Snapshot returns the content of every regular file under the root keyed
// by relative path.
func (w *Workspace) Snapshot() map[string]string {
	w.t.Helper()

	out := make(map[string]string)
	err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(w.Root, path)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		w.t.Fatalf("Failed to snapshot workspace: %v", err)
	}
	return out
}

func (w *Workspace) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}
