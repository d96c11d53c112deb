package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/superuser-pal/PAL-Second-Brain/internal/logging"
	"github.com/superuser-pal/PAL-Second-Brain/internal/workspace"
)

const (
	defaultProjectStatus   = "planning"
	defaultProjectPriority = "medium"
)

// Scanner reads project files below the domains directory. It never writes.
type Scanner struct {
	layout workspace.Layout
	logger *zap.Logger
}

// NewScanner creates a scanner for layout. A nil logger discards output.
func NewScanner(layout workspace.Layout, logger *zap.Logger) *Scanner {
	return &Scanner{layout: layout, logger: logging.OrNop(logger)}
}

// Scan returns every project in directory-listing order.
//
// A missing domains directory yields no projects and a warning. Domains
// without a projects directory are skipped silently. A file that cannot be
// read is logged and skipped. Only an unreadable domains directory, or a
// cancelled context, is returned as an error.
func (s *Scanner) Scan(ctx context.Context) ([]Project, error) {
	domainsDir := s.layout.DomainsPath()

	entries, err := os.ReadDir(domainsDir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("domains directory not found", zap.String("path", domainsDir))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read domains directory: %w", err)
	}

	var projects []Project
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		domain := entry.Name()
		if strings.HasPrefix(domain, ".") {
			continue
		}
		domainPath := filepath.Join(domainsDir, domain)
		if info, err := os.Stat(domainPath); err != nil || !info.IsDir() {
			continue
		}

		found, err := s.scanDomain(domain, domainPath)
		if err != nil {
			s.logger.Warn("skipping domain", zap.String("domain", domain), zap.Error(err))
			continue
		}
		projects = append(projects, found...)
	}

	s.logger.Debug("scan complete", zap.Int("projects", len(projects)))
	return projects, nil
}

func (s *Scanner) scanDomain(domain, domainPath string) ([]Project, error) {
	projectsDir := filepath.Join(domainPath, s.layout.ProjectsDir)

	files, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []Project
	for _, f := range files {
		name := f.Name()
		if !strings.HasPrefix(name, s.layout.ProjectPrefix) || !strings.HasSuffix(name, ".md") {
			continue
		}

		path := filepath.Join(projectsDir, name)
		p, err := s.LoadProject(domain, path)
		if err != nil {
			s.logger.Warn("skipping unreadable project file", zap.String("path", path), zap.Error(err))
			continue
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// LoadProject reads and parses a single project file.
func (s *Scanner) LoadProject(domain, path string) (*Project, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	p := parseProject(string(content), domain, path)
	p.Source = s.layout.Rel(path)
	p.LastModified = info.ModTime()

	if fmDomain := p.Frontmatter.String("domain"); fmDomain != "" && fmDomain != domain {
		s.logger.Debug("frontmatter domain differs from directory",
			zap.String("path", p.Source), zap.String("frontmatter", fmDomain), zap.String("directory", domain))
	}
	for _, t := range p.Tasks.All() {
		if t.TagMismatch() {
			s.logger.Debug("task tag disagrees with section",
				zap.String("path", p.Source), zap.String("task", t.Text),
				zap.String("section", string(t.Status)), zap.String("tag", string(t.Tag)))
		}
	}
	return p, nil
}

// parseProject builds a Project from file content. It never fails: missing
// frontmatter or sections yield defaults and empty task lists.
func parseProject(content, domain, path string) *Project {
	f := newProjectFile(content)
	return &Project{
		Name:        firstNonEmpty(f.doc.Frontmatter.String("name"), strings.TrimSuffix(filepath.Base(path), ".md")),
		Domain:      domain,
		Path:        path,
		Status:      firstNonEmpty(f.doc.Frontmatter.String("status"), defaultProjectStatus),
		Priority:    firstNonEmpty(f.doc.Frontmatter.String("priority"), defaultProjectPriority),
		Frontmatter: f.doc.Frontmatter,
		Tasks:       f.tasks(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
