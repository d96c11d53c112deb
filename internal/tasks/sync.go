package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/superuser-pal/PAL-Second-Brain/internal/baseline"
	"github.com/superuser-pal/PAL-Second-Brain/internal/logging"
	"github.com/superuser-pal/PAL-Second-Brain/internal/workspace"
)

// ErrNoMaster is returned by Push when there is no master document to read.
var ErrNoMaster = errors.New("master document not found")

// Syncer runs pull, push and status against one workspace.
type Syncer struct {
	layout  workspace.Layout
	scanner *Scanner
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = logging.OrNop(l) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer creates a Syncer for layout.
func NewSyncer(layout workspace.Layout, opts ...Option) *Syncer {
	s := &Syncer{
		layout: layout,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scanner = NewScanner(layout, s.logger)
	return s
}

// Layout returns the workspace layout.
func (s *Syncer) Layout() workspace.Layout {
	return s.layout
}

// PullOptions configures Pull.
type PullOptions struct {
	// Output overrides the master path; relative paths resolve against the root
	Output string
}

// PullResult describes a completed pull.
type PullResult struct {
	Summary          Summary
	OutputPath       string
	PullID           string
	Emitted          int
	BaselineRecorded bool
}

// Pull scans every project and overwrites the master document. Anything
// edited in the master document and not yet pushed is lost.
func (s *Syncer) Pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	projects, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := Aggregate(projects, now)

	out := s.layout.MasterPath()
	if opts.Output != "" {
		out = s.layout.Abs(opts.Output)
	}
	if err := writeFileAtomic(out, []byte(doc.String())); err != nil {
		return nil, fmt.Errorf("failed to write master document: %w", err)
	}

	res := &PullResult{
		Summary:    Summarize(projects),
		OutputPath: out,
		PullID:     doc.Meta.PullID,
		Emitted:    len(doc.Tasks),
	}

	// the baseline belongs to the default master document only
	if out != s.layout.MasterPath() {
		s.logger.Debug("pull baseline kept for default master", zap.String("output", out))
	} else if err := s.recordBaseline(ctx, doc, projects, now); err != nil {
		s.logger.Warn("pull baseline not recorded; push will fall back to keys in the master document", zap.Error(err))
	} else {
		res.BaselineRecorded = true
	}

	s.logger.Info("pulled tasks",
		zap.String("output", out),
		zap.Int("projects", res.Summary.TotalProjects),
		zap.Int("emitted", res.Emitted))
	return res, nil
}

func (s *Syncer) recordBaseline(ctx context.Context, doc *MasterDocument, projects []Project, now time.Time) error {
	store, err := baseline.Open(s.layout.BaselinePath())
	if err != nil {
		return err
	}
	defer store.Close()

	modified := make(map[string]time.Time, len(projects))
	for _, p := range projects {
		modified[p.Source] = p.LastModified
	}

	snap := baseline.Snapshot{PullID: doc.Meta.PullID, PulledAt: now}
	for i, t := range doc.Tasks {
		snap.Entries = append(snap.Entries, baseline.Entry{
			Key:            baseline.Key(t.Domain, t.Source, string(t.Section), t.Text),
			Domain:         t.Domain,
			Source:         t.Source,
			Project:        t.Project,
			Status:         string(t.Section),
			Text:           t.Text,
			Position:       i,
			SourceModified: modified[t.Source],
		})
	}
	return store.Replace(ctx, snap)
}

// loadBaseline returns the snapshot for pullID, or nil when none is usable.
func (s *Syncer) loadBaseline(ctx context.Context, pullID string) *baseline.Snapshot {
	if pullID == "" {
		return nil
	}
	store, err := baseline.OpenReadOnly(s.layout.BaselinePath())
	if err != nil {
		if !errors.Is(err, baseline.ErrNotFound) {
			s.logger.Warn("pull baseline unreadable", zap.Error(err))
		}
		return nil
	}
	defer store.Close()

	snap, err := store.Load(ctx, pullID)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			s.logger.Debug("pull baseline belongs to another pull", zap.String("pull_id", pullID))
		} else {
			s.logger.Warn("pull baseline unreadable", zap.Error(err))
		}
		return nil
	}
	return snap
}
