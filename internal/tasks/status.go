package tasks

import (
	"context"
	"fmt"
	"os"
	"time"
)

// StatusReport summarises the workspace without changing it.
type StatusReport struct {
	ProjectCount    int
	DomainCount     int
	OpenCount       int
	InProgressCount int
	DoneCount       int
	TagMismatches   int

	MasterPath       string
	MasterExists     bool
	LastPulled       string
	PullID           string
	MasterModifiedAt time.Time

	// What a push would do now; zero when there is no master document
	PendingChanges   int
	PendingConflicts int
}

// Status scans the workspace and inspects the master document. It writes
// nothing and never creates the baseline store.
func (s *Syncer) Status(ctx context.Context) (*StatusReport, error) {
	projects, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	summary := Summarize(projects)
	report := &StatusReport{
		ProjectCount:    summary.TotalProjects,
		DomainCount:     len(summary.Domains),
		OpenCount:       summary.OpenTasks,
		InProgressCount: summary.InProgressTasks,
		DoneCount:       summary.DoneTasks,
		TagMismatches:   summary.TagMismatches,
		MasterPath:      s.layout.MasterPath(),
	}

	content, err := os.ReadFile(report.MasterPath)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("failed to read master document: %w", err)
	}
	if info, err := os.Stat(report.MasterPath); err == nil {
		report.MasterModifiedAt = info.ModTime()
	}

	master := ParseMaster(string(content))
	report.MasterExists = true
	report.LastPulled = master.Meta.LastPulled
	report.PullID = master.Meta.PullID

	plan := s.plan(ctx, master, projects, false)
	for _, fp := range plan.files {
		report.PendingChanges += len(fp.moves)
	}
	report.PendingConflicts = len(plan.result.Conflicts)
	return report, nil
}
