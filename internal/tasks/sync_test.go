package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superuser-pal/PAL-Second-Brain/internal/testutil"
)

const masterRel = "tasks/MASTER.md"

func pulledWorkspace(t *testing.T, projects map[string]string) (*testutil.Workspace, *Syncer) {
	t.Helper()

	ws := testutil.NewWorkspace(t)
	for file, content := range projects {
		ws.WriteProject("web", file, content)
	}
	s := NewSyncer(ws.Layout())
	_, err := s.Pull(context.Background(), PullOptions{})
	require.NoError(t, err)
	return ws, s
}

func editMaster(t *testing.T, ws *testutil.Workspace, from, to string) {
	t.Helper()
	content := ws.ReadFile(masterRel)
	require.Contains(t, content, from)
	ws.WriteFile(masterRel, strings.Replace(content, from, to, 1))
}

func TestPullWritesMasterAndBaseline(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	res, err := NewSyncer(ws.Layout()).Pull(context.Background(), PullOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws.Root, "tasks", "MASTER.md"), res.OutputPath)
	assert.Equal(t, 2, res.Emitted)
	assert.Equal(t, 1, res.Summary.TotalProjects)
	assert.True(t, res.BaselineRecorded)
	assert.True(t, ws.FileExists("tasks/.baseline.db"))
	assert.False(t, ws.FileExists("tasks/MASTER.md.tmp"))

	master := ParseMaster(ws.ReadFile(masterRel))
	assert.Equal(t, res.PullID, master.Meta.PullID)
	assert.Equal(t, 1, master.Meta.OpenTasks)
	assert.Equal(t, 1, master.Meta.InProgressTasks)
}

func TestPullWithoutProjectsStillWritesMaster(t *testing.T) {
	ws := testutil.NewWorkspace(t)

	res, err := NewSyncer(ws.Layout()).Pull(context.Background(), PullOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Emitted)
	assert.Contains(t, ws.ReadFile(masterRel), "total_projects: 0")
}

func TestPullOutputOverride(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	res, err := NewSyncer(ws.Layout()).Pull(context.Background(), PullOptions{Output: "out/tasks.md"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws.Root, "out", "tasks.md"), res.OutputPath)
	assert.Contains(t, ws.ReadFile("out/tasks.md"), "Write docs")
	assert.False(t, ws.FileExists(masterRel))
	assert.False(t, res.BaselineRecorded)
	assert.False(t, ws.FileExists("tasks/.baseline.db"))
}

func TestPullOutputOverrideKeepsDefaultBaseline(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})

	ws.WriteProject("web", "PROJECT_other.md", "### Open\n- [ ] Unrelated\n")
	_, err := s.Pull(context.Background(), PullOptions{Output: "export.md"})
	require.NoError(t, err)

	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#done`")
	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.True(t, res.BaselineUsed)
	assert.Equal(t, 1, res.Updated)
}

func TestPullFailsWhenTasksDirIsAFile(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)
	ws.WriteFile("tasks", "occupied\n")

	_, err := NewSyncer(ws.Layout()).Pull(context.Background(), PullOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write master document")

	assert.Equal(t, "occupied\n", ws.ReadFile("tasks"))
	for rel := range ws.Snapshot() {
		assert.NotContains(t, rel, ".tmp")
	}
}

func TestPullFailsWhenMasterPathIsADirectory(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)
	require.NoError(t, os.MkdirAll(filepath.Join(ws.Root, "tasks", "MASTER.md"), 0755))

	_, err := NewSyncer(ws.Layout()).Pull(context.Background(), PullOptions{})
	require.Error(t, err)

	assert.False(t, ws.FileExists("tasks/MASTER.md.tmp"))
	assert.False(t, ws.FileExists("tasks/.baseline.db"))
}

func TestPullIsIdempotent(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewSyncer(ws.Layout(), WithClock(clock))

	_, err := s.Pull(context.Background(), PullOptions{})
	require.NoError(t, err)
	first := ParseMaster(ws.ReadFile(masterRel))

	now = now.Add(2 * time.Hour)
	_, err = s.Pull(context.Background(), PullOptions{})
	require.NoError(t, err)
	second := ParseMaster(ws.ReadFile(masterRel))

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Meta.PullID, second.Meta.PullID)
	assert.Equal(t, "2026-10-17 09:30", first.Meta.LastPulled)
	assert.Equal(t, "2026-10-17 11:30", second.Meta.LastPulled)
}

func TestPullDiscardsUnpushedMasterEdits(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	project := ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md")

	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#done`")

	_, err := s.Pull(context.Background(), PullOptions{})
	require.NoError(t, err)

	assert.Contains(t, ws.ReadFile(masterRel), "- [ ] Write docs `#open`")
	assert.NotContains(t, ws.ReadFile(masterRel), "Write docs `#done`")
	assert.Equal(t, project, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md"))
}

func TestPushMovesEditedTask(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#in-progress`")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged)
	assert.Empty(t, res.Conflicts)
	assert.True(t, res.BaselineUsed)
	assert.Equal(t, []string{"domains/web/01_PROJECTS/PROJECT_api.md"}, res.Files)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{
		Source: "domains/web/01_PROJECTS/PROJECT_api.md",
		Text:   "Write docs",
		From:   StatusOpen,
		To:     StatusInProgress,
	}, res.Changes[0])

	project := ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md")
	assert.Contains(t, project, "### In Progress\n- [ ] Add rate limiting\n- [ ] Write docs `#in-progress`\n")
	assert.Contains(t, project, "---\nname: API Gateway\ndomain: web\nstatus: active\npriority: high\n---\n")
}

func TestPushCheckedBoxMarksDone(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [x] Write docs `#open`")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Contains(t, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md"),
		"### Done\n- [x] Set up repo\n- [x] Write docs `#done`\n")
}

func TestPushWithoutEditsChangesNothing(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	before := ws.Snapshot()

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 2, res.Unchanged)
	assert.Empty(t, res.Files)
	assert.Equal(t, before, ws.Snapshot())
}

func TestPushReportsConflictWhenDiskMoved(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_bugs.md": "### Open\n- [ ] Fix bug\n\n### Done\n"})

	moved := "### Open\n\n### Done\n- [x] Fix bug\n"
	ws.WriteProject("web", "PROJECT_bugs.md", moved)

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, ConflictDiverged, c.Kind)
	assert.Equal(t, "Fix bug", c.Text)
	assert.Equal(t, StatusOpen, c.Base)
	assert.Equal(t, StatusDone, c.Disk)
	assert.Equal(t, StatusOpen, c.Master)
	assert.NotEmpty(t, c.Key)
	assert.Contains(t, c.String(), "Fix bug")
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, moved, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_bugs.md"))
}

func TestPushForceOverridesDivergedTask(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_bugs.md": "### Open\n- [ ] Fix bug\n\n### Done\n"})
	ws.WriteProject("web", "PROJECT_bugs.md", "### Open\n\n### Done\n- [x] Fix bug\n")

	res, err := s.Push(context.Background(), PushOptions{Force: true})
	require.NoError(t, err)

	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].Forced)
	assert.Equal(t, "### Open\n- [ ] Fix bug `#open`\n\n### Done\n", ws.ReadFile("domains/web/01_PROJECTS/PROJECT_bugs.md"))
}

func TestPushMissingSourceAndTask(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{
		"PROJECT_a.md": "### Open\n- [ ] Alpha\n",
		"PROJECT_b.md": "### Open\n- [ ] Beta\n",
	})
	require.NoError(t, os.Remove(filepath.Join(ws.Root, "domains/web/01_PROJECTS/PROJECT_a.md")))
	ws.WriteProject("web", "PROJECT_b.md", "### Open\n- [ ] Beta renamed\n")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	kinds := map[string]ConflictKind{}
	for _, c := range res.Conflicts {
		kinds[c.Text] = c.Kind
	}
	assert.Equal(t, map[string]ConflictKind{
		"Alpha": ConflictMissingSource,
		"Beta":  ConflictMissingTask,
	}, kinds)

	forced, err := s.Push(context.Background(), PushOptions{Force: true})
	require.NoError(t, err)
	assert.Empty(t, forced.Conflicts)
	assert.Equal(t, 2, forced.Dropped)
	assert.Equal(t, "### Open\n- [ ] Beta renamed\n", ws.ReadFile("domains/web/01_PROJECTS/PROJECT_b.md"))
}

func TestPushWithoutMaster(t *testing.T) {
	ws := testutil.NewWorkspace(t)

	_, err := NewSyncer(ws.Layout()).Push(context.Background(), PushOptions{})
	require.ErrorIs(t, err, ErrNoMaster)
	assert.Contains(t, err.Error(), "MASTER.md")
	assert.Contains(t, err.Error(), "run 'sync-tasks pull' first")
}

func TestPushDryRunWritesNothing(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#done`")
	before := ws.Snapshot()

	res, err := s.Push(context.Background(), PushOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, StatusDone, res.Changes[0].To)
	assert.Empty(t, res.Files)
	assert.Equal(t, before, ws.Snapshot())
}

func TestPushFallsBackToMasterSectionsWithoutBaseline(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	require.NoError(t, os.Remove(filepath.Join(ws.Root, "tasks", ".baseline.db")))
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#done`")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.False(t, res.BaselineUsed)
	assert.Equal(t, 1, res.Updated)
	assert.Contains(t, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md"), "- [x] Write docs `#done`\n")
	assert.False(t, ws.FileExists("tasks/.baseline.db"))
}

func TestPushHandlesDuplicateTexts(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_ops.md": "### Open\n- [ ] Ping\n\n### In Progress\n- [ ] Ping\n\n### Done\n"})
	editMaster(t, ws, "- [ ] Ping `#in-progress`", "- [ ] Ping `#done`")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "### Open\n- [ ] Ping\n\n### In Progress\n\n### Done\n- [x] Ping `#done`\n",
		ws.ReadFile("domains/web/01_PROJECTS/PROJECT_ops.md"))
}

func TestPushMatchesDuplicatesWithinTheirSection(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_ops.md": "### Open\n- [ ] Ping\n\n### In Progress\n- [ ] Ping\n\n### Done\n"})
	remaining := "### Open\n\n### In Progress\n- [ ] Ping\n\n### Done\n"
	ws.WriteProject("web", "PROJECT_ops.md", remaining)

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, ConflictMissingTask, res.Conflicts[0].Kind)
	assert.Equal(t, StatusOpen, res.Conflicts[0].Base)
	assert.Equal(t, 1, res.Unchanged)

	forced, err := s.Push(context.Background(), PushOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, forced.Dropped)
	assert.Empty(t, forced.Changes)
	assert.Equal(t, remaining, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_ops.md"))
}

func TestPushWithoutBaselineAcceptsLineMovedBetweenSubsections(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	require.NoError(t, os.Remove(filepath.Join(ws.Root, "tasks", ".baseline.db")))
	editMaster(t, ws,
		"#### Open\n- [ ] Write docs `#open`\n\n#### In Progress\n- [ ] Add rate limiting `#in-progress`\n",
		"#### Open\n\n#### In Progress\n- [ ] Add rate limiting `#in-progress`\n- [ ] Write docs `#in-progress`\n")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	assert.False(t, res.BaselineUsed)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 1, res.Updated)
	assert.Contains(t, ws.ReadFile("domains/web/01_PROJECTS/PROJECT_api.md"),
		"### In Progress\n- [ ] Add rate limiting\n- [ ] Write docs `#in-progress`\n")
}

func TestPushWithoutBaselineStillDetectsDivergence(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_bugs.md": "### Open\n- [ ] Fix bug\n\n### Done\n"})
	require.NoError(t, os.Remove(filepath.Join(ws.Root, "tasks", ".baseline.db")))
	ws.WriteProject("web", "PROJECT_bugs.md", "### Open\n\n### Done\n- [x] Fix bug\n")

	res, err := s.Push(context.Background(), PushOptions{})
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, ConflictDiverged, res.Conflicts[0].Kind)
	assert.Equal(t, StatusOpen, res.Conflicts[0].Base)
}

func TestPushListsSourcesModifiedSincePull(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	ws.Touch("domains/web/01_PROJECTS/PROJECT_api.md", time.Now().Add(time.Hour))

	res, err := s.Push(context.Background(), PushOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"domains/web/01_PROJECTS/PROJECT_api.md"}, res.ModifiedSincePull)
}

func TestStatusWithoutMaster(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	report, err := NewSyncer(ws.Layout()).Status(context.Background())
	require.NoError(t, err)

	assert.False(t, report.MasterExists)
	assert.Equal(t, 1, report.ProjectCount)
	assert.Equal(t, 1, report.DomainCount)
	assert.Equal(t, 1, report.OpenCount)
	assert.Equal(t, 1, report.InProgressCount)
	assert.Equal(t, 1, report.DoneCount)
	assert.False(t, ws.FileExists(masterRel))
	assert.False(t, ws.FileExists("tasks/.baseline.db"))
}

func TestStatusReportsPendingPush(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{"PROJECT_api.md": testutil.ProjectAPI})
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [ ] Write docs `#done`")

	report, err := s.Status(context.Background())
	require.NoError(t, err)

	assert.True(t, report.MasterExists)
	assert.NotEmpty(t, report.PullID)
	assert.NotEmpty(t, report.LastPulled)
	assert.False(t, report.MasterModifiedAt.IsZero())
	assert.Equal(t, 1, report.PendingChanges)
	assert.Equal(t, 0, report.PendingConflicts)
}

func TestStatusNeverMutates(t *testing.T) {
	ws, s := pulledWorkspace(t, map[string]string{
		"PROJECT_api.md":  testutil.ProjectAPI,
		"PROJECT_bugs.md": "### Open\n- [ ] Fix bug\n",
	})
	editMaster(t, ws, "- [ ] Write docs `#open`", "- [x] Write docs")
	ws.WriteProject("web", "PROJECT_bugs.md", "### Done\n- [x] Fix bug\n")
	before := ws.Snapshot()

	_, err := s.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, before, ws.Snapshot())
}
