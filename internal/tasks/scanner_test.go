package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/superuser-pal/PAL-Second-Brain/internal/testutil"
)

func TestScanFindsProjectsPerDomain(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)
	ws.WriteProject("web", "PROJECT_scratch.md", testutil.ProjectNoFrontmatter)
	ws.WriteProject("finance", "PROJECT_billing.md", testutil.ProjectNoOpenSection)
	ws.WriteProject("web", "NOTES.md", "### Open\n- [ ] not scanned\n")
	ws.WriteProject("web", "PROJECT_draft.txt", "### Open\n- [ ] not scanned\n")
	ws.WriteFile("domains/.hidden/01_PROJECTS/PROJECT_x.md", "### Open\n- [ ] hidden\n")
	ws.WriteFile("domains/empty/README.md", "no projects dir")

	projects, err := NewScanner(ws.Layout(), nil).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 3)

	// os.ReadDir sorts by name
	assert.Equal(t, "finance", projects[0].Domain)
	assert.Equal(t, "Billing", projects[0].Name)
	assert.Equal(t, "web", projects[1].Domain)
	assert.Equal(t, "API Gateway", projects[1].Name)
	assert.Equal(t, "domains/web/01_PROJECTS/PROJECT_api.md", projects[1].Source)
	assert.Equal(t, "PROJECT_scratch", projects[2].Name)
}

func TestScanAppliesDefaults(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_scratch.md", testutil.ProjectNoFrontmatter)

	projects, err := NewScanner(ws.Layout(), nil).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "planning", p.Status)
	assert.Equal(t, "medium", p.Priority)
	assert.Equal(t, 0, p.Frontmatter.Len())
	assert.Len(t, p.Tasks.Open, 2)
	assert.False(t, p.LastModified.IsZero())
}

func TestScanPreservesUnknownFrontmatterKeys(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_x.md", "---\nname: X\nowner: sam\ntags: [a, b]\n---\n\n### Open\n- [ ] One\n")

	projects, err := NewScanner(ws.Layout(), nil).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)

	fm := projects[0].Frontmatter
	assert.Equal(t, []string{"name", "owner", "tags"}, fm.Keys())
	assert.Equal(t, "sam", fm.String("owner"))
	assert.Equal(t, []string{"a", "b"}, fm.List("tags"))
}

func TestScanMissingDomainsDirWarns(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	require.NoError(t, os.RemoveAll(filepath.Join(ws.Root, "domains")))

	core, logs := observer.New(zapcore.WarnLevel)
	projects, err := NewScanner(ws.Layout(), zap.New(core)).Scan(context.Background())

	require.NoError(t, err)
	assert.Empty(t, projects)
	require.Equal(t, 1, logs.FilterMessage("domains directory not found").Len())
}

func TestScanSkipsUnreadableProject(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)
	require.NoError(t, os.MkdirAll(filepath.Join(ws.Root, ws.ProjectPath("web", "PROJECT_x.md")), 0755))

	core, logs := observer.New(zapcore.WarnLevel)
	projects, err := NewScanner(ws.Layout(), zap.New(core)).Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "API Gateway", projects[0].Name)
	assert.Equal(t, 1, logs.FilterMessage("skipping unreadable project file").Len())
}

func TestScanMalformedProjectDegrades(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_broken.md", "---\nname: [unterminated\nno closing delimiter\n- [ ] stray\n")

	projects, err := NewScanner(ws.Layout(), nil).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)

	assert.Equal(t, "PROJECT_broken", projects[0].Name)
	assert.Empty(t, projects[0].Tasks.All())
}

func TestScanCancelled(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(ws.Layout(), nil).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanRoundTripsThroughRenderProject(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.WriteProject("web", "PROJECT_api.md", testutil.ProjectAPI)

	scanner := NewScanner(ws.Layout(), nil)
	before, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, before, 1)

	ws.WriteProject("web", "PROJECT_api.md", RenderProject(before[0]))
	after, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, after, 1)

	for _, status := range Statuses {
		assert.Equal(t, texts(before[0].Tasks.Get(status)), texts(after[0].Tasks.Get(status)), status)
	}
	assert.Equal(t, before[0].Frontmatter.Keys(), after[0].Frontmatter.Keys())
	assert.Equal(t, before[0].Name, after[0].Name)
}
