package tasks

import (
	"strings"

	"github.com/superuser-pal/PAL-Second-Brain/internal/frontmatter"
)

// RenderProject writes p as a complete project file: its frontmatter in
// original key order (or name/status/priority when it had none), a title,
// and the three task sections.
func RenderProject(p Project) string {
	fm := p.Frontmatter
	if fm.Len() == 0 {
		fm.Set("name", frontmatter.Value{Raw: p.Name})
		fm.Set("status", frontmatter.Value{Raw: p.Status})
		fm.Set("priority", frontmatter.Value{Raw: p.Priority})
	}

	var b strings.Builder
	b.WriteString(fm.Render())
	b.WriteString("\n# " + p.Name + "\n\n## Tasks\n")
	for _, status := range Statuses {
		b.WriteString("\n### " + status.Heading() + "\n")
		for _, t := range p.Tasks.Get(status) {
			b.WriteString(renderChecklistLine("", t.Text, status) + "\n")
		}
	}
	return b.String()
}
