package tasks

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/superuser-pal/PAL-Second-Brain/internal/frontmatter"
)

// MasterMeta is the master document frontmatter.
type MasterMeta struct {
	LastPulled      string   `yaml:"last_pulled"`
	PullID          string   `yaml:"pull_id,omitempty"`
	DomainsScanned  []string `yaml:"domains_scanned"`
	TotalProjects   int      `yaml:"total_projects"`
	TotalTasks      int      `yaml:"total_tasks"`
	OpenTasks       int      `yaml:"open_tasks"`
	InProgressTasks int      `yaml:"in_progress_tasks"`
}

// PulledAt parses LastPulled as UTC.
func (m MasterMeta) PulledAt() (time.Time, bool) {
	t, err := time.ParseInLocation(MasterTimeFormat, m.LastPulled, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MasterTask is one checklist line of the master document. Every line
// carries enough context to find its origin without the pull that made it.
type MasterTask struct {
	Domain  string
	Project string
	Source  string
	Text    string
	Tag     Status // status requested by the line, empty when untagged
	Checked bool
	Section Status // subsection the line sits under
	Line    int
}

// MasterDocument is the aggregated view.
type MasterDocument struct {
	Meta  MasterMeta
	Body  string
	Tasks []MasterTask

	// Keys of the tasks emitted by the pull, as recorded in each project block
	PulledKeys []string
}

// String renders frontmatter and body.
func (d *MasterDocument) String() string {
	return d.Meta.render() + d.Body
}

// ParseMaster reads a master document. It does not fail: unreadable
// frontmatter falls back to the line-oriented parser, and lines outside a
// project with a Source reference are ignored.
func ParseMaster(content string) *MasterDocument {
	doc := frontmatter.Parse(content)
	out := &MasterDocument{Body: doc.Body}

	if doc.HasFrontmatter {
		if err := yaml.Unmarshal([]byte(doc.Block), &out.Meta); err != nil {
			out.Meta = metaFromFrontmatter(doc.Frontmatter)
		}
	}

	var domain, project, source string
	var section Status

	lines := strings.Split(content, "\n")
	for i := doc.BodyLine; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		switch {
		case strings.HasPrefix(line, "#### "):
			section = ""
			heading := strings.TrimSpace(strings.TrimPrefix(line, "#### "))
			for _, s := range Statuses {
				if heading == s.Heading() {
					section = s
				}
			}
		case strings.HasPrefix(line, "### "):
			project = strings.TrimSpace(strings.TrimPrefix(line, "### "))
			source, section = "", ""
		case strings.HasPrefix(line, "## "):
			domain = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			project, source, section = "", "", ""
		case strings.HasPrefix(line, "> Source:"):
			source = strings.TrimSpace(strings.TrimPrefix(line, "> Source:"))
		case strings.HasPrefix(line, pulledPrefix) && strings.HasSuffix(line, pulledSuffix):
			if source == "" {
				continue
			}
			inner := strings.TrimSuffix(strings.TrimPrefix(line, pulledPrefix), pulledSuffix)
			out.PulledKeys = append(out.PulledKeys, strings.Fields(inner)...)
		default:
			cl, ok := parseChecklistLine(line)
			if !ok || source == "" {
				continue
			}
			out.Tasks = append(out.Tasks, MasterTask{
				Domain:  domain,
				Project: project,
				Source:  source,
				Text:    cl.text,
				Tag:     cl.tag,
				Checked: cl.checked,
				Section: section,
				Line:    i,
			})
		}
	}
	return out
}

func metaFromFrontmatter(fm frontmatter.Frontmatter) MasterMeta {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(fm.String(key))
		return n
	}
	return MasterMeta{
		LastPulled:      fm.String("last_pulled"),
		PullID:          fm.String("pull_id"),
		DomainsScanned:  fm.List("domains_scanned"),
		TotalProjects:   atoi("total_projects"),
		TotalTasks:      atoi("total_tasks"),
		OpenTasks:       atoi("open_tasks"),
		InProgressTasks: atoi("in_progress_tasks"),
	}
}
