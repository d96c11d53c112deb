package tasks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/superuser-pal/PAL-Second-Brain/internal/baseline"
)

// MasterTimeFormat is the layout of last_pulled.
const MasterTimeFormat = "2006-01-02 15:04"

// pullNamespace scopes the name-based UUIDs used as pull identifiers.
// Each project block records the keys of the tasks it was pulled with.
const (
	pulledPrefix = "<!-- pulled:"
	pulledSuffix = "-->"
)

var pullNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/superuser-pal/PAL-Second-Brain/sync-tasks/pull"))

// Summary holds totals over every scanned project.
type Summary struct {
	Domains         []string
	TotalProjects   int
	OpenTasks       int
	InProgressTasks int
	DoneTasks       int
	TagMismatches   int
}

// ActiveTasks is open plus in-progress; it is the master's total_tasks.
func (s Summary) ActiveTasks() int {
	return s.OpenTasks + s.InProgressTasks
}

// Summarize counts across all projects, emitted or not.
func Summarize(projects []Project) Summary {
	s := Summary{Domains: domainOrder(projects), TotalProjects: len(projects)}
	for _, p := range projects {
		s.OpenTasks += len(p.Tasks.Open)
		s.InProgressTasks += len(p.Tasks.InProgress)
		s.DoneTasks += len(p.Tasks.Done)
		for _, t := range p.Tasks.All() {
			if t.TagMismatch() {
				s.TagMismatches++
			}
		}
	}
	return s
}

func domainOrder(projects []Project) []string {
	seen := make(map[string]bool)
	domains := []string{}
	for _, p := range projects {
		if !seen[p.Domain] {
			seen[p.Domain] = true
			domains = append(domains, p.Domain)
		}
	}
	return domains
}

// Aggregate renders the master document for projects at time now.
//
// Domains appear in first-seen order and projects in scan order. Projects
// without open or in-progress tasks are counted but not rendered. Done tasks
// are never rendered.
func Aggregate(projects []Project, now time.Time) *MasterDocument {
	summary := Summarize(projects)

	var body strings.Builder
	var emitted []MasterTask
	var keys []string

	body.WriteString("# Task Master List\n\n")
	body.WriteString("> Run `sync-tasks push` to push changes back to projects\n")
	body.WriteString("> Unpushed edits are overwritten by the next pull\n\n")

	byDomain := make(map[string][]Project)
	for _, p := range projects {
		byDomain[p.Domain] = append(byDomain[p.Domain], p)
	}

	for _, domain := range summary.Domains {
		fmt.Fprintf(&body, "---\n\n## %s\n\n", domain)

		for _, p := range byDomain[domain] {
			if p.Tasks.Active() == 0 {
				continue
			}

			fmt.Fprintf(&body, "### %s\n", p.Name)
			fmt.Fprintf(&body, "> Source: %s\n", p.Source)
			fmt.Fprintf(&body, "> Priority: %s | Status: %s\n", p.Priority, p.Status)

			var projectKeys []string
			for _, status := range []Status{StatusOpen, StatusInProgress} {
				for _, t := range p.Tasks.Get(status) {
					projectKeys = append(projectKeys, baseline.Key(domain, p.Source, string(status), t.Text))
				}
			}
			fmt.Fprintf(&body, "%s %s %s\n\n", pulledPrefix, strings.Join(projectKeys, " "), pulledSuffix)
			keys = append(keys, projectKeys...)

			for _, status := range []Status{StatusOpen, StatusInProgress} {
				list := p.Tasks.Get(status)
				if len(list) == 0 {
					continue
				}
				fmt.Fprintf(&body, "#### %s\n", status.Heading())
				for _, t := range list {
					fmt.Fprintf(&body, "- [ ] %s %s\n", t.Text, status.Tag())
					emitted = append(emitted, MasterTask{
						Domain:  domain,
						Project: p.Name,
						Source:  p.Source,
						Text:    t.Text,
						Tag:     status,
						Section: status,
					})
				}
				body.WriteString("\n")
			}
		}
	}

	rendered := body.String()
	return &MasterDocument{
		Meta: MasterMeta{
			LastPulled:      now.UTC().Format(MasterTimeFormat),
			PullID:          uuid.NewSHA1(pullNamespace, []byte(rendered)).String(),
			DomainsScanned:  summary.Domains,
			TotalProjects:   summary.TotalProjects,
			TotalTasks:      summary.ActiveTasks(),
			OpenTasks:       summary.OpenTasks,
			InProgressTasks: summary.InProgressTasks,
		},
		Body:       rendered,
		Tasks:      emitted,
		PulledKeys: keys,
	}
}

var plainScalar = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9 _./-]*$`)

func yamlScalar(s string) string {
	if plainScalar.MatchString(s) && strings.TrimSpace(s) == s {
		return s
	}
	return strconv.Quote(s)
}

func (m MasterMeta) render() string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "last_pulled: %s\n", m.LastPulled)
	if m.PullID != "" {
		fmt.Fprintf(&b, "pull_id: %s\n", m.PullID)
	}
	if len(m.DomainsScanned) == 0 {
		b.WriteString("domains_scanned: []\n")
	} else {
		b.WriteString("domains_scanned:\n")
		for _, d := range m.DomainsScanned {
			fmt.Fprintf(&b, "  - %s\n", yamlScalar(d))
		}
	}
	fmt.Fprintf(&b, "total_projects: %d\n", m.TotalProjects)
	fmt.Fprintf(&b, "total_tasks: %d\n", m.TotalTasks)
	fmt.Fprintf(&b, "open_tasks: %d\n", m.OpenTasks)
	fmt.Fprintf(&b, "in_progress_tasks: %d\n", m.InProgressTasks)
	b.WriteString("---\n\n")
	return b.String()
}
