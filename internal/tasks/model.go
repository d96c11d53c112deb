package tasks

import (
	"time"

	"github.com/superuser-pal/PAL-Second-Brain/internal/frontmatter"
)

// Status is the lifecycle state of a task, determined by its section.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in canonical section order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone}

// ParseStatus converts a tag name such as "in-progress" to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusDone:
		return Status(s), true
	}
	return "", false
}

// Heading returns the section title used for this status.
func (s Status) Heading() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}
	return ""
}

// Tag returns the inline annotation, e.g. "`#open`".
func (s Status) Tag() string {
	return "`#" + string(s) + "`"
}

func (s Status) order() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Task is a single checklist line.
type Task struct {
	Text    string
	Status  Status // section the line appears under
	Checked bool
	Tag     Status // inline tag, empty when absent
	Line    int    // zero-based line in the source file
}

// TagMismatch reports whether the inline tag disagrees with the section.
func (t Task) TagMismatch() bool {
	return t.Tag != "" && t.Tag != t.Status
}

// TaskLists holds tasks per section in file order.
type TaskLists struct {
	Open       []Task
	InProgress []Task
	Done       []Task
}

// Get returns the tasks under status.
func (l TaskLists) Get(status Status) []Task {
	switch status {
	case StatusOpen:
		return l.Open
	case StatusInProgress:
		return l.InProgress
	case StatusDone:
		return l.Done
	}
	return nil
}

func (l *TaskLists) add(t Task) {
	switch t.Status {
	case StatusOpen:
		l.Open = append(l.Open, t)
	case StatusInProgress:
		l.InProgress = append(l.InProgress, t)
	case StatusDone:
		l.Done = append(l.Done, t)
	}
}

// All returns every task in Open, In Progress, Done order.
func (l TaskLists) All() []Task {
	out := make([]Task, 0, len(l.Open)+len(l.InProgress)+len(l.Done))
	out = append(out, l.Open...)
	out = append(out, l.InProgress...)
	return append(out, l.Done...)
}

// Active returns the number of open and in-progress tasks.
func (l TaskLists) Active() int {
	return len(l.Open) + len(l.InProgress)
}

// Project is one PROJECT_*.md file.
type Project struct {
	Name     string
	Domain   string
	Path     string // absolute
	Source   string // workspace-relative, forward slashes
	Status   string
	Priority string

	// All keys, including unrecognised ones, in file order
	Frontmatter frontmatter.Frontmatter

	Tasks        TaskLists
	LastModified time.Time
}

// Find returns the nth (zero-based) task whose text equals text, searching
// sections in canonical order.
func (p *Project) Find(text string, nth int) (Task, bool) {
	for _, t := range p.Tasks.All() {
		if t.Text != text {
			continue
		}
		if nth == 0 {
			return t, true
		}
		nth--
	}
	return Task{}, false
}
