package tasks

import (
	"regexp"
	"strings"

	"github.com/superuser-pal/PAL-Second-Brain/internal/frontmatter"
)

var (
	checklistPattern = regexp.MustCompile(`^(\s*)- \[([ xX])\] (.+)$`)
	tagPattern       = regexp.MustCompile(`#(open|in-progress|done)\b`)
	quotedTagPattern = regexp.MustCompile("\\s*`#(open|in-progress|done)`")
	trailingTag      = regexp.MustCompile(`\s+#(open|in-progress|done)$`)
)

// checklistLine is a parsed "- [ ] text `#tag`" line.
type checklistLine struct {
	indent  string
	checked bool
	tag     Status
	text    string
}

// parseChecklistLine returns ok=false for anything that is not a checklist
// item with non-empty text.
func parseChecklistLine(line string) (checklistLine, bool) {
	m := checklistPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return checklistLine{}, false
	}

	rest := m[3]
	cl := checklistLine{
		indent:  m[1],
		checked: m[2] != " ",
	}
	// a quoted tag is authoritative over a bare #word inside the text
	if tm := quotedTagPattern.FindStringSubmatch(rest); tm != nil {
		cl.tag = Status(tm[1])
	} else if tm := tagPattern.FindStringSubmatch(rest); tm != nil {
		cl.tag = Status(tm[1])
	}

	text := quotedTagPattern.ReplaceAllString(rest, "")
	if text == rest {
		text = trailingTag.ReplaceAllString(text, "")
	}
	cl.text = strings.TrimSpace(text)
	if cl.text == "" {
		return checklistLine{}, false
	}
	return cl, true
}

// renderChecklistLine formats a task line the way push writes it.
func renderChecklistLine(indent, text string, status Status) string {
	mark := " "
	if status == StatusDone {
		mark = "x"
	}
	return indent + "- [" + mark + "] " + text + " " + status.Tag()
}

// isBoundary reports whether line ends a task section.
func isBoundary(line string) bool {
	return strings.HasPrefix(line, "###") || strings.HasPrefix(line, "## ")
}

func sectionStatus(line string) (Status, bool) {
	trimmed := strings.TrimRight(line, " \t\r")
	for _, s := range Statuses {
		if trimmed == "### "+s.Heading() {
			return s, true
		}
	}
	return "", false
}

// span locates one task section: lines (header, end) exclusive belong to it.
type span struct {
	header int
	end    int
}

// findSections returns the first section per status at or after line from.
func findSections(lines []string, from int) map[Status]span {
	out := make(map[Status]span, len(Statuses))
	for i := from; i < len(lines); i++ {
		status, ok := sectionStatus(lines[i])
		if !ok {
			continue
		}
		if _, seen := out[status]; seen {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if isBoundary(lines[j]) {
				end = j
				break
			}
		}
		out[status] = span{header: i, end: end}
	}
	return out
}

// projectFile is a project document held as raw lines so edits leave every
// untouched byte as it was.
type projectFile struct {
	lines    []string
	doc      frontmatter.Document
	bodyLine int
	eol      string // "\r" for CRLF files, appended to inserted lines
}

func newProjectFile(content string) *projectFile {
	doc := frontmatter.Parse(content)
	f := &projectFile{
		lines:    strings.Split(content, "\n"),
		doc:      doc,
		bodyLine: doc.BodyLine,
	}
	if strings.Contains(content, "\r\n") {
		f.eol = "\r"
	}
	return f
}

func (f *projectFile) String() string {
	return strings.Join(f.lines, "\n")
}

func (f *projectFile) tasks() TaskLists {
	var lists TaskLists
	for status, sp := range findSections(f.lines, f.bodyLine) {
		for i := sp.header + 1; i < sp.end; i++ {
			cl, ok := parseChecklistLine(f.lines[i])
			if !ok {
				continue
			}
			lists.add(Task{
				Text:    cl.text,
				Status:  status,
				Checked: cl.checked,
				Tag:     cl.tag,
				Line:    i,
			})
		}
	}
	return lists
}

// find returns the nth task (zero-based) whose text matches, searching
// sections in canonical order.
func (f *projectFile) find(text string, nth int) (Task, bool) {
	p := Project{Tasks: f.tasks()}
	return p.Find(text, nth)
}

// lineMove relocates the task at line to the end of section to.
type lineMove struct {
	line int
	to   Status
}

// apply performs all moves in one pass. Lines are resolved against the
// current content before anything shifts.
func (f *projectFile) apply(moves []lineMove) {
	if len(moves) == 0 {
		return
	}

	type pending struct {
		rendered string
		to       Status
	}
	removed := make(map[int]bool, len(moves))
	inserts := make([]pending, 0, len(moves))
	for _, m := range moves {
		if removed[m.line] || m.line < 0 || m.line >= len(f.lines) {
			continue
		}
		cl, ok := parseChecklistLine(f.lines[m.line])
		if !ok {
			continue
		}
		removed[m.line] = true
		inserts = append(inserts, pending{rendered: renderChecklistLine(cl.indent, cl.text, m.to), to: m.to})
	}

	kept := make([]string, 0, len(f.lines))
	for i, line := range f.lines {
		if !removed[i] {
			kept = append(kept, line)
		}
	}
	f.lines = kept

	for _, ins := range inserts {
		f.appendTo(ins.to, ins.rendered)
	}
}

// appendTo adds line after the last checklist item of the section for
// status, creating the section in canonical order when it is missing.
func (f *projectFile) appendTo(status Status, line string) {
	secs := findSections(f.lines, f.bodyLine)
	heading := "### " + status.Heading()

	if sp, ok := secs[status]; ok {
		pos := sp.header + 1
		for i := sp.header + 1; i < sp.end; i++ {
			if _, ok := parseChecklistLine(f.lines[i]); ok {
				pos = i + 1
			}
		}
		f.insert(pos, line)
		return
	}

	for _, next := range Statuses[status.order()+1:] {
		if sp, ok := secs[next]; ok {
			f.insert(sp.header, heading, line, "")
			return
		}
	}

	for i := status.order() - 1; i >= 0; i-- {
		if sp, ok := secs[Statuses[i]]; ok {
			pos := sp.header + 1
			for j := sp.header + 1; j < sp.end; j++ {
				if strings.TrimSpace(f.lines[j]) != "" {
					pos = j + 1
				}
			}
			f.insert(pos, "", heading, line)
			return
		}
	}

	// before the final newline, if the file has one
	end := len(f.lines)
	if end > 0 && f.lines[end-1] == "" {
		end--
	}
	if end == 0 {
		f.insert(end, heading, line)
		return
	}
	f.insert(end, "", heading, line)
}

// insert places lines before index pos using the file's line endings. At
// the very end of a file without a final newline the new lines take over
// that state.
func (f *projectFile) insert(pos int, lines ...string) {
	block := make([]string, len(lines))
	for i, l := range lines {
		block[i] = l + f.eol
	}
	if pos == len(f.lines) && pos > 0 {
		f.lines[pos-1] += f.eol
		block[len(block)-1] = strings.TrimSuffix(block[len(block)-1], f.eol)
	}

	out := make([]string, 0, len(f.lines)+len(block))
	out = append(out, f.lines[:pos]...)
	out = append(out, block...)
	out = append(out, f.lines[pos:]...)
	f.lines = out
}
