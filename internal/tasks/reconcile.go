package tasks

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/superuser-pal/PAL-Second-Brain/internal/baseline"
)

// PushOptions configures Push.
type PushOptions struct {
	// Force applies master statuses over diverged tasks and silently drops
	// master lines whose task can no longer be found.
	Force bool

	// DryRun computes the result without writing any file.
	DryRun bool

	// Master overrides the master document path.
	Master string
}

// ConflictKind classifies why a master line was not applied.
type ConflictKind string

const (
	// The project file named by the line's Source no longer exists.
	ConflictMissingSource ConflictKind = "missing-source"
	// No task with the line's text exists in the project file.
	ConflictMissingTask ConflictKind = "missing-task"
	// The task moved on disk since the pull, to a status other than the
	// one requested in the master document.
	ConflictDiverged ConflictKind = "diverged"
)

// Conflict is a master line that could not be applied safely. Conflicts are
// results, not errors.
type Conflict struct {
	Kind    ConflictKind
	Key     string
	Domain  string
	Project string
	Source  string
	Text    string
	Base    Status // status at pull time
	Disk    Status // current status in the project file, empty when missing
	Master  Status // status requested by the master document
}

func (c Conflict) String() string {
	switch c.Kind {
	case ConflictMissingSource:
		return fmt.Sprintf("%s: project file no longer exists (%q)", c.Source, c.Text)
	case ConflictMissingTask:
		return fmt.Sprintf("%s: task %q not found", c.Source, c.Text)
	default:
		return fmt.Sprintf("%s: task %q was %s at pull, is %s on disk, %s in master",
			c.Source, c.Text, c.Base, c.Disk, c.Master)
	}
}

// Change is a status move applied (or planned) in a project file.
type Change struct {
	Source string
	Text   string
	From   Status
	To     Status
	Forced bool
}

// PushResult describes the outcome of Push.
type PushResult struct {
	Updated   int
	Changes   []Change
	Conflicts []Conflict
	Unchanged int
	// Lines dropped under Force because their task could not be found
	Dropped int
	// Project files rewritten, workspace-relative
	Files []string
	// Sources modified after the pull time
	ModifiedSincePull []string

	PullID       string
	BaselineUsed bool
	DryRun       bool
}

type plannedMove struct {
	task   Task
	change Change
}

type filePlan struct {
	project *Project
	moves   []plannedMove
}

type pushPlan struct {
	result *PushResult
	files  []*filePlan
}

// Push propagates status edits made in the master document back to the
// project files.
//
// Each master line is matched by source and text against a fresh scan. A
// line whose requested status differs from the disk status is applied only
// when the disk still holds the status it had at pull time; otherwise it is
// reported as a conflict. Every rewritten file is built in memory and written
// once; content outside the moved lines is preserved.
func (s *Syncer) Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	masterPath := s.layout.MasterPath()
	if opts.Master != "" {
		masterPath = s.layout.Abs(opts.Master)
	}

	content, err := os.ReadFile(masterPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s; run 'sync-tasks pull' first", ErrNoMaster, masterPath)
		}
		return nil, fmt.Errorf("failed to read master document: %w", err)
	}
	master := ParseMaster(string(content))

	projects, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	plan := s.plan(ctx, master, projects, opts.Force)
	plan.result.DryRun = opts.DryRun
	if opts.DryRun {
		for _, fp := range plan.files {
			for _, m := range fp.moves {
				plan.result.Changes = append(plan.result.Changes, m.change)
			}
		}
		plan.result.Updated = len(plan.result.Changes)
		return plan.result, nil
	}

	for _, fp := range plan.files {
		if err := ctx.Err(); err != nil {
			return plan.result, err
		}
		if err := s.applyFile(fp, plan.result); err != nil {
			return plan.result, err
		}
	}

	s.logger.Info("pushed tasks",
		zap.Int("updated", plan.result.Updated),
		zap.Int("conflicts", len(plan.result.Conflicts)),
		zap.Int("files", len(plan.result.Files)))
	return plan.result, nil
}

// lineState follows one master line through planning.
type lineState struct {
	mt      MasterTask
	base    Status
	desired Status
	project *Project
	task    Task
	found   bool
}

func (s *Syncer) plan(ctx context.Context, master *MasterDocument, projects []Project, force bool) *pushPlan {
	res := &PushResult{PullID: master.Meta.PullID}
	plan := &pushPlan{result: res}

	snap := s.loadBaseline(ctx, master.Meta.PullID)
	res.BaselineUsed = snap != nil

	live := make(map[string]*Project, len(projects))
	for i := range projects {
		live[projects[i].Source] = &projects[i]
	}

	pulled := newPulledSet(master, snap)
	referenced := make(map[string]bool)
	var sources []string

	states := make([]*lineState, 0, len(master.Tasks))
	for _, mt := range master.Tasks {
		st := &lineState{mt: mt, base: pulled.take(mt), project: live[mt.Source]}
		st.desired = mt.Tag
		if st.desired == "" {
			st.desired = st.base
		}
		if mt.Checked && st.desired == st.base && st.base != StatusDone {
			st.desired = StatusDone
		}
		if st.project != nil && !referenced[mt.Source] {
			referenced[mt.Source] = true
			sources = append(sources, mt.Source)
		}
		states = append(states, st)
	}

	matchDisk(states)

	files := make(map[string]*filePlan)
	for _, st := range states {
		mt := st.mt
		conflict := Conflict{
			Key:     baseline.Key(mt.Domain, mt.Source, string(st.base), mt.Text),
			Domain:  mt.Domain,
			Project: mt.Project,
			Source:  mt.Source,
			Text:    mt.Text,
			Base:    st.base,
			Master:  st.desired,
		}

		if st.project == nil || !st.found {
			if force {
				res.Dropped++
				continue
			}
			conflict.Kind = ConflictMissingTask
			if st.project == nil {
				conflict.Kind = ConflictMissingSource
			}
			res.Conflicts = append(res.Conflicts, conflict)
			continue
		}

		task := st.task
		conflict.Disk = task.Status

		forced := false
		switch {
		case task.Status == st.desired:
			res.Unchanged++
			continue
		case task.Status == st.base:
		case force:
			forced = true
		default:
			conflict.Kind = ConflictDiverged
			res.Conflicts = append(res.Conflicts, conflict)
			continue
		}

		p := st.project
		fp, ok := files[p.Source]
		if !ok {
			fp = &filePlan{project: p}
			files[p.Source] = fp
			plan.files = append(plan.files, fp)
		}
		fp.moves = append(fp.moves, plannedMove{
			task: task,
			change: Change{
				Source: p.Source,
				Text:   task.Text,
				From:   task.Status,
				To:     st.desired,
				Forced: forced,
			},
		})
	}

	res.ModifiedSincePull = modifiedSince(master, snap, live, sources)
	return plan
}

// matchDisk pairs master lines with disk tasks of the same text. Every line
// first claims a task in the section it had at pull time; lines left over
// then claim any remaining task, in canonical section order.
func matchDisk(states []*lineState) {
	used := make(map[string]map[int]bool)
	claim := func(st *lineState, list []Task) {
		taken := used[st.project.Source]
		if taken == nil {
			taken = make(map[int]bool)
			used[st.project.Source] = taken
		}
		for _, t := range list {
			if t.Text == st.mt.Text && !taken[t.Line] {
				taken[t.Line] = true
				st.task, st.found = t, true
				return
			}
		}
	}

	for _, st := range states {
		if st.project != nil {
			claim(st, st.project.Tasks.Get(st.base))
		}
	}
	for _, st := range states {
		if st.project != nil && !st.found {
			claim(st, st.project.Tasks.All())
		}
	}
}

// pulledSet counts the synthetic keys of every task emitted by the pull.
type pulledSet map[string]int

// newPulledSet prefers the baseline snapshot and falls back to the keys the
// master document carries itself.
func newPulledSet(master *MasterDocument, snap *baseline.Snapshot) pulledSet {
	if snap != nil {
		return snap.KeyCounts()
	}
	set := make(pulledSet)
	for _, key := range master.PulledKeys {
		set[key]++
	}
	return set
}

// take returns the status a master line had at pull time and consumes it.
// Statuses are tried in the order subsection, tag, canonical; a line the
// pull never emitted falls back to its subsection.
func (p pulledSet) take(mt MasterTask) Status {
	candidates := append([]Status{mt.Section, mt.Tag}, Statuses...)
	for _, st := range candidates {
		if st == "" {
			continue
		}
		key := baseline.Key(mt.Domain, mt.Source, string(st), mt.Text)
		if p[key] > 0 {
			p[key]--
			return st
		}
	}
	if mt.Section != "" {
		return mt.Section
	}
	if mt.Tag != "" {
		return mt.Tag
	}
	return StatusOpen
}

func modifiedSince(master *MasterDocument, snap *baseline.Snapshot, live map[string]*Project, sources []string) []string {
	var pulledAt time.Time
	if snap != nil {
		pulledAt = snap.PulledAt
	} else if t, ok := master.Meta.PulledAt(); ok {
		// last_pulled has minute precision
		pulledAt = t.Add(time.Minute)
	}
	if pulledAt.IsZero() {
		return nil
	}

	var out []string
	for _, src := range sources {
		if p := live[src]; p != nil && p.LastModified.After(pulledAt) {
			out = append(out, src)
		}
	}
	return out
}

// applyFile rereads the project file, checks each planned task is still
// where the scan saw it, and writes the edited content once.
func (s *Syncer) applyFile(fp *filePlan, res *PushResult) error {
	content, err := os.ReadFile(fp.project.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", fp.project.Source, err)
	}

	f := newProjectFile(string(content))
	fresh := f.tasks()

	var moves []lineMove
	var applied []Change
	for _, m := range fp.moves {
		if !stillAt(fresh, m.task) {
			res.Conflicts = append(res.Conflicts, Conflict{
				Kind:    ConflictMissingTask,
				Key:     baseline.Key(fp.project.Domain, fp.project.Source, string(m.change.From), m.task.Text),
				Domain:  fp.project.Domain,
				Project: fp.project.Name,
				Source:  fp.project.Source,
				Text:    m.task.Text,
				Base:    m.change.From,
				Master:  m.change.To,
			})
			continue
		}
		moves = append(moves, lineMove{line: m.task.Line, to: m.change.To})
		applied = append(applied, m.change)
	}
	if len(moves) == 0 {
		return nil
	}

	f.apply(moves)
	if err := writeFileAtomic(fp.project.Path, []byte(f.String())); err != nil {
		return fmt.Errorf("failed to update %s: %w", fp.project.Source, err)
	}

	res.Files = append(res.Files, fp.project.Source)
	res.Changes = append(res.Changes, applied...)
	res.Updated += len(applied)
	for _, c := range applied {
		s.logger.Debug("moved task",
			zap.String("source", c.Source), zap.String("task", c.Text),
			zap.String("from", string(c.From)), zap.String("to", string(c.To)), zap.Bool("forced", c.Forced))
	}
	return nil
}

func stillAt(lists TaskLists, want Task) bool {
	for _, t := range lists.Get(want.Status) {
		if t.Line == want.Line && t.Text == want.Text {
			return true
		}
	}
	return false
}
