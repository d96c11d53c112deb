// Package tasks aggregates checklist tasks from project files into a single
// master document and pushes status edits back.
//
// # File Format
//
// A project file is a PROJECT_*.md document under
// <domains>/<domain>/<projects>/. Its body holds task sections:
//
//	### Open
//	- [ ] Write docs `#open`
//
//	### In Progress
//	- [ ] Add rate limiting `#in-progress`
//
//	### Done
//	- [x] Set up repo `#done`
//
// The section a line sits under is its status. The inline tag is redundant
// and only counted when it disagrees.
//
// # Pull
//
// Pull renders every open and in-progress task into the master document,
// grouped by domain and project. Every master line carries its project's
// "> Source:" path so it can be traced back without the pull that made it.
// The previous master document is overwritten: edits not yet pushed are lost.
// Each pull also records a baseline of what it emitted (see package baseline).
//
// # Push
//
// Push compares three statuses per master line:
//
//   - base: the status at pull time, from the baseline or from the task keys
//     each project block of the master document records
//   - desired: the line's tag, or done when its checkbox was ticked
//   - disk: the status in the project file now
//
// Repeated texts are matched within their pull-time section first. A line is
// applied when disk still equals base. When disk moved elsewhere
// the line is a conflict unless forced. Conflicts are returned as data.
//
// # Usage
//
//	s := tasks.NewSyncer(layout, tasks.WithLogger(logger))
//	res, err := s.Pull(ctx, tasks.PullOptions{})
//	pushed, err := s.Push(ctx, tasks.PushOptions{Force: false})
//	report, err := s.Status(ctx)
package tasks
