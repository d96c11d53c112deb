package cli

import (
	"github.com/spf13/cobra"

	"github.com/superuser-pal/PAL-Second-Brain/internal/tasks"
)

func pushCmd(opts *globalOptions) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Apply status edits from the master list to project files",
		Long: `Move every task whose status was changed in the master document to the
matching section of its project file.

A task that also moved in its project file since the last pull is reported
as a conflict and left alone. --force applies the master status anyway and
drops lines whose project or task no longer exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			res, err := e.syncer.Push(cmd.Context(), tasks.PushOptions{Force: force, DryRun: dryRun})
			if err != nil {
				return err
			}

			printPushResult(newPrinter(cmd, opts), res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Apply master statuses over conflicting changes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	return cmd
}

func printPushResult(out *printer, res *tasks.PushResult) {
	verb := "Updated"
	if res.DryRun {
		verb = "Would update"
	}
	out.Infof("%s %d task(s)", verb, res.Updated)
	if !res.DryRun {
		out.Infof(" in %d file(s)", len(res.Files))
	}
	out.Infof("\n")

	for _, c := range res.Changes {
		mark := ""
		if c.Forced {
			mark = " (forced)"
		}
		out.Infof("  %s: %q %s -> %s%s\n", c.Source, c.Text, c.From, c.To, mark)
	}

	if res.Dropped > 0 {
		out.Infof("Dropped %d line(s) whose project or task no longer exists\n", res.Dropped)
	}

	if len(res.Conflicts) > 0 {
		out.Printf("Conflicts (%d), rerun with --force to override:\n", len(res.Conflicts))
		for _, c := range res.Conflicts {
			out.Printf("  [%s] %s\n", c.Kind, c)
		}
	}

	if len(res.ModifiedSincePull) > 0 {
		out.Infof("Modified since last pull:\n")
		for _, src := range res.ModifiedSincePull {
			out.Infof("  %s\n", src)
		}
	}
}
