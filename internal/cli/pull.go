package cli

import (
	"github.com/spf13/cobra"

	"github.com/superuser-pal/PAL-Second-Brain/internal/tasks"
)

func pullCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Rebuild the master task list from project files",
		Long: `Scan every project file and overwrite the master document with all open
and in-progress tasks. Unpushed edits in the master document are discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			res, err := e.syncer.Pull(cmd.Context(), tasks.PullOptions{Output: output})
			if err != nil {
				return err
			}

			out := newPrinter(cmd, opts)
			s := res.Summary
			if s.TotalProjects == 0 {
				out.Infof("No projects found under %s\n", e.layout.Rel(e.layout.DomainsPath()))
			} else {
				out.Infof("Scanned %d domain(s), %d project(s)\n", len(s.Domains), s.TotalProjects)
				out.Infof("  Open:         %d\n", s.OpenTasks)
				out.Infof("  In progress:  %d\n", s.InProgressTasks)
				out.Infof("  Total active: %d\n", s.ActiveTasks())
			}
			out.Infof("Wrote %s\n", e.layout.Rel(res.OutputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the master document to this path")
	return cmd
}
