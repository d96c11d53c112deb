package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project and task counts without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// status always exits 0; failures are reported, not returned
			if err := runStatus(cmd, opts); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return nil
		},
	}
}

func runStatus(cmd *cobra.Command, opts *globalOptions) error {
	e, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	report, err := e.syncer.Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace:  %s\n", e.layout.Root)
	fmt.Fprintf(out, "Projects:   %d in %d domain(s)\n", report.ProjectCount, report.DomainCount)
	fmt.Fprintf(out, "Tasks:      %d open, %d in progress, %d done\n",
		report.OpenCount, report.InProgressCount, report.DoneCount)
	if report.TagMismatches > 0 {
		fmt.Fprintf(out, "Mismatched: %d task tag(s) disagree with their section\n", report.TagMismatches)
	}

	master := e.layout.Rel(report.MasterPath)
	if !report.MasterExists {
		fmt.Fprintf(out, "Master:     %s not found, run 'sync-tasks pull'\n", master)
		return nil
	}
	fmt.Fprintf(out, "Master:     %s (last pulled %s UTC)\n", master, report.LastPulled)
	fmt.Fprintf(out, "Modified:   %s\n", report.MasterModifiedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Pending:    %d change(s), %d conflict(s)\n", report.PendingChanges, report.PendingConflicts)
	return nil
}
