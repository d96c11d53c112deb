// Package cli implements the sync-tasks command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/superuser-pal/PAL-Second-Brain/internal/config"
	"github.com/superuser-pal/PAL-Second-Brain/internal/logging"
	"github.com/superuser-pal/PAL-Second-Brain/internal/tasks"
	"github.com/superuser-pal/PAL-Second-Brain/internal/workspace"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	root       string
	configFile string
	verbose    bool
	quiet      bool
}

// usageError marks errors that should be followed by the usage text.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "sync-tasks",
		Short: "Aggregate project tasks into a master list and push edits back",
		Long: `sync-tasks collects checklist tasks from every PROJECT_*.md file under
domains/<domain>/01_PROJECTS/ into tasks/MASTER.md.

  pull    rebuild MASTER.md from the project files
  push    apply status edits made in MASTER.md to the project files
  status  summarise projects, tasks and pending edits

Edits made in MASTER.md are lost on the next pull unless pushed first.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return &usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.root, "root", "", "Workspace root (default: detected from the working directory)")
	flags.StringVar(&opts.configFile, "config", "", "Additional config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Only print errors and conflicts")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	rootCmd.AddCommand(pullCmd(opts))
	rootCmd.AddCommand(pushCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(configCmd(opts))

	return rootCmd
}

// Execute runs the command line and reports any error on stderr.
func Execute(version string) error {
	return run(NewRootCmd(version), os.Args[1:])
}

func run(rootCmd *cobra.Command, args []string) error {
	// cobra falls back to os.Args for nil
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	stderr := rootCmd.ErrOrStderr()
	fmt.Fprintln(stderr, "Error:", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(stderr, rootCmd.UsageString())
	}
	return err
}

// env is everything a command needs once flags are parsed.
type env struct {
	cfg    *config.Config
	layout workspace.Layout
	logger *zap.Logger
	syncer *tasks.Syncer
}

func (o *globalOptions) loadConfig() (*config.Config, string, error) {
	// domains_dir may come from a global or explicit file, so load once
	// without the workspace file to find the root
	pre, err := config.Load(config.LoadOptions{File: o.configFile})
	if err != nil {
		return nil, "", err
	}

	root, err := workspace.Resolve(o.root, pre.DomainsDir)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(config.LoadOptions{Root: root, File: o.configFile})
	if err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

func (o *globalOptions) setup(cmd *cobra.Command) (*env, error) {
	cfg, root, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr(), logging.Options{Verbose: o.verbose, Quiet: o.quiet})
	if err != nil {
		return nil, err
	}

	layout := workspace.NewLayout(root, cfg)
	logger.Debug("workspace resolved", zap.String("root", root))

	return &env{
		cfg:    cfg,
		layout: layout,
		logger: logger,
		syncer: tasks.NewSyncer(layout, tasks.WithLogger(logger)),
	}, nil
}

// printer writes command results; info lines are dropped in quiet mode.
type printer struct {
	w     io.Writer
	quiet bool
}

func newPrinter(cmd *cobra.Command, o *globalOptions) *printer {
	return &printer{w: cmd.OutOrStdout(), quiet: o.quiet}
}

func (p *printer) Infof(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}
