package main

import (
	"context"
	"fmt"

	"github.com/bashhack/gitupdate/internal/config"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues holds the raw command-line flags. Only flags the user actually
// set are passed on as configuration overrides.
type flagValues struct {
	configFile       string
	repo             string
	remote           string
	url              string
	branch           string
	keepLocalChanges bool
	nonInteractive   bool
	quiet            bool
	debug            bool
	logFile          string
}

// Execute runs the command line in args and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}

	root := a.newRootCommand()
	root.SetArgs(args)
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.Close(); closeErr != nil {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", closeErr)
	}
	if err == nil {
		return 0
	}

	// A failed session has already been reported.
	var sessionErr *gitupdateErrors.SessionError
	if !gitupdateErrors.As(err, &sessionErr) {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error: %v\n", err)
	}
	return 1
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gitupdate",
		Short: "Update a git working tree from its remote without losing local changes",
		Long: `gitupdate fast-forwards a working tree to the head of a remote branch.

Uncommitted and untracked changes are saved in a snapshot commit first and
reapplied on top of the new head. New commits that look like breaking changes
are listed and the update only proceeds after confirmation. Any failure puts
the repository back exactly as it was.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.done = cmd.Context().Done()
			return a.loadConfig(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.RunUpdate(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "user config file (default $XDG_CONFIG_HOME/gitupdate/config.toml)")
	pf.StringVar(&a.flags.repo, "repo", "", "path to the repository (default current directory)")
	pf.StringVar(&a.flags.remote, "remote", "", "name of the remote to update from")
	pf.StringVar(&a.flags.url, "url", "", "URL to update from instead of a named remote")
	pf.StringVar(&a.flags.branch, "branch", "", "remote branch to follow")
	pf.BoolVar(&a.flags.nonInteractive, "non-interactive", false, "decline every prompt instead of asking")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "only print the final report")
	pf.BoolVar(&a.flags.debug, "debug", false, "write a debug log")
	pf.StringVar(&a.flags.logFile, "log-file", "", "path of the debug log")

	root.Flags().BoolVar(&a.flags.keepLocalChanges, "keep-local-changes", true,
		"reapply uncommitted changes after updating")

	root.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report whether the remote branch has new commits",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.RunCheck(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "repair",
			Short: "Clean up after an interrupted update",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.RunRepair(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			// Version needs no configuration or repository.
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(*cobra.Command, []string) {
				a.ShowVersion()
			},
		},
	)

	return root
}

// loadConfig builds the configuration from files, the environment and the
// flags that were set, then initializes the app from it.
func (a *App) loadConfig(flags *pflag.FlagSet) error {
	overrides := make(map[string]any)
	set := func(flag, key string, value any) {
		if flags.Changed(flag) {
			overrides[key] = value
		}
	}
	set("repo", config.KeyRepo, a.flags.repo)
	set("remote", config.KeyRemoteName, a.flags.remote)
	set("url", config.KeyRemoteURL, a.flags.url)
	set("branch", config.KeyRemoteBranch, a.flags.branch)
	set("keep-local-changes", config.KeyKeepLocalChanges, a.flags.keepLocalChanges)
	set("non-interactive", config.KeyNonInteractive, a.flags.nonInteractive)
	set("quiet", config.KeyVerbose, !a.flags.quiet)
	set("debug", config.KeyDebug, a.flags.debug)
	set("log-file", config.KeyLogFile, a.flags.logFile)

	opts := append([]config.Option(nil), a.configOptions...)
	if a.flags.configFile != "" {
		opts = append(opts, config.WithUserConfig(a.flags.configFile))
	}
	opts = append(opts, config.WithOverrides(overrides))

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.Config = cfg

	return a.Initialize()
}
