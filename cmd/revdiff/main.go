package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/config"
	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/patch"
	"github.com/odvcencio/revdiff/pkg/repo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand.
type app struct {
	root       string
	project    string
	configPath string
	verbose    bool

	logger  *slog.Logger
	cfg     *config.Config
	manager *repo.Manager
	ops     *patch.DiffOperations
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "revdiff",
		Short:         "Commit diffs for code review, with cached results and synthetic commit files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	defaultRoot := os.Getenv("REVDIFF_ROOT")
	if defaultRoot == "" {
		defaultRoot = "."
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.root, "root", defaultRoot, "directory holding project repositories")
	pf.StringVarP(&a.project, "project", "p", "", "project name")
	pf.StringVar(&a.configPath, "config", "", "TOML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newCommitCmd(a))
	root.AddCommand(newLogCmd(a))
	root.AddCommand(newFilesCmd(a))
	root.AddCommand(newDiffCmd(a))
	root.AddCommand(newMagicCmd(a))
	root.AddCommand(newAutoMergeCmd(a))
	root.AddCommand(newRelationCmd(a))
	root.AddCommand(newCacheCmd(a))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "revdiff 0.1.0-dev")
		},
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.manager = repo.NewManager(a.root)
	return nil
}

func (a *app) close() {
	if a.ops != nil {
		a.ops.Close()
		a.ops = nil
	}
}

// operations builds the diff service on first use.
func (a *app) operations() (*patch.DiffOperations, error) {
	if a.ops == nil {
		ops, err := patch.NewDiffOperations(a.manager, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.ops = ops
	}
	return a.ops, nil
}

func (a *app) openProject() (*repo.Repo, error) {
	if a.project == "" {
		return nil, fmt.Errorf("no project given (use --project)")
	}
	return a.manager.Open(a.project)
}

// whitespace resolves a --whitespace flag value, falling back to config.
func (a *app) whitespace(flag string) (linediff.Whitespace, error) {
	if flag == "" {
		return a.cfg.Diff.Whitespace, nil
	}
	return linediff.ParseWhitespace(flag)
}
