package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JamesPrial/conductor/internal/conductor"
	"github.com/JamesPrial/conductor/internal/config"
)

// Exit codes returned by run.
const (
	exitOK      = 0
	exitFault   = 1
	exitUsage   = 2
	exitNothing = 3
)

// exitError carries an exit code out of a command's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// errNothingToSync is returned when a pass found no candidates. The message
// has already been printed.
var errNothingToSync = errors.New("nothing to sync")

type options struct {
	spec    string
	review  bool
	merge   bool
	root    string
	watch   bool
	verbose bool
}

// run parses args, executes the command and maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code == exitFault {
			fmt.Fprintf(stderr, "Conductor error: %v\n", ee.err)
		}
		return ee.code
	}

	// Anything cobra rejects before RunE is a usage problem.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	fmt.Fprintln(stderr, "Run 'conductor --help' for usage.")
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "conductor --spec <ID>",
		Short: "Synchronize track checklists into the task ledger",
		Long: `conductor reads the unchecked "- [ ] " items of tracks/track-<ID>/spec.md
(or plan.md when spec.md has none) and appends every item not already present
to the project's task ledger. Re-running it is safe: existing records are never
duplicated or modified.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.spec) == "" {
				return errors.New(`flag "spec" must not be blank`)
			}
			return execute(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.spec, "spec", "", "specification ID (track-<ID> directory suffix)")
	f.BoolVar(&opts.review, "review", false, "print the review report for the spec")
	f.BoolVar(&opts.merge, "merge", false, "print the merge report for the spec")
	f.StringVar(&opts.root, "root", "", "project root (default $CONDUCTOR_PROJECT_DIR or the working directory)")
	f.BoolVar(&opts.watch, "watch", false, "keep running and re-sync when the track documents change")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	_ = cmd.MarkFlagRequired("spec")
	cmd.MarkFlagsMutuallyExclusive("review", "merge", "watch")

	return cmd
}

// execute runs the selected mode. Errors are *exitError.
func execute(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	n := &narrator{w: stdout}

	switch {
	case opts.review:
		n.review(opts.spec)
		return nil
	case opts.merge:
		n.merge(opts.spec)
		return nil
	}

	logger := newLogger(opts.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	n.activate(opts.spec)

	s, cfg, err := setup(opts.root, logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		return &exitError{code: exitFault, err: err}
	}

	n.syncing(opts.spec)
	res, syncErr := s.Sync(opts.spec)
	switch {
	case syncErr != nil:
		// run reports the fault on stderr once the build line is out.
		logger.Error("sync failed", zap.String("spec", opts.spec), zap.Error(syncErr))
	case res.Synced():
		n.synced(opts.spec, res)
	default:
		n.nothingNew(opts.spec)
	}

	if opts.watch && syncErr == nil {
		return watch(ctx, s, cfg, opts.spec, n, logger)
	}

	n.build(opts.spec)

	switch {
	case syncErr != nil:
		return &exitError{code: exitFault, err: syncErr}
	case !res.Synced():
		return &exitError{code: exitNothing, err: errNothingToSync}
	}
	return nil
}

// setup resolves the project, loads configuration and opens the ledger.
func setup(root string, logger *zap.Logger) (*conductor.Synchronizer, *config.Config, error) {
	projectDir, err := config.ResolveProjectDir(root)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, nil, err
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("project", cfg.ProjectDir),
		zap.String("tracks", cfg.TracksDir),
		zap.String("backend", cfg.LedgerOptions().BackendName()))

	return conductor.New(store, cfg.Locator(), conductor.WithLogger(logger)), cfg, nil
}

// watch re-syncs on document changes until ctx is cancelled.
func watch(ctx context.Context, s *conductor.Synchronizer, cfg *config.Config, specID string, n *narrator, logger *zap.Logger) error {
	w, err := conductor.NewWatcher(s, cfg.Locator(), specID, func(res conductor.Result, err error) {
		switch {
		case err != nil:
			logger.Error("sync failed", zap.String("spec", specID), zap.Error(err))
			n.failed(err)
		case res.Changed():
			n.synced(specID, res)
		}
	})
	if err != nil {
		return &exitError{code: exitFault, err: err}
	}

	n.watching(specID)
	if err := w.Run(ctx); err != nil {
		return &exitError{code: exitFault, err: err}
	}
	return nil
}
