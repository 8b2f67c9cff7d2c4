package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/xmatch/internal/builder"
	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/xmatch"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output       string
	MaxMagnitude float64
	Test         bool
	Radius       float64
	Nearest      bool
	Workers      int
	BatchSize    int

	// Source replaces the remote catalogs (for testing).
	Source catalog.Source
	// RunIDs overrides the run identifier generator (for testing).
	RunIDs builder.RunIDGenerator
	// Sleep overrides the pacing sleep (for testing).
	Sleep builder.SleepFunc
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(&BuildOptions{RootOptions: rootOpts})
}

func newBuildCommand(opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the Gaia-SAO cross-match database",
		Long: `Build a cross-match database from scratch.

Every SAO star brighter than --max-magnitude is looked up in Gaia DR3 with a
cone search of --radius arcseconds. Accepted pairs are written in batches,
then the database is indexed and compacted. Any existing file at --output is
replaced.

Interrupting with Ctrl-C finishes the lookups in flight, writes what has been
matched so far, and exits with status 1.

Examples:
  xmatch build
  xmatch build --test -o sample.db
  xmatch build -m 7.5 --nearest --workers 4
  xmatch build --config xmatch.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	defaults := builder.DefaultConfig()
	cmd.Flags().StringVarP(&opts.Output, "output", "o", defaults.Output, "output database path")
	cmd.Flags().Float64VarP(&opts.MaxMagnitude, "max-magnitude", "m", defaults.MaxMagnitude, "faintest V magnitude to include (exclusive)")
	cmd.Flags().BoolVar(&opts.Test, "test", false, fmt.Sprintf("only match the first %d entries", builder.TestModeLimit))
	cmd.Flags().Float64Var(&opts.Radius, "radius", defaults.RadiusArcsec, "cone search radius in arcseconds")
	cmd.Flags().BoolVar(&opts.Nearest, "nearest", false, "pick the closest candidate instead of the first")
	cmd.Flags().IntVar(&opts.Workers, "workers", defaults.Workers, "concurrent cone searches")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", defaults.BatchSize, "records per write transaction")

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.Format, cmd.OutOrStdout())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err).withErrCode(ErrCodeConfig)
	}

	// Explicit flags win over the config file.
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("max-magnitude") {
		cfg.MaxMagnitude = opts.MaxMagnitude
	}
	if flags.Changed("radius") {
		cfg.RadiusArcsec = opts.Radius
	}
	if opts.Nearest {
		cfg.Selection = string(xmatch.SelectNearest)
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.BatchSize
	}
	if opts.Test {
		cfg.Limit = builder.TestModeLimit
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid build options", err).withErrCode(ErrCodeConfig)
	}

	bcfg, err := cfg.Builder()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid build options", err).withErrCode(ErrCodeConfig)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.Logging)
	slog.SetDefault(logger)

	src := opts.Source
	if src == nil {
		src = cfg.Catalogs(logger)
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	if !out.JSON() {
		out.Heading().Fprintln(out.Writer, "Building Gaia DR3 / SAO cross-match database")
		fmt.Fprintf(out.Writer, "  Output: %s  Max magnitude: %g  Radius: %g\"  Selection: %s\n",
			bcfg.Output, bcfg.MaxMagnitude, bcfg.RadiusArcsec, bcfg.Selection)
		if bcfg.Limit > 0 {
			out.Printer().Fprintf(out.Writer, "  Test mode: first %d entries\n", bcfg.Limit)
		}
		fmt.Fprintln(out.Writer)
	}

	builderOpts := []builder.Option{
		builder.WithLogger(logger),
		builder.WithProgress(func(p builder.Progress) {
			if !out.JSON() {
				out.Printer().Fprintf(out.Writer, "  Processed %d/%d (matched %d, failed %d)\n",
					p.Processed, p.Total, p.Matched, p.Failed)
			}
		}),
	}
	if opts.RunIDs != nil {
		builderOpts = append(builderOpts, builder.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Sleep != nil {
		builderOpts = append(builderOpts, builder.WithSleeper(opts.Sleep))
	}

	sum, runErr := builder.New(bcfg, src, builderOpts...).Run(ctx)
	report := newBuildReport(sum)

	if runErr != nil {
		exitErr := WrapExitError(ExitFailure, "build failed", runErr).withErrCode(ErrCodeBuild)
		if out.JSON() {
			if err := out.Failure(exitErr, report); err != nil {
				return err
			}
		} else {
			renderSummary(out, sum)
		}
		return exitErr
	}

	return out.Success(report, func(w io.Writer, p *message.Printer) {
		renderSummary(out, sum)
	})
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, finishing in-flight lookups", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
