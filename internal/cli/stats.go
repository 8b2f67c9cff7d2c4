package cli

import (
	"context"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/xmatch/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

// StatsResult is the stats command output.
type StatsResult struct {
	Path     string            `json:"path"`
	Stats    store.Stats       `json:"stats"`
	Metadata map[string]string `json:"metadata"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics and build metadata",
		Long: `Show record counts, magnitude and separation statistics, and the
metadata recorded by the build that produced the database.

Examples:
  xmatch stats --db gaia_sao_xmatch.db
  xmatch stats --db gaia_sao_xmatch.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.Format, cmd.OutOrStdout())

	st, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read statistics", err)
	}
	meta, err := st.Metadata(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read metadata", err)
	}

	result := StatsResult{Path: opts.Database, Stats: stats, Metadata: meta}
	return out.Success(result, func(w io.Writer, p *message.Printer) {
		out.Heading().Fprintln(w, "Database statistics")
		p.Fprintf(w, "  Path:             %s\n", result.Path)
		p.Fprintf(w, "  Records:          %d\n", stats.Count)
		if stats.Count > 0 {
			p.Fprintf(w, "  Magnitude range:  %.2f to %.2f\n", stats.MinMagnitude, stats.MaxMagnitude)
			p.Fprintf(w, "  Mean magnitude:   %.2f\n", stats.AvgMagnitude)
			p.Fprintf(w, "  Mean separation:  %.3f arcsec\n", stats.AvgSeparation)
			p.Fprintf(w, "  Max separation:   %.3f arcsec\n", stats.MaxSeparation)
		}
		p.Fprintf(w, "  Size:             %.2f MB\n", float64(stats.SizeBytes)/(1024*1024))

		p.Fprintln(w)
		out.Heading().Fprintln(w, "Metadata")
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Fprintf(w, "  %-16s  %s\n", k+":", meta[k])
		}
	})
}
