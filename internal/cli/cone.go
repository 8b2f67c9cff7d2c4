package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/xmatch/internal/sky"
	"github.com/roach88/xmatch/internal/store"
)

// ConeOptions holds flags for the cone command.
type ConeOptions struct {
	*RootOptions
	Database string
	RA       string
	Dec      string
	Radius   float64 // degrees
	Limit    int
	Nearest  bool
}

// ConeResult is the cone command output.
type ConeResult struct {
	RA      float64        `json:"ra"`
	Dec     float64        `json:"dec"`
	Radius  float64        `json:"radius_deg"`
	Records []store.Record `json:"records"`
}

// NewConeCommand creates the cone command.
func NewConeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cone",
		Short: "List cross-matches around a sky position",
		Long: `List cross-matched stars within --radius degrees of a position,
brightest first.

Positions are decimal degrees, or sexagesimal with ':' or space separators
(RA in hours, Dec in degrees). With --nearest only the closest star is shown.

Examples:
  xmatch cone --db gaia_sao_xmatch.db --ra 83.82 --dec -5.39 --radius 0.5
  xmatch cone --db gaia_sao_xmatch.db --ra 05:35:17.3 --dec -05:23:28 --nearest`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCone(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.RA, "ra", "", "right ascension (degrees or HH:MM:SS)")
	_ = cmd.MarkFlagRequired("ra")
	cmd.Flags().StringVar(&opts.Dec, "dec", "", "declination (degrees or ±DD:MM:SS)")
	_ = cmd.MarkFlagRequired("dec")
	cmd.Flags().Float64Var(&opts.Radius, "radius", 0.1, "search radius in degrees")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum records to list (0 = all)")
	cmd.Flags().BoolVar(&opts.Nearest, "nearest", false, "show only the closest star")

	return cmd
}

func runCone(opts *ConeOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.Format, cmd.OutOrStdout())

	ra, err := parseAngle(opts.RA, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --ra", err).withErrCode(ErrCodeConfig)
	}
	dec, err := parseAngle(opts.Dec, false)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --dec", err).withErrCode(ErrCodeConfig)
	}
	if !sky.Valid(ra, dec) {
		return NewExitError(ExitCommandError, fmt.Sprintf("position (%g, %g) out of range", ra, dec)).withErrCode(ErrCodeConfig)
	}
	if opts.Radius <= 0 || opts.Radius > 180 {
		return NewExitError(ExitCommandError, "--radius must be in (0, 180] degrees").withErrCode(ErrCodeConfig)
	}

	st, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result := ConeResult{RA: ra, Dec: dec, Radius: opts.Radius}
	if opts.Nearest {
		rec, err := st.NearestSAO(ctx, ra, dec, opts.Radius*sky.ArcsecPerDegree)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result.Records = []store.Record{}
		case err != nil:
			return WrapExitError(ExitFailure, "cone search failed", err)
		default:
			result.Records = []store.Record{rec}
		}
	} else {
		result.Records, err = st.ConeSearch(ctx, ra, dec, opts.Radius, opts.Limit)
		if err != nil {
			return WrapExitError(ExitFailure, "cone search failed", err)
		}
	}

	return out.Success(result, func(w io.Writer, p *message.Printer) {
		p.Fprintf(w, "%d matches within %g° of %s %s\n",
			len(result.Records), opts.Radius, sky.FormatHMS(ra), sky.FormatDMS(dec))
		if len(result.Records) > 0 {
			p.Fprintln(w)
			writeRecords(w, result.Records)
		}
	})
}

// parseAngle reads decimal degrees or a sexagesimal string. Sexagesimal RA
// is in hours.
func parseAngle(s string, hours bool) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, ": \t") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse angle %q: %w", s, err)
		}
		if hours {
			v = sky.NormalizeRA(v)
		}
		return v, nil
	}
	if hours {
		return sky.ParseHMS(s)
	}
	return sky.ParseDMS(s)
}
