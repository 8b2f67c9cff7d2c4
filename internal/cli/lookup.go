package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/xmatch/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Database string
	SAO      int64
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup [gaia-source-id]",
		Short: "Find the SAO star matched to a Gaia source, or the reverse",
		Long: `Look up a single cross-match.

With a Gaia DR3 source_id argument, prints the SAO star paired with it. With
--sao, prints every Gaia source paired with that SAO number, nearest first.
Exits with status 1 when nothing matches.

Examples:
  xmatch lookup --db gaia_sao_xmatch.db 4295806720
  xmatch lookup --db gaia_sao_xmatch.db --sao 308`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().Int64Var(&opts.SAO, "sao", 0, "SAO catalog number to look up")

	return cmd
}

func runLookup(opts *LookupOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.Format, cmd.OutOrStdout())

	bySAO := cmd.Flags().Changed("sao")
	if bySAO == (len(args) == 1) {
		return NewExitError(ExitCommandError, "give either a Gaia source_id or --sao").withErrCode(ErrCodeConfig)
	}

	var gaiaID int64
	if !bySAO {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid Gaia source_id", err).withErrCode(ErrCodeConfig)
		}
		gaiaID = id
	}

	st, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var recs []store.Record
	if bySAO {
		recs, err = st.FindBySAO(ctx, opts.SAO)
		if err != nil {
			return WrapExitError(ExitFailure, "lookup failed", err)
		}
		if len(recs) == 0 {
			err = NewExitError(ExitFailure, fmt.Sprintf("no Gaia source matched to SAO %d", opts.SAO)).withErrCode(ErrCodeNoMatch)
		}
	} else {
		var rec store.Record
		rec, err = st.Get(ctx, gaiaID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			err = NewExitError(ExitFailure, fmt.Sprintf("no SAO star matched to Gaia %d", gaiaID)).withErrCode(ErrCodeNoMatch)
		case err != nil:
			return WrapExitError(ExitFailure, "lookup failed", err)
		default:
			recs = []store.Record{rec}
		}
	}

	if err != nil {
		if ferr := out.Failure(err, nil); ferr != nil {
			return ferr
		}
		return err
	}

	return out.Success(recs, func(w io.Writer, p *message.Printer) {
		writeRecords(w, recs)
	})
}
