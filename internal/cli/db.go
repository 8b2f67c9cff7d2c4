package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/xmatch/internal/sky"
	"github.com/roach88/xmatch/internal/store"
)

// openDatabase opens an existing store for a read-side command.
func openDatabase(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required").withErrCode(ErrCodeConfig)
	}
	st, err := store.Open(path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, WrapExitError(ExitCommandError, "database not found", err).withErrCode(ErrCodeNotFound)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err).withErrCode(ErrCodeNotFound)
	}
	return st, nil
}

// addDatabaseFlag registers the required --db flag.
func addDatabaseFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "db", "", "path to cross-match database (required)")
	_ = cmd.MarkFlagRequired("db")
}

// writeRecords prints records as an aligned table with sexagesimal positions.
// Identifiers are printed without digit grouping.
func writeRecords(w io.Writer, recs []store.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAIA SOURCE\tSAO\tRA\tDEC\tMAG\tSEP (\")")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.2f\t%.3f\n",
			r.GaiaSourceID, r.SAONumber,
			sky.FormatHMS(r.RA), sky.FormatDMS(r.Dec),
			r.Magnitude, r.Separation)
	}
	tw.Flush()
}
