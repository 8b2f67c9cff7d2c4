package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/xmatch/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// VerifyResult is the verify command output.
type VerifyResult struct {
	Path           string   `json:"path"`
	Records        int64    `json:"records"`
	Integrity      string   `json:"integrity"`
	SchemaVersion  string   `json:"schema_version"`
	MissingIndices []string `json:"missing_indices,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check database integrity",
		Long: `Run SQLite's integrity check and confirm that the schema version and
lookup indices written by a completed build are present.

Exits with status 1 if any check fails.

Examples:
  xmatch verify --db gaia_sao_xmatch.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.Format, cmd.OutOrStdout())

	st, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result := VerifyResult{Path: opts.Database, Integrity: "ok"}
	var problems []string

	if err := st.VerifyIntegrity(ctx); err != nil {
		result.Integrity = err.Error()
		problems = append(problems, err.Error())
	}

	if result.Records, err = st.Count(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to count records", err)
	}

	meta, err := st.Metadata(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read metadata", err)
	}
	result.SchemaVersion = meta["version"]
	if result.SchemaVersion != store.SchemaVersion {
		problems = append(problems, fmt.Sprintf("schema version %q, want %q", result.SchemaVersion, store.SchemaVersion))
	}

	present, err := indexSet(ctx, st)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list indices", err)
	}
	for _, name := range store.IndexNames() {
		if !present[name] {
			result.MissingIndices = append(result.MissingIndices, name)
		}
	}
	if len(result.MissingIndices) > 0 {
		problems = append(problems, fmt.Sprintf("missing indices %v", result.MissingIndices))
	}

	if len(problems) > 0 {
		exitErr := NewExitError(ExitFailure, fmt.Sprintf("verification failed: %v", problems)).withErrCode(ErrCodeIntegrity)
		if ferr := out.Failure(exitErr, result); ferr != nil {
			return ferr
		}
		if !out.JSON() {
			writeVerify(out, result)
		}
		return exitErr
	}

	return out.Success(result, func(w io.Writer, p *message.Printer) {
		writeVerify(out, result)
	})
}

func writeVerify(out *OutputFormatter, r VerifyResult) {
	w, p := out.Writer, out.Printer()
	out.Heading().Fprintln(w, "Verification")
	p.Fprintf(w, "  Path:            %s\n", r.Path)
	p.Fprintf(w, "  Records:         %d\n", r.Records)
	p.Fprintf(w, "  Schema version:  %s\n", r.SchemaVersion)
	if r.Integrity == "ok" {
		p.Fprintf(w, "  Integrity:       %s\n", out.Good().Sprint("ok"))
	} else {
		p.Fprintf(w, "  Integrity:       %s\n", out.Bad().Sprint(r.Integrity))
	}
	if len(r.MissingIndices) == 0 {
		p.Fprintf(w, "  Indices:         %s\n", out.Good().Sprint("ok"))
	} else {
		p.Fprintf(w, "  Indices:         %s\n", out.Bad().Sprintf("missing %v", r.MissingIndices))
	}
}

// indexSet returns the names of the indices present in st.
func indexSet(ctx context.Context, st *store.Store) (map[string]bool, error) {
	rows, err := st.DB().QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'index'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}
