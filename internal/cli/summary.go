package cli

import (
	"fmt"
	"time"

	"github.com/roach88/xmatch/internal/builder"
)

// buildReport is the JSON form of a build summary.
type buildReport struct {
	*builder.Summary
	SuccessRate float64 `json:"success_rate"`
	FileSizeMB  float64 `json:"file_size_mb"`
	DurationSec float64 `json:"duration_seconds"`
}

func newBuildReport(sum *builder.Summary) buildReport {
	return buildReport{
		Summary:     sum,
		SuccessRate: sum.SuccessRate(),
		FileSizeMB:  sum.FileSizeMB(),
		DurationSec: sum.Duration.Seconds(),
	}
}

// renderSummary writes the human-readable build summary. A failed build's
// error is left to the caller, which reports it once on stderr.
func renderSummary(out *OutputFormatter, sum *builder.Summary) {
	w := out.Writer
	p := out.Printer()

	fmt.Fprintln(w)
	out.Heading().Fprintln(w, "Cross-match summary")
	p.Fprintf(w, "  Run ID:           %s\n", sum.RunID)
	if sum.Succeeded() {
		p.Fprintf(w, "  Status:           %s\n", out.Good().Sprint(sum.Status))
	} else {
		p.Fprintf(w, "  Status:           %s\n", out.Bad().Sprint(sum.Status))
	}
	p.Fprintf(w, "  Source entries:   %d\n", sum.Total)
	p.Fprintf(w, "  Processed:        %d\n", sum.Processed)
	p.Fprintf(w, "  Matched:          %d\n", sum.Matched)
	p.Fprintf(w, "  Failed:           %d\n", sum.Failed)
	p.Fprintf(w, "    no candidates   %d\n", sum.NoCandidates)
	p.Fprintf(w, "    service errors  %d\n", sum.ServiceErrors)
	p.Fprintf(w, "    invalid         %d\n", sum.InvalidEntries)
	p.Fprintf(w, "    malformed rows  %d\n", sum.Skipped)
	p.Fprintf(w, "  Success rate:     %.1f%%\n", sum.SuccessRate())
	p.Fprintf(w, "  Duration:         %s\n", sum.Duration.Round(time.Millisecond))

	fmt.Fprintln(w)
	out.Heading().Fprintln(w, "Database")
	p.Fprintf(w, "  Path:             %s\n", sum.Output)
	p.Fprintf(w, "  Records:          %d\n", sum.Store.Count)
	if sum.Store.Count > 0 {
		p.Fprintf(w, "  Magnitude range:  %.2f to %.2f\n", sum.Store.MinMagnitude, sum.Store.MaxMagnitude)
		p.Fprintf(w, "  Mean magnitude:   %.2f\n", sum.Store.AvgMagnitude)
		p.Fprintf(w, "  Mean separation:  %.3f arcsec\n", sum.Store.AvgSeparation)
		p.Fprintf(w, "  Max separation:   %.3f arcsec\n", sum.Store.MaxSeparation)
	}
	p.Fprintf(w, "  File size:        %.2f MB\n", sum.FileSizeMB())
	p.Fprintf(w, "  Batches written:  %d\n", sum.Batches)
	p.Fprintf(w, "  Pacing pauses:    %d\n", sum.Pauses)
}
