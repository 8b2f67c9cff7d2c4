package builder

import (
	"time"

	"github.com/roach88/xmatch/internal/store"
)

// Progress is a snapshot reported during cross-matching.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
}

// ProgressFunc receives progress snapshots from the writer goroutine.
type ProgressFunc func(Progress)

// Summary reports the result of a build. It is returned even when the build
// fails, describing what was done before the failure.
type Summary struct {
	RunID  string `json:"run_id"`
	Output string `json:"output"`
	State  State  `json:"-"`
	Status string `json:"status"`

	// Total counts fetched entries considered for matching plus malformed
	// rows dropped by the source adapter.
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	// Failed counts every entry that did not yield a record, including
	// Skipped rows.
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	NoCandidates   int `json:"no_candidates"`
	ServiceErrors  int `json:"service_errors"`
	InvalidEntries int `json:"invalid_entries"`

	Flushed int `json:"flushed"`
	Batches int `json:"batches"`
	Pauses  int `json:"pauses"`

	Store         store.Stats   `json:"store"`
	FileSizeBytes int64         `json:"file_size_bytes"`
	Duration      time.Duration `json:"duration_ns"`
	Error         string        `json:"error,omitempty"`
}

// SuccessRate returns matched/total as a percentage, or 0 when nothing was
// attempted.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Matched) / float64(s.Total)
}

// FileSizeMB returns the store file size in mebibytes.
func (s *Summary) FileSizeMB() float64 {
	return float64(s.FileSizeBytes) / (1024 * 1024)
}

// Succeeded reports whether the build reached Done.
func (s *Summary) Succeeded() bool {
	return s.State == StateDone
}
