package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Build failed, interrupted, lookup miss, integrity failure
	ExitCommandError = 2 // Bad flags or config, database not found
)

// Error codes reported in JSON error responses.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeConfig    = "E002" // Invalid flags or configuration
	ErrCodeNotFound  = "E005" // Database not found
	ErrCodeBuild     = "E010" // Build failed or was interrupted
	ErrCodeNoMatch   = "E011" // Lookup found nothing
	ErrCodeIntegrity = "E012" // Integrity check failed
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	ErrCode string // JSON error code, ErrCodeGeneric when empty
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// withErrCode sets the JSON error code and returns e.
func (e *ExitError) withErrCode(code string) *ExitError {
	e.ErrCode = code
	return e
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure for any other error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer

	// Color enables ANSI headings in text output.
	Color bool

	printer *message.Printer
}

// newFormatter creates a formatter for w. Colors follow fatih/color's
// terminal detection.
func newFormatter(format string, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: format, Writer: w, Color: !color.NoColor}
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Printer returns an English message printer for grouped numbers.
func (f *OutputFormatter) Printer() *message.Printer {
	if f.printer == nil {
		f.printer = message.NewPrinter(language.English)
	}
	return f.printer
}

// Success writes data as an "ok" envelope in JSON mode, or calls text.
func (f *OutputFormatter) Success(data any, text func(w io.Writer, p *message.Printer)) error {
	if f.JSON() {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer, f.Printer())
	return nil
}

// Failure writes an error envelope carrying data in JSON mode.
// Text mode writes nothing; the error is printed by main.
func (f *OutputFormatter) Failure(err error, data any) error {
	if !f.JSON() {
		return nil
	}
	code := ErrCodeGeneric
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		code = exitErr.ErrCode
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: err.Error()},
	})
}

// Heading returns a color writer for section titles.
func (f *OutputFormatter) Heading() *color.Color {
	return f.paint(color.FgCyan, color.Bold)
}

// Good returns a color writer for successful values.
func (f *OutputFormatter) Good() *color.Color {
	return f.paint(color.FgGreen)
}

// Bad returns a color writer for failures.
func (f *OutputFormatter) Bad() *color.Color {
	return f.paint(color.FgRed)
}

func (f *OutputFormatter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
