package corg

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// StdioPath names standard input as the document source.
const StdioPath = "-"

// Runner reads a document, processes it and persists the result.
type Runner struct {
	Input   string // file path, or "-" for standard input
	Output  string // file path; empty writes to Stdout
	Replace bool   // write back to Input, overrides Output

	Stdin  io.Reader
	Stdout io.Writer
}

// NewRunner creates a runner bound to the process's standard streams
func NewRunner(input string) *Runner {
	return &Runner{
		Input:  input,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// Read loads the input document.
func (r *Runner) Read() (string, error) {
	if r.Input == StdioPath {
		b, err := io.ReadAll(r.Stdin)
		if err != nil {
			return "", &IOError{Op: "read stdin", Err: err}
		}
		return string(b), nil
	}

	b, err := os.ReadFile(r.Input)
	if err != nil {
		return "", &IOError{Op: "read input", Err: err}
	}
	return string(b), nil
}

// Target returns the path the result is written to, or empty for Stdout.
func (r *Runner) Target() string {
	if r.Replace && r.Input != StdioPath {
		return r.Input
	}
	return r.Output
}

// Write persists the processed document, creating missing parent directories.
func (r *Runner) Write(content string) error {
	target := r.Target()
	if target == "" {
		if _, err := io.WriteString(r.Stdout, content); err != nil {
			return &IOError{Op: "write stdout", Err: err}
		}
		return nil
	}

	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "create output directory", Err: err}
		}
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return &IOError{Op: "write output", Err: err}
	}
	return nil
}

// Execute runs one full pass: read, process, write. In check-only mode
// nothing is written.
func (r *Runner) Execute(ctx context.Context, p *Processor) error {
	content, err := r.Read()
	if err != nil {
		return err
	}

	processed, err := p.Process(ctx, content)
	if err != nil {
		return err
	}

	if p.Options().CheckOnly {
		return nil
	}
	return r.Write(processed)
}
