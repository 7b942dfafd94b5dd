// Package corg rewrites documents by running the code blocks embedded in
// them and splicing each block's output back in.
package corg

import (
	"context"
	"errors"

	"github.com/gubarz/corg/internal/checksum"
	"github.com/gubarz/corg/internal/executor"
	"github.com/gubarz/corg/internal/logging"
	"github.com/gubarz/corg/internal/markers"
	"github.com/gubarz/corg/internal/parser"
)

// Options toggles the processing policies. The zero value uses no markers;
// start from DefaultOptions.
type Options struct {
	DeleteBlocks   bool
	WarnIfNoBlocks bool
	OmitOutput     bool
	CheckOnly      bool
	Checksum       bool
	Markers        markers.Set
}

// DefaultOptions returns options with every policy off and the default markers.
func DefaultOptions() Options {
	return Options{Markers: markers.Default()}
}

// Processor is the entry point for processing one document at a time.
type Processor struct {
	opts Options
	exec parser.BlockExecutor
}

// NewProcessor creates a processor that runs blocks as real processes
func NewProcessor(opts Options) *Processor {
	return &Processor{
		opts: opts,
		exec: executor.NewExecutor(),
	}
}

// WithExecutor sets a custom block executor (useful for testing)
func (p *Processor) WithExecutor(exec parser.BlockExecutor) *Processor {
	p.exec = exec
	return p
}

// Options returns the processor's configuration
func (p *Processor) Options() Options {
	return p.opts
}

// Process runs every block of document and returns the rewritten text.
// Nothing is returned alongside an error.
func (p *Processor) Process(ctx context.Context, document string) (string, error) {
	logger := logging.FromContext(ctx)

	if err := p.opts.Markers.Validate(); err != nil {
		return "", &UsageError{Err: err}
	}

	state, err := parser.Evaluate(ctx, document, parser.Options{
		Markers:      p.opts.Markers,
		DeleteBlocks: p.opts.DeleteBlocks,
		OmitOutput:   p.opts.OmitOutput,
		Checksum:     checksum.Verifier{Enabled: p.opts.Checksum},
	}, p.exec)
	if err != nil {
		return "", classify(err)
	}

	if p.opts.WarnIfNoBlocks && !state.BlocksFound() {
		return "", ErrNoBlocksDetected
	}

	produced := state.Output()
	if p.opts.CheckOnly && produced != document {
		logger.Debug("check failed", "original_bytes", len(document), "produced_bytes", len(produced))
		return "", &CheckFailedError{Original: document, Produced: produced}
	}
	return produced, nil
}

// classify leaves the taxonomy's own errors untouched and treats anything
// else coming out of a pass as a failure at the OS boundary.
func classify(err error) error {
	var (
		blockErr    *executor.BlockExecutionError
		mismatchErr *checksum.MismatchError
	)
	if errors.As(err, &blockErr) || errors.As(err, &mismatchErr) {
		return err
	}
	return &IOError{Op: "execute block", Err: err}
}
