package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"

	"github.com/gubarz/corg/internal/logging"
)

// ============================================================================
// Command Runner Interface
// ============================================================================

// CommandRunner runs one external program, feeding it stdin and capturing
// what it writes.
type CommandRunner interface {
	Run(ctx context.Context, program string, args []string, stdin string) (Result, error)
}

// Result is the captured outcome of a finished program.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// BlockExecutionError is returned when a block's command exits non-zero.
type BlockExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *BlockExecutionError) Error() string {
	return fmt.Sprintf("error occurred during block execution (%s, exit status %d): %s",
		e.Command, e.ExitCode, strings.TrimRight(e.Stderr, "\n"))
}

// execRunner implements CommandRunner with os/exec
type execRunner struct{}

// Run starts the program, writes stdin in full and closes it, then collects
// stdout and stderr once the program exits. Both output pipes are drained
// while stdin is being written.
func (execRunner) Run(ctx context.Context, program string, args []string, stdin string) (Result, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Env = os.Environ()

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %q: %w", program, err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})

	_, writeErr := io.WriteString(stdinPipe, stdin)
	closeErr := stdinPipe.Close()

	readErr := g.Wait()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("run %q: %w", program, ctxErr)
	}

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	case waitErr != nil:
		return Result{}, fmt.Errorf("wait %q: %w", program, waitErr)
	case readErr != nil:
		return Result{}, fmt.Errorf("read output of %q: %w", program, readErr)
	}

	// A program may exit successfully without reading its input.
	if writeErr != nil && !isBrokenPipe(writeErr) {
		return Result{}, fmt.Errorf("write stdin of %q: %w", program, writeErr)
	}
	if closeErr != nil && !isBrokenPipe(closeErr) {
		return Result{}, fmt.Errorf("close stdin of %q: %w", program, closeErr)
	}
	return result, nil
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

// ============================================================================
// Executor
// ============================================================================

// Executor runs block bodies through the command named by their shebang.
type Executor struct {
	runner CommandRunner
}

// NewExecutor creates an executor that spawns real processes
func NewExecutor() *Executor {
	return &Executor{runner: execRunner{}}
}

// WithRunner sets a custom runner implementation (useful for testing)
func (e *Executor) WithRunner(r CommandRunner) *Executor {
	e.runner = r
	return e
}

// Execute runs body through the command described by shebang and returns its
// standard output. Invalid UTF-8 in the output is replaced with U+FFFD.
func (e *Executor) Execute(ctx context.Context, shebang, body string) (string, error) {
	logger := logging.FromContext(ctx)
	program, args := SplitCommand(shebang)

	logger.Debug("executing block", "program", program, "args", args, "body_bytes", len(body))
	start := time.Now()

	result, err := e.runner.Run(ctx, program, args, body)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &BlockExecutionError{
			Command:  shebang,
			ExitCode: result.ExitCode,
			Stderr:   decode(result.Stderr),
		}
	}

	output := decode(result.Stdout)
	logger.Debug("block executed", "program", program, "output_bytes", len(output), "duration", time.Since(start))
	return output, nil
}

// ============================================================================
// Command Building
// ============================================================================

// SplitCommand tokenizes a shebang with shell quoting rules into a program
// and its arguments. Unbalanced quoting falls back to splitting on spaces.
func SplitCommand(shebang string) (string, []string) {
	parts, err := shlex.Split(shebang)
	if err != nil || len(parts) == 0 {
		parts = strings.Split(shebang, " ")
	}
	return parts[0], parts[1:]
}

func decode(b []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(decoded)
}
