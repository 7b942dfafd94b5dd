package corg

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubarz/corg/internal/checksum"
	"github.com/gubarz/corg/internal/executor"
	"github.com/gubarz/corg/internal/markers"
)

// scriptExecutor prints the argument of every "echo" line and fails on "fail".
type scriptExecutor struct {
	calls int
}

func (s *scriptExecutor) Execute(_ context.Context, shebang, body string) (string, error) {
	s.calls++
	var out strings.Builder
	for _, line := range strings.Split(body, "\n") {
		switch {
		case line == "fail":
			return "", &executor.BlockExecutionError{Command: shebang, ExitCode: 1, Stderr: "failed\n"}
		case strings.HasPrefix(line, "echo "):
			out.WriteString(strings.TrimPrefix(line, "echo ") + "\n")
		}
	}
	return out.String(), nil
}

func newTestProcessor(opts Options) (*Processor, *scriptExecutor) {
	script := &scriptExecutor{}
	return NewProcessor(opts).WithExecutor(script), script
}

const basicInput = `
[[[#!bash
echo 1
]]]
[[[end]]]`

func TestProcessDefault(t *testing.T) {
	p, _ := newTestProcessor(DefaultOptions())
	out, err := p.Process(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestProcessWarnIfNoBlocks(t *testing.T) {
	opts := DefaultOptions()
	opts.WarnIfNoBlocks = true
	p, _ := newTestProcessor(opts)

	_, err := p.Process(context.Background(), "")
	require.ErrorIs(t, err, ErrNoBlocksDetected)
	assert.Equal(t, ExitOK, ExitCode(err))

	_, err = p.Process(context.Background(), "just text\n")
	require.ErrorIs(t, err, ErrNoBlocksDetected)

	out, err := p.Process(context.Background(), basicInput)
	require.NoError(t, err)
	assert.Contains(t, out, "\n1\n")
}

func TestProcessMarkerRetention(t *testing.T) {
	p, _ := newTestProcessor(DefaultOptions())
	out, err := p.Process(context.Background(), basicInput)
	require.NoError(t, err)
	assert.Equal(t, "\n[[[#!bash\necho 1\n]]]\n1\n[[[end]]]\n", out)

	opts := DefaultOptions()
	opts.DeleteBlocks = true
	p, _ = newTestProcessor(opts)
	out, err = p.Process(context.Background(), basicInput)
	require.NoError(t, err)
	assert.Equal(t, "\n1\n", out)
}

func TestProcessOmitOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.OmitOutput = true
	p, script := newTestProcessor(opts)

	out, err := p.Process(context.Background(), basicInput)
	require.NoError(t, err)
	assert.Equal(t, "\n[[[#!bash\necho 1\n]]]\n[[[end]]]\n", out)
	assert.Zero(t, script.calls)
}

func TestProcessCheckOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckOnly = true
	p, _ := newTestProcessor(opts)

	_, err := p.Process(context.Background(), basicInput)
	var checkErr *CheckFailedError
	require.True(t, errors.As(err, &checkErr))
	assert.Equal(t, basicInput, checkErr.Original)
	assert.Equal(t, "\n[[[#!bash\necho 1\n]]]\n1\n[[[end]]]\n", checkErr.Produced)
	assert.Equal(t, ExitCheckFailed, ExitCode(err))

	out, err := p.Process(context.Background(), checkErr.Produced)
	require.NoError(t, err)
	assert.Equal(t, checkErr.Produced, out)
}

func TestProcessIdempotent(t *testing.T) {
	inputs := []string{
		basicInput,
		"a\n[[[#!bash\necho 1\n]]]\nstale\n[[[end]]]\nb\n[[[#!bash\necho 2\necho 3\n]]]\n[[[end]]]\n",
		"no blocks at all",
	}

	for _, checksumEnabled := range []bool{false, true} {
		opts := DefaultOptions()
		opts.Checksum = checksumEnabled
		p, _ := newTestProcessor(opts)

		for _, input := range inputs {
			once, err := p.Process(context.Background(), input)
			require.NoError(t, err)
			twice, err := p.Process(context.Background(), once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		}
	}
}

func TestProcessChecksumRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Checksum = true
	p, _ := newTestProcessor(opts)

	stamped, err := p.Process(context.Background(), basicInput)
	require.NoError(t, err)
	assert.Contains(t, stamped, "[[[end]]] (checksum: "+checksum.Digest("1\n")+")")

	_, err = p.Process(context.Background(), stamped)
	require.NoError(t, err)

	edited := strings.Replace(stamped, "]]]\n1\n", "]]]\n10\n", 1)
	_, err = p.Process(context.Background(), edited)
	var mismatch *checksum.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, ExitChecksumMismatch, ExitCode(err))
}

func TestProcessBlockExecutionError(t *testing.T) {
	p, script := newTestProcessor(DefaultOptions())

	out, err := p.Process(context.Background(), "[[[#!bash\nfail\n]]]\n[[[end]]]\n"+basicInput)
	assert.Empty(t, out)
	assert.Equal(t, ExitBlockExecution, ExitCode(err))
	assert.Equal(t, 1, script.calls)
}

func TestProcessInvalidMarkers(t *testing.T) {
	p, _ := newTestProcessor(Options{Markers: markers.Set{StartBlock: "x", EndBlock: "x", EndOutput: "y"}})
	_, err := p.Process(context.Background(), "x")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestProcessMissingProgramIsIOError(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	_, err := p.Process(context.Background(), "[[[#!corg-definitely-not-a-program\n]]]\n[[[end]]]\n")

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, ExitIO, ExitCode(err))
}

func TestProcessWithBash(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skipf("bash not available: %v", err)
	}

	opts := DefaultOptions()
	opts.DeleteBlocks = true
	input := "\n[[[#!bash\necho 1\n]]]\n[[[end]]]\n+\n[[[#!bash\necho 2\n]]]\n[[[end]]]\n"

	out, err := NewProcessor(opts).Process(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "\n1\n+\n2\n", out)

	_, err = NewProcessor(DefaultOptions()).Process(context.Background(), "[[[#!bash\necho oops >&2; exit 4\n]]]\n[[[end]]]\n")
	var blockErr *executor.BlockExecutionError
	require.True(t, errors.As(err, &blockErr))
	assert.Equal(t, "oops\n", blockErr.Stderr)
}
