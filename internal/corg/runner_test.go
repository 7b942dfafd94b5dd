package corg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunnerStdinToStdout(t *testing.T) {
	var stdout bytes.Buffer
	r := &Runner{Input: StdioPath, Stdin: strings.NewReader(basicInput), Stdout: &stdout}
	p, _ := newTestProcessor(DefaultOptions())

	require.NoError(t, r.Execute(context.Background(), p))
	assert.Equal(t, "\n[[[#!bash\necho 1\n]]]\n1\n[[[end]]]\n", stdout.String())
}

func TestRunnerOutputFile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.txt", basicInput)
	output := filepath.Join(dir, "nested", "deeper", "out.txt")

	var stdout bytes.Buffer
	r := &Runner{Input: input, Output: output, Stdout: &stdout}
	p, _ := newTestProcessor(DefaultOptions())

	require.NoError(t, r.Execute(context.Background(), p))
	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "\n[[[#!bash\necho 1\n]]]\n1\n[[[end]]]\n", string(written))
	assert.Empty(t, stdout.String())
}

func TestRunnerReplaceOverridesOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.md", basicInput)

	r := &Runner{Input: input, Output: filepath.Join(dir, "ignored.md"), Replace: true}
	assert.Equal(t, input, r.Target())

	p, _ := newTestProcessor(DefaultOptions())
	require.NoError(t, r.Execute(context.Background(), p))

	written, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Contains(t, string(written), "]]]\n1\n[[[end]]]")
	assert.NoFileExists(t, filepath.Join(dir, "ignored.md"))
}

func TestRunnerReplaceWithStdinWritesStdout(t *testing.T) {
	r := &Runner{Input: StdioPath, Replace: true}
	assert.Equal(t, "", r.Target())
}

func TestRunnerCheckOnlyNeverWrites(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.md", basicInput)

	opts := DefaultOptions()
	opts.CheckOnly = true
	p, _ := newTestProcessor(opts)

	var stdout bytes.Buffer
	r := &Runner{Input: input, Replace: true, Stdout: &stdout}
	err := r.Execute(context.Background(), p)
	assert.Equal(t, ExitCheckFailed, ExitCode(err))

	unchanged, readErr := os.ReadFile(input)
	require.NoError(t, readErr)
	assert.Equal(t, basicInput, string(unchanged))

	current := writeFile(t, dir, "current.md", "[[[#!bash\necho 1\n]]]\n1\n[[[end]]]\n")
	r = &Runner{Input: current, Stdout: &stdout}
	require.NoError(t, r.Execute(context.Background(), p))
	assert.Empty(t, stdout.String())
}

func TestRunnerErrorsWriteNothing(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "doc.md", "[[[#!bash\nfail\n]]]\n[[[end]]]\n")
	output := filepath.Join(dir, "out.md")

	p, _ := newTestProcessor(DefaultOptions())
	r := &Runner{Input: input, Output: output}
	err := r.Execute(context.Background(), p)
	assert.Equal(t, ExitBlockExecution, ExitCode(err))
	assert.NoFileExists(t, output)
}

func TestRunnerMissingInput(t *testing.T) {
	r := &Runner{Input: filepath.Join(t.TempDir(), "missing.md")}
	p, _ := newTestProcessor(DefaultOptions())

	err := r.Execute(context.Background(), p)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, ExitIO, ExitCode(err))
}
