package parser

import (
	"bufio"
	"context"
	"strings"

	"github.com/gubarz/corg/internal/checksum"
	"github.com/gubarz/corg/internal/logging"
	"github.com/gubarz/corg/internal/markers"
)

// BlockExecutor runs a block body through the command named by its shebang.
type BlockExecutor interface {
	Execute(ctx context.Context, shebang, body string) (string, error)
}

// Options controls how a document is rewritten.
type Options struct {
	Markers      markers.Set
	DeleteBlocks bool              // drop marker lines and block bodies from the output
	OmitOutput   bool              // never run blocks, drop their previous output
	Checksum     checksum.Verifier // stamp and verify end-of-output lines
}

// OutputState is the text assembled so far.
type OutputState struct {
	output      []byte
	blocksFound bool
}

// Output returns the assembled document
func (s OutputState) Output() string {
	return string(s.output)
}

// BlocksFound reports whether at least one start-of-block line was seen
func (s OutputState) BlocksFound() bool {
	return s.blocksFound
}

func (s OutputState) appendLine(line string) OutputState {
	s.output = append(s.output, line...)
	s.output = append(s.output, '\n')
	return s
}

func (s OutputState) appendText(text string) OutputState {
	s.output = append(s.output, text...)
	return s
}

// ============================================================================
// Parse States
// ============================================================================

type stateKind int

const (
	stateRawText stateKind = iota
	stateCodePending
	stateOutputPending
	stateDone
)

// parseState is a tagged value: shebang and code are only set while
// kind is stateOutputPending.
type parseState struct {
	kind    stateKind
	out     OutputState
	shebang string
	code    string
}

func rawText(out OutputState) parseState {
	return parseState{kind: stateRawText, out: out}
}

func codePending(out OutputState) parseState {
	return parseState{kind: stateCodePending, out: out}
}

func outputPending(out OutputState, shebang, code string) parseState {
	return parseState{kind: stateOutputPending, out: out, shebang: shebang, code: code}
}

func done(out OutputState) parseState {
	return parseState{kind: stateDone, out: out}
}

// ============================================================================
// Evaluation
// ============================================================================

// machine holds everything a pass needs besides the state itself.
type machine struct {
	lines      *lineCursor
	classifier *markers.Classifier
	opts       Options
	exec       BlockExecutor
}

// Evaluate scans input line by line, running every block and replacing its
// previous output with the fresh one. Matchers are compiled from
// opts.Markers on every call.
func Evaluate(ctx context.Context, input string, opts Options, exec BlockExecutor) (OutputState, error) {
	classifier, err := markers.NewClassifier(opts.Markers)
	if err != nil {
		return OutputState{}, err
	}

	lines, err := splitLines(input)
	if err != nil {
		return OutputState{}, err
	}

	m := &machine{
		lines:      &lineCursor{lines: lines},
		classifier: classifier,
		opts:       opts,
		exec:       exec,
	}

	state := rawText(OutputState{})
	for {
		switch state.kind {
		case stateRawText:
			state = m.consumeRawText(state)
		case stateCodePending:
			state = m.consumeCode(ctx, state)
		case stateOutputPending:
			state, err = m.produceOutput(ctx, state)
			if err != nil {
				return OutputState{}, err
			}
		case stateDone:
			return state.out, nil
		}
	}
}

// consumeRawText copies lines verbatim until a start-of-block line, which is
// left for consumeCode.
func (m *machine) consumeRawText(state parseState) parseState {
	out := state.out
	for {
		line, ok := m.lines.peek()
		if !ok {
			return done(out)
		}
		if _, start := m.classifier.StartOfBlock(line); start {
			return codePending(out)
		}
		m.lines.next()
		out = out.appendLine(line)
	}
}

// consumeCode reads the start-of-block line and the body up to and including
// the end-of-block line. A block left open at end of input is dropped.
func (m *machine) consumeCode(ctx context.Context, state parseState) parseState {
	out := state.out
	out.blocksFound = true

	line, _ := m.lines.next()
	shebang, _ := m.classifier.StartOfBlock(line)
	out = m.addMetaLine(out, line)

	logging.FromContext(ctx).Debug("block found", "line", m.lines.pos, "shebang", shebang)

	var code strings.Builder
	for {
		line, ok := m.lines.next()
		if !ok {
			return done(out)
		}
		out = m.addMetaLine(out, line)
		if m.classifier.EndOfBlock(line) {
			return outputPending(out, shebang, code.String())
		}
		code.WriteString(line)
		code.WriteByte('\n')
	}
}

// produceOutput discards the previous output of a block and replaces it with
// the fresh one, followed by the (possibly re-annotated) end-of-output line.
func (m *machine) produceOutput(ctx context.Context, state parseState) (parseState, error) {
	out := state.out
	var previous strings.Builder
	for {
		line, ok := m.lines.next()
		if !ok {
			if m.opts.OmitOutput {
				return done(out), nil
			}
			output, err := m.execute(ctx, state)
			if err != nil {
				return parseState{}, err
			}
			return done(out.appendText(output)), nil
		}

		end, ok := m.classifier.EndOfOutput(line)
		if !ok {
			previous.WriteString(line)
			previous.WriteByte('\n')
			continue
		}

		if m.opts.OmitOutput {
			return rawText(m.addMetaLine(out, line)), nil
		}

		if err := m.opts.Checksum.VerifyEmbedded(previous.String(), end.Checksum); err != nil {
			return parseState{}, err
		}
		output, err := m.execute(ctx, state)
		if err != nil {
			return parseState{}, err
		}
		annotation, err := m.opts.Checksum.StampOrVerify(output, end.Checksum)
		if err != nil {
			return parseState{}, err
		}
		if annotation != "" {
			logging.FromContext(ctx).Debug("output stamped", "line", m.lines.pos, "annotation", strings.TrimSpace(annotation))
		}

		out = out.appendText(output)
		return rawText(m.addMetaLine(out, end.Render(annotation))), nil
	}
}

// execute runs the pending block and normalizes its output to complete
// "\n"-terminated lines, the same form the output takes once it is read back.
func (m *machine) execute(ctx context.Context, state parseState) (string, error) {
	output, err := m.exec.Execute(ctx, state.shebang, state.code)
	if err != nil {
		return "", err
	}
	lines, err := splitLines(output)
	if err != nil {
		return "", err
	}
	var normalized strings.Builder
	for _, line := range lines {
		normalized.WriteString(line)
		normalized.WriteByte('\n')
	}
	return normalized.String(), nil
}

func (m *machine) addMetaLine(out OutputState, line string) OutputState {
	if m.opts.DeleteBlocks {
		return out
	}
	return out.appendLine(line)
}

// ============================================================================
// Line Cursor
// ============================================================================

type lineCursor struct {
	lines []string
	pos   int
}

func (c *lineCursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return c.lines[c.pos], true
}

func (c *lineCursor) next() (string, bool) {
	line, ok := c.peek()
	if ok {
		c.pos++
	}
	return line, ok
}

// splitLines breaks input into lines without their terminators. A trailing
// "\r" is stripped and a final newline does not yield an empty line.
func splitLines(input string) ([]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), len(input)+1)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
