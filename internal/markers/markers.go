package markers

import (
	"fmt"
	"regexp"
	"strings"
)

// Default markers recognised when none are configured.
const (
	DefaultStartBlock = "[[[#!"
	DefaultEndBlock   = "]]]"
	DefaultEndOutput  = "[[[end]]]"
)

// Set holds the three textual delimiters of a document.
type Set struct {
	StartBlock string
	EndBlock   string
	EndOutput  string
}

// Default returns the default marker set
func Default() Set {
	return Set{
		StartBlock: DefaultStartBlock,
		EndBlock:   DefaultEndBlock,
		EndOutput:  DefaultEndOutput,
	}
}

// Parse splits a space-separated marker triple such as "[[[#! ]]] [[[end]]]".
// The third part keeps everything after the second space.
func Parse(s string) (Set, error) {
	parts := strings.SplitN(s, " ", 3)
	if len(parts) != 3 {
		return Set{}, fmt.Errorf("invalid markers %q: expected three space-separated values", s)
	}
	set := Set{StartBlock: parts[0], EndBlock: parts[1], EndOutput: parts[2]}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate rejects empty or identical markers
func (s Set) Validate() error {
	if s.StartBlock == "" || s.EndBlock == "" || s.EndOutput == "" {
		return fmt.Errorf("invalid markers %q: markers must not be empty", s.String())
	}
	if s.StartBlock == s.EndBlock || s.StartBlock == s.EndOutput || s.EndBlock == s.EndOutput {
		return fmt.Errorf("invalid markers %q: markers must be distinct", s.String())
	}
	return nil
}

// String renders the set in the same form Parse accepts.
func (s Set) String() string {
	return s.StartBlock + " " + s.EndBlock + " " + s.EndOutput
}

// EndOutputLine is a matched end-of-output line split into its parts.
type EndOutputLine struct {
	Prefix   string // text before the marker
	Marker   string
	Checksum string // empty when the line carries no annotation
	Suffix   string // text after the marker (and annotation)
}

// Classifier matches lines against a marker set. Markers are quoted before
// compilation so they only ever match literally.
type Classifier struct {
	startBlock *regexp.Regexp
	endBlock   *regexp.Regexp
	endOutput  *regexp.Regexp
}

// NewClassifier compiles the matchers for one processing pass.
func NewClassifier(set Set) (*Classifier, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	startBlock, err := regexp.Compile(`^.*` + regexp.QuoteMeta(set.StartBlock) + `(.*)$`)
	if err != nil {
		return nil, fmt.Errorf("compile start marker: %w", err)
	}
	endBlock, err := regexp.Compile(regexp.QuoteMeta(set.EndBlock))
	if err != nil {
		return nil, fmt.Errorf("compile end marker: %w", err)
	}
	endOutput, err := regexp.Compile(`^(.*)(` + regexp.QuoteMeta(set.EndOutput) + `)(?:\s*\(checksum: ([0-9a-f]+)\))?(.*)$`)
	if err != nil {
		return nil, fmt.Errorf("compile end-output marker: %w", err)
	}

	return &Classifier{
		startBlock: startBlock,
		endBlock:   endBlock,
		endOutput:  endOutput,
	}, nil
}

// StartOfBlock reports whether line opens a block and returns the trimmed
// command specification following the marker.
func (c *Classifier) StartOfBlock(line string) (string, bool) {
	matches := c.startBlock.FindStringSubmatch(line)
	if matches == nil {
		return "", false
	}
	return strings.TrimSpace(matches[1]), true
}

// EndOfBlock reports whether line closes a block's source.
func (c *Classifier) EndOfBlock(line string) bool {
	return c.endBlock.MatchString(line)
}

// EndOfOutput reports whether line closes an output region.
func (c *Classifier) EndOfOutput(line string) (EndOutputLine, bool) {
	matches := c.endOutput.FindStringSubmatch(line)
	if matches == nil {
		return EndOutputLine{}, false
	}
	return EndOutputLine{
		Prefix:   matches[1],
		Marker:   matches[2],
		Checksum: matches[3],
		Suffix:   matches[4],
	}, true
}

// Render rebuilds the line with the given annotation in place of any
// previous one.
func (l EndOutputLine) Render(annotation string) string {
	return l.Prefix + l.Marker + annotation + l.Suffix
}
