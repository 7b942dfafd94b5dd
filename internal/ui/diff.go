package ui

import (
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffOp classifies one line of a diff
type DiffOp int

const (
	DiffSame DiffOp = iota
	DiffRemoved
	DiffAdded
)

// DiffLine is one line of a line-level diff, without its newline
type DiffLine struct {
	Op   DiffOp
	Text string
}

// Diff compares two documents line by line
func Diff(original, produced string) []DiffLine {
	a := splitLines(original)
	b := splitLines(produced)

	var lines []DiffLine
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'e':
			lines = appendLines(lines, DiffSame, a[op.I1:op.I2])
		case 'd':
			lines = appendLines(lines, DiffRemoved, a[op.I1:op.I2])
		case 'i':
			lines = appendLines(lines, DiffAdded, b[op.J1:op.J2])
		case 'r':
			lines = appendLines(lines, DiffRemoved, a[op.I1:op.I2])
			lines = appendLines(lines, DiffAdded, b[op.J1:op.J2])
		}
	}
	return lines
}

// Changed reports whether any line differs
func Changed(lines []DiffLine) bool {
	for _, line := range lines {
		if line.Op != DiffSame {
			return true
		}
	}
	return false
}

// RenderDiff formats a diff with a one-character gutter, highlighting
// removed and added lines
func (s *StyleManager) RenderDiff(lines []DiffLine) string {
	var b strings.Builder
	for _, line := range lines {
		switch line.Op {
		case DiffRemoved:
			b.WriteString(s.Removed.Render("-" + line.Text))
		case DiffAdded:
			b.WriteString(s.Added.Render("+" + line.Text))
		default:
			b.WriteString(s.Same.Render(" " + line.Text))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteDiff renders the difference between two documents to w
func WriteDiff(w io.Writer, original, produced, colorMode string) error {
	styles := DefaultStyles(NewRenderer(w, colorMode))
	_, err := io.WriteString(w, styles.RenderDiff(Diff(original, produced)))
	return err
}

func appendLines(dst []DiffLine, op DiffOp, src []string) []DiffLine {
	for _, text := range src {
		dst = append(dst, DiffLine{Op: op, Text: strings.TrimSuffix(text, "\n")})
	}
	return dst
}

// splitLines keeps line terminators so a missing final newline shows up as
// a difference
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
