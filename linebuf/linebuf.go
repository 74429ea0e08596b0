// Package linebuf holds source text as per-line buffers addressed by the
// (line, column) coordinates the lexer reported.
//
// Each line that receives edits gets its own edit.Buffer, so a column is
// directly an offset into that buffer. Edits are queued, not applied: every
// edit keeps referring to original coordinates no matter how many other
// edits touch the same line, and Serialize rebuilds each line in one pass.
// Lines keep their own terminator, so deleting to the end of a line removes
// the line break without shifting any other line.
package linebuf

import (
	"errors"
	"fmt"
	"strings"

	"rsc.io/rf/edit"

	"github.com/Akuli/import-that/token"
)

// ErrOverlap is reported by Serialize when two edits of a line overlap.
var ErrOverlap = errors.New("overlapping edits")

// Buffer is a queue of edits over a fixed original text.
type Buffer struct {
	lines  []string // lines[0] is unused so that line numbers are 1-based
	edits  map[int]*edit.Buffer
	edited bool
}

// New splits text into lines, each keeping its terminator.
func New(text string) *Buffer {
	b := &Buffer{lines: []string{""}, edits: make(map[int]*edit.Buffer)}
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			b.lines = append(b.lines, text)
			break
		}
		b.lines = append(b.lines, text[:i+1])
		text = text[i+1:]
	}
	return b
}

// NumLines returns the number of physical lines.
func (b *Buffer) NumLines() int { return len(b.lines) - 1 }

// Line returns the original text of line n, terminator included.
func (b *Buffer) Line(n int) string {
	if n < 1 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n]
}

// End returns the position just past the last byte of the text.
func (b *Buffer) End() token.Pos {
	n := b.NumLines()
	if n == 0 {
		return token.Pos{Line: 1, Col: 0}
	}
	return token.Pos{Line: n, Col: len(b.lines[n])}
}

// InsertAt queues an insertion of text before column col of line.
func (b *Buffer) InsertAt(line, col int, text string) error {
	return b.ReplaceRange(line, col, col, text)
}

// DeleteRange queues the removal of columns [start, end) of line.
func (b *Buffer) DeleteRange(line, start, end int) error {
	return b.ReplaceRange(line, start, end, "")
}

// ReplaceRange queues the replacement of columns [start, end) of line.
func (b *Buffer) ReplaceRange(line, start, end int, text string) error {
	if err := b.check(line, start, end); err != nil {
		return err
	}
	if start == end && text == "" {
		return nil
	}
	ed := b.edits[line]
	if ed == nil {
		ed = edit.NewBuffer([]byte(b.lines[line]))
		b.edits[line] = ed
	}
	// At equal columns insertions go before deletions, otherwise queue
	// order decides.
	ed.Replace(start, end, text)
	b.edited = true
	return nil
}

// ReplaceSpan replaces the text between two positions, which may be on
// different lines. The replacement text is placed at start; the rest of the
// span is deleted line by line.
func (b *Buffer) ReplaceSpan(start, end token.Pos, text string) error {
	if end.Before(start) {
		return fmt.Errorf("span %s-%s: end before start", start, end)
	}
	if start.Line == end.Line {
		return b.ReplaceRange(start.Line, start.Col, end.Col, text)
	}
	if err := b.ReplaceRange(start.Line, start.Col, len(b.Line(start.Line)), text); err != nil {
		return err
	}
	for l := start.Line + 1; l < end.Line; l++ {
		if err := b.DeleteRange(l, 0, len(b.lines[l])); err != nil {
			return err
		}
	}
	return b.DeleteRange(end.Line, 0, end.Col)
}

// DeleteSpan removes the text between two positions.
func (b *Buffer) DeleteSpan(start, end token.Pos) error {
	return b.ReplaceSpan(start, end, "")
}

// Slice returns the original text between two positions.
func (b *Buffer) Slice(start, end token.Pos) string {
	if start.Line == end.Line {
		return b.Line(start.Line)[start.Col:end.Col]
	}
	var sb strings.Builder
	sb.WriteString(b.Line(start.Line)[start.Col:])
	for l := start.Line + 1; l < end.Line; l++ {
		sb.WriteString(b.lines[l])
	}
	sb.WriteString(b.Line(end.Line)[:end.Col])
	return sb.String()
}

// Edited reports whether any edit has been queued.
func (b *Buffer) Edited() bool { return b.edited }

func (b *Buffer) check(line, start, end int) error {
	if line < 1 || line >= len(b.lines) {
		return fmt.Errorf("line %d out of range (1-%d)", line, b.NumLines())
	}
	if start < 0 || end < start || end > len(b.lines[line]) {
		return fmt.Errorf("line %d: columns [%d, %d) out of range (0-%d)", line, start, end, len(b.lines[line]))
	}
	return nil
}

// Serialize applies every queued edit and returns the resulting text. The
// original coordinates of all edits are honored regardless of the order in
// which they were queued. Overlapping deletions are an error.
func (b *Buffer) Serialize() (string, error) {
	var sb strings.Builder
	for n := 1; n < len(b.lines); n++ {
		line, err := b.apply(n)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}
	return sb.String(), nil
}

// String is Serialize for callers that know the edits are consistent.
func (b *Buffer) String() string {
	s, err := b.Serialize()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return s
}

func (b *Buffer) apply(n int) (line string, err error) {
	ed := b.edits[n]
	if ed == nil {
		return b.lines[n], nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("line %d: %w (%v)", n, ErrOverlap, r)
		}
	}()
	return ed.String(), nil
}
