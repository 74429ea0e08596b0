package linebuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akuli/import-that/token"
)

func TestNoEditsRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"x",
		"x\n",
		"a\nb\n\nc",
		"a\r\nb\r\n",
	}
	for _, in := range inputs {
		b := New(in)
		out, err := b.Serialize()
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.False(t, b.Edited())
	}
}

func TestLinesKeepTerminators(t *testing.T) {
	b := New("ab\ncd")
	assert.Equal(t, 2, b.NumLines())
	assert.Equal(t, "ab\n", b.Line(1))
	assert.Equal(t, "cd", b.Line(2))
	assert.Equal(t, "", b.Line(0))
	assert.Equal(t, "", b.Line(3))
	assert.Equal(t, token.Pos{Line: 2, Col: 2}, b.End())
}

func TestEditsUseOriginalColumns(t *testing.T) {
	// Two replacements and an insertion on one line: each column refers to
	// the original text, not to text shifted by an earlier edit.
	b := New("a;b;c\n")
	require.NoError(t, b.ReplaceRange(1, 1, 2, "\n"))
	require.NoError(t, b.ReplaceRange(1, 3, 4, "\n"))
	require.NoError(t, b.InsertAt(1, 0, ">> "))
	out, err := b.Serialize()
	require.NoError(t, err)
	assert.Equal(t, ">> a\nb\nc\n", out)
}

func TestEditOrderDoesNotMatter(t *testing.T) {
	type op struct {
		line, start, end int
		text             string
	}
	ops := []op{
		{1, 1, 2, "\n"},
		{1, 3, 4, "\n"},
		{2, 0, 0, "# "},
		{2, 6, 6, "self, "},
	}

	forward := New("a;b;c\ndef f(x): pass\n")
	for _, o := range ops {
		require.NoError(t, forward.ReplaceRange(o.line, o.start, o.end, o.text))
	}
	reverse := New("a;b;c\ndef f(x): pass\n")
	for i := len(ops) - 1; i >= 0; i-- {
		o := ops[i]
		require.NoError(t, reverse.ReplaceRange(o.line, o.start, o.end, o.text))
	}

	fw, err := forward.Serialize()
	require.NoError(t, err)
	rv, err := reverse.Serialize()
	require.NoError(t, err)
	assert.Equal(t, fw, rv)
	assert.Equal(t, "a\nb\nc\n# def f(self, x): pass\n", fw)
}

func TestInsertionsAtSameColumnKeepQueueOrder(t *testing.T) {
	b := New("()\n")
	require.NoError(t, b.InsertAt(1, 1, "self"))
	require.NoError(t, b.InsertAt(1, 1, ", x"))
	assert.Equal(t, "(self, x)\n", b.String())
}

func TestInsertBeforeDeletionAtSameColumn(t *testing.T) {
	b := New("implicit def f(): pass\n")
	require.NoError(t, b.DeleteRange(1, 0, 9))
	require.NoError(t, b.InsertAt(1, 0, "async "))
	assert.Equal(t, "async def f(): pass\n", b.String())
}

func TestOverlappingEditsFail(t *testing.T) {
	b := New("abcdef\n")
	require.NoError(t, b.DeleteRange(1, 0, 4))
	require.NoError(t, b.DeleteRange(1, 2, 5))
	_, err := b.Serialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Contains(t, err.Error(), "line 1: overlapping edits")
}

func TestInsertInsideDeletionFails(t *testing.T) {
	b := New("abcdef\n")
	require.NoError(t, b.DeleteRange(1, 0, 4))
	require.NoError(t, b.InsertAt(1, 2, "x"))
	_, err := b.Serialize()
	assert.Error(t, err)
}

func TestBoundsAreChecked(t *testing.T) {
	b := New("abc\n")
	assert.Error(t, b.InsertAt(0, 0, "x"))
	assert.Error(t, b.InsertAt(2, 0, "x"))
	assert.Error(t, b.InsertAt(1, 5, "x"))
	assert.Error(t, b.DeleteRange(1, 2, 1))
	assert.NoError(t, b.InsertAt(1, 4, "x"))
}

func TestReplaceSpanAcrossLines(t *testing.T) {
	b := New("if x {\n    y\n}\n")
	start := token.Pos{Line: 1, Col: 4}
	end := token.Pos{Line: 2, Col: 4}
	assert.Equal(t, " {\n    ", b.Slice(start, end))

	require.NoError(t, b.ReplaceSpan(start, end, ":\n    "))
	require.NoError(t, b.DeleteSpan(token.Pos{Line: 2, Col: 5}, token.Pos{Line: 3, Col: 1}))
	assert.Equal(t, "if x:\n    y\n", b.String())
}

func TestReplaceSpanRejectsReversedSpan(t *testing.T) {
	b := New("ab\ncd\n")
	err := b.ReplaceSpan(token.Pos{Line: 2, Col: 0}, token.Pos{Line: 1, Col: 1}, "")
	assert.Error(t, err)
}
