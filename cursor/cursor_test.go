package cursor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akuli/import-that/lexer"
	"github.com/Akuli/import-that/token"
)

type sliceSource struct {
	toks []token.Token
	err  error
}

func (s *sliceSource) Next() (token.Token, error) {
	if len(s.toks) == 0 {
		if s.err != nil {
			return token.Token{}, s.err
		}
		return token.Token{Kind: token.EOF}, nil
	}
	t := s.toks[0]
	s.toks = s.toks[1:]
	return t, nil
}

func TestPeekDoesNotConsume(t *testing.T) {
	c := New(lexer.New("a b"))
	tok, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Text)

	tok, ok = c.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Text)

	got, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", got.Text)

	tok, ok = c.Peek()
	require.True(t, ok)
	assert.Equal(t, "b", tok.Text)
}

func TestNextAtEndOfStream(t *testing.T) {
	c := New(lexer.New("a"), token.NEWLINE)
	_, err := c.Next()
	require.NoError(t, err)
	assert.False(t, c.HasNext())

	_, ok := c.Peek()
	assert.False(t, ok)

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestFilterIsPerCursor(t *testing.T) {
	src := "a # c\n\nb\n"

	var all []token.Kind
	c := New(lexer.New(src))
	for c.HasNext() {
		tok, err := c.Next()
		require.NoError(t, err)
		all = append(all, tok.Kind)
	}
	assert.Contains(t, all, token.COMMENT)
	assert.Contains(t, all, token.NL)

	var filtered []string
	c = New(lexer.New(src), token.COMMENT, token.NL, token.NEWLINE)
	for c.HasNext() {
		tok, err := c.Next()
		require.NoError(t, err)
		filtered = append(filtered, tok.Text)
	}
	assert.Equal(t, []string{"a", "b"}, filtered)
}

func TestSourceErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	c := New(&sliceSource{toks: []token.Token{{Kind: token.NAME, Text: "x"}}, err: boom})

	tok, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", tok.Text)

	assert.False(t, c.HasNext())
	_, err = c.Next()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Err(), boom)
}
