package rewrite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akuli/import-that/token"
)

func TestErrorMatchesItsKind(t *testing.T) {
	err := Errorf(InvalidName, token.Pos{Line: 3, Col: 4}, "%q is a reserved word", "if")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.NotErrorIs(t, err, ErrMalformedMarker)
	assert.Equal(t, `line 3: "if" is a reserved word`, err.Error())

	wrapped := fmt.Errorf("demo.py:%w", err)
	assert.ErrorIs(t, wrapped, ErrInvalidName)

	var rerr *Error
	require.True(t, errors.As(wrapped, &rerr))
	assert.Equal(t, 3, rerr.Pos.Line)
}

func TestMultiLineIsAlsoMalformedMarker(t *testing.T) {
	err := Errorf(MultiLineUnsupported, token.Pos{Line: 1}, "multi-line literal")
	assert.ErrorIs(t, err, ErrMultiLineUnsupported)
	assert.ErrorIs(t, err, ErrMalformedMarker)

	other := Errorf(MalformedMarker, token.Pos{Line: 1}, "x")
	assert.NotErrorIs(t, other, ErrMultiLineUnsupported)
}

func TestErrorsWithPositionAreNotSentinels(t *testing.T) {
	a := Errorf(UnbalancedBrackets, token.Pos{Line: 1}, "a")
	b := Errorf(UnbalancedBrackets, token.Pos{Line: 1}, "a")
	assert.False(t, errors.Is(a, b))
}

func TestPrepareRoundTrip(t *testing.T) {
	src := "x = 1  # keep\n"
	s := Prepare(src, nil)
	for s.Cursor.HasNext() {
		_, err := s.Cursor.Next()
		require.NoError(t, err)
	}
	out, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestFinishReportsLexerError(t *testing.T) {
	s := Prepare("x = 'open\n", nil)
	for s.Cursor.HasNext() {
		_, _ = s.Cursor.Next()
	}
	_, err := s.Finish()
	assert.ErrorContains(t, err, "unterminated string literal")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unbalanced brackets", UnbalancedBrackets.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
