// Package rewrite holds what the token rewriters share: the error
// taxonomy and the lex/cursor/buffer setup every rewrite starts from.
//
// Every rewriter walks its cursor once, left to right, consuming at least
// one token per step, and records edits in a linebuf.Buffer keyed by the
// lexer's original coordinates. A rewrite that finds nothing to change
// returns its input byte for byte.
package rewrite

import (
	"fmt"

	"github.com/Akuli/import-that/cursor"
	"github.com/Akuli/import-that/lexer"
	"github.com/Akuli/import-that/linebuf"
	"github.com/Akuli/import-that/token"
)

// Kind classifies a rewrite failure.
type Kind int

const (
	_ Kind = iota
	MalformedMarker
	InvalidName
	MissingParameterList
	MissingBlock
	UnbalancedBrackets
	UnterminatedBlock
	NestedBlock
	MultiLineUnsupported
)

var kindNames = map[Kind]string{
	MalformedMarker:      "malformed marker",
	InvalidName:          "invalid name",
	MissingParameterList: "missing parameter list",
	MissingBlock:         "missing block",
	UnbalancedBrackets:   "unbalanced brackets",
	UnterminatedBlock:    "unterminated block",
	NestedBlock:          "nested implicit block",
	MultiLineUnsupported: "multi-line literal unsupported",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a rewrite failure at a source position. It matches the
// sentinel of its kind with errors.Is; MultiLineUnsupported also matches
// ErrMalformedMarker.
type Error struct {
	Kind Kind
	Pos  token.Pos
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg)
}

// Is matches sentinels, which carry a Kind and nothing else.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Pos != (token.Pos{}) {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == MultiLineUnsupported && t.Kind == MalformedMarker
}

// Sentinels for errors.Is.
var (
	ErrMalformedMarker      = &Error{Kind: MalformedMarker}
	ErrInvalidName          = &Error{Kind: InvalidName}
	ErrMissingParameterList = &Error{Kind: MissingParameterList}
	ErrMissingBlock         = &Error{Kind: MissingBlock}
	ErrUnbalancedBrackets   = &Error{Kind: UnbalancedBrackets}
	ErrUnterminatedBlock    = &Error{Kind: UnterminatedBlock}
	ErrNestedBlock          = &Error{Kind: NestedBlock}
	ErrMultiLineUnsupported = &Error{Kind: MultiLineUnsupported}
)

// Errorf builds an *Error of the given kind at pos.
func Errorf(kind Kind, pos token.Pos, format string, args ...any) error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Session is the per-call state of one rewrite. It is never shared or
// reused across calls.
type Session struct {
	Cursor *cursor.Cursor
	Buffer *linebuf.Buffer
}

// Prepare lexes src and returns a fresh session whose cursor skips the
// given token kinds.
func Prepare(src string, lexOpts []lexer.Option, skip ...token.Kind) *Session {
	return &Session{
		Cursor: cursor.New(lexer.New(src, lexOpts...), skip...),
		Buffer: linebuf.New(src),
	}
}

// Finish checks the cursor for a lexer error and serializes the buffer.
func (s *Session) Finish() (string, error) {
	if err := s.Cursor.Err(); err != nil {
		return "", err
	}
	return s.Buffer.Serialize()
}
