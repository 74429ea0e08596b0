// Package cursor wraps a token source with one token of lookahead and a
// per-idiom filter of insignificant tokens.
package cursor

import (
	"errors"

	"github.com/Akuli/import-that/token"
)

// ErrEndOfStream is returned by Next when no tokens are left.
var ErrEndOfStream = errors.New("end of token stream")

// Source produces tokens. The lexer satisfies it.
type Source interface {
	Next() (token.Token, error)
}

// Cursor iterates over the significant tokens of a Source. The EOF token
// ends the stream and is never returned.
type Cursor struct {
	src    Source
	skip   map[token.Kind]bool
	peeked *token.Token
	done   bool
	err    error
}

// New returns a cursor over src that silently drops tokens of the given
// kinds. Which kinds are dropped is the caller's choice: the brace idiom
// drops line structure entirely, the interpolation idiom keeps
// everything.
func New(src Source, skip ...token.Kind) *Cursor {
	c := &Cursor{src: src, skip: make(map[token.Kind]bool, len(skip))}
	for _, k := range skip {
		c.skip[k] = true
	}
	return c
}

// fetch fills the peek slot. It reports false at the end of the stream or
// on a source error.
func (c *Cursor) fetch() bool {
	if c.peeked != nil {
		return true
	}
	if c.done || c.err != nil {
		return false
	}
	for {
		tok, err := c.src.Next()
		if err != nil {
			c.err = err
			return false
		}
		if tok.Kind == token.EOF {
			c.done = true
			return false
		}
		if c.skip[tok.Kind] {
			continue
		}
		c.peeked = &tok
		return true
	}
}

// Peek returns the next token without consuming it.
func (c *Cursor) Peek() (token.Token, bool) {
	if !c.fetch() {
		return token.Token{}, false
	}
	return *c.peeked, true
}

// Next consumes and returns the next token. It returns the source error,
// if any, or ErrEndOfStream once the stream is exhausted.
func (c *Cursor) Next() (token.Token, error) {
	if !c.fetch() {
		if c.err != nil {
			return token.Token{}, c.err
		}
		return token.Token{}, ErrEndOfStream
	}
	tok := *c.peeked
	c.peeked = nil
	return tok, nil
}

// HasNext reports whether Next would return a token.
func (c *Cursor) HasNext() bool { return c.fetch() }

// Err returns the source error that stopped the stream, if any.
func (c *Cursor) Err() error { return c.err }
