// Package fstrings lowers interpolated string literals for runtimes that
// predate them:
//
//	f"{a} and {b!r}"
//
// becomes
//
//	__import__("fstrings_support").format("{a} and {b!r}", locals(), globals())
//
// The support module evaluates each placeholder against the caller's
// scope, locals first. A marker that is not immediately followed by a
// string literal is an ordinary identifier and is left alone.
package fstrings

import (
	"fmt"

	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/rewrite"
	"github.com/Akuli/import-that/token"
)

// Name is the codec name this rewriter registers under.
const Name = "fstrings"

// Config names the marker and the support call the literal is lowered to.
type Config struct {
	Marker string
	Module string
	Func   string
}

// DefaultConfig is used by Rewrite and the registered codec.
var DefaultConfig = Config{Marker: "f", Module: "fstrings_support", Func: "format"}

func init() {
	codec.Register(codec.NewTransform(Name, "interpolated string literals lowered to a support call", Rewrite))
}

// Rewrite rewrites src with DefaultConfig.
func Rewrite(src string) (string, error) {
	return DefaultConfig.Rewrite(src)
}

// Rewrite replaces every marked literal with a call into the support
// module.
func (c Config) Rewrite(src string) (string, error) {
	s := rewrite.Prepare(src, nil)
	for s.Cursor.HasNext() {
		tok, err := s.Cursor.Next()
		if err != nil {
			return "", err
		}
		if !tok.IsName(c.Marker) {
			continue
		}
		lit, ok := s.Cursor.Peek()
		if !ok || lit.Kind != token.STRING || lit.Start != tok.End {
			continue
		}
		if lit.MultiLine() {
			return "", rewrite.Errorf(rewrite.MultiLineUnsupported, tok.Start,
				"%s-string literal spanning lines %d-%d is not supported", c.Marker, lit.Start.Line, lit.End.Line)
		}
		if _, err := s.Cursor.Next(); err != nil {
			return "", err
		}
		if err := s.Buffer.ReplaceSpan(tok.Start, lit.End, c.call(lit.Text)); err != nil {
			return "", err
		}
	}
	return s.Finish()
}

func (c Config) call(literal string) string {
	return fmt.Sprintf("__import__(%q).%s(%s, locals(), globals())", c.Module, c.Func, literal)
}
