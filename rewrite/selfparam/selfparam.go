// Package selfparam inserts an implicit first parameter into method
// definitions.
//
//	implicit def greet(who):        ->  def greet(self, who):
//	implicit class Greeter:         ->  class Greeter:
//	    def greet(who): ...         ->      def greet(self, who): ...
//
// Inside an implicit class every def gets the parameter, including
// helpers nested inside methods. That is a known limitation of working on
// tokens instead of a syntax tree.
package selfparam

import (
	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/rewrite"
	"github.com/Akuli/import-that/token"
)

// Name is the codec name this rewriter registers under.
const Name = "implicit_self"

// Config names the marker keyword and the inserted parameter.
type Config struct {
	Marker string
	Param  string
}

// DefaultConfig is used by Rewrite and the registered codec.
var DefaultConfig = Config{Marker: "implicit", Param: "self"}

func init() {
	codec.Register(codec.NewTransform(Name, "implicit first parameter for marked methods and classes", Rewrite))
}

// Rewrite rewrites src with DefaultConfig.
func Rewrite(src string) (string, error) {
	return DefaultConfig.Rewrite(src)
}

// Rewrite removes marker keywords and inserts c.Param into the affected
// definitions.
func (c Config) Rewrite(src string) (string, error) {
	r := &rewriter{
		cfg:     c,
		Session: rewrite.Prepare(src, nil, token.COMMENT, token.NL),
		active:  -1,
		atStart: true,
	}
	if err := r.run(); err != nil {
		return "", err
	}
	return r.Finish()
}

type rewriter struct {
	*rewrite.Session
	cfg Config

	depth    int
	active   int  // indentation depth of the active implicit class, or -1
	inHeader bool // between "implicit class" and the end of its header line
	atStart  bool // the next token starts a statement
}

func (r *rewriter) run() error {
	for r.Cursor.HasNext() {
		tok, err := r.Cursor.Next()
		if err != nil {
			return err
		}
		if err := r.step(tok); err != nil {
			return err
		}
	}
	return nil
}

func (r *rewriter) step(tok token.Token) error {
	switch tok.Kind {
	case token.INDENT:
		r.depth++
		r.inHeader = false
		r.atStart = true
		return nil
	case token.DEDENT:
		r.depth--
		if r.active >= 0 && r.depth <= r.active {
			r.active = -1
		}
		r.atStart = true
		return nil
	case token.NEWLINE:
		if r.inHeader {
			r.inHeader = false
			// A class whose body sits on its header line has no INDENT.
			if next, ok := r.Cursor.Peek(); !ok || next.Kind != token.INDENT {
				r.active = -1
			}
		}
		r.atStart = true
		return nil
	}

	startsStatement := r.atStart
	r.atStart = false

	switch {
	case startsStatement && tok.IsName(r.cfg.Marker):
		return r.marker(tok)
	case startsStatement && tok.IsName("async"):
		// "async implicit def": the qualifier stays, the marker is handled
		// as if it started the statement.
		r.atStart = true
	case tok.IsName("def") && r.active >= 0:
		return r.insertParam(tok)
	}
	return nil
}

// marker handles a marker keyword at the start of a statement.
func (r *rewriter) marker(m token.Token) error {
	next, ok := r.Cursor.Peek()
	if !ok || next.Kind == token.NEWLINE || next.Start.Line != m.Start.Line {
		return rewrite.Errorf(rewrite.MalformedMarker, m.Start,
			"%q must be followed by def or class on the same line", r.cfg.Marker)
	}
	if !next.IsName("def") && !next.IsName("async") && !next.IsName("class") {
		// Not a marker at all: an ordinary name such as "implicit = 3".
		return nil
	}
	if err := r.Buffer.ReplaceSpan(m.Start, next.Start, ""); err != nil {
		return err
	}
	kw, err := r.Cursor.Next()
	if err != nil {
		return err
	}

	switch kw.Text {
	case "class":
		if r.active >= 0 {
			return rewrite.Errorf(rewrite.NestedBlock, m.Start,
				"%s class inside another %s class is not supported", r.cfg.Marker, r.cfg.Marker)
		}
		r.active = r.depth
		r.inHeader = true
		return nil
	case "async":
		def, err := r.Cursor.Next()
		if err != nil || !def.IsName("def") || def.Start.Line != m.Start.Line {
			return rewrite.Errorf(rewrite.MalformedMarker, kw.Start,
				"%q async must be followed by def", r.cfg.Marker)
		}
		return r.insertParam(def)
	}
	return r.insertParam(kw)
}

// insertParam puts the parameter right after the opening parenthesis of
// the definition introduced by def.
func (r *rewriter) insertParam(def token.Token) error {
	name, err := r.Cursor.Next()
	if err != nil || name.Kind != token.NAME {
		return rewrite.Errorf(rewrite.MalformedMarker, def.Start, "expected a function name after def")
	}
	open, err := r.Cursor.Next()
	if err != nil || !open.IsOp("(") {
		return rewrite.Errorf(rewrite.MissingParameterList, name.Start,
			"def %s has no parameter list", name.Text)
	}
	text := r.cfg.Param + ", "
	if next, ok := r.Cursor.Peek(); ok {
		switch {
		case next.IsOp(")"):
			text = r.cfg.Param
		case next.Start.Line != open.End.Line:
			text = r.cfg.Param + ","
		}
	}
	return r.Buffer.InsertAt(open.End.Line, open.End.Col, text)
}
