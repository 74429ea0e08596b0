// Package braces turns curly-brace blocks into indented host blocks.
//
//	def sign(x) {                 def sign(x):
//	    if (x < 0) { return -1; }     if x < 0:
//	    return 1;                         return -1
//	}                                 return 1
//
// Statements end at ";" or at a line break outside brackets. Indentation
// inside a brace block carries no meaning; the output is indented four
// spaces per block. A block with no statements becomes pass.
//
// A "{" right after a compound header always opens a block, so a dict or
// set literal in an if or while condition has to be parenthesized.
//
// A compound statement whose header ends in ":" is already in indentation
// syntax. It is copied through as written together with every following
// line indented deeper than the statement, so plain source comes back
// unchanged.
package braces

import (
	"strings"

	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/lexer"
	"github.com/Akuli/import-that/rewrite"
	"github.com/Akuli/import-that/token"
)

// Name is the codec name this rewriter registers under.
const Name = "braces"

// Indent is emitted once per block level.
const Indent = "    "

func init() {
	codec.Register(codec.NewTransform(Name, "curly-brace blocks and semicolons instead of indentation", Rewrite))
}

type header int

const (
	bare      header = iota // block only
	condition               // a leading parenthesized condition loses its parentheses
	verbatim                // copied as written
	function                // name and parameter list required
	class                   // name required, bases optional
)

var headers = map[string]header{
	"if":      condition,
	"elif":    condition,
	"while":   condition,
	"for":     condition,
	"with":    condition,
	"except":  verbatim,
	"else":    bare,
	"try":     bare,
	"finally": bare,
	"def":     function,
	"class":   class,
}

// frame is one entry of the nesting stack: a block brace or an expression
// bracket.
type frame struct {
	open  token.Token
	block bool
}

type rewriter struct {
	*rewrite.Session
	stack []frame

	started  bool        // a statement has been placed
	last     token.Pos   // end of the last kept token
	prev     token.Token // the last kept token
	pend     string      // text that replaces the gap before the next kept token
	explicit bool        // pend is set, even if empty
	dropped  bool        // a token was dropped since the last kept one
}

// Rewrite converts brace-structured source to indentation.
func Rewrite(src string) (string, error) {
	r := &rewriter{
		Session: rewrite.Prepare(src, []lexer.Option{lexer.WithoutLayout()},
			token.COMMENT, token.NEWLINE, token.INDENT, token.DEDENT),
		explicit: true,
	}
	if err := r.program(); err != nil {
		return "", err
	}
	return r.Finish()
}

func (r *rewriter) program() error {
	r.skipLines()
	first, ok := r.Cursor.Peek()
	if !ok {
		return nil
	}
	// Leading lines are kept as written but the first statement starts at
	// column zero.
	if first.Start.Col > 0 {
		if err := r.Buffer.DeleteRange(first.Start.Line, 0, first.Start.Col); err != nil {
			return err
		}
	}
	r.last = first.Start
	if _, err := r.statements(0); err != nil {
		return err
	}
	if tok, ok := r.Cursor.Peek(); ok {
		return rewrite.Errorf(rewrite.UnbalancedBrackets, tok.Start, "unmatched %s", tok.Text)
	}
	return r.flush()
}

// statements parses statements until a "}" (left for the caller) or the
// end of input, and reports how many it found.
func (r *rewriter) statements(depth int) (int, error) {
	n := 0
	for {
		tok, ok := r.Cursor.Peek()
		switch {
		case !ok, tok.IsOp("}"):
			return n, nil
		case tok.Kind == token.NL:
			r.advance()
		case tok.IsOp(";"):
			r.advance()
			r.dropped = true
		default:
			if err := r.statement(depth); err != nil {
				return n, err
			}
			n++
		}
	}
}

func (r *rewriter) statement(depth int) error {
	if r.started {
		r.pend += "\n" + strings.Repeat(Indent, depth)
		r.explicit = true
	}
	r.started = true

	tok, _ := r.Cursor.Peek()
	col := tok.Start.Col
	if tok.IsName("async") {
		if err := r.keep(r.advance()); err != nil {
			return err
		}
		var ok bool
		if tok, ok = r.Cursor.Peek(); !ok {
			return nil
		}
	}
	if h, ok := headers[tok.Text]; ok && tok.Kind == token.NAME {
		return r.compound(depth, col, h)
	}
	_, err := r.expr(false, tok)
	return err
}

func (r *rewriter) compound(depth, col int, h header) error {
	kw := r.advance()
	if err := r.keep(kw); err != nil {
		return err
	}
	var err error
	switch h {
	case condition:
		err = r.condition(kw)
	case verbatim:
		_, err = r.expr(true, kw)
	case function, class:
		err = r.definition(kw, h == function)
	}
	if err != nil {
		return err
	}
	if tok, ok := r.Cursor.Peek(); ok && tok.IsOp(":") {
		return r.indented(col)
	}
	r.skipLines()
	tok, ok := r.Cursor.Peek()
	if !ok || !tok.IsOp("{") {
		at := kw.Start
		if ok {
			at = tok.Start
		}
		return r.fail(rewrite.Errorf(rewrite.MissingBlock, at, "%s must be followed by a { block", kw.Text))
	}
	if r.prev != kw && dangling(r.prev) {
		return rewrite.Errorf(rewrite.MissingBlock, tok.Start,
			"%s header ends with %s; parenthesize a literal before the { block", kw.Text, r.prev.Text)
	}
	return r.block(depth)
}

// dangling reports whether an expression cannot end with tok, which means
// the "{" after it was meant as a literal.
func dangling(tok token.Token) bool {
	switch tok.Kind {
	case token.OP:
		return !tok.IsCloseBracket()
	case token.NAME:
		return token.IsKeyword(tok.Text) && tok.Text != "True" && tok.Text != "False" && tok.Text != "None"
	}
	return false
}

// indented copies a compound statement written in indentation syntax, the
// ":" being the next token. It ends before the first line that starts at or
// left of col, or before the "}" closing an enclosing block.
func (r *rewriter) indented(col int) error {
	base := len(r.stack)
	lineStart := false
	for {
		tok, ok := r.Cursor.Peek()
		inside := len(r.stack) > base
		if !ok {
			if inside {
				top := r.stack[len(r.stack)-1].open
				return r.fail(rewrite.Errorf(rewrite.UnterminatedBlock, top.Start, "%s is never closed", top.Text))
			}
			return nil
		}
		if tok.Kind == token.NL {
			r.advance()
			lineStart = lineStart || !inside
			continue
		}
		if lineStart && tok.Start.Col <= col {
			return nil
		}
		lineStart = false
		switch {
		case tok.IsCloseBracket():
			if !inside {
				if tok.IsOp("}") {
					return nil
				}
				return rewrite.Errorf(rewrite.UnbalancedBrackets, tok.Start, "unmatched %s", tok.Text)
			}
			top := r.stack[len(r.stack)-1].open
			if token.Closer(top.Text) != tok.Text {
				return rewrite.Errorf(rewrite.UnbalancedBrackets, tok.Start,
					"%s does not match %s on line %d", tok.Text, top.Text, top.Start.Line)
			}
			r.stack = r.stack[:len(r.stack)-1]
		case tok.IsOpenBracket():
			r.stack = append(r.stack, frame{open: tok})
		}
		r.advance()
		if err := r.copy(tok); err != nil {
			return err
		}
	}
}

// condition copies a compound header. When the whole condition is one
// parenthesized group followed by a block the parentheses are removed.
func (r *rewriter) condition(kw token.Token) error {
	r.skipLines()
	info, err := r.expr(true, kw)
	if err != nil || !info.wrapped || !info.first.IsOp("(") {
		return err
	}
	if tok, ok := r.Cursor.Peek(); ok && tok.IsOp(":") {
		return nil
	}
	sep := ""
	if info.first.Start == kw.End {
		sep = " "
	}
	if err := r.Buffer.ReplaceSpan(info.first.Start, info.first.End, sep); err != nil {
		return err
	}
	return r.Buffer.DeleteSpan(info.last.Start, info.last.End)
}

func (r *rewriter) definition(kw token.Token, params bool) error {
	r.skipLines()
	name, ok := r.Cursor.Peek()
	if !ok || name.Kind != token.NAME || !token.IsIdentifier(name.Text) || token.IsKeyword(name.Text) {
		at := kw.End
		if ok {
			at = name.Start
		}
		return r.fail(rewrite.Errorf(rewrite.InvalidName, at, "%s must be followed by a valid name, got %q", kw.Text, name.Text))
	}
	if err := r.keep(r.advance()); err != nil {
		return err
	}
	if params {
		if tok, ok := r.Cursor.Peek(); !ok || !tok.IsOp("(") {
			return r.fail(rewrite.Errorf(rewrite.MissingParameterList, name.Start, "def %s has no parameter list", name.Text))
		}
	}
	_, err := r.expr(true, kw)
	return err
}

// block rewrites "{ ... }", the "{" being the next token.
func (r *rewriter) block(depth int) error {
	open := r.advance()
	r.dropped = true
	r.pend += ":"
	r.explicit = true
	r.stack = append(r.stack, frame{open: open, block: true})

	n, err := r.statements(depth + 1)
	if err != nil {
		return err
	}
	if _, ok := r.Cursor.Peek(); !ok {
		return r.fail(rewrite.Errorf(rewrite.UnterminatedBlock, open.Start, "{ is never closed"))
	}
	r.advance()
	r.dropped = true
	r.stack = r.stack[:len(r.stack)-1]
	if n == 0 {
		r.pend += "\n" + strings.Repeat(Indent, depth+1) + "pass"
		r.explicit = true
	}
	return nil
}

type exprInfo struct {
	first, last token.Token
	n           int
	wrapped     bool // first is a bracket closed by last
}

// expr keeps the tokens of an expression. In a header the expression ends
// before a "{" or ":" outside brackets. A simple statement ends at ";" or a line
// break outside brackets, both consumed, or before the "}" closing the
// enclosing block.
func (r *rewriter) expr(header bool, owner token.Token) (exprInfo, error) {
	var info exprInfo
	base := len(r.stack)
	group := false
	for {
		tok, ok := r.Cursor.Peek()
		inside := len(r.stack) > base
		if !ok {
			switch {
			case inside:
				top := r.stack[len(r.stack)-1].open
				return info, r.fail(rewrite.Errorf(rewrite.UnterminatedBlock, top.Start, "%s is never closed", top.Text))
			case header:
				return info, r.fail(rewrite.Errorf(rewrite.MissingBlock, owner.Start, "%s must be followed by a { block", owner.Text))
			}
			return info, nil
		}

		wrapped := false
		switch {
		case tok.Kind == token.NL:
			r.advance()
			if !inside && !header {
				return info, nil
			}
			continue
		case !inside && header && (tok.IsOp("{") || tok.IsOp(":")):
			return info, nil
		case !inside && tok.IsOp(";"):
			if header {
				return info, rewrite.Errorf(rewrite.MissingBlock, tok.Start, "%s must be followed by a { block", owner.Text)
			}
			r.advance()
			r.dropped = true
			return info, nil
		case tok.IsCloseBracket():
			if !inside {
				if !tok.IsOp("}") {
					return info, rewrite.Errorf(rewrite.UnbalancedBrackets, tok.Start, "unmatched %s", tok.Text)
				}
				if header {
					return info, rewrite.Errorf(rewrite.MissingBlock, tok.Start, "%s must be followed by a { block", owner.Text)
				}
				return info, nil
			}
			top := r.stack[len(r.stack)-1].open
			if token.Closer(top.Text) != tok.Text {
				return info, rewrite.Errorf(rewrite.UnbalancedBrackets, tok.Start,
					"%s does not match %s on line %d", tok.Text, top.Text, top.Start.Line)
			}
			r.stack = r.stack[:len(r.stack)-1]
			if len(r.stack) == base && group {
				wrapped = true
				group = false
			}
		case tok.IsOpenBracket():
			if info.n == 0 {
				group = true
			}
			r.stack = append(r.stack, frame{open: tok})
		}

		r.advance()
		if err := r.keep(tok); err != nil {
			return info, err
		}
		if info.n == 0 {
			info.first = tok
		}
		info.n++
		info.last = tok
		info.wrapped = wrapped
	}
}

// keep places tok in the output. The gap since the previous kept token is
// replaced with pending text, a single space when it crossed a line or lost
// a token, or left alone.
func (r *rewriter) keep(tok token.Token) error {
	var err error
	switch {
	case r.explicit:
		if r.dropped || !aligned(r.Buffer.Slice(r.last, tok.Start), r.pend) {
			err = r.Buffer.ReplaceSpan(r.last, tok.Start, r.pend)
		}
	case r.dropped || tok.Start.Line != r.last.Line:
		sep := " "
		if r.prev.IsOpenBracket() || tok.IsCloseBracket() {
			sep = ""
		}
		err = r.Buffer.ReplaceSpan(r.last, tok.Start, sep)
	}
	r.last, r.prev = tok.End, tok
	r.pend, r.explicit, r.dropped = "", false, false
	return err
}

// copy places tok without touching the gap before it unless text is
// pending.
func (r *rewriter) copy(tok token.Token) error {
	if r.explicit || r.dropped {
		return r.keep(tok)
	}
	r.last, r.prev = tok.End, tok
	return nil
}

// aligned reports whether gap already ends with the line break and
// indentation sep asks for, in which case comments and blank lines in it
// survive.
func aligned(gap, sep string) bool {
	if !strings.HasPrefix(sep, "\n") || strings.Count(sep, "\n") != 1 {
		return false
	}
	i := strings.LastIndexByte(gap, '\n')
	return i >= 0 && gap[i+1:] == sep[1:]
}

// flush terminates the output with pending text and a newline.
func (r *rewriter) flush() error {
	end := r.Buffer.End()
	if !r.dropped && r.pend == "" && strings.HasSuffix(r.Buffer.Slice(r.last, end), "\n") {
		return nil
	}
	return r.Buffer.ReplaceSpan(r.last, end, r.pend+"\n")
}

func (r *rewriter) skipLines() {
	for {
		tok, ok := r.Cursor.Peek()
		if !ok || tok.Kind != token.NL {
			return
		}
		r.advance()
	}
}

// advance consumes the token the last Peek returned.
func (r *rewriter) advance() token.Token {
	tok, _ := r.Cursor.Next()
	return tok
}

// fail prefers a lexer error over a structural error found because the
// token stream stopped early.
func (r *rewriter) fail(err error) error {
	if cerr := r.Cursor.Err(); cerr != nil {
		return cerr
	}
	return err
}
