// Package lexer tokenizes host-language source. Raw lexing is driven by a
// participle stateful lexer; a layout pass on top of it produces the
// NEWLINE, NL, INDENT and DEDENT tokens the way the host tokenizer does.
//
// Positions use 1-based lines and 0-based byte columns. Old-runtime string
// prefixes (r, b, u, br, rb) are part of a STRING token; "f" is not, so
// f"..." lexes as the NAME f followed by a STRING.
package lexer

import (
	"errors"
	"fmt"
	"sort"

	plexer "github.com/alecthomas/participle/v2/lexer"

	"github.com/Akuli/import-that/token"
)

var definition = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\r\n]*`},
	{Name: "String", Pattern: `(?:[bB][rR]|[rR][bB]|[rRbBuU])?(?:"""(?s:\\.|.)*?"""|'''(?s:\\.|.)*?'''|"(?:\\.|[^"\\\r\n])*"|'(?:\\.|[^'\\\r\n])*')`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F_]+|0[oO][0-7_]+|0[bB][01_]+|(?:\d[\d_]*(?:\.[\d_]*)?|\.\d[\d_]*)(?:[eE][+-]?\d+)?[jJ]?`},
	{Name: "Name", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Op", Pattern: `\*\*=|//=|>>=|<<=|\.\.\.|->|\*\*|//|<<|>>|<=|>=|==|!=|:=|\+=|-=|\*=|/=|%=|&=|\|=|\^=|@=|[-+*/%&|^~<>()\[\]{},:;.=@!]`},
	{Name: "Continuation", Pattern: `\\\r?\n`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\f]+`},
	{Name: "Other", Pattern: `.`},
})

var symbols = definition.Symbols()

// Error is a tokenization failure.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg) }

// Option configures a Lexer.
type Option func(*Lexer)

// WithoutLayout disables indentation tracking: no INDENT, DEDENT or
// NEWLINE tokens are produced and every line break is an NL. Used for
// input whose indentation carries no meaning.
func WithoutLayout() Option {
	return func(l *Lexer) { l.layout = false }
}

// Lexer produces host tokens one at a time.
type Lexer struct {
	src        string
	layout     bool
	lineStarts []int

	raw plexer.Lexer

	indents     []int
	depth       int
	atLineStart bool
	hasContent  bool
	indent      plexer.Token

	queue []token.Token
	done  bool
	err   error
}

// New returns a Lexer over src.
func New(src string, opts ...Option) *Lexer {
	l := &Lexer{
		src:         src,
		layout:      true,
		lineStarts:  lineStarts(src),
		indents:     []int{0},
		atLineStart: true,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Tokenize lexes all of src, including the final EOF token.
func Tokenize(src string, opts ...Option) ([]token.Token, error) {
	l := New(src, opts...)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// Next returns the next token. After the EOF token every call returns EOF
// again. Errors are sticky.
func (l *Lexer) Next() (token.Token, error) {
	for len(l.queue) == 0 {
		if l.err != nil {
			return token.Token{}, l.err
		}
		if l.done {
			end := l.pos(len(l.src))
			return token.Token{Kind: token.EOF, Start: end, End: end}, nil
		}
		l.err = l.fill()
	}
	tok := l.queue[0]
	l.queue = l.queue[1:]
	return tok, nil
}

func (l *Lexer) fill() error {
	if l.raw == nil {
		raw, err := definition.LexString("", l.src)
		if err != nil {
			return &Error{Pos: token.Pos{Line: 1}, Msg: err.Error()}
		}
		l.raw = raw
	}
	rt, err := l.raw.Next()
	if err != nil {
		var perr *plexer.Error
		if errors.As(err, &perr) {
			return &Error{Pos: l.pos(perr.Pos.Offset), Msg: perr.Msg}
		}
		return &Error{Pos: token.Pos{Line: 1}, Msg: err.Error()}
	}
	if rt.EOF() {
		l.finish()
		return nil
	}

	switch rt.Type {
	case symbols["Whitespace"]:
		if l.atLineStart {
			l.indent = rt
		}
		return nil
	case symbols["Continuation"]:
		return nil
	case symbols["Newline"]:
		kind := token.NL
		if l.layout && l.depth == 0 && l.hasContent {
			kind = token.NEWLINE
		}
		l.emit(kind, rt)
		l.atLineStart = true
		l.hasContent = false
		l.indent = plexer.Token{}
		return nil
	case symbols["Comment"]:
		l.emit(token.COMMENT, rt)
		return nil
	}

	if l.atLineStart && l.layout && l.depth == 0 {
		if err := l.indentation(rt); err != nil {
			return err
		}
	}
	l.atLineStart = false
	l.hasContent = true

	switch rt.Type {
	case symbols["Name"]:
		l.emit(token.NAME, rt)
	case symbols["Number"]:
		l.emit(token.NUMBER, rt)
	case symbols["String"]:
		l.emit(token.STRING, rt)
	case symbols["Op"]:
		switch rt.Value {
		case "(", "[", "{":
			l.depth++
		case ")", "]", "}":
			if l.depth > 0 {
				l.depth--
			}
		}
		l.emit(token.OP, rt)
	default:
		if rt.Value == `"` || rt.Value == `'` {
			return &Error{Pos: l.pos(rt.Pos.Offset), Msg: "unterminated string literal"}
		}
		l.emit(token.OTHER, rt)
	}
	return nil
}

// indentation compares the indentation of the line starting at first with the
// indentation stack and queues INDENT or DEDENT tokens.
func (l *Lexer) indentation(first plexer.Token) error {
	text := l.indent.Value
	w := width(text)
	top := l.indents[len(l.indents)-1]
	switch {
	case w > top:
		l.indents = append(l.indents, w)
		start := l.pos(first.Pos.Offset - len(text))
		l.queue = append(l.queue, token.Token{
			Kind:  token.INDENT,
			Text:  text,
			Start: start,
			End:   token.Pos{Line: start.Line, Col: start.Col + len(text)},
		})
	case w < top:
		at := l.pos(first.Pos.Offset)
		for w < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.queue = append(l.queue, token.Token{Kind: token.DEDENT, Start: at, End: at})
		}
		if w != l.indents[len(l.indents)-1] {
			return &Error{Pos: at, Msg: "unindent does not match any outer indentation level"}
		}
	}
	return nil
}

func (l *Lexer) finish() {
	end := l.pos(len(l.src))
	if l.layout {
		if l.hasContent {
			l.queue = append(l.queue, token.Token{Kind: token.NEWLINE, Start: end, End: end})
		}
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.queue = append(l.queue, token.Token{Kind: token.DEDENT, Start: end, End: end})
		}
	}
	l.queue = append(l.queue, token.Token{Kind: token.EOF, Start: end, End: end})
	l.done = true
}

func (l *Lexer) emit(kind token.Kind, rt plexer.Token) {
	start := l.pos(rt.Pos.Offset)
	end := start
	if rt.Value != "" {
		end = l.endPos(rt.Pos.Offset + len(rt.Value))
	}
	l.queue = append(l.queue, token.Token{Kind: kind, Text: rt.Value, Start: start, End: end})
}

// pos maps a byte offset to a position.
func (l *Lexer) pos(offset int) token.Pos {
	i := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	})
	if i == 0 {
		i = 1
	}
	return token.Pos{Line: i, Col: offset - l.lineStarts[i-1]}
}

// endPos maps an exclusive end offset to a position on the line holding
// the last byte, so a token ending in a line break ends on its own line.
func (l *Lexer) endPos(offset int) token.Pos {
	p := l.pos(offset - 1)
	p.Col++
	return p
}

// lineStarts returns the byte offset where each line begins. A trailing
// newline does not start a new line.
func lineStarts(src string) []int {
	offsets := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' && i+1 < len(src) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// width returns the indentation width of ws with tabs advancing to the
// next multiple of eight.
func width(ws string) int {
	w := 0
	for _, r := range ws {
		switch r {
		case '\t':
			w += 8 - w%8
		case '\f':
			w = 0
		default:
			w++
		}
	}
	return w
}
