package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akuli/import-that/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeSimpleAssignment(t *testing.T) {
	toks, err := Tokenize("x = 42\n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.NAME, token.OP, token.NUMBER, token.NEWLINE, token.EOF}, kinds(toks))

	assert.Equal(t, token.Pos{Line: 1, Col: 0}, toks[0].Start)
	assert.Equal(t, token.Pos{Line: 1, Col: 1}, toks[0].End)
	assert.Equal(t, token.Pos{Line: 1, Col: 4}, toks[2].Start)
	assert.Equal(t, token.Pos{Line: 1, Col: 6}, toks[2].End)
	assert.Equal(t, token.Pos{Line: 1, Col: 7}, toks[3].End)
}

func TestTokenizeIndentation(t *testing.T) {
	src := "def f(a):\n    if a:\n        return 1\n    return 2\nx = f(1)\n"
	toks, err := Tokenize(src)
	require.NoError(t, err)

	var indents, dedents int
	for _, tok := range toks {
		switch tok.Kind {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		}
	}
	assert.Equal(t, 2, indents)
	assert.Equal(t, 2, dedents)

	for _, tok := range toks {
		if tok.Kind == token.INDENT {
			assert.Equal(t, 0, tok.Start.Col)
			assert.Equal(t, len(tok.Text), tok.End.Col)
		}
	}
}

func TestTokenizeDedentAtEOF(t *testing.T) {
	toks, err := Tokenize("if x:\n    y")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.NAME, token.NAME, token.OP, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE, token.DEDENT, token.EOF,
	}, kinds(toks))
}

func TestTokenizeBlankAndCommentLines(t *testing.T) {
	toks, err := Tokenize("a\n\n   # note\nb\n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.NAME, token.NEWLINE, token.NL, token.COMMENT, token.NL, token.NAME, token.NEWLINE, token.EOF,
	}, kinds(toks))
}

func TestTokenizeNewlineInsideBrackets(t *testing.T) {
	toks, err := Tokenize("f(1,\n  2)\n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.NAME, token.OP, token.NUMBER, token.OP, token.NL,
		token.NUMBER, token.OP, token.NEWLINE, token.EOF,
	}, kinds(toks))
}

func TestTokenizeStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"double", `"a b"`, []string{`"a b"`}},
		{"single with escape", `'it\'s'`, []string{`'it\'s'`}},
		{"raw prefix", `r"\d"`, []string{`r"\d"`}},
		{"bytes prefix", `b'x'`, []string{`b'x'`}},
		{"f is a name", `f"{x}"`, []string{`f`, `"{x}"`}},
		{"triple", `"""a"""`, []string{`"""a"""`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err)
			var got []string
			for _, tok := range toks {
				if tok.Kind == token.STRING || tok.Kind == token.NAME {
					got = append(got, tok.Text)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeMultiLineString(t *testing.T) {
	toks, err := Tokenize("s = '''one\ntwo'''\n")
	require.NoError(t, err)
	str := toks[2]
	require.Equal(t, token.STRING, str.Kind)
	assert.True(t, str.MultiLine())
	assert.Equal(t, token.Pos{Line: 1, Col: 4}, str.Start)
	assert.Equal(t, token.Pos{Line: 2, Col: 6}, str.End)
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize("a **= b // c -> d != e")
	require.NoError(t, err)
	var ops []string
	for _, tok := range toks {
		if tok.Kind == token.OP {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"**=", "//", "->", "!="}, ops)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize("x = 'abc\n")
	require.Error(t, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 1, lerr.Pos.Line)
	assert.Contains(t, err.Error(), "unterminated string literal")
}

func TestTokenizeBadDedent(t *testing.T) {
	_, err := Tokenize("if a:\n        b\n    c\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3: unindent does not match")
}

func TestWithoutLayout(t *testing.T) {
	toks, err := Tokenize("if (a) {\n      b;\n  }\n", WithoutLayout())
	require.NoError(t, err)
	for _, tok := range toks {
		assert.NotContains(t, []token.Kind{token.INDENT, token.DEDENT, token.NEWLINE}, tok.Kind, tok.String())
	}
}

func TestNextAfterEOF(t *testing.T) {
	l := New("")
	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, token.EOF, tok.Kind)
	tok, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, token.EOF, tok.Kind)
}

func TestUnicodeColumnsAreBytes(t *testing.T) {
	toks, err := Tokenize("é = 1\n")
	require.NoError(t, err)
	assert.Equal(t, "é", toks[0].Text)
	assert.Equal(t, 2, toks[0].End.Col)
	assert.Equal(t, 3, toks[1].Start.Col)
}
