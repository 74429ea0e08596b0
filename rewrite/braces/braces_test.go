package braces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/lexer"
	"github.com/Akuli/import-that/rewrite"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "semicolons on one line",
			input:  "a;b;c",
			expect: "a\nb\nc\n",
		},
		{
			name: "conditional chain",
			input: "def sign(x) {\n" +
				"    if (x < 0) {\n" +
				"        return -1;\n" +
				"    } elif (x == 0) {\n" +
				"        return 0;\n" +
				"    } else {\n" +
				"        return 1;\n" +
				"    }\n" +
				"}\n" +
				"print(sign(-5));\n",
			expect: "def sign(x):\n" +
				"    if x < 0:\n" +
				"        return -1\n" +
				"    elif x == 0:\n" +
				"        return 0\n" +
				"    else:\n" +
				"        return 1\n" +
				"print(sign(-5))\n",
		},
		{
			name:   "empty block",
			input:  "while (True) {}\n",
			expect: "while True:\n    pass\n",
		},
		{
			name:   "no space before condition",
			input:  "if(x){y;}",
			expect: "if x:\n    y\n",
		},
		{
			name:   "partial parentheses are kept",
			input:  "if (a) or (b) { x; }\n",
			expect: "if (a) or (b):\n    x\n",
		},
		{
			name:   "class with bases",
			input:  "class A(B) {\n    def f(self) { return 1; }\n}\n",
			expect: "class A(B):\n    def f(self):\n        return 1\n",
		},
		{
			name:   "unparenthesized for",
			input:  "for x in range(3) {\n    print(x);\n}\n",
			expect: "for x in range(3):\n    print(x)\n",
		},
		{
			name:  "except keeps its parentheses",
			input: "try {\n    risky();\n} except (ValueError, KeyError) as e {\n    pass;\n} finally {\n    done();\n}\n",
			expect: "try:\n    risky()\n" +
				"except (ValueError, KeyError) as e:\n    pass\n" +
				"finally:\n    done()\n",
		},
		{
			name:   "async def",
			input:  "async def go() {\n    await x;\n}\n",
			expect: "async def go():\n    await x\n",
		},
		{
			name:   "annotated def",
			input:  "def f(a: int) -> int { return a; }\n",
			expect: "def f(a: int) -> int:\n    return a\n",
		},
		{
			name:   "dict literal in a statement",
			input:  "d = {1: 2}; print(d)\n",
			expect: "d = {1: 2}\nprint(d)\n",
		},
		{
			name:   "line breaks inside brackets are joined",
			input:  "f(a,\n  b);\n",
			expect: "f(a, b)\n",
		},
		{
			name:   "leading comment is kept",
			input:  "# coding: braces\nx = 1;\n",
			expect: "# coding: braces\nx = 1\n",
		},
		{
			name:   "comments between aligned statements survive",
			input:  "if (x) {\n    y  # first\n    z\n}\n",
			expect: "if x:\n    y  # first\n    z\n",
		},
		{
			name:   "indented statement inside a brace block",
			input:  "def f() {\n    if x:\n        y\n    z;\n}\n",
			expect: "def f():\n    if x:\n        y\n    z\n",
		},
		{
			name:   "indented statement closing a brace block",
			input:  "if (a) {\n    if b:\n        c\n}\n",
			expect: "if a:\n    if b:\n        c\n",
		},
		{
			name:   "leading indentation is removed",
			input:  "   x = 1;\n",
			expect: "x = 1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rewrite(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestPlainSourceRoundTrip(t *testing.T) {
	for _, src := range []string{
		"x = 1\nprint(x)  # show\n",
		"x = 1\n\n# note\ny = [1, 2]\n",
		"",
		"# only a comment\n",
		"def f(x):\n    return x\n",
		"if x:\n    y = 1\nelif (z):\n    pass\nelse:\n    w = {1: 2}\n",
		"class A(B):\n    def f(self):  # doc\n        return [i for i in range(3)]\n\n\nprint(A().f())\n",
		"for i in range(3): print(i)\n",
		"try:\n    a()\nexcept (ValueError, KeyError) as e:\n    raise\nfinally:\n    b()\n",
		"async def go():\n    while True:\n        await x\n",
	} {
		got, err := Rewrite(src)
		require.NoError(t, err)
		assert.Equal(t, src, got)
	}
}

func TestRewriteErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
		line  int
	}{
		{"unmatched close brace", "x = 1;\n}\n", rewrite.ErrUnbalancedBrackets, 2},
		{"mismatched bracket", "f(x];\n", rewrite.ErrUnbalancedBrackets, 1},
		{"stray close paren", "x = 1)\n", rewrite.ErrUnbalancedBrackets, 1},
		{"dangling block", "if (x) {\n    y;\n", rewrite.ErrUnterminatedBlock, 1},
		{"dangling paren", "f(x;\n", rewrite.ErrUnterminatedBlock, 1},
		{"reserved def name", "def if() {}\n", rewrite.ErrInvalidName, 1},
		{"numeric def name", "def 3() {}\n", rewrite.ErrInvalidName, 1},
		{"reserved class name", "class for {}\n", rewrite.ErrInvalidName, 1},
		{"def without parameters", "def f {\n}\n", rewrite.ErrMissingParameterList, 1},
		{"if without block", "if x;\n", rewrite.ErrMissingBlock, 1},
		{"else without block", "else x;\n", rewrite.ErrMissingBlock, 1},
		{"while at end of input", "while (x)", rewrite.ErrMissingBlock, 1},
		{"set literal in a header", "if x == {1} { a }\n", rewrite.ErrMissingBlock, 1},
		{"keyword before a brace", "while not {1} { a }\n", rewrite.ErrMissingBlock, 1},
		{"unclosed bracket in indented block", "if x:\n    f(\n", rewrite.ErrUnterminatedBlock, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rewrite(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var rerr *rewrite.Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.line, rerr.Pos.Line)
		})
	}
}

func TestLexerErrorSurfaces(t *testing.T) {
	_, err := Rewrite("if (x) {\n    s = 'abc\n}\n")
	var lerr *lexer.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 2, lerr.Pos.Line)
}

func TestRegisteredCodec(t *testing.T) {
	r := codec.NewRegistry()
	r.Register(codec.NewTransform(Name, "", Rewrite))
	text, name, err := r.Decode([]byte("# coding: braces\nif (1) { print(2); }\n"), codec.Strict)
	require.NoError(t, err)
	assert.Equal(t, Name, name)
	assert.Equal(t, "# coding: braces\nif 1:\n    print(2)\n", text)

	_, ok := codec.Lookup(Name)
	assert.True(t, ok)
}
