// Package token defines the lexical units shared by the lexer, the token
// cursor and the rewriters.
package token

import (
	"fmt"
	"unicode"
)

// Kind classifies a token.
type Kind int

const (
	OTHER Kind = iota
	NAME
	OP
	STRING
	NUMBER
	INDENT
	DEDENT
	NEWLINE // end of a logical line
	NL      // non-logical line break: blank line, comment-only line, break inside brackets
	COMMENT
	EOF
)

var kindNames = [...]string{
	OTHER:   "OTHER",
	NAME:    "NAME",
	OP:      "OP",
	STRING:  "STRING",
	NUMBER:  "NUMBER",
	INDENT:  "INDENT",
	DEDENT:  "DEDENT",
	NEWLINE: "NEWLINE",
	NL:      "NL",
	COMMENT: "COMMENT",
	EOF:     "EOF",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a source position. Line is 1-based, Col is a 0-based byte offset
// into the line.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Before reports whether p comes strictly before q.
func (p Pos) Before(q Pos) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Col < q.Col)
}

// Token is an immutable lexical unit. End is exclusive.
type Token struct {
	Kind  Kind
	Text  string
	Start Pos
	End   Pos
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s-%s", t.Kind, t.Text, t.Start, t.End)
}

// Is reports whether t has kind k and the given text.
func (t Token) Is(k Kind, text string) bool { return t.Kind == k && t.Text == text }

// IsName reports whether t is the NAME token text.
func (t Token) IsName(text string) bool { return t.Is(NAME, text) }

// IsOp reports whether t is the OP token text.
func (t Token) IsOp(text string) bool { return t.Is(OP, text) }

// MultiLine reports whether the token spans more than one physical line.
func (t Token) MultiLine() bool { return t.End.Line != t.Start.Line }

// Keywords of the host language. A keyword can never name a definition.
var Keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool { return Keywords[s] }

// IsIdentifier reports whether s is lexically a legal identifier. It does
// not reject keywords; see IsKeyword.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// Closer returns the closing bracket matching an opening one, or "".
func Closer(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	}
	return ""
}

// IsOpenBracket reports whether t is one of ( [ {.
func (t Token) IsOpenBracket() bool { return t.Kind == OP && Closer(t.Text) != "" }

// IsCloseBracket reports whether t is one of ) ] }.
func (t Token) IsCloseBracket() bool {
	return t.Kind == OP && (t.Text == ")" || t.Text == "]" || t.Text == "}")
}
