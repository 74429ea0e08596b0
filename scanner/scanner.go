// Package scanner provides string-boundary-aware scanning of expression
// text. It tracks single- and double-quoted literals and their escape
// sequences so that callers looking for brackets or delimiters never
// mistake the inside of a literal for code.
package scanner

// CodeScanner iterates byte-by-byte over source text, tracking string
// literal boundaries and escape sequences. Callers check InString()
// instead of maintaining their own quote/escaped flags.
//
// InString() returns true for the entire string span including both
// opening and closing delimiters.
type CodeScanner struct {
	src     string
	pos     int
	quote   byte // delimiter of the open literal, or 0
	escaped bool
	closing bool // the last byte closed a literal
}

// New creates a CodeScanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, pos: -1}
}

// Next advances to the next byte, updating string/escape state.
// Returns the byte and true, or (0, false) at end of input.
func (s *CodeScanner) Next() (byte, bool) {
	s.closing = false
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]

	if s.escaped {
		s.escaped = false
		return ch, true
	}
	switch {
	case ch == '\\' && s.quote != 0:
		s.escaped = true
	case ch == s.quote:
		s.quote = 0
		s.closing = true
	case s.quote == 0 && (ch == '"' || ch == '\''):
		s.quote = ch
	}
	return ch, true
}

// InString reports whether the current position is inside a string
// literal, including both delimiters.
func (s *CodeScanner) InString() bool { return s.quote != 0 || s.closing }

// InCode reports whether the current position is outside all string literals.
func (s *CodeScanner) InCode() bool { return !s.InString() }

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *CodeScanner) Pos() int { return s.pos }

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// FindClosing returns the offset of the bracket closing the one at
// s[open], skipping string literals and nested brackets, or -1 if it is
// never closed. Bracket kinds are not checked against each other.
func FindClosing(s string, open int) int {
	if open < 0 || open >= len(s) || !IsOpenBracket(s[open]) {
		return -1
	}
	depth := 0
	sc := New(s[open:])
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InString() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
			if depth == 0 {
				return open + sc.Pos()
			}
		}
	}
	return -1
}
