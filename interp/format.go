package interp

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.starlark.net/starlark"

	"github.com/Akuli/import-that/scanner"
)

// ErrFormat is wrapped by every malformed template or format spec error.
var ErrFormat = errors.New("invalid format string")

// KeyError is what FormatMap reports when a field cannot be looked up.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string { return fmt.Sprintf("KeyError: %q", e.Key) }

// Mapping resolves field names. It only reports whether a value was
// found; why a lookup failed is up to the implementation to remember.
type Mapping interface {
	Lookup(key string) (starlark.Value, bool)
}

// Vars is a Mapping over fixed values.
type Vars starlark.StringDict

// Lookup returns the value bound to key.
func (v Vars) Lookup(key string) (starlark.Value, bool) {
	val, ok := v[key]
	return val, ok
}

// FormatMap renders template, looking up each replacement field in m.
//
// A field is {name!conv:spec}. The field ends at the "}" matching its
// "{", found with a string-aware bracket scan. The name ends at the first
// ":" outside square brackets, so a name cannot itself contain a colon.
func FormatMap(template string, m Mapping) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && strings.HasPrefix(template[i:], "{{"):
			sb.WriteByte('{')
			i += 2
		case c == '}' && strings.HasPrefix(template[i:], "}}"):
			sb.WriteByte('}')
			i += 2
		case c == '}':
			return "", fmt.Errorf("%w: single '}' encountered", ErrFormat)
		case c == '{':
			end := scanner.FindClosing(template, i)
			if end < 0 {
				return "", fmt.Errorf("%w: unmatched '{' at offset %d", ErrFormat, i)
			}
			s, err := field(template[i+1:end], m)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
			i = end + 1
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

func field(text string, m Mapping) (string, error) {
	name, specText := text, ""
	if i := specStart(text); i >= 0 {
		name, specText = text[:i], text[i+1:]
	}
	var conv byte
	if n := len(name); n >= 2 && name[n-2] == '!' && strings.IndexByte("sra", name[n-1]) >= 0 {
		conv = name[n-1]
		name = name[:n-2]
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty expression not allowed", ErrFormat)
	}
	if strings.IndexByte(specText, '{') >= 0 {
		nested, err := FormatMap(specText, m)
		if err != nil {
			return "", err
		}
		specText = nested
	}
	sp, err := parseSpec(specText)
	if err != nil {
		return "", err
	}

	v, ok := m.Lookup(name)
	if !ok {
		return "", &KeyError{Key: name}
	}
	switch conv {
	case 's':
		v = starlark.String(str(v))
	case 'r':
		v = starlark.String(v.String())
	case 'a':
		v = starlark.String(ascii(v.String()))
	}
	return formatValue(v, sp)
}

// specStart returns the index of the first ":" outside square brackets.
func specStart(text string) int {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func str(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

func ascii(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	return sb.String()
}

// spec is a parsed [[fill]align][sign][#][0][width][,|_][.precision][type].
type spec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func parseSpec(s string) (spec, error) {
	sp := spec{fill: ' ', precision: -1}
	bad := func() (spec, error) {
		return spec{}, fmt.Errorf("%w: invalid format specifier %q", ErrFormat, s)
	}
	rest := s
	if r, n := utf8.DecodeRuneInString(rest); n > 0 && len(rest) > n && isAlign(rest[n]) {
		sp.fill, sp.align = r, rest[n]
		rest = rest[n+1:]
	} else if rest != "" && isAlign(rest[0]) {
		sp.align = rest[0]
		rest = rest[1:]
	}
	if rest != "" && strings.IndexByte("+- ", rest[0]) >= 0 {
		sp.sign = rest[0]
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "#") {
		sp.alt = true
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "0") {
		if sp.align == 0 {
			sp.fill, sp.align = '0', '='
		}
		rest = rest[1:]
	}
	digits := func() int {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		n, _ := strconv.Atoi(rest[:i])
		if i == 0 {
			n = -1
		}
		rest = rest[i:]
		return n
	}
	if w := digits(); w > 0 {
		sp.width = w
	}
	if rest != "" && (rest[0] == ',' || rest[0] == '_') {
		sp.grouping = rest[0]
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, ".") {
		rest = rest[1:]
		if sp.precision = digits(); sp.precision < 0 {
			return bad()
		}
	}
	if rest != "" {
		if len(rest) > 1 || strings.IndexByte("sdboxXceEfFgG%", rest[0]) < 0 {
			return bad()
		}
		sp.typ = rest[0]
	}
	return sp, nil
}

func isAlign(c byte) bool { return c == '<' || c == '>' || c == '=' || c == '^' }

func formatValue(v starlark.Value, sp spec) (string, error) {
	switch x := v.(type) {
	case starlark.String:
		return formatString(string(x), sp)
	case starlark.Bool:
		if sp.typ == 0 || sp.typ == 's' {
			return formatString(x.String(), sp)
		}
		n := int64(0)
		if x {
			n = 1
		}
		return formatInt(big.NewInt(n), sp)
	case starlark.Int:
		return formatInt(x.BigInt(), sp)
	case starlark.Float:
		return formatFloat(float64(x), sp)
	}
	if sp.typ != 0 && sp.typ != 's' {
		return "", fmt.Errorf("%w: format code '%c' not supported for %s", ErrFormat, sp.typ, v.Type())
	}
	return formatString(str(v), sp)
}

func formatString(s string, sp spec) (string, error) {
	if sp.typ != 0 && sp.typ != 's' {
		return "", fmt.Errorf("%w: unknown format code '%c' for string", ErrFormat, sp.typ)
	}
	if sp.sign != 0 || sp.align == '=' {
		return "", fmt.Errorf("%w: sign and '=' alignment not allowed for string", ErrFormat)
	}
	if sp.precision >= 0 && utf8.RuneCountInString(s) > sp.precision {
		s = string([]rune(s)[:sp.precision])
	}
	return pad("", s, sp, '<'), nil
}

func formatInt(n *big.Int, sp spec) (string, error) {
	switch sp.typ {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		f, _ := new(big.Float).SetInt(n).Float64()
		return formatFloat(f, sp)
	case 's':
		return "", fmt.Errorf("%w: unknown format code 's' for int", ErrFormat)
	}
	if sp.precision >= 0 {
		return "", fmt.Errorf("%w: precision not allowed in integer format specifier", ErrFormat)
	}
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)

	var digits, prefix string
	switch sp.typ {
	case 0, 'd':
		digits = group(abs.Text(10), sp.grouping, 3)
	case 'b', 'o', 'x', 'X':
		if sp.grouping == ',' {
			return "", fmt.Errorf("%w: cannot specify ',' with '%c'", ErrFormat, sp.typ)
		}
		base := map[byte]int{'b': 2, 'o': 8, 'x': 16, 'X': 16}[sp.typ]
		digits = group(abs.Text(base), sp.grouping, 4)
		if sp.typ == 'X' {
			digits = strings.ToUpper(digits)
		}
		if sp.alt {
			prefix = "0" + string(sp.typ)
		}
	case 'c':
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > utf8.MaxRune {
			return "", fmt.Errorf("%w: %%c arg not in range(0x110000)", ErrFormat)
		}
		return pad("", string(rune(n.Int64())), sp, '<'), nil
	}
	return pad(signOf(neg, sp)+prefix, digits, sp, '>'), nil
}

func formatFloat(f float64, sp spec) (string, error) {
	if sp.typ == 's' || sp.typ == 'c' || sp.typ == 'd' || sp.typ == 'b' || sp.typ == 'o' || sp.typ == 'x' || sp.typ == 'X' {
		return "", fmt.Errorf("%w: unknown format code '%c' for float", ErrFormat, sp.typ)
	}
	neg := math.Signbit(f) && !math.IsNaN(f)
	f = math.Abs(f)
	prec := sp.precision
	if prec < 0 && sp.typ != 0 {
		prec = 6
	}

	var body, suffix string
	switch {
	case math.IsInf(f, 0):
		body = "inf"
	case math.IsNaN(f):
		body = "nan"
	default:
		switch sp.typ {
		case 0:
			if prec < 0 {
				body = starlark.Float(f).String()
			} else {
				body = strconv.FormatFloat(f, 'g', max(prec, 1), 64)
			}
		case 'f', 'F':
			body = strconv.FormatFloat(f, 'f', prec, 64)
		case 'e', 'E':
			body = strconv.FormatFloat(f, 'e', prec, 64)
		case 'g', 'G':
			body = strconv.FormatFloat(f, 'g', max(prec, 1), 64)
		case '%':
			body = strconv.FormatFloat(f*100, 'f', prec, 64)
			suffix = "%"
		}
	}
	if sp.typ == 'F' || sp.typ == 'E' || sp.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if sp.grouping != 0 {
		intPart, frac, dot := strings.Cut(body, ".")
		if isDigits(intPart) {
			body = group(intPart, sp.grouping, 3)
			if dot {
				body += "." + frac
			}
		}
	}
	return pad(signOf(neg, sp), body+suffix, sp, '>'), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func signOf(neg bool, sp spec) string {
	switch {
	case neg:
		return "-"
	case sp.sign == '+':
		return "+"
	case sp.sign == ' ':
		return " "
	}
	return ""
}

// group inserts sep between groups of n digits, counting from the right.
func group(digits string, sep byte, n int) string {
	if sep == 0 || len(digits) <= n {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % n
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += n {
		if sb.Len() > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteString(digits[i : i+n])
	}
	return sb.String()
}

// pad applies width, fill and alignment. With '=' the fill goes between
// the sign and the digits.
func pad(sign, body string, sp spec, defaultAlign byte) string {
	n := sp.width - utf8.RuneCountInString(sign) - utf8.RuneCountInString(body)
	if n <= 0 {
		return sign + body
	}
	fill := strings.Repeat(string(sp.fill), n)
	align := sp.align
	if align == 0 {
		align = defaultAlign
	}
	switch align {
	case '<':
		return sign + body + fill
	case '^':
		left := strings.Repeat(string(sp.fill), n/2)
		return left + sign + body + strings.Repeat(string(sp.fill), n-n/2)
	case '=':
		return sign + fill + body
	}
	return fill + sign + body
}
