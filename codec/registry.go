package codec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/encoding/htmlindex"
)

// Registry maps normalized names to codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]*Codec
}

// NewRegistry returns an empty registry. Tests use their own instance
// instead of Default.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]*Codec)}
}

// Default is the process-wide registry. Rewriter packages register into
// it from init(); it is never torn down.
var Default = NewRegistry()

// Register adds c under its normalized name. Registration is idempotent:
// if the name is taken nothing changes and Register reports false.
func (r *Registry) Register(c *Codec) bool {
	name := Normalize(c.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codecs[name]; ok {
		return false
	}
	r.codecs[name] = c
	return true
}

// Lookup returns the codec registered under name.
func (r *Registry) Lookup(name string) (*Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[Normalize(name)]
	return c, ok
}

// Names returns the sorted names of all registered codecs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds c to Default.
func Register(c *Codec) bool { return Default.Register(c) }

// Lookup finds name in Default.
func Lookup(name string) (*Codec, bool) { return Default.Lookup(name) }

// Normalize folds a codec name the way the host does: lower case, with
// spaces and hyphens turned into underscores.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

var cookieRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
var blankOrComment = regexp.MustCompile(`^[ \t\f]*(?:#.*)?\r?$`)

// Cookie returns the codec named by the coding declaration on the first or
// second line of raw. The second line only counts when the first is blank
// or a comment.
func Cookie(raw []byte) (string, bool) {
	src := string(raw)
	for i := 0; i < 2; i++ {
		line := src
		rest := ""
		if j := strings.IndexByte(src, '\n'); j >= 0 {
			line, rest = src[:j], src[j+1:]
		}
		if m := cookieRe.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
		if !blankOrComment.MatchString(line) || rest == "" {
			return "", false
		}
		src = rest
	}
	return "", false
}

// Decode turns raw source into host text: a coding declaration naming a
// registered codec dispatches to its decode hook with the raw bytes,
// declaration included; one naming a charset is decoded with that
// charset; no declaration means UTF-8. It returns the text and the name
// of the codec that produced it.
func (r *Registry) Decode(raw []byte, policy Policy) (string, string, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return "", "", err
	}
	name, ok := Cookie(raw)
	if !ok {
		text, err := DecodeUTF8(raw, policy)
		return text, "utf_8", err
	}
	return r.DecodeWith(name, raw, policy)
}

// DecodeWith decodes raw using the codec or charset called name.
func (r *Registry) DecodeWith(name string, raw []byte, policy Policy) (string, string, error) {
	if c, ok := r.Lookup(name); ok {
		text, n, err := c.Decode(raw, policy)
		if err != nil {
			return "", c.Name, err
		}
		if n != len(raw) {
			return "", c.Name, fmt.Errorf("codec %s consumed %d of %d bytes", c.Name, n, len(raw))
		}
		return text, c.Name, nil
	}
	switch Normalize(name) {
	case "utf_8", "utf8":
		text, err := DecodeUTF8(raw, policy)
		return text, "utf_8", err
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", name, err
	}
	return string(out), Normalize(name), nil
}

// Encode runs the encode hook of the codec called name.
func (r *Registry) Encode(name, text string, policy Policy) ([]byte, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	if c.Encode == nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrReverseUnsupported)
	}
	out, _, err := c.Encode(text, policy)
	return out, err
}
