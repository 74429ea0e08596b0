// Package host loads and runs source files through the codec registry.
// The decoded text is executed as Starlark with a few host builtins the
// rewriters rely on: __import__, locals and globals.
package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/Akuli/import-that/cache"
	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/lexer"
	"github.com/Akuli/import-that/modcache"
	"github.com/Akuli/import-that/rewrite"
)

func init() {
	// Rewritten programs use top-level if/for statements and while loops.
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
}

// Provider initializes a module that __import__ can return.
type Provider func(rt *Runtime) (starlark.Value, error)

// Runtime decodes and executes programs.
type Runtime struct {
	codecs    *codec.Registry
	modules   *modcache.Cache
	cache     *cache.Store
	policy    codec.Policy
	out       io.Writer
	providers map[string]Provider

	mu      sync.Mutex
	sources map[string]string // executed text by file name
	scopes  map[string]*fileScope
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithCodecs sets the codec registry. The default is codec.Default.
func WithCodecs(r *codec.Registry) Option {
	return func(rt *Runtime) { rt.codecs = r }
}

// WithModules sets the module cache. The default is modcache.Default.
func WithModules(c *modcache.Cache) Option {
	return func(rt *Runtime) { rt.modules = c }
}

// WithCache enables the on-disk cache of decoded source.
func WithCache(s *cache.Store) Option {
	return func(rt *Runtime) { rt.cache = s }
}

// WithPolicy sets the decode error policy.
func WithPolicy(p codec.Policy) Option {
	return func(rt *Runtime) { rt.policy = p }
}

// WithOutput sets where print writes.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) { rt.out = w }
}

// WithProvider makes a module importable under name.
func WithProvider(name string, p Provider) Option {
	return func(rt *Runtime) { rt.providers[name] = p }
}

// New returns a Runtime. The interpolation support module is always
// importable.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		codecs:  codec.Default,
		modules: modcache.Default,
		policy:  codec.Strict,
		out:     os.Stdout,
		providers: map[string]Provider{
			SupportModule: supportModule,
		},
		sources: make(map[string]string),
		scopes:  make(map[string]*fileScope),
	}
	for _, o := range opts {
		o(rt)
	}
	return rt
}

// LoadError is a failure to turn a file into executable text. Positioned
// errors render as file:line N: message.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	var rerr *rewrite.Error
	var lerr *lexer.Error
	if errors.As(e.Err, &rerr) || errors.As(e.Err, &lerr) {
		return e.File + ":" + e.Err.Error()
	}
	return e.File + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source is a decoded file.
type Source struct {
	Name   string
	Codec  string
	Text   string
	Cached bool
}

// Decode turns the raw bytes of the file called name into host text.
func (rt *Runtime) Decode(name string, raw []byte) (*Source, error) {
	codecName, ok := codec.Cookie(raw)
	if !ok {
		codecName = "utf_8"
	}
	codecName = codec.Normalize(codecName)
	useCache := rt.cache != nil && rt.policy == codec.Strict && codecName != "utf_8"

	var key string
	if useCache {
		key = cache.Key(codecName, raw)
		if text, ok := rt.cache.Lookup(key); ok {
			return &Source{Name: name, Codec: codecName, Text: text, Cached: true}, nil
		}
	}
	text, used, err := rt.codecs.Decode(raw, rt.policy)
	if err != nil {
		return nil, &LoadError{File: name, Err: err}
	}
	if useCache {
		// A failed write only costs a rewrite next time.
		_ = rt.cache.Put(key, text)
	}
	return &Source{Name: name, Codec: used, Text: text}, nil
}

// Load reads and decodes the file at path.
func (rt *Runtime) Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return rt.Decode(path, raw)
}

// Exec executes decoded text and returns its globals.
func (rt *Runtime) Exec(name, text string) (starlark.StringDict, error) {
	rt.mu.Lock()
	rt.sources[name] = text
	delete(rt.scopes, name)
	rt.mu.Unlock()

	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(rt.out, msg)
		},
	}
	return starlark.ExecFile(thread, name, text, rt.predeclared())
}

// Run loads and executes the file at path.
func (rt *Runtime) Run(path string) (starlark.StringDict, error) {
	src, err := rt.Load(path)
	if err != nil {
		return nil, err
	}
	return rt.Exec(path, src.Text)
}

// Import returns the module called name, initializing it on first use.
func (rt *Runtime) Import(name string) (starlark.Value, error) {
	p, ok := rt.providers[name]
	if !ok {
		return nil, fmt.Errorf("no module named %q", name)
	}
	return rt.modules.LoadOrFetch(name, func() (starlark.Value, error) { return p(rt) })
}

func (rt *Runtime) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"__import__": starlark.NewBuiltin("__import__", rt.importBuiltin),
		"locals":     starlark.NewBuiltin("locals", rt.locals),
		"globals":    starlark.NewBuiltin("globals", globals),
	}
}

func isPredeclared(name string) bool {
	switch name {
	case "__import__", "locals", "globals":
		return true
	}
	return false
}
