package host

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/Akuli/import-that/interp"
)

// fileScope holds the resolver's view of one executed file: which frame
// slot holds which local variable, for the module and for every function.
type fileScope struct {
	module *resolve.Module
	funcs  map[[2]int32]*resolve.Function
	comps  []span
}

type span struct{ start, end syntax.Position }

func (s span) contains(p syntax.Position) bool {
	return !before(p, s.start) && before(p, s.end)
}

func before(p, q syntax.Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Col < q.Col)
}

// live reports whether a local bound at first is in scope at pos. A
// comprehension variable keeps its frame slot after the comprehension
// ends but is only visible inside it.
func (s *fileScope) live(first, pos syntax.Position) bool {
	var inner *span
	for i, c := range s.comps {
		if c.contains(first) && (inner == nil || before(inner.start, c.start)) {
			inner = &s.comps[i]
		}
	}
	return inner == nil || inner.contains(pos)
}

func posKey(p syntax.Position) [2]int32 { return [2]int32{p.Line, p.Col} }

// scope parses and resolves the file a function was compiled from. The
// result is cached until the file is executed again.
func (rt *Runtime) scope(filename string) (*fileScope, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if s, ok := rt.scopes[filename]; ok {
		return s, nil
	}
	text, ok := rt.sources[filename]
	if !ok {
		return nil, fmt.Errorf("no source recorded for %s", filename)
	}
	f, err := syntax.Parse(filename, text, 0)
	if err != nil {
		return nil, err
	}
	if err := resolve.File(f, isPredeclared, starlark.Universe.Has); err != nil {
		return nil, err
	}
	s := &fileScope{module: f.Module.(*resolve.Module), funcs: make(map[[2]int32]*resolve.Function)}
	syntax.Walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.DefStmt:
			fn := n.Function.(*resolve.Function)
			s.funcs[posKey(fn.Pos)] = fn
		case *syntax.LambdaExpr:
			fn := n.Function.(*resolve.Function)
			s.funcs[posKey(fn.Pos)] = fn
		case *syntax.Comprehension:
			start, end := n.Span()
			s.comps = append(s.comps, span{start, end})
		}
		return true
	})
	rt.scopes[filename] = s
	return s, nil
}

// bindings returns the local variable bindings of fn in frame slot order.
func (rt *Runtime) bindings(fn *starlark.Function) ([]*resolve.Binding, *fileScope, error) {
	s, err := rt.scope(fn.Position().Filename())
	if err != nil {
		return nil, nil, err
	}
	if fn.Name() == "<toplevel>" {
		return s.module.Locals, s, nil
	}
	f, ok := s.funcs[posKey(fn.Position())]
	if !ok {
		return nil, nil, fmt.Errorf("cannot find the definition of %s at %s", fn.Name(), fn.Position())
	}
	return f.Locals, s, nil
}

// captured stands in for a local variable that a nested function shares.
// Starlark keeps such a variable in a cell the host cannot read.
type captured string

var _ starlark.Value = captured("")

func (c captured) String() string        { return fmt.Sprintf("<captured variable %s>", string(c)) }
func (c captured) Type() string          { return "captured variable" }
func (c captured) Freeze()               {}
func (c captured) Truth() starlark.Bool  { return starlark.True }
func (c captured) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", c.Type()) }

// guardedEvaluator refuses to evaluate an expression that names a
// captured variable instead of silently falling back to a global.
type guardedEvaluator struct {
	next     interp.Evaluator
	captured map[string]bool
}

func (g guardedEvaluator) Eval(expr string, locals, globals starlark.StringDict) (starlark.Value, error) {
	if len(g.captured) > 0 {
		e, err := syntax.ParseExpr("<interpolation>", strings.TrimSpace(expr), 0)
		if err != nil {
			return nil, err
		}
		var names []string
		var visit func(n syntax.Node) bool
		visit = func(n syntax.Node) bool {
			switch n := n.(type) {
			case *syntax.DotExpr:
				// The attribute name is not a variable reference.
				syntax.Walk(n.X, visit)
				return false
			case *syntax.Ident:
				if g.captured[n.Name] {
					names = append(names, n.Name)
				}
			}
			return true
		}
		syntax.Walk(e, visit)
		if len(names) > 0 {
			sort.Strings(names)
			return nil, fmt.Errorf("cannot interpolate %s: captured by a nested function", names[0])
		}
	}
	return g.next.Eval(expr, locals, globals)
}
