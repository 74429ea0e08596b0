package host

import (
	"fmt"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/Akuli/import-that/interp"
)

// SupportModule is the module lowered interpolated strings import.
const SupportModule = "fstrings_support"

func (rt *Runtime) importBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return rt.Import(name)
}

// caller returns the Starlark function that called the running builtin.
func caller(thread *starlark.Thread) (*starlark.Function, starlark.DebugFrame) {
	if thread.CallStackDepth() < 2 {
		return nil, nil
	}
	fr := thread.DebugFrame(1)
	fn, _ := fr.Callable().(*starlark.Function)
	return fn, fr
}

// locals returns the variables of the calling frame: the module globals
// plus comprehension variables at top level, the local variables inside a
// function. Variables shared with a nested function are returned as
// captured placeholders.
func (rt *Runtime) locals(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	fn, fr := caller(thread)
	if fn == nil {
		return starlark.NewDict(0), nil
	}
	bindings, scope, err := rt.bindings(fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	d := starlark.NewDict(len(bindings))
	if fn.Name() == "<toplevel>" {
		if d, err = toDict(fn.Globals()); err != nil {
			return nil, err
		}
	}
	for i, bnd := range bindings {
		v := fr.Local(i)
		if v == nil || !scope.live(bnd.First.NamePos, fr.Position()) {
			continue
		}
		name := bnd.First.Name
		if bnd.Scope == resolve.Cell {
			v = captured(name)
		}
		if err := d.SetKey(starlark.String(name), v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func globals(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	fn, _ := caller(thread)
	if fn == nil {
		return starlark.NewDict(0), nil
	}
	return toDict(fn.Globals())
}

func toDict(sd starlark.StringDict) (*starlark.Dict, error) {
	d := starlark.NewDict(len(sd))
	for _, name := range sd.Keys() {
		if err := d.SetKey(starlark.String(name), sd[name]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func fromDict(d *starlark.Dict) (starlark.StringDict, error) {
	sd := make(starlark.StringDict, d.Len())
	for _, item := range d.Items() {
		name, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("scope key %s is not a string", item[0])
		}
		sd[name] = item[1]
	}
	return sd, nil
}

func supportModule(*Runtime) (starlark.Value, error) {
	return &starlarkstruct.Module{
		Name: SupportModule,
		Members: starlark.StringDict{
			"format": starlark.NewBuiltin("format", format),
		},
	}, nil
}

// format(template, locals, globals) renders template with each field
// evaluated in the given scope.
func format(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var template string
	var localDict, globalDict *starlark.Dict
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &template, &localDict, &globalDict); err != nil {
		return nil, err
	}
	l, err := fromDict(localDict)
	if err != nil {
		return nil, err
	}
	g, err := fromDict(globalDict)
	if err != nil {
		return nil, err
	}
	guard := guardedEvaluator{next: interp.StarlarkEvaluator{Thread: thread}, captured: make(map[string]bool)}
	for name, v := range l {
		if _, ok := v.(captured); ok {
			guard.captured[name] = true
			delete(l, name)
		}
	}
	f := interp.Formatter{Eval: guard}
	out, err := f.Format(template, l, g)
	if err != nil {
		return nil, err
	}
	return starlark.String(out), nil
}
