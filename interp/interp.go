// Package interp is the support module behind lowered interpolated
// strings. Format evaluates every replacement field of a template as an
// expression in the caller's scope, locals taking precedence over
// globals.
//
// Rendering goes through FormatMap, which only learns whether a lookup
// succeeded. An expression that fails to evaluate would therefore surface
// as a KeyError; Format keeps the evaluation error and returns that
// instead, so {1 // 0} reports a division by zero.
package interp

import (
	"errors"
	"strings"

	"go.starlark.net/starlark"
)

// Evaluator evaluates one placeholder expression.
type Evaluator interface {
	Eval(expr string, locals, globals starlark.StringDict) (starlark.Value, error)
}

// StarlarkEvaluator evaluates expressions with starlark.Eval over the
// globals overlaid by the locals.
type StarlarkEvaluator struct {
	// Thread runs the evaluation. A fresh thread is used when nil.
	Thread *starlark.Thread
}

// Eval implements Evaluator.
func (e StarlarkEvaluator) Eval(expr string, locals, globals starlark.StringDict) (starlark.Value, error) {
	env := make(starlark.StringDict, len(globals)+len(locals))
	for name, v := range globals {
		env[name] = v
	}
	for name, v := range locals {
		if v != nil {
			env[name] = v
		}
	}
	thread := e.Thread
	if thread == nil {
		thread = &starlark.Thread{Name: "interp"}
	}
	return starlark.Eval(thread, "<interpolation>", strings.TrimSpace(expr), env)
}

// Formatter renders templates with an Evaluator.
type Formatter struct {
	Eval Evaluator
}

// Format renders template against the given scope.
func (f Formatter) Format(template string, locals, globals starlark.StringDict) (string, error) {
	eval := f.Eval
	if eval == nil {
		eval = StarlarkEvaluator{}
	}
	scope := &scopeLookup{eval: eval, locals: locals, globals: globals}
	out, err := FormatMap(template, scope)
	var kerr *KeyError
	if errors.As(err, &kerr) && scope.err != nil {
		return "", scope.err
	}
	return out, err
}

// scopeLookup evaluates keys as expressions and remembers the first
// evaluation error, which FormatMap would otherwise turn into a KeyError.
type scopeLookup struct {
	eval            Evaluator
	locals, globals starlark.StringDict
	err             error
}

func (s *scopeLookup) Lookup(key string) (starlark.Value, bool) {
	v, err := s.eval.Eval(key, s.locals, s.globals)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return nil, false
	}
	return v, true
}
