package loader

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrExpression is returned for expressions that do not evaluate to an
// integer.
var ErrExpression = errors.New("not an integer expression")

// Eval evaluates a starlark integer expression. env binds extra names.
func Eval(expr string, env map[string]int64) (int64, error) {
	thread := starlark.Thread{Name: "eval"}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for key, value := range env {
		pred[key] = starlark.MakeInt64(value)
	}

	prog := "rc = " + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrExpression, expr, err)
	}

	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrExpression, expr)
	}

	value, ok := rc.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: %q overflows", ErrExpression, expr)
	}

	return value, nil
}
