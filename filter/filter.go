package filter

import (
	"encoding/json"
	"fmt"

	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

/*
Filters are expr expressions evaluated against one list item at a time. The item is exposed with the field names it
carries on the wire (f.e. `authorId == "u1"`, `ovr >= 80`, `likes["u2"] == true`), so a filter written for the
websocket subscriptions also works on the admin command line.
*/

// Filter is a compiled filter expression. A nil *Filter matches everything.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile parses expression, which must evaluate to a boolean. An empty expression yields a nil filter.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("could not compile filter: %w", err)
	}
	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

// Env converts item into the variables a filter sees.
func Env(item interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	env := make(map[string]interface{})
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("filter items must be objects: %w", err)
	}
	return env, nil
}

// Match reports whether item passes the filter. Items the filter cannot be evaluated on do not pass.
func (f *Filter) Match(item interface{}) bool {
	if f == nil {
		return true
	}
	env, err := Env(item)
	if err != nil {
		globals.AppLogger.Error("could not build filter env", "error", err)
		return false
	}
	res, err := expr.Run(f.program, env)
	if err != nil {
		globals.AppLogger.Debug("could not run filter", "filter", f.expression, "error", err)
		return false
	}
	if bRes, ok := res.(bool); ok && bRes {
		return true
	}
	return false
}

// Apply returns the items of list that pass f, in their original order.
func Apply[T any](f *Filter, list []T) []T {
	if f == nil {
		return list
	}
	res := make([]T, 0, len(list))
	for _, item := range list {
		if f.Match(item) {
			res = append(res, item)
		}
	}
	return res
}
