//go:build js_eval

package appstate

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsCondition struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSCondition constructs a Condition backed by goja.
func NewJSCondition(opts ...JSConditionOption) Condition {
	cfg := applyJSConditionOptions(opts)
	return &jsCondition{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (c *jsCondition) Evaluate(ctx WatchContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapConditionError("js", ErrExpressionRequired)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	if c.cache == nil {
		return c.run(ctx, expression, nil)
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, expression, program)
}

func (c *jsCondition) Compile(expression string, _ ...CompileOption) (CompiledCondition, error) {
	if expression == "" {
		return nil, wrapConditionError("js", ErrExpressionRequired)
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledCondition{
		condition:  c,
		expression: expression,
		program:    program,
	}, nil
}

func (c *jsCondition) loadOrCompile(expression string) (*goja.Program, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", c.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	if c.cache != nil {
		c.cache.Set(expression, program)
	}
	return program, nil
}

func (c *jsCondition) run(ctx WatchContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	c.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapEvaluationError("js", expression, ctx.storeLabel(), err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(c.wrapExpression(expression))
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.storeLabel(), err)
	}
	return value.Export(), nil
}

func (c *jsCondition) injectContext(vm *goja.Runtime, ctx WatchContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("args", ctx.Args)
	vm.Set("metadata", ctx.Metadata)
	vm.Set("changed", ctx.Changed)
	for key, value := range ctx.Snapshot {
		vm.Set(key, value)
	}
	if c.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		})
		for _, name := range c.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return c.registry.Call(fn, arguments...)
			})
		}
	}
}

func (c *jsCondition) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledCondition struct {
	condition  *jsCondition
	expression string
	program    *goja.Program
}

func (r *jsCompiledCondition) Evaluate(ctx WatchContext) (any, error) {
	if r.condition == nil {
		return nil, wrapConditionError("js", errMissingCondition)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	return r.condition.run(ctx, r.expression, r.program)
}

func jsConditionAvailable() bool {
	return true
}
