package appstate

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprConditionOption configures an expr condition instance.
type ExprConditionOption func(*exprCondition)

// ExprWithProgramCache wires a ProgramCache into the expr condition.
func ExprWithProgramCache(cache ProgramCache) ExprConditionOption {
	return func(c *exprCondition) {
		c.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr condition.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprConditionOption {
	return func(c *exprCondition) {
		if registry == nil {
			return
		}
		c.registry = registry.Clone()
	}
}

// exprCondition executes watch expressions using github.com/expr-lang/expr.
type exprCondition struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprCondition constructs a Condition backed by expr-lang/expr. It is the
// default engine when a store has no explicit condition configured.
func NewExprCondition(opts ...ExprConditionOption) Condition {
	c := &exprCondition{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Evaluate compiles and runs expression against ctx.Snapshot.
func (c *exprCondition) Evaluate(ctx WatchContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapConditionError("expr", ErrExpressionRequired)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	env := c.environment(ctx)
	if c.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapEvaluationError("expr", expression, ctx.storeLabel(), err)
		}
		return result, nil
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.storeLabel(), err)
	}
	return result, nil
}

// Compile returns a compiled condition that evaluates expression per
// invocation.
func (c *exprCondition) Compile(expression string, _ ...CompileOption) (CompiledCondition, error) {
	if expression == "" {
		return nil, wrapConditionError("expr", ErrExpressionRequired)
	}
	program, err := c.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledCondition{
		condition:  c,
		program:    program,
		expression: expression,
	}, nil
}

func (c *exprCondition) loadOrCompile(expression string) (*exprvm.Program, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range c.registryNames() {
		fn := c.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	if c.cache != nil {
		c.cache.Set(expression, program)
	}
	return program, nil
}

type exprCompiledCondition struct {
	condition  *exprCondition
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledCondition) Evaluate(ctx WatchContext) (any, error) {
	if r.condition == nil {
		return nil, wrapConditionError("expr", errMissingCondition)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	if r.program == nil {
		return r.condition.Evaluate(ctx, r.expression)
	}
	env := r.condition.environment(ctx)
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.storeLabel(), err)
	}
	return result, nil
}

func (c *exprCondition) environment(ctx WatchContext) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"changed":  ctx.Changed,
	}
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	if c.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		}
		for _, name := range c.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return c.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

func (c *exprCondition) registryNames() []string {
	if c == nil || c.registry == nil {
		return nil
	}
	return c.registry.Names()
}

func (c *exprCondition) registryFunction(name string) func(...any) (any, error) {
	if c == nil || c.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return c.registry.Call(name, arguments...)
	}
}
