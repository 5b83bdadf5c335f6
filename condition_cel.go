package appstate

import (
	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELConditionOption configures the CEL condition engine.
type CELConditionOption func(*celCondition)

// CELWithProgramCache wires a ProgramCache into the CEL condition.
func CELWithProgramCache(cache ProgramCache) CELConditionOption {
	return func(c *celCondition) {
		c.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL condition.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELConditionOption {
	return func(c *celCondition) {
		if registry == nil {
			return
		}
		c.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celCondition struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELCondition constructs a Condition backed by cel-go.
func NewCELCondition(opts ...CELConditionOption) Condition {
	c := &celCondition{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *celCondition) Evaluate(ctx WatchContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapConditionError("cel", ErrExpressionRequired)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := c.loadOrCompile(expression, ctx.Snapshot)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.storeLabel(), err)
	}
	out, _, err := program.program.Eval(c.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.storeLabel(), err)
	}
	return out.Value(), nil
}

func (c *celCondition) Compile(expression string, _ ...CompileOption) (CompiledCondition, error) {
	if expression == "" {
		return nil, wrapConditionError("cel", ErrExpressionRequired)
	}
	return &celCompiledCondition{
		condition:  c,
		expression: expression,
	}, nil
}

// loadOrCompile builds a CEL program declaring one dyn variable per snapshot
// key. Only successful compilations are cached: an expression referencing a
// key the snapshot does not carry yet fails the check phase, is not cached,
// and recompiles against the current snapshot on the next evaluation.
func (c *celCondition) loadOrCompile(expression string, snapshot map[string]any) (*celProgram, error) {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := c.buildEnv(snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if c.cache != nil {
		c.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (c *celCondition) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("changed", celgo.ListType(celgo.StringType)),
	}
	if c.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.FunctionBinding(c.callBinding()),
		)))
	}
	for key := range snapshot {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (c *celCondition) activation(ctx WatchContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"changed":  ctx.Changed,
	}
	for key, value := range ctx.Snapshot {
		activation[key] = value
	}
	if c.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return c.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledCondition struct {
	condition  *celCondition
	expression string
}

func (r *celCompiledCondition) Evaluate(ctx WatchContext) (any, error) {
	if r.condition == nil {
		return nil, wrapConditionError("cel", errMissingCondition)
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := r.condition.loadOrCompile(r.expression, ctx.Snapshot)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.storeLabel(), err)
	}
	out, _, err := program.program.Eval(r.condition.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.storeLabel(), err)
	}
	return out.Value(), nil
}

func (c *celCondition) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if c.registry == nil {
			return types.NewErr("appstate: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("appstate: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("appstate: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := c.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
