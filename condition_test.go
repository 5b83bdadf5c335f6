package appstate

import (
	"errors"
	"testing"
)

var conditionFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Condition
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Condition {
			opts := []ExprConditionOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprCondition(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Condition {
			opts := []CELConditionOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELCondition(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Condition {
			opts := []JSConditionOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSCondition(opts...)
		},
	},
}

func TestConditionEnginesEvaluateSnapshots(t *testing.T) {
	for _, factory := range conditionFactories {
		t.Run(factory.name, func(t *testing.T) {
			condition := factory.new(nil, nil)
			if condition == nil {
				if factory.name == "js" && !jsConditionAvailable() {
					t.Skip("js engine requires the js_eval build tag")
				}
				t.Fatalf("expected condition engine")
			}

			ctx := WatchContext{Snapshot: map[string]any{"count": 3}}
			result, err := condition.Evaluate(ctx, "count > 2")
			if err != nil {
				t.Fatalf("unexpected error from Evaluate: %v", err)
			}
			if !isTruthy(result) {
				t.Fatalf("expected truthy result, got %v", result)
			}
		})
	}
}

func TestConditionEnginesRejectEmptyExpression(t *testing.T) {
	for _, factory := range conditionFactories {
		t.Run(factory.name, func(t *testing.T) {
			condition := factory.new(nil, nil)
			if condition == nil {
				t.Skip("engine unavailable")
			}
			if _, err := condition.Evaluate(WatchContext{}, ""); !errors.Is(err, ErrExpressionRequired) {
				t.Fatalf("expected ErrExpressionRequired, got %v", err)
			}
			if _, err := condition.Compile(""); !errors.Is(err, ErrExpressionRequired) {
				t.Fatalf("expected ErrExpressionRequired from Compile, got %v", err)
			}
		})
	}
}

func TestConditionEnginesUseProgramCache(t *testing.T) {
	for _, factory := range conditionFactories {
		t.Run(factory.name, func(t *testing.T) {
			condition := factory.new(NewMemoryProgramCache(), nil)
			if condition == nil {
				t.Skip("engine unavailable")
			}
			compiled, err := condition.Compile("count > 2")
			if err != nil {
				t.Fatalf("unexpected error from Compile: %v", err)
			}
			for _, count := range []int{1, 3} {
				result, err := compiled.Evaluate(WatchContext{Snapshot: map[string]any{"count": count}})
				if err != nil {
					t.Fatalf("unexpected error from compiled Evaluate: %v", err)
				}
				if want := count > 2; isTruthy(result) != want {
					t.Fatalf("count=%d: expected truthy=%v, got %v", count, want, result)
				}
			}
		})
	}
}

func TestConditionEnginesExposeRegistryFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("threshold", func(args ...any) (any, error) {
		return 2, nil
	}); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}

	for _, factory := range conditionFactories {
		t.Run(factory.name, func(t *testing.T) {
			condition := factory.new(nil, registry)
			if condition == nil {
				t.Skip("engine unavailable")
			}
			ctx := WatchContext{Snapshot: map[string]any{"count": 3}}
			result, err := condition.Evaluate(ctx, `call("threshold")`)
			if err != nil {
				t.Fatalf("unexpected error from Evaluate: %v", err)
			}
			if !isTruthy(result) {
				t.Fatalf("expected registry call result, got %v", result)
			}
		})
	}
}

func TestCELConditionRecompilesWhenKeyAppears(t *testing.T) {
	condition := NewCELCondition(CELWithProgramCache(NewMemoryProgramCache()))

	// The key is missing from the first snapshot: compilation fails and the
	// failure must not be cached.
	if _, err := condition.Evaluate(WatchContext{Snapshot: map[string]any{"count": 1}}, "flag == true"); err == nil {
		t.Fatalf("expected error while flag is absent")
	}

	// Once the key exists the same expression compiles and evaluates.
	result, err := condition.Evaluate(WatchContext{Snapshot: map[string]any{"count": 1, "flag": true}}, "flag == true")
	if err != nil {
		t.Fatalf("unexpected error after key appears: %v", err)
	}
	if !isTruthy(result) {
		t.Fatalf("expected truthy result, got %v", result)
	}
}

func TestEvaluationErrorCarriesEngineMetadata(t *testing.T) {
	condition := NewExprCondition()
	_, err := condition.Evaluate(WatchContext{StoreID: "store-1"}, "count +")
	if err == nil {
		t.Fatalf("expected evaluation error for malformed expression")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "count +" {
		t.Fatalf("expected expression preserved, got %q", evalErr.Expr)
	}
}

func TestWrapEvaluationErrorFillsMissingFields(t *testing.T) {
	base := &EvaluationError{Err: errors.New("bad")}
	wrapped := wrapEvaluationError("cel", "count > 2", "store-1", base)
	var evalErr *EvaluationError
	if !errors.As(wrapped, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", wrapped)
	}
	if evalErr.Engine != "cel" || evalErr.Expr != "count > 2" || evalErr.Store != "store-1" {
		t.Fatalf("expected metadata to be filled, got %+v", evalErr)
	}

	if got := wrapEvaluationError("expr", "x", "s", nil); got != nil {
		t.Fatalf("expected nil for nil error, got %v", got)
	}
}

func TestConditionEngineName(t *testing.T) {
	if got := conditionEngineName(NewExprCondition()); got != "expr" {
		t.Fatalf("expected expr, got %q", got)
	}
	if got := conditionEngineName(NewCELCondition()); got != "cel" {
		t.Fatalf("expected cel, got %q", got)
	}
	if got := conditionEngineName(nil); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
