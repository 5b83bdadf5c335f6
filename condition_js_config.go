package appstate

type jsConditionConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSConditionOption configures the JS condition engine.
type JSConditionOption func(*jsConditionConfig)

// JSWithProgramCache applies a ProgramCache to the JS condition.
func JSWithProgramCache(cache ProgramCache) JSConditionOption {
	return func(cfg *jsConditionConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS condition.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSConditionOption {
	return func(cfg *jsConditionConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyJSConditionOptions(opts []JSConditionOption) jsConditionConfig {
	cfg := jsConditionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
