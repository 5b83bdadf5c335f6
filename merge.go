package appstate

// mergeSnapshots produces a new snapshot by shallow-merging partial onto base.
// Later values win per key; the merge is a shallow overwrite, never a deep
// merge of nested containers. Both inputs are left untouched.
func mergeSnapshots(base, partial State) State {
	merged := make(State, len(base)+len(partial))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range partial {
		merged[key] = cloneValue(value)
	}
	return merged
}

// cloneState deep-copies a snapshot so callers can mutate the result without
// leaking changes into the store.
func cloneState(state State) State {
	if state == nil {
		return State{}
	}
	out := make(State, len(state))
	for key, value := range state {
		out[key] = cloneValue(value)
	}
	return out
}

// cloneValue copies the JSON-shaped containers a snapshot may hold. Scalars
// and caller-defined types are returned as-is.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, nested := range typed {
			out[key] = cloneValue(nested)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, nested := range typed {
			out[i] = cloneValue(nested)
		}
		return out
	default:
		return value
	}
}
