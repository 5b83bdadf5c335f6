//go:build !js_eval

package appstate

// NewJSCondition is unavailable without the js_eval build tag.
func NewJSCondition(opts ...JSConditionOption) Condition {
	_ = applyJSConditionOptions(opts)
	return nil
}

func jsConditionAvailable() bool {
	return false
}
