package appstate

import (
	"reflect"
	"testing"
)

func TestMergeSnapshotsLaterValuesWin(t *testing.T) {
	cases := []struct {
		name    string
		base    State
		partial State
		want    State
	}{
		{
			name:    "disjoint keys",
			base:    State{"a": 1},
			partial: State{"b": 2},
			want:    State{"a": 1, "b": 2},
		},
		{
			name:    "overlapping keys",
			base:    State{"a": 1, "b": 2},
			partial: State{"a": 10},
			want:    State{"a": 10, "b": 2},
		},
		{
			name:    "nested maps overwritten not deep merged",
			base:    State{"cfg": map[string]any{"a": 1, "b": 2}},
			partial: State{"cfg": map[string]any{"c": 3}},
			want:    State{"cfg": map[string]any{"c": 3}},
		},
		{
			name:    "empty partial",
			base:    State{"a": 1},
			partial: State{},
			want:    State{"a": 1},
		},
		{
			name:    "nil base",
			base:    nil,
			partial: State{"a": 1},
			want:    State{"a": 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mergeSnapshots(tc.base, tc.partial)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMergeSnapshotsDetachesPartialContainers(t *testing.T) {
	nested := map[string]any{"a": 1}
	merged := mergeSnapshots(State{}, State{"cfg": nested})

	nested["a"] = 99
	if got := merged["cfg"].(map[string]any)["a"]; got != 1 {
		t.Fatalf("expected merged value isolated from caller mutation, got %v", got)
	}
}

func TestCloneStateDeepCopiesContainers(t *testing.T) {
	original := State{
		"cfg":  map[string]any{"a": 1},
		"tags": []any{"x", map[string]any{"y": 2}},
	}
	clone := cloneState(original)

	clone["cfg"].(map[string]any)["a"] = 99
	clone["tags"].([]any)[1].(map[string]any)["y"] = 99

	if got := original["cfg"].(map[string]any)["a"]; got != 1 {
		t.Fatalf("expected original nested map untouched, got %v", got)
	}
	if got := original["tags"].([]any)[1].(map[string]any)["y"]; got != 2 {
		t.Fatalf("expected original nested slice untouched, got %v", got)
	}

	if clone := cloneState(nil); clone == nil || len(clone) != 0 {
		t.Fatalf("expected nil state to clone to empty map, got %v", clone)
	}
}
