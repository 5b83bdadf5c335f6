package appstate

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents flattened field descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// FieldDescriptor describes a dotted snapshot path and its inferred type.
// State stays schemaless; descriptors are derived for documentation and
// debugging, never enforced.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// SchemaDocument encapsulates a derived schema output alongside its format
// identifier. Document is always JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat `json:"format"`
	Document any          `json:"document"`
}

// Describe derives flattened field descriptors from the current snapshot,
// documenting the shape callers have written so far.
func (s *Store) Describe() SchemaDocument {
	descriptors := deriveFieldDescriptors(s.Snapshot(), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var out []FieldDescriptor
		for _, key := range keys {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			out = append(out, deriveFieldDescriptors(typed[key], path)...)
		}
		if len(out) == 0 && prefix != "" {
			return []FieldDescriptor{{Path: prefix, Type: "object"}}
		}
		return out
	case []any:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "array"}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: scalarTypeName(typed)}}
	}
}

func scalarTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case json.Number, int, int32, int64, uint, uint32, uint64, float32, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", value)
	}
}
