// Package layering provides the merge and copy primitives used when a staged
// settings snapshot is combined with a persisted one.
package layering

// Merge composes a backend snapshot with a staged overlay at the top level
// only. Backend keys survive, overlay keys win on collision, and nested
// structures are replaced wholesale rather than merged recursively. Both
// inputs are left untouched; the result shares no mutable state with either.
func Merge(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		merged[key] = Clone(value)
	}
	for key, value := range overlay {
		merged[key] = Clone(value)
	}
	return merged
}

// CloneValues deep-copies a settings payload.
func CloneValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = Clone(value)
	}
	return out
}

// Clone deep-copies a JSON-shaped value. Maps and slices are duplicated,
// scalars are returned as is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, nested := range typed {
			out[key] = Clone(nested)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, nested := range typed {
			out[i] = Clone(nested)
		}
		return out
	default:
		return value
	}
}
