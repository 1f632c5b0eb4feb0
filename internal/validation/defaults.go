package validation

// ApplyDefaults walks schema and instance together and sets every missing
// object property that declares a `default`. Nested objects and array items
// are visited. Defaults are deep-copied so instances never share them.
func ApplyDefaults(schema any, instance any) any {
	s, ok := schema.(map[string]any)
	if !ok {
		return instance
	}

	switch v := instance.(type) {
	case map[string]any:
		props, _ := s["properties"].(map[string]any)
		for name, raw := range props {
			propSchema, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if _, present := v[name]; !present {
				if def, has := propSchema["default"]; has {
					v[name] = deepCopyValue(def)
				}
			}
			if child, present := v[name]; present {
				v[name] = ApplyDefaults(propSchema, child)
			}
		}
		return v
	case []any:
		items, ok := s["items"].(map[string]any)
		if !ok {
			return v
		}
		for i := range v {
			v[i] = ApplyDefaults(items, v[i])
		}
		return v
	default:
		return instance
	}
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopyValue(val)
		}
		return out
	default:
		return v
	}
}
