package ecdsasd

import "fmt"

func asBytes(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

func asByteStringArray(v any) ([][]byte, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		b, ok := asBytes(item)
		if !ok {
			return nil, fmt.Errorf("element %d is not a byte string: %T", i, item)
		}
		out[i] = b
	}
	return out, nil
}

func asStringArray(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("element %d is not text: %T", i, item)
		}
		out[i] = s
	}
	return out, nil
}

func asIntArray(v any) ([]int, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]int, len(items))
	for i, item := range items {
		n, err := asInt(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func asLabelMap(v any) (map[int][]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(map[any]any)
	if !ok {
		return nil, fmt.Errorf("expected map, got %T", v)
	}
	out := make(map[int][]byte, len(raw))
	for k, val := range raw {
		n, err := asInt(k)
		if err != nil {
			return nil, fmt.Errorf("label map key: %w", err)
		}
		b, ok := asBytes(val)
		if !ok {
			return nil, fmt.Errorf("label map value for %d is not a byte string: %T", n, val)
		}
		out[n] = b
	}
	return out, nil
}
