package scene

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/home-designer/backend/internal/models"
)

// Helpers for pulling typed values out of decoded JSON or YAML (map[string]any trees).

func asObject(v any, path string) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, newError(KindInvalidValue, path, "object key %v is not a string", k)
			}
			out[ks] = val
		}
		return out, nil
	}
	return nil, newError(KindInvalidValue, path, "expected an object, got %s", typeName(v))
}

func asArray(v any, path string) ([]any, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, newError(KindInvalidValue, path, "expected an array, got %s", typeName(v))
	}
	return a, nil
}

func asNumber(v any, path string) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, newError(KindInvalidValue, path, "invalid number %q", n.String())
		}
		f = parsed
	default:
		return 0, newError(KindInvalidValue, path, "expected a number, got %s", typeName(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, newError(KindInvalidValue, path, "number must be finite")
	}
	return f, nil
}

func asString(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", newError(KindInvalidValue, path, "expected a string, got %s", typeName(v))
	}
	return s, nil
}

func asNumbers(v any, path string, n int) ([]float64, error) {
	arr, err := asArray(v, path)
	if err != nil {
		return nil, err
	}
	if len(arr) != n {
		return nil, newError(KindInvalidValue, path, "expected %d coordinates, got %d", n, len(arr))
	}
	out := make([]float64, n)
	for i, el := range arr {
		f, err := asNumber(el, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func asPoint2(v any, path string) (models.Point2, error) {
	nums, err := asNumbers(v, path, 2)
	if err != nil {
		return models.Point2{}, err
	}
	return models.Point2{nums[0], nums[1]}, nil
}

func asPoint3(v any, path string) (models.Point3, error) {
	nums, err := asNumbers(v, path, 3)
	if err != nil {
		return models.Point3{}, err
	}
	return models.Point3{nums[0], nums[1], nums[2]}, nil
}

func asBounds(v any, path string) (models.Bounds, error) {
	arr, err := asArray(v, path)
	if err != nil {
		return models.Bounds{}, err
	}
	if len(arr) != 2 {
		return models.Bounds{}, newError(KindInvalidValue, path, "expected 2 corner points, got %d", len(arr))
	}
	a, err := asPoint2(arr[0], path+"[0]")
	if err != nil {
		return models.Bounds{}, err
	}
	b, err := asPoint2(arr[1], path+"[1]")
	if err != nil {
		return models.Bounds{}, err
	}
	return models.Bounds{a, b}, nil
}

// field returns the value at key, treating an explicit null like a missing key.
func field(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	case float64, float32, int, int32, int64, uint64, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
