package utils

import "fmt"

// DeepMerge returns a new map with source merged into target. Nested maps are
// merged recursively; any other source value replaces the target value.
// Neither input is modified.
func DeepMerge(target, source map[string]interface{}) map[string]interface{} {
	output := make(map[string]interface{}, len(target)+len(source))
	for k, v := range target {
		output[k] = v
	}

	for key, value := range source {
		srcMap, isMap := asMap(value)
		if !isMap {
			output[key] = value
			continue
		}
		existing, ok := output[key]
		if !ok {
			output[key] = srcMap
			continue
		}
		if dstMap, ok := asMap(existing); ok {
			output[key] = DeepMerge(dstMap, srcMap)
		} else {
			output[key] = srcMap
		}
	}
	return output
}

// asMap accepts both map flavours produced by the YAML and JSON decoders.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(m))
		for key, inner := range m {
			normalized[fmt.Sprint(key)] = inner
		}
		return normalized, true
	default:
		return nil, false
	}
}
