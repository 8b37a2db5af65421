package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Front matter formats recognised in content files.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

var ErrUnknownFrontMatter = errors.New("unknown front matter format")

// ParseFrontMatter splits a content file into its front matter and body.
// YAML is fenced by "---", TOML by "+++"; a file starting with "{" is a JSON
// object followed by an optional body.
func ParseFrontMatter(content []byte) (map[string]interface{}, string, string, error) {
	str := normalizeLineEndings(string(content))

	if strings.HasPrefix(str, "---\n") {
		parts := strings.SplitN(str, "---", 3)
		if len(parts) == 3 {
			var fm map[string]interface{}
			if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
				return nil, "", "", fmt.Errorf("parse yaml front matter: %w", err)
			}
			return sanitizeFrontMatter(fm), strings.TrimSpace(parts[2]), FormatYAML, nil
		}
	}

	if strings.HasPrefix(str, "+++\n") {
		parts := strings.SplitN(str, "+++", 3)
		if len(parts) == 3 {
			var fm map[string]interface{}
			if err := toml.Unmarshal([]byte(parts[1]), &fm); err != nil {
				return nil, "", "", fmt.Errorf("parse toml front matter: %w", err)
			}
			return sanitizeFrontMatter(fm), strings.TrimSpace(parts[2]), FormatTOML, nil
		}
	}

	if strings.HasPrefix(strings.TrimSpace(str), "{") {
		dec := json.NewDecoder(strings.NewReader(str))
		var fm map[string]interface{}
		if err := dec.Decode(&fm); err != nil {
			return nil, "", "", fmt.Errorf("parse json front matter: %w", err)
		}
		return fm, strings.TrimSpace(str[dec.InputOffset():]), FormatJSON, nil
	}

	return nil, "", "", ErrUnknownFrontMatter
}

// ConstructFileContent is the inverse of ParseFrontMatter.
func ConstructFileContent(fm map[string]interface{}, body string, format string) ([]byte, error) {
	normalizedFM := sanitizeFrontMatter(fm)
	if normalizedFM == nil {
		normalizedFM = map[string]interface{}{}
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case FormatTOML:
		buf.WriteString("+++\n")
		enc := toml.NewEncoder(&buf)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		buf.WriteString("+++\n")
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// ApplyCollectionDefaults fills fields the document left out with the
// collection's defaults.
func ApplyCollectionDefaults(fm map[string]interface{}, defaults map[string]interface{}) {
	if fm == nil {
		return
	}
	for name, value := range defaults {
		if _, exists := fm[name]; !exists {
			fm[name] = value
		}
	}
}

func sanitizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeFrontMatter(v)
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []interface{}:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	default:
		return v
	}
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}
