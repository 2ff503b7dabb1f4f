package importcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a mapping document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", &ConfigurationError{Message: fmt.Sprintf("unsupported config file extension %q (use .json, .yaml, .yml or .toml)", filepath.Ext(path))}
	}
}

// Defaults returns the document every loaded config is merged over.
func Defaults() map[string]any {
	return map[string]any{
		"target": map[string]any{
			"apiUrl": "https://api.linear.app/graphql",
		},
		"dataModel": map[string]any{
			"items": map[string]any{
				"subitems": map[string]any{
					"enabled":   false,
					"delimiter": ",",
				},
			},
		},
		"links": map[string]any{
			"enabled": false,
			"columns": []any{},
		},
		"updates": map[string]any{
			"enabled":        false,
			"sheet":          "Updates",
			"order":          string(OrderAsc),
			"authorFallback": string(AuthorPrepend),
		},
		"options": map[string]any{
			"continueOnError":     true,
			"createMissingLabels": false,
			"skipEmptyRows":       true,
		},
	}
}

// MergeDefaults deep-merges override over base and returns a new document.
// Nested maps merge key by key; arrays and scalars in override replace the
// base value. Neither input is modified.
func MergeDefaults(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range override {
		baseMap, baseIsMap := out[k].(map[string]any)
		overMap, overIsMap := v.(map[string]any)
		if baseIsMap && v == nil {
			// a section with every key commented out decodes to nil
			continue
		}
		if baseIsMap && overIsMap {
			out[k] = MergeDefaults(baseMap, overMap)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return MergeDefaults(nil, t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Parse decodes a raw document into a generic map with string keys.
func Parse(data []byte, format Format) (map[string]any, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, &ConfigurationError{Message: "invalid JSON", Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &ConfigurationError{Message: "invalid YAML", Err: err}
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, &ConfigurationError{Message: "invalid TOML", Err: err}
		}
	default:
		return nil, &ConfigurationError{Message: fmt.Sprintf("unsupported format %q", format)}
	}
	if raw == nil {
		return nil, &ConfigurationError{Message: "config document is empty"}
	}

	normalized, ok := normalizeKeys(raw).(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Message: "config document must be a mapping"}
	}
	return normalized, nil
}

// normalizeKeys turns map[any]any nodes (YAML with non-string keys) into
// map[string]any so every node can be merged and re-encoded.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeKeys(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalizeKeys(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeKeys(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeKeys(e)
		}
		return out
	default:
		return v
	}
}

// Decode merges a raw document over Defaults and decodes it into an ImportConfig.
func Decode(raw map[string]any) (*ImportConfig, error) {
	merged := MergeDefaults(Defaults(), raw)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, &ConfigurationError{Message: "cannot encode merged config", Err: err}
	}

	var cfg ImportConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Message: "config does not match the expected structure", Err: err}
	}
	return &cfg, nil
}

// Load reads a mapping document, merges defaults and folds in the optional
// user mapping file. The result is not validated; see Build.
func Load(path string) (*ImportConfig, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("cannot read config %s", path), Err: err}
	}

	raw, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)

	if cfg.Options.UserMappingFile != "" {
		users, err := LoadUserMapping(cfg.ResolvePath(cfg.Options.UserMappingFile))
		if err != nil {
			return nil, err
		}
		if cfg.Fallbacks.Users == nil {
			cfg.Fallbacks.Users = ValueMap{}
		}
		for name, target := range users {
			// Entries in the main document win over the curated file.
			if _, exists := cfg.Fallbacks.Users[name]; !exists && target != "" {
				cfg.Fallbacks.Users[name] = target
			}
		}
	}

	return cfg, nil
}

// Build loads and structurally validates a mapping document. Each override
// is applied to the loaded document before validation. A document that
// fails validation is never returned.
func Build(path string, overrides ...func(*ImportConfig)) (*ImportConfig, ValidationResult, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	result := ValidateConfig(cfg)
	if !result.Valid {
		return nil, result, result.Err()
	}
	return cfg, result, nil
}

// ResolvePath resolves p relative to the config file's directory.
func (c *ImportConfig) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// LoadUserMapping reads a curated user mapping file. Both a top-level
// "users" table and a flat name-to-target table are accepted.
func LoadUserMapping(path string) (map[string]string, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("cannot read user mapping %s", path), Err: err}
	}
	raw, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	table := raw
	if nested, ok := raw["users"].(map[string]any); ok {
		table = nested
	}

	out := make(map[string]string, len(table))
	for name, v := range table {
		switch t := v.(type) {
		case nil:
			out[name] = ""
		case string:
			out[name] = t
		default:
			out[name] = fmt.Sprint(t)
		}
	}
	return out, nil
}
