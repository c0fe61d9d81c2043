// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibGate Contributors

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// schemaCache holds the compiled schema to avoid recompilation.
var schemaCache *jschema.Schema

// durationPattern matches Go duration strings like "30s" or "1h30m".
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// GenerateSchema generates a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})

	schema.ID = jsonschema.ID(GetSchemaID())
	schema.Title = "LibGate Configuration"
	schema.Description = "Schema for libgate config files"

	// Reflection sees time.Duration as an integer; config files write it
	// as a duration string.
	if schema.Properties != nil {
		schema.Properties.Set("auto_reload_interval", &jsonschema.Schema{
			Type:        "string",
			Pattern:     durationPattern,
			Description: "Periodic policy reload interval, e.g. 30s or 5m",
		})
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateFile validates the YAML config file at path against the schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's own flag
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "read config file")
	}
	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	return nil
}

// ValidateSchema validates YAML data against the config JSON Schema.
func ValidateSchema(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		// An empty file means pure defaults
		return nil
	}

	// Parse YAML to generic interface for validation
	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	// Convert YAML to JSON-compatible types (yaml.Unmarshal uses map[string]any)
	jsonData := convertToJSONTypes(yamlData)

	sch, err := getCompiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := sch.Validate(jsonData); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// getCompiledSchema returns the cached compiled schema or compiles it.
func getCompiledSchema() (*jschema.Schema, error) {
	if schemaCache != nil {
		return schemaCache, nil
	}

	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	schemaCache = sch
	return sch, nil
}

// convertToJSONTypes converts YAML-parsed data to JSON-compatible types.
// YAML uses map[string]any which is compatible, but we need to handle
// nested structures recursively.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = convertToJSONTypes(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = convertToJSONTypes(item)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		// For other types, try to convert via JSON round-trip
		if b, err := json.Marshal(val); err == nil {
			var roundTripped any
			if err := json.Unmarshal(b, &roundTripped); err == nil {
				return roundTripped
			}
		}
		return val
	}
}

// ResetSchemaCache clears the cached schema. Used for testing.
func ResetSchemaCache() {
	schemaCache = nil
}

// GetSchemaID returns the schema $id for use in config files.
func GetSchemaID() string {
	return "https://libgate.dev/schemas/config.schema.json"
}
