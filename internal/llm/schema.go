package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// BuildFieldMapJSONSchema returns the closed schema the model is asked to follow:
// every field present, every value a string, nothing else.
func BuildFieldMapJSONSchema() map[string]any {
	props := map[string]any{}
	for _, name := range constants.FieldNames() {
		props[name] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             constants.FieldNames(),
	}
}

var (
	fieldSchemaOnce sync.Once
	fieldSchema     *jsonschema.Schema
	fieldSchemaErr  error
)

// ValidateFieldMap checks a decoded object against BuildFieldMapJSONSchema.
func ValidateFieldMap(v any) error {
	fieldSchemaOnce.Do(func() {
		fieldSchema, fieldSchemaErr = compileSchema(BuildFieldMapJSONSchema())
	})
	if fieldSchemaErr != nil {
		return fieldSchemaErr
	}
	if err := fieldSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
