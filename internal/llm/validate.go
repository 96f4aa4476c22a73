package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
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

// validateFields re-checks coerced fields against the metadata schema.
func validateFields(f DocumentFields) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	return ValidateJSONAgainstSchema(BuildMetadataJSONSchema(), b)
}

var (
	metadataSchemaOnce sync.Once
	metadataSchema     *jsonschema.Schema
	metadataSchemaErr  error
)

// validateMetadataObject checks an already-decoded answer against the metadata schema.
func validateMetadataObject(obj map[string]any) error {
	metadataSchemaOnce.Do(func() {
		metadataSchema, metadataSchemaErr = compileSchema(BuildMetadataJSONSchema())
	})
	if metadataSchemaErr != nil {
		return metadataSchemaErr
	}
	if err := metadataSchema.Validate(any(obj)); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
