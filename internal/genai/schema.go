package genai

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionSchema is the JSON Schema every generated question must
// satisfy before it leaves this package. Validating once here means no
// downstream code ever type-sniffs generator output.
var questionSchema = map[string]any{
	"type": "object",
	"required": []any{
		"prompt", "option_a", "option_b", "option_c", "option_d",
		"correct_option", "explanation",
	},
	"properties": map[string]any{
		"prompt":         map[string]any{"type": "string", "minLength": 1},
		"option_a":       map[string]any{"type": "string", "minLength": 1},
		"option_b":       map[string]any{"type": "string", "minLength": 1},
		"option_c":       map[string]any{"type": "string", "minLength": 1},
		"option_d":       map[string]any{"type": "string", "minLength": 1},
		"correct_option": map[string]any{"enum": []any{"A", "B", "C", "D"}},
		"explanation":    map[string]any{"type": "string"},
	},
	"additionalProperties": false,
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// validateOutput checks raw generator output against questionSchema.
func validateOutput(raw json.RawMessage) error {
	compileOnce.Do(func() {
		defBytes, err := json.Marshal(questionSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://question.json", def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("schema://question.json")
	})
	if compileErr != nil {
		return compileErr
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledSchema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
