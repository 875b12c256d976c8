package validation

import (
	"errors"
	"fmt"
	"strings"

	"club-tickets/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInputValidation = errors.New("INPUT_VALIDATION_FAILED")

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks job variables against the input schemas of the activity registry.
// Schemas are compiled once at construction.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(reg.Activities))}
	for _, activity := range reg.Activities {
		if len(activity.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", activity.TaskType, err)
		}
		v.schemas[activity.TaskType] = schema
	}
	return v, nil
}

// LoadValidator reads the registry file and compiles its schemas.
func LoadValidator(path string) (*Validator, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return NewValidator(reg)
}

// ValidateJSON validates raw job variables. Task types without a schema pass.
func (v *Validator) ValidateJSON(taskType, variables string) (*ValidationResult, error) {
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}
	return v.validate(taskType, gojsonschema.NewStringLoader(variables))
}

func (v *Validator) ValidateInput(taskType string, input map[string]interface{}) (*ValidationResult, error) {
	return v.validate(taskType, gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(taskType string, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	if v == nil {
		return &ValidationResult{Valid: true}, nil
	}
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := schema.Validate(document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputValidation, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// Check returns ErrInputValidation wrapping every violation, or nil.
func (v *Validator) Check(taskType, variables string) error {
	result, err := v.ValidateJSON(taskType, variables)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInputValidation, strings.Join(GetErrorMessages(result), "; "))
	}
	return nil
}

func GetErrorMessages(result *ValidationResult) []string {
	messages := make([]string, 0, len(result.Errors))
	for _, err := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return messages
}
