package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CheckFunc validates instance against schema and returns the validated,
// possibly defaulted, value.
type CheckFunc func(schema any, instance any) (any, error)

// ViolationError lists the schema violations found for one instance.
type ViolationError struct {
	Violations []string
}

func (e *ViolationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

const schemaResource = "mem://packhooks/schema.json"

// JSONSchemaCheck fills in `default` values declared by the schema, then
// validates the result. instance is modified in place.
func JSONSchemaCheck(schema any, instance any) (any, error) {
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, err
	}

	instance = ApplyDefaults(schema, instance)
	if err := compiled.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ViolationError{Violations: collectViolations(ve)}
		}
		return nil, err
	}
	return instance, nil
}

func compileSchema(schema any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// collectViolations flattens the leaf causes of a validation error into
// "<instance location>: <message>" lines.
func collectViolations(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
