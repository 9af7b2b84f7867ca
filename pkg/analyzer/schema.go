package analyzer

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaURL = "mem://analyzer/response.json"

// Every analyzer answers with an object; the fields the pipeline reads are
// typed, anything else passes through into the details payload.
const responseSchema = `{
	"type": "object",
	"properties": {
		"risk_score": {"type": ["string", "null"]},
		"confidence": {"type": ["number", "null"]},
		"metrics": {"type": ["object", "array", "null"]}
	}
}`

func compileResponseSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(responseSchemaURL, strings.NewReader(responseSchema)); err != nil {
		return nil, fmt.Errorf("add analyzer response schema: %w", err)
	}
	return c.Compile(responseSchemaURL)
}
