package evidence

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	scalar   = `{"type": ["string", "number", "boolean", "null"]}`
	text     = `{"type": ["string", "null"]}`
	amount   = `{"type": ["string", "number", "null"]}`
	textList = `{"type": ["array", "null"], "items": {"type": ["string", "null"]}}`
)

var authenticitySchema = `{"type": ["object", "null"], "properties": {
	"ai_generated": ` + scalar + `,
	"screen_capture": ` + scalar + `,
	"suspicious_elements": ` + textList + `,
	"potential_manipulation": ` + textList + `}}`

var personSchema = `{"type": ["object", "null"], "properties": {
	"name": ` + text + `,
	"ic_number": ` + scalar + `,
	"date_of_birth": ` + text + `}}`

var vehicleSchema = `{"type": ["object", "null"], "properties": {
	"registration_number": ` + scalar + `,
	"chassis_number": ` + scalar + `,
	"make": ` + text + `,
	"model": ` + text + `}}`

var lineItems = `{"type": ["array", "null"], "items": {"type": "object", "properties": {
	"description": ` + text + `,
	"quantity": ` + amount + `,
	"unit_price": ` + amount + `,
	"total_price": ` + amount + `}}}`

func documentSchema(props string) string {
	return `{"type": "object", "properties": {
	"confidence_score": ` + amount + `,
	"authenticity": ` + authenticitySchema + `,
	` + props + `}}`
}

var documentSchemas = map[DocumentType]string{
	DocNRIC: documentSchema(`
	"full_name": ` + text + `,
	"ic_number": ` + scalar + `,
	"date_of_birth": ` + text + `,
	"age": ` + amount),
	DocPolicy: documentSchema(`
	"effective_date": ` + text + `,
	"expiry_date": ` + text + `,
	"policyholder": ` + personSchema + `,
	"insured_person": ` + personSchema + `,
	"coverage": {"type": ["object", "null"], "properties": {"sum_insured": ` + amount + `, "premium_amount": ` + amount + `}},
	"vehicle": ` + vehicleSchema),
	DocRegistration: documentSchema(`
	"registration_number": ` + scalar + `,
	"owner_name": ` + text + `,
	"owner_ic_number": ` + scalar + `,
	"chassis_number": ` + scalar + `,
	"road_tax_expiry": ` + text),
	DocPoliceReport: documentSchema(`
	"report_number": ` + scalar + `,
	"report_date": ` + text + `,
	"incident": {"type": ["object", "null"], "properties": {
		"date": ` + text + `, "time": ` + text + `, "description": ` + text + `, "weather": ` + text + `}},
	"complainant": ` + personSchema + `,
	"signatures": {"type": ["object", "null"], "properties": {
		"complainant_present": ` + scalar + `,
		"interpreter_present": ` + scalar + `,
		"receiving_officer_present": ` + scalar + `}}`),
	DocRepairQuotation: documentSchema(`
	"costs": {"type": ["object", "null"], "properties": {"total_amount": ` + amount + `, "subtotal_amount": ` + amount + `}},
	"repairs": {"type": ["object", "null"], "properties": {"parts_items": ` + lineItems + `, "labor_items": ` + lineItems + `}},
	"vehicle": ` + vehicleSchema),
	DocDamagePhoto: documentSchema(`
	"damage_assessment": {"type": ["object", "null"], "properties": {
		"damaged_areas": ` + textList + `,
		"damage_types": ` + textList + `}},
	"vehicle": ` + vehicleSchema + `,
	"weather_condition": ` + text + `,
	"accident_context": {"type": ["object", "null"], "properties": {
		"impact_severity": ` + text + `,
		"airbag_deployed": ` + scalar + `}}`),
}

// Validator checks extracted records against the per-type shape contract.
type Validator struct {
	schemas map[DocumentType]*jsonschema.Schema
}

// NewValidator compiles the document schemas.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[DocumentType]*jsonschema.Schema, len(documentSchemas))}
	for docType, schema := range documentSchemas {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020

		url := fmt.Sprintf("mem://evidence/%s.json", strings.ToLower(string(docType)))
		if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", docType, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", docType, err)
		}
		v.schemas[docType] = compiled
	}
	return v, nil
}

// Validate checks a decoded record. NRIC and MyKad share one schema.
func (v *Validator) Validate(docType DocumentType, record any) error {
	if docType == DocMyKadFront {
		docType = DocNRIC
	}
	schema, ok := v.schemas[docType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDocument, docType)
	}
	if err := schema.Validate(record); err != nil {
		return fmt.Errorf("%s record rejected: %w", docType, err)
	}
	return nil
}
