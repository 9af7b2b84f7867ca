package evidence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedDocument marks a document type with no evidence role.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// Document is one extracted document as stored by the extraction pipeline.
type Document struct {
	ID     string          `json:"id"`
	Type   DocumentType    `json:"type"`
	Fields json.RawMessage `json:"fields"`
}

// Builder accumulates documents into a Bag. Singular roles keep the last
// document added; damage photos accumulate. A Builder is not safe for
// concurrent use.
type Builder struct {
	validator *Validator
	bag       Bag
}

// NewBuilder returns a Builder that validates records with v. A nil
// validator skips validation.
func NewBuilder(v *Validator) *Builder {
	return &Builder{validator: v}
}

// Add decodes, validates and places one document. Documents of types with
// no evidence role return ErrUnsupportedDocument and leave the bag untouched.
func (b *Builder) Add(doc Document) error {
	if len(bytes.TrimSpace(doc.Fields)) == 0 || bytes.Equal(bytes.TrimSpace(doc.Fields), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Fields))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("document %s: decode fields: %w", doc.ID, err)
	}

	if b.validator != nil {
		if err := b.validator.Validate(doc.Type, raw); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}

	switch doc.Type {
	case DocNRIC, DocMyKadFront:
		b.bag.NRIC = nricFrom(raw)
	case DocPolicy:
		b.bag.Policy = policyFrom(raw)
	case DocRegistration:
		b.bag.RegistrationCard = registrationFrom(raw)
	case DocPoliceReport:
		b.bag.PoliceReport = policeReportFrom(raw)
	case DocRepairQuotation:
		b.bag.RepairQuotation = quotationFrom(raw)
	case DocDamagePhoto:
		b.bag.DamagePhotos = append(b.bag.DamagePhotos, damagePhotoFrom(raw))
	default:
		return fmt.Errorf("document %s: %w: %s", doc.ID, ErrUnsupportedDocument, doc.Type)
	}
	return nil
}

// Bag returns the accumulated bag.
func (b *Builder) Bag() Bag {
	return b.bag
}

// Build places every document and returns the bag with the per-document
// errors. Unsupported document types are not reported.
func Build(v *Validator, docs []Document) (Bag, []error) {
	b := NewBuilder(v)
	var errs []error
	for _, doc := range docs {
		if err := b.Add(doc); err != nil && !errors.Is(err, ErrUnsupportedDocument) {
			errs = append(errs, err)
		}
	}
	return b.Bag(), errs
}

func authenticityFrom(m map[string]any) *Authenticity {
	if m == nil {
		return nil
	}
	return &Authenticity{
		AIGenerated:           toBool(m["ai_generated"]),
		ScreenCapture:         toBool(m["screen_capture"]),
		SuspiciousElements:    toStrings(m["suspicious_elements"]),
		PotentialManipulation: toStrings(m["potential_manipulation"]),
	}
}

func personFrom(m map[string]any) Person {
	return Person{
		Name:         toString(field(m, "name")),
		ICNumber:     toString(field(m, "ic_number")),
		DateOfBirth:  toString(field(m, "date_of_birth")),
		Relationship: toString(field(m, "relationship_to_policyholder")),
	}
}

func vehicleFrom(m map[string]any) Vehicle {
	return Vehicle{
		RegistrationNumber: toString(field(m, "registration_number")),
		ChassisNumber:      toString(field(m, "chassis_number")),
		Make:               toString(field(m, "make")),
		Model:              toString(field(m, "model")),
		Color:              toString(field(m, "color")),
	}
}

func lineItemsFrom(v any) []LineItem {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]LineItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, LineItem{
			Description: toString(m["description"]),
			Quantity:    toInt(m["quantity"]),
			UnitPrice:   toFloat(m["unit_price"]),
			TotalPrice:  toFloat(m["total_price"]),
		})
	}
	return items
}

func nricFrom(raw map[string]any) *NRIC {
	return &NRIC{
		FullName:        toString(raw["full_name"]),
		ICNumber:        toString(raw["ic_number"]),
		DateOfBirth:     toString(raw["date_of_birth"]),
		Gender:          toString(raw["gender"]),
		Age:             toInt(raw["age"]),
		Address:         toString(raw["address"]),
		ConfidenceScore: toFloat(raw["confidence_score"]),
		Authenticity:    authenticityFrom(object(raw, "authenticity")),
	}
}

func policyFrom(raw map[string]any) *Policy {
	coverage := object(raw, "coverage")
	return &Policy{
		InsurerName:   toString(raw["insurer_name"]),
		PolicyNumber:  toString(raw["policy_number"]),
		PolicyStatus:  toString(raw["policy_status"]),
		EffectiveDate: toString(raw["effective_date"]),
		ExpiryDate:    toString(raw["expiry_date"]),
		Policyholder:  personFrom(object(raw, "policyholder")),
		InsuredPerson: personFrom(object(raw, "insured_person")),
		Coverage: Coverage{
			SumInsured:    toFloat(field(coverage, "sum_insured")),
			PremiumAmount: toFloat(field(coverage, "premium_amount")),
			Description:   toString(field(coverage, "description")),
		},
		Vehicle:         vehicleFrom(object(raw, "vehicle")),
		ConfidenceScore: toFloat(raw["confidence_score"]),
		Authenticity:    authenticityFrom(object(raw, "authenticity")),
	}
}

func registrationFrom(raw map[string]any) *RegistrationCard {
	return &RegistrationCard{
		RegistrationNumber: toString(raw["registration_number"]),
		OwnerName:          toString(raw["owner_name"]),
		OwnerICNumber:      toString(raw["owner_ic_number"]),
		ChassisNumber:      toString(raw["chassis_number"]),
		EngineNumber:       toString(raw["engine_number"]),
		Make:               toString(raw["vehicle_make"]),
		Model:              toString(raw["vehicle_model"]),
		YearOfManufacture:  toString(raw["year_of_manufacture"]),
		RoadTaxExpiry:      toString(raw["road_tax_expiry"]),
		ConfidenceScore:    toFloat(raw["confidence_score"]),
		Authenticity:       authenticityFrom(object(raw, "authenticity")),
	}
}

func policeReportFrom(raw map[string]any) *PoliceReport {
	incident := object(raw, "incident")
	report := &PoliceReport{
		ReportNumber: toString(raw["report_number"]),
		ReportDate:   toString(raw["report_date"]),
		Incident: Incident{
			Date:        toString(field(incident, "date")),
			Time:        toString(field(incident, "time")),
			Location:    toString(field(incident, "location")),
			Description: toString(field(incident, "description")),
			Weather:     toString(field(incident, "weather")),
			RoadSurface: toString(field(incident, "road_surface")),
		},
		Complainant:     personFrom(object(raw, "complainant")),
		ConfidenceScore: toFloat(raw["confidence_score"]),
		Authenticity:    authenticityFrom(object(raw, "authenticity")),
	}
	if sig := object(raw, "signatures"); sig != nil {
		report.Signatures = &Signatures{
			Complainant:      toBool(sig["complainant_present"]),
			Interpreter:      toBool(sig["interpreter_present"]),
			ReceivingOfficer: toBool(sig["receiving_officer_present"]),
		}
	}
	return report
}

func quotationFrom(raw map[string]any) *RepairQuotation {
	costs := object(raw, "costs")
	repairs := object(raw, "repairs")
	return &RepairQuotation{
		QuotationNumber: toString(raw["quotation_number"]),
		QuotationDate:   toString(raw["quotation_date"]),
		TotalAmount:     toFloat(field(costs, "total_amount")),
		SubtotalAmount:  toFloat(field(costs, "subtotal_amount")),
		Parts:           lineItemsFrom(field(repairs, "parts_items")),
		Labor:           lineItemsFrom(field(repairs, "labor_items")),
		Vehicle:         vehicleFrom(object(raw, "vehicle")),
		ConfidenceScore: toFloat(raw["confidence_score"]),
		Authenticity:    authenticityFrom(object(raw, "authenticity")),
	}
}

func damagePhotoFrom(raw map[string]any) DamagePhoto {
	assessment := object(raw, "damage_assessment")
	env := object(raw, "environment")
	ctx := object(raw, "accident_context")
	return DamagePhoto{
		DamagedAreas:            toStrings(field(assessment, "damaged_areas")),
		DamageTypes:             toStrings(field(assessment, "damage_types")),
		StructuralDamageVisible: toString(field(assessment, "structural_damage_visible")),
		Vehicle:                 vehicleFrom(object(raw, "vehicle")),
		LightingCondition:       toString(field(env, "lighting_condition")),
		RoadCondition:           toString(field(env, "road_condition")),
		WeatherCondition:        toString(raw["weather_condition"]),
		RoadSurfaceCondition:    toString(raw["road_surface_condition"]),
		ImpactSeverity:          toString(field(ctx, "impact_severity")),
		AirbagDeployed:          toString(field(ctx, "airbag_deployed")),
		ConfidenceScore:         toFloat(raw["confidence_score"]),
		Authenticity:            authenticityFrom(object(raw, "authenticity")),
	}
}
