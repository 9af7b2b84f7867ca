// Package evidence shapes extracted document fields into the typed bag the
// Trinity engine audits.
package evidence

// DocumentType is the document classification assigned at upload.
type DocumentType string

const (
	DocNRIC            DocumentType = "NRIC"
	DocMyKadFront      DocumentType = "MYKAD_FRONT"
	DocPolicy          DocumentType = "POLICY_DOCUMENT"
	DocRegistration    DocumentType = "VEHICLE_REG_CARD"
	DocPoliceReport    DocumentType = "POLICE_REPORT"
	DocRepairQuotation DocumentType = "REPAIR_QUOTATION"
	DocDamagePhoto     DocumentType = "DAMAGE_PHOTO"
)

// Authenticity carries the extractor's tamper signals.
type Authenticity struct {
	AIGenerated           bool     `json:"ai_generated"`
	ScreenCapture         bool     `json:"screen_capture"`
	SuspiciousElements    []string `json:"suspicious_elements,omitempty"`
	PotentialManipulation []string `json:"potential_manipulation,omitempty"`
}

// NRIC is a national identity card.
type NRIC struct {
	FullName        string        `json:"full_name,omitempty"`
	ICNumber        string        `json:"ic_number,omitempty"`
	DateOfBirth     string        `json:"date_of_birth,omitempty"`
	Gender          string        `json:"gender,omitempty"`
	Age             int           `json:"age,omitempty"`
	Address         string        `json:"address,omitempty"`
	ConfidenceScore float64       `json:"confidence_score"`
	Authenticity    *Authenticity `json:"authenticity,omitempty"`
}

// Person is a named party on a policy or report.
type Person struct {
	Name         string `json:"name,omitempty"`
	ICNumber     string `json:"ic_number,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Relationship string `json:"relationship_to_policyholder,omitempty"`
}

// Coverage is the policy's insured amounts.
type Coverage struct {
	SumInsured    float64 `json:"sum_insured,omitempty"`
	PremiumAmount float64 `json:"premium_amount,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// Vehicle identifies a vehicle as described by one document.
type Vehicle struct {
	RegistrationNumber string `json:"registration_number,omitempty"`
	ChassisNumber      string `json:"chassis_number,omitempty"`
	Make               string `json:"make,omitempty"`
	Model              string `json:"model,omitempty"`
	Color              string `json:"color,omitempty"`
}

// Policy is a motor insurance policy schedule.
type Policy struct {
	InsurerName     string        `json:"insurer_name,omitempty"`
	PolicyNumber    string        `json:"policy_number,omitempty"`
	PolicyStatus    string        `json:"policy_status,omitempty"`
	EffectiveDate   string        `json:"effective_date,omitempty"`
	ExpiryDate      string        `json:"expiry_date,omitempty"`
	Policyholder    Person        `json:"policyholder"`
	InsuredPerson   Person        `json:"insured_person"`
	Coverage        Coverage      `json:"coverage"`
	Vehicle         Vehicle       `json:"vehicle"`
	ConfidenceScore float64       `json:"confidence_score"`
	Authenticity    *Authenticity `json:"authenticity,omitempty"`
}

// RegistrationCard is a vehicle registration certificate.
type RegistrationCard struct {
	RegistrationNumber string        `json:"registration_number,omitempty"`
	OwnerName          string        `json:"owner_name,omitempty"`
	OwnerICNumber      string        `json:"owner_ic_number,omitempty"`
	ChassisNumber      string        `json:"chassis_number,omitempty"`
	EngineNumber       string        `json:"engine_number,omitempty"`
	Make               string        `json:"vehicle_make,omitempty"`
	Model              string        `json:"vehicle_model,omitempty"`
	YearOfManufacture  string        `json:"year_of_manufacture,omitempty"`
	RoadTaxExpiry      string        `json:"road_tax_expiry,omitempty"`
	ConfidenceScore    float64       `json:"confidence_score"`
	Authenticity       *Authenticity `json:"authenticity,omitempty"`
}

// Incident is the police report's account of the event. The vehicle plate
// usually appears only inside Description.
type Incident struct {
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Weather     string `json:"weather,omitempty"`
	RoadSurface string `json:"road_surface,omitempty"`
}

// Signatures records which signature blocks are present.
type Signatures struct {
	Complainant      bool `json:"complainant_present"`
	Interpreter      bool `json:"interpreter_present"`
	ReceivingOfficer bool `json:"receiving_officer_present"`
}

// PoliceReport is a filed police report.
type PoliceReport struct {
	ReportNumber    string        `json:"report_number,omitempty"`
	ReportDate      string        `json:"report_date,omitempty"`
	Incident        Incident      `json:"incident"`
	Complainant     Person        `json:"complainant"`
	Signatures      *Signatures   `json:"signatures,omitempty"`
	ConfidenceScore float64       `json:"confidence_score"`
	Authenticity    *Authenticity `json:"authenticity,omitempty"`
}

// LineItem is one quoted part or labour entry.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// RepairQuotation is a workshop repair estimate.
type RepairQuotation struct {
	QuotationNumber string        `json:"quotation_number,omitempty"`
	QuotationDate   string        `json:"quotation_date,omitempty"`
	TotalAmount     float64       `json:"total_amount"`
	SubtotalAmount  float64       `json:"subtotal_amount,omitempty"`
	Parts           []LineItem    `json:"parts_items,omitempty"`
	Labor           []LineItem    `json:"labor_items,omitempty"`
	Vehicle         Vehicle       `json:"vehicle"`
	ConfidenceScore float64       `json:"confidence_score"`
	Authenticity    *Authenticity `json:"authenticity,omitempty"`
}

// DamagePhoto is the vision analysis of one photo set.
type DamagePhoto struct {
	DamagedAreas            []string      `json:"damaged_areas,omitempty"`
	DamageTypes             []string      `json:"damage_types,omitempty"`
	StructuralDamageVisible string        `json:"structural_damage_visible,omitempty"`
	Vehicle                 Vehicle       `json:"vehicle"`
	LightingCondition       string        `json:"lighting_condition,omitempty"`
	RoadCondition           string        `json:"road_condition,omitempty"`
	WeatherCondition        string        `json:"weather_condition,omitempty"`
	RoadSurfaceCondition    string        `json:"road_surface_condition,omitempty"`
	ImpactSeverity          string        `json:"impact_severity,omitempty"`
	AirbagDeployed          string        `json:"airbag_deployed,omitempty"`
	ConfidenceScore         float64       `json:"confidence_score"`
	Authenticity            *Authenticity `json:"authenticity,omitempty"`
}

// Bag holds at most one document per role plus every damage photo analysis.
// A nil slot means the document was not supplied.
type Bag struct {
	NRIC             *NRIC             `json:"nric,omitempty"`
	Policy           *Policy           `json:"policy,omitempty"`
	RegistrationCard *RegistrationCard `json:"registrationCard,omitempty"`
	PoliceReport     *PoliceReport     `json:"policeReport,omitempty"`
	RepairQuotation  *RepairQuotation  `json:"repairQuotation,omitempty"`
	DamagePhotos     []DamagePhoto     `json:"damagePhotos,omitempty"`
}

// Empty reports whether no document has been placed in the bag.
func (b *Bag) Empty() bool {
	return b.NRIC == nil && b.Policy == nil && b.RegistrationCard == nil &&
		b.PoliceReport == nil && b.RepairQuotation == nil && len(b.DamagePhotos) == 0
}
