package fhir

// Wire primitives for the FHIR-shaped payloads carried inside room events.
// Values arriving from other clients may be loosely typed (a Quantity value
// sent as a string or a number), so Quantity.Value is decoded separately by
// the observation codec rather than typed here.

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Meta struct {
	Profile string `json:"profile,omitempty"`
}

// Quantity carries a UCUM-coded measurement. Value stays untyped on the
// wire: the original client serializes form input verbatim, so both
// "37.2" and 37.2 occur in the field.
type Quantity struct {
	Value  interface{} `json:"value,omitempty"`
	Unit   string      `json:"unit,omitempty"`
	System string      `json:"system,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// Component is one member of a multi-part observation, e.g. the systolic
// or diastolic half of a blood-pressure reading.
type Component struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity Quantity        `json:"valueQuantity"`
}

const (
	SystemLOINC               = "http://loinc.org"
	SystemUCUM                = "http://unitsofmeasure.org"
	SystemObservationCategory = "http://hl7.org/fhir/observation-category"
	ProfileVitalSigns         = "http://hl7.org/fhir/StructureDefinition/vitalsigns"
)

// VitalSignsCategory is the category attached to physiological
// measurements; anamnesis items carry no category.
func VitalSignsCategory() CodeableConcept {
	return CodeableConcept{
		Coding: []Coding{{
			Code:    "vital-signs",
			Display: "Vital Signs",
			System:  SystemObservationCategory,
		}},
		Text: "Vital Signs",
	}
}

// FormatReference renders a FHIR reference string like "Patient/Anna Muster".
func FormatReference(resourceType, id string) string {
	return resourceType + "/" + id
}
