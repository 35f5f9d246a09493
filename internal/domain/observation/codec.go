package observation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/amp-care/caselink/internal/platform/fhir"
)

// Payload is the wire shape of one observation event content, a trimmed
// FHIR Observation. Quantity values are carried as the raw form input
// string; peers may also send numbers, which Decode accepts.
type Payload struct {
	ID                string                `json:"id"`
	ResourceType      string                `json:"resourceType"`
	Subject           string                `json:"subject"`
	Category          *fhir.CodeableConcept `json:"category,omitempty"`
	Code              *fhir.CodeableConcept `json:"code,omitempty"`
	Meta              *fhir.Meta            `json:"meta,omitempty"`
	ValueQuantity     *fhir.Quantity        `json:"valueQuantity,omitempty"`
	ValueString       string                `json:"valueString,omitempty"`
	Component         []fhir.Component      `json:"component,omitempty"`
	EffectiveDateTime string                `json:"effectiveDateTime"`
}

// Reading is the decoded, in-memory form of one observation.
type Reading struct {
	Kind           Kind       `json:"kind"`
	Value          string     `json:"value,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	SecondaryValue string     `json:"secondaryValue,omitempty"`
	ObservedAt     *time.Time `json:"observedAt,omitempty"`
	// EffectiveRaw keeps the wire timestamp verbatim for display even when
	// it does not parse as a date.
	EffectiveRaw string `json:"-"`
}

// Encode builds the wire payload for one reading. value carries the form
// input (quantity magnitude or free text); secondary is the diastolic half
// of a blood-pressure pair and ignored for every other kind. effective is
// the already-formatted effectiveDateTime.
func Encode(kind Kind, patientName, value, secondary, effective string) (*Payload, error) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown observation kind %q", kind)
	}

	p := &Payload{
		ID:                string(kind),
		ResourceType:      "Observation",
		Subject:           fhir.FormatReference("Patient", patientName),
		EffectiveDateTime: effective,
	}
	if spec.vitalSign {
		cat := fhir.VitalSignsCategory()
		p.Category = &cat
		p.Meta = &fhir.Meta{Profile: fhir.ProfileVitalSigns}
	}
	if spec.loincCode != "" {
		p.Code = &fhir.CodeableConcept{
			Coding: []fhir.Coding{{Code: spec.loincCode, Display: spec.display, System: fhir.SystemLOINC}},
			Text:   spec.codeText,
		}
	}

	switch spec.form {
	case FormQuantity:
		p.ValueQuantity = &fhir.Quantity{
			Value:  value,
			Unit:   spec.unit,
			System: fhir.SystemUCUM,
			Code:   spec.unitCode,
		}
	case FormComponents:
		p.Component = []fhir.Component{
			{Code: bpSystolic, ValueQuantity: quantityOf(value, spec)},
			{Code: bpDiastolic, ValueQuantity: quantityOf(secondary, spec)},
		}
	case FormString:
		p.ValueString = value
	case FormTimestampOnly:
		// effectiveDateTime is the value.
	}
	return p, nil
}

func quantityOf(value string, spec kindSpec) fhir.Quantity {
	return fhir.Quantity{Value: value, Unit: spec.unit, System: fhir.SystemUCUM, Code: spec.unitCode}
}

// Decode turns raw event content back into a Reading. Unknown kind ids
// return (nil, false): they are dropped, not an error. Malformed values
// degrade to blank fields rather than failing the event.
func Decode(content map[string]interface{}) (*Reading, bool) {
	id, _ := content["id"].(string)
	spec, ok := kinds[Kind(id)]
	if !ok {
		return nil, false
	}

	r := &Reading{Kind: Kind(id), Unit: spec.unit}
	r.EffectiveRaw, _ = content["effectiveDateTime"].(string)
	r.ObservedAt = parseEffective(r.EffectiveRaw)

	switch spec.form {
	case FormQuantity:
		r.Value = quantityValue(content["valueQuantity"])
	case FormComponents:
		comps, _ := content["component"].([]interface{})
		if len(comps) > 0 {
			r.Value = componentValue(comps[0])
		}
		if len(comps) > 1 {
			r.SecondaryValue = componentValue(comps[1])
		}
	case FormString:
		r.Value, _ = content["valueString"].(string)
		r.Unit = ""
	case FormTimestampOnly:
		r.Unit = ""
	}
	return r, true
}

func componentValue(comp interface{}) string {
	m, ok := comp.(map[string]interface{})
	if !ok {
		return ""
	}
	return quantityValue(m["valueQuantity"])
}

func quantityValue(q interface{}) string {
	m, ok := q.(map[string]interface{})
	if !ok {
		return ""
	}
	return coerceString(m["value"])
}

// coerceString accepts the loosely-typed quantity value: our own events
// carry the form string, other clients may send JSON numbers.
func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// parseEffective resolves the wire timestamp; blank or unparsable input
// yields nil instead of an error.
func parseEffective(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
