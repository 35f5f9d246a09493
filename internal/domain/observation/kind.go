package observation

import "github.com/amp-care/caselink/internal/platform/fhir"

// Kind identifies one of the fixed vital-sign / anamnesis observation types.
type Kind string

const (
	KindHeartRate       Kind = "heart-rate"
	KindGlucose         Kind = "glucose"
	KindBodyTemperature Kind = "body-temperature"
	KindBloodPressure   Kind = "blood-pressure"
	KindBodyWeight      Kind = "body-weight"
	KindOxygen          Kind = "oxygen"
	KindLastDefecation  Kind = "last-defecation"
	KindMisc            Kind = "misc"
	KindResponsiveness  Kind = "responsiveness"
	KindPain            Kind = "pain"
)

// ValueForm describes how a kind carries its value on the wire.
type ValueForm int

const (
	// FormQuantity: single valueQuantity with a UCUM unit.
	FormQuantity ValueForm = iota
	// FormComponents: component[0]/component[1] quantity pair (blood pressure).
	FormComponents
	// FormString: free-text valueString.
	FormString
	// FormTimestampOnly: effectiveDateTime only, no value field.
	FormTimestampOnly
)

// kindSpec is the per-kind wire vocabulary: LOINC coding, UCUM unit and
// value form. Vital signs additionally carry the vital-signs category and
// meta profile.
type kindSpec struct {
	form      ValueForm
	vitalSign bool
	label     string
	loincCode string
	display   string
	codeText  string
	unit      string
	unitCode  string
}

var kinds = map[Kind]kindSpec{
	KindBodyWeight: {
		form: FormQuantity, vitalSign: true, label: "Weight",
		loincCode: "29463-7", display: "Body Weight", codeText: "Body Weight",
		unit: "kg", unitCode: "kg",
	},
	KindBodyTemperature: {
		form: FormQuantity, vitalSign: true, label: "Temperature",
		loincCode: "8310-5", display: "Body temperature", codeText: "Body temperature",
		unit: "C", unitCode: "Cel",
	},
	KindGlucose: {
		form: FormQuantity, vitalSign: true, label: "Blood sugar",
		loincCode: "15074-8", display: "Glucose [Milligramm/volume] in Blood", codeText: "Glucose",
		unit: "mg/dl", unitCode: "mg/dl",
	},
	KindBloodPressure: {
		form: FormComponents, vitalSign: true, label: "Blood pressure",
		loincCode: "85354-9", display: "Blood pressure panel with all children optional",
		codeText: "Blood pressure systolic & diastolic",
		unit: "mmHg", unitCode: "mm[Hg]",
	},
	KindHeartRate: {
		form: FormQuantity, vitalSign: true, label: "Pulse",
		loincCode: "8867-4", display: "Heart rate", codeText: "Heart rate",
		unit: "beats/minute", unitCode: "/min",
	},
	KindOxygen: {
		form: FormQuantity, vitalSign: true, label: "Oxygen saturation",
		loincCode: "59408-5", display: "Oxygen saturation in Arterial blood by Pulse oximetry",
		codeText: "Oxygen saturation",
		unit: "%", unitCode: "%",
	},
	KindPain: {
		form: FormString, label: "Pain",
		loincCode: "28319-2", display: "Pain status", codeText: "Pain status",
	},
	KindResponsiveness: {form: FormString, label: "Responsiveness"},
	KindMisc:           {form: FormString, label: "Misc"},
	KindLastDefecation: {form: FormTimestampOnly, label: "Last defecation"},
}

// Component codings for the blood-pressure pair.
var (
	bpSystolic  = componentCoding("8480-6", "Systolic blood pressure")
	bpDiastolic = componentCoding("8462-4", "Diastolic blood pressure")
)

func componentCoding(code, display string) fhir.CodeableConcept {
	return fhir.CodeableConcept{
		Coding: []fhir.Coding{{Code: code, Display: display, System: fhir.SystemLOINC}},
		Text:   display,
	}
}

// Known reports whether id is one of the fixed observation kinds.
func Known(id string) bool {
	_, ok := kinds[Kind(id)]
	return ok
}

// Form returns the value form of a known kind.
func (k Kind) Form() ValueForm {
	return kinds[k].form
}

// VitalSign reports whether the kind is a physiological measurement
// (as opposed to an anamnesis item).
func (k Kind) VitalSign() bool {
	return kinds[k].vitalSign
}

// Label is the human-readable name used in projection and report rows.
func (k Kind) Label() string {
	return kinds[k].label
}

// Unit is the display unit of a quantity-valued kind, empty otherwise.
func (k Kind) Unit() string {
	return kinds[k].unit
}

// AllKinds lists the kinds in panel display order.
func AllKinds() []Kind {
	return []Kind{
		KindResponsiveness, KindPain, KindMisc, KindLastDefecation,
		KindBodyWeight, KindBodyTemperature, KindGlucose,
		KindBloodPressure, KindHeartRate, KindOxygen,
	}
}
