package caserecord

import (
	"time"

	"github.com/amp-care/caselink/internal/domain/observation"
)

// Clock supplies the instant used to resolve the "now" date sentinel.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// CaseForm is the case-creation input. All fields are raw form strings;
// blank means "not supplied". Date fields accept the sentinel "now".
type CaseForm struct {
	Title        string `json:"title"`
	Note         string `json:"note"`
	Severity     string `json:"severity"`
	RequesterRef string `json:"requesterRef"`

	PatientName      string `json:"patientName"`
	PatientGender    string `json:"patientGender"`
	PatientBirthDate string `json:"patientBirthDate"`

	Responsiveness string `json:"responsiveness"`
	Pain           string `json:"pain"`
	Misc           string `json:"misc"`
	LastDefecation string `json:"lastDefecation"`

	Weight           string `json:"weight"`
	WeightAt         string `json:"weightAt"`
	Temperature      string `json:"temperature"`
	TemperatureAt    string `json:"temperatureAt"`
	Glucose          string `json:"glucose"`
	GlucoseAt        string `json:"glucoseAt"`
	BloodPressureSys string `json:"bloodPressureSys"`
	BloodPressureDia string `json:"bloodPressureDia"`
	BloodPressureAt  string `json:"bloodPressureAt"`
	Pulse            string `json:"pulse"`
	PulseAt          string `json:"pulseAt"`
	Oxygen           string `json:"oxygen"`
	OxygenAt         string `json:"oxygenAt"`
}

// EncodedCase is the encoder output: the three payload groups sent as
// independent events. PatientContent is nil when every patient field was
// blank.
type EncodedCase struct {
	CaseContent    CaseContent
	PatientContent *PatientContent
	Observations   []*observation.Payload
}

// Encoder builds the outbound payload groups from case-creation input.
type Encoder struct {
	clock Clock
}

func NewEncoder(clock Clock) *Encoder {
	if clock == nil {
		clock = SystemClock
	}
	return &Encoder{clock: clock}
}

// Encode produces the case payload, the optional patient payload and one
// observation payload per non-blank observation field. Each field decides
// its own inclusion; nothing is sent for blank fields.
func (e *Encoder) Encode(form CaseForm) EncodedCase {
	out := EncodedCase{
		CaseContent: CaseContent{
			Title:     form.Title,
			Note:      form.Note,
			Severity:  string(ParseSeverity(form.Severity)),
			Requester: Requester{Reference: form.RequesterRef},
		},
	}

	if !patientBlank(form) {
		out.PatientContent = &PatientContent{
			Name:      form.PatientName,
			Gender:    string(ParseGender(form.PatientGender)),
			BirthDate: e.formatDate(form.PatientBirthDate),
		}
	}

	now := e.formatDate("now")
	type obsField struct {
		kind             observation.Kind
		value, secondary string
		effective        string
		include          bool
	}
	fields := []obsField{
		{observation.KindResponsiveness, form.Responsiveness, "", now, form.Responsiveness != ""},
		{observation.KindPain, form.Pain, "", now, form.Pain != ""},
		{observation.KindMisc, form.Misc, "", now, form.Misc != ""},
		{observation.KindLastDefecation, "", "", e.formatDate(form.LastDefecation), form.LastDefecation != ""},
		{observation.KindBodyWeight, form.Weight, "", e.formatDate(form.WeightAt), form.Weight != ""},
		{observation.KindBodyTemperature, form.Temperature, "", e.formatDate(form.TemperatureAt), form.Temperature != ""},
		{observation.KindGlucose, form.Glucose, "", e.formatDate(form.GlucoseAt), form.Glucose != ""},
		{observation.KindBloodPressure, form.BloodPressureSys, form.BloodPressureDia, e.formatDate(form.BloodPressureAt),
			form.BloodPressureSys != "" || form.BloodPressureDia != ""},
		{observation.KindHeartRate, form.Pulse, "", e.formatDate(form.PulseAt), form.Pulse != ""},
		{observation.KindOxygen, form.Oxygen, "", e.formatDate(form.OxygenAt), form.Oxygen != ""},
	}

	for _, f := range fields {
		if !f.include {
			continue
		}
		p, err := observation.Encode(f.kind, form.PatientName, f.value, f.secondary, f.effective)
		if err != nil {
			continue
		}
		out.Observations = append(out.Observations, p)
	}
	return out
}

func patientBlank(form CaseForm) bool {
	gender := form.PatientGender
	return form.PatientName == "" &&
		(gender == "" || gender == string(GenderUnknown)) &&
		form.PatientBirthDate == ""
}

// formatDate resolves a form date: blank passes through, "now" becomes the
// current instant, anything parsable is re-serialized to ISO-8601, and
// garbage passes through verbatim rather than failing the encode.
func (e *Encoder) formatDate(s string) string {
	switch s {
	case "":
		return ""
	case "now":
		return toISO(e.clock.Now())
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return toISO(t)
		}
	}
	return s
}

// toISO matches the substrate's ISO-8601 serialization (UTC, millisecond
// precision).
func toISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
