package caserecord

import (
	"testing"
	"time"

	"github.com/amp-care/caselink/internal/domain/observation"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func testEncoder() *Encoder {
	return NewEncoder(fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)})
}

func TestEncodeCaseHeaderAndSeverityDefault(t *testing.T) {
	enc := testEncoder()
	out := enc.Encode(CaseForm{
		Title:        "Fever since Friday",
		Note:         "please advise",
		Severity:     "shouting",
		RequesterRef: "@nurse:amp.care",
	})

	if out.CaseContent.Title != "Fever since Friday" {
		t.Errorf("title = %q", out.CaseContent.Title)
	}
	if out.CaseContent.Severity != "info" {
		t.Errorf("unknown severity must default to info, got %q", out.CaseContent.Severity)
	}
	if out.CaseContent.Requester.Reference != "@nurse:amp.care" {
		t.Errorf("requester = %q", out.CaseContent.Requester.Reference)
	}
	if out.PatientContent != nil {
		t.Error("blank patient fields must encode to no patient payload")
	}
	if len(out.Observations) != 0 {
		t.Errorf("blank observation fields produced %d payloads", len(out.Observations))
	}
}

func TestEncodePatientSentinel(t *testing.T) {
	enc := testEncoder()

	// gender "unknown" alone is the form default, still all-blank
	if out := enc.Encode(CaseForm{PatientGender: "unknown"}); out.PatientContent != nil {
		t.Error("default-only patient fields must suppress the record")
	}

	out := enc.Encode(CaseForm{PatientName: "Anna Muster"})
	if out.PatientContent == nil {
		t.Fatal("single non-blank field must produce a patient record")
	}
	if out.PatientContent.Gender != "unknown" || out.PatientContent.BirthDate != "" {
		t.Errorf("defaults wrong: %+v", out.PatientContent)
	}

	out = enc.Encode(CaseForm{PatientGender: "female"})
	if out.PatientContent == nil {
		t.Fatal("explicit gender must produce a patient record")
	}
}

func TestEncodeBloodPressureOnly(t *testing.T) {
	enc := testEncoder()
	out := enc.Encode(CaseForm{BloodPressureSys: "120", BloodPressureDia: "80"})

	if len(out.Observations) != 1 {
		t.Fatalf("payloads = %d, want exactly 1", len(out.Observations))
	}
	p := out.Observations[0]
	if p.ID != string(observation.KindBloodPressure) {
		t.Errorf("kind = %q", p.ID)
	}
	if p.Component[0].ValueQuantity.Value != "120" || p.Component[1].ValueQuantity.Value != "80" {
		t.Errorf("components = %v/%v", p.Component[0].ValueQuantity.Value, p.Component[1].ValueQuantity.Value)
	}
}

func TestEncodeBloodPressureHalfPair(t *testing.T) {
	enc := testEncoder()
	out := enc.Encode(CaseForm{BloodPressureDia: "80"})
	if len(out.Observations) != 1 {
		t.Fatalf("either half of the pair must produce the payload, got %d", len(out.Observations))
	}
}

func TestEncodeDateSentinels(t *testing.T) {
	enc := testEncoder()
	out := enc.Encode(CaseForm{
		Responsiveness: "alert",
		LastDefecation: "2026-02-27",
		Weight:         "82",
		WeightAt:       "garbage date",
	})

	byKind := map[string]string{}
	for _, p := range out.Observations {
		byKind[p.ID] = p.EffectiveDateTime
	}
	if byKind["responsiveness"] != "2026-03-01T12:00:00.000Z" {
		t.Errorf("anamnesis 'now' = %q", byKind["responsiveness"])
	}
	if byKind["last-defecation"] != "2026-02-27T00:00:00.000Z" {
		t.Errorf("parsed date = %q", byKind["last-defecation"])
	}
	if byKind["body-weight"] != "garbage date" {
		t.Errorf("garbage date must pass through, got %q", byKind["body-weight"])
	}
}

func TestSeverityStyleToken(t *testing.T) {
	if tok := SeverityCritical.StyleToken(); tok != "severity-critical" {
		t.Errorf("token = %q", tok)
	}
	if tok := ParseSeverity("").StyleToken(); tok != "severity-info" {
		t.Errorf("default token = %q", tok)
	}
}

func TestHeaderFromContent(t *testing.T) {
	h := HeaderFromContent(map[string]interface{}{
		"title":     "Fall at home",
		"severity":  "urgent",
		"requester": map[string]interface{}{"reference": "@doc:amp.care"},
	})
	if h.Title != "Fall at home" || h.Severity != SeverityUrgent || h.RequesterRef != "@doc:amp.care" {
		t.Errorf("header = %+v", h)
	}

	h = HeaderFromContent(map[string]interface{}{"severity": 3})
	if h.Severity != SeverityInfo {
		t.Errorf("non-string severity must default to info, got %q", h.Severity)
	}
}
