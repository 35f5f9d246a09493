package caserecord

// Severity ranks a case. Unknown wire values collapse to SeverityInfo.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityRequest  Severity = "request"
	SeverityUrgent   Severity = "urgent"
	SeverityCritical Severity = "critical"
)

// ParseSeverity normalizes a wire severity string.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityRequest, SeverityUrgent, SeverityCritical:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// StyleToken derives the presentation token for a severity. The rendering
// layer maps it to colors; this layer never touches presentation state.
func (s Severity) StyleToken() string {
	return "severity-" + string(s)
}

// Gender values follow the FHIR administrative-gender codes.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther:
		return Gender(s)
	default:
		return GenderUnknown
	}
}

// CaseHeader is the decoded case record of a room.
type CaseHeader struct {
	Title        string   `json:"title"`
	Note         string   `json:"note"`
	Severity     Severity `json:"severity"`
	RequesterRef string   `json:"requesterRef"`
}

// PatientRecord is the decoded patient record. Absent entirely when no
// patient field was supplied at creation.
type PatientRecord struct {
	Name      string `json:"name"`
	Gender    Gender `json:"gender"`
	BirthDate string `json:"birthDate,omitempty"`
}

// CaseContent is the wire shape of the case state event.
type CaseContent struct {
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	Severity  string    `json:"severity"`
	Requester Requester `json:"requester"`
}

type Requester struct {
	Reference string `json:"reference"`
}

// PatientContent is the wire shape of the patient state event.
type PatientContent struct {
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
}

// DoneContent is the wire shape of the closure event.
type DoneContent struct {
	Done bool `json:"done"`
}

// HeaderFromContent decodes a case state event content. Missing fields
// decode to zero values; severity normalizes per ParseSeverity.
func HeaderFromContent(content map[string]interface{}) CaseHeader {
	h := CaseHeader{
		Severity: ParseSeverity(strField(content, "severity")),
	}
	h.Title = strField(content, "title")
	h.Note = strField(content, "note")
	if req, ok := content["requester"].(map[string]interface{}); ok {
		h.RequesterRef = strField(req, "reference")
	}
	return h
}

// PatientFromContent decodes a patient state event content.
func PatientFromContent(content map[string]interface{}) PatientRecord {
	return PatientRecord{
		Name:      strField(content, "name"),
		Gender:    ParseGender(strField(content, "gender")),
		BirthDate: strField(content, "birthDate"),
	}
}

func strField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
