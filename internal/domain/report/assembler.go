package report

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/amp-care/caselink/internal/domain/caserecord"
	"github.com/amp-care/caselink/internal/domain/observation"
	"github.com/amp-care/caselink/internal/domain/timeline"
	"github.com/amp-care/caselink/internal/platform/matrix"
)

// Report is the linear export document for one room: the reduced clinical
// record as labeled rows, the chat transcript with date separators, and
// the file-bearing messages collected for archive bundling.
type Report struct {
	RoomName    string           `json:"roomName"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Closed      bool             `json:"closed"`
	DataRows    []DataRow        `json:"dataRows"`
	Transcript  []TranscriptItem `json:"transcript"`
	Attachments []Attachment     `json:"attachments"`
}

// DataRow is one labeled line of the clinical tables. Rows exist only for
// populated fields; empty groups are omitted wholesale.
type DataRow struct {
	Section    string `json:"section"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	ObservedAt string `json:"observedAt,omitempty"`
}

const (
	SectionCase    = "Case"
	SectionPatient = "Patient"
	SectionVitals  = "Vital data"
	SectionHistory = "Anamnesis"
)

// TranscriptItem is one transcript line: a dated message, a decrypt-error
// placeholder, or a date separator.
type TranscriptItem struct {
	Separator bool      `json:"separator,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender,omitempty"`
	MsgType   string    `json:"msgtype,omitempty"`
	Body      string    `json:"body,omitempty"`
}

// Attachment references one file-bearing message for bundling.
type Attachment struct {
	EventID string `json:"eventId"`
	MsgType string `json:"msgtype"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
}

// Assembler builds reports from a room's event sequence. It reduces the
// same projection as the live panel, so both views always agree on the
// clinical record.
type Assembler struct {
	reducer *timeline.Reducer
	clock   caserecord.Clock
	logger  zerolog.Logger
}

func NewAssembler(logger zerolog.Logger, clock caserecord.Clock) *Assembler {
	if clock == nil {
		clock = caserecord.SystemClock
	}
	return &Assembler{
		reducer: timeline.NewReducer(logger),
		clock:   clock,
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// Assemble walks the full event sequence once for the transcript and once
// (via the reducer) for the clinical tables. It never mutates its inputs.
func (a *Assembler) Assemble(roomName string, events []*matrix.Event) Report {
	projection := a.reducer.Reduce(events)

	r := Report{
		RoomName:    roomName,
		GeneratedAt: a.clock.Now().UTC(),
		Closed:      projection.Closed,
		DataRows:    projectionRows(projection),
	}

	var lastShown *matrix.Event
	for _, ev := range events {
		item, att, ok := transcriptItem(ev)
		if !ok {
			continue
		}
		if lastShown == nil || wantsDateSeparator(lastShown, ev) {
			r.Transcript = append(r.Transcript, TranscriptItem{Separator: true, Timestamp: ev.Timestamp()})
		}
		r.Transcript = append(r.Transcript, item)
		if att != nil {
			r.Attachments = append(r.Attachments, *att)
		}
		lastShown = ev
	}
	return r
}

// wantsDateSeparator compares consecutive displayed messages; hidden
// events in between do not produce spurious separators.
func wantsDateSeparator(prev, next *matrix.Event) bool {
	gap := next.Timestamp().Sub(prev.Timestamp())
	if gap < 0 {
		gap = -gap
	}
	return gap > 24*time.Hour
}

// transcriptItem renders one event as a transcript line. Only m.room.message
// plaintext is displayed; a failed decryption surfaces as a placeholder
// line rather than dropping the message.
func transcriptItem(ev *matrix.Event) (TranscriptItem, *Attachment, bool) {
	evType, content, ok := ev.Plaintext()
	if !ok || evType != matrix.EventTypeMessage {
		return TranscriptItem{}, nil, false
	}

	msgtype, _ := content["msgtype"].(string)
	body, _ := content["body"].(string)

	item := TranscriptItem{
		Timestamp: ev.Timestamp(),
		Sender:    ev.DisplayName(),
		MsgType:   msgtype,
	}

	switch msgtype {
	case matrix.MsgTypeBadEncrypted:
		item.Body = "Decryption error"
		item.Sender = ""
		return item, nil, true
	case matrix.MsgTypeText:
		item.Body = body
		return item, nil, true
	case matrix.MsgTypeImage, matrix.MsgTypeFile, matrix.MsgTypeAudio, matrix.MsgTypeVideo:
		item.Body = body
		att := &Attachment{
			EventID: ev.ID,
			MsgType: msgtype,
			Name:    body,
			URL:     contentURL(content),
		}
		return item, att, true
	default:
		return TranscriptItem{}, nil, false
	}
}

// contentURL resolves the media reference: plain messages carry url,
// encrypted uploads nest it under file.url.
func contentURL(content map[string]interface{}) string {
	if u, ok := content["url"].(string); ok {
		return u
	}
	if f, ok := content["file"].(map[string]interface{}); ok {
		if u, ok := f["url"].(string); ok {
			return u
		}
	}
	return ""
}

// projectionRows flattens the reduced projection into labeled rows, one
// per populated field.
func projectionRows(p timeline.Projection) []DataRow {
	var rows []DataRow
	add := func(section, label, value, observedAt string) {
		if value == "" && observedAt == "" {
			return
		}
		rows = append(rows, DataRow{Section: section, Label: label, Value: value, ObservedAt: observedAt})
	}

	if h := p.Header; h != nil {
		add(SectionCase, "Title", h.Title, "")
		add(SectionCase, "Note", h.Note, "")
		add(SectionCase, "Severity", string(h.Severity), "")
		add(SectionCase, "Requester", h.RequesterRef, "")
	}
	if pat := p.Patient; pat != nil {
		add(SectionPatient, "Name", pat.Name, "")
		add(SectionPatient, "Gender", string(pat.Gender), "")
		add(SectionPatient, "Birth date", pat.BirthDate, "")
	}

	for _, kind := range observation.AllKinds() {
		reading, ok := p.LatestByKind[kind]
		if !ok {
			continue
		}
		section := SectionHistory
		if kind.VitalSign() {
			section = SectionVitals
		}
		observedAt := observedAtText(reading)
		if kind.Form() == observation.FormTimestampOnly {
			// the timestamp is the value; no second column
			observedAt = ""
		}
		add(section, kind.Label(), readingValue(reading), observedAt)
	}
	return rows
}

func readingValue(r *observation.Reading) string {
	switch r.Kind.Form() {
	case observation.FormComponents:
		if r.Value == "" && r.SecondaryValue == "" {
			return ""
		}
		return r.Value + "/" + r.SecondaryValue + " " + r.Unit
	case observation.FormTimestampOnly:
		return observedAtText(r)
	default:
		if r.Value == "" {
			return ""
		}
		if r.Unit != "" {
			return r.Value + " " + r.Unit
		}
		return r.Value
	}
}

func observedAtText(r *observation.Reading) string {
	if r.ObservedAt != nil {
		return r.ObservedAt.Format("2006-01-02 15:04")
	}
	return r.EffectiveRaw
}
