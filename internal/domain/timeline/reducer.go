package timeline

import (
	"github.com/rs/zerolog"

	"github.com/amp-care/caselink/internal/domain/caserecord"
	"github.com/amp-care/caselink/internal/domain/observation"
	"github.com/amp-care/caselink/internal/platform/matrix"
)

// Projection is the materialized clinical record of one room, recomputed
// from the event sequence on every use. It has no storage of its own.
type Projection struct {
	Header        *caserecord.CaseHeader                    `json:"header,omitempty"`
	Patient       *caserecord.PatientRecord                 `json:"patient,omitempty"`
	LatestByKind  map[observation.Kind]*observation.Reading `json:"latestByKind"`
	Closed        bool                                      `json:"closed"`
	SeverityStyle string                                    `json:"severityStyle,omitempty"`
	// PendingEvents counts envelopes still awaiting decryption; a non-zero
	// value tells the caller the projection may change on a later re-scan.
	PendingEvents int `json:"pendingEvents,omitempty"`
}

// Reducer folds classified events into a Projection.
type Reducer struct {
	classifier *Classifier
	logger     zerolog.Logger
}

func NewReducer(logger zerolog.Logger) *Reducer {
	return &Reducer{
		classifier: NewClassifier(logger),
		logger:     logger.With().Str("component", "reducer").Logger(),
	}
}

// Reduce performs a single left-to-right fold over the sequence in room
// order. Header display fields come from the first case event while the
// severity comes from the last one; the patient record comes from the
// first patient event only; observations overwrite per kind; the first
// closure with done=true closes terminally. Pending and ignored events
// contribute nothing.
//
// The fold is pure: re-running it over the same fully-decrypted sequence
// yields the same projection.
func (r *Reducer) Reduce(events []*matrix.Event) Projection {
	p := Projection{LatestByKind: make(map[observation.Kind]*observation.Reading)}

	var lastSeverity string
	haveSeverity := false

	for _, ev := range events {
		cl := r.classifier.Classify(ev)
		switch cl.Category {
		case CategoryPending:
			p.PendingEvents++
		case CategoryIgnored:
			// skip
		case CategoryCase:
			if p.Header == nil {
				h := caserecord.HeaderFromContent(cl.Content)
				p.Header = &h
			}
			if s, ok := cl.Content["severity"].(string); ok {
				lastSeverity = s
				haveSeverity = true
			}
		case CategoryPatient:
			if p.Patient == nil {
				rec := caserecord.PatientFromContent(cl.Content)
				p.Patient = &rec
			}
		case CategoryObservation:
			reading, ok := observation.Decode(cl.Content)
			if !ok {
				id, _ := cl.Content["id"].(string)
				r.logger.Warn().
					Str("event_id", ev.ID).
					Str("observation_id", id).
					Msg("dropping observation with unknown id")
				continue
			}
			p.LatestByKind[reading.Kind] = reading
		case CategoryClosure:
			if done, ok := cl.Content["done"].(bool); ok && done {
				p.Closed = true
			}
		}
	}

	if p.Header != nil && haveSeverity {
		p.Header.Severity = caserecord.ParseSeverity(lastSeverity)
	}
	if p.Header != nil {
		p.SeverityStyle = p.Header.Severity.StyleToken()
	}
	return p
}
