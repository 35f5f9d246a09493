package timeline

import (
	"github.com/rs/zerolog"

	"github.com/amp-care/caselink/internal/platform/matrix"
)

// Category is the closed set of classification outcomes. Switches over it
// should be exhaustive; Ignored is the only catch-all.
type Category int

const (
	CategoryIgnored Category = iota
	CategoryPending
	CategoryCase
	CategoryPatient
	CategoryObservation
	CategoryClosure
)

func (c Category) String() string {
	switch c {
	case CategoryPending:
		return "pending"
	case CategoryCase:
		return "case"
	case CategoryPatient:
		return "patient"
	case CategoryObservation:
		return "observation"
	case CategoryClosure:
		return "closure"
	default:
		return "ignored"
	}
}

// Classification is the tagged result for one timeline entry. Content is
// the usable plaintext content, nil for Pending and Ignored. Unencrypted
// marks a clinical event found outside an encryption envelope.
type Classification struct {
	Category    Category
	Content     map[string]interface{}
	Unencrypted bool
}

// Classifier inspects raw timeline entries. It never fails: undecryptable
// envelopes classify as Pending, unrecognized types as Ignored.
type Classifier struct {
	logger zerolog.Logger
}

func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger.With().Str("component", "classifier").Logger()}
}

// Classify maps one event to its category. Case and patient records are
// state events anchored on their state key; observations and closures are
// message events expected inside encrypted envelopes. A plain occurrence
// of the latter still classifies (the projection must not lose clinical
// data over a misconfigured room) but is logged as a protocol violation.
func (c *Classifier) Classify(ev *matrix.Event) Classification {
	if ev.Pending() {
		return Classification{Category: CategoryPending}
	}

	evType, content, _ := ev.Plaintext()

	switch evType {
	case matrix.EventTypeCase:
		if ev.StateKey != matrix.StateKeyCase {
			return Classification{Category: CategoryIgnored}
		}
		return Classification{Category: CategoryCase, Content: content}
	case matrix.EventTypePatient:
		if ev.StateKey != matrix.StateKeyPatient {
			return Classification{Category: CategoryIgnored}
		}
		return Classification{Category: CategoryPatient, Content: content}
	case matrix.EventTypeObservation:
		return c.messageKind(ev, CategoryObservation, evType, content)
	case matrix.EventTypeDone:
		return c.messageKind(ev, CategoryClosure, evType, content)
	default:
		return Classification{Category: CategoryIgnored}
	}
}

func (c *Classifier) messageKind(ev *matrix.Event, category Category, evType string, content map[string]interface{}) Classification {
	cl := Classification{Category: category, Content: content}
	if !ev.IsEncryptedEnvelope() {
		cl.Unencrypted = true
		c.logger.Warn().
			Str("event_id", ev.ID).
			Str("event_type", evType).
			Msg("clinical event arrived unencrypted")
	}
	return cl
}
