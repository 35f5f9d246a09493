package cases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amp-care/caselink/internal/domain/caserecord"
	"github.com/amp-care/caselink/internal/domain/report"
	"github.com/amp-care/caselink/internal/domain/timeline"
	"github.com/amp-care/caselink/internal/platform/matrix"
)

// Service orchestrates the protocol layer: it encodes outbound case
// payloads, feeds synced events into the store, and serves the two
// consumers (live projection, report export).
type Service struct {
	repo      EventRepository
	transport matrix.Transport
	encoder   *caserecord.Encoder
	reducer   *timeline.Reducer
	assembler *report.Assembler
	logger    zerolog.Logger
}

func NewService(repo EventRepository, transport matrix.Transport, clock caserecord.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		transport: transport,
		encoder:   caserecord.NewEncoder(clock),
		reducer:   timeline.NewReducer(logger),
		assembler: report.NewAssembler(logger, clock),
		logger:    logger.With().Str("component", "cases").Logger(),
	}
}

// SendOutcome reports one payload group's send result. The groups are
// independent fire-and-forget sends: a failed observation does not undo an
// already-sent case header, and no retry happens here.
type SendOutcome struct {
	Payload string `json:"payload"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (o SendOutcome) Failed() bool { return o.Error != "" }

// CreateCase encodes the form and sends each payload group to the room:
// case and patient as state events, each observation as a message event.
// The returned slice carries one outcome per attempted payload.
func (s *Service) CreateCase(ctx context.Context, roomID string, form caserecord.CaseForm) []SendOutcome {
	encoded := s.encoder.Encode(form)
	outcomes := make([]SendOutcome, 0, 2+len(encoded.Observations))

	id, err := s.transport.SendStateEvent(ctx, roomID, matrix.EventTypeCase, matrix.StateKeyCase, encoded.CaseContent)
	outcomes = append(outcomes, s.outcome("case", id, err))

	if encoded.PatientContent != nil {
		id, err = s.transport.SendStateEvent(ctx, roomID, matrix.EventTypePatient, matrix.StateKeyPatient, encoded.PatientContent)
		outcomes = append(outcomes, s.outcome("patient", id, err))
	}

	for _, obs := range encoded.Observations {
		id, err = s.transport.SendMessageEvent(ctx, roomID, matrix.EventTypeObservation, obs)
		outcomes = append(outcomes, s.outcome("observation/"+obs.ID, id, err))
	}
	return outcomes
}

func (s *Service) outcome(payload, eventID string, err error) SendOutcome {
	o := SendOutcome{Payload: payload, EventID: eventID}
	if err != nil {
		o.Error = err.Error()
		s.logger.Warn().Str("payload", payload).Err(err).Msg("payload send failed")
	}
	return o
}

// CloseCase sends the closure event. Closure is advisory: nothing is
// enforced server-side, the projection derives the closed state from the
// event stream.
func (s *Service) CloseCase(ctx context.Context, roomID string) (string, error) {
	id, err := s.transport.SendMessageEvent(ctx, roomID, matrix.EventTypeDone, caserecord.DoneContent{Done: true})
	if err != nil {
		return "", fmt.Errorf("send closure: %w", err)
	}
	return id, nil
}

// Ingest appends synced events to the local store.
func (s *Service) Ingest(ctx context.Context, roomID string, events []*matrix.Event) error {
	for _, ev := range events {
		if err := s.repo.Append(ctx, roomID, ev); err != nil {
			return fmt.Errorf("append event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// Projection recomputes the clinical record from the stored timeline.
func (s *Service) Projection(ctx context.Context, roomID string) (timeline.Projection, error) {
	events, err := s.repo.Timeline(ctx, roomID)
	if err != nil {
		return timeline.Projection{}, fmt.Errorf("load timeline: %w", err)
	}
	return s.reducer.Reduce(events), nil
}

// Report assembles the export document from the stored timeline.
func (s *Service) Report(ctx context.Context, roomID, roomName string) (report.Report, error) {
	events, err := s.repo.Timeline(ctx, roomID)
	if err != nil {
		return report.Report{}, fmt.Errorf("load timeline: %w", err)
	}
	if roomName == "" {
		roomName = roomID
	}
	return s.assembler.Assemble(roomName, events), nil
}

// Rooms lists rooms with stored events.
func (s *Service) Rooms(ctx context.Context) ([]string, error) {
	return s.repo.Rooms(ctx)
}
