package cases

import (
	"context"

	"github.com/amp-care/caselink/internal/platform/matrix"
)

// EventRepository is the local store of synced room events. It only needs
// append and an ordered read: the projection is always recomputed from the
// full timeline, never stored.
type EventRepository interface {
	// Append stores one event. Replaying an already-stored event id only
	// refreshes its decryption state, so sync feeds can overlap safely and
	// late decryptions land on the stored row.
	Append(ctx context.Context, roomID string, ev *matrix.Event) error
	// Timeline returns the room's events in room order.
	Timeline(ctx context.Context, roomID string) ([]*matrix.Event, error)
	// Rooms lists the room ids with stored events.
	Rooms(ctx context.Context) ([]string, error)
}
