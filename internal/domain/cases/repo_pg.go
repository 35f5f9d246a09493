package cases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amp-care/caselink/internal/platform/matrix"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository { return &eventRepoPG{pool: pool} }

func (r *eventRepoPG) conn(ctx context.Context) queryable { return r.pool }

// EnsureSchema creates the event store table. The store owns its schema;
// there is no migration pipeline for a single-table cache.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS room_event (
			id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			state_key TEXT NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			origin_server_ts BIGINT NOT NULL,
			content JSONB NOT NULL DEFAULT '{}',
			clear_type TEXT NOT NULL DEFAULT '',
			clear_content JSONB,
			stream_order BIGSERIAL,
			UNIQUE (room_id, event_id)
		);
		CREATE INDEX IF NOT EXISTS room_event_room_order_idx
			ON room_event (room_id, stream_order)`)
	if err != nil {
		return fmt.Errorf("create room_event schema: %w", err)
	}
	return nil
}

const eventCols = `event_id, event_type, state_key, sender, sender_name,
	origin_server_ts, content, clear_type, clear_content`

func (r *eventRepoPG) Append(ctx context.Context, roomID string, ev *matrix.Event) error {
	content, err := json.Marshal(ev.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	var clearContent []byte
	if ev.ClearContent != nil {
		if clearContent, err = json.Marshal(ev.ClearContent); err != nil {
			return fmt.Errorf("marshal clear content: %w", err)
		}
	}
	eventID := ev.ID
	if eventID == "" {
		eventID = "$local-" + uuid.New().String()
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO room_event (id, room_id, `+eventCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (room_id, event_id) DO UPDATE
			SET clear_type = EXCLUDED.clear_type,
			    clear_content = EXCLUDED.clear_content`,
		uuid.New(), roomID, eventID, ev.Type, ev.StateKey, ev.Sender, ev.SenderName,
		ev.OriginServerTS, content, ev.ClearType, clearContent)
	return err
}

func (r *eventRepoPG) Timeline(ctx context.Context, roomID string) ([]*matrix.Event, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM room_event
		WHERE room_id = $1 ORDER BY stream_order`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*matrix.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*matrix.Event, error) {
	var ev matrix.Event
	var content, clearContent []byte
	err := row.Scan(&ev.ID, &ev.Type, &ev.StateKey, &ev.Sender, &ev.SenderName,
		&ev.OriginServerTS, &content, &ev.ClearType, &clearContent)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &ev.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	if len(clearContent) > 0 {
		if err := json.Unmarshal(clearContent, &ev.ClearContent); err != nil {
			return nil, fmt.Errorf("unmarshal clear content: %w", err)
		}
	}
	return &ev, nil
}

func (r *eventRepoPG) Rooms(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT room_id FROM room_event ORDER BY room_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		rooms = append(rooms, id)
	}
	return rooms, rows.Err()
}
