package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"rollcall/internal/roster"
)

// Writer appends roster mutations to the events table.
type Writer struct {
	DB     *sql.DB
	Now    func() time.Time
	Logger *slog.Logger
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID string, payload EventPayload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), string(data))
	return err
}

// Record converts a store change into an event row.
func (w Writer) Record(ctx context.Context, c roster.Change) error {
	switch c.Op {
	case roster.OpLoad:
		payload := EventPayload{"participants": len(c.Snapshot.Roster)}
		if s := c.Snapshot.Session; s != nil {
			payload["variant"] = s.Variant
			payload["group"] = s.Group
			if s.Meeting != "" {
				payload["meeting"] = s.Meeting
			}
		}
		return w.Append(ctx, string(c.Op), "roster", "", payload)
	case roster.OpStatus:
		payload := EventPayload{"status": c.Status.Name()}
		for _, p := range c.Snapshot.Roster {
			if p.ID == c.ParticipantID {
				payload["name"] = p.Name
				break
			}
		}
		return w.Append(ctx, string(c.Op), "participant", c.ParticipantID, payload)
	default:
		return w.Append(ctx, string(c.Op), "roster", "", nil)
	}
}

// Attach journals every change of store. Failures are logged and dropped.
func (w Writer) Attach(ctx context.Context, store *roster.Store) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store.Subscribe(func(c roster.Change) {
		if err := w.Record(ctx, c); err != nil {
			logger.Warn("journal append failed", "op", string(c.Op), "err", err)
		}
	})
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
