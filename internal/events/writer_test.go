package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rollcall/internal/db"
	"rollcall/internal/domain"
	"rollcall/internal/events"
	"rollcall/internal/migrate"
	"rollcall/internal/repo"
	"rollcall/internal/roster"
)

func TestJournalRecordsEveryMutation(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	w := events.Writer{DB: conn, Now: func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }}
	store := roster.New()
	w.Attach(ctx, store)

	sess := domain.Session{Variant: domain.VariantAttendance, Group: domain.GroupAssembly, Meeting: domain.MeetingOrdinary}
	if err := store.LoadRoster([]string{"Ana", "Beto"}, sess); err != nil {
		t.Fatal(err)
	}
	ana := store.Attendees()[0]
	if err := store.SetStatus(ana.ID, domain.StatusPresent); err != nil {
		t.Fatal(err)
	}
	store.Reset()

	r := repo.Repo{DB: conn}
	got, err := r.LatestEvents(ctx, repo.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}
	wantTypes := []string{"roster.reset", "participant.status", "roster.load"}
	for i, e := range got {
		if e.Type != wantTypes[i] {
			t.Fatalf("event %d type = %s, want %s", i, e.Type, wantTypes[i])
		}
		if e.TS != "2024-05-01T09:00:00Z" {
			t.Fatalf("event ts = %s", e.TS)
		}
	}
	if got[1].EntityID != ana.ID {
		t.Fatalf("status event entity = %q, want %q", got[1].EntityID, ana.ID)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(got[1].Payload), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "present" || payload["name"] != "Ana" {
		t.Fatalf("payload = %v", payload)
	}

	filtered, err := r.LatestEvents(ctx, repo.EventFilter{Type: "roster.load", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("filtered events = %d, want 1", len(filtered))
	}
	older, err := r.LatestEvents(ctx, repo.EventFilter{BeforeID: got[0].ID, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 1 || older[0].ID != got[1].ID {
		t.Fatalf("cursor page = %+v", older)
	}
}
