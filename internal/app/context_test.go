package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rollcall/internal/app"
	"rollcall/internal/config"
	"rollcall/internal/domain"
	"rollcall/internal/persist"
	"rollcall/internal/repo"
	"rollcall/internal/views"
)

var assembly = domain.Session{Variant: domain.VariantAttendance, Group: domain.GroupAssembly, Meeting: domain.MeetingOrdinary}

func open(t *testing.T, workspace, backend string) *app.App {
	t.Helper()
	a, err := app.Open(context.Background(), app.Options{Workspace: workspace, Config: config.Default(), Backend: backend})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSessionSurvivesRestart(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			workspace := t.TempDir()
			first := open(t, workspace, backend)
			roster, err := first.Import("Nombre\nAna\nBeto\n\nAna", assembly)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			names := []string{roster[0].Name, roster[1].Name, roster[2].Name}
			if !reflect.DeepEqual(names, []string{"Ana", "Beto", "Ana"}) {
				t.Fatalf("names = %v", names)
			}
			if err := first.Store.SetStatus(roster[0].ID, domain.StatusPresent); err != nil {
				t.Fatal(err)
			}
			first.Close()

			second := open(t, workspace, backend)
			if !reflect.DeepEqual(second.Store.Snapshot(), first.Store.Snapshot()) {
				t.Fatalf("restored = %+v", second.Store.Snapshot())
			}
			tally := views.CountByStatus(domain.VariantAttendance, second.Store.Attendees())
			if tally.Count(domain.StatusPresent) != 1 || tally.Count(domain.StatusUnmarked) != 2 {
				t.Fatalf("tally = %+v", tally)
			}
		})
	}
}

func TestImportFailuresLeaveStateUntouched(t *testing.T) {
	a := open(t, t.TempDir(), config.BackendMemory)
	if _, err := a.Import("Ana\nBeto", assembly); err != nil {
		t.Fatal(err)
	}
	before := a.Store.Snapshot()

	if _, err := a.Import("Nombre\n", assembly); !errors.Is(err, domain.ErrEmptyOrInvalidInput) {
		t.Fatalf("err = %v, want ErrEmptyOrInvalidInput", err)
	}
	if _, err := a.Import("Carla", domain.Session{Variant: domain.VariantAttendance, Group: domain.GroupCouncil}); !errors.Is(err, domain.ErrIncompleteSession) {
		t.Fatalf("err = %v, want ErrIncompleteSession", err)
	}
	if !reflect.DeepEqual(before, a.Store.Snapshot()) {
		t.Fatalf("state changed after failed import")
	}
}

func TestResetRemovesPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()
	a := open(t, workspace, config.BackendSQLite)
	if _, err := a.Import("Ana,20\nBeto,21", domain.Session{Variant: domain.VariantVoting}); err != nil {
		t.Fatal(err)
	}
	a.Store.Reset()

	if len(a.Store.Attendees()) != 0 {
		t.Fatalf("roster not empty")
	}
	if _, ok := a.Store.Session(); ok {
		t.Fatalf("session still active")
	}
	if _, err := a.Repo.Get(ctx, persist.SnapshotKey); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("snapshot still stored: %v", err)
	}
	evts, err := a.Repo.LatestEvents(ctx, repo.EventFilter{Limit: 1})
	if err != nil || len(evts) != 1 || evts[0].Type != "roster.reset" {
		t.Fatalf("latest event = %+v, %v", evts, err)
	}
}

func TestSettingsShareBackend(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()
	a := open(t, workspace, config.BackendFile)
	if _, err := a.Settings.SetFontSize(ctx, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(workspace, ".rollcall", "app_settings.json")); err != nil {
		t.Fatalf("settings file missing: %v", err)
	}
	if got := open(t, workspace, config.BackendFile).Settings.Get(ctx).FontSize; got != 20 {
		t.Fatalf("font size = %d", got)
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir(), Config: config.Default(), Backend: "redis"})
	if err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
