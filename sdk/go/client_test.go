package rollcallsdk

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"rollcall/internal/app"
	"rollcall/internal/config"
	"rollcall/internal/server"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	a, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir(), Config: config.Default(), Backend: config.BackendSQLite})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	handler, err := server.New(server.Config{App: a})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	c := New(srv.URL + "/")
	c.HTTPClient = srv.Client()
	return c
}

func TestVotingRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	items, err := c.LoadRoster(ctx, []string{"Ana", "Beto", "Carla"}, Session{Variant: "voting"})
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(items) != 3 || items[0].Status != "unset" {
		t.Fatalf("roster = %+v", items)
	}
	if _, err := c.SetStatus(ctx, items[0].ID, "in-favor"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SetStatus(ctx, items[1].ID, "against"); err != nil {
		t.Fatal(err)
	}

	sum, err := c.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, e := range sum.Counts {
		counts[e.Status] = e.Count
	}
	if counts["in-favor"] != 1 || counts["against"] != 1 || counts["abstain"] != 0 || counts["unset"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if sum.Session.Group != "Votacion nominal" {
		t.Fatalf("group = %q", sum.Session.Group)
	}

	found, err := c.Attendees(ctx, "carl")
	if err != nil || len(found) != 1 || found[0].Name != "Carla" {
		t.Fatalf("attendees = %+v, %v", found, err)
	}

	page, err := c.EventsPage(ctx, 10, "")
	if err != nil || len(page.Items) != 3 {
		t.Fatalf("events = %+v, %v", page, err)
	}
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.ImportText(ctx, "nombre\n\n", Session{Variant: "attendance", Group: "Consejo", Meeting: "Ordinaria"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 || apiErr.Code != "empty_or_invalid_input" {
		t.Fatalf("err = %v", err)
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("reset on empty store: %v", err)
	}
	_, err = c.Summary(ctx)
	if !errors.As(err, &apiErr) || apiErr.Code != "no_session" {
		t.Fatalf("summary without session: %v", err)
	}
}
