package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rollcall/internal/domain"
)

var issued = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func council() domain.Snapshot {
	return domain.Snapshot{
		Session: &domain.Session{Variant: domain.VariantAttendance, Group: domain.GroupCouncil, Meeting: domain.MeetingExtraordinary},
		Roster: []domain.Participant{
			{ID: "1", Name: "Ana", Status: domain.StatusPresent},
			{ID: "2", Name: "Beto", Status: domain.StatusAbsent},
			{ID: "3", Name: "Carla", Status: domain.StatusUnmarked},
			{ID: "4", Name: "Dario", Status: domain.StatusPresent},
		},
	}
}

func TestBuildRejectsEmpty(t *testing.T) {
	if _, err := Build(domain.Snapshot{}, nil, issued); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	sess := domain.Session{Variant: domain.VariantVoting}
	if _, err := Build(domain.Snapshot{Session: &sess}, nil, issued); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestBuildCopiesSnapshot(t *testing.T) {
	snap := council()
	r, err := Build(snap, nil, issued)
	if err != nil {
		t.Fatal(err)
	}
	snap.Roster[0].Name = "changed"
	if r.Participants[0].Name != "Ana" {
		t.Fatalf("report shares roster with snapshot")
	}
}

func TestMarkdownAttendance(t *testing.T) {
	r, err := Build(council(), []string{"UNIVERSIDAD NACIONAL MAYOR DE SAN MARCOS", "Universidad del Perú. Decana de América", "SECRETARÍA GENERAL"}, issued)
	if err != nil {
		t.Fatal(err)
	}
	md := r.Markdown()
	for _, want := range []string{
		"**UNIVERSIDAD NACIONAL MAYOR DE SAN MARCOS**",
		"*Universidad del Perú. Decana de América*",
		"# Reporte de Asistencia",
		"## Consejo Universitario",
		"### Sesión Extraordinaria",
		"05/03/2024",
		"Total de Convocados",
		"## Asistentes (2)",
		"## Ausentes (1)",
		"## Sin Marcar (1)",
		"- Dario",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Index(md, "## Asistentes") > strings.Index(md, "## Sin Marcar") {
		t.Errorf("status sections out of order")
	}
}

func TestMarkdownVotingHasEmptySections(t *testing.T) {
	snap := domain.Snapshot{
		Session: &domain.Session{Variant: domain.VariantVoting, Group: domain.GroupNominalVote},
		Roster:  []domain.Participant{{ID: "1", Name: "Ana", Status: domain.StatusInFavor}},
	}
	r, err := Build(snap, nil, issued)
	if err != nil {
		t.Fatal(err)
	}
	md := r.Markdown()
	for _, want := range []string{"# Reporte de Votación Nominal", "## A favor (1)", "## En contra (0)", "_Ninguno._", "| Voto |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "Sesión") {
		t.Errorf("voting report should not carry a meeting subtitle")
	}
}

func TestHTML(t *testing.T) {
	snap := council()
	snap.Roster[1].Name = "<b>Beto</b>"
	r, err := Build(snap, []string{"SECRETARÍA GENERAL"}, issued)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.HTML(HTMLOptions{Logo: "data:image/png;base64,AAAA", FontSize: 18})
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	for _, want := range []string{"<table>", "<h1>Reporte de Asistencia</h1>", `src="data:image/png;base64,AAAA"`, "font-size: 18px", "<title>Reporte de Asistencia</title>"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(html, "<b>Beto</b>") {
		t.Errorf("participant name rendered as raw html")
	}
}

func TestFilename(t *testing.T) {
	s := domain.Session{Variant: domain.VariantAttendance, Group: domain.GroupAssembly, Meeting: domain.MeetingOrdinary}
	if got := Filename(s, issued, "html"); got != "reporte_asistencia_asamblea_ordinaria_2024-03-05.html" {
		t.Fatalf("filename = %s", got)
	}
	v := domain.Session{Variant: domain.VariantVoting}.Normalized()
	if got := Filename(v, issued, ".md"); got != "reporte_asistencia_votacion_nominal_2024-03-05.md" {
		t.Fatalf("filename = %s", got)
	}
}

func TestFetchLogo(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	got, err := FetchLogo(ctx, srv.Client(), srv.URL+"/logo.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != "data:image/png;base64,cG5n" {
		t.Fatalf("data uri = %s", got)
	}
	if _, err := FetchLogo(ctx, srv.Client(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}

	path := filepath.Join(t.TempDir(), "logo.svg")
	if err := os.WriteFile(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = FetchLogo(ctx, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "data:image/svg+xml;base64,") {
		t.Fatalf("data uri = %s", got)
	}
	if got, err := FetchLogo(ctx, nil, ""); got != "" || err != nil {
		t.Fatalf("empty src = %q, %v", got, err)
	}
}
