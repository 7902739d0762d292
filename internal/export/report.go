// Package export renders a session snapshot as a printable report.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"rollcall/internal/domain"
	"rollcall/internal/views"
)

var ErrNoData = errors.New("no participants to export")

// Report is an immutable view of one session at the time of export.
type Report struct {
	Session      domain.Session
	Participants []domain.Participant
	Header       []string
	IssuedAt     time.Time
}

// Build copies snap into a Report. It fails when there is nothing to export.
func Build(snap domain.Snapshot, header []string, now time.Time) (Report, error) {
	if snap.Empty() {
		return Report{}, ErrNoData
	}
	c := snap.Clone()
	return Report{
		Session:      *c.Session,
		Participants: c.Roster,
		Header:       append([]string(nil), header...),
		IssuedAt:     now,
	}, nil
}

func (r Report) Tally() views.Tally {
	return views.CountByStatus(r.Session.Variant, r.Participants)
}

// Markdown renders the header block, titles, summary, full roster and one
// section per status.
func (r Report) Markdown() string {
	var b strings.Builder
	for i, line := range r.Header {
		if i == 1 {
			fmt.Fprintf(&b, "*%s*  \n", escape(line))
			continue
		}
		fmt.Fprintf(&b, "**%s**  \n", escape(line))
	}
	if len(r.Header) > 0 {
		b.WriteString("\n---\n\n")
	}

	fmt.Fprintf(&b, "# %s\n\n", r.Session.Title())
	if r.Session.Variant == domain.VariantAttendance {
		fmt.Fprintf(&b, "## %s\n\n", r.Session.Group.Title())
		fmt.Fprintf(&b, "### Sesión %s\n\n", r.Session.Meeting)
	}

	summary := table.NewWriter()
	summary.AppendHeader(table.Row{"Resumen", ""})
	summary.AppendRow(table.Row{"Fecha de Emisión", r.IssuedAt.Format("02/01/2006")})
	summary.AppendRow(table.Row{"Total de Convocados", len(r.Participants)})
	for _, e := range r.Tally() {
		summary.AppendRow(table.Row{sectionTitle(e.Status), e.Count})
	}
	b.WriteString(summary.RenderMarkdown())
	b.WriteString("\n\n")

	detail := table.NewWriter()
	detail.AppendHeader(table.Row{"#", "Nombre", columnTitle(r.Session.Variant)})
	for i, p := range r.Participants {
		detail.AppendRow(table.Row{i + 1, escape(p.Name), p.Status.Label()})
	}
	b.WriteString(detail.RenderMarkdown())
	b.WriteString("\n")

	for _, g := range views.Partition(r.Session.Variant, r.Participants) {
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", sectionTitle(g.Status), len(g.Participants))
		if len(g.Participants) == 0 {
			b.WriteString("_Ninguno._\n")
			continue
		}
		for _, p := range g.Participants {
			fmt.Fprintf(&b, "- %s\n", escape(p.Name))
		}
	}
	return b.String()
}

type HTMLOptions struct {
	// Logo is a data URI (see FetchLogo) shown above the header block.
	Logo string
	// FontSize in pixels for the body text; zero keeps the browser default.
	FontSize int
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="es">
<head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 15mm;{{if .FontSize}} font-size: {{.FontSize}}px;{{end}} }
header { text-align: center; }
header img { width: 36px; height: 48px; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #b4b4b4; padding: 4px 8px; }
th { background: #3f51b5; color: #fff; }
@media print { h2 { page-break-before: auto; } }
</style>
</head>
<body>
{{if .Logo}}<header><img src="{{.Logo}}" alt="logo"/></header>
{{end}}{{.Body}}
</body>
</html>
`))

// HTML renders Markdown through goldmark and wraps it in a printable page.
func (r Report) HTML(opts HTMLOptions) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title    string
		Logo     template.URL
		FontSize int
		Body     template.HTML
	}{
		Title:    r.Session.Title(),
		Logo:     template.URL(opts.Logo),
		FontSize: opts.FontSize,
		Body:     template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}

// Filename names the exported document after the session and date.
func Filename(s domain.Session, now time.Time, ext string) string {
	parts := []string{"reporte_asistencia"}
	for _, p := range []string{string(s.Group), string(s.Meeting)} {
		if p == "" {
			continue
		}
		parts = append(parts, strings.Join(strings.Fields(strings.ToLower(p)), "_"))
	}
	parts = append(parts, now.Format("2006-01-02"))
	return strings.Join(parts, "_") + "." + strings.TrimPrefix(ext, ".")
}

func columnTitle(v domain.Variant) string {
	if v == domain.VariantVoting {
		return "Voto"
	}
	return "Asistencia"
}

func sectionTitle(s domain.Status) string {
	switch s {
	case domain.StatusPresent:
		return "Asistentes"
	case domain.StatusAbsent:
		return "Ausentes"
	case domain.StatusAbstain:
		return "Abstenciones"
	default:
		return s.Label()
	}
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escape(s string) string {
	return mdEscaper.Replace(s)
}
