package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"rollcall/internal/app"
	"rollcall/internal/domain"
	"rollcall/internal/export"
	"rollcall/internal/repo"
	"rollcall/internal/views"
)

// Config for the HTTP API handler.
type Config struct {
	App      *app.App
	BasePath string
	// HTTPClient fetches the report logo; nil uses http.DefaultClient.
	HTTPClient *http.Client
	Now        func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unknown_participant"`
	Message string         `json:"message" example:"unknown participant: 3f2a"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope returned by every endpoint.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the session API.
func New(cfg Config) (http.Handler, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are plain bad requests.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(cfg.App.Logger.With("component", "http")))
	hcfg := huma.DefaultConfig("Rollcall API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerSession(group, cfg.App)
	registerAttendees(group, cfg.App)
	registerRoster(group, cfg.App)
	registerSummary(group, cfg.App)
	registerExport(group, cfg)
	registerSettings(group, cfg.App)
	registerEvents(group, cfg.App)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrEmptyOrInvalidInput):
		return newAPIError(http.StatusBadRequest, "empty_or_invalid_input", msg, nil)
	case errors.Is(err, domain.ErrIncompleteSession):
		return newAPIError(http.StatusBadRequest, "incomplete_session_selection", msg, nil)
	case errors.Is(err, domain.ErrUnknownParticipant):
		return newAPIError(http.StatusNotFound, "unknown_participant", msg, nil)
	case errors.Is(err, domain.ErrInvalidStatus):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_status", msg, nil)
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, export.ErrNoData):
		return newAPIError(http.StatusConflict, "no_session", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Rollcall API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSession(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Active session",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: sessionResponse(a)}, nil
	})
}

func registerAttendees(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-attendees",
		Method:      http.MethodGet,
		Path:        "/attendees",
		Summary:     "List participants in roster order",
	}, func(ctx context.Context, input *struct {
		Query string `query:"q" doc:"Case-insensitive name filter"`
	}) (*struct {
		Body []AttendeeResponse `json:"body"`
	}, error) {
		items := views.Filter(a.Store.Attendees(), input.Query)
		return &struct {
			Body []AttendeeResponse `json:"body"`
		}{Body: mapAttendees(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-status",
		Method:      http.MethodPatch,
		Path:        "/attendees/{id}",
		Summary:     "Record a participant's status",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body SetStatusRequest
	}) (*struct {
		Body AttendeeResponse `json:"body"`
	}, error) {
		if err := a.Store.SetStatus(input.ID, domain.ParseStatus(input.Body.Status)); err != nil {
			return nil, handleError(err)
		}
		p, _ := a.Store.Participant(input.ID)
		return &struct {
			Body AttendeeResponse `json:"body"`
		}{Body: attendeeResponse(p)}, nil
	})
}

func registerRoster(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID:   "load-roster",
		Method:        http.MethodPost,
		Path:          "/roster",
		Summary:       "Start a session from a list of names or raw delimited text",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body LoadRosterRequest
	}) (*struct {
		Body []AttendeeResponse `json:"body"`
	}, error) {
		session := input.Body.Session.toDomain()
		var err error
		switch {
		case input.Body.Text != "" && len(input.Body.Names) > 0:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "send either names or text, not both", nil)
		case input.Body.Text != "":
			_, err = a.Import(input.Body.Text, session)
		default:
			err = a.Store.LoadRoster(input.Body.Names, session)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AttendeeResponse `json:"body"`
		}{Body: mapAttendees(a.Store.Attendees())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-roster",
		Method:      http.MethodDelete,
		Path:        "/roster",
		Summary:     "Clear the roster and session",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		a.Store.Reset()
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: sessionResponse(a)}, nil
	})
}

func registerSummary(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "summary",
		Method:      http.MethodGet,
		Path:        "/summary",
		Summary:     "Counts per status for the active session",
		Errors:      []int{http.StatusConflict},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		session, ok := a.Store.Session()
		if !ok {
			return nil, handleError(domain.ErrNoSession)
		}
		roster := a.Store.Attendees()
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{
			Session:  session,
			Total:    len(roster),
			Progress: views.Progress(session.Variant, roster),
			Counts:   views.CountByStatus(session.Variant, roster),
		}}, nil
	})
}

func registerExport(api huma.API, cfg Config) {
	a := cfg.App
	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Render the session report",
		Errors:      []int{http.StatusConflict, http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		Format string `query:"format" enum:"html,markdown" default:"html"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		now := cfg.Now()
		report, err := export.Build(a.Store.Snapshot(), a.Config.Report.Header, now)
		if err != nil {
			return nil, handleError(err)
		}
		var (
			body  []byte
			ctype string
			ext   string
		)
		switch input.Format {
		case "markdown":
			body, ctype, ext = []byte(report.Markdown()), "text/markdown; charset=utf-8", "md"
		default:
			logo, err := export.FetchLogo(ctx, cfg.HTTPClient, a.Config.Report.Logo)
			if err != nil {
				return nil, newAPIError(http.StatusBadGateway, "logo_unavailable", err.Error(), nil)
			}
			body, err = report.HTML(export.HTMLOptions{Logo: logo, FontSize: a.Settings.Get(ctx).FontSize})
			if err != nil {
				return nil, handleError(err)
			}
			ctype, ext = "text/html; charset=utf-8", "html"
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        ctype,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", export.Filename(report.Session, now, ext)),
			Body:               body,
		}, nil
	})
}

func registerSettings(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "Display settings",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SettingsResponse `json:"body"`
	}, error) {
		return &struct {
			Body SettingsResponse `json:"body"`
		}{Body: SettingsResponse{FontSize: a.Settings.Get(ctx).FontSize}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-settings",
		Method:      http.MethodPut,
		Path:        "/settings",
		Summary:     "Update display settings; the font size is clamped",
	}, func(ctx context.Context, input *struct {
		Body SettingsRequest
	}) (*struct {
		Body SettingsResponse `json:"body"`
	}, error) {
		s, err := a.Settings.SetFontSize(ctx, input.Body.FontSize)
		if err != nil {
			a.Logger.Warn("settings not persisted", "error", err)
		}
		return &struct {
			Body SettingsResponse `json:"body"`
		}{Body: SettingsResponse{FontSize: s.FontSize}}, nil
	})
}

func registerEvents(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent journal events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type" doc:"roster.load, participant.status or roster.reset"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		resp := paginatedEvents{Items: []domain.Event{}}
		if a.Repo == nil {
			return &struct {
				Body paginatedEvents `json:"body"`
			}{Body: resp}, nil
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil || parsed <= 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := a.Repo.LatestEvents(ctx, repo.EventFilter{Type: input.Type, EntityID: input.EntityID, BeforeID: cursorID, Limit: limit + 1})
		if err != nil {
			return nil, handleError(err)
		}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		resp.Items = append(resp.Items, items...)
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
