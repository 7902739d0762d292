package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"rollcall/internal/config"
	"rollcall/internal/db"
	"rollcall/internal/domain"
	"rollcall/internal/events"
	"rollcall/internal/ingest"
	"rollcall/internal/migrate"
	"rollcall/internal/persist"
	"rollcall/internal/repo"
	"rollcall/internal/roster"
	"rollcall/internal/settings"
)

// App is the single owner of a session's state for one process. Every
// surface (CLI, TUI, HTTP) receives it explicitly.
type App struct {
	Workspace string
	Config    *config.Config
	Logger    *slog.Logger
	Store     *roster.Store
	Settings  *settings.Store
	Parser    ingest.Parser

	// Repo is set only for the sqlite backend.
	Repo *repo.Repo

	conn *sql.DB
}

type Options struct {
	Workspace string
	Config    *config.Config
	Logger    *slog.Logger
	// Backend overrides Config.Storage.Backend when set.
	Backend string
	// StoreOptions are passed to roster.New.
	StoreOptions []roster.Option
}

// Open wires storage, the roster store, persistence and the journal, and
// restores any persisted session before returning.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.Workspace)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser, err := cfg.Parser()
	if err != nil {
		return nil, err
	}
	backend := cfg.Storage.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}

	a := &App{
		Workspace: opts.Workspace,
		Config:    cfg,
		Logger:    logger,
		Parser:    parser,
		Store:     roster.New(opts.StoreOptions...),
	}

	var kv persist.KV
	switch backend {
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Workspace: opts.Workspace})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if _, err := migrate.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.conn = conn
		a.Repo = &repo.Repo{DB: conn}
		kv = *a.Repo
	case config.BackendFile:
		dir, err := db.EnsureWorkspace(opts.Workspace)
		if err != nil {
			return nil, err
		}
		kv = persist.FileKV{Dir: filepath.Clean(dir)}
	case config.BackendMemory:
		kv = persist.NewMemoryKV()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	persist.NewAdapter(kv, logger.With("component", "persist")).Attach(ctx, a.Store)
	if a.conn != nil {
		events.Writer{DB: a.conn, Logger: logger.With("component", "journal")}.Attach(ctx, a.Store)
	}
	a.Settings = settings.New(kv, cfg.Settings.FontSize, logger.With("component", "settings"))
	logger.Debug("session opened", "backend", backend, "participants", len(a.Store.Attendees()))
	return a, nil
}

// Import parses text and installs it as the roster of a new session. On any
// error the current roster and session are left untouched.
func (a *App) Import(text string, session domain.Session) ([]domain.Participant, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	names, err := a.Parser.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := a.Store.LoadRoster(names, session); err != nil {
		return nil, err
	}
	return a.Store.Attendees(), nil
}

// Close releases the database, if any.
func (a *App) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
