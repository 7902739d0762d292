package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rollcall/internal/app"
	"rollcall/internal/config"
	"rollcall/internal/db"
	"rollcall/internal/domain"
	"rollcall/internal/export"
	"rollcall/internal/ingest"
	"rollcall/internal/repo"
	"rollcall/internal/server"
	"rollcall/internal/tui"
	"rollcall/internal/views"
)

var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Rollcall CLI",
	Long: `Rollcall takes attendance and nominal votes for council and assembly sessions.
Core concepts:
- Workspace: the .rollcall directory holding the session database (or JSON files) and rollcall.yml.
- Session: attendance (group Consejo/Asamblea, meeting Ordinaria/Extraordinaria) or voting (Votacion nominal).
- Roster: the participants imported from a delimited list; the first field of each line is the name.
- Status: present/absent/unmarked for attendance; in-favor/against/abstain/unset for voting.
- Report: an HTML or Markdown document with the summary and one section per status.
- Event log: every change to the session, view with 'rollcall log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ROLLCALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend (sqlite, file, memory); overrides rollcall.yml")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(markCmd())
	rootCmd.AddCommand(takeCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the workspace and a default rollcall.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			dir, err := db.EnsureWorkspace(workspace)
			if err != nil {
				return err
			}
			path, err := config.Write(workspace, force)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]string{"config": path, "workspace": dir})
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing rollcall.yml")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect rollcall.yml",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate rollcall.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}

func importCmd() *cobra.Command {
	var variant, group, meeting string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Start a session from a delimited list of names",
		Long:  "Reads a CSV-like file (or stdin with '-'), takes the first field of each line as a name, and skips a header line such as 'Nombre,...'. The previous session is replaced only when the import succeeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			} else {
				t, err := ingest.ReadFile(args[0])
				if err != nil {
					return err
				}
				text = t
			}
			session := domain.Session{Variant: domain.Variant(variant), Group: domain.Group(group), Meeting: domain.Meeting(meeting)}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Import(text, session)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				s, _ := a.Store.Session()
				fmt.Printf("Loaded %d participants (%s)\n", len(items), sessionLine(s))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", string(domain.VariantAttendance), "attendance or voting")
	cmd.Flags().StringVar(&group, "group", "", "Consejo or Asamblea (attendance only)")
	cmd.Flags().StringVar(&meeting, "meeting", "", "Ordinaria or Extraordinaria (attendance only)")
	return cmd
}

func listCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List participants in roster order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := views.Filter(a.Store.Attendees(), filter)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				all := a.Store.Attendees()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "ID", "Name", "Status"})
				for _, p := range items {
					tw.AppendRow(table.Row{views.IndexOf(all, p.ID) + 1, p.ID, p.Name, p.Status.Label()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive name filter")
	return cmd
}

func markCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark <id|#> <status>",
		Short: "Record a participant's status",
		Long:  "Targets a participant by id or 1-based roster position. Status is one of present, absent, unmarked (attendance) or in-favor, against, abstain, unset (voting).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				id := resolveParticipant(a.Store.Attendees(), args[0])
				if err := a.Store.SetStatus(id, domain.ParseStatus(args[1])); err != nil {
					return err
				}
				p, _ := a.Store.Participant(id)
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("%s: %s\n", p.Name, p.Status.Label())
				return nil
			})
		},
	}
	return cmd
}

func takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take",
		Short: "Take attendance interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if _, ok := a.Store.Session(); !ok {
					return domain.ErrNoSession
				}
				_, err := tea.NewProgram(tui.New(a.Store), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				return err
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				session, ok := a.Store.Session()
				if !ok {
					return domain.ErrNoSession
				}
				people := a.Store.Attendees()
				tally := views.CountByStatus(session.Variant, people)
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"session":  session,
						"total":    len(people),
						"progress": views.Progress(session.Variant, people),
						"counts":   tally,
					})
				}
				fmt.Println(sessionLine(session))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Count"})
				for _, e := range tally {
					tw.AppendRow(table.Row{e.Label, e.Count})
				}
				tw.AppendFooter(table.Row{"Total", len(people)})
				tw.Render()
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var format, out string
	var noLogo bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the session report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "html" && format != "md" {
				return fmt.Errorf("invalid --format %q (html or md)", format)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				now := time.Now()
				report, err := export.Build(a.Store.Snapshot(), a.Config.Report.Header, now)
				if err != nil {
					return err
				}
				var data []byte
				if format == "md" {
					data = []byte(report.Markdown())
				} else {
					var logo string
					if !noLogo {
						client := &http.Client{Timeout: 10 * time.Second}
						logo, err = export.FetchLogo(ctx, client, a.Config.Report.Logo)
						if err != nil {
							return err
						}
					}
					data, err = report.HTML(export.HTMLOptions{Logo: logo, FontSize: a.Settings.Get(ctx).FontSize})
					if err != nil {
						return err
					}
				}
				path := out
				if path == "" {
					path = export.Filename(report.Session, now, format)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"path": path})
				}
				fmt.Printf("Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "html", "report format (html or md)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults to reporte_asistencia_<group>_<meeting>_<date>.<ext>)")
	cmd.Flags().BoolVar(&noLogo, "no-logo", false, "skip the configured report logo")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the roster and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				a.Store.Reset()
				if viper.GetBool("json") {
					return printJSON(map[string]bool{"reset": true})
				}
				fmt.Println("Session cleared")
				return nil
			})
		},
	}
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show display settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printJSONOrTable(a.Settings.Get(ctx))
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "font-size <px>",
		Short: "Set the report font size (clamped to 14-24)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid font size %q", args[0])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Settings.SetFontSize(ctx, n)
				if err != nil {
					logger.Warn("settings not persisted", "error", err)
				}
				return printJSONOrTable(s)
			})
		},
	})
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Session event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if a.Repo == nil {
					return errors.New("the event log requires the sqlite backend")
				}
				events, err := a.Repo.LatestEvents(ctx, repo.EventFilter{Type: evtType, EntityID: entityID, Limit: n})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Payload"})
				for _, e := range events {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				handler, err := server.New(server.Config{
					App:        a,
					BasePath:   basePath,
					HTTPClient: &http.Client{Timeout: 10 * time.Second},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Rollcall API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr in rollcall.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Logger:    logger,
		Backend:   viper.GetString("backend"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// resolveParticipant maps a 1-based roster position to an id; anything else
// is taken as an id.
func resolveParticipant(people []domain.Participant, ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(people) {
		return people[n-1].ID
	}
	return ref
}

func sessionLine(s domain.Session) string {
	if s.Variant == domain.VariantVoting {
		return s.Group.Title()
	}
	return fmt.Sprintf("%s, Sesión %s", s.Group.Title(), s.Meeting)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
