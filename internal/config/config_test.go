package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"rollcall/internal/ingest"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	if !reflect.DeepEqual(cfg.Ingest.HeaderKeywords, ingest.DefaultHeaderKeywords) {
		t.Fatalf("header keywords = %v", cfg.Ingest.HeaderKeywords)
	}
	if len(cfg.Report.Header) != 3 || cfg.Settings.FontSize != 16 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFromYAMLOverridesAndKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("storage:\n  backend: file\ningest:\n  delimiter: \";\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Ingest.Delimiter != ";" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("default server addr lost: %q", cfg.Server.Addr)
	}
	p, err := cfg.Parser()
	if err != nil {
		t.Fatal(err)
	}
	names, err := p.Parse("Nombre;x\nAna;1")
	if err != nil || len(names) != 1 || names[0] != "Ana" {
		t.Fatalf("parser from config = %v, %v", names, err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"backend":   "storage:\n  backend: redis\n",
		"delimiter": "ingest:\n  delimiter: \"::\"\n",
		"font size": "settings:\n  font_size: 40\n",
		"addr":      "server:\n  addr: localhost\n",
		"header":    "report:\n  header: [\"  \"]\n",
		"yaml":      "storage: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromYAML([]byte(raw)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Fatalf("missing file should yield defaults")
	}
	path, err := Write(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Fatalf("path = %s", path)
	}
	if _, err := Write(dir, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if err := os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
}
