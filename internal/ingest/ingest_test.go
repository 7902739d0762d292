package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rollcall/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"header stripped, blank dropped, duplicate kept", "Nombre\nAna\nBeto\n\nAna", []string{"Ana", "Beto", "Ana"}},
		{"no header, extra columns ignored", "Ana,20\nBeto,21", []string{"Ana", "Beto"}},
		{"crlf line endings", "Participante,Cargo\r\nAna,Decana\r\nBeto,Vocal\r\n", []string{"Ana", "Beto"}},
		{"case-insensitive header", "NAME\nAna", []string{"Ana"}},
		{"header keyword inside cell", "Nombres completos,DNI\nAna Torres,1", []string{"Ana Torres"}},
		{"whitespace trimmed", "  Ana  ,x\n\t\n   \nBeto", []string{"Ana", "Beto"}},
		{"empty first field dropped", ",20\nAna", []string{"Ana"}},
		{"header check only on first line", "Ana\nNombre", []string{"Ana", "Nombre"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, text := range []string{"", "\n\r\n  \n", "Nombre", "Asistente,Cargo\n\n", ",\n ,x"} {
		_, err := Parse(text)
		if !errors.Is(err, domain.ErrEmptyOrInvalidInput) {
			t.Fatalf("Parse(%q) err = %v, want ErrEmptyOrInvalidInput", text, err)
		}
	}
}

func TestParseRowCount(t *testing.T) {
	text := "name\nA\nB\nC\n\nD\n"
	got, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d names, want 4", len(got))
	}
}

func TestCustomDelimiterAndKeywords(t *testing.T) {
	p, err := New(";", []string{"miembro"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Parse("Miembro;Cargo\nAna, Torres;Decana\nBeto;Vocal")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Ana, Torres", "Beto"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}

	tab, err := New(`\t`, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err = tab.Parse("Ana\tx\nBeto\ty")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"Ana", "Beto"}) {
		t.Fatalf("tab parse = %q", got)
	}

	if _, err := New(";;", nil); err == nil {
		t.Fatalf("expected multi-character delimiter to be rejected")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lista.csv")
	if err := os.WriteFile(path, []byte("Nombre\nAna\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Nombre\nAna\n" {
		t.Fatalf("ReadFile = %q", text)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
