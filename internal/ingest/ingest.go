// Package ingest turns the text of an uploaded roster file into an ordered
// list of participant names.
package ingest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"rollcall/internal/domain"
)

// DefaultHeaderKeywords match a header cell in Spanish or English.
var DefaultHeaderKeywords = []string{"name", "nombre", "attendee", "asistente", "participant", "participante"}

const DefaultDelimiter = ","

// Parser extracts the first column of each non-blank line.
type Parser struct {
	Delimiter string
	Header    *regexp.Regexp
}

// Default returns a comma-separated parser with the default header keywords.
func Default() Parser {
	p, _ := New(DefaultDelimiter, DefaultHeaderKeywords)
	return p
}

// New builds a parser. The delimiter must be a single character; keywords
// are matched case-insensitively anywhere in the first cell.
func New(delimiter string, keywords []string) (Parser, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if delimiter == `\t` {
		delimiter = "\t"
	}
	if utf8.RuneCountInString(delimiter) != 1 {
		return Parser{}, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	if len(keywords) == 0 {
		keywords = DefaultHeaderKeywords
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	if len(quoted) == 0 {
		return Parser{}, fmt.Errorf("header keywords are empty")
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, "|"))
	if err != nil {
		return Parser{}, fmt.Errorf("compile header pattern: %w", err)
	}
	return Parser{Delimiter: delimiter, Header: re}, nil
}

// Parse returns the names found in text, in file order, duplicates kept.
func (p Parser) Parse(text string) ([]string, error) {
	delim := p.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 && p.Header != nil && p.Header.MatchString(firstField(lines[0], delim)) {
		lines = lines[1:]
	}
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		name := strings.TrimSpace(firstField(line, delim))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, domain.ErrEmptyOrInvalidInput
	}
	return names, nil
}

// Parse runs the default parser.
func Parse(text string) ([]string, error) {
	return Default().Parse(text)
}

// ReadFile loads a roster file as text. Read errors are returned as-is so
// callers can tell them apart from an empty roster.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read roster file: %w", err)
	}
	return string(data), nil
}

func firstField(line, delim string) string {
	field, _, _ := strings.Cut(line, delim)
	return field
}
