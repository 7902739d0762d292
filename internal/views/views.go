// Package views holds read-only projections of a roster. Nothing here keeps
// state; callers pass the roster they want projected.
package views

import (
	"strings"

	"rollcall/internal/domain"
)

type TallyEntry struct {
	Status domain.Status `json:"-"`
	Name   string        `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

// Tally lists one entry per status of the variant, in variant order.
type Tally []TallyEntry

func (t Tally) Count(s domain.Status) int {
	for _, e := range t {
		if e.Status == s {
			return e.Count
		}
	}
	return 0
}

// Map returns counts keyed by status name.
func (t Tally) Map() map[string]int {
	out := make(map[string]int, len(t))
	for _, e := range t {
		out[e.Name] = e.Count
	}
	return out
}

// CountByStatus tallies roster against the statuses of variant. Participants
// carrying a status outside the variant are not counted.
func CountByStatus(variant domain.Variant, roster []domain.Participant) Tally {
	statuses := variant.Statuses()
	out := make(Tally, len(statuses))
	index := make(map[domain.Status]int, len(statuses))
	for i, s := range statuses {
		out[i] = TallyEntry{Status: s, Name: s.Name(), Label: s.Label()}
		index[s] = i
	}
	for _, p := range roster {
		if i, ok := index[p.Status]; ok {
			out[i].Count++
		}
	}
	return out
}

// Filter keeps participants whose name contains query, ignoring case.
func Filter(roster []domain.Participant, query string) []domain.Participant {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return roster
	}
	var out []domain.Participant
	for _, p := range roster {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

// Progress is the fraction of participants whose status differs from the
// variant default.
func Progress(variant domain.Variant, roster []domain.Participant) float64 {
	if len(roster) == 0 {
		return 0
	}
	def := variant.Default()
	marked := 0
	for _, p := range roster {
		if p.Status != def {
			marked++
		}
	}
	return float64(marked) / float64(len(roster))
}

type Group struct {
	Status       domain.Status
	Participants []domain.Participant
}

// Partition groups participants by status, in variant order.
func Partition(variant domain.Variant, roster []domain.Participant) []Group {
	statuses := variant.Statuses()
	out := make([]Group, len(statuses))
	index := make(map[domain.Status]int, len(statuses))
	for i, s := range statuses {
		out[i].Status = s
		index[s] = i
	}
	for _, p := range roster {
		if i, ok := index[p.Status]; ok {
			out[i].Participants = append(out[i].Participants, p)
		}
	}
	return out
}

// IndexOf returns the roster position of id, or -1.
func IndexOf(roster []domain.Participant, id string) int {
	for i, p := range roster {
		if p.ID == id {
			return i
		}
	}
	return -1
}
