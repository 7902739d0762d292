package server

import (
	"rollcall/internal/app"
	"rollcall/internal/domain"
	"rollcall/internal/views"
)

// Request payloads

type SessionRequest struct {
	Variant string `json:"variant,omitempty" doc:"attendance or voting"`
	Group   string `json:"group,omitempty" doc:"Consejo or Asamblea; ignored for voting"`
	Meeting string `json:"meeting,omitempty" doc:"Ordinaria or Extraordinaria; ignored for voting"`
}

func (s SessionRequest) toDomain() domain.Session {
	return domain.Session{
		Variant: domain.Variant(s.Variant),
		Group:   domain.Group(s.Group),
		Meeting: domain.Meeting(s.Meeting),
	}
}

type LoadRosterRequest struct {
	Names   []string       `json:"names,omitempty" doc:"Participant names in roster order"`
	Text    string         `json:"text,omitempty" doc:"Raw delimited text; the first field of each line is the name"`
	Session SessionRequest `json:"session"`
}

type SetStatusRequest struct {
	Status string `json:"status" example:"present" doc:"present, absent, unmarked, in-favor, against, abstain or unset"`
}

type SettingsRequest struct {
	FontSize int `json:"fontSize" example:"18"`
}

// Response payloads

type AttendeeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Label  string `json:"label"`
}

type SessionResponse struct {
	Active       bool            `json:"active"`
	Session      *domain.Session `json:"session,omitempty"`
	Participants int             `json:"participants"`
}

type SummaryResponse struct {
	Session  domain.Session `json:"session"`
	Total    int            `json:"total"`
	Progress float64        `json:"progress"`
	Counts   views.Tally    `json:"counts"`
}

type SettingsResponse struct {
	FontSize int `json:"fontSize"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func attendeeResponse(p domain.Participant) AttendeeResponse {
	return AttendeeResponse{ID: p.ID, Name: p.Name, Status: p.Status.Name(), Label: p.Status.Label()}
}

func mapAttendees(items []domain.Participant) []AttendeeResponse {
	out := make([]AttendeeResponse, 0, len(items))
	for _, p := range items {
		out = append(out, attendeeResponse(p))
	}
	return out
}

func sessionResponse(a *app.App) SessionResponse {
	snap := a.Store.Snapshot()
	return SessionResponse{
		Active:       snap.Session != nil,
		Session:      snap.Session,
		Participants: len(snap.Roster),
	}
}
