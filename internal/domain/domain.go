package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyOrInvalidInput    = errors.New("empty or invalid input: no usable names")
	ErrIncompleteSession      = errors.New("incomplete session selection")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrUnknownParticipant     = errors.New("unknown participant")
	ErrInvalidStatus          = errors.New("invalid status for session variant")
	ErrNoSession              = errors.New("no active session")
)

// Variant selects the workflow a session runs.
type Variant string

const (
	VariantAttendance Variant = "attendance"
	VariantVoting     Variant = "voting"
)

type Status string

const (
	StatusPresent  Status = "present"
	StatusAbsent   Status = "absent"
	StatusUnmarked Status = "unmarked"

	StatusInFavor Status = "in-favor"
	StatusAgainst Status = "against"
	StatusAbstain Status = "abstain"

	// StatusUnset is the voting default; it is omitted from persisted records.
	StatusUnset Status = ""
)

// Name returns the status as shown to users of the CLI and API.
func (s Status) Name() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

// ParseStatus accepts the wire name of a status, including "unset".
func ParseStatus(in string) Status {
	in = strings.ToLower(strings.TrimSpace(in))
	if in == "unset" {
		return StatusUnset
	}
	return Status(in)
}

func (s Status) Label() string {
	switch s {
	case StatusPresent:
		return "Asistente"
	case StatusAbsent:
		return "Ausente"
	case StatusUnmarked:
		return "Sin Marcar"
	case StatusInFavor:
		return "A favor"
	case StatusAgainst:
		return "En contra"
	case StatusAbstain:
		return "Abstención"
	case StatusUnset:
		return "Sin voto"
	default:
		return string(s)
	}
}

// Known reports whether v is one of the supported variants.
func (v Variant) Known() bool {
	return v == VariantAttendance || v == VariantVoting
}

// Statuses returns the closed status set of the variant, default last.
func (v Variant) Statuses() []Status {
	switch v {
	case VariantAttendance:
		return []Status{StatusPresent, StatusAbsent, StatusUnmarked}
	case VariantVoting:
		return []Status{StatusInFavor, StatusAgainst, StatusAbstain, StatusUnset}
	default:
		return nil
	}
}

// Choices returns the statuses a user can select, i.e. Statuses without
// the voting "unset" value.
func (v Variant) Choices() []Status {
	var out []Status
	for _, s := range v.Statuses() {
		if v == VariantVoting && s == StatusUnset {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v Variant) Default() Status {
	if v == VariantAttendance {
		return StatusUnmarked
	}
	return StatusUnset
}

func (v Variant) Allows(s Status) bool {
	for _, candidate := range v.Statuses() {
		if candidate == s {
			return true
		}
	}
	return false
}

type Group string

const (
	GroupCouncil     Group = "Consejo"
	GroupAssembly    Group = "Asamblea"
	GroupNominalVote Group = "Votacion nominal"
)

func (g Group) Title() string {
	switch g {
	case GroupCouncil:
		return "Consejo Universitario"
	case GroupAssembly:
		return "Asamblea Universitaria"
	case GroupNominalVote:
		return "Votación Nominal"
	default:
		return string(g)
	}
}

type Meeting string

const (
	MeetingOrdinary      Meeting = "Ordinaria"
	MeetingExtraordinary Meeting = "Extraordinaria"
)

// Session describes the active workflow.
type Session struct {
	Variant Variant `json:"variant" yaml:"variant"`
	Group   Group   `json:"group,omitempty" yaml:"group,omitempty"`
	Meeting Meeting `json:"meeting,omitempty" yaml:"meeting,omitempty"`
}

// Validate checks that every sub-selection required by the variant is present.
func (s Session) Validate() error {
	switch s.Variant {
	case VariantAttendance:
		if s.Group != GroupCouncil && s.Group != GroupAssembly {
			return incomplete("group must be %s or %s", GroupCouncil, GroupAssembly)
		}
		if s.Meeting != MeetingOrdinary && s.Meeting != MeetingExtraordinary {
			return incomplete("meeting must be %s or %s", MeetingOrdinary, MeetingExtraordinary)
		}
	case VariantVoting:
		if s.Group != "" && s.Group != GroupNominalVote {
			return incomplete("voting sessions use group %q", GroupNominalVote)
		}
	case "":
		return incomplete("variant is required")
	default:
		return incomplete("unknown variant %q", s.Variant)
	}
	return nil
}

// Normalized fills defaults implied by the variant.
func (s Session) Normalized() Session {
	if s.Variant == VariantVoting {
		s.Group = GroupNominalVote
		s.Meeting = ""
	}
	return s
}

func (s Session) Title() string {
	if s.Variant == VariantVoting {
		return "Reporte de Votación Nominal"
	}
	return "Reporte de Asistencia"
}

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status,omitempty"`
}

// Snapshot pairs the roster with its session. A nil Session means no
// active session.
type Snapshot struct {
	Roster  []Participant `json:"roster"`
	Session *Session      `json:"session"`
}

// Empty reports whether the snapshot holds no session state worth keeping.
func (s Snapshot) Empty() bool {
	return len(s.Roster) == 0 || s.Session == nil
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Roster != nil {
		out.Roster = append([]Participant(nil), s.Roster...)
	}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	return out
}

// Event is a journal entry recorded for a roster mutation.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
