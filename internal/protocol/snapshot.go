// internal/protocol/snapshot.go
package protocol

import "strings"

// UnknownAccused is the sentinel username the server places on the dock
// when no one is on trial.
const UnknownAccused = "Unknown"

// Verdict values carried in a Snapshot. The zero value means the Judge has
// not ruled yet (the server sends JSON null, which decodes to "").
const (
	VerdictGuilty   = "guilty"
	VerdictInnocent = "innocent"
)

// Log categories, used by renderers for styling and filtering.
const (
	LogSystem    = "system"
	LogAlert     = "alert"
	LogVerdict   = "verdict"
	LogInfo      = "info"
	LogObjection = "objection"
	LogEvidence  = "evidence"
)

// VoteCount is the running tally for the current round.
type VoteCount struct {
	Guilty   int `json:"guilty"`
	Innocent int `json:"innocent"`
}

// Participant identifies a user on the dock, the witness stand, or in a
// roster listing. Avatar is a CDN reference, empty when the user has none.
type Participant struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Evidence is one card on the evidence board. IDs are assigned by the
// server and increase monotonically within a round.
type Evidence struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author"`
}

// LogEntry is one line of the court record. The record is append-only and
// survives round resets.
type LogEntry struct {
	Message  string `json:"message"`
	Category string `json:"type"`
}

// Snapshot is the complete authoritative round state. The server broadcasts
// a full Snapshot on every change; clients replace their copy wholesale and
// never merge field-by-field.
type Snapshot struct {
	Votes    VoteCount   `json:"votes"`
	Voters   []string    `json:"voters"`
	Crime    string      `json:"crime"`
	Verdict  string      `json:"verdict"`
	Sentence string      `json:"sentence"`
	JudgeID  string      `json:"judge_id"`
	Accused  Participant `json:"accused"`
	Witness  Participant `json:"witness"`
	Timer    int         `json:"timer"`
	Evidence []Evidence  `json:"evidence"`
	Logs     []LogEntry  `json:"logs"`
}

// AccusedUnknown reports whether the dock is empty.
func (s Snapshot) AccusedUnknown() bool {
	return s.Accused.Username == "" || s.Accused.Username == UnknownAccused
}

// HasVoter reports whether id appears in the authoritative voter list.
func (s Snapshot) HasVoter(id string) bool {
	for _, v := range s.Voters {
		if v == id {
			return true
		}
	}
	return false
}

// CrimeEmpty reports whether the accusation text is empty or whitespace.
func (s Snapshot) CrimeEmpty() bool {
	return strings.TrimSpace(s.Crime) == ""
}
