package domain

import "time"

// HistoryType discriminates history payloads.
type HistoryType int

const (
	HistoryMessage HistoryType = iota + 1
	HistoryAssignment
	HistoryStatus
	HistoryTitle
)

func (t HistoryType) String() string {
	switch t {
	case HistoryMessage:
		return "message"
	case HistoryAssignment:
		return "assignment"
	case HistoryStatus:
		return "status"
	case HistoryTitle:
		return "title"
	default:
		return "unknown"
	}
}

// HistoryPayload is the tagged union of change records. Implementations are
// sealed to this package so every history row resolves to exactly one
// concrete payload.
type HistoryPayload interface {
	HistoryType() HistoryType
	sealed()
}

// MessagePayload records a message added to the thread.
type MessagePayload struct {
	Message Message
}

// AssignmentPayload records a user or team assignment.
type AssignmentPayload struct {
	Assignment Assignment
}

// StatusPayload records a status transition.
type StatusPayload struct {
	Status Status
}

// TitlePayload records a rename.
type TitlePayload struct {
	Title string
}

func (MessagePayload) HistoryType() HistoryType    { return HistoryMessage }
func (AssignmentPayload) HistoryType() HistoryType { return HistoryAssignment }
func (StatusPayload) HistoryType() HistoryType     { return HistoryStatus }
func (TitlePayload) HistoryType() HistoryType      { return HistoryTitle }

func (MessagePayload) sealed()    {}
func (AssignmentPayload) sealed() {}
func (StatusPayload) sealed()     {}
func (TitlePayload) sealed()      {}

// History is one append-only audit entry for an issue. Rows are never updated
// or deleted; the bigserial ID doubles as the tiebreaker when entries share a
// timestamp.
type History struct {
	ID        int64
	IssueID   string
	ActorID   string
	Payload   HistoryPayload
	CreatedAt time.Time
}
