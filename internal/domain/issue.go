package domain

import "time"

// Status is the lifecycle state of an issue.
type Status int

const (
	StatusOpen Status = iota + 1
	StatusDone
	StatusClosed
)

// ValidStatus reports whether s is one of the defined statuses.
func ValidStatus(s Status) bool {
	return s >= StatusOpen && s <= StatusClosed
}

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusDone:
		return "done"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Issue is a trackable unit of work, numbered sequentially within its project.
type Issue struct {
	ID        string
	ProjectID string
	Number    int
	Status    Status
	Title     string
	CreatedBy string
	DueDate   *time.Time
	CreatedAt time.Time
}

// Message is one entry of an issue's discussion thread. The body is a
// structured rich-text document stored opaquely.
type Message struct {
	ID        int64
	IssueID   string
	CreatedBy string
	Body      []byte
	CreatedAt time.Time
}

// AssignmentType discriminates user from team assignments.
type AssignmentType int

const (
	AssignmentUser AssignmentType = iota + 1
	AssignmentTeam
)

// Assignment links an issue to a responsible user or team. Exactly one of
// UserID/TeamID is set, matching Type.
type Assignment struct {
	ID        int64
	IssueID   string
	Type      AssignmentType
	UserID    *string
	TeamID    *string
	CreatedAt time.Time
}
