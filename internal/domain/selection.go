package domain

// Selection is the per-request "selected project" context: the project the
// user is operating in together with their accepted membership. It is built
// once per request and passed explicitly into every operation instead of
// living in session state.
type Selection struct {
	Project Project
	Member  ProjectMember
}

// Role returns the selecting user's role in the project.
func (s Selection) Role() Role { return s.Member.Role }

// UserID returns the selecting user's identifier.
func (s Selection) UserID() string { return s.Member.UserID }
