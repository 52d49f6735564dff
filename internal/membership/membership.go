// Package membership derives a caller's role in a project and the user sets
// that gate member management and task assignment.
package membership

import "github.com/alecgard/taskflow/internal/api"

// Role is the caller's relationship to a project.
type Role int

const (
	None Role = iota
	Member
	Owner
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "Owner"
	case Member:
		return "Member"
	}
	return ""
}

// RoleOf returns the role identity holds in p. Owner takes precedence, so a
// user is never both Owner and Member.
func RoleOf(p api.Project, identity *int) Role {
	if identity == nil {
		return None
	}
	if p.OwnerID == *identity {
		return Owner
	}
	if p.HasMember(*identity) {
		return Member
	}
	return None
}

// Evaluation is the derived membership state of one project for one caller.
type Evaluation struct {
	Role Role
	// Owner is nil when the owner is missing from the directory.
	Owner *api.User
	// ProjectMembers are the directory users listed in the project's members,
	// in directory order.
	ProjectMembers []api.User
	// AssignableUsers is the owner followed by ProjectMembers.
	AssignableUsers []api.User
	// AvailableUsers are directory users that are neither members nor owner.
	AvailableUsers []api.User
}

// Evaluate derives the membership state of p from the user directory.
func Evaluate(p api.Project, users []api.User, identity *int) Evaluation {
	e := Evaluation{
		Role:            RoleOf(p, identity),
		ProjectMembers:  []api.User{},
		AssignableUsers: []api.User{},
		AvailableUsers:  []api.User{},
	}

	seen := make(map[int]bool, len(users))
	for i := range users {
		u := users[i]
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true

		switch {
		case u.ID == p.OwnerID:
			owner := u
			e.Owner = &owner
		case p.HasMember(u.ID):
			e.ProjectMembers = append(e.ProjectMembers, u)
		default:
			e.AvailableUsers = append(e.AvailableUsers, u)
		}
	}

	if e.Owner != nil {
		e.AssignableUsers = append(e.AssignableUsers, *e.Owner)
	}
	e.AssignableUsers = append(e.AssignableUsers, e.ProjectMembers...)
	return e
}

// CanManageProject reports whether the caller may add or remove members,
// create tasks and reassign them.
func (e Evaluation) CanManageProject() bool {
	return e.Role == Owner
}

// IsAssignable reports whether userID may be a task's assignee.
func (e Evaluation) IsAssignable(userID int) bool {
	for _, u := range e.AssignableUsers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// IsAvailable reports whether userID may be added as a member.
func (e Evaluation) IsAvailable(userID int) bool {
	for _, u := range e.AvailableUsers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// MemberCount is the team size shown to users, which counts the owner.
func (e Evaluation) MemberCount() int {
	return len(e.ProjectMembers) + 1
}

// CanEditTask reports whether identity may change t's status or delete it:
// its assignee or the project owner.
func CanEditTask(t api.Task, identity *int, ownerID int) bool {
	if identity == nil {
		return false
	}
	return t.IsAssignedTo(*identity) || *identity == ownerID
}
