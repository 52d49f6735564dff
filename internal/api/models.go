package api

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the board column a task belongs to.
type Status string

const (
	StatusToDo       Status = "to-do"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// User is an entry in the backend's user directory.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"` // directory role, "member" by default
}

// CreateUserInput holds the fields required to register a new user.
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Project is a project record. The owner is never listed in Members.
type Project struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OwnerID     int        `json:"owner_id"`
	Members     []int      `json:"members"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
}

// HasMember returns true if userID is listed in the project's members.
func (p Project) HasMember(userID int) bool {
	for _, id := range p.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateProjectInput holds the fields required to create a project.
type CreateProjectInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Members     []int      `json:"members"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
}

// Task is a unit of work scoped to a project.
type Task struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ProjectID   int        `json:"project_id"`
	AssignedTo  *int       `json:"assigned_to"`
	Status      Status     `json:"status"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
}

// IsAssignedTo returns true if the task is assigned to userID.
func (t Task) IsAssignedTo(userID int) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// CreateTaskInput holds the fields required to create a task.
type CreateTaskInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ProjectID   int        `json:"project_id"`
	AssignedTo  *int       `json:"assigned_to"`
	Status      Status     `json:"status"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
}

// UpdateTaskInput holds optional fields for a partial task update. Nil fields
// are left out of the request body and keep their server-side value.
type UpdateTaskInput struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	AssignedTo  *Assignment `json:"assigned_to,omitempty"`
	Status      *Status     `json:"status,omitempty"`
	Deadline    *Timestamp  `json:"deadline,omitempty"`
}

// Assignment is an explicit assignee change. A nil UserID encodes as JSON null
// and clears the assignee.
type Assignment struct {
	UserID *int
}

// AssignTo returns an Assignment for userID.
func AssignTo(userID int) *Assignment {
	return &Assignment{UserID: &userID}
}

// Unassign returns an Assignment that clears the assignee.
func Unassign() *Assignment {
	return &Assignment{}
}

// MarshalJSON encodes the assignment as a user ID or null.
func (a Assignment) MarshalJSON() ([]byte, error) {
	if a.UserID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*a.UserID)
}

// Timestamp accepts both RFC 3339 times and the zone-less ISO 8601 times the
// backend emits for naive UTC datetimes.
type Timestamp struct {
	time.Time
}

const naiveLayout = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON parses an RFC 3339 or zone-less timestamp. null leaves the
// value zero.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON encodes the timestamp as RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
