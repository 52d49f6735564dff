// Package board groups a project's tasks into the three status columns and
// annotates each card with what the caller may do to it.
package board

import (
	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/membership"
)

// Statuses is the fixed column order.
var Statuses = []api.Status{api.StatusToDo, api.StatusInProgress, api.StatusDone}

// Title returns the column heading for s.
func Title(s api.Status) string {
	switch s {
	case api.StatusToDo:
		return "To Do"
	case api.StatusInProgress:
		return "In Progress"
	case api.StatusDone:
		return "Done"
	}
	return string(s)
}

// StatusOption is one entry of a card's status selector.
type StatusOption struct {
	Status   api.Status
	Disabled bool
}

// Card is a task with its caller-specific affordances.
type Card struct {
	Task     api.Task
	Assignee *api.User
	// CanEdit is true for the assignee and the project owner.
	CanEdit bool
	// IsMine marks tasks assigned to the caller.
	IsMine bool
	// CanAssign is true for the project owner.
	CanAssign     bool
	StatusOptions []StatusOption
}

// Column is one status bucket. Cards keep fetch order.
type Column struct {
	Status api.Status
	Title  string
	Cards  []Card
}

// Board is the projected task board.
type Board struct {
	Columns []Column
	// Dropped counts tasks whose status matched no column.
	Dropped int
}

// Project buckets tasks by status without any caller context.
func Project(tasks []api.Task) Board {
	b := empty()
	for _, t := range tasks {
		col := b.column(t.Status)
		if col == nil {
			b.Dropped++
			continue
		}
		col.Cards = append(col.Cards, Card{Task: t})
	}
	return b
}

// Build buckets tasks and attaches permissions for identity.
func Build(tasks []api.Task, project api.Project, users []api.User, identity *int) Board {
	byID := make(map[int]api.User, len(users))
	for _, u := range users {
		if _, ok := byID[u.ID]; !ok {
			byID[u.ID] = u
		}
	}
	isOwner := membership.RoleOf(project, identity) == membership.Owner

	b := empty()
	for _, t := range tasks {
		col := b.column(t.Status)
		if col == nil {
			b.Dropped++
			continue
		}

		card := Card{
			Task:      t,
			CanEdit:   membership.CanEditTask(t, identity, project.OwnerID),
			IsMine:    identity != nil && t.IsAssignedTo(*identity),
			CanAssign: isOwner,
		}
		if t.AssignedTo != nil {
			if u, ok := byID[*t.AssignedTo]; ok {
				card.Assignee = &u
			}
		}
		card.StatusOptions = make([]StatusOption, len(Statuses))
		for i, s := range Statuses {
			card.StatusOptions[i] = StatusOption{Status: s, Disabled: !card.CanEdit}
		}
		col.Cards = append(col.Cards, card)
	}
	return b
}

func empty() Board {
	b := Board{Columns: make([]Column, len(Statuses))}
	for i, s := range Statuses {
		b.Columns[i] = Column{Status: s, Title: Title(s), Cards: []Card{}}
	}
	return b
}

func (b *Board) column(s api.Status) *Column {
	for i := range b.Columns {
		if b.Columns[i].Status == s {
			return &b.Columns[i]
		}
	}
	return nil
}

// Column returns the column for s, or nil for an unknown status.
func (b Board) Column(s api.Status) *Column {
	return b.column(s)
}

// Counts returns the number of cards per status.
func (b Board) Counts() map[api.Status]int {
	out := make(map[api.Status]int, len(b.Columns))
	for _, c := range b.Columns {
		out[c.Status] = len(c.Cards)
	}
	return out
}

// Card finds the card for taskID.
func (b Board) Card(taskID int) (Card, bool) {
	for _, c := range b.Columns {
		for _, card := range c.Cards {
			if card.Task.ID == taskID {
				return card, true
			}
		}
	}
	return Card{}, false
}
