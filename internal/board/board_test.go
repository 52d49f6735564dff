package board

import (
	"reflect"
	"testing"

	"github.com/alecgard/taskflow/internal/api"
)

func intPtr(v int) *int { return &v }

func taskIDs(c *Column) []int {
	out := []int{}
	for _, card := range c.Cards {
		out = append(out, card.Task.ID)
	}
	return out
}

func TestProjectBucketsInFetchOrder(t *testing.T) {
	tasks := []api.Task{
		{ID: 1, Status: api.StatusDone},
		{ID: 2, Status: api.StatusToDo},
		{ID: 3, Status: api.StatusToDo},
		{ID: 4, Status: api.StatusInProgress},
		{ID: 5, Status: "archived"},
	}
	b := Project(tasks)

	if got := taskIDs(b.Column(api.StatusToDo)); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("to-do = %v, want [2 3]", got)
	}
	if got := taskIDs(b.Column(api.StatusInProgress)); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("in-progress = %v, want [4]", got)
	}
	if got := taskIDs(b.Column(api.StatusDone)); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("done = %v, want [1]", got)
	}
	if b.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", b.Dropped)
	}
	if _, ok := b.Card(5); ok {
		t.Error("task with unknown status must not appear in any column")
	}
}

func TestProjectColumnOrderAndTitles(t *testing.T) {
	b := Project(nil)
	want := []string{"To Do", "In Progress", "Done"}
	if len(b.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(b.Columns))
	}
	for i, c := range b.Columns {
		if c.Title != want[i] {
			t.Errorf("column %d title = %q, want %q", i, c.Title, want[i])
		}
		if c.Cards == nil || len(c.Cards) != 0 {
			t.Errorf("column %d should be empty, got %v", i, c.Cards)
		}
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	tasks := []api.Task{
		{ID: 1, Status: api.StatusDone},
		{ID: 2, Status: api.StatusToDo},
	}
	first := Project(tasks)
	second := Project(tasks)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("projection not stable: %+v vs %+v", first, second)
	}
	total := 0
	for _, n := range first.Counts() {
		total += n
	}
	if total != len(tasks) {
		t.Errorf("counts sum to %d, want %d", total, len(tasks))
	}
}

func TestBuildPermissions(t *testing.T) {
	project := api.Project{ID: 10, OwnerID: 1, Members: []int{2, 3}}
	users := []api.User{
		{ID: 1, Name: "Owner"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Carol"},
	}
	tasks := []api.Task{
		{ID: 100, Status: api.StatusToDo, AssignedTo: intPtr(2)},
		{ID: 101, Status: api.StatusInProgress, AssignedTo: intPtr(3)},
		{ID: 102, Status: api.StatusDone},
		{ID: 103, Status: api.StatusDone, AssignedTo: intPtr(77)},
	}

	t.Run("member sees own task editable", func(t *testing.T) {
		b := Build(tasks, project, users, intPtr(2))

		own, _ := b.Card(100)
		if !own.CanEdit || !own.IsMine || own.CanAssign {
			t.Errorf("own card: CanEdit=%v IsMine=%v CanAssign=%v", own.CanEdit, own.IsMine, own.CanAssign)
		}
		if own.Assignee == nil || own.Assignee.Name != "Bob" {
			t.Errorf("expected assignee Bob, got %+v", own.Assignee)
		}
		for _, opt := range own.StatusOptions {
			if opt.Disabled {
				t.Errorf("status %s should be enabled on own card", opt.Status)
			}
		}

		other, _ := b.Card(101)
		if other.CanEdit || other.IsMine {
			t.Errorf("other card: CanEdit=%v IsMine=%v", other.CanEdit, other.IsMine)
		}
		if len(other.StatusOptions) != 3 {
			t.Fatalf("expected 3 status options, got %d", len(other.StatusOptions))
		}
		for _, opt := range other.StatusOptions {
			if !opt.Disabled {
				t.Errorf("status %s should be disabled on another member's card", opt.Status)
			}
		}
	})

	t.Run("owner edits and assigns everything", func(t *testing.T) {
		b := Build(tasks, project, users, intPtr(1))
		for _, id := range []int{100, 101, 102} {
			card, ok := b.Card(id)
			if !ok {
				t.Fatalf("card %d missing", id)
			}
			if !card.CanEdit || !card.CanAssign {
				t.Errorf("card %d: CanEdit=%v CanAssign=%v", id, card.CanEdit, card.CanAssign)
			}
			if card.IsMine {
				t.Errorf("card %d should not be the owner's", id)
			}
		}
	})

	t.Run("unresolvable assignee", func(t *testing.T) {
		b := Build(tasks, project, users, intPtr(1))
		card, _ := b.Card(103)
		if card.Assignee != nil {
			t.Errorf("expected nil assignee, got %+v", card.Assignee)
		}
	})

	t.Run("no identity", func(t *testing.T) {
		b := Build(tasks, project, users, nil)
		for _, c := range b.Columns {
			for _, card := range c.Cards {
				if card.CanEdit || card.IsMine || card.CanAssign {
					t.Errorf("card %d should grant nothing without identity", card.Task.ID)
				}
			}
		}
	})
}

func TestTitleUnknownStatus(t *testing.T) {
	if got := Title("blocked"); got != "blocked" {
		t.Errorf("Title(blocked) = %q", got)
	}
}
