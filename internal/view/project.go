package view

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/board"
	"github.com/alecgard/taskflow/internal/membership"
	"golang.org/x/sync/errgroup"
)

const (
	msgLoadProject     = "Failed to load project"
	msgCreateTask      = "Failed to create task"
	msgAddMember       = "Failed to add member"
	msgDuplicateMember = "Failed to add member. Make sure they're not already a member."
	msgRemoveMember    = "Failed to remove member"
	msgUpdateStatus    = "Failed to update task"
	msgUpdateAssignee  = "Failed to update assignee"
	msgDeleteTask      = "Failed to delete task"

	confirmRemoveMember = "Are you sure you want to remove this member?"
	confirmDeleteTask   = "Delete this task?"
)

// TaskForm is the new-task form. AssignedTo of 0 means unassigned.
type TaskForm struct {
	Name        string
	Description string
	AssignedTo  int
	Open        bool
}

// MemberForm is the add-member form.
type MemberForm struct {
	UserID int
	Open   bool
}

// ProjectDetail is the member list and task board of one project.
type ProjectDetail struct {
	base

	projectID  int
	project    api.Project
	tasks      []api.Task
	users      []api.User
	identity   *int
	eval       membership.Evaluation
	board      board.Board
	taskForm   TaskForm
	memberForm MemberForm
	loaded     bool
}

// NewProjectDetail creates the view for projectID. confirm is asked before
// destructive commands; a nil confirm declines them all.
func NewProjectDetail(projectID int, gw Gateway, sess Session, confirm Confirmer, logger *slog.Logger) *ProjectDetail {
	return &ProjectDetail{
		base:      newBase(gw, sess, confirm, logger),
		projectID: projectID,
	}
}

// Load fetches the project, its tasks and the user directory concurrently.
// Any failure fails the whole load and keeps the previous state.
func (v *ProjectDetail) Load(ctx context.Context) error {
	if v.isClosed() {
		return nil
	}

	var (
		project *api.Project
		tasks   []api.Task
		users   []api.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = v.gw.GetProject(gctx, v.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = v.gw.ListTasks(gctx, &v.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = v.gw.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return v.loadFailed(ctx, msgLoadProject, err)
	}

	identity := v.sess.Identity(ctx, users)
	eval := membership.Evaluate(*project, users, identity)
	b := board.Build(tasks, *project, users, identity)
	if b.Dropped > 0 {
		v.logger.Warn("tasks with unknown status not shown", "project_id", v.projectID, "count", b.Dropped)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.project = *project
	v.tasks = tasks
	v.users = users
	v.identity = identity
	v.eval = eval
	v.board = b
	v.errMsg = ""
	v.loaded = true
	return nil
}

// Loaded reports whether a Load has completed successfully.
func (v *ProjectDetail) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *ProjectDetail) Project() api.Project {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.project
}

func (v *ProjectDetail) Users() []api.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]api.User(nil), v.users...)
}

func (v *ProjectDetail) Identity() *int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.identity
}

func (v *ProjectDetail) Evaluation() membership.Evaluation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eval
}

func (v *ProjectDetail) Board() board.Board {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board
}

// NoMembers reports whether the "No members yet" placeholder applies.
func (v *ProjectDetail) NoMembers() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && len(v.eval.ProjectMembers) == 0 && !v.memberForm.Open
}

func (v *ProjectDetail) TaskForm() TaskForm {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.taskForm
}

func (v *ProjectDetail) SetTaskForm(f TaskForm) {
	v.mu.Lock()
	v.taskForm = f
	v.mu.Unlock()
}

func (v *ProjectDetail) ToggleTaskForm() {
	v.mu.Lock()
	v.taskForm.Open = !v.taskForm.Open
	v.mu.Unlock()
}

func (v *ProjectDetail) MemberForm() MemberForm {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.memberForm
}

func (v *ProjectDetail) SetMemberForm(f MemberForm) {
	v.mu.Lock()
	v.memberForm = f
	v.mu.Unlock()
}

func (v *ProjectDetail) ToggleMemberForm() {
	v.mu.Lock()
	v.memberForm.Open = !v.memberForm.Open
	v.mu.Unlock()
}

// snapshot returns the derived state commands validate against.
func (v *ProjectDetail) snapshot() (membership.Evaluation, board.Board, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eval, v.board, v.loaded
}

var notLoaded = invalid("", "Project is not loaded")

// CreateTask submits the task form. Only the owner may create tasks and the
// assignee, if any, must be the owner or a member.
func (v *ProjectDetail) CreateTask(ctx context.Context) Result {
	eval, _, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	if !eval.CanManageProject() {
		return denied("Only the project owner can create tasks")
	}

	form := v.TaskForm()
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return invalid("name", "Task name is required")
	}
	var assignee *int
	if form.AssignedTo != 0 {
		if !eval.IsAssignable(form.AssignedTo) {
			return invalid("assigned_to", "Assignee must be the project owner or a member")
		}
		id := form.AssignedTo
		assignee = &id
	}

	return v.run(ctx, mutation{
		action:  "create_task",
		failure: msgCreateTask,
		send: func(ctx context.Context) error {
			_, err := v.gw.CreateTask(ctx, api.CreateTaskInput{
				Name:        name,
				Description: form.Description,
				ProjectID:   v.projectID,
				AssignedTo:  assignee,
				Status:      api.StatusToDo,
			})
			return err
		},
		done:   func() { v.taskForm = TaskForm{} },
		reload: v.Load,
	})
}

// AddMember submits the member form.
func (v *ProjectDetail) AddMember(ctx context.Context) Result {
	eval, _, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	if !eval.CanManageProject() {
		return denied("Only the project owner can add members")
	}

	form := v.MemberForm()
	if form.UserID == 0 {
		return invalid("user_id", "Select a user to add")
	}

	return v.run(ctx, mutation{
		action: "add_member",
		failureFor: func(err error) string {
			if errors.Is(err, api.ErrRejected) {
				return msgDuplicateMember
			}
			return msgAddMember
		},
		send: func(ctx context.Context) error {
			_, err := v.gw.AddMember(ctx, v.projectID, form.UserID)
			return err
		},
		done: func() {
			v.memberForm = MemberForm{}
			v.errMsg = ""
		},
		reload: v.Load,
	})
}

// RemoveMember removes userID after confirmation. The server unassigns the
// member's tasks.
func (v *ProjectDetail) RemoveMember(ctx context.Context, userID int) Result {
	eval, _, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	if !eval.CanManageProject() {
		return denied("Only the project owner can remove members")
	}
	if !v.confirmed(confirmRemoveMember) {
		return Result{Outcome: Cancelled}
	}

	return v.run(ctx, mutation{
		action:  "remove_member",
		failure: msgRemoveMember,
		send: func(ctx context.Context) error {
			_, err := v.gw.RemoveMember(ctx, v.projectID, userID)
			return err
		},
		reload: v.Load,
	})
}

// ChangeStatus moves a task to another column. Only its assignee or the
// project owner may do so.
func (v *ProjectDetail) ChangeStatus(ctx context.Context, taskID int, status api.Status) Result {
	_, b, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	if !status.Valid() {
		return invalid("status", "Unknown status "+string(status))
	}
	card, found := b.Card(taskID)
	if !found {
		return invalid("task", "Task not found")
	}
	if !card.CanEdit {
		return denied("Only the assignee or the project owner can change this task")
	}

	return v.run(ctx, mutation{
		action:  "update_status",
		failure: msgUpdateStatus,
		send: func(ctx context.Context) error {
			_, err := v.gw.UpdateTask(ctx, taskID, api.UpdateTaskInput{Status: &status})
			return err
		},
		reload: v.Load,
	})
}

// Assign sets a task's assignee. userID of 0 clears it.
func (v *ProjectDetail) Assign(ctx context.Context, taskID, userID int) Result {
	eval, b, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	card, found := b.Card(taskID)
	if !found {
		return invalid("task", "Task not found")
	}
	if !card.CanAssign {
		return denied("Only the project owner can assign tasks")
	}
	assignment := api.Unassign()
	if userID != 0 {
		if !eval.IsAssignable(userID) {
			return invalid("assigned_to", "Assignee must be the project owner or a member")
		}
		assignment = api.AssignTo(userID)
	}

	return v.run(ctx, mutation{
		action:  "assign_task",
		failure: msgUpdateAssignee,
		send: func(ctx context.Context) error {
			_, err := v.gw.UpdateTask(ctx, taskID, api.UpdateTaskInput{AssignedTo: assignment})
			return err
		},
		reload: v.Load,
	})
}

// DeleteTask deletes a task after confirmation.
func (v *ProjectDetail) DeleteTask(ctx context.Context, taskID int) Result {
	_, b, ok := v.snapshot()
	if !ok {
		return notLoaded
	}
	card, found := b.Card(taskID)
	if !found {
		return invalid("task", "Task not found")
	}
	if !card.CanEdit {
		return denied("Only the assignee or the project owner can delete this task")
	}
	if !v.confirmed(confirmDeleteTask) {
		return Result{Outcome: Cancelled}
	}

	return v.run(ctx, mutation{
		action:  "delete_task",
		failure: msgDeleteTask,
		send: func(ctx context.Context) error {
			return v.gw.DeleteTask(ctx, taskID)
		},
		reload: v.Load,
	})
}
