package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/board"
	"github.com/alecgard/taskflow/internal/view"
	"github.com/spf13/cobra"
)

var (
	taskName        string
	taskDescription string
	taskAssign      string
	deleteTaskYes   bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Create, move, assign and delete tasks",
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create <project>",
	Short: "Create a task in the To Do column",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runTasksCreate),
}

var tasksStatusCmd = &cobra.Command{
	Use:   "status <project> <task> <to-do|in-progress|done>",
	Short: "Move a task to another column",
	Args:  cobra.ExactArgs(3),
	RunE:  withApp(runTasksStatus),
}

var tasksAssignCmd = &cobra.Command{
	Use:   "assign <project> <task> <user|0>",
	Short: "Assign a task to the owner or a member; 0 unassigns it",
	Args:  cobra.ExactArgs(3),
	RunE:  withApp(runTasksAssign),
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <project> <task>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runTasksDelete),
}

func init() {
	tasksCreateCmd.Flags().StringVar(&taskName, "name", "", "task name")
	tasksCreateCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	tasksCreateCmd.Flags().StringVar(&taskAssign, "assign", "", "assignee id or email")

	tasksDeleteCmd.Flags().BoolVarP(&deleteTaskYes, "yes", "y", false, "do not ask for confirmation")

	tasksCmd.AddCommand(tasksCreateCmd, tasksStatusCmd, tasksAssignCmd, tasksDeleteCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksCreate(ctx context.Context, a *app, args []string) error {
	d, err := a.projectDetail(ctx, args[0], nil)
	if err != nil {
		return err
	}
	form := view.TaskForm{Name: taskName, Description: taskDescription, Open: true}
	if taskAssign != "" && taskAssign != "0" {
		u, err := lookupUser(d.Users(), taskAssign)
		if err != nil {
			return err
		}
		form.AssignedTo = u.ID
	}
	d.SetTaskForm(form)
	return a.report(d.CreateTask(ctx), fmt.Sprintf("Created task %q in %s.", strings.TrimSpace(taskName), board.Title(api.StatusToDo)))
}

func runTasksStatus(ctx context.Context, a *app, args []string) error {
	taskID, err := parseID("task", args[1])
	if err != nil {
		return err
	}
	d, err := a.projectDetail(ctx, args[0], nil)
	if err != nil {
		return err
	}
	status := api.Status(args[2])
	return a.report(d.ChangeStatus(ctx, taskID, status), fmt.Sprintf("Moved task #%d to %s.", taskID, board.Title(status)))
}

func runTasksAssign(ctx context.Context, a *app, args []string) error {
	taskID, err := parseID("task", args[1])
	if err != nil {
		return err
	}
	d, err := a.projectDetail(ctx, args[0], nil)
	if err != nil {
		return err
	}
	if args[2] == "0" {
		return a.report(d.Assign(ctx, taskID, 0), fmt.Sprintf("Unassigned task #%d.", taskID))
	}
	u, err := lookupUser(d.Users(), args[2])
	if err != nil {
		return err
	}
	return a.report(d.Assign(ctx, taskID, u.ID), fmt.Sprintf("Assigned task #%d to %s.", taskID, u.Name))
}

func runTasksDelete(ctx context.Context, a *app, args []string) error {
	taskID, err := parseID("task", args[1])
	if err != nil {
		return err
	}
	confirm := view.ConfirmFunc(a.prompts.confirmer(deleteTaskYes))
	d, err := a.projectDetail(ctx, args[0], confirm)
	if err != nil {
		return err
	}
	return a.report(d.DeleteTask(ctx, taskID), fmt.Sprintf("Deleted task #%d.", taskID))
}
