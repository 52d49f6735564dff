package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/view"
	"github.com/spf13/cobra"
)

var removeMemberYes bool

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage project members",
}

var membersAddCmd = &cobra.Command{
	Use:   "add <project> <user>",
	Short: "Add a user, by id or email, to a project you own",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runMembersAdd),
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <project> <user>",
	Short: "Remove a member from a project you own; their tasks become unassigned",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runMembersRemove),
}

func init() {
	membersRemoveCmd.Flags().BoolVarP(&removeMemberYes, "yes", "y", false, "do not ask for confirmation")

	membersCmd.AddCommand(membersAddCmd, membersRemoveCmd)
	rootCmd.AddCommand(membersCmd)
}

// lookupUser resolves arg, a user id or an email address, in the directory.
func lookupUser(users []api.User, arg string) (api.User, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return api.User{}, fmt.Errorf("no user with id %d", id)
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, arg) {
			return u, nil
		}
	}
	return api.User{}, fmt.Errorf("no user with email %q", arg)
}

func runMembersAdd(ctx context.Context, a *app, args []string) error {
	d, err := a.projectDetail(ctx, args[0], nil)
	if err != nil {
		return err
	}
	u, err := lookupUser(d.Users(), args[1])
	if err != nil {
		return err
	}
	d.SetMemberForm(view.MemberForm{UserID: u.ID, Open: true})
	return a.report(d.AddMember(ctx), fmt.Sprintf("Added %s to %s.", u.Name, d.Project().Name))
}

func runMembersRemove(ctx context.Context, a *app, args []string) error {
	confirm := view.ConfirmFunc(a.prompts.confirmer(removeMemberYes))
	d, err := a.projectDetail(ctx, args[0], confirm)
	if err != nil {
		return err
	}
	u, err := lookupUser(d.Users(), args[1])
	if err != nil {
		return err
	}
	p := d.Project()
	if !p.HasMember(u.ID) {
		return fmt.Errorf("%s is not a member of %s", u.Name, p.Name)
	}
	return a.report(d.RemoveMember(ctx, u.ID), fmt.Sprintf("Removed %s from %s.", u.Name, p.Name))
}
