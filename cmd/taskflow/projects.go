package main

import (
	"context"
	"fmt"

	"github.com/alecgard/taskflow/internal/view"
	"github.com/spf13/cobra"
)

var (
	projectName        string
	projectDescription string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List, create and inspect projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the projects you own or belong to",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProjectsList),
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project owned by you",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProjectsCreate),
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project's members and task board",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runProjectsShow),
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectsCreateCmd.Flags().StringVar(&projectDescription, "description", "", "project description")

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsShowCmd)
	rootCmd.AddCommand(projectsCmd)
}

func (a *app) dashboard(ctx context.Context) (*view.Dashboard, error) {
	if err := a.requireLogin(ctx); err != nil {
		return nil, err
	}
	d := view.NewDashboard(a.client, a.session, a.logger)
	if err := d.Load(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Error(), loadErr(err))
	}
	return d, nil
}

func runProjectsList(ctx context.Context, a *app, _ []string) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	return renderProjects(a.out, d.Projects())
}

func runProjectsCreate(ctx context.Context, a *app, _ []string) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	d.SetProjectForm(view.ProjectForm{Name: projectName, Description: projectDescription, Open: true})
	res := d.CreateProject(ctx)
	if err := a.report(res, fmt.Sprintf("Created project %q.", projectName)); err != nil {
		return err
	}
	if res.OK() {
		return renderProjects(a.out, d.Projects())
	}
	return nil
}

// projectDetail loads the detail view for the project named by arg.
func (a *app) projectDetail(ctx context.Context, arg string, confirm view.Confirmer) (*view.ProjectDetail, error) {
	id, err := parseID("project", arg)
	if err != nil {
		return nil, err
	}
	if err := a.requireLogin(ctx); err != nil {
		return nil, err
	}
	d := view.NewProjectDetail(id, a.client, a.session, confirm, a.logger)
	if err := d.Load(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Error(), loadErr(err))
	}
	return d, nil
}

func runProjectsShow(ctx context.Context, a *app, args []string) error {
	d, err := a.projectDetail(ctx, args[0], nil)
	if err != nil {
		return err
	}
	return renderProjectDetail(a.out, d)
}
