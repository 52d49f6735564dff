package view

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/membership"
	"golang.org/x/sync/errgroup"
)

// ProjectSummary is a project listed on the dashboard with the caller's role.
type ProjectSummary struct {
	Project api.Project
	Role    membership.Role
}

// ProjectForm is the new-project form.
type ProjectForm struct {
	Name        string
	Description string
	Open        bool
}

// Dashboard lists the caller's projects.
type Dashboard struct {
	base

	projects []ProjectSummary
	users    []api.User
	identity *int
	form     ProjectForm
	loaded   bool
}

// NewDashboard creates a Dashboard. Call Load before reading it.
func NewDashboard(gw Gateway, sess Session, logger *slog.Logger) *Dashboard {
	return &Dashboard{base: newBase(gw, sess, nil, logger)}
}

// Load fetches projects and the user directory concurrently. A directory
// failure only loses the role badges; a project failure fails the load.
func (d *Dashboard) Load(ctx context.Context) error {
	if d.isClosed() {
		return nil
	}

	var (
		projects []api.Project
		users    []api.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = d.gw.ListProjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = d.gw.ListUsers(gctx)
		if err != nil && !api.IsUnauthorized(err) {
			d.logger.Warn("failed to load users", "error", err)
			users = nil
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return d.loadFailed(ctx, "Failed to load projects", err)
	}

	identity := d.sess.Identity(ctx, users)
	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, ProjectSummary{Project: p, Role: membership.RoleOf(p, identity)})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.projects = summaries
	d.users = users
	d.identity = identity
	d.errMsg = ""
	d.loaded = true
	return nil
}

// Projects returns the loaded projects in server order.
func (d *Dashboard) Projects() []ProjectSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ProjectSummary(nil), d.projects...)
}

// Users returns the loaded user directory.
func (d *Dashboard) Users() []api.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]api.User(nil), d.users...)
}

// Identity returns the caller's user ID, or nil if unresolved.
func (d *Dashboard) Identity() *int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identity
}

// Loaded reports whether a Load has completed successfully.
func (d *Dashboard) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *Dashboard) ProjectForm() ProjectForm {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}

func (d *Dashboard) SetProjectForm(f ProjectForm) {
	d.mu.Lock()
	d.form = f
	d.mu.Unlock()
}

func (d *Dashboard) ToggleProjectForm() {
	d.mu.Lock()
	d.form.Open = !d.form.Open
	d.mu.Unlock()
}

// CreateProject submits the project form. The new project has no members.
func (d *Dashboard) CreateProject(ctx context.Context) Result {
	form := d.ProjectForm()
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return invalid("name", "Project name is required")
	}

	return d.run(ctx, mutation{
		action:  "create_project",
		failure: "Failed to create project",
		send: func(ctx context.Context) error {
			_, err := d.gw.CreateProject(ctx, api.CreateProjectInput{
				Name:        name,
				Description: form.Description,
				Members:     []int{},
			})
			return err
		},
		done:   func() { d.form = ProjectForm{} },
		reload: d.Load,
	})
}

// Logout ends the session and closes the view.
func (d *Dashboard) Logout(ctx context.Context) error {
	d.Close()
	return d.sess.End(ctx)
}
