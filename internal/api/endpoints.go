package api

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges email and password for a bearer credential.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	var tok Token
	err := c.do(ctx, call{
		name: "login", failure: "Login failed",
		method: http.MethodPost, path: "/login",
	}, Credentials{Email: email, Password: password}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("Login failed: %w", ErrRequestFailed)
	}
	return &tok, nil
}

// CreateUser registers a new user. It does not require a credential.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	var u User
	err := c.do(ctx, call{
		name: "create_user", failure: "User creation failed",
		method: http.MethodPost, path: "/users/",
	}, in, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns the full user directory.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	err := c.do(ctx, call{
		name: "list_users", failure: "Failed to fetch users",
		method: http.MethodGet, path: "/users/", authed: true,
	}, nil, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListProjects returns the projects the caller owns or is a member of.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	projects := []Project{}
	err := c.do(ctx, call{
		name: "list_projects", failure: "Failed to fetch projects",
		method: http.MethodGet, path: "/projects/", authed: true,
	}, nil, &projects)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns a single project.
func (c *Client) GetProject(ctx context.Context, id int) (*Project, error) {
	var p Project
	err := c.do(ctx, call{
		name: "get_project", failure: "Failed to fetch project",
		method: http.MethodGet, path: fmt.Sprintf("/projects/%d", id), authed: true,
	}, nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, in CreateProjectInput) (*Project, error) {
	if in.Members == nil {
		in.Members = []int{}
	}
	var p Project
	err := c.do(ctx, call{
		name: "create_project", failure: "Failed to create project",
		method: http.MethodPost, path: "/projects/", authed: true,
	}, in, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddMember adds userID to the project's members and returns the updated project.
func (c *Client) AddMember(ctx context.Context, projectID, userID int) (*Project, error) {
	var p Project
	err := c.do(ctx, call{
		name: "add_member", failure: "Failed to add member",
		method: http.MethodPost, path: fmt.Sprintf("/projects/%d/members/%d", projectID, userID), authed: true,
	}, nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveMember removes userID from the project's members and returns the
// updated project.
func (c *Client) RemoveMember(ctx context.Context, projectID, userID int) (*Project, error) {
	var p Project
	err := c.do(ctx, call{
		name: "remove_member", failure: "Failed to remove member",
		method: http.MethodDelete, path: fmt.Sprintf("/projects/%d/members/%d", projectID, userID), authed: true,
	}, nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTasks returns all visible tasks, or only those of projectID when it is
// non-nil.
func (c *Client) ListTasks(ctx context.Context, projectID *int) ([]Task, error) {
	path := "/tasks/"
	if projectID != nil {
		path = fmt.Sprintf("/tasks/?project_id=%d", *projectID)
	}
	tasks := []Task{}
	err := c.do(ctx, call{
		name: "list_tasks", failure: "Failed to fetch tasks",
		method: http.MethodGet, path: path, authed: true,
	}, nil, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task. An empty status defaults to to-do.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	if in.Status == "" {
		in.Status = StatusToDo
	}
	var t Task
	err := c.do(ctx, call{
		name: "create_task", failure: "Failed to create task",
		method: http.MethodPost, path: "/tasks/", authed: true,
	}, in, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id int, in UpdateTaskInput) (*Task, error) {
	var t Task
	err := c.do(ctx, call{
		name: "update_task", failure: "Failed to update task",
		method: http.MethodPut, path: fmt.Sprintf("/tasks/%d", id), authed: true,
	}, in, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, call{
		name: "delete_task", failure: "Failed to delete task",
		method: http.MethodDelete, path: fmt.Sprintf("/tasks/%d", id), authed: true,
	}, nil, nil)
}
