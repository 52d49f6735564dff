package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecgard/taskflow/internal/backendtest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cli struct {
	t   *testing.T
	srv *backendtest.Server
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	t.Setenv("TASKFLOW_API_URL", srv.URL)
	t.Setenv("TASKFLOW_STORAGE_PATH", filepath.Join(t.TempDir(), "taskflow.db"))
	t.Setenv("TASKFLOW_LOG_LEVEL", "error")
	return &cli{t: t, srv: srv}
}

// resetFlags restores every flag to its default so runs do not leak into
// each other through the package-level flag variables.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (c *cli) runWithInput(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	out, _, err := c.runWithInput("", args...)
	return out, err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("taskflow %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (c *cli) login(email string) {
	c.t.Helper()
	c.mustRun("login", "--email", email, "--password", "pw")
}

type fixture struct {
	owner, bob, carol backendtest.User
	project           backendtest.Project
}

func (c *cli) seed() fixture {
	var f fixture
	f.owner = c.srv.AddUser("Alice Owner", "alice@x.com", "pw")
	f.bob = c.srv.AddUser("Bob", "bob@x.com", "pw")
	f.carol = c.srv.AddUser("Carol", "carol@x.com", "pw")
	f.project = c.srv.AddProject("Apollo", f.owner.ID, f.bob.ID)
	return f
}

func id(n int) string { return strconv.Itoa(n) }

func TestVersion(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("version")
	if out != "taskflow v"+version+"\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestSignupLogsIn(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("signup", "--name", "Dana", "--email", "dana@x.com", "--password", "pw")
	if !strings.Contains(out, "Registered and logged in as Dana <dana@x.com>") {
		t.Errorf("unexpected signup output %q", out)
	}

	out = c.mustRun("whoami")
	if !strings.Contains(out, "Dana <dana@x.com>") {
		t.Errorf("expected whoami to show Dana, got %q", out)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	c := newCLI(t)
	c.seed()

	_, err := c.run("signup", "--name", "Again", "--email", "alice@x.com", "--password", "pw")
	if err == nil || !strings.Contains(err.Error(), "Email already registered") {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newCLI(t)
	c.seed()

	_, err := c.run("login", "--email", "alice@x.com", "--password", "nope")
	if err == nil || !strings.Contains(err.Error(), "Incorrect email or password") {
		t.Fatalf("expected login failure, got %v", err)
	}
	if _, err := c.run("whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("expected not logged in after failed login, got %v", err)
	}
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	c := newCLI(t)
	c.seed()

	out, stderr, err := c.runWithInput("pw\n", "login", "--email", "bob@x.com")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(stderr, "Password: ") {
		t.Errorf("expected password prompt on stderr, got %q", stderr)
	}
	if !strings.Contains(out, "Logged in as bob@x.com") {
		t.Errorf("unexpected login output %q", out)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	c := newCLI(t)
	f := c.seed()

	for _, args := range [][]string{
		{"whoami"},
		{"projects", "list"},
		{"projects", "show", id(f.project.ID)},
	} {
		if _, err := c.run(args...); !errors.Is(err, errNotLoggedIn) {
			t.Errorf("%v: expected errNotLoggedIn, got %v", args, err)
		}
	}
	if n := len(c.srv.Requests()); n != 0 {
		t.Errorf("expected no backend requests without a credential, got %d", n)
	}
}

func TestLogout(t *testing.T) {
	c := newCLI(t)
	c.seed()
	c.login("alice@x.com")

	if out := c.mustRun("logout"); !strings.Contains(out, "Logged out.") {
		t.Errorf("unexpected logout output %q", out)
	}
	if _, err := c.run("projects", "list"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("expected errNotLoggedIn after logout, got %v", err)
	}
}

func TestProjectsListShowsRoles(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.srv.AddProject("Hermes", f.bob.ID)
	c.srv.AddProject("Private", f.carol.ID)
	c.login("bob@x.com")

	out := c.mustRun("projects", "list")
	if !strings.Contains(out, "Apollo") || !strings.Contains(out, "Hermes") {
		t.Fatalf("expected Apollo and Hermes, got %q", out)
	}
	if strings.Contains(out, "Private") {
		t.Errorf("expected Private to be hidden, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Apollo") && !strings.Contains(line, "Member"):
			t.Errorf("expected Member role for Apollo: %q", line)
		case strings.Contains(line, "Hermes") && !strings.Contains(line, "Owner"):
			t.Errorf("expected Owner role for Hermes: %q", line)
		}
	}
}

func TestProjectsCreate(t *testing.T) {
	c := newCLI(t)
	c.seed()
	c.login("carol@x.com")

	out := c.mustRun("projects", "create", "--name", "Gemini", "--description", "second stage")
	if !strings.Contains(out, `Created project "Gemini".`) {
		t.Errorf("unexpected create output %q", out)
	}
	if !strings.Contains(out, "Gemini") || !strings.Contains(out, "Owner") {
		t.Errorf("expected the refreshed list to show Gemini as owned, got %q", out)
	}

	if _, err := c.run("projects", "create", "--name", "  "); err == nil || !strings.Contains(err.Error(), "Project name is required") {
		t.Errorf("expected name validation error, got %v", err)
	}
}

func TestProjectsShow(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.srv.AddTask(f.project.ID, "Design", "to-do", f.bob.ID)
	c.srv.AddTask(f.project.ID, "Build", "in-progress", 0)
	c.login("bob@x.com")

	out := c.mustRun("projects", "show", id(f.project.ID))
	for _, want := range []string{
		"Apollo (#" + id(f.project.ID) + ")",
		"your role: Member",
		"Team Members (2)",
		"alice@x.com",
		"To Do (1)",
		"In Progress (1)",
		"Done (0)",
		"Design  [My Task]",
		"Unassigned",
		"status: [to-do] in-progress done\n",
		"status: to-do [in-progress] done (read-only)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestProjectsShowForbidden(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("carol@x.com")

	_, err := c.run("projects", "show", id(f.project.ID))
	if err == nil || !strings.Contains(err.Error(), "Failed to load project") {
		t.Fatalf("expected load failure, got %v", err)
	}
	if _, err := c.run("whoami"); err != nil {
		t.Errorf("a 403 must not end the session: %v", err)
	}
}

func TestMembersAddAndRemove(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("alice@x.com")

	out := c.mustRun("members", "add", id(f.project.ID), "carol@x.com")
	if !strings.Contains(out, "Added Carol to Apollo.") {
		t.Errorf("unexpected add output %q", out)
	}
	if p, _ := c.srv.Project(f.project.ID); len(p.Members) != 2 {
		t.Errorf("expected 2 members, got %v", p.Members)
	}

	_, err := c.run("members", "add", id(f.project.ID), id(f.carol.ID))
	if err == nil || !strings.Contains(err.Error(), "Make sure they're not already a member.") {
		t.Errorf("expected duplicate member hint, got %v", err)
	}

	task := c.srv.AddTask(f.project.ID, "Wire", "to-do", f.carol.ID)
	out = c.mustRun("members", "remove", id(f.project.ID), "carol@x.com", "--yes")
	if !strings.Contains(out, "Removed Carol from Apollo.") {
		t.Errorf("unexpected remove output %q", out)
	}
	if tk, _ := c.srv.Task(task.ID); tk.AssignedTo != nil {
		t.Errorf("expected removed member's task to be unassigned, got %v", *tk.AssignedTo)
	}
}

func TestMembersRemoveNonMember(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("alice@x.com")

	_, err := c.run("members", "remove", id(f.project.ID), "carol@x.com", "--yes")
	if err == nil || !strings.Contains(err.Error(), "Carol is not a member of Apollo") {
		t.Fatalf("expected not-a-member error, got %v", err)
	}
	if n := c.srv.Count("DELETE", "/projects/"+id(f.project.ID)+"/members/"+id(f.carol.ID)); n != 0 {
		t.Errorf("expected no DELETE for a non-member, got %d", n)
	}
}

func TestMembersRemoveDeclined(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("alice@x.com")

	out, stderr, err := c.runWithInput("n\n", "members", "remove", id(f.project.ID), "bob@x.com")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(stderr, "Are you sure you want to remove this member? [y/N]") {
		t.Errorf("expected confirmation prompt, got %q", stderr)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("expected Cancelled, got %q", out)
	}
	if n := c.srv.Count("DELETE", "/projects/"+id(f.project.ID)+"/members/"+id(f.bob.ID)); n != 0 {
		t.Errorf("expected no DELETE after declining, got %d", n)
	}
}

func TestMembersAddDeniedForMember(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("bob@x.com")

	_, err := c.run("members", "add", id(f.project.ID), "carol@x.com")
	if err == nil || !strings.Contains(err.Error(), "Only the project owner can add members") {
		t.Fatalf("expected denial, got %v", err)
	}
	if n := c.srv.Count("POST", "/projects/"+id(f.project.ID)+"/members/"+id(f.carol.ID)); n != 0 {
		t.Errorf("expected no POST for a denied command, got %d", n)
	}
}

func TestTaskLifecycle(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("alice@x.com")

	out := c.mustRun("tasks", "create", id(f.project.ID), "--name", "Design", "--assign", "bob@x.com")
	if !strings.Contains(out, `Created task "Design" in To Do.`) {
		t.Errorf("unexpected create output %q", out)
	}

	show := c.mustRun("projects", "show", id(f.project.ID))
	if !strings.Contains(show, "To Do (1)") || !strings.Contains(show, "Bob <bob@x.com>") {
		t.Fatalf("expected the new task in To Do assigned to Bob:\n%s", show)
	}

	var taskID int
	for n := 1; n < 100; n++ {
		if tk, ok := c.srv.Task(n); ok && tk.Name == "Design" {
			taskID = tk.ID
			break
		}
	}
	if taskID == 0 {
		t.Fatal("created task not found on the server")
	}

	c.mustRun("tasks", "status", id(f.project.ID), id(taskID), "in-progress")
	if tk, _ := c.srv.Task(taskID); tk.Status != "in-progress" {
		t.Errorf("expected in-progress, got %s", tk.Status)
	}

	c.mustRun("tasks", "assign", id(f.project.ID), id(taskID), "0")
	if tk, _ := c.srv.Task(taskID); tk.AssignedTo != nil {
		t.Errorf("expected task to be unassigned, got %d", *tk.AssignedTo)
	}

	out = c.mustRun("tasks", "delete", id(f.project.ID), id(taskID), "--yes")
	if !strings.Contains(out, "Deleted task #"+id(taskID)+".") {
		t.Errorf("unexpected delete output %q", out)
	}
	if _, ok := c.srv.Task(taskID); ok {
		t.Error("expected task to be deleted")
	}
}

func TestTaskCommandValidation(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	task := c.srv.AddTask(f.project.ID, "Design", "to-do", 0)
	c.login("alice@x.com")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing name", []string{"tasks", "create", id(f.project.ID)}, "Task name is required"},
		{"assignee not in project", []string{"tasks", "create", id(f.project.ID), "--name", "X", "--assign", "carol@x.com"}, "Assignee must be the project owner or a member"},
		{"unknown status", []string{"tasks", "status", id(f.project.ID), id(task.ID), "blocked"}, "Unknown status blocked"},
		{"unknown task", []string{"tasks", "status", id(f.project.ID), "9999", "done"}, "Task not found"},
		{"bad task id", []string{"tasks", "delete", id(f.project.ID), "abc"}, `invalid task id "abc"`},
		{"unknown user", []string{"tasks", "assign", id(f.project.ID), id(task.ID), "nobody@x.com"}, `no user with email "nobody@x.com"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
	if n := c.srv.Count("POST", "/tasks/"); n != 0 {
		t.Errorf("expected no task POSTs for invalid input, got %d", n)
	}
}

func TestTaskDeleteDeclined(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	task := c.srv.AddTask(f.project.ID, "Design", "to-do", 0)
	c.login("alice@x.com")

	out, _, err := c.runWithInput("\n", "tasks", "delete", id(f.project.ID), id(task.ID))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("expected Cancelled, got %q", out)
	}
	if _, ok := c.srv.Task(task.ID); !ok {
		t.Error("expected task to survive a declined delete")
	}
}

func TestRejectedCredentialEndsSession(t *testing.T) {
	c := newCLI(t)
	c.seed()
	c.login("alice@x.com")

	c.srv.FailNext("GET", "/projects/", 401)
	_, err := c.run("projects", "list")
	if !errors.Is(err, errSessionExpired) {
		t.Fatalf("expected errSessionExpired, got %v", err)
	}
	if _, err := c.run("projects", "list"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("expected the credential to be cleared, got %v", err)
	}
}

func TestMutationUnauthorizedEndsSession(t *testing.T) {
	c := newCLI(t)
	f := c.seed()
	c.login("alice@x.com")

	c.srv.FailNext("POST", "/tasks/", 401)
	_, err := c.run("tasks", "create", id(f.project.ID), "--name", "X")
	if err == nil || !strings.Contains(err.Error(), "Failed to create task") {
		t.Fatalf("expected create failure, got %v", err)
	}
	if _, err := c.run("whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("expected the credential to be cleared, got %v", err)
	}
}

func TestStatsFlag(t *testing.T) {
	c := newCLI(t)
	c.seed()
	c.login("alice@x.com")

	_, stderr, err := c.runWithInput("", "--stats", "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	start := strings.Index(stderr, "{")
	if start < 0 {
		t.Fatalf("expected a JSON summary on stderr, got %q", stderr)
	}
	var summary struct {
		API struct {
			TotalRequests float64 `json:"totalRequests"`
		} `json:"api"`
	}
	if err := json.Unmarshal([]byte(stderr[start:]), &summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.API.TotalRequests != 2 {
		t.Errorf("expected 2 requests (projects and users), got %v", summary.API.TotalRequests)
	}
}
