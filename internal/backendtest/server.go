// Package backendtest runs an in-memory TaskFlow backend for tests. It
// implements the REST contract the client consumes, including the owner and
// member authorization rules, on a chi router inside an httptest.Server.
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// SigningKey signs the tokens issued by /login.
const SigningKey = "backendtest-signing-key"

// timeLayout matches the zone-less datetimes the real backend emits.
const timeLayout = "2006-01-02T15:04:05.000000"

// User is a directory entry.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	password string
}

// Project is a stored project.
type Project struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OwnerID     int     `json:"owner_id"`
	Members     []int   `json:"members"`
	Deadline    *string `json:"deadline"`
	CreatedAt   string  `json:"created_at"`
}

func (p *Project) hasMember(id int) bool {
	for _, m := range p.Members {
		if m == id {
			return true
		}
	}
	return false
}

func (p *Project) canView(userID int) bool {
	return p.OwnerID == userID || p.hasMember(userID)
}

// Task is a stored task.
type Task struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ProjectID   int     `json:"project_id"`
	AssignedTo  *int    `json:"assigned_to"`
	Status      string  `json:"status"`
	Deadline    *string `json:"deadline"`
	CreatedAt   string  `json:"created_at"`
}

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type failure struct {
	method string
	path   string
	status int
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    []*User
	projects []*Project
	tasks    []*Task
	nextID   int
	requests []Request
	failures []failure
}

// New starts a fake backend. Callers must Close it.
func New() *Server {
	s := &Server{nextID: 1}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Post("/login", s.login)
	r.Post("/users/", s.createUser)

	r.Group(func(ar chi.Router) {
		ar.Use(s.authenticate)

		ar.Get("/users/", s.listUsers)

		ar.Get("/projects/", s.listProjects)
		ar.Post("/projects/", s.createProject)
		ar.Get("/projects/{id}", s.getProject)
		ar.Post("/projects/{id}/members/{userID}", s.addMember)
		ar.Delete("/projects/{id}/members/{userID}", s.removeMember)

		ar.Get("/tasks/", s.listTasks)
		ar.Post("/tasks/", s.createTask)
		ar.Put("/tasks/{id}", s.updateTask)
		ar.Delete("/tasks/{id}", s.deleteTask)
	})

	return r
}

// AddUser seeds a user and returns it.
func (s *Server) AddUser(name, email, password string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: s.id(), Name: name, Email: email, Role: "member", password: password}
	s.users = append(s.users, u)
	return *u
}

// AddProject seeds a project owned by ownerID.
func (s *Server) AddProject(name string, ownerID int, members ...int) Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members == nil {
		members = []int{}
	}
	p := &Project{
		ID:        s.id(),
		Name:      name,
		OwnerID:   ownerID,
		Members:   append([]int(nil), members...),
		CreatedAt: now(),
	}
	s.projects = append(s.projects, p)
	return *p
}

// AddTask seeds a task. assignedTo of 0 leaves it unassigned.
func (s *Server) AddTask(projectID int, name, status string, assignedTo int) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Task{ID: s.id(), Name: name, ProjectID: projectID, Status: status, CreatedAt: now()}
	if assignedTo != 0 {
		t.AssignedTo = &assignedTo
	}
	s.tasks = append(s.tasks, t)
	return *t
}

// Project returns a snapshot of a stored project.
func (s *Server) Project(id int) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProject(id)
	if p == nil {
		return Project{}, false
	}
	cp := *p
	cp.Members = append([]int(nil), p.Members...)
	return cp, true
}

// Task returns a snapshot of a stored task.
func (s *Server) Task(id int) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTask(id)
	if t == nil {
		return Task{}, false
	}
	return *t, true
}

// TokenFor issues a signed credential whose subject is email.
func (s *Server) TokenFor(email string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(30 * time.Minute).Unix(),
	})
	signed, err := tok.SignedString([]byte(SigningKey))
	if err != nil {
		panic(fmt.Sprintf("backendtest: signing token: %v", err))
	}
	return signed
}

// FailNext makes the next request matching method and path fail with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// id returns the next ID. Must be called with s.mu held.
func (s *Server) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) findUserByEmail(email string) *User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *Server) findUser(id int) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) findProject(id int) *Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) findTask(id int) *Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}
