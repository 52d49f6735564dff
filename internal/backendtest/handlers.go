package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	u := s.findUserByEmail(req.Email)
	s.mu.Unlock()
	if u == nil || u.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": s.TokenFor(u.Email),
		"token_type":   "bearer",
	})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "name, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUserByEmail(req.Email) != nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	role := req.Role
	if role == "" {
		role = "member"
	}
	u := &User{ID: s.id(), Name: req.Name, Email: req.Email, Role: role, password: req.Password}
	s.users = append(s.users, u)
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Project{}
	for _, p := range s.projects {
		if p.canView(caller.ID) {
			out = append(out, *p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Members     []int   `json:"members"`
		Deadline    *string `json:"deadline"`
	}
	if err := readJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if req.Members == nil {
		req.Members = []int{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Project{
		ID:          s.id(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     caller.ID,
		Members:     req.Members,
		Deadline:    req.Deadline,
		CreatedAt:   now(),
	}
	s.projects = append(s.projects, p)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProject(id)
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if !p.canView(caller.ID) {
		writeError(w, http.StatusForbidden, "Not authorized to view this project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// addMember rejects duplicates with 400. The production backend accepts them
// silently; the stricter rule lets tests drive the duplicate-member path.
func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := intParam(w, r, "userID")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProject(id)
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if p.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, "Only owner can add members")
		return
	}
	if s.findUser(userID) == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if userID == p.OwnerID || p.hasMember(userID) {
		writeError(w, http.StatusBadRequest, "User is already a member")
		return
	}
	p.Members = append(p.Members, userID)
	writeJSON(w, http.StatusOK, p)
}

// removeMember also unassigns the member's tasks in the project.
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := intParam(w, r, "userID")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProject(id)
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if p.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, "Only owner can remove members")
		return
	}
	if p.hasMember(userID) {
		kept := make([]int, 0, len(p.Members))
		for _, m := range p.Members {
			if m != userID {
				kept = append(kept, m)
			}
		}
		p.Members = kept
		for _, t := range s.tasks {
			if t.ProjectID == id && t.AssignedTo != nil && *t.AssignedTo == userID {
				t.AssignedTo = nil
			}
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())

	projectID := 0
	if v := r.URL.Query().Get("project_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "project_id must be an integer")
			return
		}
		projectID = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if projectID != 0 {
		p := s.findProject(projectID)
		if p == nil {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		if !p.canView(caller.ID) {
			writeError(w, http.StatusForbidden, "Not authorized to view tasks in this project")
			return
		}
	}

	out := []Task{}
	for _, t := range s.tasks {
		if projectID == 0 || t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())

	var req Task
	if err := readJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findProject(req.ProjectID)
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if p.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, "Only project owner can create tasks")
		return
	}
	if req.Status == "" {
		req.Status = "to-do"
	}
	t := &Task{
		ID:          s.id(),
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
		Deadline:    req.Deadline,
		CreatedAt:   now(),
	}
	s.tasks = append(s.tasks, t)
	writeJSON(w, http.StatusOK, t)
}

// updateTask applies only the fields present in the body. An explicit null
// assigned_to clears the assignee.
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := readJSON(r, &fields); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTask(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	p := s.findProject(t.ProjectID)
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	isAssignee := t.AssignedTo != nil && *t.AssignedTo == caller.ID
	if !isAssignee && p.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, "Not authorized to update this task")
		return
	}

	updated := *t
	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &updated.Name)
		case "description":
			err = json.Unmarshal(raw, &updated.Description)
		case "status":
			err = json.Unmarshal(raw, &updated.Status)
		case "deadline":
			err = json.Unmarshal(raw, &updated.Deadline)
		case "assigned_to":
			var assignee *int
			err = json.Unmarshal(raw, &assignee)
			updated.AssignedTo = assignee
		}
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid value for "+key)
			return
		}
	}
	*t = updated
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTask(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	p := s.findProject(t.ProjectID)
	if p == nil || p.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, "Only project owner can delete tasks")
		return
	}
	for i, existing := range s.tasks {
		if existing.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, name+" must be an integer")
		return 0, false
	}
	return n, true
}
