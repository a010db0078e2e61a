// Package apitest is an in-memory IssueHub backend for tests. It follows the
// server's authorization rules closely enough to exercise client policies
// (401 handling, manager-only status changes, membership checks).
package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"issuehub-cli/internal/model"

	"github.com/go-chi/chi/v5"
)

// Request is a recorded inbound call.
type Request struct {
	Method        string
	Path          string
	ContentType   string
	Authorization string
	RequestID     string
	Body          string
}

type user struct {
	model.User
	password string
}

type Backend struct {
	mu sync.Mutex

	now    time.Time
	nextID int

	users    []user
	projects []model.Project
	members  []model.ProjectMember
	issues   []model.Issue
	comments []model.Comment

	requests []Request
	// failures maps "METHOD /path" to a forced status code (consumed once).
	failures map[string]int
	// gates holds requests on a path until the channel is closed.
	gates map[string]chan struct{}
}

func New() *Backend {
	return &Backend{
		now:      time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
		nextID:   1,
		failures: map[string]int{},
		gates:    map[string]chan struct{}{},
	}
}

// Start serves the backend on a local httptest server. Callers must Close it.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.Handler())
}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/auth/signup", b.handleSignup)
	r.Post("/auth/login", b.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/auth/me", b.handleMe)

		r.Get("/api/projects/", b.handleListProjects)
		r.Post("/api/projects/", b.handleCreateProject)
		r.Get("/api/projects/{projectID}/issues", b.handleListIssues)
		r.Post("/api/projects/{projectID}/issues", b.handleCreateIssue)
		r.Get("/api/projects/{projectID}/members", b.handleListMembers)
		r.Post("/api/projects/{projectID}/members", b.handleAddMember)

		r.Get("/api/issues/{issueID}", b.handleGetIssue)
		r.Patch("/api/issues/{issueID}", b.handlePatchIssue)
		r.Get("/api/issues/{issueID}/comments", b.handleListComments)
		r.Post("/api/issues/{issueID}/comments", b.handleCreateComment)
	})
	return r
}

// TokenFor returns a valid access token for userID.
func TokenFor(userID int) string { return "tok-" + strconv.Itoa(userID) }

// FailNext makes the next request matching method+path return status.
func (b *Backend) FailNext(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = status
}

// Hold blocks requests on method+path until the returned release func is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[method+" "+path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gates, method+" "+path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestCount counts recorded requests matching method and path.
func (b *Backend) RequestCount(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) SeedUser(name, email, password string) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, password)
}

// SeedProject creates a project whose owner becomes its manager.
func (b *Backend) SeedProject(ownerID int, name, key string) model.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addProjectLocked(ownerID, name, key, nil)
}

func (b *Backend) SeedMember(projectID, userID int, role model.Role) model.ProjectMember {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addMemberLocked(projectID, userID, role)
}

func (b *Backend) SeedIssue(projectID, reporterID int, title string, priority model.Priority) model.Issue {
	b.mu.Lock()
	defer b.mu.Unlock()
	is := model.Issue{
		ID:         b.idLocked(),
		ProjectID:  projectID,
		Title:      title,
		Status:     model.StatusOpen,
		Priority:   priority,
		ReporterID: reporterID,
		CreatedAt:  model.NewTimestamp(b.now),
	}
	b.issues = append(b.issues, is)
	return is
}

func (b *Backend) SeedComment(issueID, authorID int, body string) model.Comment {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := model.Comment{ID: b.idLocked(), IssueID: issueID, AuthorID: authorID, Body: body, CreatedAt: model.NewTimestamp(b.now)}
	b.comments = append(b.comments, c)
	return c
}

func (b *Backend) Issue(id int) (model.Issue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, is := range b.issues {
		if is.ID == id {
			return is, true
		}
	}
	return model.Issue{}, false
}

func (b *Backend) idLocked() int {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Backend) addUserLocked(name, email, password string) model.User {
	u := user{
		User:     model.User{ID: b.idLocked(), Name: name, Email: email, CreatedAt: model.NewTimestamp(b.now)},
		password: password,
	}
	b.users = append(b.users, u)
	return u.User
}

func (b *Backend) addProjectLocked(ownerID int, name, key string, desc *string) model.Project {
	created := model.NewTimestamp(b.now)
	p := model.Project{ID: b.idLocked(), Name: name, Key: key, Description: desc, CreatedAt: &created}
	b.projects = append(b.projects, p)
	b.addMemberLocked(p.ID, ownerID, model.RoleManager)
	return p
}

func (b *Backend) addMemberLocked(projectID, userID int, role model.Role) model.ProjectMember {
	m := model.ProjectMember{ID: b.idLocked(), ProjectID: projectID, UserID: userID, Role: role, JoinedAt: model.NewTimestamp(b.now)}
	b.members = append(b.members, m)
	return m
}

func (b *Backend) memberLocked(projectID, userID int) (model.ProjectMember, bool) {
	for _, m := range b.members {
		if m.ProjectID == projectID && m.UserID == userID {
			return m, true
		}
	}
	return model.ProjectMember{}, false
}

type ctxKey struct{}

func withUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func userFrom(r *http.Request) model.User {
	u, _ := r.Context().Value(ctxKey{}).(model.User)
	return u
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := ""
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
		}
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			ContentType:   r.Header.Get("Content-Type"),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		status, fail := b.failures[key]
		if fail {
			delete(b.failures, key)
		}
		gate := b.gates[key]
		b.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if fail {
			writeDetail(w, status, "forced failure")
			return
		}
		r.Body = io.NopCloser(strings.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		id, err := strconv.Atoi(strings.TrimPrefix(tok, "tok-"))
		if err != nil || !strings.HasPrefix(tok, "tok-") {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		b.mu.Lock()
		var found *model.User
		for i := range b.users {
			if b.users[i].ID == id {
				u := b.users[i].User
				found = &u
			}
		}
		b.mu.Unlock()
		if found == nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), *found)))
	})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid signup payload")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == in.Email {
			writeDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	writeJSON(w, http.StatusOK, b.addUserLocked(in.Name, in.Email, in.Password))
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		writeDetail(w, http.StatusUnprocessableEntity, "form body required")
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == email && u.password == password {
			writeJSON(w, http.StatusOK, map[string]string{"access_token": TokenFor(u.ID), "token_type": "bearer"})
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r))
}

func (b *Backend) handleListProjects(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.Project{}
	for _, p := range b.projects {
		if _, ok := b.memberLocked(p.ID, me.ID); ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r)
	var in struct {
		Name        string  `json:"name"`
		Key         string  `json:"key"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Key == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name and key are required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.projects {
		if p.Key == in.Key {
			writeDetail(w, http.StatusBadRequest, "Project with this key already exists")
			return
		}
	}
	writeJSON(w, http.StatusOK, b.addProjectLocked(me.ID, in.Name, in.Key, in.Description))
}

func (b *Backend) handleListIssues(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathInt(w, r, "projectID")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requireMemberLocked(w, pid, userFrom(r).ID) {
		return
	}
	out := []model.Issue{}
	for _, is := range b.issues {
		if is.ProjectID == pid {
			out = append(out, is)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathInt(w, r, "projectID")
	if !ok {
		return
	}
	var in struct {
		Title       string         `json:"title"`
		Description *string        `json:"description"`
		Priority    model.Priority `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" || !in.Priority.Valid() {
		writeDetail(w, http.StatusUnprocessableEntity, "title and priority are required")
		return
	}
	me := userFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requireMemberLocked(w, pid, me.ID) {
		return
	}
	is := model.Issue{
		ID:          b.idLocked(),
		ProjectID:   pid,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusOpen,
		Priority:    in.Priority,
		ReporterID:  me.ID,
		CreatedAt:   model.NewTimestamp(b.now),
	}
	b.issues = append(b.issues, is)
	writeJSON(w, http.StatusOK, is)
}

func (b *Backend) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	iid, ok := pathInt(w, r, "issueID")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.issueIndexLocked(iid)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	if !b.requireMemberLocked(w, b.issues[idx].ProjectID, userFrom(r).ID) {
		return
	}
	writeJSON(w, http.StatusOK, b.issues[idx])
}

func (b *Backend) handlePatchIssue(w http.ResponseWriter, r *http.Request) {
	iid, ok := pathInt(w, r, "issueID")
	if !ok {
		return
	}
	var in struct {
		Status *model.IssueStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || (in.Status != nil && !in.Status.Valid()) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}
	me := userFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.issueIndexLocked(iid)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	m, member := b.memberLocked(b.issues[idx].ProjectID, me.ID)
	if !member {
		writeDetail(w, http.StatusForbidden, "Not a member of this project")
		return
	}
	if in.Status != nil {
		if m.Role != model.RoleManager {
			writeDetail(w, http.StatusForbidden, "Only project managers can change status, assignee, or priority")
			return
		}
		b.issues[idx].Status = *in.Status
	}
	writeJSON(w, http.StatusOK, b.issues[idx])
}

func (b *Backend) handleListComments(w http.ResponseWriter, r *http.Request) {
	iid, ok := pathInt(w, r, "issueID")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.issueIndexLocked(iid)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	if !b.requireMemberLocked(w, b.issues[idx].ProjectID, userFrom(r).ID) {
		return
	}
	out := []model.Comment{}
	for _, c := range b.comments {
		if c.IssueID == iid {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	iid, ok := pathInt(w, r, "issueID")
	if !ok {
		return
	}
	var in struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "body is required")
		return
	}
	me := userFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.issueIndexLocked(iid)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Issue not found")
		return
	}
	if !b.requireMemberLocked(w, b.issues[idx].ProjectID, me.ID) {
		return
	}
	c := model.Comment{ID: b.idLocked(), IssueID: iid, AuthorID: me.ID, Body: in.Body, CreatedAt: model.NewTimestamp(b.now)}
	b.comments = append(b.comments, c)
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) handleListMembers(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathInt(w, r, "projectID")
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requireMemberLocked(w, pid, userFrom(r).ID) {
		return
	}
	out := []model.ProjectMember{}
	for _, m := range b.members {
		if m.ProjectID == pid {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleAddMember(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathInt(w, r, "projectID")
	if !ok {
		return
	}
	var in struct {
		Email string     `json:"email"`
		Role  model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || !in.Role.Valid() {
		writeDetail(w, http.StatusUnprocessableEntity, "email and role are required")
		return
	}
	me := userFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.requireMemberLocked(w, pid, me.ID) {
		return
	}
	for _, u := range b.users {
		if u.Email == in.Email {
			writeJSON(w, http.StatusOK, b.addMemberLocked(pid, u.ID, in.Role))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (b *Backend) requireMemberLocked(w http.ResponseWriter, projectID, userID int) bool {
	if _, ok := b.memberLocked(projectID, userID); !ok {
		writeDetail(w, http.StatusForbidden, "Not a member of this project")
		return false
	}
	return true
}

func (b *Backend) issueIndexLocked(id int) int {
	for i := range b.issues {
		if b.issues[i].ID == id {
			return i
		}
	}
	return -1
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
