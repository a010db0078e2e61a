// Package workspace keeps the workspace view state consistent with the
// backend: selection, the collections that depend on it, and the merge of
// mutation responses.
//
// Every operation has two halves. The begin step (Hydrate, SelectProject,
// CreateIssue, ...) mutates state synchronously and returns an Effect that
// only performs network calls. Apply merges the Effect's Result. Both halves
// run on the caller's single event loop; only Effects run elsewhere.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/model"

	"golang.org/x/sync/errgroup"
)

// ErrNotMaintainer is returned when a status change is attempted while the
// maintainer gate is closed.
var ErrNotMaintainer = errors.New("status changes require the maintainer role")

// ErrNoSelection is returned when an operation needs a selected project.
var ErrNoSelection = errors.New("no project selected")

type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string { return fmt.Sprintf("%s is required", e.Field) }

// Effect is the network half of an operation.
type Effect func(ctx context.Context) Result

type Synchronizer struct {
	State

	res    Resources
	userID int
	log    *slog.Logger

	// Bumped on every selection; results carrying an older value are stale.
	projectGen uint64
	issueGen   uint64
}

func New(res Resources, userID int, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Synchronizer{res: res, userID: userID, log: log.With("component", "workspace")}
	s.IssueDraft = NewIssueDraft()
	s.MemberDraft = NewMemberDraft()
	return s
}

func (s *Synchronizer) UserID() int { return s.userID }

// Failed reports whether the initial load failed and the workspace halted.
func (s *Synchronizer) Failed() bool { return s.PageErr != "" }

// CanChangeStatus is the maintainer gate for the current selection.
func (s *Synchronizer) CanChangeStatus() bool {
	return IsMaintainer(s.SelectedProject, s.Members, s.userID)
}

// Hydrate loads the project collection for the current user.
func (s *Synchronizer) Hydrate() Effect {
	s.Loading = true
	s.PageErr = ""
	projects := s.res.Projects
	return func(ctx context.Context) Result {
		ps, err := projects.List(ctx)
		return projectsLoaded{projects: ps, err: err}
	}
}

// SelectProject selects p, drops everything scoped to the previous project,
// and loads p's issues and members concurrently.
func (s *Synchronizer) SelectProject(p model.Project) Effect {
	s.projectGen++
	s.issueGen++
	sel := p
	s.SelectedProject = &sel
	s.Issues = nil
	s.SelectedIssue = nil
	s.Comments = nil
	s.Members = nil
	s.ProjectLoading = true
	s.CommentsLoading = false

	gen := s.projectGen
	issuesAPI, membersAPI := s.res.Issues, s.res.Members
	return func(ctx context.Context) Result {
		out := projectDataLoaded{gen: gen, projectID: p.ID}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			is, err := issuesAPI.List(gctx, p.ID)
			out.issues = is
			return err
		})
		g.Go(func() error {
			ms, err := membersAPI.List(gctx, p.ID)
			out.members = ms
			return err
		})
		out.err = g.Wait()
		return out
	}
}

// SelectIssue selects i and reloads its comments. Issues and members are left alone.
func (s *Synchronizer) SelectIssue(i model.Issue) Effect {
	s.issueGen++
	sel := i
	s.SelectedIssue = &sel
	s.Comments = nil
	s.CommentsLoading = true

	gen := s.issueGen
	comments := s.res.Comments
	return func(ctx context.Context) Result {
		cs, err := comments.List(ctx, i.ID)
		return commentsLoaded{gen: gen, issueID: i.ID, comments: cs, err: err}
	}
}

func (s *Synchronizer) CreateProject() (Effect, error) {
	d := s.ProjectDraft
	if strings.TrimSpace(d.Name) == "" {
		return nil, &RequiredFieldError{Field: "name"}
	}
	if strings.TrimSpace(d.Key) == "" {
		return nil, &RequiredFieldError{Field: "key"}
	}
	projects := s.res.Projects
	in := api.ProjectInput{Name: d.Name, Key: d.Key, Description: d.Description}
	return func(ctx context.Context) Result {
		p, err := projects.Create(ctx, in)
		return projectCreated{project: p, err: err}
	}, nil
}

func (s *Synchronizer) CreateIssue() (Effect, error) {
	if s.SelectedProject == nil {
		return nil, ErrNoSelection
	}
	d := s.IssueDraft
	if strings.TrimSpace(d.Title) == "" {
		return nil, &RequiredFieldError{Field: "title"}
	}
	if !d.Priority.Valid() {
		d.Priority = model.PriorityMedium
	}
	gen, pid := s.projectGen, s.SelectedProject.ID
	issues := s.res.Issues
	in := api.IssueInput{Title: d.Title, Description: d.Description, Priority: d.Priority}
	return func(ctx context.Context) Result {
		is, err := issues.Create(ctx, pid, in)
		return issueCreated{gen: gen, issue: is, err: err}
	}, nil
}

// AddComment posts the trimmed comment draft on the selected issue. A blank
// draft or no selected issue returns nil: no request is made.
func (s *Synchronizer) AddComment() Effect {
	body := strings.TrimSpace(s.CommentDraft)
	if body == "" || s.SelectedIssue == nil {
		return nil
	}
	gen, iid := s.issueGen, s.SelectedIssue.ID
	comments := s.res.Comments
	return func(ctx context.Context) Result {
		c, err := comments.Create(ctx, iid, body)
		return commentAdded{gen: gen, comment: c, err: err}
	}
}

// AddMember adds the member draft to the selected project. A blank email or
// no selected project returns nil.
func (s *Synchronizer) AddMember() Effect {
	email := strings.TrimSpace(s.MemberDraft.Email)
	if email == "" || s.SelectedProject == nil {
		return nil
	}
	role := s.MemberDraft.Role
	if !role.Valid() {
		role = model.RoleDeveloper
	}
	gen, pid := s.projectGen, s.SelectedProject.ID
	members := s.res.Members
	return func(ctx context.Context) Result {
		m, err := members.Add(ctx, pid, api.MemberInput{Email: email, Role: role})
		return memberAdded{gen: gen, member: m, err: err}
	}
}

// ChangeStatus sets issue's status. The call is refused locally while the
// maintainer gate is closed.
func (s *Synchronizer) ChangeStatus(issue model.Issue, status model.IssueStatus) (Effect, error) {
	if !s.CanChangeStatus() {
		return nil, ErrNotMaintainer
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	issues := s.res.Issues
	return func(ctx context.Context) Result {
		is, err := issues.UpdateStatus(ctx, issue.ID, status)
		return statusChanged{issue: is, err: err}
	}, nil
}
