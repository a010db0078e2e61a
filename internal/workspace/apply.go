package workspace

import (
	"issuehub-cli/internal/api"
	"issuehub-cli/internal/model"
)

// Result is what an Effect produced. The concrete types are internal; pass
// them back to Apply unchanged.
type Result interface {
	resultErr() error
}

type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureAuthRejected means the backend refused the token. The caller
	// must reset the session.
	FailureAuthRejected
	// FailureLoad is the page-level failure of the initial load.
	FailureLoad
	// FailureMutation is a transient alert for any other failed call.
	FailureMutation
)

const (
	AlertLoadProjects  = "Failed to load projects"
	AlertLoadProject   = "Failed to load project data"
	AlertLoadComments  = "Failed to load comments"
	AlertCreateProject = "Failed to create project"
	AlertCreateIssue   = "Failed to create issue"
	AlertAddComment    = "Failed to add comment"
	AlertAddMember     = "Failed to add member"
	AlertChangeStatus  = "Failed to update status"
)

type Outcome struct {
	Kind  FailureKind
	Alert string
	Err   error
	// Discarded marks a result that arrived for a selection no longer current.
	Discarded bool
}

func (o Outcome) Failed() bool { return o.Kind != FailureNone }

type projectsLoaded struct {
	projects []model.Project
	err      error
}

type projectDataLoaded struct {
	gen       uint64
	projectID int
	issues    []model.Issue
	members   []model.ProjectMember
	err       error
}

type commentsLoaded struct {
	gen      uint64
	issueID  int
	comments []model.Comment
	err      error
}

type projectCreated struct {
	project model.Project
	err     error
}

type issueCreated struct {
	gen   uint64
	issue model.Issue
	err   error
}

type commentAdded struct {
	gen     uint64
	comment model.Comment
	err     error
}

type memberAdded struct {
	gen    uint64
	member model.ProjectMember
	err    error
}

type statusChanged struct {
	issue model.Issue
	err   error
}

func (r projectsLoaded) resultErr() error    { return r.err }
func (r projectDataLoaded) resultErr() error { return r.err }
func (r commentsLoaded) resultErr() error    { return r.err }
func (r projectCreated) resultErr() error    { return r.err }
func (r issueCreated) resultErr() error      { return r.err }
func (r commentAdded) resultErr() error      { return r.err }
func (r memberAdded) resultErr() error       { return r.err }
func (r statusChanged) resultErr() error     { return r.err }

// Apply merges r into the state. A 401 from any call wins over everything
// else, stale or not, and leaves the state untouched.
func (s *Synchronizer) Apply(r Result) Outcome {
	if r == nil {
		return Outcome{}
	}
	if err := r.resultErr(); api.IsUnauthorized(err) {
		s.log.Info("token rejected", "err", err)
		return Outcome{Kind: FailureAuthRejected, Err: err}
	}

	switch r := r.(type) {
	case projectsLoaded:
		s.Loading = false
		if r.err != nil {
			s.PageErr = AlertLoadProjects
			return s.fail(FailureLoad, AlertLoadProjects, r.err)
		}
		s.Projects = r.projects

	case projectDataLoaded:
		if r.gen != s.projectGen {
			s.log.Debug("discard stale project data", "project_id", r.projectID)
			return Outcome{Discarded: true, Err: r.err}
		}
		s.ProjectLoading = false
		if r.err != nil {
			s.Issues = nil
			s.Members = nil
			return s.fail(FailureMutation, AlertLoadProject, r.err)
		}
		s.Issues = r.issues
		s.Members = r.members

	case commentsLoaded:
		if r.gen != s.issueGen {
			s.log.Debug("discard stale comments", "issue_id", r.issueID)
			return Outcome{Discarded: true, Err: r.err}
		}
		s.CommentsLoading = false
		if r.err != nil {
			s.Comments = nil
			return s.fail(FailureMutation, AlertLoadComments, r.err)
		}
		s.Comments = r.comments

	case projectCreated:
		if r.err != nil {
			return s.fail(FailureMutation, AlertCreateProject, r.err)
		}
		s.Projects = appendEntity(s.Projects, r.project)
		s.ProjectDraft = ProjectDraft{}

	case issueCreated:
		if r.err != nil {
			return s.fail(FailureMutation, AlertCreateIssue, r.err)
		}
		s.IssueDraft = NewIssueDraft()
		if r.gen != s.projectGen {
			return Outcome{Discarded: true}
		}
		s.Issues = appendEntity(s.Issues, r.issue)

	case commentAdded:
		if r.err != nil {
			return s.fail(FailureMutation, AlertAddComment, r.err)
		}
		s.CommentDraft = ""
		if r.gen != s.issueGen {
			return Outcome{Discarded: true}
		}
		s.Comments = appendEntity(s.Comments, r.comment)

	case memberAdded:
		if r.err != nil {
			return s.fail(FailureMutation, AlertAddMember, r.err)
		}
		s.MemberDraft = NewMemberDraft()
		if r.gen != s.projectGen {
			return Outcome{Discarded: true}
		}
		s.Members = appendEntity(s.Members, r.member)

	case statusChanged:
		if r.err != nil {
			return s.fail(FailureMutation, AlertChangeStatus, r.err)
		}
		s.Issues = replaceByID(s.Issues, r.issue, func(i model.Issue) int { return i.ID })
		if s.SelectedIssue != nil && s.SelectedIssue.ID == r.issue.ID {
			updated := r.issue
			s.SelectedIssue = &updated
		}
	}
	return Outcome{}
}

func (s *Synchronizer) fail(kind FailureKind, alert string, err error) Outcome {
	s.log.Warn(alert, "err", err)
	return Outcome{Kind: kind, Alert: alert, Err: err}
}
