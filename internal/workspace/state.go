package workspace

import "issuehub-cli/internal/model"

type ProjectDraft struct {
	Name        string
	Key         string
	Description string
}

type IssueDraft struct {
	Title       string
	Description string
	Priority    model.Priority
}

type MemberDraft struct {
	Email string
	Role  model.Role
}

func NewIssueDraft() IssueDraft { return IssueDraft{Priority: model.PriorityMedium} }

func NewMemberDraft() MemberDraft { return MemberDraft{Role: model.RoleDeveloper} }

// State is everything the workspace view renders. Collections are scoped to
// the current selection and are replaced wholesale when it changes.
type State struct {
	Projects        []model.Project
	SelectedProject *model.Project
	Issues          []model.Issue
	SelectedIssue   *model.Issue
	Comments        []model.Comment
	Members         []model.ProjectMember

	ProjectDraft ProjectDraft
	IssueDraft   IssueDraft
	CommentDraft string
	MemberDraft  MemberDraft

	// Loading is set while the project list hydrates.
	Loading         bool
	ProjectLoading  bool
	CommentsLoading bool

	// PageErr halts the workspace; only the initial load sets it.
	PageErr string
}

// IsMaintainer reports whether userID holds the manager role in the selected
// project, going only by the loaded members. The backend stays the authority.
func IsMaintainer(selected *model.Project, members []model.ProjectMember, userID int) bool {
	if selected == nil {
		return false
	}
	for _, m := range members {
		if m.ProjectID == selected.ID && m.UserID == userID && m.Role == model.RoleManager {
			return true
		}
	}
	return false
}
