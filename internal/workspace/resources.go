package workspace

import (
	"context"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/model"
)

type ProjectsAPI interface {
	List(ctx context.Context) ([]model.Project, error)
	Create(ctx context.Context, in api.ProjectInput) (model.Project, error)
}

type IssuesAPI interface {
	List(ctx context.Context, projectID int) ([]model.Issue, error)
	Create(ctx context.Context, projectID int, in api.IssueInput) (model.Issue, error)
	UpdateStatus(ctx context.Context, issueID int, status model.IssueStatus) (model.Issue, error)
}

type CommentsAPI interface {
	List(ctx context.Context, issueID int) ([]model.Comment, error)
	Create(ctx context.Context, issueID int, body string) (model.Comment, error)
}

type MembersAPI interface {
	List(ctx context.Context, projectID int) ([]model.ProjectMember, error)
	Add(ctx context.Context, projectID int, in api.MemberInput) (model.ProjectMember, error)
}

// Resources is the set of resource clients the synchronizer talks to.
type Resources struct {
	Projects ProjectsAPI
	Issues   IssuesAPI
	Comments CommentsAPI
	Members  MembersAPI
}

func ResourcesFrom(c *api.Client) Resources {
	return Resources{
		Projects: c.Projects,
		Issues:   c.Issues,
		Comments: c.Comments,
		Members:  c.Members,
	}
}
