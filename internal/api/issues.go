package api

import (
	"context"
	"fmt"
	"net/http"

	"issuehub-cli/internal/model"
)

type IssuesService struct{ c *Client }

type IssueInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    model.Priority `json:"priority"`
}

type statusUpdate struct {
	Status model.IssueStatus `json:"status"`
}

func (s *IssuesService) List(ctx context.Context, projectID int) ([]model.Issue, error) {
	out := []model.Issue{}
	if err := s.c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/issues", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *IssuesService) Get(ctx context.Context, issueID int) (model.Issue, error) {
	var is model.Issue
	err := s.c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/issues/%d", issueID), nil, &is)
	return is, err
}

func (s *IssuesService) Create(ctx context.Context, projectID int, in IssueInput) (model.Issue, error) {
	var is model.Issue
	err := s.c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/issues", projectID), in, &is)
	return is, err
}

// UpdateStatus patches only the status and returns the full updated issue.
// The backend requires the manager role for this.
func (s *IssuesService) UpdateStatus(ctx context.Context, issueID int, status model.IssueStatus) (model.Issue, error) {
	var is model.Issue
	err := s.c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/api/issues/%d", issueID), statusUpdate{Status: status}, &is)
	return is, err
}
