package api

import (
	"context"
	"fmt"
	"net/http"

	"issuehub-cli/internal/model"
)

type MembersService struct{ c *Client }

// MemberInput adds an existing user, looked up by email, to a project.
type MemberInput struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func (s *MembersService) List(ctx context.Context, projectID int) ([]model.ProjectMember, error) {
	out := []model.ProjectMember{}
	if err := s.c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/members", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MembersService) Add(ctx context.Context, projectID int, in MemberInput) (model.ProjectMember, error) {
	var m model.ProjectMember
	err := s.c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), in, &m)
	return m, err
}
