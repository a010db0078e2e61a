package api

import (
	"context"
	"net/http"

	"issuehub-cli/internal/model"
)

type ProjectsService struct{ c *Client }

type ProjectInput struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// List returns the projects visible to the current user.
func (s *ProjectsService) List(ctx context.Context) ([]model.Project, error) {
	out := []model.Project{}
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/projects/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProjectsService) Create(ctx context.Context, in ProjectInput) (model.Project, error) {
	var p model.Project
	err := s.c.doJSON(ctx, http.MethodPost, "/api/projects/", in, &p)
	return p, err
}
