package api

import (
	"context"
	"fmt"
	"net/http"

	"issuehub-cli/internal/model"
)

type CommentsService struct{ c *Client }

func (s *CommentsService) List(ctx context.Context, issueID int) ([]model.Comment, error) {
	out := []model.Comment{}
	if err := s.c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/issues/%d/comments", issueID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CommentsService) Create(ctx context.Context, issueID int, body string) (model.Comment, error) {
	var c model.Comment
	in := struct {
		Body string `json:"body"`
	}{Body: body}
	err := s.c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/issues/%d/comments", issueID), in, &c)
	return c, err
}
