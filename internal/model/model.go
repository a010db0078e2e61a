package model

import (
	"fmt"
	"strings"
)

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt Timestamp `json:"created_at"`
}

type Project struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Key         string     `json:"key"`
	Description *string    `json:"description"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}

type Issue struct {
	ID          int         `json:"id"`
	ProjectID   int         `json:"project_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Status      IssueStatus `json:"status"`
	Priority    Priority    `json:"priority"`
	ReporterID  int         `json:"reporter_id"`
	AssigneeID  *int        `json:"assignee_id"`
	CreatedAt   Timestamp   `json:"created_at"`
}

type ProjectMember struct {
	ID        int       `json:"id"`
	ProjectID int       `json:"project_id"`
	UserID    int       `json:"user_id"`
	Role      Role      `json:"role"`
	JoinedAt  Timestamp `json:"joined_at"`
}

// Comments are immutable once created.
type Comment struct {
	ID        int       `json:"id"`
	IssueID   int       `json:"issue_id"`
	AuthorID  int       `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt Timestamp `json:"created_at"`
}

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusClosed     IssueStatus = "closed"
)

// IssueStatuses lists statuses in display order.
var IssueStatuses = []IssueStatus{StatusOpen, StatusInProgress, StatusClosed}

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

func (s IssueStatus) Label() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusInProgress:
		return "IN PROGRESS"
	case StatusClosed:
		return "CLOSED"
	}
	return strings.ToUpper(string(s))
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) Label() string { return strings.ToUpper(string(p)) }

type Role string

const (
	RoleViewer    Role = "viewer"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
)

var Roles = []Role{RoleViewer, RoleDeveloper, RoleManager}

func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleDeveloper, RoleManager:
		return true
	}
	return false
}

// Label is the display name of a role. Only managers are shown as maintainers;
// the wire value is unchanged.
func (r Role) Label() string {
	if r == RoleManager {
		return "MAINTAINER"
	}
	return "MEMBER"
}

func ParseIssueStatus(s string) (IssueStatus, error) {
	v := IssueStatus(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("invalid status %q (want open|in_progress|closed)", s)
	}
	return v, nil
}

func ParsePriority(s string) (Priority, error) {
	v := Priority(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("invalid priority %q (want low|medium|high)", s)
	}
	return v, nil
}

// ParseRole accepts wire values and the display names MEMBER and MAINTAINER.
func ParseRole(s string) (Role, error) {
	switch normalizeEnum(s) {
	case "member":
		return RoleDeveloper, nil
	case "maintainer":
		return RoleManager, nil
	}
	v := Role(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("invalid role %q (want viewer|developer|manager)", s)
	}
	return v, nil
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
