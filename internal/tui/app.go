package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"issuehub-cli/internal/model"
	"issuehub-cli/internal/session"
	"issuehub-cli/internal/workspace"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusPane int

const (
	paneProjects focusPane = iota
	paneIssues
)

// Flash texts.
const (
	flashViewOnly      = "view only"
	flashNoProject     = "Select a project first"
	flashNoIssue       = "Select an issue first"
	flashCommentBlank  = "Comment is empty"
	flashMemberNoEmail = "Email is required"
)

// userLoadedMsg carries the result of a session Effect.
type userLoadedMsg struct{ res session.UserResult }

// authDoneMsg carries the outcome of a login or signup submit.
type authDoneMsg struct {
	token string
	err   error
}

// workspaceMsg carries a workspace Result back to the synchronizer that
// started it. Results for a torn-down synchronizer are dropped.
type workspaceMsg struct {
	ws  *workspace.Synchronizer
	res workspace.Result
}

type appModel struct {
	ctx  context.Context
	deps Deps
	log  *slog.Logger
	res  workspace.Resources

	width  int
	height int

	startCmd tea.Cmd
	login    loginModel

	ws       *workspace.Synchronizer
	pane     focusPane
	projects list.Model
	issues   list.Model

	modal        *formModal
	statusTarget model.Issue

	minibufferText string
}

func newAppModel(ctx context.Context, deps Deps) appModel {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := appModel{
		ctx:      ctx,
		deps:     deps,
		log:      log.With("component", "tui"),
		res:      workspace.ResourcesFrom(deps.Client),
		width:    100,
		height:   30,
		login:    newLoginModel(),
		projects: newList(newRowDelegate(1)),
		issues:   newList(newRowDelegate(2)),
	}
	m.startCmd = sessionCmd(ctx, deps.Session.Start(ctx))
	m.resize()
	return m
}

func (m appModel) Init() tea.Cmd { return m.startCmd }

func sessionCmd(ctx context.Context, eff session.Effect) tea.Cmd {
	if eff == nil {
		return nil
	}
	return func() tea.Msg { return userLoadedMsg{res: eff(ctx)} }
}

func (m appModel) workspaceCmd(eff workspace.Effect) tea.Cmd {
	if eff == nil {
		return nil
	}
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg { return workspaceMsg{ws: ws, res: eff(ctx)} }
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case userLoadedMsg:
		return m.onUserLoaded(msg.res)

	case authDoneMsg:
		return m.onAuthDone(msg)

	case workspaceMsg:
		if msg.ws == nil || msg.ws != m.ws {
			return m, nil
		}
		return m.onWorkspaceResult(msg.res)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Flashes last until the next key.
		m.minibufferText = ""
		switch {
		case m.deps.Session.Phase() == session.PhaseLoadingUser:
			if msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		case m.ws == nil:
			return m.updateLogin(msg)
		case m.modal != nil:
			return m.updateModal(msg)
		default:
			return m.updateWorkspace(msg)
		}
	}
	return m, nil
}

func (m appModel) onUserLoaded(res session.UserResult) (tea.Model, tea.Cmd) {
	if m.ws != nil {
		return m, nil
	}
	m.deps.Session.Apply(m.ctx, res)
	if m.deps.Session.Phase() != session.PhaseLoggedIn {
		if m.login.submitting {
			m.login.submitting = false
			m.login.err = (&session.FlowError{Mode: m.login.mode}).Error()
		}
		return m, nil
	}
	u := m.deps.Session.User()
	m.log.Info("session ready", "user", u.ID)
	m.login = newLoginModel()
	m.ws = workspace.New(m.res, u.ID, m.log)
	m.pane = paneProjects
	return m, m.workspaceCmd(m.ws.Hydrate())
}

func (m appModel) onAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.login.submitting = false
		m.login.err = loginErrorText(m.login.mode, msg.err)
		m.log.Warn("auth failed", "mode", m.login.mode.String(), "err", msg.err)
		return m, nil
	}
	eff, err := m.deps.Session.Authenticate(m.ctx, msg.token)
	if err != nil {
		m.login.submitting = false
		m.login.err = loginErrorText(m.login.mode, err)
		m.log.Warn("storing token failed", "err", err)
		return m, nil
	}
	return m, sessionCmd(m.ctx, eff)
}

// loginErrorText keeps validation messages and reduces everything else to
// the generic flow message.
func loginErrorText(mode session.Mode, err error) string {
	var req *session.RequiredFieldError
	if errors.As(err, &req) {
		return req.Error()
	}
	var flow *session.FlowError
	if errors.As(err, &flow) {
		return flow.Error()
	}
	return (&session.FlowError{Mode: mode}).Error()
}

func (m appModel) onWorkspaceResult(res workspace.Result) (tea.Model, tea.Cmd) {
	out := m.ws.Apply(res)
	switch out.Kind {
	case workspace.FailureAuthRejected:
		m.log.Warn("token rejected; reloading", "err", out.Err)
		m.reload(true)
		return m, nil
	case workspace.FailureLoad, workspace.FailureMutation:
		m.log.Warn(out.Alert, "err", out.Err)
		if !m.ws.Failed() {
			m.minibufferText = out.Alert
		}
	}
	m.syncLists()
	return m, nil
}

// reload drops the workspace and returns to the login view. rejected clears
// the session as a token rejection; otherwise it is a logout.
func (m *appModel) reload(rejected bool) {
	var err error
	if rejected {
		err = m.deps.Session.Reject(m.ctx)
	} else {
		err = m.deps.Session.Logout(m.ctx)
	}
	if err != nil {
		m.log.Warn("clearing token failed", "err", err)
	}
	m.ws = nil
	m.modal = nil
	m.pane = paneProjects
	m.login = newLoginModel()
	m.projects.SetItems(nil)
	m.issues.SetItems(nil)
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}
	submit, cmd := m.login.update(msg)
	if !submit {
		return m, cmd
	}
	f := m.login.form()
	if err := f.Validate(); err != nil {
		m.login.err = err.Error()
		return m, nil
	}
	m.login.err = ""
	m.login.submitting = true
	ctx, auth := m.ctx, m.deps.Client.Auth
	return m, func() tea.Msg {
		tok, err := session.Submit(ctx, auth, f)
		return authDoneMsg{token: tok, err: err}
	}
}

func (m appModel) updateWorkspace(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "L":
		m.reload(false)
		return m, nil
	}
	if m.ws.Failed() || m.ws.Loading {
		return m, nil
	}

	switch key {
	case "tab", "shift+tab":
		if m.pane == paneProjects {
			m.pane = paneIssues
		} else {
			m.pane = paneProjects
		}
		return m, nil

	case "enter":
		if m.pane == paneProjects {
			it, ok := m.projects.SelectedItem().(projectItem)
			if !ok {
				return m, nil
			}
			eff := m.ws.SelectProject(it.project)
			m.syncLists()
			return m, m.workspaceCmd(eff)
		}
		it, ok := m.issues.SelectedItem().(issueItem)
		if !ok {
			return m, nil
		}
		eff := m.ws.SelectIssue(it.issue)
		m.syncLists()
		return m, m.workspaceCmd(eff)

	case "p":
		m.modal = projectModal(m.ws.ProjectDraft)
		return m, nil

	case "n":
		if m.ws.SelectedProject == nil {
			m.minibufferText = flashNoProject
			return m, nil
		}
		m.modal = issueModal(m.ws.IssueDraft)
		return m, nil

	case "c":
		if m.ws.SelectedIssue == nil {
			m.minibufferText = flashNoIssue
			return m, nil
		}
		m.modal = commentModal(m.ws.CommentDraft)
		return m, nil

	case "m":
		if m.ws.SelectedProject == nil {
			m.minibufferText = flashNoProject
			return m, nil
		}
		m.modal = memberModal(m.ws.MemberDraft)
		return m, nil

	case "s":
		target, ok := m.statusCandidate()
		if !ok {
			m.minibufferText = flashNoIssue
			return m, nil
		}
		if !m.ws.CanChangeStatus() {
			m.minibufferText = flashViewOnly
			return m, nil
		}
		m.statusTarget = target
		m.modal = statusModal(target)
		return m, nil
	}

	var cmd tea.Cmd
	if m.pane == paneProjects {
		m.projects, cmd = m.projects.Update(msg)
	} else {
		m.issues, cmd = m.issues.Update(msg)
	}
	return m, cmd
}

// statusCandidate is the issue under the cursor when the issues pane has
// focus, else the selected issue.
func (m appModel) statusCandidate() (model.Issue, bool) {
	if m.pane == paneIssues {
		if it, ok := m.issues.SelectedItem().(issueItem); ok {
			return it.issue, true
		}
	}
	if m.ws.SelectedIssue != nil {
		return *m.ws.SelectedIssue, true
	}
	return model.Issue{}, false
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submit, cancel, cmd := m.modal.update(msg)
	switch {
	case cancel:
		m.stashDraft()
		m.modal = nil
		return m, nil
	case submit:
		return m.submitModal()
	}
	return m, cmd
}

// stashDraft copies the modal fields into the synchronizer drafts so the form
// reopens with what was typed.
func (m *appModel) stashDraft() {
	f := m.modal
	switch f.kind {
	case modalProject:
		m.ws.ProjectDraft = workspace.ProjectDraft{Name: f.value(0), Key: f.value(1), Description: f.value(2)}
	case modalIssue:
		m.ws.IssueDraft = workspace.IssueDraft{Title: f.value(0), Description: f.value(1), Priority: model.Priority(f.choiceValue())}
	case modalComment:
		m.ws.CommentDraft = f.value(0)
	case modalMember:
		m.ws.MemberDraft = workspace.MemberDraft{Email: f.value(0), Role: model.Role(f.choiceValue())}
	}
}

func (m appModel) submitModal() (tea.Model, tea.Cmd) {
	m.stashDraft()
	f := m.modal

	var (
		eff workspace.Effect
		err error
	)
	switch f.kind {
	case modalProject:
		eff, err = m.ws.CreateProject()
	case modalIssue:
		eff, err = m.ws.CreateIssue()
	case modalComment:
		if eff = m.ws.AddComment(); eff == nil {
			f.err = flashCommentBlank
			return m, nil
		}
	case modalMember:
		if eff = m.ws.AddMember(); eff == nil {
			f.err = flashMemberNoEmail
			return m, nil
		}
	case modalStatus:
		eff, err = m.ws.ChangeStatus(m.statusTarget, model.IssueStatus(f.choiceValue()))
	}
	if err != nil {
		f.err = err.Error()
		return m, nil
	}
	m.modal = nil
	return m, m.workspaceCmd(eff)
}

func (m *appModel) syncLists() {
	if m.ws == nil {
		return
	}
	m.projects.SetItems(projectItems(m.ws.Projects, m.ws.SelectedProject))
	m.issues.SetItems(issueItems(m.ws.Issues, m.ws.SelectedIssue, !m.ws.CanChangeStatus()))
	clampCursor(&m.projects)
	clampCursor(&m.issues)
}

func clampCursor(l *list.Model) {
	n := len(l.Items())
	if n > 0 && l.Index() >= n {
		l.Select(n - 1)
	}
}

func (m appModel) columnWidths() (left, right int) {
	left = m.width / 3
	if left < 24 {
		left = 24
	}
	right = m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

func (m *appModel) resize() {
	left, right := m.columnWidths()
	listH := (m.height - 1) / 2
	if listH < 4 {
		listH = 4
	}
	m.projects.SetSize(left, listH-1)
	m.issues.SetSize(right, listH-1)
}

func (m appModel) View() string {
	bodyH := m.height - 1
	switch {
	case m.deps.Session.Phase() == session.PhaseLoadingUser:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, styleMuted().Render("Loading user..."))
	case m.ws == nil:
		return m.login.view(m.width, m.height)
	case m.ws.Failed():
		return lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, styleError().Render(m.ws.PageErr)) + "\n" + m.footerView()
	case m.ws.Loading:
		return lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, styleMuted().Render("Loading projects...")) + "\n" + m.footerView()
	}

	body := m.workspaceView(bodyH)
	if m.modal != nil {
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.modal.view(m.width))
	}
	return body + "\n" + m.footerView()
}

func (m appModel) workspaceView(bodyH int) string {
	leftW, rightW := m.columnWidths()
	left := normalizePane(m.leftColumn(leftW), leftW, bodyH)
	right := normalizePane(m.rightColumn(rightW), rightW, bodyH)
	sep := styleMuted().Render(strings.TrimSuffix(strings.Repeat("│\n", bodyH), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func (m appModel) paneHeading(title string, p focusPane) string {
	st := styleHeading()
	if m.pane == p {
		st = st.Foreground(colorAccent)
	}
	return st.Render(title)
}

func (m appModel) leftColumn(width int) string {
	var b strings.Builder
	b.WriteString(m.paneHeading("Projects", paneProjects) + "\n")
	if len(m.ws.Projects) == 0 {
		b.WriteString(styleMuted().Render(" No projects yet. Press p to create one.") + "\n")
	} else {
		b.WriteString(m.projects.View() + "\n")
	}

	if p := m.ws.SelectedProject; p != nil {
		b.WriteString("\n" + styleHeading().Render("Members for "+p.Name) + "\n")
		if m.ws.ProjectLoading {
			b.WriteString(styleMuted().Render(" Loading...") + "\n")
		}
		for _, mem := range m.ws.Members {
			line := fmt.Sprintf(" User #%d – %s", mem.UserID, mem.Role.Label())
			if mem.Role == model.RoleManager {
				line = lipgloss.NewStyle().Foreground(colorManager).Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func (m appModel) rightColumn(width int) string {
	var b strings.Builder
	title := "Issues"
	if p := m.ws.SelectedProject; p != nil {
		title = "Issues · " + p.Name
	}
	b.WriteString(m.paneHeading(title, paneIssues) + "\n")
	switch {
	case m.ws.SelectedProject == nil:
		b.WriteString(styleMuted().Render(" Select a project.") + "\n")
		return b.String()
	case m.ws.ProjectLoading:
		b.WriteString(styleMuted().Render(" Loading...") + "\n")
		return b.String()
	case len(m.ws.Issues) == 0:
		b.WriteString(styleMuted().Render(" No issues. Press n to create one.") + "\n")
	default:
		b.WriteString(m.issues.View() + "\n")
	}

	i := m.ws.SelectedIssue
	if i == nil {
		return b.String()
	}
	b.WriteString("\n" + styleHeading().Render(i.Title) + "\n")
	meta := fmt.Sprintf("%s · %s · reported by User #%d", i.Status.Label(), i.Priority.Label(), i.ReporterID)
	if !m.ws.CanChangeStatus() {
		meta += " · (view only)"
	}
	b.WriteString(styleMuted().Render(meta) + "\n")
	if d := model.Deref(i.Description); strings.TrimSpace(d) != "" {
		b.WriteString(renderMarkdown(d, width-2) + "\n")
	}

	b.WriteString("\n" + styleHeading().Render("Comments") + "\n")
	switch {
	case m.ws.CommentsLoading:
		b.WriteString(styleMuted().Render(" Loading comments...") + "\n")
	case len(m.ws.Comments) == 0:
		b.WriteString(styleMuted().Render(" No comments. Press c to add one.") + "\n")
	}
	for _, c := range m.ws.Comments {
		b.WriteString(styleMuted().Render(fmt.Sprintf(" User #%d · %s", c.AuthorID, c.CreatedAt.Format("2006-01-02 15:04"))) + "\n")
		b.WriteString(renderMarkdownCompact(c.Body, width-2) + "\n")
	}
	return b.String()
}

func (m appModel) footerView() string {
	if m.minibufferText != "" {
		return styleError().Render(m.minibufferText)
	}
	help := "tab focus · enter select · p project · n issue · c comment · m member · s status · L logout · q quit"
	if m.modal != nil {
		help = "enter save · esc cancel"
	}
	if u := m.deps.Session.User(); u != nil {
		help = u.Name + " · " + help
	}
	return styleMuted().Render(normalizePane(help, m.width, 1))
}
