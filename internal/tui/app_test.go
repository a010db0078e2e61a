package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/apitest"
	"issuehub-cli/internal/model"
	"issuehub-cli/internal/session"
	"issuehub-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type harness struct {
	b       *apitest.Backend
	srv     *httptest.Server
	tokens  store.Tokens
	ctrl    *session.Controller
	client  *api.Client
	manager model.User
	dev     model.User
	apollo  model.Project
	crash   model.Issue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{b: apitest.New()}
	h.manager = h.b.SeedUser("Mia", "mia@example.com", "pw")
	h.dev = h.b.SeedUser("Dev", "dev@example.com", "pw")
	h.apollo = h.b.SeedProject(h.manager.ID, "Apollo", "APL")
	h.b.SeedMember(h.apollo.ID, h.dev.ID, model.RoleDeveloper)
	h.crash = h.b.SeedIssue(h.apollo.ID, h.manager.ID, "Crash on start", model.PriorityHigh)
	h.srv = h.b.Start()
	t.Cleanup(h.srv.Close)

	ls, err := store.OpenLocalStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = ls.Close() })
	h.tokens = store.Tokens{Store: ls}
	h.ctrl = session.NewController(h.tokens, nil)
	h.client = api.New(h.srv.URL, api.WithCredentials(h.ctrl))
	h.ctrl.Bind(h.client.Auth)
	return h
}

func (h *harness) model() appModel {
	return newAppModel(context.Background(), Deps{Session: h.ctrl, Client: h.client})
}

func (h *harness) storedToken(t *testing.T) string {
	t.Helper()
	tok, err := h.tokens.Token(context.Background())
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	return tok
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// settle runs cmd and feeds app messages back into m until nothing is left.
// Commands that produce other messages (quit, list internals) end the chain.
func settle(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 20 {
			t.Fatalf("command chain did not settle")
		}
		msg := cmd()
		switch msg.(type) {
		case userLoadedMsg, authDoneMsg, workspaceMsg:
		default:
			return m
		}
		mm, next := m.Update(msg)
		m = mm.(appModel)
		cmd = next
	}
	return m
}

// press sends a key and settles whatever it starts.
func press(t *testing.T, m appModel, k string) appModel {
	t.Helper()
	mm, cmd := m.Update(keyMsg(k))
	return settle(t, mm.(appModel), cmd)
}

func typeText(t *testing.T, m appModel, s string) appModel {
	t.Helper()
	for _, r := range s {
		mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = mm.(appModel)
	}
	return m
}

func loginAs(t *testing.T, h *harness, email string) appModel {
	t.Helper()
	m := h.model()
	return submitLogin(t, settle(t, m, m.Init()), email)
}

func submitLogin(t *testing.T, m appModel, email string) appModel {
	t.Helper()
	m = typeText(t, m, email)
	m = press(t, m, "tab")
	m = typeText(t, m, "pw")
	m = press(t, m, "enter")
	if m.ws == nil {
		t.Fatalf("expected workspace after login; login err=%q", m.login.err)
	}
	return m
}

func selectApollo(t *testing.T, m appModel) appModel {
	t.Helper()
	m = press(t, m, "enter")
	if m.ws.SelectedProject == nil || m.ws.ProjectLoading {
		t.Fatalf("expected project selected and loaded; got %+v", m.ws.SelectedProject)
	}
	return m
}

func TestLogin_PersistsTokenAndHydrates(t *testing.T) {
	h := newHarness(t)
	m := loginAs(t, h, "mia@example.com")

	if got := h.storedToken(t); got != apitest.TokenFor(h.manager.ID) {
		t.Fatalf("stored token = %q", got)
	}
	if h.ctrl.Phase() != session.PhaseLoggedIn {
		t.Fatalf("phase = %v", h.ctrl.Phase())
	}
	if len(m.ws.Projects) != 1 || m.ws.Loading {
		t.Fatalf("expected hydrated projects; got %+v loading=%v", m.ws.Projects, m.ws.Loading)
	}
	if v := m.View(); !strings.Contains(v, "Apollo") || !strings.Contains(v, "Projects") {
		t.Fatalf("expected workspace view; got:\n%s", v)
	}
}

func TestStart_WithStoredToken_ShowsLoadingUserThenWorkspace(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.SetToken(context.Background(), apitest.TokenFor(h.dev.ID)); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	m := h.model()
	cmd := m.Init()
	if cmd == nil {
		t.Fatalf("expected a user fetch on start")
	}
	if v := m.View(); !strings.Contains(v, "Loading user...") {
		t.Fatalf("expected loading view; got:\n%s", v)
	}
	m = settle(t, m, cmd)
	if m.ws == nil || m.ws.UserID() != h.dev.ID {
		t.Fatalf("expected workspace for dev")
	}
}

func TestStart_WithRejectedToken_ReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	if err := h.tokens.SetToken(context.Background(), "tok-bogus"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	m := h.model()
	m = settle(t, m, m.Init())
	if m.ws != nil || h.ctrl.Phase() != session.PhaseLoggedOut {
		t.Fatalf("expected logged out; phase=%v", h.ctrl.Phase())
	}
	if got := h.storedToken(t); got != "" {
		t.Fatalf("expected token cleared; got %q", got)
	}
	if v := m.View(); !strings.Contains(v, "Log in") {
		t.Fatalf("expected login view; got:\n%s", v)
	}
}

func TestLogin_WrongPassword_ShowsGenericMessage(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m = typeText(t, m, "mia@example.com")
	m = press(t, m, "tab")
	m = typeText(t, m, "nope")
	m = press(t, m, "enter")

	if m.ws != nil {
		t.Fatalf("expected login to fail")
	}
	if m.login.err != "Login failed" {
		t.Fatalf("err = %q", m.login.err)
	}
	if v := m.View(); !strings.Contains(v, "Login failed") {
		t.Fatalf("expected error line in view")
	}
}

func TestLogin_BlankEmail_NoRequest(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m = press(t, m, "enter")

	if m.login.err != "email is required" {
		t.Fatalf("err = %q", m.login.err)
	}
	if n := h.b.RequestCount(http.MethodPost, "/auth/login"); n != 0 {
		t.Fatalf("expected no login request; got %d", n)
	}
}

func TestSignup_ToggleAndSubmit(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m = press(t, m, "ctrl+t")
	if m.login.mode != session.ModeSignup {
		t.Fatalf("expected signup mode")
	}
	if v := m.View(); !strings.Contains(v, "Sign up") || !strings.Contains(v, "Name") {
		t.Fatalf("expected signup form; got:\n%s", v)
	}

	m = typeText(t, m, "Neo")
	m = press(t, m, "tab")
	m = typeText(t, m, "neo@example.com")
	m = press(t, m, "tab")
	m = typeText(t, m, "secret")
	m = press(t, m, "enter")

	if m.ws == nil {
		t.Fatalf("expected workspace after signup; err=%q", m.login.err)
	}
	if u := h.ctrl.User(); u == nil || u.Name != "Neo" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestSelectProject_RendersMembersAndIssues(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))

	v := m.View()
	for _, want := range []string{
		"Members for Apollo",
		"User #" + strconv.Itoa(h.manager.ID) + " – MAINTAINER",
		"User #" + strconv.Itoa(h.dev.ID) + " – MEMBER",
		"Crash on start",
		"[OPEN]",
		"HIGH",
	} {
		if !strings.Contains(v, want) {
			t.Fatalf("expected %q in view; got:\n%s", want, v)
		}
	}
	if strings.Contains(v, "(view only)") {
		t.Fatalf("maintainer must not see view-only markers")
	}
}

func TestStatusKey_NonMaintainer_FlashesViewOnly(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "dev@example.com"))
	if !strings.Contains(m.View(), "(view only)") {
		t.Fatalf("expected view-only marker for developer")
	}

	m = press(t, m, "tab")
	m = press(t, m, "s")
	if m.modal != nil {
		t.Fatalf("status picker must not open for non-maintainers")
	}
	if m.minibufferText != "view only" {
		t.Fatalf("flash = %q", m.minibufferText)
	}
	if n := h.b.RequestCount(http.MethodPatch, "/api/issues/"+strconv.Itoa(h.crash.ID)); n != 0 {
		t.Fatalf("expected no PATCH; got %d", n)
	}

	m = press(t, m, "j")
	if m.minibufferText != "" {
		t.Fatalf("expected flash cleared on next key")
	}
}

func TestStatusPicker_ChangesStatus(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))

	m = press(t, m, "tab")
	m = press(t, m, "s")
	if m.modal == nil || m.modal.kind != modalStatus {
		t.Fatalf("expected status picker")
	}
	m = press(t, m, "right")
	m = press(t, m, "enter")

	if m.modal != nil {
		t.Fatalf("expected picker closed; err=%q", m.modal.err)
	}
	got, _ := h.b.Issue(h.crash.ID)
	if got.Status != model.StatusInProgress {
		t.Fatalf("backend status = %q", got.Status)
	}
	if m.ws.Issues[0].Status != model.StatusInProgress {
		t.Fatalf("local status = %q", m.ws.Issues[0].Status)
	}
}

func TestCreateIssue_PriorityCyclesAndDraftResets(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))

	m = press(t, m, "n")
	if m.modal == nil || m.modal.kind != modalIssue {
		t.Fatalf("expected issue modal")
	}
	m = typeText(t, m, "Login button dead")
	m = press(t, m, "tab")
	m = press(t, m, "tab")
	m = press(t, m, "right")
	if m.modal.choiceValue() != string(model.PriorityHigh) {
		t.Fatalf("priority = %q", m.modal.choiceValue())
	}
	m = press(t, m, "enter")

	if len(m.ws.Issues) != 2 || m.ws.Issues[1].Title != "Login button dead" || m.ws.Issues[1].Priority != model.PriorityHigh {
		t.Fatalf("unexpected issues %+v", m.ws.Issues)
	}
	if m.ws.IssueDraft.Title != "" || m.ws.IssueDraft.Priority != model.PriorityMedium {
		t.Fatalf("expected draft reset; got %+v", m.ws.IssueDraft)
	}
}

func TestCreateProject_MissingKeyKeepsModalOpen(t *testing.T) {
	h := newHarness(t)
	m := loginAs(t, h, "mia@example.com")

	m = press(t, m, "p")
	m = typeText(t, m, "Hermes")
	m = press(t, m, "enter")
	if m.modal == nil || m.modal.err != "key is required" {
		t.Fatalf("expected validation error in modal; got %+v", m.modal)
	}

	m = press(t, m, "esc")
	if m.modal != nil || m.ws.ProjectDraft.Name != "Hermes" {
		t.Fatalf("expected modal closed with draft kept; got %+v", m.ws.ProjectDraft)
	}
	m = press(t, m, "p")
	if m.modal.value(0) != "Hermes" {
		t.Fatalf("expected modal prefilled from draft")
	}
}

func TestComment_BlankBodyMakesNoRequest(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))
	m = press(t, m, "tab")
	m = press(t, m, "enter")
	if m.ws.SelectedIssue == nil {
		t.Fatalf("expected issue selected")
	}

	m = press(t, m, "c")
	m = typeText(t, m, "   ")
	m = press(t, m, "enter")
	if m.modal == nil || m.modal.err == "" {
		t.Fatalf("expected blank comment to be refused in the modal")
	}
	if n := h.b.RequestCount(http.MethodPost, "/api/issues/"+strconv.Itoa(h.crash.ID)+"/comments"); n != 0 {
		t.Fatalf("expected no POST; got %d", n)
	}
}

func TestComment_AddedAndRendered(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))
	m = press(t, m, "tab")
	m = press(t, m, "enter")

	m = press(t, m, "c")
	m = typeText(t, m, "Reproduced on **main**")
	m = press(t, m, "enter")

	if len(m.ws.Comments) != 1 || m.ws.CommentDraft != "" {
		t.Fatalf("unexpected comments %+v draft=%q", m.ws.Comments, m.ws.CommentDraft)
	}
	if v := m.View(); !strings.Contains(v, "Reproduced") {
		t.Fatalf("expected comment body in view; got:\n%s", v)
	}
}

func TestUnauthorized_ReloadsToLogin(t *testing.T) {
	h := newHarness(t)
	m := loginAs(t, h, "mia@example.com")

	h.b.FailNext(http.MethodGet, "/api/projects/"+strconv.Itoa(h.apollo.ID)+"/issues", http.StatusUnauthorized)
	m = press(t, m, "enter")

	if m.ws != nil {
		t.Fatalf("expected workspace dropped after 401")
	}
	if h.ctrl.Phase() != session.PhaseLoggedOut || h.storedToken(t) != "" {
		t.Fatalf("expected session cleared; phase=%v", h.ctrl.Phase())
	}
	if v := m.View(); !strings.Contains(v, "Log in") {
		t.Fatalf("expected login view; got:\n%s", v)
	}
}

func TestMutationFailure_FlashesAlert(t *testing.T) {
	h := newHarness(t)
	m := selectApollo(t, loginAs(t, h, "mia@example.com"))

	h.b.FailNext(http.MethodPost, "/api/projects/"+strconv.Itoa(h.apollo.ID)+"/members", http.StatusInternalServerError)
	m = press(t, m, "m")
	m = typeText(t, m, "dev@example.com")
	m = press(t, m, "enter")

	if m.minibufferText != "Failed to add member" {
		t.Fatalf("flash = %q", m.minibufferText)
	}
	if m.ws.MemberDraft.Email != "dev@example.com" {
		t.Fatalf("expected draft kept after failure; got %+v", m.ws.MemberDraft)
	}
}

func TestLogoutKey_ClearsSession(t *testing.T) {
	h := newHarness(t)
	m := loginAs(t, h, "mia@example.com")

	m = press(t, m, "L")
	if m.ws != nil || h.ctrl.Phase() != session.PhaseLoggedOut {
		t.Fatalf("expected logged out")
	}
	if got := h.storedToken(t); got != "" {
		t.Fatalf("expected token cleared; got %q", got)
	}
}

func TestStaleWorkspaceResult_Dropped(t *testing.T) {
	h := newHarness(t)
	m := loginAs(t, h, "mia@example.com")

	old := m.ws
	eff := old.Hydrate()
	m = press(t, m, "L")
	m = submitLogin(t, m, "mia@example.com")

	mm, _ := m.Update(workspaceMsg{ws: old, res: eff(context.Background())})
	m = mm.(appModel)
	if m.ws == old {
		t.Fatalf("expected a fresh synchronizer")
	}
	if m.ws.Loading {
		t.Fatalf("new workspace must not be touched by a stale result")
	}
}
