package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"issuehub-cli/internal/apitest"
	"issuehub-cli/internal/model"
	"issuehub-cli/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	return runCLIWithInput(t, nil, args)
}

func runCLIWithInput(t *testing.T, stdin io.Reader, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

type cliEnv struct {
	b       *apitest.Backend
	srv     *httptest.Server
	dir     string
	manager model.User
	dev     model.User
	apollo  model.Project
	crash   model.Issue
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	e := &cliEnv{b: apitest.New(), dir: t.TempDir()}
	t.Setenv("ISSUEHUB_CONFIG_DIR", e.dir)
	t.Setenv("ISSUEHUB_API", "")
	t.Setenv("ISSUEHUB_FORMAT", "")
	t.Setenv("ISSUEHUB_LOG", "")

	e.manager = e.b.SeedUser("Mia", "mia@example.com", "pw")
	e.dev = e.b.SeedUser("Dev", "dev@example.com", "pw")
	e.apollo = e.b.SeedProject(e.manager.ID, "Apollo", "APL")
	e.b.SeedMember(e.apollo.ID, e.dev.ID, model.RoleDeveloper)
	e.crash = e.b.SeedIssue(e.apollo.ID, e.manager.ID, "Crash on start", model.PriorityHigh)
	e.srv = e.b.Start()
	t.Cleanup(e.srv.Close)
	return e
}

// must runs issuehub against the fake backend and decodes the envelope data.
func (e *cliEnv) must(t *testing.T, args ...string) any {
	t.Helper()
	stdout, stderr, err := runCLI(t, append([]string{"--api", e.srv.URL}, args...))
	if err != nil {
		t.Fatalf("command failed: issuehub %v\nerr: %v\nstderr:\n%s", args, err, string(stderr))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, string(stdout))
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected data key; got %v", env)
	}
	return data
}

func (e *cliEnv) fails(t *testing.T, args ...string) string {
	t.Helper()
	_, stderr, err := runCLI(t, append([]string{"--api", e.srv.URL}, args...))
	if err == nil {
		t.Fatalf("expected issuehub %v to fail", args)
	}
	return string(stderr)
}

func (e *cliEnv) storedToken(t *testing.T) string {
	t.Helper()
	ls, err := store.OpenLocalStore(context.Background(), e.dir)
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	defer ls.Close()
	tok, err := store.Tokens{Store: ls}.Token(context.Background())
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	return tok
}

func (e *cliEnv) setToken(t *testing.T, tok string) {
	t.Helper()
	ls, err := store.OpenLocalStore(context.Background(), e.dir)
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	defer ls.Close()
	if err := (store.Tokens{Store: ls}).SetToken(context.Background(), tok); err != nil {
		t.Fatalf("set token: %v", err)
	}
}

func TestLogin_PersistsToken_ThenWhoami(t *testing.T) {
	e := newCLIEnv(t)

	u := e.must(t, "login", "--email", "mia@example.com", "--password", "pw").(map[string]any)
	if u["email"] != "mia@example.com" {
		t.Fatalf("unexpected user %v", u)
	}
	if got := e.storedToken(t); got != apitest.TokenFor(e.manager.ID) {
		t.Fatalf("stored token = %q", got)
	}

	who := e.must(t, "whoami").(map[string]any)
	if who["name"] != "Mia" {
		t.Fatalf("whoami = %v", who)
	}
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	e := newCLIEnv(t)
	_, stderr, err := runCLIWithInput(t, strings.NewReader("pw\n"), []string{"--api", e.srv.URL, "login", "--email", "dev@example.com"})
	if err != nil {
		t.Fatalf("login failed: %v\n%s", err, stderr)
	}
	if got := e.storedToken(t); got != apitest.TokenFor(e.dev.ID) {
		t.Fatalf("stored token = %q", got)
	}
}

func TestLogin_WrongPassword_GenericError(t *testing.T) {
	e := newCLIEnv(t)
	stderr := e.fails(t, "login", "--email", "mia@example.com", "--password", "nope")
	if !strings.Contains(stderr, "Login failed") {
		t.Fatalf("stderr = %q", stderr)
	}
	if strings.Contains(stderr, "Incorrect") {
		t.Fatalf("backend detail must not leak: %q", stderr)
	}
	if got := e.storedToken(t); got != "" {
		t.Fatalf("expected no token; got %q", got)
	}
}

func TestSignup_ExistingAccount_StillLogsIn(t *testing.T) {
	e := newCLIEnv(t)
	u := e.must(t, "signup", "--name", "Mia", "--email", "mia@example.com", "--password", "pw").(map[string]any)
	if int(u["id"].(float64)) != e.manager.ID {
		t.Fatalf("unexpected user %v", u)
	}
}

func TestCommands_RequireLogin(t *testing.T) {
	e := newCLIEnv(t)
	stderr := e.fails(t, "projects", "list")
	if !strings.Contains(stderr, "not logged in") {
		t.Fatalf("stderr = %q", stderr)
	}
	if n := len(e.b.Requests()); n != 0 {
		t.Fatalf("expected no requests; got %d", n)
	}
}

func TestUnauthorized_ClearsStoredToken(t *testing.T) {
	e := newCLIEnv(t)
	e.setToken(t, "tok-999")

	stderr := e.fails(t, "projects", "list")
	if !strings.Contains(stderr, "session expired or invalid; run `issuehub login`") {
		t.Fatalf("stderr = %q", stderr)
	}
	if got := e.storedToken(t); got != "" {
		t.Fatalf("expected token cleared; got %q", got)
	}
	if stderr := e.fails(t, "projects", "list"); !strings.Contains(stderr, "not logged in") {
		t.Fatalf("second call stderr = %q", stderr)
	}
}

func TestWhoami_RejectedToken_ClearsIt(t *testing.T) {
	e := newCLIEnv(t)
	e.setToken(t, "tok-999")
	if stderr := e.fails(t, "whoami"); !strings.Contains(stderr, "session expired") {
		t.Fatalf("stderr = %q", stderr)
	}
	if got := e.storedToken(t); got != "" {
		t.Fatalf("expected token cleared; got %q", got)
	}
}

func TestLogout_ForgetsToken(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")
	out := e.must(t, "logout").(map[string]any)
	if out["loggedOut"] != true {
		t.Fatalf("logout = %v", out)
	}
	if got := e.storedToken(t); got != "" {
		t.Fatalf("expected token cleared; got %q", got)
	}
}

func TestProjectsAndIssues_RoundTrip(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")

	ps := e.must(t, "projects", "list").([]any)
	if len(ps) != 1 || ps[0].(map[string]any)["key"] != "APL" {
		t.Fatalf("projects = %v", ps)
	}

	p := e.must(t, "projects", "create", "--name", "Hermes", "--key", "HRM").(map[string]any)
	pid := strconv.Itoa(int(p["id"].(float64)))

	is := e.must(t, "issues", "create", pid, "--title", "First", "--priority", "low").(map[string]any)
	if is["priority"] != "low" || is["status"] != "open" {
		t.Fatalf("issue = %v", is)
	}
	list := e.must(t, "issues", "list", pid).([]any)
	if len(list) != 1 {
		t.Fatalf("issues = %v", list)
	}
}

func TestProjectsCreate_DuplicateKey_SurfacesDetail(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")
	stderr := e.fails(t, "projects", "create", "--name", "Again", "--key", "APL")
	if !strings.Contains(stderr, "Project with this key already exists") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestIssuesShow_NotFound(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")
	if stderr := e.fails(t, "issues", "show", "999"); !strings.Contains(stderr, "issue not found: 999") {
		t.Fatalf("stderr = %q", stderr)
	}
	if stderr := e.fails(t, "issues", "show", "abc"); !strings.Contains(stderr, "invalid id") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestIssuesSetStatus_ManagerOnly(t *testing.T) {
	e := newCLIEnv(t)
	id := strconv.Itoa(e.crash.ID)

	e.must(t, "login", "--email", "dev@example.com", "--password", "pw")
	if stderr := e.fails(t, "issues", "set-status", id, "--status", "closed"); !strings.Contains(stderr, "403") {
		t.Fatalf("stderr = %q", stderr)
	}
	if got := e.storedToken(t); got == "" {
		t.Fatalf("a 403 must not clear the token")
	}

	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")
	is := e.must(t, "issues", "set-status", id, "--status", "in-progress").(map[string]any)
	if is["status"] != "in_progress" {
		t.Fatalf("issue = %v", is)
	}
}

func TestCommentsAdd_BlankBody_NoRequest(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")
	before := len(e.b.Requests())

	if stderr := e.fails(t, "comments", "add", strconv.Itoa(e.crash.ID), "--body", "   "); !strings.Contains(stderr, "comment body is empty") {
		t.Fatalf("stderr = %q", stderr)
	}
	if n := len(e.b.Requests()); n != before {
		t.Fatalf("expected no request; got %d new", n-before)
	}

	c := e.must(t, "comments", "add", strconv.Itoa(e.crash.ID), "--body", "  looks bad  ").(map[string]any)
	if c["body"] != "looks bad" {
		t.Fatalf("comment = %v", c)
	}
	cs := e.must(t, "comments", "list", strconv.Itoa(e.crash.ID)).([]any)
	if len(cs) != 1 {
		t.Fatalf("comments = %v", cs)
	}
}

func TestMembersAdd_DefaultsToDeveloper(t *testing.T) {
	e := newCLIEnv(t)
	e.b.SeedUser("Bob", "bob@example.com", "pw")
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")

	pid := strconv.Itoa(e.apollo.ID)
	m := e.must(t, "members", "add", pid, "--email", "bob@example.com").(map[string]any)
	if m["role"] != "developer" {
		t.Fatalf("member = %v", m)
	}
	ms := e.must(t, "members", "list", pid).([]any)
	if len(ms) != 3 {
		t.Fatalf("members = %v", ms)
	}
	if stderr := e.fails(t, "members", "add", pid, "--email", "ghost@example.com"); !strings.Contains(stderr, "User not found") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestTextFormat_RendersTable(t *testing.T) {
	e := newCLIEnv(t)
	e.must(t, "login", "--email", "mia@example.com", "--password", "pw")

	stdout, stderr, err := runCLI(t, []string{"--api", e.srv.URL, "--format", "text", "members", "list", strconv.Itoa(e.apollo.ID)})
	if err != nil {
		t.Fatalf("members list: %v\n%s", err, stderr)
	}
	out := string(stdout)
	for _, want := range []string{"ROLE", "User #" + strconv.Itoa(e.manager.ID), "MAINTAINER", "MEMBER"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestConfigSetAndShow(t *testing.T) {
	e := newCLIEnv(t)

	_, stderr, err := runCLI(t, []string{"config", "set", "api-url", "http://issues.example.test:9000/"})
	if err != nil {
		t.Fatalf("config set: %v\n%s", err, stderr)
	}
	stdout, _, err := runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, stdout)
	}
	if env.Data["apiUrl"] != "http://issues.example.test:9000" {
		t.Fatalf("apiUrl = %v", env.Data["apiUrl"])
	}
	if !strings.HasPrefix(env.Data["path"].(string), e.dir) {
		t.Fatalf("config path %v not under %s", env.Data["path"], e.dir)
	}

	if _, _, err := runCLI(t, []string{"config", "set", "api-url", "issues.example.test"}); err == nil {
		t.Fatalf("expected relative url to be rejected")
	}
}

func TestConfiguredAPIURL_IsUsed(t *testing.T) {
	e := newCLIEnv(t)
	if err := store.SaveConfig(&store.Config{APIURL: e.srv.URL}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	_, stderr, err := runCLI(t, []string{"login", "--email", "mia@example.com", "--password", "pw"})
	if err != nil {
		t.Fatalf("login without --api: %v\n%s", err, stderr)
	}
	if n := e.b.RequestCount(http.MethodPost, "/auth/login"); n != 1 {
		t.Fatalf("expected the configured backend to be used; got %d logins", n)
	}
}
