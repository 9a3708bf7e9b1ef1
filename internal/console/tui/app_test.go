package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantconsole/internal/console/routes"
	"github.com/aussiebroadwan/tenantconsole/internal/console/service"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/memory"
	"github.com/aussiebroadwan/tenantconsole/pkg/tenantsdk"
)

type testEnv struct {
	other    *memory.Scope
	sessions *service.SessionStore
}

func newBackend(t *testing.T, role string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tenantsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]any{"statusCode": 112, "statusMessage": "Login successful"},
			"data": map[string]any{
				"id":       "6650f1",
				"userId":   "u-100",
				"fullName": "Ada Lovelace",
				"tenantId": "t-7",
				"emailId":  req.UserEmail,
				"userType": role,
				"active":   true,
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, role string) (App, *testEnv) {
	t.Helper()

	policy, err := routes.Default()
	require.NoError(t, err)

	backing := memory.NewBacking()
	persistent := backing.Open()
	sessions := service.NewSessionStore(persistent, memory.NewScope())
	access := service.NewAccessPolicy(sessions)
	nav := NewNavigator()
	guard := service.NewNavigationGuard(policy, access, nav)
	history := service.NewNavigationHistory("")
	sync := service.NewCrossContextSync(persistent, sessions, guard, history, nil)
	sync.Start()
	t.Cleanup(sync.Stop)

	gateway := service.NewAuthGateway(tenantsdk.NewClient(newBackend(t, role).URL), sessions)
	gateway.Limiter = nil

	a := NewApp(context.Background(), Deps{
		Policy:    policy,
		Gateway:   gateway,
		Access:    access,
		Guard:     guard,
		Sync:      sync,
		History:   history,
		Navigator: nav,
	})
	a.width = 100
	a.height = 30

	return a, &testEnv{other: backing.Open(), sessions: sessions}
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func start(t *testing.T, a App) App {
	t.Helper()
	a, _ = update(t, a, a.Init()())
	return a
}

func signIn(t *testing.T, a App, password string) App {
	t.Helper()

	a, _ = update(t, a, key("ada@example.com"))
	a, _ = update(t, a, key("tab"))
	a, _ = update(t, a, key(password))
	a, cmd := update(t, a, key("enter"))
	require.NotNil(t, cmd, "expected login command")
	require.True(t, a.login.submitting)

	a, _ = update(t, a, cmd())
	return a
}

func TestStartRedirectsToLogin(t *testing.T) {
	a, _ := newTestApp(t, "TenantUser")
	a = start(t, a)

	require.Equal(t, "/auth/login", a.location)
	require.Equal(t, "/dashboard", a.returnURL)
	require.Contains(t, a.View(), "Sign in")
}

func TestLoginFlow(t *testing.T) {
	a, env := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	require.Equal(t, "/dashboard", a.location)
	require.True(t, env.sessions.IsValid(context.Background()))
	require.Len(t, a.menu, 5)

	view := a.View()
	require.Contains(t, view, "Ada Lovelace (TenantUser)")
	require.Contains(t, view, "Candidates")
	require.NotContains(t, view, "Tenants")

	a, _ = update(t, a, key("down"))
	a, _ = update(t, a, key("down"))
	a, _ = update(t, a, key("enter"))
	require.Equal(t, "/candidates", a.location)
}

func TestLoginPreCheck(t *testing.T) {
	a, _ := newTestApp(t, "TenantUser")
	a = start(t, a)

	a, _ = update(t, a, key("ada"))
	a, _ = update(t, a, key("tab"))
	a, _ = update(t, a, key("secret1"))
	a, cmd := update(t, a, key("enter"))

	require.Nil(t, cmd)
	require.Equal(t, service.ErrInvalidEmail.Error(), a.login.err)
}

func TestLoginFailureShowsMessage(t *testing.T) {
	a, env := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "wrong-password")

	require.Equal(t, "/auth/login", a.location)
	require.False(t, env.sessions.IsValid(context.Background()))
	require.Contains(t, a.View(), "Invalid email or password. Please try again.")
	require.Empty(t, a.login.fields[fieldPassword])
}

func TestRoleDenialReturnsToLanding(t *testing.T) {
	a, _ := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	a = a.open("/tenants", true).applyRedirects()
	require.Equal(t, "/dashboard", a.location)
	require.Equal(t, "you do not have access to /tenants", a.status)
}

func TestLogout(t *testing.T) {
	a, env := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	a, _ = update(t, a, key("L"))
	require.Equal(t, "/auth/login", a.location)
	require.Empty(t, a.returnURL)
	require.False(t, env.sessions.IsValid(context.Background()))
	require.Empty(t, a.login.fields[fieldEmail])
}

func TestLogoutFromAnotherConsole(t *testing.T) {
	a, env := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	require.NoError(t, env.other.Set(context.Background(), service.KeyLoggedIn, "false"))

	a, _ = update(t, a, redirectsPendingMsg{})
	require.Equal(t, "/auth/login", a.location)
}

func TestBackAfterExternalLogout(t *testing.T) {
	a, env := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	a, _ = update(t, a, key("down"))
	a, _ = update(t, a, key("enter"))
	require.Equal(t, "/users", a.location)

	require.NoError(t, env.other.Delete(context.Background(), service.KeyLoggedIn))

	a, _ = update(t, a, key("b"))
	require.Equal(t, "/auth/login", a.location)
}

func TestBackWhileSignedIn(t *testing.T) {
	a, _ := newTestApp(t, "TenantUser")
	a = start(t, a)
	a = signIn(t, a, "secret1")

	a, _ = update(t, a, key("down"))
	a, _ = update(t, a, key("enter"))
	require.Equal(t, "/users", a.location)

	a, _ = update(t, a, key("b"))
	require.Equal(t, "/dashboard", a.location)
}

func TestQuit(t *testing.T) {
	a, _ := newTestApp(t, "TenantUser")
	a = start(t, a)

	// q is text on the login screen.
	a, cmd := update(t, a, key("q"))
	require.Nil(t, cmd)
	require.Equal(t, "q", a.login.fields[fieldEmail])

	_, cmd = update(t, a, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestEditRune(t *testing.T) {
	require.Equal(t, "ab", editRune("a", "b"))
	require.Equal(t, "a", editRune("ab", "backspace"))
	require.Equal(t, "", editRune("", "backspace"))
	require.Equal(t, "a", editRune("a", "ctrl+x"))
	require.Equal(t, strings.Repeat("x", maxInputLen), editRune(strings.Repeat("x", maxInputLen), "y"))
	require.Equal(t, "•••", mask("abc"))
}
