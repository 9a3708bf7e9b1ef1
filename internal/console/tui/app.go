// Package tui is the interactive console: a login screen, a role-based
// menu and guarded screens for every route.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/service"
)

// maxRedirects stops a misconfigured route table from bouncing forever.
const maxRedirects = 8

// startMsg opens the first screen.
type startMsg struct{}

// Deps are the services the App drives.
type Deps struct {
	Policy    *domain.RoutePolicy
	Gateway   *service.AuthGateway
	Access    *service.AccessPolicy
	Guard     *service.NavigationGuard
	Sync      *service.CrossContextSync
	History   *service.NavigationHistory
	Navigator *Navigator
}

// App is the root Bubbletea model.
type App struct {
	ctx       context.Context
	deps      Deps
	location  string
	returnURL string
	login     loginModel
	menu      []service.MenuEntry
	cursor    int
	status    string
	width     int
	height    int
}

func NewApp(ctx context.Context, deps Deps) App {
	return App{
		ctx:   ctx,
		deps:  deps,
		login: newLoginModel(deps.Gateway),
	}
}

func (a App) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	a, cmd := a.update(msg)
	return a.applyRedirects(), cmd
}

func (a App) update(msg tea.Msg) (App, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case startMsg:
		return a.open(a.deps.Policy.LandingPath(), true), nil

	case redirectsPendingMsg:
		return a, nil

	case loginResultMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(a.ctx, msg)
		if msg.err != nil {
			return a, cmd
		}
		target := a.returnURL
		if target == "" {
			target = a.deps.Policy.LandingPath()
		}
		a.returnURL = ""
		a.status = fmt.Sprintf("signed in as %s", msg.profile.FullName)
		return a.open(target, true), cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.onLoginScreen() {
			var cmd tea.Cmd
			a.login, cmd = a.login.Update(a.ctx, msg)
			return a, cmd
		}
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.menu)-1 {
			a.cursor++
		}
	case "enter":
		if a.cursor < len(a.menu) {
			a.status = ""
			return a.open(a.menu[a.cursor].Path, true), nil
		}
	case "b", "backspace":
		return a.back(), nil
	case "L":
		if err := a.deps.Sync.Logout(a.ctx); err != nil {
			a.status = "logout incomplete: " + err.Error()
		} else {
			a.status = "signed out"
		}
		a.login = a.login.reset()
	}
	return a, nil
}

// open asks the guard to enter path. A denial leaves the location alone;
// the guard's redirect arrives through the navigator.
func (a App) open(path string, push bool) App {
	d := a.deps.Guard.OnRouteChange(a.ctx, path)
	if !d.Allowed() {
		a.status = a.denialStatus(d)
		return a
	}
	return a.enter(path, push)
}

func (a App) back() App {
	path, ok := a.deps.History.Back()
	if !ok {
		a.status = "nothing to go back to"
		return a
	}
	if a.deps.Sync.OnPopState(a.ctx, path) {
		a.status = "session ended, please sign in"
		return a
	}
	d := a.deps.Guard.OnHistoryNavigation(a.ctx, path)
	if !d.Allowed() {
		a.status = a.denialStatus(d)
		return a
	}
	return a.enter(path, false)
}

func (a App) enter(path string, push bool) App {
	if push && a.deps.History.Current() != path {
		a.deps.History.Push(path)
	}
	if a.isLoginPath(path) && !a.isLoginPath(a.location) {
		a.login = a.login.reset()
	}
	a.location = path
	a.menu = service.Flatten(service.Menu(a.ctx, a.deps.Policy, a.deps.Access))
	a.cursor = 0
	for i, it := range a.menu {
		if it.Path == domain.CleanPath(path) {
			a.cursor = i
		}
	}
	return a
}

func (a App) applyRedirects() App {
	if a.deps.Navigator == nil {
		return a
	}
	for range maxRedirects {
		pending := a.deps.Navigator.Drain()
		if len(pending) == 0 {
			return a
		}
		for _, r := range pending {
			if a.isLoginPath(r.Path) {
				a.returnURL = r.ReturnURL
			}
			a = a.open(r.Path, true)
		}
	}
	a.status = "too many redirects"
	return a
}

func (a App) onLoginScreen() bool {
	return a.isLoginPath(a.location)
}

func (a App) isLoginPath(path string) bool {
	return path != "" && domain.CleanPath(path) == a.deps.Policy.LoginPath()
}

func (a App) denialStatus(d service.Decision) string {
	if a.isLoginPath(d.Redirect.Path) {
		return "please sign in to continue"
	}
	return fmt.Sprintf("you do not have access to %s", d.Path)
}

func (a App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TENANT CONSOLE"))
	if user := a.userLine(); user != "" {
		b.WriteString("  " + dimStyle.Render(user))
	}
	b.WriteString("\n\n")

	if a.onLoginScreen() || a.location == "" {
		b.WriteString(a.login.View())
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			sidebarStyle.Render(a.sidebarView()),
			contentStyle.Render(a.screenView()),
		))
	}

	b.WriteString("\n\n")
	if a.status != "" {
		b.WriteString(noticeStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(a.helpView())
	return b.String()
}

func (a App) userLine() string {
	if !a.deps.Access.IsAuthenticated(a.ctx) {
		return ""
	}
	sess, ok := a.deps.Access.Sessions.ReadSession(a.ctx)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s (%s)", sess.Profile.FullName, sess.Profile.UserType)
}

func (a App) sidebarView() string {
	if len(a.menu) == 0 {
		return metaStyle.Render("no screens available")
	}
	var b strings.Builder
	for i, it := range a.menu {
		cursor := "  "
		style := normalStyle
		if i == a.cursor {
			cursor = "> "
			style = selectedStyle
		}
		fmt.Fprintf(&b, "%s%s%s\n", cursor, strings.Repeat("  ", it.Depth), style.Render(it.Label))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) screenView() string {
	var b strings.Builder

	title := a.location
	if r, ok := a.deps.Policy.Match(a.location); ok && r.Label != "" {
		title = r.Label
	}
	b.WriteString(selectedStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(a.location))
	b.WriteString("\n\n")

	if domain.CleanPath(a.location) != a.deps.Policy.LandingPath() {
		b.WriteString(dimStyle.Render("Nothing to show here yet."))
		return b.String()
	}

	sess, ok := a.deps.Access.Sessions.ReadSession(a.ctx)
	if !ok {
		return b.String()
	}
	rows := [][2]string{
		{"name", sess.Profile.FullName},
		{"email", sess.Profile.EmailID},
		{"mobile", sess.Profile.Mobile},
		{"tenant", sess.Profile.TenantID},
		{"role", sess.Profile.UserType},
	}
	if !sess.LoginTime.IsZero() {
		rows = append(rows, [2]string{"signed in", sess.LoginTime.Local().Format(time.DateTime)})
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", r[0])), normalStyle.Render(r[1]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) helpView() string {
	type binding struct{ key, label string }
	var keys []binding
	if a.onLoginScreen() {
		keys = []binding{{"tab", "next field"}, {"enter", "sign in"}, {"ctrl+c", "quit"}}
	} else {
		keys = []binding{{"↑/↓", "select"}, {"enter", "open"}, {"b", "back"}, {"L", "logout"}, {"q", "quit"}}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpLabelStyle.Render(k.label))
	}
	return strings.Join(parts, "  ")
}
