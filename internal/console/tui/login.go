package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/service"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

// loginResultMsg carries the outcome of a login request.
type loginResultMsg struct {
	profile domain.UserProfile
	err     error
}

type loginModel struct {
	gateway    *service.AuthGateway
	fields     [numLoginFields]string
	focus      loginField
	err        string
	submitting bool
}

func newLoginModel(g *service.AuthGateway) loginModel {
	return loginModel{gateway: g}
}

func (m loginModel) Update(ctx context.Context, msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err.Error()
			m.fields[fieldPassword] = ""
			m.focus = fieldPassword
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(ctx, msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(ctx context.Context, msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % numLoginFields
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + numLoginFields) % numLoginFields
	case "enter":
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			return m, nil
		}
		return m.submit(ctx)
	case "backspace":
		f := &m.fields[m.focus]
		*f = editRune(*f, "backspace")
	default:
		f := &m.fields[m.focus]
		switch msg.Type {
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				*f = editRune(*f, string(r))
			}
		case tea.KeySpace:
			*f = editRune(*f, " ")
		}
	}
	return m, nil
}

func (m loginModel) submit(ctx context.Context) (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]

	if err := service.ValidateCredentials(email, password); err != nil {
		m.err = err.Error()
		return m, nil
	}

	m.err = ""
	m.submitting = true
	g := m.gateway
	return m, func() tea.Msg {
		profile, err := g.Login(ctx, email, password)
		return loginResultMsg{profile: profile, err: err}
	}
}

func (m loginModel) reset() loginModel {
	return newLoginModel(m.gateway)
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sign in"))
	b.WriteString("\n\n")

	labels := [numLoginFields]string{"email", "password"}
	for i := loginField(0); i < numLoginFields; i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = mask(value)
		}
		cursor := " "
		style := metaStyle
		if i == m.focus {
			cursor = ">"
			style = selectedStyle
			value += "█"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", cursor, style.Render(fmt.Sprintf("%-8s", labels[i])), value)
	}

	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(dimStyle.Render("signing in..."))
	case m.err != "":
		b.WriteString(errorStyle.Render(m.err))
	}
	return b.String()
}
