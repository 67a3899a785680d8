package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/pkg/client"
)

const (
	signInEmail = iota
	signInPassword
)

type signInDoneMsg struct {
	err error
}

var (
	toSignUp = key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create account"))
	toForgot = key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "forgot password"))
)

type signInModel struct {
	auth *auth.Authority
	form form
	busy bool
	err  string
}

func newSignInModel(a *auth.Authority) signInModel {
	return signInModel{
		auth: a,
		form: newForm(
			field{label: "Email", placeholder: "you@business.com"},
			field{label: "Password", secret: true},
		),
	}
}

func (m signInModel) Update(msg tea.Msg) (signInModel, tea.Cmd) {
	switch msg := msg.(type) {
	case signInDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			m.form.SetValue(signInPassword, "")
			return m, m.form.FocusInput(signInPassword)
		}
		m.err = ""
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, toSignUp):
			return m, navigate(auth.RouteSignUp)
		case key.Matches(msg, toForgot):
			return m, navigate(auth.RouteForgotPassword)
		case key.Matches(msg, keys.Submit):
			if !m.form.Last() {
				return m, m.form.FocusInput(m.form.Focused() + 1)
			}
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m signInModel) submit() (signInModel, tea.Cmd) {
	email, password := m.form.Value(signInEmail), m.form.Value(signInPassword)
	if email == "" || password == "" {
		m.err = "Email and password are required"
		return m, nil
	}
	m.busy = true
	m.err = ""
	a := m.auth
	return m, func() tea.Msg {
		return signInDoneMsg{err: a.SignIn(context.Background(), email, password)}
	}
}

func (m signInModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Sign in") + "\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Signing in…") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m signInModel) help() string {
	return helpBar("enter", "sign in", "tab", "next", "ctrl+n", "create account", "ctrl+r", "forgot password", "ctrl+c", "quit")
}
