package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/pkg/client"
)

type changePasswordDoneMsg struct {
	err error
}

type signOutDoneMsg struct {
	err error
}

var signOut = key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sign out"))

// changePasswordModel is the first-login gate. Until it succeeds the guard
// keeps an employee here; the only other way out is signing out.
type changePasswordModel struct {
	auth *auth.Authority
	form form
	busy bool
	err  string
}

func newChangePasswordModel(a *auth.Authority) changePasswordModel {
	return changePasswordModel{
		auth: a,
		form: newForm(
			field{label: "New password", placeholder: fmt.Sprintf("%d+ characters", auth.MinPasswordLength), secret: true},
			field{label: "Confirm password", secret: true},
		),
	}
}

func (m changePasswordModel) Update(msg tea.Msg) (changePasswordModel, tea.Cmd) {
	switch msg := msg.(type) {
	case changePasswordDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, m.form.Reset()
		}
		m.err = ""
		return m, navigate(auth.RouteHome)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, signOut):
			return m, signOutCmd(m.auth)
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

func (m changePasswordModel) submit() (changePasswordModel, tea.Cmd) {
	pw, confirm := m.form.Value(0), m.form.Value(1)
	if pw != confirm {
		m.err = "Passwords do not match"
		return m, nil
	}
	if len([]rune(pw)) < auth.MinPasswordLength {
		m.err = fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)
		return m, nil
	}
	m.busy = true
	m.err = ""
	a := m.auth
	return m, func() tea.Msg {
		return changePasswordDoneMsg{err: a.ChangePassword(context.Background(), pw, confirm)}
	}
}

func signOutCmd(a *auth.Authority) tea.Cmd {
	return func() tea.Msg {
		return signOutDoneMsg{err: a.SignOut(context.Background())}
	}
}

func (m changePasswordModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Choose your password") + "\n")
	b.WriteString("  " + warnStyle.Render("Your account was created with a temporary password.") + "\n")
	b.WriteString("  " + dimStyle.Render("Set a new one to continue.") + "\n\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Saving…") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m changePasswordModel) help() string {
	return helpBar("enter", "save", "tab", "next", "ctrl+l", "sign out", "ctrl+c", "quit")
}
