package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/pkg/client"
)

type resetStepMsg struct {
	err error
}

var resend = key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "resend code"))

// forgotModel walks the reset wizard: email, then code, then new password.
// Each stage has its own form; the flow decides which one is live.
type forgotModel struct {
	flow     *auth.ResetFlow
	email    form
	code     form
	password form
	busy     bool
	err      string
	notice   string
}

func newForgotModel(a *auth.Authority) forgotModel {
	return forgotModel{
		flow:  auth.NewResetFlow(a, nil),
		email: newForm(field{label: "Email", placeholder: "you@business.com"}),
		code:  newForm(field{label: "Code", placeholder: fmt.Sprintf("%d characters", client.ResetCodeLength)}),
		password: newForm(
			field{label: "New password", secret: true},
			field{label: "Confirm password", secret: true},
		),
	}
}

func (m *forgotModel) active() *form {
	switch m.flow.Stage() {
	case auth.StageCode:
		return &m.code
	case auth.StageVerified:
		return &m.password
	}
	return &m.email
}

func (m forgotModel) Update(msg tea.Msg) (forgotModel, tea.Cmd) {
	switch msg := msg.(type) {
	case resetStepMsg:
		if errors.Is(msg.err, auth.ErrFlowDiscarded) {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, nil
		}
		m.err = ""
		switch m.flow.Stage() {
		case auth.StageCode:
			m.notice = "We sent a code to " + m.flow.Email()
			return m, m.code.Reset()
		case auth.StageVerified:
			m.notice = "Code verified. Choose a new password."
		case auth.StageSuccess:
			m.notice = "Password updated. Sign in with your new password."
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		stage := m.flow.Stage()
		switch {
		case key.Matches(msg, keys.Back):
			m.flow.Discard()
			return m, navigate(auth.RouteSignIn)
		case stage == auth.StageSuccess && key.Matches(msg, keys.Submit):
			return m, navigate(auth.RouteSignIn)
		case stage == auth.StageCode && key.Matches(msg, resend):
			return m.run(func(ctx context.Context) error {
				return m.flow.Request(ctx, m.flow.Email())
			})
		case key.Matches(msg, keys.Submit):
			f := m.active()
			if !f.Last() {
				return m, f.FocusInput(f.Focused() + 1)
			}
			return m.submit()
		}
	}
	if m.flow.Stage() == auth.StageSuccess {
		return m, nil
	}
	var cmd tea.Cmd
	f := m.active()
	*f, cmd = f.Update(msg)
	return m, cmd
}

func (m forgotModel) submit() (forgotModel, tea.Cmd) {
	flow := m.flow
	switch flow.Stage() {
	case auth.StageRequest:
		email := m.email.Value(0)
		return m.run(func(ctx context.Context) error { return flow.Request(ctx, email) })
	case auth.StageCode:
		code := m.code.Value(0)
		if err := client.CheckResetCode(code); err != nil {
			m.err = fmt.Sprintf("The code has %d characters", client.ResetCodeLength)
			return m, nil
		}
		return m.run(func(ctx context.Context) error { return flow.Verify(ctx, code) })
	case auth.StageVerified:
		pw, confirm := m.password.Value(0), m.password.Value(1)
		if pw != confirm {
			m.err = "Passwords do not match"
			return m, nil
		}
		if len([]rune(pw)) < auth.MinPasswordLength {
			m.err = fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)
			return m, nil
		}
		return m.run(func(ctx context.Context) error { return flow.Complete(ctx, pw, confirm) })
	}
	return m, nil
}

func (m forgotModel) run(step func(context.Context) error) (forgotModel, tea.Cmd) {
	m.busy = true
	m.err = ""
	return m, func() tea.Msg {
		return resetStepMsg{err: step(context.Background())}
	}
}

func (m forgotModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Reset password") + "\n")

	steps := []struct {
		stage auth.ResetStage
		label string
	}{
		{auth.StageRequest, "email"},
		{auth.StageCode, "code"},
		{auth.StageVerified, "new password"},
	}
	cur := m.flow.Stage()
	var parts []string
	for _, s := range steps {
		switch {
		case s.stage == cur:
			parts = append(parts, accentStyle.Render(s.label))
		case s.stage < cur:
			parts = append(parts, successStyle.Render(s.label))
		default:
			parts = append(parts, metaStyle.Render(s.label))
		}
	}
	b.WriteString("  " + strings.Join(parts, metaStyle.Render(" › ")) + "\n\n")

	if m.notice != "" {
		b.WriteString("  " + dimStyle.Render(m.notice) + "\n\n")
	}
	if cur != auth.StageSuccess {
		b.WriteString(m.active().View())
		b.WriteString("\n")
	}
	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Working…") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m forgotModel) help() string {
	switch m.flow.Stage() {
	case auth.StageCode:
		return helpBar("enter", "verify", "ctrl+r", "resend code", "esc", "cancel")
	case auth.StageSuccess:
		return helpBar("enter", "sign in")
	}
	return helpBar("enter", "continue", "tab", "next", "esc", "cancel")
}
