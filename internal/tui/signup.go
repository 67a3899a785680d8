package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/internal/browser"
	"github.com/naveenspark/clubdesk/pkg/client"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

// TermsURL is the page opened from the sign-up form.
const TermsURL = "https://clubdesk.app/terms"

const (
	signUpName = iota
	signUpEmail
	signUpPassword
	signUpConfirm
)

type signUpDoneMsg struct {
	err error
}

var (
	toggleTerms  = key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "accept terms"))
	openTerms    = key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "read terms"))
	nextBusiness = key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "business type"))
)

type signUpModel struct {
	auth     *auth.Authority
	form     form
	business int
	terms    bool
	busy     bool
	err      string
	// openURL is swapped in tests.
	openURL func(string) error
}

func newSignUpModel(a *auth.Authority) signUpModel {
	return signUpModel{
		auth: a,
		form: newForm(
			field{label: "Full name", placeholder: "Ana Lima"},
			field{label: "Email", placeholder: "you@business.com"},
			field{label: "Password", placeholder: fmt.Sprintf("%d+ characters", auth.MinPasswordLength), secret: true},
			field{label: "Confirm password", secret: true},
		),
		openURL: browser.Open,
	}
}

func (m signUpModel) Update(msg tea.Msg) (signUpModel, tea.Cmd) {
	switch msg := msg.(type) {
	case signUpDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, nil
		}
		m.err = ""
		// New owners set up their business first.
		return m, navigate(auth.RouteOnboarding)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			return m, navigate(auth.RouteSignIn)
		case key.Matches(msg, toggleTerms):
			m.terms = !m.terms
			return m, nil
		case key.Matches(msg, nextBusiness):
			m.business = (m.business + 1) % len(domain.BusinessTypes)
			return m, nil
		case key.Matches(msg, openTerms):
			if err := m.openURL(TermsURL); err != nil {
				m.err = "Could not open browser: " + TermsURL
			}
			return m, nil
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

func (m signUpModel) profile() domain.RegisterProfile {
	return domain.RegisterProfile{
		FullName:        m.form.Value(signUpName),
		Email:           m.form.Value(signUpEmail),
		Password:        m.form.Value(signUpPassword),
		ConfirmPassword: m.form.Value(signUpConfirm),
		BusinessType:    domain.BusinessTypes[m.business],
		AcceptedTerms:   m.terms,
	}
}

func (m signUpModel) submit() (signUpModel, tea.Cmd) {
	p := m.profile()
	switch {
	case p.FullName == "" || p.Email == "":
		m.err = "Name and email are required"
		return m, nil
	case p.Password != p.ConfirmPassword:
		m.err = "Passwords do not match"
		return m, nil
	case len([]rune(p.Password)) < auth.MinPasswordLength:
		m.err = fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)
		return m, nil
	case !p.AcceptedTerms:
		m.err = "Accept the terms to continue (ctrl+t)"
		return m, nil
	}
	m.busy = true
	m.err = ""
	a := m.auth
	return m, func() tea.Msg {
		return signUpDoneMsg{err: a.SignUp(context.Background(), p)}
	}
}

func (m signUpModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Create your account") + "\n")
	b.WriteString(m.form.View())

	b.WriteString("  " + labelStyle.Render("Business type"))
	for i, bt := range domain.BusinessTypes {
		if i == m.business {
			b.WriteString(selectedRowBg.Render(accentStyle.Render(" " + bt + " ")))
		} else {
			b.WriteString(dimStyle.Render(" " + bt + " "))
		}
	}
	b.WriteString("\n")

	box := "[ ]"
	if m.terms {
		box = accentStyle.Render("[x]")
	}
	b.WriteString("  " + box + " " + normalStyle.Render("I accept the terms of service") + "\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Creating account…") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m signUpModel) help() string {
	return helpBar("enter", "next/submit", "ctrl+b", "business type", "ctrl+t", "terms", "ctrl+o", "read terms", "esc", "sign in")
}
