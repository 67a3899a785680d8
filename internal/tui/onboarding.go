package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/pkg/client"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

const (
	onboardClub = iota
	onboardAddress
	onboardProducts
	onboardGoal
)

type onboardingDoneMsg struct {
	err error
}

type onboardingModel struct {
	auth *auth.Authority
	form form
	busy bool
	err  string
}

func newOnboardingModel(a *auth.Authority) onboardingModel {
	return onboardingModel{
		auth: a,
		form: newForm(
			field{label: "Main club name", placeholder: "Downtown"},
			field{label: "Address", placeholder: "optional"},
			field{label: "Products", placeholder: "memberships, classes, retail"},
			field{label: "First goal", placeholder: "optional"},
		),
	}
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m onboardingModel) payload() domain.Onboarding {
	club := domain.Club{Name: m.form.Value(onboardClub), Address: m.form.Value(onboardAddress)}
	return domain.Onboarding{
		ProductTypes: splitList(m.form.Value(onboardProducts)),
		MainClub:     club,
		InitialGoal:  m.form.Value(onboardGoal),
		Clubs:        []domain.Club{club},
	}
}

func (m onboardingModel) Update(msg tea.Msg) (onboardingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case onboardingDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, nil
		}
		m.err = ""
		return m, navigate(auth.RouteHome)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Back):
			return m, navigate(auth.RouteHome)
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

func (m onboardingModel) submit() (onboardingModel, tea.Cmd) {
	o := m.payload()
	if o.MainClub.Name == "" {
		m.err = "The main club needs a name"
		return m, m.form.FocusInput(onboardClub)
	}
	m.busy = true
	m.err = ""
	a := m.auth
	return m, func() tea.Msg {
		return onboardingDoneMsg{err: a.SubmitOnboarding(context.Background(), o)}
	}
}

func (m onboardingModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Set up your business") + "\n")
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

func (m onboardingModel) help() string {
	return helpBar("enter", "next/submit", "tab", "next", "esc", "later")
}
