package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

var (
	menuUp       = key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "nav"))
	menuDown     = key.NewBinding(key.WithKeys("j", "down"))
	startOnboard = key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "set up business"))
)

var sectionTitles = map[auth.Route]string{
	auth.RouteHome:      "Home",
	auth.RouteClubs:     "Clubs",
	auth.RouteInventory: "Inventory",
	auth.RouteSales:     "Sales",
	auth.RouteEmployees: "Employees",
	auth.RouteSettings:  "Settings",
}

// homeModel is the signed-in console: a section menu and the open section.
type homeModel struct {
	auth    *auth.Authority
	section auth.Route
	cursor  int
	session *domain.Session
	now     func() time.Time
}

func newHomeModel(a *auth.Authority) homeModel {
	return homeModel{auth: a, section: auth.RouteHome, now: time.Now}
}

// open points the menu at r.
func (m homeModel) open(r auth.Route, s *domain.Session) homeModel {
	m.section = r
	m.session = s
	for i, sec := range auth.Sections {
		if sec == r {
			m.cursor = i
		}
	}
	return m
}

func (m homeModel) needsOnboarding() bool {
	return m.session != nil && !m.session.User.IsEmployee() && m.session.Club == nil
}

func (m homeModel) Update(msg tea.Msg) (homeModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, menuUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, menuDown):
		if m.cursor < len(auth.Sections)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.Submit):
		return m, navigate(auth.Sections[m.cursor])
	case key.Matches(km, startOnboard):
		if m.needsOnboarding() {
			return m, navigate(auth.RouteOnboarding)
		}
	case key.Matches(km, signOut):
		return m, signOutCmd(m.auth)
	}
	return m, nil
}

func (m homeModel) View() string {
	var menu strings.Builder
	for i, r := range auth.Sections {
		label := fmt.Sprintf(" %-10s ", sectionTitles[r])
		switch {
		case i == m.cursor:
			menu.WriteString(selectedRowBg.Render(selectedStyle.Render(label)))
		case r == m.section:
			menu.WriteString(accentStyle.Render(label))
		default:
			menu.WriteString(dimStyle.Render(label))
		}
		menu.WriteString("\n")
	}

	var body string
	if m.section == auth.RouteHome {
		body = m.welcome()
	} else {
		body = titleStyle.Render(sectionTitles[m.section]) + "\n" +
			dimStyle.Render("Open the web console to manage "+strings.ToLower(sectionTitles[m.section])+".")
	}

	left := strings.Split(strings.TrimRight(menu.String(), "\n"), "\n")
	right := strings.Split(body, "\n")
	var b strings.Builder
	for i := 0; i < max(len(left), len(right)); i++ {
		l := strings.Repeat(" ", 12)
		if i < len(left) {
			l = left[i]
		}
		r := ""
		if i < len(right) {
			r = right[i]
		}
		b.WriteString(" " + l + "  " + r + "\n")
	}
	return b.String()
}

func (m homeModel) welcome() string {
	s := m.session
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome, "+s.User.Name) + "\n")
	b.WriteString(labelStyle.Render("Email") + normalStyle.Render(s.User.Email) + "\n")
	b.WriteString(labelStyle.Render("Account") + KindBadge(string(s.User.Kind)))
	if s.User.Role != "" {
		b.WriteString(dimStyle.Render(" · " + s.User.Role))
	}
	b.WriteString("\n")
	if s.Club != nil {
		b.WriteString(labelStyle.Render("Main club") + normalStyle.Render(s.Club.Name))
		if s.Club.Address != "" {
			b.WriteString(dimStyle.Render(" · " + truncStr(s.Club.Address, 40)))
		}
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Session expires") + dimStyle.Render(formatUntil(s.TokenExpiry(), m.now())) + "\n")
	if m.needsOnboarding() {
		b.WriteString("\n" + warnStyle.Render("Your business is not set up yet. Press o to start.") + "\n")
	}
	return b.String()
}

func (m homeModel) help() string {
	if m.needsOnboarding() {
		return helpBar("j/k", "nav", "enter", "open", "o", "set up business", "ctrl+l", "sign out", "ctrl+c", "quit")
	}
	return helpBar("j/k", "nav", "enter", "open", "ctrl+l", "sign out", "ctrl+c", "quit")
}
