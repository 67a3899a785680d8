// Package tui is the interactive console. The root App asks the route guard
// which screen may render after every auth state change.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/clubdesk/internal/auth"
)

// stateChangedMsg carries a new authority snapshot.
type stateChangedMsg struct {
	state auth.State
}

// navigateMsg asks the App to show a route, subject to the guard.
type navigateMsg struct {
	to auth.Route
}

func navigate(r auth.Route) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: r} }
}

// waitForState blocks until the authority publishes, then delivers it.
func waitForState(ch <-chan auth.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateChangedMsg{state: st}
	}
}

// App is the root Bubbletea model.
type App struct {
	auth    *auth.Authority
	updates <-chan auth.State
	cancel  func()
	version string

	state auth.State
	// route is where the user asked to go; shown is what the guard allowed.
	// shown is empty while the session is loading.
	route auth.Route
	shown auth.Route

	signin     signInModel
	signup     signUpModel
	forgot     forgotModel
	changepw   changePasswordModel
	onboarding onboardingModel
	home       homeModel

	flash  string
	width  int
	height int
	frame  int
}

// NewApp creates the console bound to a. Call Close when the program exits.
func NewApp(a *auth.Authority, version string) App {
	ch, cancel := a.Subscribe()
	return App{
		auth:    a,
		updates: ch,
		cancel:  cancel,
		version: version,
		state:   a.State(),
		route:   auth.RouteHome,
		home:    newHomeModel(a),
		width:   80,
		height:  24,
	}
}

// Close stops listening for auth state changes.
func (a App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a App) Init() tea.Cmd {
	authority := a.auth
	return tea.Batch(
		waitForState(a.updates),
		// Start publishes the rehydrated state to the subscription.
		func() tea.Msg {
			authority.Start()
			return nil
		},
		shimmerTickCmd(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case stateChangedMsg:
		a.state = msg.state
		var cmd tea.Cmd
		a, cmd = a.reroute()
		return a, tea.Batch(cmd, waitForState(a.updates))

	case navigateMsg:
		a.route = msg.to
		a.flash = ""
		return a.reroute()

	// Results go to the screen that started them, even if the guard has
	// already moved on.
	case signInDoneMsg:
		var cmd tea.Cmd
		a.signin, cmd = a.signin.Update(msg)
		return a, cmd
	case signUpDoneMsg:
		var cmd tea.Cmd
		a.signup, cmd = a.signup.Update(msg)
		return a, cmd
	case resetStepMsg:
		var cmd tea.Cmd
		a.forgot, cmd = a.forgot.Update(msg)
		return a, cmd
	case changePasswordDoneMsg:
		var cmd tea.Cmd
		a.changepw, cmd = a.changepw.Update(msg)
		return a, cmd
	case onboardingDoneMsg:
		var cmd tea.Cmd
		a.onboarding, cmd = a.onboarding.Update(msg)
		return a, cmd
	case signOutDoneMsg:
		if msg.err != nil {
			a.flash = "Signed out, but the saved session could not be removed: " + msg.err.Error()
		} else {
			a.flash = "Signed out."
		}
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return a, tea.Quit
		}
		if a.shown == "" {
			return a, nil
		}
	}

	return a.updateScreen(msg)
}

// reroute applies the guard to the requested route. A screen entered afresh
// starts with empty forms.
func (a App) reroute() (App, tea.Cmd) {
	to, ok := auth.Resolve(a.state, a.route)
	if !ok {
		a.shown = ""
		return a, nil
	}
	a.route = to
	fresh := to != a.shown
	a.shown = to

	switch to {
	case auth.RouteSignIn:
		if fresh {
			a.signin = newSignInModel(a.auth)
		}
	case auth.RouteSignUp:
		if fresh {
			a.signup = newSignUpModel(a.auth)
		}
	case auth.RouteForgotPassword:
		if fresh {
			a.forgot = newForgotModel(a.auth)
		}
	case auth.RouteChangePassword:
		if fresh {
			a.changepw = newChangePasswordModel(a.auth)
		}
	case auth.RouteOnboarding:
		if fresh {
			a.onboarding = newOnboardingModel(a.auth)
		}
	default:
		a.home = a.home.open(to, a.state.Session)
	}
	return a, nil
}

func (a App) updateScreen(msg tea.Msg) (App, tea.Cmd) {
	var cmd tea.Cmd
	switch a.shown {
	case auth.RouteSignIn:
		a.signin, cmd = a.signin.Update(msg)
	case auth.RouteSignUp:
		a.signup, cmd = a.signup.Update(msg)
	case auth.RouteForgotPassword:
		a.forgot, cmd = a.forgot.Update(msg)
	case auth.RouteChangePassword:
		a.changepw, cmd = a.changepw.Update(msg)
	case auth.RouteOnboarding:
		a.onboarding, cmd = a.onboarding.Update(msg)
	case "":
	default:
		a.home, cmd = a.home.Update(msg)
	}
	return a, cmd
}

// Shown is the route currently rendered, or "" while loading.
func (a App) Shown() auth.Route {
	return a.shown
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	pad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", pad) + logo + "\n"

	status := ""
	if s := a.state.Session; s != nil {
		parts := []string{s.User.Name, KindBadge(string(s.User.Kind))}
		if s.Club != nil {
			parts = append(parts, s.Club.Name)
		}
		status = strings.Join(parts, metaStyle.Render(" · "))
	}
	if status != "" {
		sp := max((a.width-lipgloss.Width(status))/2, 0)
		header += strings.Repeat(" ", sp) + status
	}

	var body, help string
	switch a.shown {
	case "":
		body = "\n  " + dimStyle.Render("Restoring session…")
		help = helpBar("ctrl+c", "quit")
	case auth.RouteSignIn:
		body, help = a.signin.View(), a.signin.help()
	case auth.RouteSignUp:
		body, help = a.signup.View(), a.signup.help()
	case auth.RouteForgotPassword:
		body, help = a.forgot.View(), a.forgot.help()
	case auth.RouteChangePassword:
		body, help = a.changepw.View(), a.changepw.help()
	case auth.RouteOnboarding:
		body, help = a.onboarding.View(), a.onboarding.help()
	default:
		body, help = a.home.View(), a.home.help()
	}
	if a.flash != "" {
		body = "  " + dimStyle.Render(a.flash) + "\n" + body
	}

	// Chrome: header(2) + blank(1) + version/help(2)
	const chrome = 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	footer := metaStyle.Render(fmt.Sprintf(" clubdesk %s", a.version))
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", header, body, footer, help)
}
