package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/clubdesk/internal/auth"
	"github.com/naveenspark/clubdesk/internal/session"
	"github.com/naveenspark/clubdesk/pkg/client"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

// stubGateway answers every backend call from its fields.
type stubGateway struct {
	session   *domain.Session
	loginErr  error
	changeErr error
	verifyErr error
	club      *domain.Club
	calls     []string
}

func (g *stubGateway) Login(context.Context, string, string) (*domain.Session, error) {
	g.calls = append(g.calls, "login")
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	return g.session.Clone(), nil
}

func (g *stubGateway) Register(context.Context, domain.RegisterProfile) (*domain.Session, error) {
	g.calls = append(g.calls, "register")
	return g.session.Clone(), nil
}

func (g *stubGateway) Logout(context.Context, string) error {
	g.calls = append(g.calls, "logout")
	return nil
}

func (g *stubGateway) RequestPasswordReset(context.Context, string) error {
	g.calls = append(g.calls, "request-reset")
	return nil
}

func (g *stubGateway) VerifyResetCode(context.Context, string, string) (string, error) {
	g.calls = append(g.calls, "verify-reset-code")
	return "ok", g.verifyErr
}

func (g *stubGateway) ResetPassword(context.Context, string, string, string) error {
	g.calls = append(g.calls, "reset-password")
	return nil
}

func (g *stubGateway) SubmitOnboarding(context.Context, string, domain.Onboarding) (*domain.Club, error) {
	g.calls = append(g.calls, "onboarding")
	return g.club, nil
}

func (g *stubGateway) ChangePassword(context.Context, string, string, string) error {
	g.calls = append(g.calls, "change-password")
	return g.changeErr
}

func owner() *domain.Session {
	return &domain.Session{
		Token: "tok",
		User:  domain.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Kind: domain.AccountOwner},
		Club:  &domain.Club{ID: "c1", Name: "Downtown"},
	}
}

func gatedEmployee() *domain.Session {
	return &domain.Session{
		Token: "emp",
		User:  domain.User{ID: "e1", Name: "Bo", Email: "bo@example.com", Kind: domain.AccountEmployee, IsFirstLogin: true},
	}
}

// newTestApp builds an App over a started authority. stored is the session
// found at startup, or nil.
func newTestApp(t *testing.T, gw *stubGateway, stored *domain.Session) (App, *auth.Authority) {
	t.Helper()
	store := session.NewMemoryStore()
	if stored != nil {
		if err := store.Save(stored); err != nil {
			t.Fatal(err)
		}
	}
	a := auth.New(gw, store, nil)
	app := NewApp(a, "test")
	t.Cleanup(app.Close)
	a.Start()
	app = update(t, app, stateChangedMsg{state: a.State()})
	return app, a
}

func update(t *testing.T, app App, msg tea.Msg) App {
	t.Helper()
	m, _ := app.Update(msg)
	return m.(App)
}

// updateCmd returns the command too, for screens that start backend calls.
func updateCmd(t *testing.T, app App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := app.Update(msg)
	return m.(App), cmd
}

func typeText(t *testing.T, app App, s string) App {
	t.Helper()
	return update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func enter(t *testing.T, app App) (App, tea.Cmd) {
	t.Helper()
	return updateCmd(t, app, tea.KeyMsg{Type: tea.KeyEnter})
}

// settle feeds the result of a backend command and the state it produced.
func settle(t *testing.T, app App, a *auth.Authority, cmd tea.Cmd) (App, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	done := cmd()
	app = update(t, app, stateChangedMsg{state: a.State()})
	return updateCmd(t, app, done)
}

func TestAppShowsLoadingUntilStateArrives(t *testing.T) {
	a := auth.New(&stubGateway{}, session.NewMemoryStore(), nil)
	app := NewApp(a, "test")
	defer app.Close()

	if app.Shown() != "" {
		t.Fatalf("expected loading, shown=%q", app.Shown())
	}
	if !strings.Contains(app.View(), "Restoring session") {
		t.Error("loading view missing")
	}
	// Keys other than quit are ignored while loading.
	app = typeText(t, app, "x")
	if app.Shown() != "" {
		t.Errorf("shown=%q after key while loading", app.Shown())
	}
}

func TestAppLoggedOutLandsOnSignIn(t *testing.T) {
	app, _ := newTestApp(t, &stubGateway{}, nil)
	if app.Shown() != auth.RouteSignIn {
		t.Fatalf("shown=%q, want sign-in", app.Shown())
	}
	app = update(t, app, navigateMsg{to: auth.RouteInventory})
	if app.Shown() != auth.RouteSignIn {
		t.Errorf("protected route reachable logged out: %q", app.Shown())
	}
}

func TestAppRestoredOwnerLandsHome(t *testing.T) {
	app, _ := newTestApp(t, &stubGateway{}, owner())
	if app.Shown() != auth.RouteHome {
		t.Fatalf("shown=%q, want home", app.Shown())
	}
	app = update(t, app, navigateMsg{to: auth.RouteSales})
	if app.Shown() != auth.RouteSales {
		t.Errorf("shown=%q, want sales", app.Shown())
	}
	app = update(t, app, navigateMsg{to: auth.RouteSignIn})
	if app.Shown() != auth.RouteHome {
		t.Errorf("signed-in user on sign-in: shown=%q", app.Shown())
	}
	if !strings.Contains(app.View(), "Downtown") {
		t.Error("club missing from header")
	}
}

func TestAppSignInFlow(t *testing.T) {
	gw := &stubGateway{session: owner()}
	app, a := newTestApp(t, gw, nil)

	app = typeText(t, app, "ana@example.com")
	app, _ = enter(t, app) // to password
	app = typeText(t, app, "secret1")
	if strings.Contains(app.View(), "secret1") {
		t.Fatal("password echoed in view")
	}

	app, cmd := enter(t, app)
	if !strings.Contains(app.View(), "Signing in") {
		t.Error("busy indicator missing")
	}
	app, _ = settle(t, app, a, cmd)

	if app.Shown() != auth.RouteHome {
		t.Fatalf("shown=%q after sign-in, want home", app.Shown())
	}
	if !strings.Contains(app.View(), "Welcome, Ana") {
		t.Error("home view missing greeting")
	}
}

func TestAppSignInFailureShowsBackendMessage(t *testing.T) {
	gw := &stubGateway{loginErr: &client.HTTPError{StatusCode: 401, Message: "Invalid credentials", Kind: client.ErrInvalidCredentials}}
	app, a := newTestApp(t, gw, nil)

	app = typeText(t, app, "ana@example.com")
	app, _ = enter(t, app)
	app = typeText(t, app, "wrong")
	app, cmd := enter(t, app)
	app, _ = settle(t, app, a, cmd)

	if app.Shown() != auth.RouteSignIn {
		t.Fatalf("shown=%q, want sign-in", app.Shown())
	}
	if !strings.Contains(app.View(), "Invalid credentials") {
		t.Error("backend message not shown")
	}
	if got := app.signin.form.Value(signInPassword); got != "" {
		t.Errorf("password kept after failure: %q", got)
	}
}

func TestAppSignInRequiresFields(t *testing.T) {
	gw := &stubGateway{}
	app, _ := newTestApp(t, gw, nil)
	app, _ = enter(t, app)
	app, cmd := enter(t, app)
	if cmd != nil {
		t.Error("expected no backend call")
	}
	if !strings.Contains(app.View(), "required") {
		t.Error("missing validation message")
	}
	if len(gw.calls) != 0 {
		t.Errorf("calls=%v", gw.calls)
	}
}

func TestAppFirstLoginGate(t *testing.T) {
	gw := &stubGateway{}
	app, a := newTestApp(t, gw, gatedEmployee())

	if app.Shown() != auth.RouteChangePassword {
		t.Fatalf("shown=%q, want change-password", app.Shown())
	}
	for _, r := range auth.Sections {
		app = update(t, app, navigateMsg{to: r})
		if app.Shown() != auth.RouteChangePassword {
			t.Fatalf("gate bypassed via %s", r)
		}
	}

	app = typeText(t, app, "newpass1")
	app, _ = enter(t, app)
	app = typeText(t, app, "newpass1")
	app, cmd := enter(t, app)
	app, next := settle(t, app, a, cmd)
	if next == nil {
		t.Fatal("expected navigation after change")
	}
	app = update(t, app, next())

	if app.Shown() != auth.RouteHome {
		t.Fatalf("shown=%q after change, want home", app.Shown())
	}
	app = update(t, app, navigateMsg{to: auth.RouteInventory})
	if app.Shown() != auth.RouteInventory {
		t.Errorf("inventory still blocked: %q", app.Shown())
	}
}

func TestAppGateMismatchStaysLocal(t *testing.T) {
	gw := &stubGateway{}
	app, _ := newTestApp(t, gw, gatedEmployee())

	app = typeText(t, app, "newpass1")
	app, _ = enter(t, app)
	app = typeText(t, app, "newpass2")
	app, cmd := enter(t, app)
	if cmd != nil {
		t.Error("mismatch should not call the backend")
	}
	if !strings.Contains(app.View(), "do not match") {
		t.Error("missing mismatch message")
	}
}

func TestAppGateBackendFailure(t *testing.T) {
	gw := &stubGateway{changeErr: &client.HTTPError{StatusCode: 422, Message: "Password too weak", Kind: client.ErrValidation}}
	app, a := newTestApp(t, gw, gatedEmployee())

	app = typeText(t, app, "newpass1")
	app, _ = enter(t, app)
	app = typeText(t, app, "newpass1")
	app, cmd := enter(t, app)
	app, _ = settle(t, app, a, cmd)

	if app.Shown() != auth.RouteChangePassword {
		t.Fatalf("shown=%q", app.Shown())
	}
	if !strings.Contains(app.View(), "Password too weak") {
		t.Error("backend message not shown")
	}
	if !a.State().NeedsPasswordChange {
		t.Error("gate cleared after failure")
	}
}

func TestAppSignOutFromHome(t *testing.T) {
	gw := &stubGateway{}
	app, a := newTestApp(t, gw, owner())

	app, cmd := updateCmd(t, app, tea.KeyMsg{Type: tea.KeyCtrlL})
	app, _ = settle(t, app, a, cmd)

	if app.Shown() != auth.RouteSignIn {
		t.Fatalf("shown=%q after sign-out", app.Shown())
	}
	if !strings.Contains(app.View(), "Signed out") {
		t.Error("sign-out notice missing")
	}
}

func TestAppForgotPasswordFlow(t *testing.T) {
	gw := &stubGateway{}
	app, a := newTestApp(t, gw, nil)

	app = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlR})
	if app.Shown() != auth.RouteSignIn {
		t.Fatalf("ctrl+r should emit a navigation, not switch directly")
	}
	app = update(t, app, navigateMsg{to: auth.RouteForgotPassword})
	if app.Shown() != auth.RouteForgotPassword {
		t.Fatalf("shown=%q", app.Shown())
	}

	app = typeText(t, app, "ana@example.com")
	app, cmd := enter(t, app)
	app, _ = settle(t, app, a, cmd)
	if !strings.Contains(app.View(), "We sent a code to ana@example.com") {
		t.Fatalf("code stage not shown:\n%s", app.View())
	}

	app = typeText(t, app, "123")
	app, cmd = enter(t, app)
	if cmd != nil {
		t.Error("short code should be rejected locally")
	}
	app = typeText(t, app, "456")
	app, cmd = enter(t, app)
	app, _ = settle(t, app, a, cmd)

	app = typeText(t, app, "newpass1")
	app, _ = enter(t, app)
	app = typeText(t, app, "newpass1")
	app, cmd = enter(t, app)
	app, _ = settle(t, app, a, cmd)
	if !strings.Contains(app.View(), "Password updated") {
		t.Fatalf("success not shown:\n%s", app.View())
	}

	app, cmd = enter(t, app)
	app = update(t, app, cmd())
	if app.Shown() != auth.RouteSignIn {
		t.Errorf("shown=%q after success", app.Shown())
	}
	want := []string{"request-reset", "verify-reset-code", "reset-password"}
	if strings.Join(gw.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls=%v, want %v", gw.calls, want)
	}
}

func TestAppForgotWrongCodeStaysOnCode(t *testing.T) {
	gw := &stubGateway{verifyErr: &client.HTTPError{StatusCode: 400, Message: "Invalid code", Kind: client.ErrInvalidCode}}
	app, a := newTestApp(t, gw, nil)
	app = update(t, app, navigateMsg{to: auth.RouteForgotPassword})

	app = typeText(t, app, "ana@example.com")
	app, cmd := enter(t, app)
	app, _ = settle(t, app, a, cmd)
	app = typeText(t, app, "000000")
	app, cmd = enter(t, app)
	app, _ = settle(t, app, a, cmd)

	if app.forgot.flow.Stage() != auth.StageCode {
		t.Errorf("stage=%s, want code", app.forgot.flow.Stage())
	}
	if !strings.Contains(app.View(), "Invalid code") {
		t.Error("backend message not shown")
	}
}

func TestAppSignUpRequiresTerms(t *testing.T) {
	gw := &stubGateway{}
	app, _ := newTestApp(t, gw, nil)
	app = update(t, app, navigateMsg{to: auth.RouteSignUp})

	app = typeText(t, app, "Ana")
	app, _ = enter(t, app)
	app = typeText(t, app, "ana@example.com")
	app, _ = enter(t, app)
	app = typeText(t, app, "secret1")
	app, _ = enter(t, app)
	app = typeText(t, app, "secret1")
	app, cmd := enter(t, app)
	if cmd != nil {
		t.Fatal("submitted without terms")
	}
	if !strings.Contains(app.View(), "Accept the terms") {
		t.Error("terms message missing")
	}
}

func TestAppSignUpThenOnboarding(t *testing.T) {
	s := owner()
	s.Club = nil
	gw := &stubGateway{session: s, club: &domain.Club{ID: "c9", Name: "Riverside"}}
	app, a := newTestApp(t, gw, nil)
	app = update(t, app, navigateMsg{to: auth.RouteSignUp})
	app.signup.openURL = func(string) error { return errors.New("no browser") }

	app = typeText(t, app, "Ana")
	app, _ = enter(t, app)
	app = typeText(t, app, "ana@example.com")
	app, _ = enter(t, app)
	app = typeText(t, app, "secret1")
	app, _ = enter(t, app)
	app = typeText(t, app, "secret1")
	app = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlT})
	app = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !strings.Contains(app.View(), "Could not open browser") {
		t.Error("browser failure not reported")
	}
	app, cmd := enter(t, app)
	app, next := settle(t, app, a, cmd)
	app = update(t, app, next())
	if app.Shown() != auth.RouteOnboarding {
		t.Fatalf("shown=%q after sign-up, want onboarding", app.Shown())
	}

	app = typeText(t, app, "Riverside")
	app, _ = enter(t, app)
	app, _ = enter(t, app)
	app = typeText(t, app, "memberships, classes")
	app, _ = enter(t, app)
	app, cmd = enter(t, app)
	app, next = settle(t, app, a, cmd)
	app = update(t, app, next())

	if app.Shown() != auth.RouteHome {
		t.Fatalf("shown=%q after onboarding", app.Shown())
	}
	if c := a.State().Session.Club; c == nil || c.ID != "c9" {
		t.Errorf("club not cached: %+v", c)
	}
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t, &stubGateway{}, nil)
	_, cmd := updateCmd(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestAppHomeMenuNavigates(t *testing.T) {
	app, _ := newTestApp(t, &stubGateway{}, owner())
	app = update(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	app, cmd := enter(t, app)
	if cmd == nil {
		t.Fatal("expected navigation")
	}
	app = update(t, app, cmd())
	if app.Shown() != auth.Sections[1] {
		t.Errorf("shown=%q, want %q", app.Shown(), auth.Sections[1])
	}
}

func TestAppOverStartedAuthority(t *testing.T) {
	store := session.NewMemoryStore()
	if err := store.Save(owner()); err != nil {
		t.Fatal(err)
	}
	a := auth.New(&stubGateway{}, store, nil)
	a.Start()

	app := NewApp(a, "test")
	t.Cleanup(app.Close)
	app = update(t, app, waitForState(app.updates)())
	if app.Shown() != auth.RouteHome {
		t.Errorf("shown=%q, want home", app.Shown())
	}
}

func TestAppForgotIgnoresDiscardedStep(t *testing.T) {
	app, _ := newTestApp(t, &stubGateway{}, nil)
	app = update(t, app, navigateMsg{to: auth.RouteForgotPassword})
	app.forgot.busy = true

	app = update(t, app, resetStepMsg{err: auth.ErrFlowDiscarded})
	if !app.forgot.busy {
		t.Error("a discarded step released the current one")
	}
	if app.forgot.err != "" {
		t.Errorf("err=%q, want none", app.forgot.err)
	}
}
