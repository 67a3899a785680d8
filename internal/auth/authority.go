// Package auth owns the console's session lifecycle: sign-in, sign-up,
// sign-out, password reset, the first-login password change, and
// rehydration of a persisted session at startup.
//
// One Authority exists per process. Screens and commands read its State and
// call its methods; nothing else mutates the session or the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/naveenspark/clubdesk/internal/session"
	"github.com/naveenspark/clubdesk/pkg/client"
	"github.com/naveenspark/clubdesk/pkg/domain"
)

// MinPasswordLength is the shortest password accepted before any request is sent.
const MinPasswordLength = 6

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("auth: no active session")

// Gateway is the backend surface the authority depends on. *client.Client
// satisfies it.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, p domain.RegisterProfile) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	SubmitOnboarding(ctx context.Context, token string, o domain.Onboarding) (*domain.Club, error)
	ChangePassword(ctx context.Context, token, employeeID, newPassword string) error
}

// State is a snapshot of the authority. Session is a private copy.
type State struct {
	Session             *domain.Session
	Loading             bool
	NeedsPasswordChange bool
}

// SignedIn reports whether a session is present. While Loading the answer
// is unknown and SignedIn is false; check Loading first.
func (s State) SignedIn() bool {
	return s.Session != nil
}

// Authority is the single owner of the in-memory session.
//
// Methods are safe for concurrent use. Network calls run without the lock;
// the resulting change to store and memory is applied under it. Concurrent
// calls are not de-duplicated: the response that resolves last wins.
type Authority struct {
	gw     Gateway
	store  session.Store
	logger *slog.Logger

	startOnce sync.Once

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// New creates an authority in the loading state. Call Start to rehydrate.
func New(gw Gateway, store session.Store, logger *slog.Logger) *Authority {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Authority{
		gw:     gw,
		store:  store,
		logger: logger.With("component", "auth"),
		state:  State{Loading: true},
		subs:   make(map[int]chan State),
	}
}

// Start rehydrates the session from the store and leaves the loading state.
// Only the first call has an effect.
func (a *Authority) Start() State {
	a.startOnce.Do(func() {
		// Load under the lock so a commit cannot land between read and apply.
		a.mu.Lock()
		s := a.store.Load()
		a.setLocked(s)
		a.state.Loading = false
		a.publishLocked()
		a.mu.Unlock()

		if s != nil {
			a.logger.Info("session restored", "user_id", s.User.ID, "kind", s.User.Kind,
				"needs_password_change", s.NeedsPasswordChange())
		} else {
			a.logger.Debug("no stored session")
		}
	})
	return a.State()
}

// State returns the current snapshot.
func (a *Authority) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe returns a channel that receives the latest state after every
// change. Slow readers only ever see the newest state. If Start has already
// run, the current state is queued at once. Call cancel to stop.
func (a *Authority) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	if !a.state.Loading {
		ch <- a.snapshotLocked()
	}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			close(ch)
		})
	}
}

// SignIn authenticates with the backend and persists the new session.
// On failure the current state is left untouched.
func (a *Authority) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("auth.SignIn: %w: email and password are required", client.ErrValidation)
	}

	s, err := a.gw.Login(ctx, email, password)
	if err != nil {
		a.logger.Info("sign-in rejected", "error", err)
		return fmt.Errorf("auth.SignIn: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.commitLocked(s); err != nil {
		return fmt.Errorf("auth.SignIn: %w", err)
	}
	a.logger.Info("signed in", "user_id", s.User.ID, "kind", s.User.Kind,
		"needs_password_change", a.state.NeedsPasswordChange)
	return nil
}

// SignUp registers a new owner account and signs it in. The new session has
// no club until onboarding creates one.
func (a *Authority) SignUp(ctx context.Context, p domain.RegisterProfile) error {
	if err := checkProfile(&p); err != nil {
		return fmt.Errorf("auth.SignUp: %w", err)
	}

	s, err := a.gw.Register(ctx, p)
	if err != nil {
		a.logger.Info("sign-up rejected", "error", err)
		return fmt.Errorf("auth.SignUp: %w", err)
	}
	s.Club = nil
	// Owner accounts are never gated, whatever the backend sent.
	s.User.IsFirstLogin = false

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.commitLocked(s); err != nil {
		return fmt.Errorf("auth.SignUp: %w", err)
	}
	a.logger.Info("signed up", "user_id", s.User.ID)
	return nil
}

func checkProfile(p *domain.RegisterProfile) error {
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	switch {
	case p.FullName == "" || p.Email == "":
		return fmt.Errorf("%w: name and email are required", client.ErrValidation)
	case !domain.ValidBusinessType(p.BusinessType):
		return fmt.Errorf("%w: unknown business type %q", client.ErrValidation, p.BusinessType)
	case p.Password != p.ConfirmPassword:
		return fmt.Errorf("%w: passwords do not match", client.ErrValidation)
	case len([]rune(p.Password)) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", client.ErrValidation, MinPasswordLength)
	case !p.AcceptedTerms:
		return fmt.Errorf("%w: the terms must be accepted", client.ErrValidation)
	}
	return nil
}

// SignOut ends the session. The backend logout is best-effort: its failure
// is logged and never prevents the local teardown.
func (a *Authority) SignOut(ctx context.Context) error {
	a.mu.Lock()
	var token string
	if a.state.Session != nil {
		token = a.state.Session.Token
	}
	a.mu.Unlock()

	if token != "" {
		if err := a.gw.Logout(ctx, token); err != nil {
			a.logger.Warn("backend logout failed, clearing local session anyway", "error", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.clearLocked()
	a.logger.Info("signed out")
	if err != nil {
		return fmt.Errorf("auth.SignOut: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the backend to email a reset code.
func (a *Authority) RequestPasswordReset(ctx context.Context, email string) error {
	if err := a.gw.RequestPasswordReset(ctx, strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("auth.RequestPasswordReset: %w", err)
	}
	return nil
}

// VerifyResetCode checks a reset code with the backend.
func (a *Authority) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	if err := client.CheckResetCode(code); err != nil {
		return "", fmt.Errorf("auth.VerifyResetCode: %w", err)
	}
	msg, err := a.gw.VerifyResetCode(ctx, strings.TrimSpace(email), code)
	if err != nil {
		return "", fmt.Errorf("auth.VerifyResetCode: %w", err)
	}
	return msg, nil
}

// ResetPassword sets a new password with a reset code. On success any local
// session is cleared so the next access authenticates with the new password.
func (a *Authority) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := a.gw.ResetPassword(ctx, strings.TrimSpace(email), code, newPassword); err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	hadSession := a.state.Session != nil
	if err := a.clearLocked(); err != nil {
		return fmt.Errorf("auth.ResetPassword: %w", err)
	}
	a.logger.Info("password reset", "cleared_session", hadSession)
	return nil
}

// UpdateUser merges patch into the current user and re-persists the session.
// The token is never touched.
func (a *Authority) UpdateUser(patch domain.UserPatch) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.updateUserLocked(patch); err != nil {
		return fmt.Errorf("auth.UpdateUser: %w", err)
	}
	return nil
}

func (a *Authority) updateUserLocked(patch domain.UserPatch) error {
	if a.state.Session == nil {
		return ErrNoSession
	}
	next := a.state.Session.Clone()
	next.User = patch.Apply(next.User)
	return a.commitLocked(next)
}

// ChangePassword completes the first-login gate: it sets the employee's new
// password on the backend, then clears isFirstLogin on the session.
func (a *Authority) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	if newPassword != confirm {
		return fmt.Errorf("auth.ChangePassword: %w: passwords do not match", client.ErrValidation)
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return fmt.Errorf("auth.ChangePassword: %w: password must be at least %d characters",
			client.ErrValidation, MinPasswordLength)
	}

	st := a.State()
	if st.Session == nil {
		return fmt.Errorf("auth.ChangePassword: %w", client.ErrUnauthorized)
	}
	if !st.Session.User.IsEmployee() {
		return fmt.Errorf("auth.ChangePassword: %w: only employee accounts change passwords here", client.ErrValidation)
	}

	if err := a.gw.ChangePassword(ctx, st.Session.Token, st.Session.User.ID, newPassword); err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}

	off := false
	a.mu.Lock()
	defer a.mu.Unlock()
	// Only the session that changed its password leaves the gate.
	if a.state.Session == nil || a.state.Session.Token != st.Session.Token {
		a.logger.Info("session changed during password change, gate left as is",
			"user_id", st.Session.User.ID)
		return nil
	}
	if err := a.updateUserLocked(domain.UserPatch{IsFirstLogin: &off}); err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}
	a.logger.Info("first-login password changed", "user_id", st.Session.User.ID)
	return nil
}

// SubmitOnboarding sends the owner's business setup and caches the main club
// the backend created on the session.
func (a *Authority) SubmitOnboarding(ctx context.Context, o domain.Onboarding) error {
	st := a.State()
	if st.Session == nil {
		return fmt.Errorf("auth.SubmitOnboarding: %w", client.ErrUnauthorized)
	}
	if strings.TrimSpace(o.MainClub.Name) == "" {
		return fmt.Errorf("auth.SubmitOnboarding: %w: main club name is required", client.ErrValidation)
	}

	club, err := a.gw.SubmitOnboarding(ctx, st.Session.Token, o)
	if err != nil {
		return fmt.Errorf("auth.SubmitOnboarding: %w", err)
	}
	if club == nil {
		c := o.MainClub
		club = &c
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// The session may have changed while the request was in flight.
	if a.state.Session == nil || a.state.Session.Token != st.Session.Token {
		return nil
	}
	next := a.state.Session.Clone()
	next.Club = club
	if err := a.commitLocked(next); err != nil {
		return fmt.Errorf("auth.SubmitOnboarding: %w", err)
	}
	a.logger.Info("onboarding submitted", "user_id", next.User.ID, "club", club.Name)
	return nil
}

// commitLocked persists s and makes it the in-memory session. If the store
// write fails, memory is reloaded from the store so the two never disagree.
func (a *Authority) commitLocked(s *domain.Session) error {
	err := a.store.Save(s)
	if err != nil {
		a.logger.Error("persist session", "error", err)
		a.setLocked(a.store.Load())
	} else {
		a.setLocked(s)
	}
	a.publishLocked()
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// clearLocked drops the session from memory and store unconditionally.
func (a *Authority) clearLocked() error {
	err := a.store.Clear()
	if err != nil {
		a.logger.Error("clear stored session", "error", err)
	}
	a.setLocked(nil)
	a.publishLocked()
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (a *Authority) setLocked(s *domain.Session) {
	a.state.Session = s.Clone()
	a.state.NeedsPasswordChange = s.NeedsPasswordChange()
}

func (a *Authority) snapshotLocked() State {
	st := a.state
	st.Session = a.state.Session.Clone()
	return st
}

// publishLocked hands the current state to every subscriber, replacing any
// value they have not read yet.
func (a *Authority) publishLocked() {
	st := a.snapshotLocked()
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st.clone()
	}
}

func (s State) clone() State {
	s.Session = s.Session.Clone()
	return s
}
