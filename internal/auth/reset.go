package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/naveenspark/clubdesk/pkg/client"
)

// ResetStage is a step of the password-reset wizard.
type ResetStage int

const (
	// StageRequest collects the account email.
	StageRequest ResetStage = iota
	// StageCode collects the emailed code.
	StageCode
	// StageVerified collects the new password.
	StageVerified
	// StageSuccess is terminal: the password was changed.
	StageSuccess
)

func (s ResetStage) String() string {
	switch s {
	case StageRequest:
		return "request"
	case StageCode:
		return "code"
	case StageVerified:
		return "verified"
	case StageSuccess:
		return "success"
	}
	return fmt.Sprintf("ResetStage(%d)", int(s))
}

var (
	// ErrStepOrder is returned when a reset step is attempted out of order.
	ErrStepOrder = errors.New("auth: reset step out of order")
	// ErrFlowBusy is returned when a reset step is attempted while another is in flight.
	ErrFlowBusy = errors.New("auth: reset step already in progress")
	// ErrFlowDiscarded is returned by a step whose flow was discarded while it
	// waited on the backend. The step's result is dropped.
	ErrFlowDiscarded = errors.New("auth: reset flow discarded")
)

// Resetter is the backend surface of the reset wizard. *Authority satisfies it.
type Resetter interface {
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// ResetFlow is one run of the reset wizard. It holds the email and verified
// code in memory only, and wipes them on success or Discard. Each step is
// allowed only from the stage before it.
type ResetFlow struct {
	id     uuid.UUID
	r      Resetter
	logger *slog.Logger

	mu    sync.Mutex
	stage ResetStage
	busy  bool
	email string
	code  string
	// gen changes on every Discard. A step only commits under the gen it began with.
	gen uint64
}

// NewResetFlow starts a wizard at StageRequest.
func NewResetFlow(r Resetter, logger *slog.Logger) *ResetFlow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.New()
	return &ResetFlow{
		id:     id,
		r:      r,
		logger: logger.With("component", "reset", "flow_id", id.String()),
	}
}

// ID identifies this wizard run in logs.
func (f *ResetFlow) ID() uuid.UUID {
	return f.id
}

// Stage returns the current step.
func (f *ResetFlow) Stage() ResetStage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// Email returns the address the code was sent to, or "" before Request succeeds.
func (f *ResetFlow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Busy reports whether a step is in flight.
func (f *ResetFlow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// step is what a running step captured when it claimed the flow.
type step struct {
	gen   uint64
	email string
	code  string
}

// begin claims the flow for one step if it is in one of the allowed stages.
func (f *ResetFlow) begin(allowed ...ResetStage) (step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return step{}, ErrFlowBusy
	}
	for _, s := range allowed {
		if f.stage == s {
			f.busy = true
			return step{gen: f.gen, email: f.email, code: f.code}, nil
		}
	}
	return step{}, fmt.Errorf("%w: at %s", ErrStepOrder, f.stage)
}

// finishLocked releases the flow after a step. It reports false when the
// flow was discarded meanwhile, in which case nothing may be committed.
func (f *ResetFlow) finishLocked(st step) bool {
	if f.gen != st.gen {
		return false
	}
	f.busy = false
	return true
}

// Request sends a reset code to email. It may be repeated from StageCode to
// resend, which discards any code typed so far.
func (f *ResetFlow) Request(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", client.ErrValidation)
	}
	st, err := f.begin(StageRequest, StageCode)
	if err != nil {
		return err
	}

	err = f.r.RequestPasswordReset(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finishLocked(st) {
		return ErrFlowDiscarded
	}
	if err != nil {
		f.logger.Info("reset request failed", "error", err)
		return err
	}
	f.email = email
	f.code = ""
	f.stage = StageCode
	f.logger.Info("reset code requested")
	return nil
}

// Verify checks code against the email from Request.
func (f *ResetFlow) Verify(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := client.CheckResetCode(code); err != nil {
		return err
	}
	st, err := f.begin(StageCode)
	if err != nil {
		return err
	}

	_, err = f.r.VerifyResetCode(ctx, st.email, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.finishLocked(st) {
		return ErrFlowDiscarded
	}
	if err != nil {
		f.logger.Info("reset code rejected", "error", err)
		return err
	}
	f.code = code
	f.stage = StageVerified
	return nil
}

// Complete sets the new password using the verified code. On success the
// local session is gone and the flow forgets the email and code.
func (f *ResetFlow) Complete(ctx context.Context, newPassword, confirm string) error {
	if newPassword != confirm {
		return fmt.Errorf("%w: passwords do not match", client.ErrValidation)
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", client.ErrValidation, MinPasswordLength)
	}
	st, err := f.begin(StageVerified)
	if err != nil {
		return err
	}

	err = f.r.ResetPassword(ctx, st.email, st.code, newPassword)

	f.mu.Lock()
	defer f.mu.Unlock()
	// The backend has answered either way; a discard only stops the commit.
	if !f.finishLocked(st) {
		return err
	}
	if err != nil {
		f.logger.Info("password reset failed", "error", err)
		return err
	}
	f.stage = StageSuccess
	f.email, f.code = "", ""
	f.logger.Info("password reset complete")
	return nil
}

// Discard abandons the wizard and wipes what it holds. A step still waiting
// on the backend finishes without committing.
func (f *ResetFlow) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.busy = false
	f.email, f.code = "", ""
	if f.stage != StageSuccess {
		f.stage = StageRequest
	}
}
