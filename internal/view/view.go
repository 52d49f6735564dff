// Package view holds the stateful screens of the client. Each view loads its
// collections from the gateway, derives membership and board state, and runs
// user commands that validate locally, send one request and, on success,
// refetch everything.
package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alecgard/taskflow/internal/api"
)

// ErrReauthenticate is returned by Load when the server rejected the
// credential. The session has already been ended.
var ErrReauthenticate = errors.New("session expired, log in again")

// Gateway is the subset of the API client the views use.
type Gateway interface {
	ListProjects(ctx context.Context) ([]api.Project, error)
	ListUsers(ctx context.Context) ([]api.User, error)
	GetProject(ctx context.Context, id int) (*api.Project, error)
	CreateProject(ctx context.Context, in api.CreateProjectInput) (*api.Project, error)
	AddMember(ctx context.Context, projectID, userID int) (*api.Project, error)
	RemoveMember(ctx context.Context, projectID, userID int) (*api.Project, error)
	ListTasks(ctx context.Context, projectID *int) ([]api.Task, error)
	CreateTask(ctx context.Context, in api.CreateTaskInput) (*api.Task, error)
	UpdateTask(ctx context.Context, id int, in api.UpdateTaskInput) (*api.Task, error)
	DeleteTask(ctx context.Context, id int) error
}

// Session resolves the caller and ends the session on auth failure.
type Session interface {
	Identity(ctx context.Context, users []api.User) *int
	End(ctx context.Context) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Outcome classifies the result of a command.
type Outcome int

const (
	Succeeded Outcome = iota
	// Failed means the request was sent and the server or transport failed.
	Failed
	// Invalid means local validation failed and nothing was sent.
	Invalid
	// Cancelled means the user declined the confirmation.
	Cancelled
	// Ignored means the view was closed before the result arrived.
	Ignored
	// Denied means the caller's role does not allow the command.
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Invalid:
		return "invalid"
	case Cancelled:
		return "cancelled"
	case Ignored:
		return "ignored"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Result is the outcome of a command.
type Result struct {
	Outcome Outcome
	Message string
	// Field names the offending input for Invalid results.
	Field string
	Err   error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Outcome == Succeeded }

func invalid(field, msg string) Result {
	return Result{Outcome: Invalid, Field: field, Message: msg}
}

func denied(msg string) Result {
	return Result{Outcome: Denied, Message: msg}
}

// base carries the state shared by every view. mu guards the embedding
// view's fields as well.
type base struct {
	gw      Gateway
	sess    Session
	confirm Confirmer
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	errMsg string
}

func newBase(gw Gateway, sess Session, confirm Confirmer, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{gw: gw, sess: sess, confirm: confirm, logger: logger}
}

// Close marks the view as gone. Results arriving afterwards are dropped.
func (b *base) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Error returns the message of the last failed load or command, or "".
func (b *base) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

func (b *base) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *base) confirmed(prompt string) bool {
	return b.confirm != nil && b.confirm.Confirm(prompt)
}

// endSession drops the credential after the server rejected it.
func (b *base) endSession(ctx context.Context) {
	if err := b.sess.End(ctx); err != nil {
		b.logger.Warn("failed to end session", "error", err)
	}
}

// loadFailed records a load failure. A rejected credential ends the session
// and is reported as ErrReauthenticate.
func (b *base) loadFailed(ctx context.Context, msg string, err error) error {
	b.mu.Lock()
	if !b.closed {
		b.errMsg = msg
	}
	b.mu.Unlock()

	b.logger.Warn("load failed", "message", msg, "error", err)
	if api.IsUnauthorized(err) {
		b.endSession(ctx)
		return errors.Join(ErrReauthenticate, err)
	}
	return err
}

// mutation is one user command after local validation.
type mutation struct {
	action string
	// failure is the message shown when send fails. failureFor, when set,
	// picks the message from the error instead.
	failure    string
	failureFor func(error) string
	send       func(ctx context.Context) error
	// done runs with mu held after a successful send, before the reload.
	done   func()
	reload func(ctx context.Context) error
}

// run sends m and reloads on success. On failure the error message is set
// and the form state is left untouched for the user to retry.
func (b *base) run(ctx context.Context, m mutation) Result {
	if b.isClosed() {
		return Result{Outcome: Ignored}
	}

	err := m.send(ctx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug("dropping result for closed view", "action", m.action)
		return Result{Outcome: Ignored, Err: err}
	}
	if err != nil {
		msg := m.failure
		if m.failureFor != nil {
			msg = m.failureFor(err)
		}
		b.errMsg = msg
		b.mu.Unlock()

		b.logger.Warn("action failed", "action", m.action, "error", err)
		if api.IsUnauthorized(err) {
			b.endSession(ctx)
		}
		return Result{Outcome: Failed, Message: msg, Err: err}
	}
	if m.done != nil {
		m.done()
	}
	b.mu.Unlock()

	b.logger.Info("action succeeded", "action", m.action)
	if m.reload != nil {
		if err := m.reload(ctx); err != nil {
			return Result{Outcome: Succeeded, Message: b.Error(), Err: err}
		}
	}
	return Result{Outcome: Succeeded}
}
