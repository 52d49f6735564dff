// Package session holds the client's authenticated identity: the stored
// bearer credential, the subject decoded from it, and its resolution to a
// user in the directory.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// CredentialKey is the storage key the credential is persisted under.
const CredentialKey = "token"

// Storage is the durable key/value store backing the session.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MetricsRecorder is an optional interface for counting session events.
type MetricsRecorder interface {
	IncSessionEvent(event string)
}

// Session is the explicit session context. The decoded subject is cached for
// the lifetime of the value and invalidated by Start and End.
type Session struct {
	store   Storage
	logger  *slog.Logger
	metrics MetricsRecorder

	mu      sync.Mutex
	cached  bool
	subject string
}

// New creates a Session over store.
func New(store Storage, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{store: store, logger: logger}
}

// SetMetrics sets the optional metrics recorder.
func (s *Session) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Start persists credential and clears the cached subject.
func (s *Session) Start(ctx context.Context, credential string) error {
	if err := s.store.Set(ctx, CredentialKey, credential); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	s.reset()
	s.event("start")
	s.logger.Info("session started")
	return nil
}

// End removes the stored credential and clears the cached subject. It is used
// both for logout and after the server rejects the credential.
func (s *Session) End(ctx context.Context) error {
	s.reset()
	if err := s.store.Delete(ctx, CredentialKey); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	s.event("end")
	s.logger.Info("session ended")
	return nil
}

// Credential returns the stored credential, or "" when there is none.
func (s *Session) Credential(ctx context.Context) (string, error) {
	v, ok, err := s.store.Get(ctx, CredentialKey)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// Subject returns the subject claim of the stored credential. It reports
// false when there is no credential or it cannot be decoded.
func (s *Session) Subject(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached {
		return s.subject, s.subject != ""
	}

	cred, err := s.Credential(ctx)
	if err != nil {
		s.logger.Warn("failed to read credential", "error", err)
		return "", false
	}
	if cred == "" {
		return "", false
	}

	subject, err := DecodeSubject(cred)
	if err != nil {
		s.logger.Warn("failed to decode credential", "error", err)
		s.event("decode_failure")
	}
	s.cached = true
	s.subject = subject
	return subject, subject != ""
}

// Identity resolves the session subject to a user ID in users. It returns
// nil when there is no subject or no user matches.
func (s *Session) Identity(ctx context.Context, users []api.User) *int {
	subject, ok := s.Subject(ctx)
	if !ok {
		return nil
	}
	id, ok := ResolveIdentity(subject, users)
	if !ok {
		return nil
	}
	return &id
}

// Token implements oauth2.TokenSource over the stored credential.
func (s *Session) Token() (*oauth2.Token, error) {
	cred, err := s.Credential(context.Background())
	if err != nil {
		return nil, err
	}
	if cred == "" {
		return nil, api.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: cred, TokenType: "Bearer"}, nil
}

func (s *Session) reset() {
	s.mu.Lock()
	s.cached = false
	s.subject = ""
	s.mu.Unlock()
}

func (s *Session) event(name string) {
	if s.metrics != nil {
		s.metrics.IncSessionEvent(name)
	}
}

// DecodeSubject returns the sub claim of a JWT without verifying its
// signature or expiry. Only the payload segment is read, so the header's alg
// does not matter. The server remains the authority on validity.
func DecodeSubject(credential string) (string, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("decoding credential: %w", jwt.ErrTokenMalformed)
	}
	payload, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("decoding credential: %w", err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("decoding credential: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("reading subject: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("decoding credential: missing subject")
	}
	return sub, nil
}

// ResolveIdentity finds the user whose email matches subject.
func ResolveIdentity(subject string, users []api.User) (int, bool) {
	for _, u := range users {
		if u.Email == subject {
			return u.ID, true
		}
	}
	return 0, false
}
