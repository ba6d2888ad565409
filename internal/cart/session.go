package cart

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const SessionCookie = "sf_session"

type sessionKey struct{}

// SessionMiddleware makes sure every request carries a session id, issuing a
// session cookie on first contact.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
	})
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Session is the cart of one visitor. Every mutation is applied by the
// repository as an atomic update of the stored cart, so concurrent requests on
// the same session never overwrite each other.
type Session struct {
	ID string

	ctx    context.Context
	repo   Repository
	logger *slog.Logger

	mu    sync.Mutex
	state State
	err   error
}

// Snapshot returns the cart as of the last load or committed update.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last persistence error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Update runs fn against the stored cart and commits its changes. Errors
// from fn are returned as is; storage failures are also kept for Err.
func (s *Session) Update(ctx context.Context, fn func(*Store) error) error {
	var fnErr error
	state, err := s.repo.Update(ctx, s.ID, func(st *Store) error {
		fnErr = fn(st)
		return fnErr
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.state, s.err = state, nil
	case fnErr != nil && err == fnErr:
		// rejected before anything was written
	default:
		s.logger.Error("failed to persist cart", "error", err, "session_id", s.ID)
		s.err = err
	}
	return err
}

// Clear empties the stored cart. It outlives the request that opened the
// session.
func (s *Session) Clear() error {
	return s.Update(s.ctx, func(st *Store) error {
		st.Clear()
		return nil
	})
}

type Sessions struct {
	repo   Repository
	logger *slog.Logger
}

func NewSessions(repo Repository, logger *slog.Logger) *Sessions {
	return &Sessions{repo: repo, logger: logger}
}

// Open loads the cart of sessionID.
func (s *Sessions) Open(ctx context.Context, sessionID string) (*Session, error) {
	state, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:     sessionID,
		ctx:    context.WithoutCancel(ctx),
		repo:   s.repo,
		logger: s.logger,
		state:  state,
	}, nil
}
