package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"city-weather/datasource"
	"city-weather/models"
	"city-weather/query"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Attempt identifies one search started in a session
type Attempt struct {
	SessionID string
	ID        uint64
	cancel    context.CancelFunc
}

// Done releases the attempt's context
func (a Attempt) Done() {
	if a.cancel != nil {
		a.cancel()
	}
}

type session struct {
	state    models.ViewState
	latest   uint64
	cancel   context.CancelFunc
	lastSeen time.Time
}

// SessionStore holds the latest view state of each browser session. Only
// the most recent attempt of a session may change its state.
type SessionStore struct {
	sessions map[string]*session
	mutex    sync.Mutex
	idleTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionStore creates an in-memory session store
func NewSessionStore(idleTTL time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// NewID returns a fresh session identifier
func (s *SessionStore) NewID() string {
	return uuid.NewString()
}

// State returns the current view state of a session. Unknown sessions get
// the zero state, in which both panels are loading.
func (s *SessionStore) State(id string) models.ViewState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return models.ViewState{}
	}
	sess.lastSeen = s.now()
	return sess.state
}

// Begin starts a new attempt in a session, creating the session if needed.
// The previous attempt's context is canceled so its lookups stop early; its
// results would be discarded by Commit anyway.
func (s *SessionStore) Begin(ctx context.Context, id string) (Attempt, context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		sess = &session{}
		s.sessions[id] = sess
	}
	if sess.cancel != nil {
		sess.cancel()
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	sess.latest++
	sess.cancel = cancel
	sess.lastSeen = s.now()

	return Attempt{SessionID: id, ID: sess.latest, cancel: cancel}, attemptCtx
}

// Commit publishes the outcome of an attempt as the session's new view state.
// It returns false, changing nothing, when a newer attempt has started since
// or when both lookups were canceled.
//
// Per panel, a successful lookup replaces the data and clears the error; a
// failed one keeps the previous data and records the error. Canceled lookups
// leave the panel as it was.
func (s *SessionStore) Commit(attempt Attempt, outcome query.Outcome) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, exists := s.sessions[attempt.SessionID]
	if !exists || sess.latest != attempt.ID {
		s.logger.Info("discarding stale search result",
			slog.String("session", attempt.SessionID),
			slog.Uint64("attempt", attempt.ID),
			slog.String("city", outcome.City),
		)
		return false
	}

	sess.cancel = nil
	if canceled(outcome.Current.Err) && canceled(outcome.Forecast.Err) {
		// Nothing was looked up, so the page keeps showing the previous city
		return false
	}

	now := s.now()
	prev := sess.state
	sess.state = models.ViewState{
		Attempt:  attempt.ID,
		City:     outcome.City,
		Current:  applyResult(prev.Current, outcome.Current, now),
		Forecast: applyResult(prev.Forecast, outcome.Forecast, now),
	}
	sess.lastSeen = now
	return true
}

func canceled(err *datasource.QueryError) bool {
	return err != nil && err.Code == datasource.ErrCodeCanceled
}

func applyResult[T any](prev models.Panel[T], result query.Result[T], now time.Time) models.Panel[T] {
	if result.OK() {
		value := result.Value
		return models.Panel[T]{Data: &value, UpdatedAt: now}
	}
	if canceled(result.Err) {
		return prev
	}
	return models.Panel[T]{
		Data:      prev.Data,
		Error:     result.Err.Message,
		ErrorCode: string(result.Err.Code),
		UpdatedAt: prev.UpdatedAt,
	}
}

// Prune drops sessions idle for longer than the idle TTL and returns how
// many were removed
func (s *SessionStore) Prune() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			if sess.cancel != nil {
				sess.cancel()
			}
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

// SchedulePrune registers Prune on c with a cron spec such as "@every 10m"
func (s *SessionStore) SchedulePrune(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if removed := s.Prune(); removed > 0 {
			s.logger.Info("pruned idle sessions", slog.Int("removed", removed), slog.Int("remaining", s.Len()))
		}
	})
	return err
}
