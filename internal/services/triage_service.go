// Package services – TriageService
//
// This file implements the swipe-triage workflow: an ordered per-user queue
// of candidate cards, a binary accept/reject decision per swipe, and exactly
// one side-effecting write per accept.
//
// The accept path is optimistic: the card leaves the queue immediately and
// the create request runs in the background, so the caller never blocks on
// the write. A failed write does not restore the card; instead every write
// outcome (success or failure, failure carrying the original card) is
// published to a bounded per-session feed the client can drain, so nothing
// is silently discarded.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// Direction is a binary swipe gesture.
type Direction string

// Swipe directions.
const (
	DirectionAccept Direction = "accept"
	DirectionReject Direction = "reject"
)

// ParseDirection maps a wire string onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionAccept, DirectionReject:
		return Direction(s), nil
	default:
		return "", ErrBadDirection
	}
}

// CardAcceptor persists an accepted candidate under a fresh identifier.
// Satisfied by *WatchService.
type CardAcceptor interface {
	AcceptCard(ctx context.Context, userID string, c domain.Card) (*domain.Watch, error)
}

// Outcome reports the result of one accepted card's background write.
// Failures carry the original card so the client can re-surface it.
type Outcome struct {
	Card  domain.Card   `json:"card"`
	Watch *domain.Watch `json:"watch,omitempty"`
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	At    time.Time     `json:"at"`
}

// SessionState is the synchronous view of a triage session after a call
// returns: the remaining queue and the identifier at its head. Empty is set
// when a load produced no candidates ("no watches available").
type SessionState struct {
	Queue   []domain.Card `json:"queue"`
	Current string        `json:"current,omitempty"`
	Empty   bool          `json:"empty"`
}

// session holds one user's in-memory triage state. It is never persisted.
type session struct {
	queue    []domain.Card
	current  string
	outcomes []Outcome
}

// TriageService maintains triage sessions keyed by user. All queue mutations
// are serialized under one lock, so within a session they are strictly
// sequential: exactly one mutation per Decide call, and Current always
// reflects the new head before any background write completes.
type TriageService struct {
	// Acceptor performs the create for accepted cards.
	Acceptor CardAcceptor

	// MaxOutcomes bounds the per-session outcome feed; older entries are
	// dropped first.
	MaxOutcomes int
	// WriteTimeout bounds each background create.
	WriteTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	writes   sync.WaitGroup // background accept writes, for draining in tests and shutdown
}

// NewTriageService constructs a TriageService around the given acceptor.
func NewTriageService(acceptor CardAcceptor) *TriageService {
	return &TriageService{
		Acceptor:     acceptor,
		MaxOutcomes:  32,
		WriteTimeout: 15 * time.Second,
		sessions:     make(map[string]*session),
	}
}

// Load replaces the user's queue with a fresh ordered sequence and sets the
// head pointer to the first element (or none). An empty feed is flagged so
// the caller can surface a "no candidates" notice.
func (s *TriageService) Load(userID string, cards []domain.Card) SessionState {
	sess := &session{queue: append([]domain.Card(nil), cards...)}
	if len(sess.queue) > 0 {
		sess.current = sess.queue[0].ID
	}

	s.mu.Lock()
	s.sessions[userID] = sess
	state := sess.state()
	s.mu.Unlock()
	return state
}

// Decide applies one swipe to the user's session.
//
// The caller must be authenticated; otherwise ErrNotAuthenticated is
// returned and the queue is untouched. A card not present in the queue is a
// no-op (no mutation, no write). On reject the card is removed by identifier
// match. On accept the card is removed the same way and the create request
// runs in the background under a fresh identifier; the returned state never
// waits for it.
func (s *TriageService) Decide(ctx context.Context, userID string, card domain.Card, dir Direction) (SessionState, error) {
	if userID == "" {
		return SessionState{}, ErrNotAuthenticated
	}
	if dir != DirectionAccept && dir != DirectionReject {
		return SessionState{}, ErrBadDirection
	}

	s.mu.Lock()
	sess := s.sessions[userID]
	if sess == nil {
		s.mu.Unlock()
		return SessionState{}, nil
	}
	present := sess.remove(card.ID)
	state := sess.state()
	s.mu.Unlock()

	if dir == DirectionAccept && present {
		s.writes.Add(1)
		go func() {
			defer s.writes.Done()
			// The request context dies with the HTTP call; the write
			// deliberately outlives it.
			wctx, cancel := context.WithTimeout(context.Background(), s.WriteTimeout)
			defer cancel()

			w, err := s.Acceptor.AcceptCard(wctx, userID, card)
			o := Outcome{Card: card, Watch: w, OK: err == nil, At: time.Now().UTC()}
			if err != nil {
				o.Error = err.Error()
			}
			s.record(userID, sess, o)
		}()
	}
	return state, nil
}

// State returns the current session view without mutating it.
func (s *TriageService) State(userID string) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[userID]; sess != nil {
		return sess.state()
	}
	return SessionState{Queue: []domain.Card{}, Empty: true}
}

// DrainOutcomes returns and clears the accumulated write outcomes for the
// user's session, oldest first.
func (s *TriageService) DrainOutcomes(userID string) []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	if sess == nil || len(sess.outcomes) == 0 {
		return []Outcome{}
	}
	out := sess.outcomes
	sess.outcomes = nil
	return out
}

// EndSession discards the user's session. Late write completions for a
// discarded session are ignored rather than resurrecting stale state.
func (s *TriageService) EndSession(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Drain blocks until all in-flight accept writes have completed. Used on
// shutdown and in tests; sessions remain usable afterwards.
func (s *TriageService) Drain() {
	s.writes.Wait()
}

// record appends an outcome to the session it was produced for, dropping it
// when that session has since been replaced or ended.
func (s *TriageService) record(userID string, sess *session, o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[userID] != sess {
		return
	}
	sess.outcomes = append(sess.outcomes, o)
	if max := s.MaxOutcomes; max > 0 && len(sess.outcomes) > max {
		sess.outcomes = sess.outcomes[len(sess.outcomes)-max:]
	}
}

// remove deletes the card with the given id from the queue and advances the
// head pointer. Reports whether the card was present.
func (sess *session) remove(id string) bool {
	for i, c := range sess.queue {
		if c.ID == id {
			sess.queue = append(sess.queue[:i], sess.queue[i+1:]...)
			if len(sess.queue) > 0 {
				sess.current = sess.queue[0].ID
			} else {
				sess.current = ""
			}
			return true
		}
	}
	return false
}

// state snapshots the session for callers outside the lock.
func (sess *session) state() SessionState {
	return SessionState{
		Queue:   append([]domain.Card(nil), sess.queue...),
		Current: sess.current,
		Empty:   len(sess.queue) == 0,
	}
}
