// Package session stores matched best-of-N games and the connection index
// that finds a player's game.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/rps-backend/internal/engine"
)

type Session struct {
	ID        string
	Players   [2]string // connection ids, index is engine.Seat
	State     engine.State
	CreatedAt time.Time
}

func (s *Session) Seat(connID string) (engine.Seat, bool) {
	switch connID {
	case s.Players[engine.SeatA]:
		return engine.SeatA, true
	case s.Players[engine.SeatB]:
		return engine.SeatB, true
	}
	return 0, false
}

// Opponent returns the other participant's connection id.
func (s *Session) Opponent(connID string) string {
	seat, ok := s.Seat(connID)
	if !ok {
		return ""
	}
	return s.Players[seat.Other()]
}

type Store struct {
	sessions map[string]*Session
	byConn   map[string]string
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		byConn:   make(map[string]string),
		now:      time.Now,
	}
}

// Create pairs a (seat A) with b (seat B).
func (st *Store) Create(a, b string, winsNeeded int) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Players:   [2]string{a, b},
		State:     engine.NewState(winsNeeded),
		CreatedAt: st.now(),
	}
	st.sessions[s.ID] = s
	st.byConn[a] = s.ID
	st.byConn[b] = s.ID
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) ForConn(connID string) (*Session, bool) {
	id, ok := st.byConn[connID]
	if !ok {
		return nil, false
	}
	return st.Get(id)
}

// Remove drops the session and both index entries.
func (st *Store) Remove(id string) {
	s, ok := st.sessions[id]
	if !ok {
		return
	}
	for _, connID := range s.Players {
		if st.byConn[connID] == id {
			delete(st.byConn, connID)
		}
	}
	delete(st.sessions, id)
}

func (st *Store) Len() int { return len(st.sessions) }
