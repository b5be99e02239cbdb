package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/DoyleJ11/rps-backend/internal/engine"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room full")
var ErrNotInRoom = errors.New("connection not in a room")

const (
	codeLength   = 6
	codeAttempts = 16
	capacity     = 2
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

type Player struct {
	ConnID string
	Name   string
}

// Room is a direct-invite pairing. Seat order follows join order and pending
// choices live in Match, which runs unbounded.
type Room struct {
	ID      string
	Players []Player
	Status  Status
	Match   engine.State
}

func (r *Room) Seat(connID string) (engine.Seat, bool) {
	for i, p := range r.Players {
		if p.ConnID == connID {
			return engine.Seat(i), true
		}
	}
	return 0, false
}

func (r *Room) ConnIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ConnID)
	}
	return ids
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type Store struct {
	rooms   map[string]*Room
	byConn  map[string]string
	newCode func() (string, error)
}

func NewStore() *Store {
	return &Store{
		rooms:   make(map[string]*Room),
		byConn:  make(map[string]string),
		newCode: GenerateCode,
	}
}

// Create opens a room with connID in seat 0.
func (st *Store) Create(connID, name string) (*Room, error) {
	code, err := st.uniqueCode()
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:      code,
		Players: []Player{{ConnID: connID, Name: name}},
		Status:  StatusWaiting,
		Match:   engine.NewState(engine.Unbounded),
	}
	st.rooms[code] = r
	st.byConn[connID] = code
	return r, nil
}

// NormalizeCode folds a typed room code onto the generated alphabet.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (st *Store) Join(roomID, connID, name string) (*Room, error) {
	roomID = NormalizeCode(roomID)
	r, ok := st.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if len(r.Players) >= capacity {
		return nil, ErrRoomFull
	}

	r.Players = append(r.Players, Player{ConnID: connID, Name: name})
	r.Status = StatusPlaying
	st.byConn[connID] = roomID
	return r, nil
}

// Leave removes connID from its room. The room is returned with destroyed
// set when it became empty and was dropped.
func (st *Store) Leave(connID string) (r *Room, destroyed bool, err error) {
	roomID, ok := st.byConn[connID]
	if !ok {
		return nil, false, ErrNotInRoom
	}
	delete(st.byConn, connID)

	r, ok = st.rooms[roomID]
	if !ok {
		return nil, false, ErrRoomNotFound
	}

	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.ConnID != connID {
			kept = append(kept, p)
		}
	}
	r.Players = kept

	if len(r.Players) == 0 {
		delete(st.rooms, roomID)
		return r, true, nil
	}

	r.Status = StatusWaiting
	_, r.Match, _ = engine.Apply(r.Match, engine.Command{Type: engine.CmdResetRound})
	return r, false, nil
}

func (st *Store) Get(roomID string) (*Room, bool) {
	r, ok := st.rooms[NormalizeCode(roomID)]
	return r, ok
}

func (st *Store) ForConn(connID string) (*Room, bool) {
	id, ok := st.byConn[connID]
	if !ok {
		return nil, false
	}
	return st.Get(id)
}

func (st *Store) Len() int { return len(st.rooms) }

func (st *Store) uniqueCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := st.newCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := st.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate room code: %d collisions in a row", codeAttempts)
}
