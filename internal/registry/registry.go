// Package registry tracks the players behind live connections and derives
// the leaderboard from their match records.
package registry

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const MaxNameLength = 20

var ErrInvalidName = errors.New("invalid display name")

type Player struct {
	ConnID string `json:"connId"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Streak int    `json:"streak"`

	seq uint64
}

// Standing is one leaderboard row.
type Standing struct {
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Streak int    `json:"streak"`
}

// Registry is owned by a single goroutine (the hub loop) and does no locking.
type Registry struct {
	players map[string]*Player
	nextSeq uint64
}

func New() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// NormalizeName trims, NFC-normalises and truncates a display name to
// MaxNameLength runes.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(norm.NFC.String(raw))
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	if name == "" || !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	return name, nil
}

// Join registers connID under name. A connection that already joined is
// renamed and keeps its record.
func (r *Registry) Join(connID, rawName string) (*Player, error) {
	name, err := NormalizeName(rawName)
	if err != nil {
		return nil, err
	}

	if p, ok := r.players[connID]; ok {
		p.Name = name
		return p, nil
	}

	r.nextSeq++
	p := &Player{ConnID: connID, Name: name, seq: r.nextSeq}
	r.players[connID] = p
	return p, nil
}

func (r *Registry) Get(connID string) (*Player, bool) {
	p, ok := r.players[connID]
	return p, ok
}

func (r *Registry) Has(connID string) bool {
	_, ok := r.players[connID]
	return ok
}

func (r *Registry) Remove(connID string) {
	delete(r.players, connID)
}

func (r *Registry) Len() int { return len(r.players) }

// RecordMatch applies one finished match. Either side may already be gone.
func (r *Registry) RecordMatch(winnerID, loserID string) {
	if w, ok := r.players[winnerID]; ok {
		w.Wins++
		w.Streak++
	}
	if l, ok := r.players[loserID]; ok {
		l.Losses++
		l.Streak = 0
	}
}

// Leaderboard ranks every registered player by wins (desc), then losses
// (asc), then join order, and returns at most limit rows.
func (r *Registry) Leaderboard(limit int) []Standing {
	ranked := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		ranked = append(ranked, p)
	}

	slices.SortFunc(ranked, func(a, b *Player) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Losses, b.Losses); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	board := make([]Standing, 0, len(ranked))
	for _, p := range ranked {
		board = append(board, Standing{Name: p.Name, Wins: p.Wins, Losses: p.Losses, Streak: p.Streak})
	}
	return board
}
