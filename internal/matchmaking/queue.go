package matchmaking

import (
	"errors"
	"slices"
)

var ErrAlreadyQueued = errors.New("connection already queued")

type Entry struct {
	ConnID string
	Name   string
}

// Queue is a FIFO waiting list. Earlier entries are paired first.
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{entries: make([]Entry, 0)}
}

func (q *Queue) Enqueue(e Entry) error {
	if q.Contains(e.ConnID) {
		return ErrAlreadyQueued
	}
	q.entries = append(q.entries, e)
	return nil
}

// PushFront puts an entry back at the head, keeping its wait priority.
func (q *Queue) PushFront(e Entry) {
	if q.Contains(e.ConnID) {
		return
	}
	q.entries = slices.Insert(q.entries, 0, e)
}

// DequeuePair removes the two earliest entries once at least two are waiting.
// Both are re-checked with isLive; if one has vanished the survivor goes back
// to the front and no pair is returned.
func (q *Queue) DequeuePair(isLive func(connID string) bool) ([2]Entry, bool) {
	if len(q.entries) < 2 {
		return [2]Entry{}, false
	}

	a, b := q.entries[0], q.entries[1]
	q.entries = slices.Delete(q.entries, 0, 2)

	aLive, bLive := isLive(a.ConnID), isLive(b.ConnID)
	switch {
	case aLive && bLive:
		return [2]Entry{a, b}, true
	case aLive:
		q.PushFront(a)
	case bLive:
		q.PushFront(b)
	}
	return [2]Entry{}, false
}

// Remove is idempotent.
func (q *Queue) Remove(connID string) bool {
	i := q.index(connID)
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

func (q *Queue) Contains(connID string) bool { return q.index(connID) >= 0 }

// Position is 1-based; 0 means not queued.
func (q *Queue) Position(connID string) int { return q.index(connID) + 1 }

func (q *Queue) Len() int { return len(q.entries) }

func (q *Queue) Entries() []Entry { return slices.Clone(q.entries) }

func (q *Queue) index(connID string) int {
	return slices.IndexFunc(q.entries, func(e Entry) bool { return e.ConnID == connID })
}
