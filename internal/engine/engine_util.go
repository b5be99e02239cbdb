package engine

import "strings"

func NewState(winsNeeded int) State {
	if winsNeeded < 0 {
		winsNeeded = Unbounded
	}
	return State{
		Round:      1,
		WinsNeeded: winsNeeded,
	}
}

// ParseMove accepts the three move tokens, ignoring case and surrounding space.
func ParseMove(raw string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", ErrInvalidMove
	}
	return m, nil
}

func (m Move) Valid() bool {
	switch m {
	case MoveRock, MovePaper, MoveScissors:
		return true
	}
	return false
}

// Beats reports whether m defeats other. rock > scissors > paper > rock.
func (m Move) Beats(other Move) bool {
	switch m {
	case MoveRock:
		return other == MoveScissors
	case MoveScissors:
		return other == MovePaper
	case MovePaper:
		return other == MoveRock
	}
	return false
}

func Resolve(a, b Move) Winner {
	switch {
	case a.Beats(b):
		return WinnerA
	case b.Beats(a):
		return WinnerB
	default:
		return WinnerDraw
	}
}

func (s Seat) Other() Seat {
	if s == SeatA {
		return SeatB
	}
	return SeatA
}

// ResultFor frames a neutral round winner for one seat.
func (w Winner) ResultFor(seat Seat) Result {
	switch {
	case w == WinnerDraw:
		return ResultDraw
	case (w == WinnerA) == (seat == SeatA):
		return ResultWin
	default:
		return ResultLose
	}
}

func DerivePhase(s State) Phase {
	if s.Finished {
		return PhaseMatchOver
	}
	return PhaseAwaitingChoices
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}
