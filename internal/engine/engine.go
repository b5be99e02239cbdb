package engine

import (
	"errors"
)

var ErrInvalidMove = errors.New("invalid move")
var ErrInvalidSeat = errors.New("invalid seat")
var ErrAlreadyChose = errors.New("choice already recorded this round")
var ErrMatchFinished = errors.New("match already finished")
var ErrMatchNotFinished = errors.New("match not finished")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

// Seat is a participant's fixed position in a match. SeatA is the player
// who was paired (or joined the room) first.
type Seat int

const (
	SeatA Seat = 0
	SeatB Seat = 1
)

// Winner tags a round from the neutral perspective of the match.
type Winner string

const (
	WinnerA    Winner = "a"
	WinnerB    Winner = "b"
	WinnerDraw Winner = "draw"
)

// Result tags a round or match from one participant's perspective.
type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

type Phase string

const (
	PhaseAwaitingChoices Phase = "awaiting_choices"
	PhaseMatchOver       Phase = "match_over"
)

// Unbounded disables scoring: rounds are revealed and reset forever.
const Unbounded = 0

type State struct {
	Round      int
	WinsNeeded int
	Choices    [2]Move
	Scores     [2]int
	Finished   bool
	Rematch    [2]bool
}

type CommandType string

const (
	CmdSubmitChoice   CommandType = "SubmitChoice"
	CmdRequestRematch CommandType = "RequestRematch"
	CmdResetRound     CommandType = "ResetRound"
)

/*
	CmdSubmitChoice   -> EvtChoiceLocked [-> EvtRoundResolved [-> EvtMatchOver]]
	CmdRequestRematch -> EvtRematchRequested | EvtRematchStarted
	CmdResetRound     -> (no events) pending choices dropped, used when a room loses a player
*/

type Command struct {
	Type CommandType
	Seat Seat
	Move Move
}

type EventType string

const (
	EvtChoiceLocked     EventType = "ChoiceLocked"
	EvtRoundResolved    EventType = "RoundResolved"
	EvtMatchOver        EventType = "MatchOver"
	EvtRematchRequested EventType = "RematchRequested"
	EvtRematchStarted   EventType = "RematchStarted"
)

type Event struct {
	Type      EventType
	Seat      Seat
	Round     int
	Moves     [2]Move
	Winner    Winner
	Scores    [2]int
	MatchOver bool
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Seat != SeatA && cmd.Seat != SeatB {
		return nil, s, ErrInvalidSeat
	}

	newState := s

	switch cmd.Type {
	case CmdSubmitChoice:
		if !cmd.Move.Valid() {
			return nil, s, ErrInvalidMove
		}
		if s.Finished {
			return nil, s, ErrMatchFinished
		}
		if s.Choices[cmd.Seat] != "" {
			return nil, s, ErrAlreadyChose
		}

		newState.Choices[cmd.Seat] = cmd.Move
		events := []Event{{Type: EvtChoiceLocked, Seat: cmd.Seat, Round: s.Round}}

		if newState.Choices[SeatA] == "" || newState.Choices[SeatB] == "" {
			return events, newState, nil
		}

		resolved, next := resolve(newState)
		return append(events, resolved...), next, nil

	case CmdRequestRematch:
		if !s.Finished {
			return nil, s, ErrMatchNotFinished
		}

		newState.Rematch[cmd.Seat] = true
		if !newState.Rematch[cmd.Seat.Other()] {
			return []Event{{Type: EvtRematchRequested, Seat: cmd.Seat}}, newState, nil
		}

		newState = NewState(s.WinsNeeded)
		return []Event{{Type: EvtRematchStarted, Seat: cmd.Seat, Round: newState.Round}}, newState, nil

	case CmdResetRound:
		newState.Choices = [2]Move{}
		return nil, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// resolve scores a round where both choices are present. The match-over
// check runs right after the winning score moves so the round event already
// carries it.
func resolve(s State) ([]Event, State) {
	winner := Resolve(s.Choices[SeatA], s.Choices[SeatB])

	if s.WinsNeeded != Unbounded {
		switch winner {
		case WinnerA:
			s.Scores[SeatA]++
		case WinnerB:
			s.Scores[SeatB]++
		}
	}

	matchOver := s.WinsNeeded != Unbounded &&
		(s.Scores[SeatA] >= s.WinsNeeded || s.Scores[SeatB] >= s.WinsNeeded)

	events := []Event{{
		Type:      EvtRoundResolved,
		Round:     s.Round,
		Moves:     s.Choices,
		Winner:    winner,
		Scores:    s.Scores,
		MatchOver: matchOver,
	}}

	if matchOver {
		s.Finished = true
		events = append(events, Event{
			Type:      EvtMatchOver,
			Seat:      matchWinner(s),
			Round:     s.Round,
			Scores:    s.Scores,
			MatchOver: true,
		})
		return events, s
	}

	s.Round++
	s.Choices = [2]Move{}
	return events, s
}

func matchWinner(s State) Seat {
	if s.Scores[SeatA] >= s.WinsNeeded {
		return SeatA
	}
	return SeatB
}
