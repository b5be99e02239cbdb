package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func submit(t *testing.T, s State, seat Seat, m Move) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, Command{Type: CmdSubmitChoice, Seat: seat, Move: m})
	if err != nil {
		t.Fatalf("submit %s for seat %d: unexpected err %v", m, seat, err)
	}
	return events, next
}

func playRound(t *testing.T, s State, a, b Move) ([]Event, State) {
	t.Helper()
	_, s = submit(t, s, SeatA, a)
	return submit(t, s, SeatB, b)
}

func TestResolve_AllPairs(t *testing.T) {
	cases := []struct {
		a, b Move
		want Winner
	}{
		{MoveRock, MoveScissors, WinnerA},
		{MoveScissors, MovePaper, WinnerA},
		{MovePaper, MoveRock, WinnerA},
		{MoveScissors, MoveRock, WinnerB},
		{MovePaper, MoveScissors, WinnerB},
		{MoveRock, MovePaper, WinnerB},
		{MoveRock, MoveRock, WinnerDraw},
		{MovePaper, MovePaper, WinnerDraw},
		{MoveScissors, MoveScissors, WinnerDraw},
	}

	for _, tc := range cases {
		t.Run(string(tc.a)+"_vs_"+string(tc.b), func(t *testing.T) {
			if got := Resolve(tc.a, tc.b); got != tc.want {
				t.Fatalf("Resolve(%s, %s): got %s, want %s", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestBeats_AntiSymmetric(t *testing.T) {
	moves := []Move{MoveRock, MovePaper, MoveScissors}
	for _, a := range moves {
		for _, b := range moves {
			if a.Beats(b) && b.Beats(a) {
				t.Fatalf("%s and %s beat each other", a, b)
			}
			if a == b && a.Beats(b) {
				t.Fatalf("%s beats itself", a)
			}
			if a != b && !a.Beats(b) && !b.Beats(a) {
				t.Fatalf("%s vs %s has no winner", a, b)
			}
		}
	}
}

func TestParseMove(t *testing.T) {
	cases := []struct {
		raw     string
		want    Move
		wantErr bool
	}{
		{raw: "rock", want: MoveRock},
		{raw: " Paper ", want: MovePaper},
		{raw: "SCISSORS", want: MoveScissors},
		{raw: "lizard", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseMove(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidMove) {
					t.Fatalf("want ErrInvalidMove, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseMove(%q): got %q, %v", tc.raw, got, err)
			}
		})
	}
}

func TestWinnerResultFor(t *testing.T) {
	require.Equal(t, ResultWin, WinnerA.ResultFor(SeatA))
	require.Equal(t, ResultLose, WinnerA.ResultFor(SeatB))
	require.Equal(t, ResultLose, WinnerB.ResultFor(SeatA))
	require.Equal(t, ResultWin, WinnerB.ResultFor(SeatB))
	require.Equal(t, ResultDraw, WinnerDraw.ResultFor(SeatA))
	require.Equal(t, ResultDraw, WinnerDraw.ResultFor(SeatB))
}

func TestSubmitChoice_FirstChoiceLocksWithoutResolving(t *testing.T) {
	events, s := submit(t, NewState(3), SeatA, MoveRock)

	require.Len(t, events, 1)
	require.Equal(t, EvtChoiceLocked, events[0].Type)
	require.Equal(t, SeatA, events[0].Seat)
	require.Equal(t, MoveRock, s.Choices[SeatA])
	require.Equal(t, 1, s.Round)
}

func TestSubmitChoice_SecondChoiceSameRoundNeverOverwrites(t *testing.T) {
	_, s := submit(t, NewState(3), SeatA, MoveRock)

	_, next, err := Apply(s, Command{Type: CmdSubmitChoice, Seat: SeatA, Move: MovePaper})
	if !errors.Is(err, ErrAlreadyChose) {
		t.Fatalf("want ErrAlreadyChose, got %v", err)
	}
	if next.Choices[SeatA] != MoveRock {
		t.Fatalf("first choice overwritten: %+v", next.Choices)
	}
}

func TestSubmitChoice_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		setup State
		cmd   Command
		want  error
	}{
		{
			name:  "unknown move token",
			setup: NewState(3),
			cmd:   Command{Type: CmdSubmitChoice, Seat: SeatA, Move: "lizard"},
			want:  ErrInvalidMove,
		},
		{
			name:  "seat out of range",
			setup: NewState(3),
			cmd:   Command{Type: CmdSubmitChoice, Seat: Seat(2), Move: MoveRock},
			want:  ErrInvalidSeat,
		},
		{
			name:  "match finished",
			setup: State{Round: 5, WinsNeeded: 3, Scores: [2]int{3, 1}, Finished: true},
			cmd:   Command{Type: CmdSubmitChoice, Seat: SeatB, Move: MoveRock},
			want:  ErrMatchFinished,
		},
		{
			name:  "unsupported command",
			setup: NewState(3),
			cmd:   Command{Type: "Surrender", Seat: SeatA},
			want:  ErrUnsupportedCommand,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if events != nil {
				t.Fatalf("expected no events, got %+v", events)
			}
			if next != tc.setup {
				t.Fatalf("state mutated on rejected command: %+v", next)
			}
		})
	}
}

func TestRound_WinAdvancesRoundAndClearsChoices(t *testing.T) {
	events, s := playRound(t, NewState(3), MoveRock, MoveScissors)

	ev, ok := FindEvent(events, EvtRoundResolved)
	require.True(t, ok)
	require.Equal(t, WinnerA, ev.Winner)
	require.Equal(t, 1, ev.Round)
	require.Equal(t, [2]int{1, 0}, ev.Scores)
	require.Equal(t, [2]Move{MoveRock, MoveScissors}, ev.Moves)
	require.False(t, ev.MatchOver)

	require.Equal(t, 2, s.Round)
	require.Equal(t, [2]Move{}, s.Choices)
	require.False(t, ContainsEvent(events, EvtMatchOver))
}

func TestRound_DrawKeepsScores(t *testing.T) {
	events, s := playRound(t, NewState(3), MovePaper, MovePaper)

	ev, ok := FindEvent(events, EvtRoundResolved)
	require.True(t, ok)
	require.Equal(t, WinnerDraw, ev.Winner)
	require.Equal(t, [2]int{0, 0}, s.Scores)
	require.Equal(t, 2, s.Round)
}

func TestMatch_ThirdWinEndsMatchOnSameRoundEvent(t *testing.T) {
	s := NewState(3)
	_, s = playRound(t, s, MoveRock, MoveScissors)  // 1-0
	_, s = playRound(t, s, MoveRock, MovePaper)     // 1-1
	_, s = playRound(t, s, MoveScissors, MovePaper) // 2-1
	_, s = playRound(t, s, MoveRock, MoveRock)      // draw
	events, s := playRound(t, s, MovePaper, MoveRock)

	round, ok := FindEvent(events, EvtRoundResolved)
	require.True(t, ok)
	require.True(t, round.MatchOver)
	require.Equal(t, 5, round.Round)
	require.Equal(t, [2]int{3, 1}, round.Scores)

	over, ok := FindEvent(events, EvtMatchOver)
	require.True(t, ok)
	require.Equal(t, SeatA, over.Seat)
	require.True(t, s.Finished)
	require.Equal(t, PhaseMatchOver, DerivePhase(s))

	_, _, err := Apply(s, Command{Type: CmdSubmitChoice, Seat: SeatA, Move: MoveRock})
	require.ErrorIs(t, err, ErrMatchFinished)
}

func TestMatch_SeatBCanWin(t *testing.T) {
	s := NewState(1)
	events, s := playRound(t, s, MoveScissors, MoveRock)

	over, ok := FindEvent(events, EvtMatchOver)
	require.True(t, ok)
	require.Equal(t, SeatB, over.Seat)
	require.Equal(t, [2]int{0, 1}, s.Scores)
}

func TestUnbounded_NeverScoresOrFinishes(t *testing.T) {
	s := NewState(Unbounded)
	for i := 0; i < 10; i++ {
		var events []Event
		events, s = playRound(t, s, MoveRock, MoveScissors)
		require.False(t, ContainsEvent(events, EvtMatchOver))
		require.Equal(t, [2]Move{}, s.Choices)
	}
	require.Equal(t, [2]int{0, 0}, s.Scores)
	require.False(t, s.Finished)
	require.Equal(t, 11, s.Round)
}

func TestRematch_RequiresBothSeats(t *testing.T) {
	s := NewState(1)
	_, s = playRound(t, s, MoveRock, MoveScissors)
	require.True(t, s.Finished)

	events, s, err := Apply(s, Command{Type: CmdRequestRematch, Seat: SeatB})
	require.NoError(t, err)
	require.Equal(t, []Event{{Type: EvtRematchRequested, Seat: SeatB}}, events)
	require.True(t, s.Finished)
	require.Equal(t, [2]int{1, 0}, s.Scores)

	events, s, err = Apply(s, Command{Type: CmdRequestRematch, Seat: SeatA})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtRematchStarted))
	require.Equal(t, NewState(1), s)
}

func TestRematch_RejectedBeforeFinish(t *testing.T) {
	_, _, err := Apply(NewState(3), Command{Type: CmdRequestRematch, Seat: SeatA})
	if !errors.Is(err, ErrMatchNotFinished) {
		t.Fatalf("want ErrMatchNotFinished, got %v", err)
	}
}

func TestResetRound_DropsPendingChoices(t *testing.T) {
	_, s := submit(t, NewState(Unbounded), SeatB, MovePaper)

	events, s, err := Apply(s, Command{Type: CmdResetRound, Seat: SeatA})
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, [2]Move{}, s.Choices)
}
