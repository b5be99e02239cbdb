package room

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/rps-backend/internal/engine"
)

func TestGenerateCode_Format(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)
}

func TestStore_CreateJoinFlow(t *testing.T) {
	st := NewStore()

	r, err := st.Create("c1", "Ann")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, []Player{{ConnID: "c1", Name: "Ann"}}, r.Players)

	joined, err := st.Join(r.ID, "c2", "Bo")
	require.NoError(t, err)
	assert.Same(t, r, joined)
	assert.Equal(t, StatusPlaying, r.Status)

	seat, ok := r.Seat("c2")
	require.True(t, ok)
	assert.Equal(t, engine.SeatB, seat)

	got, ok := st.ForConn("c2")
	require.True(t, ok)
	assert.Same(t, r, got)
}

func TestStore_JoinErrors(t *testing.T) {
	st := NewStore()
	r, err := st.Create("c1", "Ann")
	require.NoError(t, err)
	_, err = st.Join(r.ID, "c2", "Bo")
	require.NoError(t, err)

	_, err = st.Join("NOPE00", "c3", "Cy")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = st.Join(r.ID, "c3", "Cy")
	assert.ErrorIs(t, err, ErrRoomFull)
	_, ok := st.ForConn("c3")
	assert.False(t, ok)
}

func TestStore_JoinAcceptsTypedCode(t *testing.T) {
	tests := []struct {
		name  string
		typed func(code string) string
	}{
		{"lowercase", strings.ToLower},
		{"surrounding space", func(c string) string { return "  " + c + "\n" }},
		{"mixed", func(c string) string { return strings.ToLower(c[:3]) + c[3:] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewStore()
			st.newCode = func() (string, error) { return "AB12CD", nil }
			r, err := st.Create("c1", "Ann")
			require.NoError(t, err)

			joined, err := st.Join(tt.typed(r.ID), "c2", "Bo")
			require.NoError(t, err)
			assert.Same(t, r, joined)

			got, ok := st.ForConn("c2")
			require.True(t, ok)
			assert.Equal(t, "AB12CD", got.ID)
		})
	}
}

func TestStore_LeaveKeepsRoomForRemainingPlayer(t *testing.T) {
	st := NewStore()
	r, _ := st.Create("c1", "Ann")
	_, _ = st.Join(r.ID, "c2", "Bo")
	_, r.Match, _ = engine.Apply(r.Match, engine.Command{Type: engine.CmdSubmitChoice, Seat: engine.SeatB, Move: engine.MoveRock})

	left, destroyed, err := st.Leave("c1")
	require.NoError(t, err)
	assert.False(t, destroyed)
	assert.Same(t, r, left)
	assert.Equal(t, []Player{{ConnID: "c2", Name: "Bo"}}, r.Players)
	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, [2]engine.Move{}, r.Match.Choices)

	// the freed seat can be taken again
	_, err = st.Join(r.ID, "c3", "Cy")
	require.NoError(t, err)
	seat, _ := r.Seat("c3")
	assert.Equal(t, engine.SeatB, seat)
}

func TestStore_LastLeaveDestroysRoom(t *testing.T) {
	st := NewStore()
	r, _ := st.Create("c1", "Ann")

	_, destroyed, err := st.Leave("c1")
	require.NoError(t, err)
	assert.True(t, destroyed)
	_, ok := st.Get(r.ID)
	assert.False(t, ok)
	assert.Zero(t, st.Len())

	_, _, err = st.Leave("c1")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestStore_CodeCollisionsRetry(t *testing.T) {
	st := NewStore()
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	st.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := st.Create("c1", "Ann")
	require.NoError(t, err)
	second, err := st.Create("c2", "Bo")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.ID)
	assert.Equal(t, "BBBBBB", second.ID)
}

func TestStore_CodeGeneratorFailure(t *testing.T) {
	st := NewStore()
	boom := errors.New("entropy exhausted")
	st.newCode = func() (string, error) { return "", boom }

	_, err := st.Create("c1", "Ann")
	assert.ErrorIs(t, err, boom)
	_, ok := st.ForConn("c1")
	assert.False(t, ok)
}
