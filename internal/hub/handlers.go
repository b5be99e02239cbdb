package hub

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-backend/internal/engine"
	"github.com/DoyleJ11/rps-backend/internal/matchmaking"
	"github.com/DoyleJ11/rps-backend/internal/registry"
	"github.com/DoyleJ11/rps-backend/internal/room"
	"github.com/DoyleJ11/rps-backend/internal/session"
	"github.com/DoyleJ11/rps-backend/internal/store"
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

func (h *Hub) handleIntent(in Intent) {
	var err error

	switch in.Msg.Type.Canonical() {
	case types.IntentJoin:
		err = h.join(in)
	case types.IntentFindMatch:
		err = h.findMatch(in)
	case types.IntentCancelMatch:
		h.queue.Remove(in.ConnID)
		h.ack(in, types.Ack{OK: true})
	case types.IntentCreateRoom:
		err = h.createRoom(in)
	case types.IntentJoinRoom:
		err = h.joinRoom(in)
	case types.IntentChoice:
		err = h.choose(in)
	case types.IntentPlayAgain:
		err = h.playAgain(in)
	case types.IntentLeaveGame:
		err = h.leaveGame(in)
	case types.IntentGetLeaderboard:
		h.sendLeaderboard(in.ConnID)
		h.ack(in, types.Ack{OK: true})
	default:
		err = ErrUnknownIntent
	}

	if err != nil {
		h.fail(in, err)
	}
}

func (h *Hub) join(in Intent) error {
	if _, err := h.players.Join(in.ConnID, in.Msg.Name); err != nil {
		return err
	}

	count := h.players.Len()
	h.ack(in, types.Ack{OK: true, PlayerCount: count})
	h.notifier.Send(in.ConnID, types.ServerMessage{Type: types.EventJoined, Data: types.Joined{PlayerCount: count}})
	h.broadcastPlayerCount()
	h.log.Info("player joined", zap.String("conn", in.ConnID), zap.Int("online", count))
	return nil
}

// playerName resolves the name an intent acts under without touching the
// registry: the carried name when present, else the one from an earlier join.
func (h *Hub) playerName(in Intent) (string, error) {
	if in.Msg.Name != "" {
		return registry.NormalizeName(in.Msg.Name)
	}
	if p, ok := h.players.Get(in.ConnID); ok {
		return p.Name, nil
	}
	return "", ErrNotJoined
}

// register records name for connID once its intent has been accepted.
func (h *Hub) register(connID, name string) {
	known := h.players.Has(connID)
	if _, err := h.players.Join(connID, name); err != nil {
		h.log.Warn("register player", zap.String("conn", connID), zap.Error(err))
		return
	}
	if !known {
		h.broadcastPlayerCount()
	}
}

func (h *Hub) busy(connID string) error {
	if _, ok := h.sessions.ForConn(connID); ok {
		return ErrInSession
	}
	if _, ok := h.rooms.ForConn(connID); ok {
		return ErrInRoom
	}
	return nil
}

func (h *Hub) findMatch(in Intent) error {
	name, err := h.playerName(in)
	if err != nil {
		return err
	}
	if err := h.busy(in.ConnID); err != nil {
		return err
	}
	if err := h.queue.Enqueue(matchmaking.Entry{ConnID: in.ConnID, Name: name}); err != nil {
		return err
	}
	h.register(in.ConnID, name)

	h.ack(in, types.Ack{OK: true, Status: "searching"})
	h.pairQueue()

	if pos := h.queue.Position(in.ConnID); pos > 0 {
		h.notifier.Send(in.ConnID, types.ServerMessage{
			Type: types.EventWaitingForMatch,
			Data: types.WaitingForMatch{Position: pos, Queued: h.queue.Len()},
		})
	}
	return nil
}

func (h *Hub) isLive(connID string) bool {
	if !h.notifier.Connected(connID) || !h.players.Has(connID) {
		return false
	}
	return h.busy(connID) == nil
}

func (h *Hub) pairQueue() {
	for {
		pair, ok := h.queue.DequeuePair(h.isLive)
		if !ok {
			return
		}
		h.startSession(pair[0], pair[1])
	}
}

func (h *Hub) startSession(a, b matchmaking.Entry) {
	s := h.sessions.Create(a.ConnID, b.ConnID, h.opts.WinsNeeded)
	names := [2]string{h.nameOf(a.ConnID, a.Name), h.nameOf(b.ConnID, b.Name)}

	for seat, connID := range s.Players {
		h.notifier.Send(connID, types.ServerMessage{
			Type: types.EventMatchFound,
			Data: types.MatchFound{
				SessionID:  s.ID,
				Opponent:   names[engine.Seat(seat).Other()],
				You:        seat,
				WinsNeeded: s.State.WinsNeeded,
			},
		})
	}
	h.log.Info("match started",
		zap.String("session", s.ID),
		zap.String("a", names[engine.SeatA]),
		zap.String("b", names[engine.SeatB]))
}

func (h *Hub) sendQueuePositions() {
	queued := h.queue.Len()
	for i, e := range h.queue.Entries() {
		h.notifier.Send(e.ConnID, types.ServerMessage{
			Type: types.EventWaitingForMatch,
			Data: types.WaitingForMatch{Position: i + 1, Queued: queued},
		})
	}
}

func (h *Hub) createRoom(in Intent) error {
	name, err := h.playerName(in)
	if err != nil {
		return err
	}
	if err := h.busy(in.ConnID); err != nil {
		return err
	}

	r, err := h.rooms.Create(in.ConnID, name)
	if err != nil {
		return err
	}
	h.register(in.ConnID, name)
	h.queue.Remove(in.ConnID)

	h.ack(in, types.Ack{OK: true, RoomID: r.ID, Status: string(r.Status)})
	h.sendRoomState(r)
	h.log.Info("room created", zap.String("room", r.ID), zap.String("conn", in.ConnID))
	return nil
}

func (h *Hub) joinRoom(in Intent) error {
	name, err := h.playerName(in)
	if err != nil {
		return err
	}
	if err := h.busy(in.ConnID); err != nil {
		return err
	}

	r, err := h.rooms.Join(in.Msg.RoomID, in.ConnID, name)
	if err != nil {
		return err
	}
	h.register(in.ConnID, name)
	h.queue.Remove(in.ConnID)

	h.ack(in, types.Ack{OK: true, RoomID: r.ID, Status: string(r.Status)})
	h.sendRoomState(r)
	h.log.Info("room joined", zap.String("room", r.ID), zap.String("conn", in.ConnID))
	return nil
}

func (h *Hub) choose(in Intent) error {
	move, err := engine.ParseMove(in.Msg.Move)
	if err != nil {
		return err
	}

	if s, ok := h.sessions.ForConn(in.ConnID); ok {
		return h.chooseInSession(in, s, move)
	}
	if r, ok := h.rooms.ForConn(in.ConnID); ok {
		return h.chooseInRoom(in, r, move)
	}
	return ErrNoActiveGame
}

func (h *Hub) chooseInSession(in Intent, s *session.Session, move engine.Move) error {
	seat, _ := s.Seat(in.ConnID)
	events, next, err := engine.Apply(s.State, engine.Command{Type: engine.CmdSubmitChoice, Seat: seat, Move: move})
	if err != nil {
		return err
	}
	s.State = next
	h.ack(in, types.Ack{OK: true})

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtChoiceLocked:
			h.notifier.Send(s.Opponent(in.ConnID), types.ServerMessage{Type: types.EventOpponentChose})

		case engine.EvtRoundResolved:
			for seat, connID := range s.Players {
				h.notifier.Send(connID, types.ServerMessage{
					Type: types.EventRoundResult,
					Data: roundResultFor(ev, engine.Seat(seat)),
				})
			}

		case engine.EvtMatchOver:
			h.finishMatch(s, ev)
		}
	}
	return nil
}

func roundResultFor(ev engine.Event, seat engine.Seat) types.RoundResult {
	other := seat.Other()
	rr := types.RoundResult{
		YourChoice:     string(ev.Moves[seat]),
		OpponentChoice: string(ev.Moves[other]),
		Result:         string(ev.Winner.ResultFor(seat)),
		Scores:         types.Scores{You: ev.Scores[seat], Opponent: ev.Scores[other]},
		Round:          ev.Round,
		IsMatchOver:    ev.MatchOver,
	}
	if ev.MatchOver {
		// only the round winner's score moved, so they took the match
		mr := string(ev.Winner.ResultFor(seat))
		rr.MatchResult = &mr
	}
	return rr
}

func (h *Hub) finishMatch(s *session.Session, ev engine.Event) {
	winnerID := s.Players[ev.Seat]
	loserID := s.Players[ev.Seat.Other()]
	h.players.RecordMatch(winnerID, loserID)

	h.notifier.Send(winnerID, types.ServerMessage{
		Type: types.EventGameOver,
		Data: types.GameOver{
			Result:      string(engine.ResultWin),
			FinalScores: types.Scores{You: ev.Scores[ev.Seat], Opponent: ev.Scores[ev.Seat.Other()]},
		},
	})
	h.notifier.Send(loserID, types.ServerMessage{
		Type: types.EventGameOver,
		Data: types.GameOver{
			Result:      string(engine.ResultLose),
			FinalScores: types.Scores{You: ev.Scores[ev.Seat.Other()], Opponent: ev.Scores[ev.Seat]},
		},
	})

	winnerName, loserName := h.nameOf(winnerID, ""), h.nameOf(loserID, "")
	h.log.Info("match over",
		zap.String("session", s.ID),
		zap.String("winner", winnerName),
		zap.Int("rounds", ev.Round))

	if h.opts.Recorder != nil {
		h.opts.Recorder.Record(store.MatchRecord{
			SessionID:   s.ID,
			WinnerName:  winnerName,
			LoserName:   loserName,
			WinnerScore: ev.Scores[ev.Seat],
			LoserScore:  ev.Scores[ev.Seat.Other()],
			Rounds:      ev.Round,
			WinsNeeded:  s.State.WinsNeeded,
			FinishedAt:  time.Now().UTC(),
		})
	}
}

func (h *Hub) chooseInRoom(in Intent, r *room.Room, move engine.Move) error {
	if r.Status != room.StatusPlaying {
		return ErrNoActiveGame
	}

	seat, _ := r.Seat(in.ConnID)
	events, next, err := engine.Apply(r.Match, engine.Command{Type: engine.CmdSubmitChoice, Seat: seat, Move: move})
	if err != nil {
		return err
	}
	r.Match = next
	h.ack(in, types.Ack{OK: true})

	if ev, resolved := engine.FindEvent(events, engine.EvtRoundResolved); resolved {
		h.notifier.SendMany(r.ConnIDs(), types.ServerMessage{
			Type: types.EventReveal,
			Data: types.Reveal{
				Choices: [2]string{string(ev.Moves[engine.SeatA]), string(ev.Moves[engine.SeatB])},
				Winner:  string(ev.Winner),
			},
		})
		return nil
	}

	h.sendRoomState(r)
	return nil
}

func (h *Hub) playAgain(in Intent) error {
	s, ok := h.sessions.ForConn(in.ConnID)
	if !ok {
		return ErrNoActiveGame
	}

	seat, _ := s.Seat(in.ConnID)
	events, next, err := engine.Apply(s.State, engine.Command{Type: engine.CmdRequestRematch, Seat: seat})
	if err != nil {
		return err
	}
	s.State = next
	h.ack(in, types.Ack{OK: true})

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtRematchRequested:
			h.notifier.Send(s.Opponent(in.ConnID), types.ServerMessage{Type: types.EventOpponentWantsRematch})
		case engine.EvtRematchStarted:
			h.notifier.SendMany(s.Players[:], types.ServerMessage{Type: types.EventRematchStart})
			h.log.Info("rematch started", zap.String("session", s.ID))
		}
	}
	return nil
}

func (h *Hub) leaveGame(in Intent) error {
	if h.endSession(in.ConnID) || h.leaveRoom(in.ConnID) {
		h.ack(in, types.Ack{OK: true})
		return nil
	}
	return ErrNoActiveGame
}

// endSession destroys connID's session and tells the opponent exactly once.
func (h *Hub) endSession(connID string) bool {
	s, ok := h.sessions.ForConn(connID)
	if !ok {
		return false
	}
	opponent := s.Opponent(connID)
	h.sessions.Remove(s.ID)
	h.notifier.Send(opponent, types.ServerMessage{Type: types.EventOpponentLeft})
	h.log.Info("match abandoned", zap.String("session", s.ID), zap.String("conn", connID))
	return true
}

func (h *Hub) leaveRoom(connID string) bool {
	r, destroyed, err := h.rooms.Leave(connID)
	if err != nil {
		return false
	}
	if destroyed {
		h.log.Info("room closed", zap.String("room", r.ID))
		return true
	}
	h.sendRoomState(r)
	return true
}

func (h *Hub) disconnect(connID string) {
	h.queue.Remove(connID)
	h.endSession(connID)
	h.leaveRoom(connID)
	h.notifier.Unregister(connID)

	if p, ok := h.players.Get(connID); ok {
		h.players.Remove(connID)
		h.broadcastPlayerCount()
		h.log.Info("player left", zap.String("name", p.Name), zap.Int("online", h.players.Len()))
	}
}

func (h *Hub) sendRoomState(r *room.Room) {
	players := make([]types.RoomPlayer, 0, len(r.Players))
	for seat, p := range r.Players {
		rp := types.RoomPlayer{DisplayName: p.Name}
		if seat < len(r.Match.Choices) && r.Match.Choices[seat] != "" {
			chosen := "chosen"
			rp.Choice = &chosen
		}
		players = append(players, rp)
	}

	for seat, p := range r.Players {
		h.notifier.Send(p.ConnID, types.ServerMessage{
			Type: types.EventGameState,
			Data: types.GameState{RoomID: r.ID, Players: players, Status: string(r.Status), You: seat},
		})
	}
}

func (h *Hub) sendLeaderboard(connID string) {
	board := h.players.Leaderboard(h.opts.LeaderboardSize)
	entries := make([]types.LeaderboardEntry, 0, len(board))
	for _, s := range board {
		entries = append(entries, types.LeaderboardEntry(s))
	}
	h.notifier.Send(connID, types.ServerMessage{Type: types.EventLeaderboard, Data: entries})
}

func (h *Hub) broadcastPlayerCount() {
	h.notifier.Broadcast(types.ServerMessage{
		Type: types.EventPlayerCount,
		Data: types.PlayerCount{Count: h.players.Len()},
	})
}

func (h *Hub) nameOf(connID, fallback string) string {
	if p, ok := h.players.Get(connID); ok {
		return p.Name
	}
	return fallback
}

func (h *Hub) ack(in Intent, a types.Ack) {
	a.Intent = in.Msg.Type
	if in.Reply != nil {
		select {
		case in.Reply <- a:
		default:
		}
	}
	if in.Msg.Ref != "" {
		h.notifier.Send(in.ConnID, types.ServerMessage{Type: types.EventAck, Ref: in.Msg.Ref, Data: a})
	}
}

// fail reports err through the ack channel. Validation errors are always
// dropped; without an ack channel only room and internal failures reach the
// client, as an error event.
func (h *Hub) fail(in Intent, err error) {
	code := classify(err)
	h.log.Debug("intent rejected",
		zap.String("conn", in.ConnID),
		zap.String("intent", string(in.Msg.Type)),
		zap.String("code", string(code)),
		zap.Error(err))

	if code == types.CodeValidation {
		return
	}
	payload := &types.ErrorPayload{Code: code, Message: err.Error()}

	if in.Reply == nil && in.Msg.Ref == "" {
		switch code {
		case types.CodeRoomNotFound, types.CodeRoomFull, types.CodeInternal:
			h.notifier.Send(in.ConnID, types.ServerMessage{Type: types.EventError, Data: *payload})
		}
		return
	}
	h.ack(in, types.Ack{OK: false, Error: payload})
}

func classify(err error) types.ErrorCode {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return types.CodeRoomNotFound
	case errors.Is(err, room.ErrRoomFull):
		return types.CodeRoomFull
	case errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, engine.ErrInvalidMove),
		errors.Is(err, ErrNotJoined),
		errors.Is(err, ErrUnknownIntent):
		return types.CodeValidation
	case errors.Is(err, ErrInSession),
		errors.Is(err, ErrInRoom),
		errors.Is(err, matchmaking.ErrAlreadyQueued),
		errors.Is(err, engine.ErrAlreadyChose),
		errors.Is(err, engine.ErrMatchFinished),
		errors.Is(err, engine.ErrMatchNotFinished):
		return types.CodeConflict
	case errors.Is(err, ErrNoActiveGame):
		return types.CodeNotFound
	default:
		return types.CodeInternal
	}
}
