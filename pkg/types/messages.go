// Package types is the JSON wire protocol spoken over /ws.
//
// Client -> Server
//
//	{"type": "<intent>", "name": "...", "roomId": "...", "move": "...", "ref": "..."}
//
// "ref" is optional. When present the server answers with an "ack" event
// carrying the same ref.
//
// Server -> Client
//
//	{"type": "<event>", "ref": "...", "data": {...}}
package types

type IntentType string

const (
	IntentJoin           IntentType = "join"
	IntentFindMatch      IntentType = "find-match"
	IntentCancelMatch    IntentType = "cancel-match"
	IntentCreateRoom     IntentType = "create-room"
	IntentCreateGame     IntentType = "create-game"
	IntentJoinRoom       IntentType = "join-room"
	IntentJoinGame       IntentType = "join-game"
	IntentChoice         IntentType = "choice"
	IntentMakeChoice     IntentType = "make-choice"
	IntentPlayAgain      IntentType = "play-again"
	IntentLeaveGame      IntentType = "leave-game"
	IntentGetLeaderboard IntentType = "get-leaderboard"
)

// Canonical folds the intent aliases onto one name each.
func (t IntentType) Canonical() IntentType {
	switch t {
	case IntentCreateGame:
		return IntentCreateRoom
	case IntentJoinGame:
		return IntentJoinRoom
	case IntentMakeChoice:
		return IntentChoice
	}
	return t
}

type ClientMessage struct {
	Type   IntentType `json:"type"`
	Name   string     `json:"name,omitempty"`
	RoomID string     `json:"roomId,omitempty"`
	Move   string     `json:"move,omitempty"`
	Ref    string     `json:"ref,omitempty"`
}

type EventType string

const (
	EventJoined               EventType = "joined"
	EventPlayerCount          EventType = "player-count"
	EventMatchFound           EventType = "match-found"
	EventGameState            EventType = "game-state"
	EventWaitingForMatch      EventType = "waiting-for-match"
	EventOpponentChose        EventType = "opponent-chose"
	EventReveal               EventType = "reveal"
	EventRoundResult          EventType = "round-result"
	EventGameOver             EventType = "game-over"
	EventOpponentWantsRematch EventType = "opponent-wants-rematch"
	EventRematchStart         EventType = "rematch-start"
	EventOpponentLeft         EventType = "opponent-left"
	EventLeaderboard          EventType = "leaderboard"
	EventError                EventType = "error"
	EventAck                  EventType = "ack"
)

type ServerMessage struct {
	Type EventType `json:"type"`
	Ref  string    `json:"ref,omitempty"`
	Data any       `json:"data,omitempty"`
}

type ErrorCode string

const (
	CodeValidation   ErrorCode = "validation"
	CodeRoomNotFound ErrorCode = "room_not_found"
	CodeRoomFull     ErrorCode = "room_full"
	CodeConflict     ErrorCode = "conflict"
	CodeNotFound     ErrorCode = "not_found"
	CodeInternal     ErrorCode = "internal"
)

type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
