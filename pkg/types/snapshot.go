package types

type Joined struct {
	PlayerCount int `json:"playerCount"`
}

type PlayerCount struct {
	Count int `json:"count"`
}

type MatchFound struct {
	SessionID  string `json:"gameId"`
	Opponent   string `json:"opponent"`
	You        int    `json:"you"`
	WinsNeeded int    `json:"winsNeeded"`
}

type WaitingForMatch struct {
	Position int `json:"position"`
	Queued   int `json:"queued"`
}

type Scores struct {
	You      int `json:"you"`
	Opponent int `json:"opponent"`
}

// RoundResult is personalised: "you" is always the recipient.
type RoundResult struct {
	YourChoice     string  `json:"yourChoice"`
	OpponentChoice string  `json:"opponentChoice"`
	Result         string  `json:"result"`
	Scores         Scores  `json:"scores"`
	Round          int     `json:"round"`
	IsMatchOver    bool    `json:"isMatchOver"`
	MatchResult    *string `json:"matchResult"`
}

type GameOver struct {
	Result      string `json:"result"`
	FinalScores Scores `json:"finalScores"`
}

// RoomPlayer hides the move: Choice is "chosen" or null.
type RoomPlayer struct {
	DisplayName string  `json:"displayName"`
	Choice      *string `json:"choice"`
}

type GameState struct {
	RoomID  string       `json:"roomId"`
	Players []RoomPlayer `json:"players"`
	Status  string       `json:"status"`
	You     int          `json:"you"`
}

type Reveal struct {
	Choices [2]string `json:"choices"`
	Winner  string    `json:"winner"`
}

type LeaderboardEntry struct {
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Streak int    `json:"streak"`
}

// Ack answers an intent that carried a ref. Error is set on failure.
type Ack struct {
	Intent      IntentType    `json:"intent"`
	OK          bool          `json:"ok"`
	RoomID      string        `json:"roomId,omitempty"`
	PlayerCount int           `json:"playerCount,omitempty"`
	Status      string        `json:"status,omitempty"`
	Error       *ErrorPayload `json:"error,omitempty"`
}
