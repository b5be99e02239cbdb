// Command bot is a scripted player for smoke and load testing. It joins,
// queues for a match, plays random moves and asks for rematches until it
// has finished the requested number of matches.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-backend/internal/engine"
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

type wireMessage struct {
	Type types.EventType `json:"type"`
	Data json.RawMessage `json:"data"`
}

var moves = []engine.Move{engine.MoveRock, engine.MovePaper, engine.MoveScissors}

type bot struct {
	name    string
	matches int
	played  int
	pick    func() engine.Move
	log     *zap.Logger
}

func newBot(name string, matches int, log *zap.Logger) *bot {
	return &bot{
		name:    name,
		matches: matches,
		pick:    func() engine.Move { return moves[rand.IntN(len(moves))] },
		log:     log,
	}
}

func (b *bot) start() []types.ClientMessage {
	return []types.ClientMessage{{Type: types.IntentFindMatch, Name: b.name}}
}

// react returns the intents to send for msg and whether the bot is done.
func (b *bot) react(msg wireMessage) ([]types.ClientMessage, bool) {
	switch msg.Type {
	case types.EventMatchFound:
		var mf types.MatchFound
		if err := json.Unmarshal(msg.Data, &mf); err == nil {
			b.log.Info("matched", zap.String("opponent", mf.Opponent), zap.Int("wins_needed", mf.WinsNeeded))
		}
		return b.move(), false

	case types.EventRematchStart:
		return b.move(), false

	case types.EventRoundResult:
		var rr types.RoundResult
		if err := json.Unmarshal(msg.Data, &rr); err != nil {
			b.log.Warn("bad round result", zap.Error(err))
			return nil, false
		}
		b.log.Debug("round",
			zap.Int("round", rr.Round),
			zap.String("result", rr.Result),
			zap.Int("you", rr.Scores.You),
			zap.Int("opponent", rr.Scores.Opponent))
		if rr.IsMatchOver {
			return nil, false
		}
		return b.move(), false

	case types.EventGameOver:
		var over types.GameOver
		_ = json.Unmarshal(msg.Data, &over)
		b.played++
		b.log.Info("match over", zap.String("result", over.Result), zap.Int("played", b.played))
		if b.played >= b.matches {
			return []types.ClientMessage{{Type: types.IntentLeaveGame}}, true
		}
		return []types.ClientMessage{{Type: types.IntentPlayAgain}}, false

	case types.EventOpponentLeft:
		b.log.Info("opponent left")
		return nil, true
	}
	return nil, false
}

func (b *bot) move() []types.ClientMessage {
	return []types.ClientMessage{{Type: types.IntentMakeChoice, Move: string(b.pick())}}
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "server websocket url")
	name := flag.String("name", "bot", "display name")
	matches := flag.Int("matches", 1, "matches to play before leaving")
	verbose := flag.Bool("v", false, "log every round")
	flag.Parse()

	zc := zap.NewDevelopmentConfig()
	if !*verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := zc.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("bot", *name))

	if err := run(*url, newBot(*name, *matches, log), log); err != nil {
		log.Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(url string, b *bot, log *zap.Logger) error {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Info("interrupted")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for _, m := range b.start() {
		if err := conn.WriteJSON(m); err != nil {
			return fmt.Errorf("send %s: %w", m.Type, err)
		}
	}

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		out, done := b.react(msg)
		for _, m := range out {
			if err := conn.WriteJSON(m); err != nil {
				return fmt.Errorf("send %s: %w", m.Type, err)
			}
		}
		if done {
			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		}
	}
}
