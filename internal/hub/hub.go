package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-backend/internal/engine"
	"github.com/DoyleJ11/rps-backend/internal/matchmaking"
	"github.com/DoyleJ11/rps-backend/internal/notify"
	"github.com/DoyleJ11/rps-backend/internal/registry"
	"github.com/DoyleJ11/rps-backend/internal/room"
	"github.com/DoyleJ11/rps-backend/internal/session"
	"github.com/DoyleJ11/rps-backend/internal/store"
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

var ErrNotJoined = errors.New("connection has not joined")
var ErrInSession = errors.New("connection already in a match")
var ErrInRoom = errors.New("connection already in a room")
var ErrNoActiveGame = errors.New("no active match or room")
var ErrUnknownIntent = errors.New("unknown intent")

type HubMsg interface{ isHubMsg() }

// Connect registers a transport connection and the outbox the hub writes to.
type Connect struct {
	ConnID string
	Outbox chan types.ServerMessage
}

type Disconnect struct {
	ConnID string
}

// Intent is one client request. Reply is optional and receives the ack.
type Intent struct {
	ConnID string
	Msg    types.ClientMessage
	Reply  chan<- types.Ack
}

// Tick re-runs pairing and refreshes queue positions.
type Tick struct{}

type GetLeaderboard struct {
	Reply chan []registry.Standing
}

type GetStats struct {
	Reply chan Stats
}

type Lookup struct {
	ConnID string
	Reply  chan Presence
}

type ShutdownHub struct{}

func (Connect) isHubMsg()        {}
func (Disconnect) isHubMsg()     {}
func (Intent) isHubMsg()         {}
func (Tick) isHubMsg()           {}
func (GetLeaderboard) isHubMsg() {}
func (GetStats) isHubMsg()       {}
func (Lookup) isHubMsg()         {}
func (ShutdownHub) isHubMsg()    {}

type Stats struct {
	Connections int `json:"connections"`
	Players     int `json:"players"`
	Queued      int `json:"queued"`
	Sessions    int `json:"sessions"`
	Rooms       int `json:"rooms"`
}

// Presence is where a connection currently is.
type Presence struct {
	Connected     bool             `json:"connected"`
	Player        *registry.Player `json:"player,omitempty"`
	SessionID     string           `json:"sessionId,omitempty"`
	MatchPhase    engine.Phase     `json:"matchPhase,omitempty"`
	RoomID        string           `json:"roomId,omitempty"`
	QueuePosition int              `json:"queuePosition,omitempty"`
}

// Known reports whether the hub holds anything for the connection.
func (p Presence) Known() bool { return p.Connected || p.Player != nil }

// Recorder receives finished matches. Record must not block.
type Recorder interface {
	Record(store.MatchRecord) bool
}

type Options struct {
	WinsNeeded      int
	LeaderboardSize int
	Recorder        Recorder
	Logger          *zap.Logger
}

type Hub struct {
	inbox  chan HubMsg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *zap.Logger
	opts   Options

	players  *registry.Registry
	queue    *matchmaking.Queue
	sessions *session.Store
	rooms    *room.Store
	notifier *notify.Notifier
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.WinsNeeded <= 0 {
		opts.WinsNeeded = 3
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      opts.Logger.Named("hub"),
		opts:     opts,
		players:  registry.New(),
		queue:    matchmaking.NewQueue(),
		sessions: session.NewStore(),
		rooms:    room.NewStore(),
		notifier: notify.New(),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the loop has exited and every outbox is closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Post delivers msg unless the hub has stopped.
func (h *Hub) Post(msg HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	defer h.shutdown()

	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.notifier.Register(msg.ConnID, msg.Outbox)

			case Disconnect:
				h.disconnect(msg.ConnID)

			case Intent:
				h.handleIntent(msg)

			case Tick:
				h.pairQueue()
				h.sendQueuePositions()

			case GetLeaderboard:
				msg.Reply <- h.players.Leaderboard(h.opts.LeaderboardSize)

			case GetStats:
				msg.Reply <- Stats{
					Connections: h.notifier.Len(),
					Players:     h.players.Len(),
					Queued:      h.queue.Len(),
					Sessions:    h.sessions.Len(),
					Rooms:       h.rooms.Len(),
				}

			case Lookup:
				msg.Reply <- h.presence(msg.ConnID)

			case ShutdownHub:
				return
			}

			h.reapDropped()
		}
	}
}

// reapDropped tears down connections the notifier dropped as slow. It runs
// after each message so teardown never interleaves with a half-applied intent.
func (h *Hub) reapDropped() {
	for {
		dropped := h.notifier.Dropped()
		if len(dropped) == 0 {
			return
		}
		for _, id := range dropped {
			h.log.Warn("dropping slow client", zap.String("conn", id))
			h.disconnect(id)
		}
	}
}

func (h *Hub) shutdown() {
	h.notifier.CloseAll()
	h.cancel()
	h.log.Info("hub stopped",
		zap.Int("players", h.players.Len()),
		zap.Int("sessions", h.sessions.Len()),
		zap.Int("rooms", h.rooms.Len()))
}

func (h *Hub) presence(connID string) Presence {
	p := Presence{
		Connected:     h.notifier.Connected(connID),
		QueuePosition: h.queue.Position(connID),
	}
	if pl, ok := h.players.Get(connID); ok {
		cp := *pl
		p.Player = &cp
	}
	if s, ok := h.sessions.ForConn(connID); ok {
		p.SessionID = s.ID
		p.MatchPhase = engine.DerivePhase(s.State)
	}
	if r, ok := h.rooms.ForConn(connID); ok {
		p.RoomID = r.ID
	}
	return p
}
