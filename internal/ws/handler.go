package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-backend/internal/hub"
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

const (
	readLimit    = 4 << 10
	writeTimeout = 3 * time.Second
)

type Options struct {
	OriginPatterns []string
	OutboxSize     int
	PingInterval   time.Duration
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 16
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("upgrade failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))

		out := make(chan types.ServerMessage, opts.OutboxSize)
		if !h.Post(hub.Connect{ConnID: connID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer h.Post(hub.Disconnect{ConnID: connID})
		clog.Debug("connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writeLoop(ctx, cancel, conn, out, clog)
		go pingLoop(ctx, conn, opts.PingInterval, clog)

		readLoop(ctx, h, conn, connID, clog)
		clog.Debug("disconnected")
	}
}

// writeLoop drains the outbox until the hub closes it, which happens on
// disconnect, on shutdown, and when the client fell too far behind.
func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan types.ServerMessage, log *zap.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-out:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "closed by server")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, msg)
			wcancel()
			if err != nil {
				log.Debug("write failed", zap.String("event", string(msg.Type)), zap.Error(err))
				return
			}
		}
	}
}

// pingLoop keeps idle connections alive. There is no read deadline, so a
// player may wait in the queue indefinitely.
func pingLoop(ctx context.Context, conn *websocket.Conn, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, every)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				conn.CloseNow()
				return
			}
		}
	}
}

func readLoop(ctx context.Context, h *hub.Hub, conn *websocket.Conn, connID string, log *zap.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("malformed message dropped", zap.Error(err))
			continue
		}
		if !h.Post(hub.Intent{ConnID: connID, Msg: msg}) {
			return
		}
	}
}
