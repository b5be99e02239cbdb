package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/rps-backend/internal/hub"
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

type wireMessage struct {
	Type types.EventType `json:"type"`
	Ref  string          `json:"ref"`
	Data json.RawMessage `json:"data"`
}

func newServer(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	log := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(ctx, hub.Options{Logger: log})
	srv := httptest.NewServer(Handler(h, Options{Logger: log, PingInterval: time.Second}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-h.Done()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func readType(t *testing.T, conn *websocket.Conn, typ types.EventType) wireMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg wireMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHandler_JoinAndAck(t *testing.T) {
	_, url := newServer(t)
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.IntentJoin, Name: "Ann", Ref: "1"})

	ack := readType(t, conn, types.EventAck)
	assert.Equal(t, "1", ack.Ref)
	var a types.Ack
	require.NoError(t, json.Unmarshal(ack.Data, &a))
	assert.True(t, a.OK)
	assert.Equal(t, 1, a.PlayerCount)

	joined := readType(t, conn, types.EventJoined)
	var j types.Joined
	require.NoError(t, json.Unmarshal(joined.Data, &j))
	assert.Equal(t, 1, j.PlayerCount)
}

func TestHandler_MalformedMessageIsIgnored(t *testing.T) {
	_, url := newServer(t)
	conn := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":`)))

	// the connection survives and keeps serving intents
	send(t, conn, types.ClientMessage{Type: types.IntentJoin, Name: "Ann"})
	readType(t, conn, types.EventJoined)
}

func TestHandler_MatchOverWebSocket(t *testing.T) {
	_, url := newServer(t)
	ann := dial(t, url)
	bo := dial(t, url)

	send(t, ann, types.ClientMessage{Type: types.IntentFindMatch, Name: "Ann"})
	readType(t, ann, types.EventWaitingForMatch)
	send(t, bo, types.ClientMessage{Type: types.IntentFindMatch, Name: "Bo"})

	var found types.MatchFound
	require.NoError(t, json.Unmarshal(readType(t, bo, types.EventMatchFound).Data, &found))
	assert.Equal(t, "Ann", found.Opponent)
	assert.Equal(t, 1, found.You)
	readType(t, ann, types.EventMatchFound)

	send(t, ann, types.ClientMessage{Type: types.IntentMakeChoice, Move: "ROCK"})
	send(t, bo, types.ClientMessage{Type: types.IntentMakeChoice, Move: "paper"})

	var res types.RoundResult
	require.NoError(t, json.Unmarshal(readType(t, ann, types.EventRoundResult).Data, &res))
	assert.Equal(t, "rock", res.YourChoice)
	assert.Equal(t, "lose", res.Result)
}

func TestHandler_DisconnectNotifiesOpponent(t *testing.T) {
	h, url := newServer(t)
	ann := dial(t, url)
	bo := dial(t, url)

	send(t, ann, types.ClientMessage{Type: types.IntentFindMatch, Name: "Ann"})
	readType(t, ann, types.EventWaitingForMatch)
	send(t, bo, types.ClientMessage{Type: types.IntentFindMatch, Name: "Bo"})
	readType(t, ann, types.EventMatchFound)
	readType(t, bo, types.EventMatchFound)

	require.NoError(t, bo.Close(websocket.StatusNormalClosure, "bye"))
	readType(t, ann, types.EventOpponentLeft)

	require.Eventually(t, func() bool {
		reply := make(chan hub.Stats, 1)
		h.Inbox() <- hub.GetStats{Reply: reply}
		s := <-reply
		return s.Players == 1 && s.Sessions == 0
	}, 2*time.Second, 10*time.Millisecond)
}
