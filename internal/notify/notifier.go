package notify

import (
	"github.com/DoyleJ11/rps-backend/pkg/types"
)

// Notifier delivers server messages to per-connection outboxes. It is owned
// by the hub goroutine; sends never block.
type Notifier struct {
	clients map[string]chan types.ServerMessage
	dropped []string
}

func New() *Notifier {
	return &Notifier{clients: make(map[string]chan types.ServerMessage)}
}

// Register replaces any outbox already held for connID.
func (n *Notifier) Register(connID string, outbox chan types.ServerMessage) {
	if old, ok := n.clients[connID]; ok && old != outbox {
		close(old)
	}
	n.clients[connID] = outbox
}

// Unregister closes the outbox so the writer side stops.
func (n *Notifier) Unregister(connID string) {
	if ch, ok := n.clients[connID]; ok {
		close(ch)
		delete(n.clients, connID)
	}
}

func (n *Notifier) Connected(connID string) bool {
	_, ok := n.clients[connID]
	return ok
}

func (n *Notifier) Len() int { return len(n.clients) }

// Send reports false when connID is unknown or was dropped for being slow.
func (n *Notifier) Send(connID string, msg types.ServerMessage) bool {
	ch, ok := n.clients[connID]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(n.clients, connID)
		n.dropped = append(n.dropped, connID)
		return false
	}
}

func (n *Notifier) SendMany(connIDs []string, msg types.ServerMessage) {
	for _, id := range connIDs {
		n.Send(id, msg)
	}
}

func (n *Notifier) Broadcast(msg types.ServerMessage) {
	for id := range n.clients {
		n.Send(id, msg)
	}
}

// Dropped returns and clears the connections dropped since the last call.
func (n *Notifier) Dropped() []string {
	d := n.dropped
	n.dropped = nil
	return d
}

func (n *Notifier) CloseAll() {
	for id, ch := range n.clients {
		close(ch) // Tell client no more messages
		delete(n.clients, id)
	}
}
