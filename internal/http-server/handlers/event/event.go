package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"coinflip/internal/lib/logger/sl"

	"github.com/gorilla/websocket"
	"github.com/pusher/pusher-http-go/v5"
	"golang.org/x/exp/slog"
)

type Message struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

type Publisher interface {
	TriggerEvent(m Message) error
}

// WSEvent pushes messages into the ws relay over a dialed connection.
type WSEvent struct {
	log  *slog.Logger
	conn *websocket.Conn
	// gorilla connections do not allow concurrent writers
	mu sync.Mutex
}

func NewWSEvent(log *slog.Logger, conn *websocket.Conn) *WSEvent {
	p := &WSEvent{
		log:  log,
		conn: conn,
	}

	// The relay subscribes every sender and echoes broadcasts back. This
	// side only publishes, so the echoes must be drained or the socket
	// buffer fills and stalls the relay's write loop.
	go p.discardIncoming()

	return p
}

func (p *WSEvent) discardIncoming() {
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *WSEvent) TriggerEvent(m Message) error {
	const op = "handlers.event.WSEvent.TriggerEvent"

	msg, err := json.Marshal(m)
	if err != nil {
		p.log.Error("failed to marshal message", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		p.log.Error("failed to trigger event", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PusherEvent publishes through Pusher when credentials are configured.
type PusherEvent struct {
	log    *slog.Logger
	pusher *pusher.Client
}

func NewPusherEvent(log *slog.Logger, pusherClient *pusher.Client) *PusherEvent {
	return &PusherEvent{
		log:    log,
		pusher: pusherClient,
	}
}

func (p *PusherEvent) TriggerEvent(m Message) error {
	if err := p.pusher.Trigger(m.Channel, m.Event, m.Data); err != nil {
		p.log.Error("failed to trigger pusher event", sl.Err(err))

		return err
	}

	return nil
}

// Fanout delivers each message to every configured publisher. A sink failing
// does not stop the others; the last error is reported.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) TriggerEvent(m Message) error {
	var last error

	for _, p := range f.publishers {
		if err := p.TriggerEvent(m); err != nil {
			last = err
		}
	}

	return last
}
