package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"coinflip/internal/lib/logger/sl"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

type Message struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

type Subscription struct {
	Conn    *websocket.Conn
	Channel string
}

// Hub relays settlement events: the api process writes messages in, browser
// and CLI subscribers read them out per channel.
type Hub struct {
	channels    map[string]map[*websocket.Conn]bool
	broadcast   chan Message
	subscribe   chan Subscription
	unsubscribe chan *websocket.Conn
	mutex       sync.RWMutex
	log         *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		channels:    make(map[string]map[*websocket.Conn]bool),
		broadcast:   make(chan Message),
		subscribe:   make(chan Subscription),
		unsubscribe: make(chan *websocket.Conn),
		log:         log,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (hub *Hub) run() {
	for {
		select {
		case sub := <-hub.subscribe:
			if hub.channels[sub.Channel] == nil {
				hub.channels[sub.Channel] = make(map[*websocket.Conn]bool)
			}
			hub.channels[sub.Channel][sub.Conn] = true
		case conn := <-hub.unsubscribe:
			for _, receivers := range hub.channels {
				delete(receivers, conn)
			}
		case message := <-hub.broadcast:
			receivers, ok := hub.channels[message.Channel]
			if !ok {
				continue
			}

			data, err := json.Marshal(message)
			if err != nil {
				hub.log.Error("failed to marshal message", sl.Err(err))

				continue
			}

			hub.log.Info("broadcasting message",
				sl.String("channel", message.Channel),
				sl.String("event", message.Event),
				sl.Any("data", message.Data))

			for conn := range receivers {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					hub.log.Error("failed to write message", sl.Err(err))
				}
			}
		}
	}
}

func (hub *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", sl.Err(err))

		return
	}
	defer func() {
		hub.unsubscribe <- ws

		if err := ws.Close(); err != nil {
			hub.log.Error("failed to close connection", sl.Err(err))
		}
	}()

	for {
		_, p, err := ws.ReadMessage()
		if err != nil {
			hub.log.Error("failed to read message", sl.Err(err))

			return
		}

		var message Message
		if err = json.Unmarshal(p, &message); err != nil {
			hub.log.Error("failed to unmarshal message", sl.Err(err))

			continue
		}

		hub.log.Info("incoming message",
			sl.String("channel", message.Channel),
			sl.String("event", message.Event),
			sl.Any("data", message.Data))

		hub.subscribe <- Subscription{Conn: ws, Channel: message.Channel}

		hub.broadcast <- message
	}
}

func (hub *Hub) RunServer() {
	go hub.run()
}
