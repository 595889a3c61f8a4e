package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`                // "buzz"
	PlayerID string `json:"player_id,omitempty"` // buzz
}

// StateMessage carries the full GameState snapshot, broadcast on every state
// change. The answer window is included so clients can render the countdown
// from the last buzz time.
type StateMessage struct {
	Type           string    `json:"type"` // "game_state"
	State          GameState `json:"state"`
	AnswerWindowMS int64     `json:"answer_window_ms"`
}

// QueueMessage carries the full waiting order, broadcast on queue changes.
type QueueMessage struct {
	Type    string           `json:"type"` // "buzz_queue"
	Entries []QueueEntryView `json:"entries"`
}

// PlayersMessage carries the scoreboard, broadcast on roster or score changes.
type PlayersMessage struct {
	Type    string   `json:"type"` // "players"
	Players []Player `json:"players"`
}

// BoardMessage carries the board grid, broadcast when tiles change.
type BoardMessage struct {
	Type       string          `json:"type"` // "board"
	Categories []BoardCategory `json:"categories"`
}

// BuzzResultMessage is sent to the buzzing client only.
type BuzzResultMessage struct {
	Type   string     `json:"type"` // "buzz_result"
	Result BuzzResult `json:"result"`
}

// ErrorMessage is sent to a single client when its request failed.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

// Hub fans every committed mutation out to all connected clients: the TV
// board, player phones, and the admin console all watch the same stream.
// Clients joining mid-game get a full snapshot on connect.
type Hub struct {
	cfg  *Config
	game *Game // set once after construction, before any client connects

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client

	mu sync.RWMutex
}

func newHub(cfg *Config) *Hub {
	return &Hub{
		cfg:      cfg,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			// Snapshots are gathered before taking h.mu so the hub lock is
			// never held while waiting on the game lock.
			snapshots := h.connectSnapshots()

			h.mu.Lock()
			h.clients[c] = true
			for _, msg := range snapshots {
				if !h.sendOrDropLocked(c, msg) {
					break
				}
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// connectSnapshots builds the full current picture for a newly connected
// client: state, queue, scoreboard, and board.
func (h *Hub) connectSnapshots() []any {
	msgs := []any{h.stateMessage(h.game.State())}

	if entries, err := h.game.Queue(); err == nil {
		msgs = append(msgs, QueueMessage{Type: "buzz_queue", Entries: entries})
	}
	if players, err := h.game.Scoreboard(); err == nil {
		msgs = append(msgs, PlayersMessage{Type: "players", Players: players})
	}
	if board, err := h.game.Board(); err == nil {
		msgs = append(msgs, BoardMessage{Type: "board", Categories: board})
	}

	return msgs
}

func (h *Hub) stateMessage(st GameState) StateMessage {
	return StateMessage{
		Type:           "game_state",
		State:          st,
		AnswerWindowMS: h.cfg.answerWindow.Milliseconds(),
	}
}

// StateChanged implements Notifier.
func (h *Hub) StateChanged(st GameState) {
	h.broadcast(h.stateMessage(st))
}

// QueueChanged implements Notifier.
func (h *Hub) QueueChanged(entries []QueueEntryView) {
	h.broadcast(QueueMessage{Type: "buzz_queue", Entries: entries})
}

// PlayersChanged implements Notifier.
func (h *Hub) PlayersChanged(players []Player) {
	h.broadcast(PlayersMessage{Type: "players", Players: players})
}

// BoardChanged implements Notifier.
func (h *Hub) BoardChanged(categories []BoardCategory) {
	h.broadcast(BoardMessage{Type: "board", Categories: categories})
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.sendOrDropLocked(client, msg)
	}
}

// sendOrDropLocked delivers msg without blocking. A client whose buffer is
// full is removed and its channel closed. Every send and every close of a
// send channel happens under h.mu, so no send can race a close. Callers hold
// h.mu.
func (h *Hub) sendOrDropLocked(c *Client, msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		delete(h.clients, c)
		close(c.send)
		return false
	}
}

// trySend delivers a single-client reply, dropping it rather than block. The
// membership check under the read lock guarantees the channel has not been
// closed by a concurrent drop.
func (h *Hub) trySend(c *Client, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the connection and joins the broadcast stream.
func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		h.register <- client

		go client.writePump()
		client.readPump(cfg, h)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "buzz":
			result, err := h.game.Buzz(msg.PlayerID)
			if err != nil {
				h.trySend(c, ErrorMessage{Type: "error", Message: err.Error()})
				continue
			}
			logf(cfg, "GAMES: Buzz from %q (locked=%t queued=%t)", msg.PlayerID, result.Locked, result.Queued)
			h.trySend(c, BuzzResultMessage{Type: "buzz_result", Result: result})
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
