package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Event is pushed to admin proctoring dashboards.
type Event struct {
	Type      string          `json:"type"` // "violation" or "session_status"
	SessionID string          `json:"session_id"`
	Status    string          `json:"status,omitempty"`
	Violation *ViolationEvent `json:"violation,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ViolationEvent mirrors the violation detail in REST responses.
type ViolationEvent struct {
	ViolationType string   `json:"violation_type"`
	ObjectName    string   `json:"object_name,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	PersonCount   *int     `json:"person_count,omitempty"`
	ImagePath     string   `json:"image_path,omitempty"`
}

type feedMessage struct {
	sessionID string
	payload   []byte
}

// ProctorHub handles websocket clients listening for live session events.
type ProctorHub struct {
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan feedMessage
	clients    map[*feedClient]struct{}
}

func NewProctorHub() *ProctorHub {
	return &ProctorHub{
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan feedMessage, 256),
		clients:    make(map[*feedClient]struct{}),
	}
}

func (h *ProctorHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.sessionID != "" && client.sessionID != msg.sessionID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

func (h *ProctorHub) publish(event Event) {
	if h == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}
	h.broadcast <- feedMessage{sessionID: event.SessionID, payload: data}
}

// PublishViolation implements proctor.Publisher.
func (h *ProctorHub) PublishViolation(v models.Violation) {
	h.publish(Event{
		Type:      "violation",
		SessionID: v.SessionID,
		Violation: &ViolationEvent{
			ViolationType: v.ViolationType,
			ObjectName:    v.ObjectName,
			Confidence:    v.Confidence,
			PersonCount:   v.PersonCount,
			ImagePath:     v.ImagePath,
		},
	})
}

// PublishSessionStatus implements proctor.Publisher.
func (h *ProctorHub) PublishSessionStatus(sessionID, status string) {
	h.publish(Event{
		Type:      "session_status",
		SessionID: sessionID,
		Status:    status,
	})
}

type feedClient struct {
	hub  *ProctorHub
	conn *websocket.Conn
	send chan []byte
	// sessionID narrows the feed to one session; empty receives everything
	sessionID string
}

func newFeedClient(hub *ProctorHub, conn *websocket.Conn, sessionID string) *feedClient {
	return &feedClient{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}
}

func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
