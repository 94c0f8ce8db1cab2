package libraries

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebSocketMessageType names every message exchanged on /ws
type WebSocketMessageType string

const (
	WebSocketMessageTypePing          WebSocketMessageType = "ping"
	WebSocketMessageTypePong          WebSocketMessageType = "pong"
	WebSocketMessageTypeError         WebSocketMessageType = "error"
	WebSocketMessageTypeJoin          WebSocketMessageType = "join"
	WebSocketMessageTypeJoined        WebSocketMessageType = "joined"
	WebSocketMessageTypeCanvasCommand WebSocketMessageType = "canvas_command"
	WebSocketMessageTypeShapeAdd      WebSocketMessageType = "shape_add"
	WebSocketMessageTypeShapeUpdate   WebSocketMessageType = "shape_update"
	WebSocketMessageTypeShapeDelete   WebSocketMessageType = "shape_delete"
	WebSocketMessageTypeDragStart     WebSocketMessageType = "drag_start"
	WebSocketMessageTypeDragMove      WebSocketMessageType = "drag_move"
	WebSocketMessageTypeDragEnd       WebSocketMessageType = "drag_end"

	// server pushes
	WebSocketMessageTypeDragPosition   WebSocketMessageType = "drag_position"
	WebSocketMessageTypeHistoryChanged WebSocketMessageType = "history_changed"
	WebSocketMessageTypeShapesChanged  WebSocketMessageType = "shapes_changed"
	WebSocketMessageTypePlanSaved      WebSocketMessageType = "plan_saved"
)

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	once sync.Once

	mu        sync.RWMutex
	projectID string
}

// ProjectID returns the project the client joined, or "".
func (c *Client) ProjectID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectID
}

// SetProject binds the client to a project; broadcasts for that project reach it.
func (c *Client) SetProject(id string) {
	c.mu.Lock()
	c.projectID = id
	c.mu.Unlock()
}

type projectMessage struct {
	projectID string
	payload   []byte
}

type Hub struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan projectMessage
}

type WebSocketMessage struct {
	Type WebSocketMessageType `json:"type"`
	Data interface{}          `json:"data,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type JoinPayload struct {
	ProjectID string `json:"project_id"`
}

type CanvasCommandPayload struct {
	Command string `json:"command"` // save | undo | redo
}

// ShapeMessagePayload carries a shape record (shape_add), a partial patch
// (shape_update) or just an id (shape_delete).
type ShapeMessagePayload struct {
	ShapeID string          `json:"shape_id,omitempty"`
	Shape   json.RawMessage `json:"shape,omitempty"`
	Patch   json.RawMessage `json:"patch,omitempty"`
}

type DragPayload struct {
	ShapeID string  `json:"shape_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan projectMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client.ID] = client
		case client := <-h.Unregister:
			if _, exists := h.Clients[client.ID]; exists {
				delete(h.Clients, client.ID)
				client.once.Do(func() {
					close(client.Send)
				})
			}
		case message := <-h.Broadcast:
			for _, client := range h.Clients {
				if client.ProjectID() != message.projectID {
					continue
				}
				select {
				case client.Send <- message.payload:
				default:
					log.Printf("[WS] dropping message for slow client %s", client.ID)
				}
			}
		}
	}
}

// BroadcastToProject sends message to every client that joined projectID.
func (h *Hub) BroadcastToProject(projectID string, message []byte) {
	h.Broadcast <- projectMessage{projectID: projectID, payload: message}
}

func (h *Hub) SendMessage(client *Client, message []byte) {
	defer func() {
		// client.Send is closed once the client unregisters
		if recover() != nil {
			log.Printf("[WS] client %s is gone", client.ID)
		}
	}()
	client.Send <- message
}

// Encode marshals a typed message.
func Encode(t WebSocketMessageType, data interface{}) ([]byte, error) {
	return json.Marshal(WebSocketMessage{Type: t, Data: data})
}

// SendEvent sends a typed message to one client
func SendEvent(hub *Hub, client *Client, t WebSocketMessageType, data interface{}) {
	b, err := Encode(t, data)
	if err != nil {
		log.Printf("[WS] failed to marshal %s: %v", t, err)
		return
	}
	hub.SendMessage(client, b)
}

// PublishEvent sends a typed message to every client of the project
func PublishEvent(hub *Hub, projectID string, t WebSocketMessageType, data interface{}) {
	b, err := Encode(t, data)
	if err != nil {
		log.Printf("[WS] failed to marshal %s: %v", t, err)
		return
	}
	hub.BroadcastToProject(projectID, b)
}

// SendErrorMessage sends a standardized error message to a client
func SendErrorMessage(hub *Hub, client *Client, errorMsg string) {
	SendEvent(hub, client, WebSocketMessageTypeError, &ErrorPayload{Message: errorMsg})
}

// parseWebSocketMessage parses incoming websocket message and returns the message structure
func parseWebSocketMessage(msg []byte) (*WebSocketMessage, error) {
	var rawMessage struct {
		Type WebSocketMessageType `json:"type"`
		Data json.RawMessage      `json:"data,omitempty"`
	}
	if err := json.Unmarshal(msg, &rawMessage); err != nil {
		return nil, err
	}

	message := &WebSocketMessage{
		Type: rawMessage.Type,
	}
	if len(rawMessage.Data) == 0 {
		return message, nil
	}

	var target interface{}
	switch rawMessage.Type {
	case WebSocketMessageTypeJoin:
		target = &JoinPayload{}
	case WebSocketMessageTypeCanvasCommand:
		target = &CanvasCommandPayload{}
	case WebSocketMessageTypeShapeAdd, WebSocketMessageTypeShapeUpdate, WebSocketMessageTypeShapeDelete:
		target = &ShapeMessagePayload{}
	case WebSocketMessageTypeDragStart, WebSocketMessageTypeDragMove, WebSocketMessageTypeDragEnd:
		target = &DragPayload{}
	default:
		var data interface{}
		target = &data
	}
	if err := json.Unmarshal(rawMessage.Data, target); err != nil {
		return nil, err
	}
	message.Data = target
	return message, nil
}

// CanvasMessageProcessor handles the canvas messages of a joined client.
type CanvasMessageProcessor interface {
	// Join binds the client to a project; an error is reported to the client.
	Join(hub *Hub, client *Client, projectID string) error
	ProcessMessage(hub *Hub, client *Client, message *WebSocketMessage)
}

func WebSocketHandler(hub *Hub, processor CanvasMessageProcessor) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := &Client{
			ID:   uuid.NewString(),
			Conn: conn,
			Send: make(chan []byte, 256),
		}

		hub.Register <- client

		// Write loop
		go func() {
			defer conn.Close()
			for msg := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Println("[WS] write error:", err)
					return
				}
			}
		}()

		// Read loop
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Println("[WS] read error:", err)
				break
			}

			message, err := parseWebSocketMessage(msg)
			if err != nil {
				log.Println("[WS] failed to parse JSON:", err)
				SendErrorMessage(hub, client, "Invalid JSON format")
				continue
			}

			switch message.Type {
			case WebSocketMessageTypePing:
				SendEvent(hub, client, WebSocketMessageTypePong, nil)
			case WebSocketMessageTypeJoin:
				join, ok := message.Data.(*JoinPayload)
				if !ok || join.ProjectID == "" {
					SendErrorMessage(hub, client, "Project ID is required")
					continue
				}
				if err := processor.Join(hub, client, join.ProjectID); err != nil {
					SendErrorMessage(hub, client, err.Error())
					continue
				}
				client.SetProject(join.ProjectID)
				SendEvent(hub, client, WebSocketMessageTypeJoined, join)
			case WebSocketMessageTypeCanvasCommand,
				WebSocketMessageTypeShapeAdd, WebSocketMessageTypeShapeUpdate, WebSocketMessageTypeShapeDelete,
				WebSocketMessageTypeDragStart, WebSocketMessageTypeDragMove, WebSocketMessageTypeDragEnd:
				if client.ProjectID() == "" {
					SendErrorMessage(hub, client, "Join a project first")
					continue
				}
				if message.Data == nil {
					SendErrorMessage(hub, client, "Payload is required")
					continue
				}
				processor.ProcessMessage(hub, client, message)
			default:
				SendErrorMessage(hub, client, "Type is invalid or not provided")
			}
		}

		hub.Unregister <- client
	})
}
