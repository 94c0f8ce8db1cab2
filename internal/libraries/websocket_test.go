package libraries

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseWebSocketMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, m *WebSocketMessage)
	}{
		{"join", `{"type":"join","data":{"project_id":"p1"}}`, func(t *testing.T, m *WebSocketMessage) {
			j, ok := m.Data.(*JoinPayload)
			if !ok || j.ProjectID != "p1" {
				t.Fatalf("data = %#v", m.Data)
			}
		}},
		{"command", `{"type":"canvas_command","data":{"command":"undo"}}`, func(t *testing.T, m *WebSocketMessage) {
			c, ok := m.Data.(*CanvasCommandPayload)
			if !ok || c.Command != "undo" {
				t.Fatalf("data = %#v", m.Data)
			}
		}},
		{"drag", `{"type":"drag_move","data":{"shape_id":"w1","x":12.5,"y":-3}}`, func(t *testing.T, m *WebSocketMessage) {
			d, ok := m.Data.(*DragPayload)
			if !ok || d.ShapeID != "w1" || d.X != 12.5 || d.Y != -3 {
				t.Fatalf("data = %#v", m.Data)
			}
		}},
		{"shape", `{"type":"shape_update","data":{"shape_id":"w1","patch":{"name":"north"}}}`, func(t *testing.T, m *WebSocketMessage) {
			s, ok := m.Data.(*ShapeMessagePayload)
			if !ok || s.ShapeID != "w1" || string(s.Patch) != `{"name":"north"}` {
				t.Fatalf("data = %#v", m.Data)
			}
		}},
		{"ping without data", `{"type":"ping"}`, func(t *testing.T, m *WebSocketMessage) {
			if m.Type != WebSocketMessageTypePing || m.Data != nil {
				t.Fatalf("message = %#v", m)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parseWebSocketMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tt.check(t, m)
		})
	}

	if _, err := parseWebSocketMessage([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func receive(t *testing.T, c *Client) WebSocketMessage {
	t.Helper()
	select {
	case b := <-c.Send:
		var m WebSocketMessage
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return WebSocketMessage{}
}

func TestBroadcastIsScopedToProject(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := &Client{ID: "a", Send: make(chan []byte, 4)}
	b := &Client{ID: "b", Send: make(chan []byte, 4)}
	a.SetProject("p1")
	b.SetProject("p2")
	hub.Register <- a
	hub.Register <- b

	PublishEvent(hub, "p1", WebSocketMessageTypeHistoryChanged, map[string]bool{"canUndo": true})

	if m := receive(t, a); m.Type != WebSocketMessageTypeHistoryChanged {
		t.Fatalf("a got %s", m.Type)
	}
	select {
	case <-b.Send:
		t.Fatal("client of another project received the broadcast")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister <- a
	if _, open := <-a.Send; open {
		t.Fatal("send channel not closed on unregister")
	}
	// sending to a gone client must not panic
	SendErrorMessage(hub, a, "late")
}
