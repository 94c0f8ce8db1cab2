package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"floorplan-studio-backend/internal/canvas"
	"floorplan-studio-backend/internal/libraries"
	"floorplan-studio-backend/internal/scene"
)

const socketCommandTimeout = 30 * time.Second

// CanvasSocket serves the canvas messages of the websocket hub from the
// session registry and fans store changes back out to the project's clients.
type CanvasSocket struct {
	registry *canvas.Registry
	hub      *libraries.Hub

	mu      sync.Mutex
	watched map[string]func()
}

var _ libraries.CanvasMessageProcessor = (*CanvasSocket)(nil)

func NewCanvasSocket(registry *canvas.Registry, hub *libraries.Hub) *CanvasSocket {
	return &CanvasSocket{
		registry: registry,
		hub:      hub,
		watched:  make(map[string]func()),
	}
}

// Join opens the project's session and starts publishing its changes.
func (p *CanvasSocket) Join(_ *libraries.Hub, client *libraries.Client, projectID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), socketCommandTimeout)
	defer cancel()
	s, err := p.registry.Session(ctx, projectID)
	if err != nil {
		log.Printf("[WS] client %s failed to join %s: %v", client.ID, projectID, err)
		return fmt.Errorf("cannot open project %s", projectID)
	}
	p.watch(s)
	return nil
}

func (p *CanvasSocket) watch(s *canvas.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.watched[s.ProjectID]; ok {
		return
	}
	project := s.ProjectID
	stopHistory := s.OnHistoryChange(func(h scene.HistoryState) {
		libraries.PublishEvent(p.hub, project, libraries.WebSocketMessageTypeHistoryChanged, h)
	})
	stopEvents := s.Store.Subscribe(func(ev scene.Event) {
		if !ev.TouchesShapes() {
			return
		}
		libraries.PublishEvent(p.hub, project, libraries.WebSocketMessageTypeShapesChanged, map[string]interface{}{
			"kind":      ev.Kind,
			"plan_id":   ev.PlanID,
			"shape_ids": ev.ShapeIDs,
		})
	})
	p.watched[project] = func() {
		stopHistory()
		stopEvents()
	}
}

// Close detaches every listener.
func (p *CanvasSocket) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, stop := range p.watched {
		stop()
		delete(p.watched, id)
	}
}

func (p *CanvasSocket) ProcessMessage(hub *libraries.Hub, client *libraries.Client, message *libraries.WebSocketMessage) {
	s, ok := p.registry.Lookup(client.ProjectID())
	if !ok {
		libraries.SendErrorMessage(hub, client, "Project is not open")
		return
	}
	var err error
	switch data := message.Data.(type) {
	case *libraries.CanvasCommandPayload:
		err = p.command(hub, client, s, data.Command)
	case *libraries.ShapeMessagePayload:
		err = p.shape(s, message.Type, data)
	case *libraries.DragPayload:
		err = p.drag(hub, client, s, message.Type, data)
	default:
		err = fmt.Errorf("unsupported payload for %s", message.Type)
	}
	if err != nil {
		log.Printf("[WS] %s from %s: %v", message.Type, client.ID, err)
		libraries.SendErrorMessage(hub, client, err.Error())
	}
}

func (p *CanvasSocket) command(hub *libraries.Hub, client *libraries.Client, s *canvas.Session, cmd string) error {
	switch cmd {
	case "save":
		ctx, cancel := context.WithTimeout(context.Background(), socketCommandTimeout)
		defer cancel()
		res, err := s.Save(ctx)
		if err != nil {
			return err
		}
		libraries.PublishEvent(hub, s.ProjectID, libraries.WebSocketMessageTypePlanSaved, map[string]interface{}{
			"plan_id":      s.Store.CurrentPlanID(),
			"saved":        res.Saved,
			"deleted":      res.Deleted,
			"pending_sync": res.PendingSync,
		})
	case "undo":
		if !s.Undo() {
			libraries.SendEvent(hub, client, libraries.WebSocketMessageTypeHistoryChanged, s.HistoryState())
		}
	case "redo":
		if !s.Redo() {
			libraries.SendEvent(hub, client, libraries.WebSocketMessageTypeHistoryChanged, s.HistoryState())
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (p *CanvasSocket) shape(s *canvas.Session, t libraries.WebSocketMessageType, data *libraries.ShapeMessagePayload) error {
	switch t {
	case libraries.WebSocketMessageTypeShapeAdd:
		if len(data.Shape) == 0 {
			return fmt.Errorf("shape is required")
		}
		sh, err := decodeShape(data.Shape, "")
		if err != nil {
			return err
		}
		_, err = s.Store.AddShape(sh)
		return err
	case libraries.WebSocketMessageTypeShapeUpdate:
		current, ok := s.Store.Shape(data.ShapeID)
		if !ok {
			return &scene.NotFoundError{Entity: "shape", ID: data.ShapeID}
		}
		var dto shapePatchDTO
		if len(data.Patch) > 0 {
			if err := json.Unmarshal(data.Patch, &dto); err != nil {
				return &scene.ValidationError{Field: "patch", Reason: "invalid JSON"}
			}
		}
		patch, err := dto.toPatch(current.Kind)
		if err != nil {
			return err
		}
		_, err = s.Store.UpdateShape(current.ID, patch)
		return err
	default:
		return s.Store.DeleteShape(data.ShapeID)
	}
}

func (p *CanvasSocket) drag(hub *libraries.Hub, client *libraries.Client, s *canvas.Session, t libraries.WebSocketMessageType, data *libraries.DragPayload) error {
	pos := scene.Point{X: data.X, Y: data.Y}
	switch t {
	case libraries.WebSocketMessageTypeDragStart:
		return s.Drag.Start(data.ShapeID)
	case libraries.WebSocketMessageTypeDragMove:
		resolved, err := s.Drag.Move(data.ShapeID, pos)
		if err != nil {
			return err
		}
		libraries.SendEvent(hub, client, libraries.WebSocketMessageTypeDragPosition, &libraries.DragPayload{
			ShapeID: data.ShapeID,
			X:       resolved.X,
			Y:       resolved.Y,
		})
		return nil
	default:
		return s.Drag.End(data.ShapeID, pos)
	}
}
