package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorplan-studio-backend/internal/api"
	v1 "floorplan-studio-backend/internal/api/routes/v1"
	"floorplan-studio-backend/internal/cache"
	"floorplan-studio-backend/internal/canvas"
	"floorplan-studio-backend/internal/config"
	"floorplan-studio-backend/internal/handlers"
	"floorplan-studio-backend/internal/libraries"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/repo"
)

func newRegistry(t *testing.T) *canvas.Registry {
	t.Helper()
	remote := repo.NewMemory()
	svc := persistence.NewService(remote, remote, cache.NewMemoryStore())
	registry := canvas.NewRegistry(svc, time.Hour)
	t.Cleanup(func() { registry.Close(context.Background()) })
	return registry
}

func TestRegisteredRoutes(t *testing.T) {
	registry := newRegistry(t)
	hub := libraries.NewHub()
	app := api.NewServer(&config.Config{CORSOrigins: "*", BodyLimitMB: 1})
	Register(app, v1.Deps{Registry: registry}, hub, handlers.NewCanvasSocket(registry, hub))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 || health["status"] != "ok" || health["offline"] != false {
		t.Fatalf("health = %d %v", resp.StatusCode, health)
	}

	resp, err = app.Test(httptest.NewRequest("POST", "/api/v1/projects/p1/canvas/redo", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("redo = %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
