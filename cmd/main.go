package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"floorplan-studio-backend/internal/api"
	"floorplan-studio-backend/internal/api/routes"
	v1 "floorplan-studio-backend/internal/api/routes/v1"
	"floorplan-studio-backend/internal/cache"
	"floorplan-studio-backend/internal/canvas"
	"floorplan-studio-backend/internal/config"
	"floorplan-studio-backend/internal/handlers"
	"floorplan-studio-backend/internal/libraries"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/repo"

	"github.com/joho/godotenv"
)

const retryInterval = 30 * time.Second

type archive interface {
	persistence.Archiver
	handlers.ThumbnailStore
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plans, shapes := openRemote(cfg)
	defer config.CloseDB()

	local, err := cache.Open(cache.Options{
		Driver:     cfg.CacheDriver,
		SQLitePath: cfg.CacheSQLitePath,
		RedisURL:   cfg.RedisURL,
	})
	if err != nil {
		log.Fatal("Failed to open local cache:", err)
	}
	defer local.Close()

	store := openArchive(ctx, cfg)
	svc := persistence.NewService(plans, shapes, local, persistence.WithArchiver(store))
	registry := canvas.NewRegistry(svc, cfg.AutosaveDelay)

	hub := libraries.NewHub()
	go hub.Run()
	socket := handlers.NewCanvasSocket(registry, hub)

	go retryPending(ctx, svc)

	// Create and configure Fiber app
	app := api.NewServer(cfg)

	// Register routes
	routes.Register(app, v1.Deps{Registry: registry, Thumbnails: store}, hub, socket)

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Println("shutdown:", err)
		}
	}()

	// Start server
	if err := api.StartServer(app, cfg); err != nil {
		log.Fatal("Failed to start server:", err)
	}

	socket.Close()
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	registry.Close(flushCtx)
}

// openRemote connects the remote tier named by REMOTE_DRIVER.
func openRemote(cfg *config.Config) (repo.PlanRepoInterface, repo.PlanShapeRepoInterface) {
	if cfg.RemoteDriver == "memory" {
		log.Println("using in-memory remote store")
		m := repo.NewMemory()
		return m, m
	}

	// Connect to database
	if err := config.ConnectDB(cfg); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := config.MigrateAllModels(cfg.RunMigrations); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	return repo.NewPlanRepository(config.DB), repo.NewPlanShapeRepository(config.DB)
}

// openArchive prefers the Cloud Storage bucket and falls back to disk.
func openArchive(ctx context.Context, cfg *config.Config) archive {
	if cfg.ArchiveBucket != "" {
		client, err := libraries.NewStorageClient(ctx, cfg.GCPCredentials)
		if err == nil {
			log.Printf("archiving plans to gs://%s", cfg.ArchiveBucket)
			return libraries.NewGCSArchive(client, cfg.ArchiveBucket)
		}
		log.Printf("failed to init storage client, archiving locally: %v", err)
	}
	return libraries.NewLocalArchive(cfg.ArchiveDir)
}

// retryPending pushes plans whose last save missed the remote.
func retryPending(ctx context.Context, svc *persistence.Service) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if len(svc.PendingPlans()) == 0 {
				continue
			}
			synced, err := svc.RetryPendingSync(ctx)
			if len(synced) > 0 {
				log.Printf("[PERSIST] synced %d pending plans", len(synced))
			}
			if err != nil {
				log.Printf("[PERSIST] retry pending sync: %v", err)
			}
		}
	}
}
