package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"floorplan-studio-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the remote tier's connection, set by ConnectDB.
var DB *gorm.DB

// ConnectDB opens the postgres remote store named by cfg.DBURL and checks it
// answers within a few seconds.
func ConnectDB(cfg *Config) error {
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("database ping: %w", err)
	}

	DB = db
	log.Println("✅ Database connected successfully")
	return nil
}

// MigrateAllModels creates or updates floor_plans and plan_shapes.
func MigrateAllModels(run bool) error {
	if !run {
		log.Println("skipping migration")
		return nil
	}
	if err := DB.AutoMigrate(&models.Plan{}, &models.PlanShape{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
