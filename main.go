package main

import (
	"context"
	"log"
	"time"

	"promptlab/adapters/llm"
	"promptlab/adapters/postgres"
	"promptlab/adapters/rng"
	"promptlab/app"
	"promptlab/internal"
	"promptlab/internal/config"
	"promptlab/internal/errors"
	"promptlab/ui"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := internal.NewDefaultLogger()
	gin.SetMode(appConfig.Server.GinMode)

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	client, err := llm.NewClient(llm.Config{
		APIKey:  appConfig.AI.OpenAIKey,
		BaseURL: appConfig.AI.BaseURL,
		Timeout: appConfig.AI.Timeout,
	})
	if err != nil {
		log.Fatalf("LLM client error: %v", err)
	}
	producer := llm.NewCompletionProducer(client, llm.ProducerConfig{
		Model:       appConfig.AI.Model,
		Temperature: appConfig.AI.Temperature,
		MaxTokens:   appConfig.AI.MaxTokens,
		MaxAttempts: appConfig.AI.MaxAttempts,
		Backoff:     appConfig.AI.RetryBackoff,
	}, logger)

	records := postgres.NewRecordRepository(db)
	experiments := app.NewExperimentService(producer, rng.New(), records, logger)

	server := ui.NewServer(experiments, records, logger)
	if err := server.Run(":" + appConfig.Server.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
