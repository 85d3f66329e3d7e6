package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rankforge/ladderboard/internal/auth"
	"github.com/rankforge/ladderboard/internal/config"
	"github.com/rankforge/ladderboard/internal/es"
	"github.com/rankforge/ladderboard/internal/events"
	"github.com/rankforge/ladderboard/internal/handlers"
	"github.com/rankforge/ladderboard/internal/logging"
	"github.com/rankforge/ladderboard/internal/middleware/guard"
	"github.com/rankforge/ladderboard/internal/middleware/loggingmw"
	"github.com/rankforge/ladderboard/internal/repo"
	httpserver "github.com/rankforge/ladderboard/internal/transport/http"
	"github.com/rankforge/ladderboard/internal/upstream"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	accessSecret := []byte(configuration.JWT_ACCESS_SECRET)
	refreshSecret := []byte(configuration.JWT_REFRESH_SECRET)

	var prod *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = events.NewProducer([]string{configuration.KAFKA_ADDRESS}, events.UserEventsTopic)
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
	}

	users := repo.NewGormUserRepo(db)
	authService := auth.NewService(users, accessSecret, refreshSecret)
	ladderClient := upstream.NewClient(configuration.LADDER_API_URL, configuration.LADDER_API_KEY)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:        &handlers.AuthHandler{Auth: authService, Producer: prod},
		LeaderboardHandler: &handlers.LeaderboardHandler{Upstream: ladderClient, ES: esClient, Index: "players"},
		SearchHandler:      &handlers.SearchHandler{ES: esClient, Index: "players"},
		Guard:              guard.Middleware(guard.Config{AccessSecret: accessSecret}),
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
