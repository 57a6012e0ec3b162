// cmd/applications/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"seraaj/internal/applications"
	"seraaj/internal/config"
	platformotel "seraaj/internal/platform/otel"
	"seraaj/pkg/eventbus"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdown, err := platformotel.Setup(ctx, "applications", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	var db *sql.DB
	if cfg.Backend == applications.BackendPostgres {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	}

	repository, err := applications.NewRepository(applications.StorageConfig{
		Backend: cfg.Backend,
		DataDir: cfg.DataDir,
		DB:      db,
	})
	if err != nil {
		log.Fatalf("Failed to build repository: %v", err)
	}

	bus := eventbus.NewPublisher(cfg.EventBusURL, "applications")
	svc := applications.NewService(repository, bus)
	handler := applications.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Group(handler.Routes)

	log.Printf("[INFO] applications service listening on %s (backend=%s)", cfg.Addr, cfg.Backend)
	log.Fatal(http.ListenAndServe(cfg.Addr, router))
}
