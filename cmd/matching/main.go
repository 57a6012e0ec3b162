// cmd/matching/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"seraaj/internal/clients"
	"seraaj/internal/config"
	"seraaj/internal/directory"
	"seraaj/internal/matching"
	platformotel "seraaj/internal/platform/otel"
	"seraaj/pkg/eventbus"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdown, err := platformotel.Setup(ctx, "matching", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	var db *sql.DB
	if cfg.Backend == matching.BackendPostgres {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	}

	repository, err := matching.NewRepository(matching.StorageConfig{
		Backend: cfg.Backend,
		DataDir: cfg.DataDir,
		DB:      db,
	})
	if err != nil {
		log.Fatalf("Failed to build repository: %v", err)
	}

	// External directory services when configured, canned directory
	// otherwise.
	var (
		volunteers    matching.VolunteerSource
		opportunities matching.OpportunitySource
	)
	if cfg.VolunteerServiceURL != "" && cfg.OpportunityServiceURL != "" {
		volunteers = clients.NewVolunteerClient(cfg.VolunteerServiceURL)
		opportunities = clients.NewOpportunityClient(cfg.OpportunityServiceURL)
	} else {
		dir := directory.New()
		volunteers = dir
		opportunities = dir
	}

	bus := eventbus.NewPublisher(cfg.EventBusURL, "matching")
	svc := matching.NewService(repository, volunteers, opportunities, bus)
	handler := matching.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Group(handler.Routes)

	log.Printf("[INFO] matching service listening on %s (backend=%s)", cfg.Addr, cfg.Backend)
	log.Fatal(http.ListenAndServe(cfg.Addr, router))
}
