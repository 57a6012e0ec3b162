// cmd/projector/main.go
//
// Rebuilds the read-model tables from the event log. With --rebuild-all the
// tables are truncated and every event replayed; with --from only events at
// or after the given RFC3339 timestamp are applied.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	_ "github.com/lib/pq"

	"seraaj/internal/config"
	platformotel "seraaj/internal/platform/otel"
	"seraaj/pkg/eventstore"
	"seraaj/pkg/projection"
)

func main() {
	all := flag.Bool("rebuild-all", false, "truncate read models and replay every event")
	from := flag.String("from", "", "apply events at or after this RFC3339 timestamp")
	flag.Parse()

	if *all == (*from != "") {
		log.Fatal("exactly one of --rebuild-all or --from is required")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("database_url is required for projection rebuilds")
	}

	shutdown, err := platformotel.Setup(ctx, "projector", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := eventstore.NewStore(db)
	svc := projection.NewService(store, db)

	if *all {
		counts, err := svc.RebuildAll(ctx)
		if err != nil {
			log.Fatalf("Rebuild failed: %v", err)
		}
		for aggregateType, count := range counts {
			log.Printf("[INFO] rebuilt %s: %d events applied", aggregateType, count)
		}
		return
	}

	ts, err := time.Parse(time.RFC3339, *from)
	if err != nil {
		log.Fatalf("Invalid --from timestamp: %v", err)
	}
	counts, err := svc.RebuildFromTimestamp(ctx, ts)
	if err != nil {
		log.Fatalf("Incremental rebuild failed: %v", err)
	}
	for aggregateType, count := range counts {
		log.Printf("[INFO] applied %d %s events since %s", count, aggregateType, ts.Format(time.RFC3339))
	}
}
