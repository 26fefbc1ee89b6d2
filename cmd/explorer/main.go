// Command explorer serves simulated frontier-exploration sessions over HTTP.
//
// Each session owns one agent exploring a polygon world from a start
// position. Clients step the simulation and read back the pose, the planned
// path and the occupancy grid.
//
// Usage:
//
//	go run ./cmd/explorer [flags]
//
// Flags:
//
//	-addr       Listen address (default: :8080)
//	-config     YAML configuration file (default: built-in defaults)
//	-obstacles  Directory of .geojson obstacle files shared by every session
//	-simplify   Douglas-Peucker tolerance for loaded obstacles (default: 0.05)
//	-events     Log structured exploration events to stderr
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulmach/orb"

	"exploration-planner/internal/config"
	"exploration-planner/internal/monitoring"
	"exploration-planner/internal/world"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	configPath := flag.String("config", "", "YAML configuration file")
	obstacleDir := flag.String("obstacles", "", "Directory of .geojson obstacle files")
	tolerance := flag.Float64("simplify", 0.05, "Douglas-Peucker tolerance for loaded obstacles")
	events := flag.Bool("events", false, "Log structured exploration events to stderr")
	flag.Parse()

	log.Println("========================================")
	log.Println("🚀 Exploration Planner Server")
	log.Println("========================================")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		cfg = loaded
		log.Printf("✅ Loaded configuration from %s\n", *configPath)
	}

	var obstacles []orb.Polygon
	if *obstacleDir != "" {
		loaded, err := world.LoadDir(*obstacleDir)
		if err != nil {
			log.Fatalf("❌ Failed to load obstacles: %v", err)
		}
		obstacles = world.Prepare(loaded, *tolerance)
		log.Printf("   %d obstacles after simplification\n", len(obstacles))
	} else {
		log.Println("ℹ️  No obstacle directory given; sessions supply their own")
	}

	if *events {
		monitoring.SetEventLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(cfg, obstacles).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on %s\n", *addr)
	log.Println("")
	log.Println("Endpoints:")
	log.Println("  POST   /sessions        - Create an exploration session")
	log.Println("  DELETE /sessions?id=    - Remove a session")
	log.Println("  POST   /sessions/step   - Advance a session")
	log.Println("  POST   /sessions/goal   - Set or clear an explicit goal")
	log.Println("  GET    /sessions/grid   - Occupancy grid as text rows")
	log.Println("  GET    /sessions/map    - Map as GeoJSON")
	log.Println("  GET    /health          - Check server status")
	log.Println("")
	log.Println("CORS enabled for all origins")
	log.Println("========================================")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown: %v\n", err)
	}
}
