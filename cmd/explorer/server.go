package main

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/spatial/r2"

	"exploration-planner/internal/agent"
	"exploration-planner/internal/config"
	"exploration-planner/internal/frontier"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/planner"
	"exploration-planner/internal/sim"
	"exploration-planner/internal/world"
)

const (
	defaultDt    = 0.1
	maxStepsCall = 10000
	maxSessions  = 64
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func toPoint(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

type CreateSessionRequest struct {
	Start     Point           `json:"start"`
	Obstacles json.RawMessage `json:"obstacles,omitempty"` // GeoJSON FeatureCollection
	Border    float64         `json:"border,omitempty"`    // wall thickness lining the grid, 0 for none
	Config    json.RawMessage `json:"config,omitempty"`    // overrides of the server configuration
}

type CreateSessionResponse struct {
	ID        string  `json:"id"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	CellSize  float64 `json:"cellSize"`
	Obstacles int     `json:"obstacles"`
}

type StepRequest struct {
	ID    string  `json:"id"`
	Steps int     `json:"steps"`
	Dt    float64 `json:"dt"`
}

type StepResponse struct {
	Position Point   `json:"position"`
	Heading  float64 `json:"heading"`
	Waypoint Point   `json:"waypoint"`
	Path     []Point `json:"path"`
	Mode     string  `json:"mode"`
	Outcome  string  `json:"outcome,omitempty"`
	Done     bool    `json:"done"`
	Known    float64 `json:"known"`
	Steps    int     `json:"steps"`
}

type GoalRequest struct {
	ID   string `json:"id"`
	Goal *Point `json:"goal"` // nil returns the agent to exploration
}

type session struct {
	mu     sync.Mutex
	runner *sim.Runner
	world  *world.World
}

type server struct {
	base      *config.Config
	obstacles []orb.Polygon

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	limit    int
}

func newServer(base *config.Config, obstacles []orb.Polygon) *server {
	if base == nil {
		base = config.Default()
	}
	return &server{
		base:      base,
		obstacles: obstacles,
		sessions:  make(map[uuid.UUID]*session),
		limit:     maxSessions,
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", corsMiddleware(s.sessionsHandler))
	mux.HandleFunc("/sessions/step", corsMiddleware(s.stepHandler))
	mux.HandleFunc("/sessions/goal", corsMiddleware(s.goalHandler))
	mux.HandleFunc("/sessions/grid", corsMiddleware(s.gridHandler))
	mux.HandleFunc("/sessions/map", corsMiddleware(s.mapHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	return mux
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v\n", err)
	}
}

func (s *server) lookup(w http.ResponseWriter, raw string) (*session, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return nil, false
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// POST /sessions creates a session, DELETE /sessions?id= removes one.
func (s *server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodDelete:
		s.deleteSession(w, r)
	default:
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🆕 Create session request received")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg := *s.base
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			log.Printf("❌ Invalid config overrides: %v\n", err)
			http.Error(w, "Invalid config overrides", http.StatusBadRequest)
			return
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("❌ Invalid configuration: %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	polygons := append([]orb.Polygon(nil), s.obstacles...)
	if len(req.Obstacles) > 0 {
		extra, err := world.ParseGeoJSON(req.Obstacles)
		if err != nil {
			log.Printf("❌ Invalid obstacles: %v\n", err)
			http.Error(w, "Invalid obstacles", http.StatusBadRequest)
			return
		}
		polygons = append(polygons, extra...)
	}
	if req.Border > 0 {
		polygons = append(polygons, world.Border(gridBound(&cfg), req.Border)...)
	}
	wld := world.New(polygons)

	a, err := agent.New(&cfg, wld)
	if err != nil {
		log.Printf("❌ Failed to build agent: %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	runner, err := sim.New(wld, a, r2.Vec{X: req.Start.X, Y: req.Start.Y})
	if err != nil {
		log.Printf("❌ Failed to place agent: %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if len(s.sessions) >= s.limit {
		s.mu.Unlock()
		log.Printf("❌ Session limit of %d reached\n", s.limit)
		http.Error(w, "Too many sessions", http.StatusServiceUnavailable)
		return
	}
	s.sessions[a.ID()] = &session{runner: runner, world: wld}
	s.mu.Unlock()

	log.Printf("   Grid: %dx%d cells of %.2f\n", cfg.Width, cfg.Height, cfg.CellSize)
	log.Printf("   Obstacles: %d polygons\n", len(polygons))
	log.Printf("   Start: (%.3f, %.3f)\n", req.Start.X, req.Start.Y)
	log.Printf("✅ Session %s created\n", a.ID())
	log.Println("========================================")

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		ID:        a.ID().String(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		CellSize:  cfg.CellSize,
		Obstacles: len(polygons),
	})
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	log.Printf("🗑️  Session %s removed\n", id)
	w.WriteHeader(http.StatusNoContent)
}

// POST /sessions/step advances a session by a number of fixed steps.
func (s *server) stepHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Steps <= 0 {
		req.Steps = 1
	}
	if req.Steps > maxStepsCall {
		http.Error(w, "Too many steps in one call", http.StatusBadRequest)
		return
	}
	if req.Dt <= 0 {
		req.Dt = defaultDt
	}

	sess, ok := s.lookup(w, req.ID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	runner := sess.runner
	var last sim.StepResult
	taken := 0
	for ; taken < req.Steps && !runner.Done(); taken++ {
		last = runner.Step(req.Dt)
	}

	a := runner.Agent()
	report := runner.Report()
	resp := StepResponse{
		Position: toPoint(report.Position),
		Heading:  runner.Heading(),
		Waypoint: toPoint(a.Waypoint(report.Position)),
		Mode:     last.Mode.String(),
		Done:     report.Done,
		Known:    report.Known,
		Steps:    taken,
	}
	if runner.Done() {
		resp.Mode = sim.Idle.String()
	}
	if last.Outcome != nil {
		resp.Outcome = describeOutcome(last.Outcome)
	}
	nav := a.Navigator()
	for _, c := range nav.Path()[min(nav.WaypointIndex(), len(nav.Path())):] {
		resp.Path = append(resp.Path, toPoint(a.Grid().CellToWorldCenter(c)))
	}

	log.Printf("👣 Session %s: %d steps, known %.1f%%, done=%v\n", req.ID, taken, 100*report.Known, report.Done)
	writeJSON(w, http.StatusOK, resp)
}

func describeOutcome(err error) string {
	switch {
	case errors.Is(err, frontier.ErrNoFrontier):
		return "no_frontier"
	case errors.Is(err, planner.ErrSearchBudgetExceeded):
		return "search_budget_exceeded"
	case errors.Is(err, planner.ErrPathNotFound):
		return "path_not_found"
	case errors.Is(err, grid.ErrOutOfBounds):
		return "out_of_bounds"
	default:
		return err.Error()
	}
}

// POST /sessions/goal sets or clears an explicit goal.
func (s *server) goalHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sess, ok := s.lookup(w, req.ID)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	a := sess.runner.Agent()
	if req.Goal == nil {
		a.ClearGoal()
		log.Printf("🎯 Session %s: goal cleared\n", req.ID)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	cell, ok := a.Grid().WorldToCell(r2.Vec{X: req.Goal.X, Y: req.Goal.Y})
	if !ok {
		http.Error(w, "Goal outside the grid", http.StatusBadRequest)
		return
	}
	if err := a.SetGoal(cell); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("🎯 Session %s: goal set to cell (%d, %d)\n", req.ID, cell.X, cell.Y)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cell":    map[string]int{"x": cell.X, "y": cell.Y},
	})
}

// GET /sessions/grid?id= returns the raw grid as text rows, top row first.
func (s *server) gridHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.lookup(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}

	sess.mu.Lock()
	g := sess.runner.Agent().Grid()
	counts := g.Counts()
	resp := map[string]any{
		"width":    g.Width(),
		"height":   g.Height(),
		"rows":     g.Rows(),
		"unknown":  counts.Unknown,
		"free":     counts.Free,
		"occupied": counts.Occupied,
	}
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// GET /sessions/map?id= returns the obstacles, occupied cells, the remaining
// path, the recent trail and the agent position as a GeoJSON FeatureCollection for visualization.
func (s *server) mapHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.lookup(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}

	sess.mu.Lock()
	fc := buildMap(sess)
	sess.mu.Unlock()

	data, err := fc.MarshalJSON()
	if err != nil {
		log.Printf("❌ Failed to encode map: %v\n", err)
		http.Error(w, "Failed to encode map", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		log.Printf("⚠️  Failed to write map: %v\n", err)
	}
}

func buildMap(sess *session) *geojson.FeatureCollection {
	runner := sess.runner
	a := runner.Agent()
	g := a.Grid()
	fc := geojson.NewFeatureCollection()

	for _, p := range sess.world.Obstacles() {
		f := geojson.NewFeature(p)
		f.Properties["kind"] = "obstacle"
		fc.Append(f)
	}

	half := g.CellSize() / 2
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := grid.Cell{X: x, Y: y}
			if g.Cell(c) != grid.Occupied {
				continue
			}
			center := g.CellToWorldCenter(c)
			bound := orb.Bound{
				Min: orb.Point{center.X - half, center.Y - half},
				Max: orb.Point{center.X + half, center.Y + half},
			}
			f := geojson.NewFeature(bound.ToPolygon())
			f.Properties["kind"] = "occupied"
			f.Properties["cell"] = []int{x, y}
			fc.Append(f)
		}
	}

	nav := a.Navigator()
	path := nav.Path()
	if len(path) > 0 {
		line := orb.LineString{}
		for _, c := range path[nav.WaypointIndex():] {
			p := g.CellToWorldCenter(c)
			line = append(line, orb.Point{p.X, p.Y})
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "path"
		fc.Append(f)
	}

	if trail := runner.Trail(); len(trail) > 1 {
		line := make(orb.LineString, 0, len(trail))
		for _, p := range trail {
			line = append(line, orb.Point{p.X, p.Y})
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "trail"
		fc.Append(f)
	}

	pos := runner.Position()
	f := geojson.NewFeature(orb.Point{pos.X, pos.Y})
	f.Properties["kind"] = "agent"
	f.Properties["heading"] = math.Mod(runner.Heading(), 2*math.Pi)
	fc.Append(f)
	return fc
}

// GET /health - Health check endpoint
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	count := len(s.sessions)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"sessions":  count,
		"obstacles": len(s.obstacles),
	})
}

func gridBound(cfg *config.Config) orb.Bound {
	return orb.Bound{
		Min: orb.Point{cfg.OriginX, cfg.OriginY},
		Max: orb.Point{
			cfg.OriginX + float64(cfg.Width)*cfg.CellSize,
			cfg.OriginY + float64(cfg.Height)*cfg.CellSize,
		},
	}
}
