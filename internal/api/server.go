// internal/api/server.go

// Package api is the HTTP boundary of the hedger: the JSON dashboard
// API, the Prometheus exposition and a websocket state stream. Handlers
// only read the state store and the scheduler bookkeeping; the sole
// mutations are the start/stop/simulate-trade controls, which go through
// the bot itself.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/config"
	// Registers the hedger collectors on the default registry /metrics
	// serves from.
	_ "github.com/rovshanmuradov/lp-hedger/internal/metrics"
	"github.com/rovshanmuradov/lp-hedger/internal/scheduler"
	"github.com/rovshanmuradov/lp-hedger/internal/state"
)

const version = "1.0.0"

// Bot is the control surface the handlers need from the bot service.
type Bot interface {
	Running() bool
	Start() (bool, error)
	Stop() bool
	Uptime() time.Duration
	Mode() string
	GetConfig() *config.Config
	GetStore() *state.Store
	TaskStatus() []scheduler.TaskSnapshot
	SimulateTrade(token string, amountUSD float64, direction string) (map[string]float64, error)
}

// Server holds the handler dependencies. Build one with NewServer and
// mount Handler on an http.Server.
type Server struct {
	bot      Bot
	logger   *zap.Logger
	upgrader websocket.Upgrader
	refresh  time.Duration
}

func NewServer(b Bot, logger *zap.Logger) *Server {
	refresh := time.Duration(b.GetConfig().Dashboard.RefreshInterval) * time.Second
	if refresh <= 0 {
		refresh = 15 * time.Second
	}
	return &Server{
		bot:    b,
		logger: logger.Named("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from anywhere, same as the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		refresh: refresh,
	}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/delta", s.handleDelta)
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("GET /api/hedge-recommendation", s.handleRecommendation)
	mux.HandleFunc("GET /api/market-data", s.handleMarketData)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/simulate-trade", s.handleSimulateTrade)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/state", s.handleStateStream)

	return s.withAccessLog(mux)
}

// withAccessLog logs one debug line per request.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
