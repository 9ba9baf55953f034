// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
	"github.com/rovshanmuradov/lp-hedger/internal/scheduler"
)

// botState is the /api/state payload, also pushed over the websocket.
type botState struct {
	Running       bool                              `json:"running"`
	CurrentDelta  *hedge.DeltaSnapshot              `json:"current_delta"`
	PositionCount int                               `json:"position_count"`
	TotalLPValue  float64                           `json:"total_lp_value"`
	TaskStatus    map[string]scheduler.TaskSnapshot `json:"task_status"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) statePayload() botState {
	positions, _, _ := s.bot.GetStore().Positions()

	tasks := make(map[string]scheduler.TaskSnapshot)
	for _, snap := range s.bot.TaskStatus() {
		tasks[snap.Name] = snap
	}

	payload := botState{
		Running:       s.bot.Running(),
		PositionCount: len(positions),
		TotalLPValue:  hedge.TotalValue(positions),
		TaskStatus:    tasks,
	}
	if snap, _, ok := s.bot.GetStore().Decision(); ok {
		payload.CurrentDelta = &snap
	}
	return payload
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Mode      string            `json:"mode"`
		Endpoints map[string]string `json:"endpoints"`
	}{
		Message: "The Hedger Bot API",
		Version: version,
		Mode:    s.bot.Mode(),
		Endpoints: map[string]string{
			"/api/state":                "Get current bot state",
			"/api/positions":            "Get LP positions",
			"/api/delta":                "Get delta calculation",
			"/api/tasks":                "Get task status",
			"/api/hedge-recommendation": "Get hedge recommendation",
			"/api/market-data":          "Get market prices",
			"/api/config":               "Get redacted configuration",
			"/health":                   "Health check",
			"/metrics":                  "Prometheus metrics",
			"/ws/state":                 "State stream (websocket)",
		},
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.statePayload())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, _, _ := s.bot.GetStore().Positions()
	s.writeJSON(w, http.StatusOK, struct {
		Positions  []hedge.Position `json:"positions"`
		Count      int              `json:"count"`
		TotalValue float64          `json:"total_value"`
	}{
		Positions:  positions,
		Count:      len(positions),
		TotalValue: hedge.TotalValue(positions),
	})
}

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.bot.GetStore().Decision()
	if !ok {
		s.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks := make(map[string]scheduler.TaskSnapshot)
	for _, snap := range s.bot.TaskStatus() {
		tasks[snap.Name] = snap
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := s.bot.GetStore().Decision()
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"error": "no delta calculation available",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	positions, _, _ := s.bot.GetStore().Positions()
	prices, _ := s.bot.GetStore().Prices()
	inRange := hedge.CountInRange(positions)

	s.writeJSON(w, http.StatusOK, struct {
		Timestamp           string             `json:"timestamp"`
		Prices              map[string]float64 `json:"prices"`
		TotalPositions      int                `json:"total_positions"`
		TotalValue          float64            `json:"total_value"`
		InRangePositions    int                `json:"in_range_positions"`
		OutOfRangePositions int                `json:"out_of_range_positions"`
	}{
		Timestamp:           time.Now().Format(time.RFC3339),
		Prices:              prices,
		TotalPositions:      len(positions),
		TotalValue:          hedge.TotalValue(positions),
		InRangePositions:    inRange,
		OutOfRangePositions: len(positions) - inRange,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bot.GetConfig().Redacted())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	started, err := s.bot.Start()
	switch {
	case err != nil:
		s.logger.Error("Failed to start bot", zap.Error(err))
		s.writeJSON(w, http.StatusOK, statusResponse{
			Status:  "error",
			Message: "Failed to start bot: " + err.Error(),
		})
	case started:
		s.writeJSON(w, http.StatusOK, statusResponse{
			Status:  "started",
			Message: "Bot started successfully",
		})
	default:
		s.writeJSON(w, http.StatusOK, statusResponse{
			Status:  "already_running",
			Message: "Bot is already running",
		})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.bot.Stop() {
		s.writeJSON(w, http.StatusOK, statusResponse{
			Status:  "stopped",
			Message: "Bot stopped successfully",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:  "not_running",
		Message: "Bot is not running",
	})
}

func (s *Server) handleSimulateTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string  `json:"token"`
		Amount    float64 `json:"amount"`
		Direction string  `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "invalid request body",
		})
		return
	}
	// Omitted fields take the historical defaults.
	if req.Token == "" {
		req.Token = "ETH"
	}
	if req.Amount == 0 {
		req.Amount = 1000
	}
	if req.Direction == "" {
		req.Direction = "buy"
	}

	prices, err := s.bot.SimulateTrade(req.Token, req.Amount, req.Direction)
	if err != nil {
		s.writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, struct {
		Status    string             `json:"status"`
		Message   string             `json:"message"`
		NewPrices map[string]float64 `json:"new_prices"`
	}{
		Status:    "success",
		Message:   fmt.Sprintf("Simulated %s %g %s", req.Direction, req.Amount, req.Token),
		NewPrices: prices,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	positions, _, _ := s.bot.GetStore().Positions()
	_, _, deltaAvailable := s.bot.GetStore().Decision()

	s.writeJSON(w, http.StatusOK, struct {
		Status           string  `json:"status"`
		Timestamp        string  `json:"timestamp"`
		Uptime           float64 `json:"uptime"`
		PositionsCount   int     `json:"positions_count"`
		DeltaAvailable   bool    `json:"delta_available"`
		SchedulerRunning bool    `json:"scheduler_running"`
	}{
		Status:           "healthy",
		Timestamp:        time.Now().Format(time.RFC3339),
		Uptime:           s.bot.Uptime().Seconds(),
		PositionsCount:   len(positions),
		DeltaAvailable:   deltaAvailable,
		SchedulerRunning: s.bot.Running(),
	})
}
