// Package web exposes the internal review surface of the governance
// pipeline: signal submission, the compliance summary, and the recent
// decision and override trails.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/events"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/ingress"
)

type signalProcessor interface {
	ProcessSignal(p *domain.SignalPacket) (domain.Decision, error)
	RecentDecisions(n int) []domain.Decision
}

type complianceReporter interface {
	GenerateComplianceSummary() domain.ComplianceSummary
	ReviewOverrideActivity(n int) []domain.OverrideRecord
}

type regimeTracker interface {
	AddClose(day time.Time, value decimal.Decimal) domain.Regime
	Current(now time.Time) domain.Regime
}

// Server exposes HTTP endpoints for signal ingestion and internal review.
// Events is optional; when set, finalized decisions are also streamed over
// SSE at /decisions/stream.
type Server struct {
	Addr        string
	Coordinator signalProcessor
	Compliance  complianceReporter
	Events      *events.DecisionBroadcaster
	Regimes     regimeTracker
	l           *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(l *zap.Logger, addr string, coordinator signalProcessor, compliance complianceReporter) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Addr: addr, Coordinator: coordinator, Compliance: compliance, l: l}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/signal/process", s.handleProcessSignal)
	mux.HandleFunc("/compliance/summary", s.handleComplianceSummary)
	mux.HandleFunc("/decisions/recent", s.handleRecentDecisions)
	mux.HandleFunc("/overrides/recent", s.handleRecentOverrides)
	if s.Events != nil {
		mux.HandleFunc("/decisions/stream", s.handleDecisionStream)
	}
	if s.Regimes != nil {
		mux.HandleFunc("/volatility/close", s.handleVolatilityClose)
		mux.HandleFunc("/volatility/regime", s.handleVolatilityRegime)
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type signalRequest struct {
	ID                  string          `json:"id"`
	Timestamp           string          `json:"timestamp"`
	Symbol              string          `json:"symbol"`
	Inputs              map[string]bool `json:"inputs"`
	ConfidenceTag       string          `json:"confidence_tag"`
	RiskPct             string          `json:"risk_pct"`
	MarginEnabled       bool            `json:"margin_enabled"`
	InvolvesShortOption bool            `json:"involves_short_option"`
	HoldingDays         int             `json:"holding_days"`
	Realized            bool            `json:"realized"`
	SplitAdjusted       bool            `json:"split_adjusted"`
	SpinoffEvent        bool            `json:"spinoff_event"`
}

func (s *Server) handleProcessSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed signal packet")
		return
	}

	ts, err := ingress.ParseTimestamp(req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	packet := &domain.SignalPacket{
		ID:                  req.ID,
		Timestamp:           ts,
		Symbol:              req.Symbol,
		Inputs:              req.Inputs,
		ConfidenceTag:       req.ConfidenceTag,
		MarginEnabled:       req.MarginEnabled,
		InvolvesShortOption: req.InvolvesShortOption,
		HoldingDays:         req.HoldingDays,
		Realized:            req.Realized,
		SplitAdjusted:       req.SplitAdjusted,
		SpinoffEvent:        req.SpinoffEvent,
	}
	if req.RiskPct != "" {
		packet.RiskPct, err = decimal.NewFromString(req.RiskPct)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid risk_pct")
			return
		}
	}

	decision, err := s.Coordinator.ProcessSignal(packet)
	if err != nil {
		s.l.Warn("signal dropped at ingress", zap.Error(err))
		status := http.StatusTooManyRequests
		if errors.Is(err, ingress.ErrPacketRejected) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleComplianceSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Compliance.GenerateComplianceSummary())
}

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Coordinator.RecentDecisions(queryN(r)))
}

func (s *Server) handleRecentOverrides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Compliance.ReviewOverrideActivity(queryN(r)))
}

type volatilityCloseRequest struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

func (s *Server) handleVolatilityClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req volatilityCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed close record")
		return
	}

	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}

	regime := s.Regimes.AddClose(day, value)
	writeJSON(w, http.StatusOK, map[string]string{"regime": string(regime)})
}

func (s *Server) handleVolatilityRegime(w http.ResponseWriter, r *http.Request) {
	regime := s.Regimes.Current(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]string{"regime": string(regime)})
}

func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// comment heartbeat every 20s so proxies keep the connection
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func queryN(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
