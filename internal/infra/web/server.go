package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/infra/metrics"
	"telegram-topup-bot/internal/infra/payment"
	"telegram-topup-bot/internal/usecase"
)

// Server exposes the deposit confirmation webhook plus health and metrics.
type Server struct {
	confirmUC     usecase.ConfirmUseCase
	webhookSecret string
	log           *zerolog.Logger
}

func NewServer(confirmUC usecase.ConfirmUseCase, webhookSecret string, logger *zerolog.Logger) *Server {
	return &Server{
		confirmUC:     confirmUC,
		webhookSecret: webhookSecret,
		log:           logger,
	}
}

// Router builds the HTTP routing for the callback surface.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Post("/webhook/atlantic", s.handleAtlanticWebhook)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// atlanticWebhookPayload is the deposit state change Atlantic posts back.
// Nominal arrives as a JSON number or a numeric string depending on the
// deposit channel, so it is decoded leniently.
type atlanticWebhookPayload struct {
	ReffID  string          `json:"reff_id"`
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Nominal json.RawMessage `json:"nominal"`
}

func (p *atlanticWebhookPayload) nominal() (int64, string) {
	raw := string(p.Nominal)
	if len(raw) >= 2 && raw[0] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if raw == "" || raw == "null" {
		return 0, ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f), raw
	}
	return 0, raw
}

func (s *Server) handleAtlanticWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload atlanticWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.ReffID == "" || payload.Status == "" {
		http.Error(w, "Missing reff_id or status", http.StatusBadRequest)
		return
	}

	nominal, nominalRaw := payload.nominal()

	signature := r.Header.Get("X-Signature")
	if !payment.VerifyAtlanticWebhookSignature(s.webhookSecret, payload.ReffID, nominalRaw, payload.Status, signature) {
		s.log.Warn().Str("reff_id", payload.ReffID).Msg("webhook signature mismatch")
		metrics.IncWebhookEvent("invalid_signature")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	err := s.confirmUC.Confirm(ctx, usecase.WebhookEvent{
		ReferenceID: payload.ReffID,
		DepositID:   payload.ID,
		Status:      payload.Status,
		Nominal:     nominal,
	})
	if err != nil {
		s.log.Error().Err(err).Str("reff_id", payload.ReffID).Msg("webhook confirmation failed")
		http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
