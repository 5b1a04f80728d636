package indexer

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

const maxWebhookBody = 4 << 20

// APIResponse is the envelope for plain status replies.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// WebhookResult summarises one delivery.
type WebhookResult struct {
	Received     int    `json:"received"`
	Events       int    `json:"events"`
	Applied      int    `json:"applied"`
	Pending      int    `json:"pending"`
	Duplicates   int    `json:"duplicates"`
	Ignored      int    `json:"ignored"`
	Skipped      int    `json:"skipped"`
	Errors       int    `json:"errors"`
	ErrorMessage string `json:"error,omitempty"`
}

type Config struct {
	Reconciler *Reconciler
	Store      Store
	// AuthToken must equal the webhook's Authorization header.
	// An empty token rejects every delivery.
	AuthToken string
	// APIToken guards the metadata and notification writes, sent as
	// "Authorization: Bearer <token>". An empty token rejects every write.
	APIToken string
	Registry  *prometheus.Registry
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Server exposes the webhook receiver and the read API.
type Server struct {
	reconciler *Reconciler
	store      Store
	authToken  string
	apiToken   string
	registry   *prometheus.Registry
	metrics    *Metrics
	logger     *slog.Logger
	router     http.Handler
}

func NewServer(cfg Config) *Server {
	s := &Server{
		reconciler: cfg.Reconciler,
		store:      cfg.Store,
		authToken:  cfg.AuthToken,
		apiToken:   cfg.APIToken,
		registry:   cfg.Registry,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(s.registry)
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the API on addr until ctx is cancelled, then drains open
// requests for up to five seconds.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("indexer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(corsHeaders)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/webhooks/helius", s.heliusWebhook)
		api.Get("/dares", s.listDares)
		api.Get("/dares/{pda}", s.getDare)
		api.Get("/users/{wallet}/notifications", s.listNotifications)
		api.Get("/indexer/pending", s.listPending)

		api.Group(func(w chi.Router) {
			w.Use(s.requireAPIToken)
			w.Post("/dares", s.registerDare)
			w.Post("/notifications/{id}/read", s.markNotificationRead)
		})
	})
	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, APIResponse{Status: "error", Message: message})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Status: "ok"})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.authToken)) == 1
}

func (s *Server) requireAPIToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.apiToken == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiToken)) != 1 {
			s.logger.Warn("api: unauthorized write", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// heliusWebhook answers 200 to every authorised delivery, even when
// processing fails, so the sender does not retry endlessly.
func (s *Server) heliusWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.metrics.Webhooks.WithLabelValues("unauthorized").Inc()
		s.logger.Warn("webhook: unauthorized request", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var result WebhookResult
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		result.ErrorMessage = "failed to read body"
		s.metrics.Webhooks.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusOK, result)
		return
	}
	txs, err := ParseWebhookPayload(body)
	if err != nil {
		result.ErrorMessage = err.Error()
		s.metrics.Webhooks.WithLabelValues("error").Inc()
		s.logger.Warn("webhook: bad payload", "err", err)
		writeJSON(w, http.StatusOK, result)
		return
	}

	result.Received = len(txs)
	programID := s.reconciler.ProgramID()
	for i := range txs {
		events, skipped, err := DecodeHelius(programID, &txs[i])
		result.Skipped += skipped
		if err != nil {
			result.Errors++
			s.logger.Warn("webhook: undecodable transaction", "signature", txs[i].Signature, "err", err)
			continue
		}
		for _, ev := range events {
			result.Events++
			outcome, err := s.reconciler.Apply(r.Context(), ev)
			if err != nil {
				result.Errors++
				s.logger.Error("webhook: failed to apply event", "event", ev.Key(), "err", err)
				continue
			}
			switch outcome {
			case OutcomeApplied:
				result.Applied++
			case OutcomePending:
				result.Pending++
			case OutcomeDuplicate:
				result.Duplicates++
			case OutcomeIgnored:
				result.Ignored++
			}
		}
	}

	label := "ok"
	if result.Errors > 0 {
		label = "partial"
		result.ErrorMessage = "Processing error"
	}
	s.metrics.Webhooks.WithLabelValues(label).Inc()
	s.logger.Info("webhook processed", "transactions", result.Received, "events", result.Events, "applied", result.Applied, "pending", result.Pending)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) registerDare(w http.ResponseWriter, r *http.Request) {
	var reg Registration
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	rec, err := s.reconciler.Register(r.Context(), reg)
	if errors.Is(err, ErrInvalidRegistration) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to register dare", "dare", reg.PDA, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to register dare.")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listDares(w http.ResponseWriter, r *http.Request) {
	var filter storage.DareFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := dareme_protocol.ParseDareStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &status
	}
	filter.Wallet = r.URL.Query().Get("wallet")

	dares, err := s.store.ListDares(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list dares", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list dares.")
		return
	}
	if dares == nil {
		dares = []storage.DareRecord{}
	}
	writeJSON(w, http.StatusOK, dares)
}

func (s *Server) getDare(w http.ResponseWriter, r *http.Request) {
	pda := chi.URLParam(r, "pda")
	rec, err := s.store.GetDare(r.Context(), pda)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Dare not found.")
		return
	}
	if err != nil {
		s.logger.Error("failed to load dare", "dare", pda, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load dare.")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	notes, err := s.store.NotificationsFor(r.Context(), wallet)
	if err != nil {
		s.logger.Error("failed to list notifications", "wallet", wallet, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list notifications.")
		return
	}
	if notes == nil {
		notes = []storage.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.MarkNotificationRead(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Notification not found.")
		return
	}
	if err != nil {
		s.logger.Error("failed to mark notification", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update notification.")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Status: "success"})
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.ListPending(r.Context())
	if err != nil {
		s.logger.Error("failed to list pending events", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list pending events.")
		return
	}
	if pending == nil {
		pending = []storage.PendingEvent{}
	}
	writeJSON(w, http.StatusOK, pending)
}
