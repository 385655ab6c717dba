package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/internal/pipeline"
	"github.com/rvasily/squadvoice/internal/storage/sqlite"
	"github.com/rvasily/squadvoice/pkg/logger"
)

// Coordinator is the slice of the pipeline the API needs.
type Coordinator interface {
	Channels() []*pipeline.Channel
}

// Handler contains the HTTP handlers.
type Handler struct {
	coordinator Coordinator
	storage     *sqlite.UtteranceStorage
	config      *config.Config
	logger      *logger.Logger
	startedAt   time.Time
}

// NewHandler creates the handler set. storage may be nil when persistence
// is disabled.
func NewHandler(coordinator Coordinator, storage *sqlite.UtteranceStorage, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		storage:     storage,
		config:      cfg,
		logger:      log.Named("api-handler"),
		startedAt:   time.Now(),
	}
}

// channelStatus is one channel's entry in the health response.
type channelStatus struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Dropped int64  `json:"dropped"`
}

// GetHealth reports process and per-channel status.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	channels := h.coordinator.Channels()
	statuses := make([]channelStatus, 0, len(channels))
	for _, ch := range channels {
		statuses = append(statuses, channelStatus{
			ID:      ch.ID(),
			State:   ch.State().String(),
			Dropped: ch.Dropped(),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime_s": int(time.Since(h.startedAt).Seconds()),
		"channels": statuses,
	})
}

// GetConfig returns the active configuration with secrets removed.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	redacted := *h.config
	redacted.ASR.APIKey = ""
	redacted.Translator.APIKey = ""
	h.respondJSON(w, http.StatusOK, redacted)
}

// GetUtterances returns recent processed utterances across all channels.
func (h *Handler) GetUtterances(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.respondError(w, http.StatusNotFound, "storage is disabled")
		return
	}
	records, err := h.storage.GetRecent(h.limitParam(r, 50))
	if err != nil {
		h.logger.Error("failed to query utterances", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query utterances")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"utterances": records})
}

// GetUtterancesByChannel returns recent utterances for one channel.
func (h *Handler) GetUtterancesByChannel(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.respondError(w, http.StatusNotFound, "storage is disabled")
		return
	}
	channel := chi.URLParam(r, "id")
	records, err := h.storage.GetByChannel(channel, h.limitParam(r, 50))
	if err != nil {
		h.logger.Error("failed to query utterances",
			logger.String("channel", channel),
			logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query utterances")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"utterances": records})
}

// GetUtterancesByTimeRange returns utterances between the "start" and "end"
// query parameters (RFC3339).
func (h *Handler) GetUtterancesByTimeRange(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.respondError(w, http.StatusNotFound, "storage is disabled")
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid start time, want RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid end time, want RFC3339")
		return
	}
	records, err := h.storage.GetByTimeRange(start, end)
	if err != nil {
		h.logger.Error("failed to query utterances", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query utterances")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"utterances": records})
}

// maxQueryLimit caps ?limit so one request cannot drag the whole table
// through the JSON encoder.
const maxQueryLimit = 500

func (h *Handler) limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}
