package transport

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"motomaster/internal/dto"
	"motomaster/internal/telegram"
)

const (
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

	maxUpdateBytes = 1 << 20
)

type WebhookController struct {
	enabled bool
	secret  string
	queue   Enqueuer
	logger  *zap.Logger
}

// NewWebhookController builds the push receiver. When enabled is false every
// delivery is refused with 400 so a polling instance never accepts updates.
func NewWebhookController(enabled bool, secret string, queue Enqueuer, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		enabled: enabled,
		secret:  secret,
		queue:   queue,
		logger:  logger,
	}
}

func (c *WebhookController) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	if !c.enabled {
		logger.Warn("webhook delivery while webhook mode is disabled")
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "WEBHOOK_DISABLED", "webhook mode is not enabled")
		return
	}

	if !c.secretMatches(r.Header.Get(SecretTokenHeader)) {
		logger.Warn("webhook secret mismatch", zap.String("remoteAddr", r.RemoteAddr))
		c.writeErrorResponse(w, traceID, http.StatusForbidden, "FORBIDDEN", "invalid secret token")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		logger.Warn("invalid update body", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "INVALID_JSON", "request body must be a valid update")
		return
	}

	if err := c.queue.TryEnqueue(update); err != nil {
		logger.Error("failed to enqueue update", zap.Int64("updateId", update.UpdateID), zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "update could not be queued")
		return
	}

	logger.Debug("update enqueued", zap.Int64("updateId", update.UpdateID))
	c.writeJSON(w, http.StatusOK, dto.WebhookAckResponse{
		TraceID:   traceID,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

func (c *WebhookController) secretMatches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(c.secret)) == 1
}

func (c *WebhookController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code, message string) {
	c.writeJSON(w, statusCode, dto.WebhookErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *WebhookController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
