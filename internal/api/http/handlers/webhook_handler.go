package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/api/dto"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/persistence"
	"github.com/spec-kit/email-ticket-service/internal/worker"
	apperrors "github.com/spec-kit/email-ticket-service/pkg/util/errorutil"
)

// TaskQueue accepts webhook tasks for background processing.
type TaskQueue interface {
	Enqueue(task worker.Task) error
}

// WebhookHandler receives Microsoft Graph change notifications.
type WebhookHandler struct {
	queue       TaskQueue
	deduper     persistence.Deduper
	clientState string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(queue TaskQueue, deduper persistence.Deduper, clientState string, metrics *observability.Metrics, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		queue:       queue,
		deduper:     deduper,
		clientState: clientState,
		metrics:     metrics,
		logger:      logger,
	}
}

// GraphNotifications POST /api/webhooks/graph-notifications.
func (h *WebhookHandler) GraphNotifications(c *fiber.Ctx) error {
	// subscription handshake
	if token := c.Query("validationToken"); token != "" {
		h.logger.Info("graph webhook validation request received")
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(http.StatusOK).SendString(token)
	}

	var batch dto.GraphNotificationBatch
	if err := c.BodyParser(&batch); err != nil {
		return apperrors.NewValidationError("invalid notification payload", nil)
	}

	accepted, skipped := 0, 0
	for _, n := range batch.Value {
		logger := h.logger.With(zap.String("subscription_id", n.SubscriptionID))
		if n.ClientState != h.clientState {
			logger.Warn("graph notification with invalid client state ignored")
			h.metrics.RecordWebhookTask("invalid_state")
			skipped++
			continue
		}
		messageID := n.ResourceData.ID
		if messageID == "" {
			logger.Warn("graph notification without message id skipped")
			h.metrics.RecordWebhookTask("invalid_payload")
			skipped++
			continue
		}
		if h.deduper != nil && !h.deduper.AcquireOnce(c.UserContext(), messageID) {
			logger.Info("graph notification already seen", zap.String("message_id", messageID))
			h.metrics.RecordWebhookTask("repeat")
			skipped++
			continue
		}
		if err := h.queue.Enqueue(worker.Task{MessageID: messageID, ReceivedAt: time.Now().UTC()}); err != nil {
			logger.Error("graph notification not queued", zap.String("message_id", messageID), zap.Error(err))
			skipped++
			continue
		}
		accepted++
	}

	h.logger.Info("graph notifications received",
		zap.Int("total", len(batch.Value)),
		zap.Int("accepted", accepted),
		zap.Int("skipped", skipped))

	return c.Status(http.StatusAccepted).JSON(dto.WebhookAcceptedResponse{
		Status:   "accepted",
		Message:  fmt.Sprintf("Processing %d notification(s)", accepted),
		Accepted: accepted,
		Skipped:  skipped,
	})
}
