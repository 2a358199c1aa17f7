package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

const signatureHeader = "X-Payflow-Signature"

// maxWebhookBody bounds the callback payload we are willing to buffer.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	processWebhookUC *billingUsecases.ProcessWebhookUseCase
	logger           logger.Interface
}

func NewWebhookHandler(processWebhookUC *billingUsecases.ProcessWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		processWebhookUC: processWebhookUC,
		logger:           logger,
	}
}

// HandlePayFlow receives provider callbacks. It always answers 200 so the
// provider stops redelivering; whether the event applied is reported in the
// body and our logs. A non-200 here would make the provider hammer us with
// retries for events we can never process.
func (h *WebhookHandler) HandlePayFlow(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "failed to read payload"})
		return
	}

	result, err := h.processWebhookUC.Execute(c.Request.Context(), billingUsecases.ProcessWebhookCommand{
		RawPayload: body,
		Signature:  c.GetHeader(signatureHeader),
	})
	if err != nil {
		h.logger.Errorw("webhook processing failed",
			"error", err,
			"client_ip", c.ClientIP(),
		)
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "event not applied"})
		return
	}

	message := "event applied"
	if result.Duplicate {
		message = "event already applied"
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}
