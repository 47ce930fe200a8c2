package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-storefront/internal/domain"
	"ebook-storefront/internal/payment"
)

const maxWebhookBytes = 1 << 20

// paymentWebhook authenticates the raw body before anything is parsed.
// Unknown orders answer 404 and other failures 5xx so the provider retries.
func (h *handlers) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	if err := h.deps.Webhooks.Verify(body, c.GetHeader(payment.SignatureHeader)); err != nil {
		h.logger.Printf("webhook: rejected signature error=%v", err)
		writeError(c, err)
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		h.logger.Printf("webhook: malformed event error=%v", err)
		badRequest(c, err.Error())
		return
	}
	if !ev.Actionable() {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	res, err := h.deps.CheckoutSvc.Reconcile(c.Request.Context(), *ev)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownOrder) {
			h.logger.Printf("webhook: unknown order event_id=%s session_id=%s", ev.ID, ev.ExternalRef)
		} else {
			h.logger.Printf("webhook: reconcile event_id=%s error=%v", ev.ID, err)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"orderId":   res.OrderID,
		"status":    res.Status,
		"duplicate": res.Duplicate,
	})
}
