package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/fsdevblog/credit-ledger/internal/transport/webhook"
)

const (
	// MaxWebhookBodyBytes ограничение на размер тела вебхука.
	MaxWebhookBodyBytes = 1 << 20
	// WebhookSettleTimeout проводка выполняется одной транзакцией БД, даем ей больше времени чем обычным запросам.
	WebhookSettleTimeout = 10 * time.Second
)

// WebhookSource связывает процессор с проверкой подписи и разбором его событий.
type WebhookSource struct {
	// Processor имя процессора для логов и метрик.
	Processor       string
	SignatureHeader string
	Verifier        webhook.Verifier
	Normalizer      webhook.Normalizer
}

type WebhookHandler struct {
	source  WebhookSource
	settler Settler
	l       *logrus.Entry
}

func NewWebhookHandler(source WebhookSource, settler Settler, l *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		source:  source,
		settler: settler,
		l: l.WithFields(logrus.Fields{
			"component": "api",
			"module":    "webhook",
			"processor": source.Processor,
		}),
	}
}

// Receive POST RouteGroup + CardWebhookRoute / CryptoWebhookRoute. Подпись проверяется по сырому телу
// до любого разбора. Повторные доставки одного события отвечают 200 без повторного начисления.
func (h *WebhookHandler) Receive(c *gin.Context) {
	payload, readErr := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes))
	if readErr != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(readErr, &tooLarge) {
			h.count(metrics.OutcomeMalformed)
			_ = c.AbortWithError(http.StatusRequestEntityTooLarge, readErr).SetType(gin.ErrorTypePrivate)
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, readErr).SetType(gin.ErrorTypePrivate)
		return
	}

	if err := h.source.Verifier.Verify(payload, c.GetHeader(h.source.SignatureHeader)); err != nil {
		h.count(metrics.OutcomeInvalidSignature)
		h.l.WithError(err).Warn("webhook rejected")
		_ = c.AbortWithError(http.StatusBadRequest, domain.ErrInvalidSignature).SetType(gin.ErrorTypePublic)
		return
	}

	event, normErr := h.source.Normalizer.Normalize(payload)
	if normErr != nil {
		h.count(metrics.OutcomeMalformed)
		h.l.WithError(normErr).Warn("malformed webhook event")
		_ = c.AbortWithError(http.StatusBadRequest, normErr).SetType(gin.ErrorTypePublic)
		return
	}
	if event == nil {
		h.count(metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ctx, cancel := context.WithTimeout(c, WebhookSettleTimeout)
	defer cancel()

	result, settleErr := h.settler.Settle(ctx, *event)
	if settleErr != nil {
		switch {
		case errors.Is(settleErr, domain.ErrMalformedEvent), errors.Is(settleErr, domain.ErrOwnerConflict):
			h.count(metrics.OutcomeMalformed)
			h.l.WithError(settleErr).
				WithField("external_reference", event.ExternalReference).
				Warn("webhook event rejected")
			_ = c.AbortWithError(http.StatusBadRequest, settleErr).SetType(gin.ErrorTypePublic)
		default:
			// 500 заставит процессор повторить доставку.
			h.count(metrics.OutcomeError)
			_ = c.AbortWithError(http.StatusInternalServerError, settleErr).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	if result.Applied() {
		h.count(metrics.OutcomeApplied)
	} else {
		h.count(metrics.OutcomeDuplicate)
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": result.Applied()})
}

func (h *WebhookHandler) count(outcome string) {
	metrics.WebhookEvents.WithLabelValues(h.source.Processor, outcome).Inc()
}
