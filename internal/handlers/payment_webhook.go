package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/payments"
)

const signatureHeader = "X-SEPAY-SIGNATURE"

// PaymentWebhook receives bank transfer notifications. The gateway retries
// on anything but a fast 2xx, so the handler only authenticates and decodes,
// then acknowledges and hands the work to a background goroutine.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if !verifySignature(body, r.Header.Get(signatureHeader), h.config.PaymentWebhookSecret) {
		logger.Warn("webhook signature mismatch", "remote_ip", clientIP(r))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var notification payments.Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		logger.Error("failed to decode webhook payload", "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	deliveryID := uuid.NewString()
	logger.Info("payment notification accepted",
		"delivery_id", deliveryID,
		"gateway", notification.Gateway,
		"amount", notification.TransferAmount)

	// Detach from the request so the gateway's timeout cannot cancel the
	// renewal work mid-flight.
	workCtx := logging.WithLogger(context.WithoutCancel(ctx),
		h.logger.With("delivery_id", deliveryID))
	go h.processor.Process(workCtx, notification)

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "delivery_id": deliveryID})
}

func verifySignature(body []byte, header, secret string) bool {
	sig := strings.TrimSpace(header)
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected))
}
