package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/pkg/httpx"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

// Dispatcher accepts a decoded delivery for asynchronous handling.
type Dispatcher interface {
	Dispatch(ctx context.Context, p domain.Payload)
}

type WebhookHandler struct {
	VerifyToken string
	Dispatcher  Dispatcher
}

// HandleVerify answers the subscription handshake by echoing hub.challenge
// when the verify token matches.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	q := r.URL.Query()

	token := q.Get("hub.verify_token")
	if q.Get("hub.mode") != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.VerifyToken)) != 1 {
		log.Warn("webhook verification failed", slog.String("mode", q.Get("hub.mode")))
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorResponse{
			Error:            "forbidden",
			ErrorDescription: "verification token mismatch",
		})
		return
	}

	log.Info("webhook verified")
	httpx.WriteText(w, http.StatusOK, q.Get("hub.challenge"))
}

// HandleEvent acknowledges every delivery with 200 once the body has been
// read. Handling happens after the response; the platform would otherwise
// retry and duplicate events.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		observability.EventDropped("unreadable_body")
		log.Warn("failed to read webhook body", slog.Any("error", err))
		httpx.WriteText(w, http.StatusOK, "EVENT_RECEIVED")
		return
	}

	var payload domain.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		observability.EventDropped("malformed_json")
		log.Warn("dropping malformed webhook body", slog.Int("bytes", len(body)), slog.Any("error", err))
		httpx.WriteText(w, http.StatusOK, "EVENT_RECEIVED")
		return
	}

	log.Debug("webhook received", slog.String("object", payload.Object), slog.Int("entries", len(payload.Entry)))
	h.Dispatcher.Dispatch(r.Context(), payload)
	httpx.WriteText(w, http.StatusOK, "EVENT_RECEIVED")
}
