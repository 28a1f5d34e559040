package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sluicehq/sluice/internal/httputil"
	"github.com/sluicehq/sluice/internal/logging"
	"github.com/sluicehq/sluice/internal/metrics"
	"github.com/sluicehq/sluice/internal/models"
	"github.com/sluicehq/sluice/internal/service"
)

// Ingestor is the pipeline surface the webhook and inbox endpoints need.
type Ingestor interface {
	Ingest(ctx context.Context, form models.Form) (bool, error)
	Recent(ctx context.Context, limit int) ([]map[string]string, error)
}

// MediaFetcher resolves one attachment for streaming.
type MediaFetcher interface {
	Fetch(ctx context.Context, messageSID string, index int, token string) (*service.Media, error)
}

// SignatureValidator authenticates inbound webhook requests.
type SignatureValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

type Handler struct {
	ingestor  Ingestor
	media     MediaFetcher
	validator SignatureValidator
	logger    *logging.Logger
}

func New(ingestor Ingestor, media MediaFetcher, validator SignatureValidator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		ingestor:  ingestor,
		media:     media,
		validator: validator,
		logger:    logger,
	}
}

// Webhook receives one provider delivery. Signature verification happens
// before any store access; a duplicate delivery still answers 200 so the
// provider stops redelivering.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.WebhooksTotal.WithLabelValues("bad_request").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	form := models.FormFromValues(r.PostForm)

	signature := r.Header.Get("X-Twilio-Signature")
	if !h.validator.Validate(requestURL(r), form, signature) {
		metrics.WebhooksTotal.WithLabelValues("unauthorized").Inc()
		h.logger.WarnContext(r.Context(), "webhook signature rejected",
			"message_sid", form.MessageSID())
		httputil.WriteError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	stored, err := h.ingestor.Ingest(r.Context(), form)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues("error").Inc()
		h.logger.ErrorContext(r.Context(), "ingestion failed",
			"message_sid", form.MessageSID(), "error", err.Error())
		httputil.WriteError(w, statusFromError(err), "ingestion failed")
		return
	}

	if stored {
		metrics.WebhooksTotal.WithLabelValues("stored").Inc()
	} else {
		metrics.WebhooksTotal.WithLabelValues("duplicate").Inc()
	}

	// Empty 200 either way; the provider only needs the ack.
	w.WriteHeader(http.StatusOK)
}

// Media streams one attachment through from the provider. The body is copied
// straight to the client so backpressure propagates to the upstream fetch.
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	messageSID := r.PathValue("messageSid")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		metrics.MediaRequestsTotal.WithLabelValues("not_found").Inc()
		httputil.WriteError(w, http.StatusNotFound, "no media at that index")
		return
	}

	media, err := h.media.Fetch(r.Context(), messageSID, index, r.URL.Query().Get("t"))
	if err != nil {
		status := statusFromError(err)
		metrics.MediaRequestsTotal.WithLabelValues(mediaLabel(status)).Inc()
		httputil.WriteError(w, status, http.StatusText(status))
		return
	}
	defer media.Body.Close()

	metrics.MediaRequestsTotal.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", media.SID))

	n, err := io.Copy(w, media.Body)
	metrics.MediaBytesTotal.Add(float64(n))
	if err != nil {
		// Headers are already sent; nothing left but to log the broken stream.
		h.logger.WarnContext(r.Context(), "media stream interrupted",
			"message_sid", messageSID, "media_sid", media.SID, "error", err.Error())
	}
}

// Inbox returns the most recent N records, newest-last.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := h.ingestor.Recent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "inbox read failed", "error", err.Error())
		httputil.WriteError(w, statusFromError(err), "inbox unavailable")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, records)
}

// Health reports liveness and the current UTC time.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFromError maps the service failure taxonomy to HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mediaLabel(status int) string {
	switch status {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "error"
	}
}

// requestURL reconstructs the public URL the provider signed, honoring
// forwarding headers set by the fronting proxy.
func requestURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}

	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}

	return scheme + "://" + host + r.URL.RequestURI()
}
