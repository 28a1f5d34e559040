package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/sluicehq/sluice/internal/logging"
	"github.com/sluicehq/sluice/internal/twilio"
)

// MediaProvider is the provider surface the proxy needs.
// *twilio.Client satisfies it.
type MediaProvider interface {
	ListMedia(ctx context.Context, messageSID string) ([]twilio.Media, error)
	FetchContent(ctx context.Context, media twilio.Media) (contentType string, body io.ReadCloser, err error)
}

// Media is one resolved attachment ready to stream. The caller owns Body.
type Media struct {
	SID         string
	ContentType string
	Body        io.ReadCloser
}

// MediaService resolves and re-serves provider-hosted attachments on demand.
// Nothing is cached: every fetch reflects the provider's current
// availability, at the cost of one upstream round trip per view.
type MediaService struct {
	provider    MediaProvider
	accessToken string
	logger      *logging.Logger
}

// NewMediaService gates access with accessToken; an empty token disables the
// gate.
func NewMediaService(provider MediaProvider, accessToken string, logger *logging.Logger) *MediaService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MediaService{
		provider:    provider,
		accessToken: accessToken,
		logger:      logger,
	}
}

// Fetch resolves the attachment at the 1-based index of a message and opens
// its content stream. Token mismatch fails with ErrForbidden before any
// provider call. Listing failures and out-of-range indexes fail with
// ErrNotFound; unknown message, expired media and transient provider errors
// are deliberately not distinguished, the proxy has no state to tell them
// apart. A non-success content response fails with ErrUpstream before any
// byte is streamed.
func (s *MediaService) Fetch(ctx context.Context, messageSID string, index int, token string) (*Media, error) {
	if s.accessToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.accessToken)) != 1 {
		return nil, ErrForbidden
	}

	medias, err := s.provider.ListMedia(ctx, messageSID)
	if err != nil {
		s.logger.WarnContext(ctx, "media listing failed",
			"message_sid", messageSID, "error", err.Error())
		return nil, fmt.Errorf("%w: list media for %s: %v", ErrNotFound, messageSID, err)
	}

	if index < 1 || index > len(medias) {
		return nil, fmt.Errorf("%w: message %s has no media at index %d", ErrNotFound, messageSID, index)
	}

	media := medias[index-1]
	contentType, body, err := s.provider.FetchContent(ctx, media)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &Media{
		SID:         media.SID,
		ContentType: contentType,
		Body:        body,
	}, nil
}
