package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluicehq/sluice/internal/twilio"
)

type fakeProvider struct {
	medias   []twilio.Media
	listErr  error
	fetchErr error
}

func (f *fakeProvider) ListMedia(ctx context.Context, messageSID string) ([]twilio.Media, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.medias, nil
}

func (f *fakeProvider) FetchContent(ctx context.Context, media twilio.Media) (string, io.ReadCloser, error) {
	if f.fetchErr != nil {
		return "", nil, f.fetchErr
	}
	return media.ContentType, io.NopCloser(strings.NewReader("media-bytes-" + media.SID)), nil
}

func twoAttachments() []twilio.Media {
	return []twilio.Media{
		{SID: "ME1", URI: "/m/ME1.json", ContentType: "image/jpeg"},
		{SID: "ME2", URI: "/m/ME2.json", ContentType: "audio/ogg"},
	}
}

func TestFetch_StreamsSelectedAttachment(t *testing.T) {
	provider := &fakeProvider{medias: twoAttachments()}
	svc := NewMediaService(provider, "", nil)

	media, err := svc.Fetch(context.Background(), "SM1", 2, "")
	require.NoError(t, err)
	defer media.Body.Close()

	assert.Equal(t, "ME2", media.SID)
	assert.Equal(t, "audio/ogg", media.ContentType)

	data, err := io.ReadAll(media.Body)
	require.NoError(t, err)
	assert.Equal(t, "media-bytes-ME2", string(data))
}

func TestFetch_TokenGate(t *testing.T) {
	provider := &fakeProvider{medias: twoAttachments()}
	svc := NewMediaService(provider, "shared-secret", nil)

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"matching token", "shared-secret", true},
		{"wrong token", "guess", false},
		{"missing token", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media, err := svc.Fetch(context.Background(), "SM1", 1, tt.token)
			if tt.ok {
				require.NoError(t, err)
				media.Body.Close()
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestFetch_ForbiddenBeforeProviderCall(t *testing.T) {
	provider := &fakeProvider{listErr: fmt.Errorf("should not be reached")}
	svc := NewMediaService(provider, "shared-secret", nil)

	_, err := svc.Fetch(context.Background(), "SM1", 1, "wrong")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFetch_ListingFailureIsNotFound(t *testing.T) {
	provider := &fakeProvider{listErr: fmt.Errorf("message unknown or media expired")}
	svc := NewMediaService(provider, "", nil)

	_, err := svc.Fetch(context.Background(), "SMmissing", 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_IndexBounds(t *testing.T) {
	provider := &fakeProvider{medias: twoAttachments()}
	svc := NewMediaService(provider, "", nil)

	for _, index := range []int{0, -1, 3} {
		_, err := svc.Fetch(context.Background(), "SM1", index, "")
		assert.ErrorIs(t, err, ErrNotFound, "index %d", index)
	}
}

func TestFetch_UpstreamFailure(t *testing.T) {
	provider := &fakeProvider{
		medias:   twoAttachments(),
		fetchErr: fmt.Errorf("provider returned 502"),
	}
	svc := NewMediaService(provider, "", nil)

	_, err := svc.Fetch(context.Background(), "SM1", 1, "")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetch_NoAttachments(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewMediaService(provider, "", nil)

	_, err := svc.Fetch(context.Background(), "SM1", 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
