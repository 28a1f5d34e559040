// Package mapper converts a raw webhook form into the fixed-schema inbox
// record. Mapping is total: malformed optional fields degrade to safe
// defaults, they never fail the event.
package mapper

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sluicehq/sluice/internal/models"
)

type Mapper struct {
	location      *time.Location
	publicBaseURL string
	accessToken   string
}

// New resolves the local timezone once. An unknown zone logs a warning and
// leaves timestamps in UTC rather than failing ingestion.
func New(timezone, publicBaseURL, accessToken string) *Mapper {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("unknown local timezone, falling back to UTC",
			slog.String("timezone", timezone),
			slog.String("error", err.Error()),
		)
		loc = time.UTC
	}
	return &Mapper{
		location:      loc,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		accessToken:   accessToken,
	}
}

// Map builds the record for one inbound event captured at now (UTC).
// It returns the record and whether the event carried any media.
func (m *Mapper) Map(form models.Form, now time.Time) (models.Record, bool) {
	local := now.In(m.location)

	sender := form.Get("WaId")
	if sender == "" {
		sender = digits(form.Get("From"))
	}

	numMedia, err := strconv.Atoi(form.Get("NumMedia"))
	if err != nil || numMedia < 0 {
		numMedia = 0
	}

	messageSID := form.MessageSID()

	var mediaURLs, mediaTypes, proxyURLs []string
	for i := 0; i < numMedia; i++ {
		if u := form.Get(fmt.Sprintf("MediaUrl%d", i)); u != "" {
			mediaURLs = append(mediaURLs, u)
			proxyURLs = append(proxyURLs, m.proxyURL(messageSID, i+1))
		}
		if t := form.Get(fmt.Sprintf("MediaContentType%d", i)); t != "" {
			mediaTypes = append(mediaTypes, t)
		}
	}

	return models.Record{
		Date:        local.Format("2006-01-02"),
		Time:        local.Format("15:04:05"),
		Sender:      sender,
		ProfileName: form.Get("ProfileName"),
		MessageType: form.Get("MessageType"),
		NumMedia:    numMedia,
		Body:        strings.TrimSpace(form.Get("Body")),
		MediaURLs:   mediaURLs,
		MediaTypes:  mediaTypes,
		ProxyURLs:   proxyURLs,
		MessageSID:  messageSID,
	}, numMedia > 0
}

// proxyURL builds the re-serving link for the media at the given 1-based
// index, or empty string when no public base URL is configured.
func (m *Mapper) proxyURL(messageSID string, index int) string {
	if m.publicBaseURL == "" {
		return ""
	}
	url := fmt.Sprintf("%s/media/%s/%d", m.publicBaseURL, messageSID, index)
	if m.accessToken != "" {
		url += "?t=" + m.accessToken
	}
	return url
}

// digits strips everything but ASCII digits from an E.164 or wa-id value.
func digits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
