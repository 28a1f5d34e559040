// Package models holds the persisted record shape and its canonical sheet
// schema, plus the inbound webhook form type.
package models

import (
	"net/url"
	"strconv"
	"strings"
)

// ListSeparator joins the multi-valued media columns.
const ListSeparator = " | "

// SIDColumn is the header name of the dedup key column.
const SIDColumn = "message_sid"

// Header is the canonical ordered column list of the inbox sheet. The live
// header row must always match it; the store rewrites a drifted header in
// place without touching data rows.
var Header = []string{
	"Fecha", "hora", "Telefono", "Nombre",
	"message_type", "num_media", "body",
	"media_urls", "media_types", "proxy_urls",
	"message_sid",
}

// Record is one persisted inbox row. Created once per unique inbound
// message, immutable afterwards.
type Record struct {
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Sender      string   `json:"sender"`
	ProfileName string   `json:"profile_name"`
	MessageType string   `json:"message_type"`
	NumMedia    int      `json:"num_media"`
	Body        string   `json:"body"`
	MediaURLs   []string `json:"media_urls,omitempty"`
	MediaTypes  []string `json:"media_types,omitempty"`
	ProxyURLs   []string `json:"proxy_urls,omitempty"`
	MessageSID  string   `json:"message_sid"`
}

// Row flattens the record into sheet cells in canonical Header order.
func (r Record) Row() []string {
	return []string{
		r.Date, r.Time, r.Sender, r.ProfileName,
		r.MessageType, strconv.Itoa(r.NumMedia), r.Body,
		strings.Join(r.MediaURLs, ListSeparator),
		strings.Join(r.MediaTypes, ListSeparator),
		strings.Join(r.ProxyURLs, ListSeparator),
		r.MessageSID,
	}
}

// Form is the raw webhook payload: provider field names to string values.
// No schema is enforced upstream; consumers must tolerate absent fields.
type Form map[string]string

// Get returns the value for key, or empty string when absent.
func (f Form) Get(key string) string {
	return f[key]
}

// FormFromValues flattens parsed POST values into a Form, keeping the first
// value per field the way the provider sends them.
func FormFromValues(values url.Values) Form {
	form := make(Form, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			form[key] = vals[0]
		} else {
			form[key] = ""
		}
	}
	return form
}

// MessageSID returns the unique message identifier: the primary id field
// when present, else the legacy SMS id.
func (f Form) MessageSID() string {
	if sid := f.Get("MessageSid"); sid != "" {
		return sid
	}
	return f.Get("SmsMessageSid")
}
