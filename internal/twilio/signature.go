package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
)

// SignatureValidator checks the X-Twilio-Signature header on inbound
// webhooks: base64(HMAC-SHA1(authToken, url + sorted form params)).
type SignatureValidator struct {
	authToken []byte
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{authToken: []byte(authToken)}
}

// Sign computes the expected signature for a request URL and its form
// parameters. Parameters are appended name then value, in byte order of the
// names, per the provider's scheme.
func (v *SignatureValidator) Sign(url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, v.authToken)
	mac.Write([]byte(url))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(params[k]))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Validate reports whether signature matches the request. Comparison is
// constant-time; an empty signature never matches.
func (v *SignatureValidator) Validate(url string, params map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	expected := v.Sign(url, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}
