package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/shopmind/shopmind/engine/session"
)

// The heuristics below are deliberately plain functions over text, kept out
// of the orchestration control flow so they stay independently testable.

var orderCodePattern = regexp.MustCompile(`\b\d{8}\b`)

// ExtractOrderCode returns the first 8-digit code in text, if any.
func ExtractOrderCode(text string) string {
	return orderCodePattern.FindString(text)
}

var orderInquiryKeywords = []string{"order", "status", "show"}

// IsOrderInquiry reports whether the message looks like a question about an
// existing order.
func IsOrderInquiry(message string) bool {
	if orderCodePattern.MatchString(message) {
		return true
	}
	lower := strings.ToLower(message)
	for _, keyword := range orderInquiryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// CorrectShippingCode remaps a model-supplied shipping code to the nearest
// valid cached code. The model is observed to echo user-facing labels or
// hybrid strings ("standard-net") instead of the backend's opaque codes, so:
// exact match first; then the token before the first separator matched by
// prefix/substring against cached codes and names; finally the first cached
// mode as a fallback.
func CorrectShippingCode(requested string, modes []session.ShippingMode) string {
	if len(modes) == 0 {
		return requested
	}
	for _, mode := range modes {
		if mode.Code == requested {
			return requested
		}
	}
	token := strings.ToLower(requested)
	if idx := strings.IndexAny(token, "-_ ./"); idx > 0 {
		token = token[:idx]
	}
	for _, mode := range modes {
		if strings.HasPrefix(strings.ToLower(mode.Code), token) {
			return mode.Code
		}
	}
	for _, mode := range modes {
		if strings.Contains(strings.ToLower(mode.Code), token) ||
			strings.Contains(strings.ToLower(mode.Name), token) {
			return mode.Code
		}
	}
	return modes[0].Code
}

// isAuthFailure sniffs a tool error payload for authentication-expiry
// signatures: a 401 status or an "unauthorized" marker anywhere in the body.
func isAuthFailure(content any) bool {
	payload, ok := content.(string)
	if !ok {
		encoded, err := json.Marshal(content)
		if err != nil {
			return false
		}
		payload = string(encoded)
	}
	if gjson.Valid(payload) {
		if gjson.Get(payload, "status").Int() == 401 {
			return true
		}
	}
	return strings.Contains(strings.ToLower(payload), "unauthorized")
}
