package guardrail

import (
	"regexp"
	"strings"
)

// Blocked-content and injection patterns are compiled once. Matching is
// intentionally coarse: false positives are cheaper than letting credential
// fishing or destructive SQL through to the model.
var blockedContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(password|passwd|api[_\s-]?key|secret[_\s-]?key|access[_\s-]?token|bearer\s+token)\b`),
	regexp.MustCompile(`(?i)\b(admin|root)\s+(access|account|login|credentials)\b`),
	regexp.MustCompile(`(?i)\b(drop|truncate|delete)\s+(table|database|from)\b`),
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)`),
	regexp.MustCompile(`(?i)\byou\s+are\s+now\b`),
	regexp.MustCompile(`(?i)\bpretend\s+(to\s+be|you\s+are)\b`),
	regexp.MustCompile(`(?i)(^|\n)\s*(system|assistant)\s*:`),
	regexp.MustCompile(`(?i)<\s*/?\s*(system|instructions?)\s*>`),
}

func matchBlockedContent(message string) (string, bool) {
	for _, pattern := range blockedContentPatterns {
		if pattern.MatchString(message) {
			return pattern.String(), true
		}
	}
	return "", false
}

func matchInjection(message string) (string, bool) {
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(message) {
			return pattern.String(), true
		}
	}
	return "", false
}

var domainKeywords = []string{
	"product", "price", "buy", "purchase", "cart", "basket", "order",
	"ship", "shipping", "delivery", "deliver", "checkout", "pay", "payment",
	"return", "refund", "stock", "available", "availability", "catalog",
	"category", "categories", "item", "store", "shop", "search", "find",
	"camera", "discount", "coupon", "invoice", "status", "track",
}

var greetingKeywords = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"thanks", "thank you", "bye", "goodbye",
}

var offTopicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(write|generate|create)\b.*\b(code|script|program|function)\b`),
	regexp.MustCompile(`(?i)\b(build|create|make)\b.*\b(website|web\s*site|app|application)\b`),
	regexp.MustCompile(`(?i)\b(political|politics|election|vote for)\b`),
	regexp.MustCompile(`(?i)\b(medical|diagnosis|prescription|legal advice|lawsuit)\b`),
}

var interrogativePattern = regexp.MustCompile(`(?i)^\s*(what|which|where|when|who|how|can|could|do|does|is|are|will|would|should)\b|\?`)

// IsOnTopic is the permissive topic heuristic: domain keywords, greetings and
// questions pass; only the explicit off-domain intents are rejected; anything
// else defaults to accepted.
func IsOnTopic(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range domainKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	for _, keyword := range greetingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	if interrogativePattern.MatchString(message) {
		return true
	}
	for _, pattern := range offTopicPatterns {
		if pattern.MatchString(message) {
			return false
		}
	}
	return true
}
