package guardrail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/shopmind/shopmind/pkg/logger"
)

// Category distinguishes rejection classes so callers can apply backoff only
// to rate limiting and treat everything else as a content problem.
type Category string

const (
	CategoryLength            Category = "length"
	CategoryBlockedContent    Category = "blocked_content"
	CategoryInjection         Category = "prompt_injection"
	CategoryRateLimit         Category = "rate_limit"
	CategoryConversationLimit Category = "conversation_limit"
	CategoryOffTopic          Category = "off_topic"
)

// RejectionError is returned when an inbound message fails validation. It is
// surfaced to the caller as a 4xx-class response, never silently dropped.
type RejectionError struct {
	Category Category
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("message rejected (%s): %s", e.Category, e.Reason)
}

func reject(category Category, format string, args ...any) error {
	return &RejectionError{Category: category, Reason: fmt.Sprintf(format, args...)}
}

type Config struct {
	MaxMessageLength  int
	RateLimit         int64
	RatePeriod        time.Duration
	MaxConversations  int
	SafeEmailDomain   string
	DisableTopicCheck bool
}

func DefaultConfig() Config {
	return Config{
		MaxMessageLength: 2000,
		RateLimit:        20,
		RatePeriod:       time.Minute,
		MaxConversations: 10,
		SafeEmailDomain:  "shopmind.dev",
	}
}

// Inbound describes one incoming chat message prior to any processing.
type Inbound struct {
	CallerID        string
	ConversationID  string
	Message         string
	NewConversation bool
}

// Filter validates inbound traffic and sanitizes outbound text. The rate
// limiter and conversation tracker are process-local; a multi-instance
// deployment would swap the limiter store for a shared one.
type Filter struct {
	cfg     Config
	limiter *limiter.Limiter

	mu            sync.Mutex
	conversations map[string]map[string]struct{}
}

func NewFilter(cfg Config) *Filter {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultConfig().MaxMessageLength
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultConfig().RateLimit
	}
	if cfg.RatePeriod <= 0 {
		cfg.RatePeriod = DefaultConfig().RatePeriod
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = DefaultConfig().MaxConversations
	}
	rate := limiter.Rate{Period: cfg.RatePeriod, Limit: cfg.RateLimit}
	return &Filter{
		cfg:           cfg,
		limiter:       limiter.New(memorystore.NewStore(), rate),
		conversations: make(map[string]map[string]struct{}),
	}
}

// ValidateInbound runs the validation pipeline, short-circuiting at the first
// failure with a category-tagged rejection.
func (f *Filter) ValidateInbound(ctx context.Context, in Inbound) error {
	if len(in.Message) > f.cfg.MaxMessageLength {
		return reject(CategoryLength,
			"message exceeds the maximum length of %d characters", f.cfg.MaxMessageLength)
	}
	if pattern, found := matchBlockedContent(in.Message); found {
		logger.FromContext(ctx).Warn("blocked content detected",
			"caller_id", in.CallerID, "pattern", pattern)
		return reject(CategoryBlockedContent, "message contains blocked content")
	}
	if pattern, found := matchInjection(in.Message); found {
		logger.FromContext(ctx).Warn("prompt injection detected",
			"caller_id", in.CallerID, "pattern", pattern)
		return reject(CategoryInjection, "message resembles a prompt injection attempt")
	}
	if err := f.checkRateLimit(ctx, in.CallerID); err != nil {
		return err
	}
	if err := f.checkConversationLimit(in); err != nil {
		return err
	}
	if !f.cfg.DisableTopicCheck && !IsOnTopic(in.Message) {
		return reject(CategoryOffTopic,
			"I can only help with shopping: searching products, carts, checkout and orders")
	}
	return nil
}

func (f *Filter) checkRateLimit(ctx context.Context, callerID string) error {
	key := callerID
	if key == "" {
		key = "anonymous"
	}
	limiterCtx, err := f.limiter.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("rate limiter failure: %w", err)
	}
	if limiterCtx.Reached {
		return reject(CategoryRateLimit,
			"rate limit of %d messages per %s exceeded", f.cfg.RateLimit, f.cfg.RatePeriod)
	}
	return nil
}

// checkConversationLimit caps how many distinct conversations one identity
// can hold open. Presented ids are always accepted here and only tracked via
// TrackConversation once the session store confirms them; an unverified junk
// id must never count against the ceiling. Only the creation of a new
// conversation is rejected at the ceiling.
func (f *Filter) checkConversationLimit(in Inbound) error {
	if in.CallerID == "" || !in.NewConversation {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conversations[in.CallerID]) >= f.cfg.MaxConversations {
		return reject(CategoryConversationLimit,
			"maximum of %d concurrent conversations reached", f.cfg.MaxConversations)
	}
	return nil
}

// TrackConversation registers a freshly created conversation id for the
// caller's concurrency ceiling.
func (f *Filter) TrackConversation(callerID, conversationID string) {
	if callerID == "" || conversationID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tracked, ok := f.conversations[callerID]
	if !ok {
		tracked = make(map[string]struct{})
		f.conversations[callerID] = tracked
	}
	tracked[conversationID] = struct{}{}
}

// ReleaseConversation drops a conversation id from the caller's tracked set,
// e.g. after session-store eviction.
func (f *Filter) ReleaseConversation(callerID, conversationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tracked, ok := f.conversations[callerID]; ok {
		delete(tracked, conversationID)
	}
}

// Sanitize redacts PII from outbound assistant text.
func (f *Filter) Sanitize(text string) string {
	return Redact(text, f.cfg.SafeEmailDomain)
}
