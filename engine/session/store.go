package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned for operations on unknown conversation ids.
var ErrNotFound = errors.New("conversation not found")

type Config struct {
	// MaxConversations bounds the total conversation count; the least
	// recently used conversation is evicted past the ceiling.
	MaxConversations int
	// MaxMessages bounds each conversation's history; oldest non-system
	// messages are pruned first.
	MaxMessages int
}

func DefaultConfig() Config {
	return Config{MaxConversations: 1000, MaxMessages: 50}
}

// Store owns every conversation and its checkout state. All mutation goes
// through its API so locking and invariants stay centralized.
type Store struct {
	mu            sync.Mutex
	conversations *lru.Cache[string, *Conversation]
	turnLocks     map[string]*sync.Mutex
	maxMessages   int

	// OnEvict, when set, observes LRU evictions (e.g. to release guardrail
	// conversation tracking). Called outside the store lock.
	OnEvict func(conv *Conversation)
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = DefaultConfig().MaxConversations
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultConfig().MaxMessages
	}
	s := &Store{
		turnLocks:   make(map[string]*sync.Mutex),
		maxMessages: cfg.MaxMessages,
	}
	cache, err := lru.NewWithEvict[string, *Conversation](cfg.MaxConversations, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation index: %w", err)
	}
	s.conversations = cache
	return s, nil
}

func (s *Store) onEvict(id string, conv *Conversation) {
	s.mu.Lock()
	delete(s.turnLocks, id)
	s.mu.Unlock()
	if s.OnEvict != nil && conv != nil {
		s.OnEvict(conv)
	}
}

// CreateConversation allocates a new conversation with a server-generated id.
func (s *Store) CreateConversation(ownerID string) *Conversation {
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations.Add(conv.ID, conv)
	return conv
}

// Get returns the conversation and marks it recently used.
func (s *Store) Get(id string) (*Conversation, bool) {
	return s.conversations.Get(id)
}

// LockTurn serializes turn processing per conversation: two turns for the
// same id never interleave their appends. Returns the unlock func.
func (s *Store) LockTurn(id string) func() {
	s.mu.Lock()
	lock, ok := s.turnLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.turnLocks[id] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// AppendMessage appends to the conversation history, pruning oldest
// non-system messages once the cap is exceeded.
func (s *Store) AppendMessage(id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return ErrNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	if len(conv.Messages) > s.maxMessages {
		conv.Messages = prune(conv.Messages, s.maxMessages)
	}
	return nil
}

// prune drops the oldest non-system messages until len(messages) == limit.
// System-context messages are only sacrificed when nothing else remains.
func prune(messages []Message, limit int) []Message {
	excess := len(messages) - limit
	if excess <= 0 {
		return messages
	}
	kept := make([]Message, 0, limit)
	for _, msg := range messages {
		if excess > 0 && !msg.System {
			excess--
			continue
		}
		kept = append(kept, msg)
	}
	// Everything left was system-flagged; trim from the front.
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}

// GetMessages returns a copy of the conversation's ordered history.
func (s *Store) GetMessages(id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out, nil
}

// Clear empties the conversation's messages and checkout state but preserves
// the conversation id.
func (s *Store) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return ErrNotFound
	}
	conv.Messages = nil
	conv.Checkout = CheckoutState{}
	conv.UpdatedAt = time.Now()
	return nil
}

// Delete destroys the conversation and its checkout state.
func (s *Store) Delete(id string) {
	s.conversations.Remove(id)
}

// Len reports the tracked conversation count.
func (s *Store) Len() int {
	return s.conversations.Len()
}

// CartID returns the conversation's active cart id, if any.
func (s *Store) CartID(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok || conv.Checkout.ActiveCartID == "" {
		return "", false
	}
	return conv.Checkout.ActiveCartID, true
}

func (s *Store) SetCartID(id, cartID string) error {
	return s.updateCheckout(id, func(c *CheckoutState) { c.ActiveCartID = cartID })
}

// ClearCartID drops the active cart reference; a cart converts to an order on
// placement and cannot be reused.
func (s *Store) ClearCartID(id string) error {
	return s.updateCheckout(id, func(c *CheckoutState) { c.ActiveCartID = "" })
}

func (s *Store) ShippingModes(id string) []ShippingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return nil
	}
	out := make([]ShippingMode, len(conv.Checkout.ShippingModes))
	copy(out, conv.Checkout.ShippingModes)
	return out
}

func (s *Store) SetShippingModes(id string, modes []ShippingMode) error {
	return s.updateCheckout(id, func(c *CheckoutState) { c.ShippingModes = modes })
}

func (s *Store) LastOrderCode(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return ""
	}
	return conv.Checkout.LastOrderCode
}

func (s *Store) SetLastOrderCode(id, code string) error {
	return s.updateCheckout(id, func(c *CheckoutState) { c.LastOrderCode = code })
}

func (s *Store) updateCheckout(id string, fn func(*CheckoutState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return ErrNotFound
	}
	fn(&conv.Checkout)
	conv.UpdatedAt = time.Now()
	return nil
}
