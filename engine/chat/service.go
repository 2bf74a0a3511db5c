package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/gateway"
	"github.com/shopmind/shopmind/engine/guardrail"
	llmadapter "github.com/shopmind/shopmind/engine/llm/adapter"
	"github.com/shopmind/shopmind/engine/session"
	"github.com/shopmind/shopmind/engine/tool"
	"github.com/shopmind/shopmind/pkg/logger"
)

// Service is the tool-call orchestration engine. One HandleMessage call is
// one conversation turn: guardrail, completion-provider round trips, tool
// execution with chaining and correction, and the final reply.
type Service struct {
	sessions *session.Store
	guard    *guardrail.Filter
	gateway  gateway.Executor
	factory  llmadapter.Factory
	opts     Options
	refData  referenceData
}

func NewService(
	sessions *session.Store,
	guard *guardrail.Filter,
	gw gateway.Executor,
	factory llmadapter.Factory,
	opts Options,
) *Service {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultOptions().HistoryWindow
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultOptions().TurnTimeout
	}
	if opts.Provider == "" {
		opts.Provider = DefaultOptions().Provider
	}
	return &Service{
		sessions: sessions,
		guard:    guard,
		gateway:  gw,
		factory:  factory,
		opts:     opts,
	}
}

// turnState accumulates per-turn bookkeeping across tool executions.
type turnState struct {
	toolsUsed     []string
	productsFound int
	tokensUsed    int
	blocks        []session.ContentBlock
	results       []llmadapter.ToolResult
	reauth        bool
}

// HandleMessage processes one inbound turn. Guardrail rejections and unknown
// conversation ids return as errors; provider faults degrade to an apology
// response with the user's message preserved in history.
func (s *Service) HandleMessage(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	isNew := req.ConversationID == ""
	if err := s.guard.ValidateInbound(ctx, guardrail.Inbound{
		CallerID:        req.CallerID,
		ConversationID:  req.ConversationID,
		Message:         req.Message,
		NewConversation: isNew,
	}); err != nil {
		return nil, err
	}

	var conv *session.Conversation
	if isNew {
		conv = s.sessions.CreateConversation(req.CallerID)
		s.guard.TrackConversation(req.CallerID, conv.ID)
	} else {
		existing, ok := s.sessions.Get(req.ConversationID)
		if !ok {
			return nil, session.ErrNotFound
		}
		conv = existing
		// track only ids the store confirmed
		s.guard.TrackConversation(req.CallerID, conv.ID)
	}

	// Turns for the same conversation never interleave; cart
	// resolve-or-create below relies on this lock.
	unlock := s.sessions.LockTurn(conv.ID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	if err := s.sessions.AppendMessage(conv.ID, session.Message{
		Role:    session.RoleUser,
		Content: req.Message,
	}); err != nil {
		return nil, err
	}
	if code := ExtractOrderCode(req.Message); code != "" {
		_ = s.sessions.SetLastOrderCode(conv.ID, code)
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.opts.Provider
	}
	client, err := s.factory.CreateClient(&llmadapter.ProviderConfig{
		Provider: providerName,
		Model:    s.opts.Model,
		APIKey:   s.opts.APIKey,
		BaseURL:  s.opts.BaseURL,
	})
	if err != nil {
		logger.FromContext(ctx).Error("completion provider unavailable",
			"provider", providerName, "error", err)
		return s.finishTurn(ctx, conv.ID, providerName, apologyReply, &turnState{}), nil
	}
	defer client.Close()

	history, err := s.buildHistory(conv.ID)
	if err != nil {
		return nil, err
	}
	defs := toolDefinitions(req.IsAuthenticated)
	toolChoice, trackedCode := s.forcedToolChoice(req, conv.ID)
	systemPrompt := s.systemPrompt(req)
	if trackedCode != "" {
		// the code lives in checkout state, not the visible history; the
		// forced call needs it spelled out or the model fabricates one
		systemPrompt += fmt.Sprintf("\nThe customer's most recent order number is %s.\n", trackedCode)
	}
	llmReq := &llmadapter.LLMRequest{
		SystemPrompt: systemPrompt,
		Messages:     history,
		Tools:        defs,
		Options: llmadapter.CallOptions{
			Temperature: s.opts.Temperature,
			MaxTokens:   s.opts.MaxTokens,
			ToolChoice:  toolChoice,
		},
	}

	response, err := client.GenerateContent(ctx, llmReq)
	if err != nil {
		logger.FromContext(ctx).Error("completion call failed",
			"provider", providerName, "error", err)
		return s.finishTurn(ctx, conv.ID, providerName, apologyReply, &turnState{}), nil
	}

	turn := &turnState{}
	addUsage(turn, response.Usage)
	finalText := response.Content

	if len(response.ToolCalls) > 0 {
		s.executeToolCalls(ctx, conv.ID, req, response.ToolCalls, turn)
		if turn.reauth {
			resp := s.finishTurn(ctx, conv.ID, providerName, reauthReply, turn)
			resp.ReauthRequired = true
			return resp, nil
		}
		followUp := &llmadapter.LLMRequest{
			SystemPrompt: llmReq.SystemPrompt,
			Messages: append(append([]llmadapter.Message{}, history...),
				assistantToolMessage(response),
				toolResultMessage(turn.results),
			),
			Tools: defs,
			Options: llmadapter.CallOptions{
				Temperature: s.opts.Temperature,
				MaxTokens:   s.opts.MaxTokens,
			},
		}
		second, err := client.GenerateContent(ctx, followUp)
		if err != nil {
			logger.FromContext(ctx).Error("completion follow-up failed",
				"provider", providerName, "error", err)
			return s.finishTurn(ctx, conv.ID, providerName, apologyReply, turn), nil
		}
		addUsage(turn, second.Usage)
		finalText = second.Content
	}

	if strings.TrimSpace(finalText) == "" {
		finalText = placeholderReply
	}
	return s.finishTurn(ctx, conv.ID, providerName, finalText, turn), nil
}

// forcedToolChoice implements the order-inquiry heuristic: an authenticated
// caller asking about an order, with a code in the message or tracked on the
// conversation, gets the order-status tool forced instead of an open choice.
// When the code was resolved from tracked state rather than the message it is
// returned as well, so the prompt can surface it to the model.
func (s *Service) forcedToolChoice(req *Request, convID string) (string, string) {
	if !req.IsAuthenticated {
		return "", ""
	}
	if !IsOrderInquiry(req.Message) {
		return "", ""
	}
	if code := ExtractOrderCode(req.Message); code != "" {
		return string(tool.KindGetOrderStatus), ""
	}
	code := s.sessions.LastOrderCode(convID)
	if code == "" {
		return "", ""
	}
	return string(tool.KindGetOrderStatus), code
}

func (s *Service) buildHistory(convID string) ([]llmadapter.Message, error) {
	messages, err := s.sessions.GetMessages(convID)
	if err != nil {
		return nil, err
	}
	if len(messages) > s.opts.HistoryWindow {
		messages = messages[len(messages)-s.opts.HistoryWindow:]
	}
	history := make([]llmadapter.Message, 0, len(messages))
	for _, msg := range messages {
		role := llmadapter.RoleUser
		if msg.Role == session.RoleAssistant {
			role = llmadapter.RoleAssistant
		}
		history = append(history, llmadapter.Message{Role: role, Content: msg.Content})
	}
	return history, nil
}

// executeToolCalls runs every provider-requested invocation plus the
// structurally enforced follow-ups. Individual failures become error-flagged
// results; only authentication expiry aborts the loop.
func (s *Service) executeToolCalls(
	ctx context.Context,
	convID string,
	req *Request,
	calls []llmadapter.ToolCall,
	turn *turnState,
) {
	for i := range calls {
		call := &calls[i]
		def, ok := tool.Lookup(call.Name)
		if !ok {
			s.recordResult(turn, call.ID, call.Name, call.Arguments,
				&gateway.Result{Content: fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name), IsError: true})
			continue
		}
		if def.AuthRequired && !req.IsAuthenticated {
			s.recordResult(turn, call.ID, call.Name, call.Arguments,
				&gateway.Result{Content: `{"error":"authentication required","status":401}`, IsError: true})
			continue
		}

		inv := tool.Invocation{
			Kind:  def.Kind,
			Args:  call.Arguments,
			Token: req.CallerAccessToken,
		}
		if def.NeedsCart {
			cartID, err := s.resolveCart(ctx, convID, turn)
			if err != nil {
				s.recordResult(turn, call.ID, call.Name, call.Arguments,
					&gateway.Result{Content: fmt.Sprintf(`{"error":%q}`, err.Error()), IsError: true})
				continue
			}
			inv.CartID = cartID
		}
		if def.Kind == tool.KindSetShippingMethod {
			inv.Args = s.correctShippingArgs(ctx, convID, inv.Args)
		}

		result := s.gateway.Execute(ctx, inv)
		s.recordResult(turn, call.ID, call.Name, inv.Args, result)
		if result.IsError {
			if isAuthFailure(result.Content) {
				turn.reauth = true
				return
			}
			continue
		}
		s.observeSuccess(convID, def.Kind, result, turn)
		s.runChains(ctx, convID, req, def.Kind, turn)
		if turn.reauth {
			return
		}
	}
}

// runChains applies the auto-chaining rules. The completion model narrates
// completion without issuing the follow-up call often enough that the chain
// is enforced structurally, exactly once per successful predecessor.
func (s *Service) runChains(ctx context.Context, convID string, req *Request, kind tool.Kind, turn *turnState) {
	switch kind {
	case tool.KindSetDeliveryAddress:
		s.chainExecute(ctx, convID, req, tool.KindListShippingOptions, turn)
	case tool.KindSetPaymentMethod:
		s.chainExecute(ctx, convID, req, tool.KindPlaceOrder, turn)
	}
}

func (s *Service) chainExecute(ctx context.Context, convID string, req *Request, kind tool.Kind, turn *turnState) {
	cartID, ok := s.sessions.CartID(convID)
	if !ok {
		return
	}
	// chained calls honor the same authentication gate as model-issued ones
	if def, ok := tool.Lookup(string(kind)); ok && def.AuthRequired && !req.IsAuthenticated {
		s.recordResult(turn, "chain-"+string(kind), string(kind), nil,
			&gateway.Result{Content: `{"error":"authentication required","status":401}`, IsError: true})
		return
	}
	logger.FromContext(ctx).Info("auto-chaining tool call",
		"tool", string(kind), "conversation_id", convID)
	inv := tool.Invocation{Kind: kind, CartID: cartID, Token: req.CallerAccessToken}
	result := s.gateway.Execute(ctx, inv)
	s.recordResult(turn, "chain-"+string(kind), string(kind), nil, result)
	if result.IsError {
		if isAuthFailure(result.Content) {
			turn.reauth = true
		}
		return
	}
	s.observeSuccess(convID, kind, result, turn)
}

// observeSuccess updates checkout state from successful tool results: cache
// fetched shipping modes, clear the cart once an order is placed, track the
// order code.
func (s *Service) observeSuccess(convID string, kind tool.Kind, result *gateway.Result, turn *turnState) {
	switch kind {
	case tool.KindSearchProducts:
		if sr, ok := result.Content.(*commerce.SearchResult); ok {
			turn.productsFound += len(sr.Products)
		}
	case tool.KindListShippingOptions:
		if methods, ok := result.Content.([]commerce.ShippingMethod); ok {
			modes := make([]session.ShippingMode, 0, len(methods))
			for _, m := range methods {
				modes = append(modes, session.ShippingMode{Code: m.Code, Name: m.Name})
			}
			_ = s.sessions.SetShippingModes(convID, modes)
		}
	case tool.KindPlaceOrder:
		// a cart converts to an order and cannot be reused
		_ = s.sessions.ClearCartID(convID)
		if order, ok := result.Content.(*commerce.Order); ok && order.OrderNumber != "" {
			_ = s.sessions.SetLastOrderCode(convID, order.OrderNumber)
		}
	}
}

// resolveCart returns the conversation's cart id, creating one transparently
// on first use. Runs under the turn lock, so concurrent turns cannot race a
// duplicate cart into existence.
func (s *Service) resolveCart(ctx context.Context, convID string, turn *turnState) (string, error) {
	if cartID, ok := s.sessions.CartID(convID); ok {
		return cartID, nil
	}
	result := s.gateway.Execute(ctx, tool.Invocation{Kind: tool.KindCreateCart})
	s.recordResult(turn, "auto-"+string(tool.KindCreateCart), string(tool.KindCreateCart), nil, result)
	if result.IsError {
		return "", fmt.Errorf("cart creation failed: %v", result.Content)
	}
	cart, ok := result.Content.(*commerce.Cart)
	if !ok || cart.ID == "" {
		return "", fmt.Errorf("cart creation returned no cart id")
	}
	if err := s.sessions.SetCartID(convID, cart.ID); err != nil {
		return "", err
	}
	return cart.ID, nil
}

// correctShippingArgs applies fuzzy code correction against the cached
// shipping-mode list before the call reaches the backend.
func (s *Service) correctShippingArgs(ctx context.Context, convID string, args json.RawMessage) json.RawMessage {
	decoded := tool.SetShippingMethodArgs{}
	if err := json.Unmarshal(args, &decoded); err != nil || decoded.Code == "" {
		return args
	}
	corrected := CorrectShippingCode(decoded.Code, s.sessions.ShippingModes(convID))
	if corrected == decoded.Code {
		return args
	}
	logger.FromContext(ctx).Info("corrected shipping method code",
		"requested", decoded.Code, "corrected", corrected)
	encoded, err := json.Marshal(tool.SetShippingMethodArgs{Code: corrected})
	if err != nil {
		return args
	}
	return encoded
}

func (s *Service) recordResult(turn *turnState, callID, name string, args json.RawMessage, result *gateway.Result) {
	turn.toolsUsed = append(turn.toolsUsed, name)
	content := encodeToolContent(result.Content)
	turn.results = append(turn.results, llmadapter.ToolResult{
		ID:      callID,
		Name:    name,
		Content: content,
		IsError: result.IsError,
	})
	turn.blocks = append(turn.blocks,
		session.ContentBlock{Type: session.BlockToolUse, ToolName: name, ToolArgs: args},
		session.ContentBlock{Type: session.BlockToolResult, ToolName: name, Result: content, IsError: result.IsError},
	)
}

// finishTurn sanitizes the reply, appends the assistant message with its
// aggregated metadata and builds the response.
func (s *Service) finishTurn(ctx context.Context, convID, providerName, text string, turn *turnState) *Response {
	text = s.guard.Sanitize(text)
	meta := session.Metadata{
		ProductsFound: turn.productsFound,
		ToolsUsed:     turn.toolsUsed,
		TokensUsed:    turn.tokensUsed,
		ProviderName:  providerName,
	}
	blocks := turn.blocks
	if len(blocks) > 0 {
		blocks = append(blocks, session.ContentBlock{Type: session.BlockText, Text: text})
	}
	if err := s.sessions.AppendMessage(convID, session.Message{
		Role:     session.RoleAssistant,
		Content:  text,
		Blocks:   blocks,
		Metadata: &meta,
	}); err != nil {
		logger.FromContext(ctx).Error("failed to append assistant message",
			"conversation_id", convID, "error", err)
	}
	return &Response{
		ConversationID: convID,
		Message:        text,
		Metadata:       meta,
	}
}

func toolDefinitions(authenticated bool) []llmadapter.ToolDefinition {
	defs := tool.Definitions(authenticated)
	out := make([]llmadapter.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, llmadapter.ToolDefinition{
			Name:        def.Name(),
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return out
}

func assistantToolMessage(response *llmadapter.LLMResponse) llmadapter.Message {
	return llmadapter.Message{
		Role:      llmadapter.RoleAssistant,
		Content:   response.Content,
		ToolCalls: response.ToolCalls,
	}
}

func toolResultMessage(results []llmadapter.ToolResult) llmadapter.Message {
	return llmadapter.Message{
		Role:        llmadapter.RoleTool,
		ToolResults: results,
	}
}

func addUsage(turn *turnState, usage *llmadapter.Usage) {
	if usage != nil {
		turn.tokensUsed += usage.TotalTokens
	}
}

func encodeToolContent(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprintf("%v", content)
	}
	return string(encoded)
}
