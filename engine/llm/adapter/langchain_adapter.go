package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChainAdapter maps the LLMClient boundary onto a langchaingo model.
type LangChainAdapter struct {
	model    llms.Model
	provider string
}

func NewLangChainAdapter(model llms.Model, provider string) *LangChainAdapter {
	return &LangChainAdapter{model: model, provider: provider}
}

func (a *LangChainAdapter) Provider() string {
	return a.provider
}

func (a *LangChainAdapter) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	if err := ValidateConversation(req.Messages); err != nil {
		return nil, err
	}
	messages := a.convertMessages(req)
	options := a.buildCallOptions(req)
	response, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("%s GenerateContent failed: %w", a.provider, err)
	}
	return a.convertResponse(response)
}

func (a *LangChainAdapter) Close() error {
	return nil
}

func (a *LangChainAdapter) convertMessages(req *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for i := range req.Messages {
		msg := &req.Messages[i]
		switch {
		case len(msg.ToolCalls) > 0:
			content := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				content.Parts = append(content.Parts, llms.TextPart(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				content.Parts = append(content.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			messages = append(messages, content)
		case len(msg.ToolResults) > 0:
			content := llms.MessageContent{Role: llms.ChatMessageTypeTool}
			for _, result := range msg.ToolResults {
				content.Parts = append(content.Parts, llms.ToolCallResponse{
					ToolCallID: result.ID,
					Name:       result.Name,
					Content:    result.Content,
				})
			}
			messages = append(messages, content)
		default:
			messages = append(messages, llms.TextParts(a.mapMessageRole(msg.Role), msg.Content))
		}
	}
	return messages
}

func (a *LangChainAdapter) mapMessageRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleUser:
		return llms.ChatMessageTypeHuman
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (a *LangChainAdapter) buildCallOptions(req *LLMRequest) []llms.CallOption {
	var options []llms.CallOption
	if req.Options.Temperature > 0 {
		options = append(options, llms.WithTemperature(req.Options.Temperature))
	}
	if req.Options.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.Options.MaxTokens))
	}
	if len(req.Tools) > 0 {
		options = append(options, llms.WithTools(a.convertTools(req.Tools)))
		switch req.Options.ToolChoice {
		case "", "auto":
			// provider default
		case "none":
			options = append(options, llms.WithToolChoice("none"))
		default:
			options = append(options, llms.WithToolChoice(llms.ToolChoice{
				Type:     "function",
				Function: &llms.FunctionReference{Name: req.Options.ToolChoice},
			}))
		}
	}
	return options
}

func (a *LangChainAdapter) convertTools(tools []ToolDefinition) []llms.Tool {
	llmTools := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return llmTools
}

func (a *LangChainAdapter) convertResponse(resp *llms.ContentResponse) (*LLMResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", a.provider)
	}
	choice := resp.Choices[0]
	response := &LLMResponse{
		Content:    choice.Content,
		StopReason: choice.StopReason,
	}
	if len(choice.ToolCalls) > 0 {
		response.ToolCalls = make([]ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: json.RawMessage(tc.FunctionCall.Arguments),
			})
		}
	}
	response.Usage = usageFromGenerationInfo(choice.GenerationInfo)
	return response, nil
}

// usageFromGenerationInfo digs token counts out of langchaingo's loosely
// typed generation info; providers disagree on key names.
func usageFromGenerationInfo(info map[string]any) *Usage {
	if len(info) == 0 {
		return nil
	}
	usage := &Usage{
		PromptTokens:     intFromInfo(info, "PromptTokens", "prompt_tokens", "input_tokens"),
		CompletionTokens: intFromInfo(info, "CompletionTokens", "completion_tokens", "output_tokens"),
		TotalTokens:      intFromInfo(info, "TotalTokens", "total_tokens"),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens == 0 {
		return nil
	}
	return usage
}

func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
