package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/core"
	"github.com/shopmind/shopmind/engine/infra/cache"
	"github.com/shopmind/shopmind/engine/infra/monitoring"
	"github.com/shopmind/shopmind/engine/infra/retry"
	"github.com/shopmind/shopmind/engine/tool"
	"github.com/shopmind/shopmind/pkg/logger"
)

// Result is the uniform tool-call outcome. Failures never cross this
// boundary as errors; they are encoded in the result so the completion
// provider can react conversationally.
type Result struct {
	Content any  `json:"content"`
	IsError bool `json:"is_error"`
}

// Executor is the orchestration engine's view of the gateway; tests install
// spies behind it.
type Executor interface {
	Execute(ctx context.Context, inv tool.Invocation) *Result
}

// Gateway wraps every remote tool call in the retry executor, serves
// read-only operations from the TTL cache and feeds every outcome to the
// health monitor. It never interprets tool semantics.
type Gateway struct {
	registry *tool.Registry
	policy   retry.Policy
	cache    *cache.TTLCache
	monitor  *monitoring.Monitor
}

func New(registry *tool.Registry, policy retry.Policy, ttlCache *cache.TTLCache, monitor *monitoring.Monitor) *Gateway {
	return &Gateway{
		registry: registry,
		policy:   policy,
		cache:    ttlCache,
		monitor:  monitor,
	}
}

func (g *Gateway) Execute(ctx context.Context, inv tool.Invocation) *Result {
	def, ok := tool.Lookup(string(inv.Kind))
	if !ok {
		return errorResult(core.NewError(
			fmt.Errorf("unknown tool %q", inv.Kind),
			tool.ErrCodeToolNotFound,
			map[string]any{"tool": string(inv.Kind)},
		))
	}

	cacheable := def.Cacheable && g.cache != nil
	cacheKey := ""
	if cacheable {
		cacheKey = buildCacheKey(string(inv.Kind), inv.Args)
		cached, hit := g.cache.Get(cacheKey)
		if g.monitor != nil {
			g.monitor.RecordCacheLookup(ctx, hit)
		}
		if hit {
			if result, ok := cached.(*Result); ok {
				return result
			}
		}
	}

	start := time.Now()
	var content any
	err := retry.Do(ctx, g.policy, string(inv.Kind), func(ctx context.Context) error {
		var callErr error
		content, callErr = g.registry.Execute(ctx, inv)
		return callErr
	})
	latency := time.Since(start)
	if g.monitor != nil {
		g.monitor.RecordCall(ctx, string(inv.Kind), latency, err)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("tool execution failed",
			"tool", string(inv.Kind),
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return errorResult(err)
	}

	result := &Result{Content: content}
	if cacheable {
		g.cache.Set(cacheKey, result)
	}
	return result
}

// buildCacheKey composes the operation name with its normalized arguments:
// decoding and re-encoding through a map yields deterministic key ordering.
func buildCacheKey(name string, args json.RawMessage) string {
	if len(args) == 0 {
		return name
	}
	normalized := map[string]any{}
	if err := json.Unmarshal(args, &normalized); err != nil {
		return name + ":" + string(args)
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return name + ":" + string(args)
	}
	return name + ":" + string(encoded)
}

// errorResult encodes a failure as a JSON payload the provider can parse.
// Status and body of backend failures are preserved so the orchestrator can
// detect authentication expiry signatures.
func errorResult(err error) *Result {
	payload := map[string]any{"error": err.Error()}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		payload["retry_exhausted"] = true
		payload["attempts"] = exhausted.Attempts
	}
	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		payload["status"] = apiErr.Status
		payload["body"] = apiErr.Body
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		payload["code"] = coreErr.Code
	}
	encoded, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return &Result{Content: err.Error(), IsError: true}
	}
	return &Result{Content: string(encoded), IsError: true}
}
