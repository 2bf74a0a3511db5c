package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/infra/cache"
	"github.com/shopmind/shopmind/engine/infra/monitoring"
	"github.com/shopmind/shopmind/engine/infra/retry"
	"github.com/shopmind/shopmind/engine/tool"
)

// fakeBackend counts calls and can fail the first N search requests.
type fakeBackend struct {
	searchCalls  int
	getCartCalls int
	searchFails  int
	searchErr    error
}

func (f *fakeBackend) SearchProducts(_ context.Context, query string, _ int) (*commerce.SearchResult, error) {
	f.searchCalls++
	if f.searchCalls <= f.searchFails {
		return nil, f.searchErr
	}
	return &commerce.SearchResult{
		Products: []commerce.Product{{ID: "p1", Name: query}},
		Total:    1,
	}, nil
}

func (f *fakeBackend) GetCart(_ context.Context, cartID string) (*commerce.Cart, error) {
	f.getCartCalls++
	return &commerce.Cart{ID: cartID}, nil
}

func (f *fakeBackend) GetProduct(context.Context, string) (*commerce.Product, error) {
	return &commerce.Product{}, nil
}
func (f *fakeBackend) ListCategories(context.Context) ([]commerce.Category, error) { return nil, nil }
func (f *fakeBackend) SiteConfig(context.Context) (*commerce.SiteConfig, error)    { return nil, nil }
func (f *fakeBackend) CreateCart(context.Context) (*commerce.Cart, error) {
	return &commerce.Cart{ID: "cart-new"}, nil
}
func (f *fakeBackend) AddLineItem(context.Context, string, string, int) (*commerce.Cart, error) {
	return &commerce.Cart{}, nil
}
func (f *fakeBackend) SetDeliveryAddress(context.Context, string, commerce.Address, string) error {
	return nil
}
func (f *fakeBackend) ListShippingMethods(context.Context, string) ([]commerce.ShippingMethod, error) {
	return nil, nil
}
func (f *fakeBackend) SetShippingMethod(context.Context, string, string) error { return nil }
func (f *fakeBackend) SetPaymentMethod(context.Context, string, string) error  { return nil }
func (f *fakeBackend) PlaceOrder(context.Context, string, string) (*commerce.Order, error) {
	return &commerce.Order{}, nil
}
func (f *fakeBackend) ListOrders(context.Context, string) ([]commerce.Order, error) {
	return nil, nil
}
func (f *fakeBackend) GetOrderStatus(context.Context, string, string) (*commerce.Order, error) {
	return &commerce.Order{}, nil
}

func testGateway(backend commerce.Client, monitor *monitoring.Monitor) *Gateway {
	policy := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return New(tool.NewRegistry(backend), policy, cache.New(time.Minute, 100), monitor)
}

func decodePayload(t *testing.T, result *Result) map[string]any {
	t.Helper()
	text, ok := result.Content.(string)
	require.True(t, ok)
	payload := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	return payload
}

func TestGatewayCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("Should serve repeated read calls from the cache", func(t *testing.T) {
		backend := &fakeBackend{}
		monitor := monitoring.NewMonitor(time.Hour)
		g := testGateway(backend, monitor)
		inv := tool.Invocation{Kind: tool.KindSearchProducts, Args: json.RawMessage(`{"query":"camera"}`)}

		first := g.Execute(ctx, inv)
		second := g.Execute(ctx, inv)

		require.False(t, first.IsError)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, backend.searchCalls)

		snap := monitor.Evaluate(ctx)
		assert.Equal(t, 0.5, snap.CacheHitRate)
	})

	t.Run("Should key the cache on normalized arguments", func(t *testing.T) {
		backend := &fakeBackend{}
		g := testGateway(backend, nil)

		g.Execute(ctx, tool.Invocation{Kind: tool.KindSearchProducts, Args: json.RawMessage(`{"query":"camera","limit":5}`)})
		g.Execute(ctx, tool.Invocation{Kind: tool.KindSearchProducts, Args: json.RawMessage(`{"limit":5,"query":"camera"}`)})
		assert.Equal(t, 1, backend.searchCalls, "key order must not defeat the cache")

		g.Execute(ctx, tool.Invocation{Kind: tool.KindSearchProducts, Args: json.RawMessage(`{"query":"tripod","limit":5}`)})
		assert.Equal(t, 2, backend.searchCalls)
	})

	t.Run("Should never cache cart reads", func(t *testing.T) {
		backend := &fakeBackend{}
		monitor := monitoring.NewMonitor(time.Hour)
		g := testGateway(backend, monitor)
		inv := tool.Invocation{Kind: tool.KindGetCart, CartID: "cart-1"}

		g.Execute(ctx, inv)
		g.Execute(ctx, inv)
		assert.Equal(t, 2, backend.getCartCalls)

		snap := monitor.Evaluate(ctx)
		assert.Equal(t, 1.0, snap.CacheHitRate, "no lookups recorded for uncacheable tools")
	})
}

func TestGatewayRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("Should retry transient backend failures to success", func(t *testing.T) {
		backend := &fakeBackend{
			searchFails: 2,
			searchErr:   &commerce.APIError{Operation: "search", Status: 503, Body: "upstream down"},
		}
		g := testGateway(backend, nil)
		result := g.Execute(ctx, tool.Invocation{
			Kind: tool.KindSearchProducts,
			Args: json.RawMessage(`{"query":"camera"}`),
		})
		require.False(t, result.IsError)
		assert.Equal(t, 3, backend.searchCalls)
	})

	t.Run("Should encode exhaustion with attempt count", func(t *testing.T) {
		backend := &fakeBackend{
			searchFails: 10,
			searchErr:   &commerce.APIError{Operation: "search", Status: 503, Body: "upstream down"},
		}
		g := testGateway(backend, nil)
		result := g.Execute(ctx, tool.Invocation{
			Kind: tool.KindSearchProducts,
			Args: json.RawMessage(`{"query":"camera"}`),
		})
		require.True(t, result.IsError)
		assert.Equal(t, 3, backend.searchCalls)

		payload := decodePayload(t, result)
		assert.Equal(t, true, payload["retry_exhausted"])
		assert.Equal(t, float64(3), payload["attempts"])
		assert.Equal(t, float64(503), payload["status"])
	})

	t.Run("Should not retry business failures", func(t *testing.T) {
		backend := &fakeBackend{
			searchFails: 10,
			searchErr:   &commerce.APIError{Operation: "search", Status: 401, Body: "unauthorized"},
		}
		monitor := monitoring.NewMonitor(time.Hour)
		g := testGateway(backend, monitor)
		result := g.Execute(ctx, tool.Invocation{
			Kind: tool.KindSearchProducts,
			Args: json.RawMessage(`{"query":"camera"}`),
		})
		require.True(t, result.IsError)
		assert.Equal(t, 1, backend.searchCalls)

		payload := decodePayload(t, result)
		assert.Equal(t, float64(401), payload["status"])
		assert.Equal(t, "unauthorized", payload["body"])

		snap := monitor.Evaluate(ctx)
		assert.Equal(t, 1.0, snap.ErrorRate)
	})

	t.Run("Should never cache failed results", func(t *testing.T) {
		backend := &fakeBackend{
			searchFails: 3,
			searchErr:   &commerce.APIError{Operation: "search", Status: 503, Body: "upstream down"},
		}
		g := testGateway(backend, nil)
		inv := tool.Invocation{Kind: tool.KindSearchProducts, Args: json.RawMessage(`{"query":"camera"}`)}

		first := g.Execute(ctx, inv)
		require.True(t, first.IsError)

		second := g.Execute(ctx, inv)
		require.False(t, second.IsError, "recovered backend must be reached again")
	})
}

func TestGatewayErrors(t *testing.T) {
	t.Run("Should encode unknown tools as error results", func(t *testing.T) {
		g := testGateway(&fakeBackend{}, nil)
		result := g.Execute(context.Background(), tool.Invocation{Kind: tool.Kind("teleport_order")})
		require.True(t, result.IsError)
		payload := decodePayload(t, result)
		assert.Equal(t, "TOOL_NOT_FOUND", payload["code"])
	})

	t.Run("Should encode invalid arguments as error results", func(t *testing.T) {
		g := testGateway(&fakeBackend{}, nil)
		result := g.Execute(context.Background(), tool.Invocation{
			Kind: tool.KindSearchProducts,
			Args: json.RawMessage(`{}`),
		})
		require.True(t, result.IsError)
		payload := decodePayload(t, result)
		assert.Equal(t, "TOOL_INVALID_INPUT", payload["code"])
	})
}
