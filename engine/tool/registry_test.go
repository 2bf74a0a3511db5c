package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/core"
)

// stubClient implements commerce.Client through optional function fields;
// unset operations fail the test if reached.
type stubClient struct {
	t *testing.T

	searchProducts func(ctx context.Context, query string, limit int) (*commerce.SearchResult, error)
	getProduct     func(ctx context.Context, productID string) (*commerce.Product, error)
	addLineItem    func(ctx context.Context, cartID, productID string, quantity int) (*commerce.Cart, error)
	setShipping    func(ctx context.Context, cartID, code string) error
	getOrderStatus func(ctx context.Context, orderNumber, token string) (*commerce.Order, error)
}

func (s *stubClient) SearchProducts(ctx context.Context, query string, limit int) (*commerce.SearchResult, error) {
	if s.searchProducts == nil {
		s.t.Fatal("unexpected SearchProducts call")
	}
	return s.searchProducts(ctx, query, limit)
}

func (s *stubClient) GetProduct(ctx context.Context, productID string) (*commerce.Product, error) {
	if s.getProduct == nil {
		s.t.Fatal("unexpected GetProduct call")
	}
	return s.getProduct(ctx, productID)
}

func (s *stubClient) ListCategories(context.Context) ([]commerce.Category, error) {
	s.t.Fatal("unexpected ListCategories call")
	return nil, nil
}

func (s *stubClient) SiteConfig(context.Context) (*commerce.SiteConfig, error) {
	s.t.Fatal("unexpected SiteConfig call")
	return nil, nil
}

func (s *stubClient) CreateCart(context.Context) (*commerce.Cart, error) {
	s.t.Fatal("unexpected CreateCart call")
	return nil, nil
}

func (s *stubClient) GetCart(context.Context, string) (*commerce.Cart, error) {
	s.t.Fatal("unexpected GetCart call")
	return nil, nil
}

func (s *stubClient) AddLineItem(ctx context.Context, cartID, productID string, quantity int) (*commerce.Cart, error) {
	if s.addLineItem == nil {
		s.t.Fatal("unexpected AddLineItem call")
	}
	return s.addLineItem(ctx, cartID, productID, quantity)
}

func (s *stubClient) SetDeliveryAddress(context.Context, string, commerce.Address, string) error {
	s.t.Fatal("unexpected SetDeliveryAddress call")
	return nil
}

func (s *stubClient) ListShippingMethods(context.Context, string) ([]commerce.ShippingMethod, error) {
	s.t.Fatal("unexpected ListShippingMethods call")
	return nil, nil
}

func (s *stubClient) SetShippingMethod(ctx context.Context, cartID, code string) error {
	if s.setShipping == nil {
		s.t.Fatal("unexpected SetShippingMethod call")
	}
	return s.setShipping(ctx, cartID, code)
}

func (s *stubClient) SetPaymentMethod(context.Context, string, string) error {
	s.t.Fatal("unexpected SetPaymentMethod call")
	return nil
}

func (s *stubClient) PlaceOrder(context.Context, string, string) (*commerce.Order, error) {
	s.t.Fatal("unexpected PlaceOrder call")
	return nil, nil
}

func (s *stubClient) ListOrders(context.Context, string) ([]commerce.Order, error) {
	s.t.Fatal("unexpected ListOrders call")
	return nil, nil
}

func (s *stubClient) GetOrderStatus(ctx context.Context, orderNumber, token string) (*commerce.Order, error) {
	if s.getOrderStatus == nil {
		s.t.Fatal("unexpected GetOrderStatus call")
	}
	return s.getOrderStatus(ctx, orderNumber, token)
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	return coreErr.Code
}

func TestRegistryExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should dispatch a search with decoded arguments", func(t *testing.T) {
		client := &stubClient{t: t}
		client.searchProducts = func(_ context.Context, query string, limit int) (*commerce.SearchResult, error) {
			assert.Equal(t, "camera", query)
			assert.Equal(t, 5, limit)
			return &commerce.SearchResult{Total: 1}, nil
		}
		r := NewRegistry(client)
		out, err := r.Execute(ctx, Invocation{
			Kind: KindSearchProducts,
			Args: json.RawMessage(`{"query":"camera","limit":5}`),
		})
		require.NoError(t, err)
		result, ok := out.(*commerce.SearchResult)
		require.True(t, ok)
		assert.Equal(t, 1, result.Total)
	})

	t.Run("Should thread cart id and quantity into line item calls", func(t *testing.T) {
		client := &stubClient{t: t}
		client.addLineItem = func(_ context.Context, cartID, productID string, quantity int) (*commerce.Cart, error) {
			assert.Equal(t, "cart-1", cartID)
			assert.Equal(t, "prod-9", productID)
			assert.Equal(t, 2, quantity)
			return &commerce.Cart{ID: "cart-1"}, nil
		}
		r := NewRegistry(client)
		_, err := r.Execute(ctx, Invocation{
			Kind:   KindAddCartItem,
			Args:   json.RawMessage(`{"product_id":"prod-9","quantity":2}`),
			CartID: "cart-1",
		})
		require.NoError(t, err)
	})

	t.Run("Should reject unknown tools", func(t *testing.T) {
		r := NewRegistry(&stubClient{t: t})
		_, err := r.Execute(ctx, Invocation{Kind: Kind("teleport_order")})
		assert.Equal(t, ErrCodeToolNotFound, errCode(t, err))
	})

	t.Run("Should reject cart tools without a cart id", func(t *testing.T) {
		r := NewRegistry(&stubClient{t: t})
		_, err := r.Execute(ctx, Invocation{
			Kind: KindAddCartItem,
			Args: json.RawMessage(`{"product_id":"prod-9"}`),
		})
		assert.Equal(t, ErrCodeToolInvalidInput, errCode(t, err))
	})

	t.Run("Should reject malformed argument payloads", func(t *testing.T) {
		r := NewRegistry(&stubClient{t: t})
		_, err := r.Execute(ctx, Invocation{
			Kind: KindSearchProducts,
			Args: json.RawMessage(`{"query":`),
		})
		assert.Equal(t, ErrCodeToolInvalidInput, errCode(t, err))
	})

	t.Run("Should reject arguments violating the schema", func(t *testing.T) {
		r := NewRegistry(&stubClient{t: t})
		_, err := r.Execute(ctx, Invocation{
			Kind: KindGetOrderStatus,
			Args: json.RawMessage(`{"order_number":"12ab"}`),
		})
		assert.Equal(t, ErrCodeToolInvalidInput, errCode(t, err))
	})

	t.Run("Should thread the customer token into order lookups", func(t *testing.T) {
		client := &stubClient{t: t}
		client.getOrderStatus = func(_ context.Context, orderNumber, token string) (*commerce.Order, error) {
			assert.Equal(t, "10000042", orderNumber)
			assert.Equal(t, "tok-1", token)
			return &commerce.Order{OrderNumber: orderNumber, Status: "shipped"}, nil
		}
		r := NewRegistry(client)
		out, err := r.Execute(ctx, Invocation{
			Kind:  KindGetOrderStatus,
			Args:  json.RawMessage(`{"order_number":"10000042"}`),
			Token: "tok-1",
		})
		require.NoError(t, err)
		order, ok := out.(*commerce.Order)
		require.True(t, ok)
		assert.Equal(t, "shipped", order.Status)
	})

	t.Run("Should pass backend failures through unchanged", func(t *testing.T) {
		backendErr := &commerce.APIError{Operation: "set-shipping-method", Status: 500, Body: "boom"}
		client := &stubClient{t: t}
		client.setShipping = func(context.Context, string, string) error { return backendErr }
		r := NewRegistry(client)
		_, err := r.Execute(ctx, Invocation{
			Kind:   KindSetShippingMethod,
			Args:   json.RawMessage(`{"code":"standard-gross"}`),
			CartID: "cart-1",
		})
		var apiErr *commerce.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 500, apiErr.Status)
	})
}
