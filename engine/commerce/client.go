package commerce

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the remote commerce backend. Implementations are pure
// field-mapping CRUD; orchestration logic (chaining, cart resolution, code
// correction) lives in engine/chat.
type Client interface {
	SearchProducts(ctx context.Context, query string, limit int) (*SearchResult, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	SiteConfig(ctx context.Context) (*SiteConfig, error)

	CreateCart(ctx context.Context) (*Cart, error)
	GetCart(ctx context.Context, cartID string) (*Cart, error)
	AddLineItem(ctx context.Context, cartID, productID string, quantity int) (*Cart, error)
	SetDeliveryAddress(ctx context.Context, cartID string, address Address, token string) error
	ListShippingMethods(ctx context.Context, cartID string) ([]ShippingMethod, error)
	SetShippingMethod(ctx context.Context, cartID, code string) error
	SetPaymentMethod(ctx context.Context, cartID, code string) error
	PlaceOrder(ctx context.Context, cartID, token string) (*Order, error)

	ListOrders(ctx context.Context, token string) ([]Order, error)
	GetOrderStatus(ctx context.Context, orderNumber, token string) (*Order, error)
}

type Config struct {
	BaseURL   string
	AccessKey string
	Timeout   time.Duration
}

// restClient maps the Client interface onto the storefront REST API.
type restClient struct {
	http *resty.Client
}

func NewClient(cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.AccessKey != "" {
		http.SetHeader("sw-access-key", cfg.AccessKey)
	}
	return &restClient{http: http}
}

func (c *restClient) request(ctx context.Context, token string) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("sw-context-token", token)
	}
	return req
}

// check converts transport and HTTP-level failures into a single error shape.
func check(operation string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("commerce %s: %w", operation, err)
	}
	if resp.IsError() {
		return &APIError{Operation: operation, Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func (c *restClient) SearchProducts(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	out := &SearchResult{}
	resp, err := c.request(ctx, "").
		SetBody(map[string]any{"search": query, "limit": limit}).
		SetResult(out).
		Post("/search")
	if err := check("search", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	out := &Product{}
	resp, err := c.request(ctx, "").SetResult(out).Get("/product/" + productID)
	if err := check("get-product", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) ListCategories(ctx context.Context) ([]Category, error) {
	out := []Category{}
	resp, err := c.request(ctx, "").SetResult(&out).Get("/category")
	if err := check("list-categories", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) SiteConfig(ctx context.Context) (*SiteConfig, error) {
	out := &SiteConfig{}
	resp, err := c.request(ctx, "").SetResult(out).Get("/context")
	if err := check("site-config", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) CreateCart(ctx context.Context) (*Cart, error) {
	out := &Cart{}
	resp, err := c.request(ctx, "").SetResult(out).Post("/checkout/cart")
	if err := check("create-cart", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	out := &Cart{}
	resp, err := c.request(ctx, cartID).SetResult(out).Get("/checkout/cart")
	if err := check("get-cart", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) AddLineItem(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		quantity = 1
	}
	out := &Cart{}
	resp, err := c.request(ctx, cartID).
		SetBody(map[string]any{
			"items": []map[string]any{{
				"type":         "product",
				"referencedId": productID,
				"quantity":     quantity,
			}},
		}).
		SetResult(out).
		Post("/checkout/cart/line-item")
	if err := check("add-line-item", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) SetDeliveryAddress(ctx context.Context, cartID string, address Address, token string) error {
	req := c.request(ctx, cartID).SetBody(map[string]any{"shippingAddress": address})
	if token != "" {
		req.SetHeader("sw-customer-token", token)
	}
	resp, err := req.Patch("/context/address")
	return check("set-delivery-address", resp, err)
}

func (c *restClient) ListShippingMethods(ctx context.Context, cartID string) ([]ShippingMethod, error) {
	out := []ShippingMethod{}
	resp, err := c.request(ctx, cartID).SetResult(&out).Get("/shipping-method")
	if err := check("list-shipping-methods", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) SetShippingMethod(ctx context.Context, cartID, code string) error {
	resp, err := c.request(ctx, cartID).
		SetBody(map[string]any{"shippingMethod": code}).
		Patch("/context/shipping-method")
	return check("set-shipping-method", resp, err)
}

func (c *restClient) SetPaymentMethod(ctx context.Context, cartID, code string) error {
	resp, err := c.request(ctx, cartID).
		SetBody(map[string]any{"paymentMethod": code}).
		Patch("/context/payment-method")
	return check("set-payment-method", resp, err)
}

func (c *restClient) PlaceOrder(ctx context.Context, cartID, token string) (*Order, error) {
	out := &Order{}
	req := c.request(ctx, cartID).SetResult(out)
	if token != "" {
		req.SetHeader("sw-customer-token", token)
	}
	resp, err := req.Post("/checkout/order")
	if err := check("place-order", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) ListOrders(ctx context.Context, token string) ([]Order, error) {
	out := []Order{}
	req := c.request(ctx, "").SetResult(&out)
	if token != "" {
		req.SetHeader("sw-customer-token", token)
	}
	resp, err := req.Get("/order")
	if err := check("list-orders", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *restClient) GetOrderStatus(ctx context.Context, orderNumber, token string) (*Order, error) {
	out := &Order{}
	req := c.request(ctx, "").SetResult(out)
	if token != "" {
		req.SetHeader("sw-customer-token", token)
	}
	resp, err := req.Get("/order/" + orderNumber)
	if err := check("get-order-status", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}
