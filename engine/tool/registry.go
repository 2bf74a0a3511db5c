package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/engine/core"
)

const (
	ErrCodeToolNotFound     = "TOOL_NOT_FOUND"
	ErrCodeToolInvalidInput = "TOOL_INVALID_INPUT"
)

// Invocation is one tool call ready for execution. CartID and Token are
// threaded by the orchestrator, never by the completion provider.
type Invocation struct {
	Kind   Kind
	Args   json.RawMessage
	CartID string
	Token  string
}

// Registry dispatches invocations to the commerce backend through a closed,
// typed table. It knows nothing about chaining or cart lifecycle.
type Registry struct {
	client commerce.Client
}

func NewRegistry(client commerce.Client) *Registry {
	return &Registry{client: client}
}

// Execute validates the invocation's arguments and runs the mapped backend
// operation. Business failures return as errors for the gateway to encode.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (any, error) {
	def, ok := catalog[inv.Kind]
	if !ok {
		return nil, core.NewError(
			fmt.Errorf("unknown tool %q", inv.Kind),
			ErrCodeToolNotFound,
			map[string]any{"tool": string(inv.Kind)},
		)
	}
	if def.NeedsCart && inv.CartID == "" {
		return nil, core.NewError(
			fmt.Errorf("tool %q requires a cart id", inv.Kind),
			ErrCodeToolInvalidInput,
			map[string]any{"tool": string(inv.Kind)},
		)
	}
	switch inv.Kind {
	case KindSearchProducts:
		args := SearchProductsArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		return r.client.SearchProducts(ctx, args.Query, args.Limit)
	case KindGetProduct:
		args := GetProductArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		return r.client.GetProduct(ctx, args.ProductID)
	case KindListCategories:
		return r.client.ListCategories(ctx)
	case KindCreateCart:
		return r.client.CreateCart(ctx)
	case KindGetCart:
		return r.client.GetCart(ctx, inv.CartID)
	case KindAddCartItem:
		args := AddCartItemArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		return r.client.AddLineItem(ctx, inv.CartID, args.ProductID, args.Quantity)
	case KindSetDeliveryAddress:
		args := SetDeliveryAddressArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		address := commerce.Address{
			FirstName: args.FirstName,
			LastName:  args.LastName,
			Street:    args.Street,
			Zip:       args.Zipcode,
			City:      args.City,
			Country:   args.Country,
		}
		if err := r.client.SetDeliveryAddress(ctx, inv.CartID, address, inv.Token); err != nil {
			return nil, err
		}
		return map[string]any{"status": "address set"}, nil
	case KindListShippingOptions:
		return r.client.ListShippingMethods(ctx, inv.CartID)
	case KindSetShippingMethod:
		args := SetShippingMethodArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		if err := r.client.SetShippingMethod(ctx, inv.CartID, args.Code); err != nil {
			return nil, err
		}
		return map[string]any{"status": "shipping method set", "code": args.Code}, nil
	case KindSetPaymentMethod:
		args := SetPaymentMethodArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		if err := r.client.SetPaymentMethod(ctx, inv.CartID, args.Code); err != nil {
			return nil, err
		}
		return map[string]any{"status": "payment method set", "code": args.Code}, nil
	case KindPlaceOrder:
		return r.client.PlaceOrder(ctx, inv.CartID, inv.Token)
	case KindListOrders:
		return r.client.ListOrders(ctx, inv.Token)
	case KindGetOrderStatus:
		args := GetOrderStatusArgs{}
		if err := r.decode(inv, &args); err != nil {
			return nil, err
		}
		return r.client.GetOrderStatus(ctx, args.OrderNumber, inv.Token)
	default:
		return nil, core.NewError(
			fmt.Errorf("tool %q has no handler", inv.Kind),
			ErrCodeToolNotFound,
			map[string]any{"tool": string(inv.Kind)},
		)
	}
}

func (r *Registry) decode(inv Invocation, out any) error {
	if len(inv.Args) > 0 {
		if err := json.Unmarshal(inv.Args, out); err != nil {
			return core.NewError(
				fmt.Errorf("malformed tool arguments: %w", err),
				ErrCodeToolInvalidInput,
				map[string]any{"tool": string(inv.Kind)},
			)
		}
	}
	if err := validate.Struct(out); err != nil {
		return core.NewError(
			fmt.Errorf("invalid tool arguments: %w", err),
			ErrCodeToolInvalidInput,
			map[string]any{"tool": string(inv.Kind)},
		)
	}
	return nil
}
