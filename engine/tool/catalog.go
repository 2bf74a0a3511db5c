package tool

// Kind is the closed enumeration of remote tools. Dispatch is a typed table
// over these variants; unknown names are rejected at the boundary.
type Kind string

const (
	KindSearchProducts      Kind = "search_products"
	KindGetProduct          Kind = "get_product"
	KindListCategories      Kind = "list_categories"
	KindCreateCart          Kind = "create_cart"
	KindGetCart             Kind = "get_cart"
	KindAddCartItem         Kind = "add_cart_item"
	KindSetDeliveryAddress  Kind = "set_delivery_address"
	KindListShippingOptions Kind = "list_shipping_options"
	KindSetShippingMethod   Kind = "set_shipping_method"
	KindSetPaymentMethod    Kind = "set_payment_method"
	KindPlaceOrder          Kind = "place_order"
	KindListOrders          Kind = "list_orders"
	KindGetOrderStatus      Kind = "get_order_status"
)

// Definition describes one tool to the completion provider and to the
// gateway. Cacheable marks read-only operations the gateway may serve from
// the TTL cache; NeedsCart marks cart-mutating operations whose cart id the
// orchestrator resolves (or creates) before execution.
type Definition struct {
	Kind         Kind
	Description  string
	Parameters   map[string]any
	AuthRequired bool
	Cacheable    bool
	NeedsCart    bool
	// Exposed marks tools offered to the model. create_cart stays
	// internal: carts are created transparently by the orchestrator.
	Exposed bool
}

func (d Definition) Name() string {
	return string(d.Kind)
}

var catalog = map[Kind]Definition{
	KindSearchProducts: {
		Kind:        KindSearchProducts,
		Description: "Search the product catalog by free-text query. Returns matching products with id, name, price and availability.",
		Parameters: objectSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Free-text search query"},
			"limit": map[string]any{"type": "integer", "description": "Maximum number of results", "default": 10},
		}, "query"),
		Cacheable: true,
		Exposed:   true,
	},
	KindGetProduct: {
		Kind:        KindGetProduct,
		Description: "Fetch full details for a single product by its id or product number.",
		Parameters: objectSchema(map[string]any{
			"product_id": map[string]any{"type": "string", "description": "Product id or product number"},
		}, "product_id"),
		Cacheable: true,
		Exposed:   true,
	},
	KindListCategories: {
		Kind:        KindListCategories,
		Description: "List the store's category tree.",
		Parameters:  objectSchema(map[string]any{}),
		Cacheable:   true,
		Exposed:     true,
	},
	KindCreateCart: {
		Kind:        KindCreateCart,
		Description: "Create a new shopping cart.",
		Parameters:  objectSchema(map[string]any{}),
		NeedsCart:   false,
	},
	KindGetCart: {
		Kind:        KindGetCart,
		Description: "Show the current cart contents and totals.",
		Parameters:  objectSchema(map[string]any{}),
		NeedsCart:   true,
		Exposed:     true,
	},
	KindAddCartItem: {
		Kind:        KindAddCartItem,
		Description: "Add a product to the shopping cart.",
		Parameters: objectSchema(map[string]any{
			"product_id": map[string]any{"type": "string", "description": "Product id to add"},
			"quantity":   map[string]any{"type": "integer", "description": "Quantity to add", "default": 1},
		}, "product_id"),
		NeedsCart: true,
		Exposed:   true,
	},
	KindSetDeliveryAddress: {
		Kind:        KindSetDeliveryAddress,
		Description: "Set the delivery address on the current cart. Shipping options are fetched automatically afterwards.",
		Parameters: objectSchema(map[string]any{
			"first_name": map[string]any{"type": "string"},
			"last_name":  map[string]any{"type": "string"},
			"street":     map[string]any{"type": "string"},
			"zipcode":    map[string]any{"type": "string"},
			"city":       map[string]any{"type": "string"},
			"country":    map[string]any{"type": "string"},
		}, "first_name", "last_name", "street", "zipcode", "city", "country"),
		NeedsCart: true,
		Exposed:   true,
	},
	KindListShippingOptions: {
		Kind:        KindListShippingOptions,
		Description: "List the shipping options available for the current cart.",
		Parameters:  objectSchema(map[string]any{}),
		NeedsCart:   true,
		Exposed:     true,
	},
	KindSetShippingMethod: {
		Kind:        KindSetShippingMethod,
		Description: "Select a shipping method for the current cart by its code from the listed options.",
		Parameters: objectSchema(map[string]any{
			"code": map[string]any{"type": "string", "description": "Shipping method code"},
		}, "code"),
		NeedsCart: true,
		Exposed:   true,
	},
	KindSetPaymentMethod: {
		Kind:        KindSetPaymentMethod,
		Description: "Select a payment method for the current cart by its code. The order is placed automatically afterwards.",
		Parameters: objectSchema(map[string]any{
			"code": map[string]any{"type": "string", "description": "Payment method code"},
		}, "code"),
		NeedsCart: true,
		Exposed:   true,
	},
	KindPlaceOrder: {
		Kind:         KindPlaceOrder,
		Description:  "Convert the current cart into an order.",
		Parameters:   objectSchema(map[string]any{}),
		AuthRequired: true,
		NeedsCart:    true,
		Exposed:      true,
	},
	KindListOrders: {
		Kind:         KindListOrders,
		Description:  "List the customer's past orders.",
		Parameters:   objectSchema(map[string]any{}),
		AuthRequired: true,
		Exposed:      true,
	},
	KindGetOrderStatus: {
		Kind:        KindGetOrderStatus,
		Description: "Look up the status of an order by its 8-digit order number.",
		Parameters: objectSchema(map[string]any{
			"order_number": map[string]any{"type": "string", "description": "8-digit order number"},
		}, "order_number"),
		AuthRequired: true,
		Exposed:      true,
	},
}

// Lookup resolves a tool name to its definition.
func Lookup(name string) (Definition, bool) {
	def, ok := catalog[Kind(name)]
	return def, ok
}

// Definitions returns the model-facing catalog: the base set plus, for
// authenticated callers, the order tools. Authentication is taken from the
// request flag, never inferred from conversation content.
func Definitions(authenticated bool) []Definition {
	ordered := []Kind{
		KindSearchProducts, KindGetProduct, KindListCategories,
		KindGetCart, KindAddCartItem, KindSetDeliveryAddress,
		KindListShippingOptions, KindSetShippingMethod, KindSetPaymentMethod,
		KindPlaceOrder, KindListOrders, KindGetOrderStatus,
	}
	defs := make([]Definition, 0, len(ordered))
	for _, kind := range ordered {
		def := catalog[kind]
		if !def.Exposed {
			continue
		}
		if def.AuthRequired && !authenticated {
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
