package tool

import (
	"github.com/go-playground/validator/v10"
)

// Argument structs are validated at the boundary; the completion provider's
// JSON is never trusted to match the declared schema.

type SearchProductsArgs struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"min=0,max=50"`
}

type GetProductArgs struct {
	ProductID string `json:"product_id" validate:"required"`
}

type AddCartItemArgs struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0,max=100"`
}

type SetDeliveryAddressArgs struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Street    string `json:"street" validate:"required"`
	Zipcode   string `json:"zipcode" validate:"required"`
	City      string `json:"city" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

type SetShippingMethodArgs struct {
	Code string `json:"code" validate:"required"`
}

type SetPaymentMethodArgs struct {
	Code string `json:"code" validate:"required"`
}

type GetOrderStatusArgs struct {
	OrderNumber string `json:"order_number" validate:"required,len=8,numeric"`
}

var validate = validator.New()
