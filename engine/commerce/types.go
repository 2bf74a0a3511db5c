package commerce

// Product is the subset of the catalog entry the agent surfaces.
type Product struct {
	ID          string  `json:"id"`
	Number      string  `json:"productNumber"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Stock       int     `json:"stock"`
	Available   bool    `json:"available"`
}

type SearchResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []Category `json:"children,omitempty"`
}

type Cart struct {
	ID         string     `json:"id"`
	Items      []LineItem `json:"items"`
	TotalNet   float64    `json:"totalNet"`
	TotalGross float64    `json:"totalGross"`
}

type LineItem struct {
	ProductID string  `json:"productId"`
	Label     string  `json:"label"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Street    string `json:"street"`
	Zip       string `json:"zipcode"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

type ShippingMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type PaymentMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Order struct {
	OrderNumber string  `json:"orderNumber"`
	Status      string  `json:"status"`
	TotalGross  float64 `json:"totalGross"`
	PlacedAt    string  `json:"placedAt,omitempty"`
}

// SiteConfig is the storefront reference data embedded into the system
// prompt once at startup.
type SiteConfig struct {
	ShopName string `json:"shopName"`
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}
