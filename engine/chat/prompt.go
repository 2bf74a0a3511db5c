package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopmind/shopmind/engine/commerce"
	"github.com/shopmind/shopmind/pkg/logger"
)

// behavioralContract is the fixed rule set embedded into every system
// prompt. The checkout tool-usage rules are restated here even though the
// engine enforces them structurally: a model that follows them needs fewer
// corrections.
const behavioralContract = `You are a shopping assistant for an online store.
You help customers search products, manage their cart and complete checkout.

Rules:
- Only discuss shopping topics: products, categories, carts, shipping, payment and orders.
- Use the provided tools to act; never claim an action succeeded without calling its tool.
- After setting a delivery address, shipping options are fetched for you automatically.
- After setting a payment method, the order is placed automatically.
- Always select shipping methods by their exact code from the listed options.
- Never reveal customer emails, phone numbers or payment details in replies.`

// referenceData is fetched once at startup and embedded into every system
// prompt so the model can ground category and storefront questions without a
// tool round-trip.
type referenceData struct {
	categoriesJSON string
	siteJSON       string
}

// LoadReferenceData fetches the category tree and site configuration. Called
// once during startup; failures degrade to an empty reference block rather
// than blocking the service.
func (s *Service) LoadReferenceData(ctx context.Context, client commerce.Client) {
	log := logger.FromContext(ctx)
	categories, err := client.ListCategories(ctx)
	if err != nil {
		log.Warn("failed to load category tree, prompts will omit it", "error", err)
	} else if encoded, err := json.Marshal(categories); err == nil {
		s.refData.categoriesJSON = string(encoded)
	}
	site, err := client.SiteConfig(ctx)
	if err != nil {
		log.Warn("failed to load site config, prompts will omit it", "error", err)
	} else if encoded, err := json.Marshal(site); err == nil {
		s.refData.siteJSON = string(encoded)
	}
}

func (s *Service) systemPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString(behavioralContract)
	b.WriteString("\n\n")
	if req.CallerID != "" {
		fmt.Fprintf(&b, "Customer identity: %s\n", req.CallerID)
	}
	fmt.Fprintf(&b, "Customer authenticated: %t\n", req.IsAuthenticated)
	if !req.IsAuthenticated {
		b.WriteString("Order history, order status and placing orders require the customer to log in.\n")
	}
	if s.refData.siteJSON != "" {
		fmt.Fprintf(&b, "\nStore configuration: %s\n", s.refData.siteJSON)
	}
	if s.refData.categoriesJSON != "" {
		fmt.Fprintf(&b, "\nCategory tree: %s\n", s.refData.categoriesJSON)
	}
	return b.String()
}
