package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	svc := &Service{}

	t.Run("Should flag the authentication state", func(t *testing.T) {
		anon := svc.systemPrompt(&Request{CallerID: "c1"})
		assert.Contains(t, anon, "Customer authenticated: false")
		assert.Contains(t, anon, "require the customer to log in")

		authed := svc.systemPrompt(&Request{CallerID: "c1", IsAuthenticated: true})
		assert.Contains(t, authed, "Customer authenticated: true")
		assert.NotContains(t, authed, "require the customer to log in")
	})

	t.Run("Should include the caller identity when present", func(t *testing.T) {
		assert.Contains(t, svc.systemPrompt(&Request{CallerID: "c1"}), "Customer identity: c1")
		assert.NotContains(t, svc.systemPrompt(&Request{}), "Customer identity")
	})

	t.Run("Should embed loaded reference data", func(t *testing.T) {
		loaded := &Service{refData: referenceData{
			categoriesJSON: `[{"id":"cat-1","name":"Cameras"}]`,
			siteJSON:       `{"currency":"EUR"}`,
		}}
		prompt := loaded.systemPrompt(&Request{})
		assert.Contains(t, prompt, `"Cameras"`)
		assert.Contains(t, prompt, `"currency":"EUR"`)

		assert.NotContains(t, svc.systemPrompt(&Request{}), "Category tree")
	})
}
