package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("Should unwrap to the cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewError(cause, "SOMETHING_FAILED", nil)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "SOMETHING_FAILED")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Should match codes through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", NewError(errors.New("boom"), "SOMETHING_FAILED", nil))
		assert.True(t, IsCode(err, "SOMETHING_FAILED"))
		assert.False(t, IsCode(err, "OTHER_CODE"))
		assert.False(t, IsCode(errors.New("plain"), "SOMETHING_FAILED"))
	})
}
