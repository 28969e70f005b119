package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailure(t *testing.T) {
	f := &Failure{Kind: ErrConflict, Status: 409, Code: "CATEGORY_IN_USE", Message: "in use"}
	wrapped := fmt.Errorf("delete category: %w", f)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrUnauthorized))
	assert.Contains(t, f.Error(), "CATEGORY_IN_USE")

	var got *Failure
	assert.True(t, errors.As(wrapped, &got))
	assert.Equal(t, 409, got.Status)
}

func TestIsDefinitive(t *testing.T) {
	assert.True(t, IsDefinitive(&Failure{Kind: ErrRejected, Status: 400}))
	assert.True(t, IsDefinitive(fmt.Errorf("x: %w", ErrNotFound)))
	assert.False(t, IsDefinitive(fmt.Errorf("x: %w", ErrTransport)))
	assert.False(t, IsDefinitive(ErrUnauthorized))
	assert.False(t, IsDefinitive(nil))
}
