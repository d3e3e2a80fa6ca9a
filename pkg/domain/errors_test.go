package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewInvalidTransitionError("approve", "approved"))

	assert.True(t, IsInvalidTransition(wrapped))
	assert.False(t, IsInvalidState(wrapped))
	assert.False(t, IsForbidden(wrapped))
	assert.Equal(t, "service: cannot approve from state approved", wrapped.Error())
}

func TestNotFoundError_Message(t *testing.T) {
	err := NewNotFoundError("Booking", "abc")
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "Booking not found: abc")
}

func TestPaginatedResult_TotalPages(t *testing.T) {
	assert.Equal(t, 3, NewPaginatedResult([]int{1}, 41, 1, 20).TotalPages())
	assert.Equal(t, 0, NewPaginatedResult([]int{}, 0, 1, 20).TotalPages())
	assert.Equal(t, 0, NewPaginatedResult[int](nil, 5, 1, 0).TotalPages())
	assert.NotNil(t, NewPaginatedResult[int](nil, 0, 1, 20).Items)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 20))
	assert.Equal(t, 40, Offset(3, 20))
	assert.Equal(t, 0, Offset(0, 20))
}
