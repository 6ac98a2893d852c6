package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("some error"), expected: false},
		{name: "ErrNotFound", err: ErrNotFound, expected: true},
		{name: "ErrTaskNotFound", err: ErrTaskNotFound, expected: true},
		{
			name:     "wrapped ErrTaskNotFound",
			err:      fmt.Errorf("failed to update task 7: %w", ErrTaskNotFound),
			expected: true,
		},
		{name: "unavailable is not not-found", err: ErrUnavailable, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsNotFoundError(tc.err))
		})
	}
}

func TestIsUnavailableError(t *testing.T) {
	assert.True(t, IsUnavailableError(ErrUnavailable))
	assert.True(t, IsUnavailableError(fmt.Errorf("ping: %w", ErrUnavailable)))
	assert.False(t, IsUnavailableError(ErrTaskNotFound))
	assert.False(t, IsUnavailableError(nil))
}

func TestStoreError(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrUnavailable)
	err := NewStoreError("task", "claim", cause)

	assert.Equal(t, "claim task: storage unavailable: connection refused", err.Error())
	assert.True(t, errors.Is(err, ErrUnavailable))

	var storeErr *StoreError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &storeErr))
	assert.Equal(t, "task", storeErr.Entity)
}

func TestTaskUpdateIsEmpty(t *testing.T) {
	assert.True(t, TaskUpdate{}.IsEmpty())

	line := "progress"
	assert.False(t, TaskUpdate{AppendLog: &line}.IsEmpty())
}
