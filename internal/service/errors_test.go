package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNewServiceError(t *testing.T) {
	assert.NoError(t, NewServiceError("op", "msg", nil))

	assert.Same(t, domain.ErrEmptyTitle, NewServiceError("add_task", "msg", domain.ErrEmptyTitle))
	assert.Same(t, store.ErrTaskNotFound, NewServiceError("get_task", "msg", store.ErrTaskNotFound))

	cause := fmt.Errorf("list task: %w", store.ErrUnavailable)
	err := NewServiceError("list_tasks", "failed to list tasks", cause)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, "list_tasks failed: failed to list tasks: list task: storage unavailable", err.Error())

	var svcErr *ServiceError
	assert.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "list_tasks failed: no cause", (&ServiceError{Operation: "list_tasks", Message: "no cause"}).Error())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrEmptyTitle, KindInvalidInput},
		{fmt.Errorf("update: %w", domain.ErrInvalidStatus), KindInvalidInput},
		{store.NewStoreError("task", "create", store.ErrInvalidEntity), KindInvalidInput},
		{store.ErrTaskNotFound, KindNotFound},
		{NewServiceError("claim_task", "failed", store.NewStoreError("task", "claim", store.ErrUnavailable)), KindStorageUnavailable},
		{errors.New("boom"), KindInternal},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorKind(tc.err), "%v", tc.err)
	}
}
