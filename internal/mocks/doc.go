// Package mocks provides centralized mock implementations for testing.
//
// The store mocks keep their data in memory and behave like the PostgreSQL
// stores (ordering, timestamps, not-found errors), so service and handler
// tests exercise real semantics. Every method can be overridden through its
// Fn field to inject failures:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.ClaimNextFn = func(ctx context.Context) (*domain.Task, error) {
//	    return nil, store.ErrUnavailable
//	}
//
// The Testify* types wrap testify/mock for tests that assert on exact calls.
package mocks
