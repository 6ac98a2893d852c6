package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	traceID := GetTraceID(traced)
	assert.Len(t, traceID, 32)
	assert.Empty(t, GetTraceID(ctx), "parent context is unchanged")

	wrongType := context.WithValue(ctx, TraceIDKey, 123)
	assert.Empty(t, GetTraceID(wrongType))
}

func TestGenerateTraceIDIsUniqueHex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := generateTraceID()
		_, err := hex.DecodeString(id)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate trace id %s", id)
		seen[id] = true
	}
}

func TestFallbackTraceID(t *testing.T) {
	id := generateFallbackTraceID()
	assert.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}
