package e

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := NewMatchError(KindFetchFailed, "HTTPFetcher.Acquire", context.DeadlineExceeded, map[string]any{"attempts": 3})
	wrapped := Wrap("MatchUseCase.FindSimilar", err)

	assert.Equal(t, KindFetchFailed, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrFetchFailed))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.False(t, errors.Is(wrapped, ErrUnreadableImage))
}

func TestKindOf_BareSentinel(t *testing.T) {
	assert.Equal(t, KindEmptyCatalog, KindOf(fmt.Errorf("snapshot: %w", ErrEmptyCatalog)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestMatchError_Message(t *testing.T) {
	err := NewMatchError(KindDimensionMismatch, "Rank", nil, map[string]any{"want": 4, "got": 3})

	assert.Equal(t, "Rank: embedding dimension mismatch [got=3 want=4]", err.Error())
}

func TestKind_CodesAreDistinct(t *testing.T) {
	kinds := []Kind{
		KindInvalidInput,
		KindFetchFailed,
		KindUnreadableImage,
		KindEmptyCatalog,
		KindDimensionMismatch,
		KindDegenerateEmbedding,
	}

	seen := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		code := k.Code()
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = k
	}
	assert.Equal(t, "INTERNAL", KindUnknown.Code())
}
