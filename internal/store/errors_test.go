package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
		internal  bool
	}{
		{name: "nil error"},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "ErrSessionNotFound", err: ErrSessionNotFound, notFound: true},
		{
			name:     "wrapped ErrArticleNotFound",
			err:      fmt.Errorf("list articles: %w", ErrArticleNotFound),
			notFound: true,
		},
		{name: "ErrDuplicate", err: ErrDuplicate, duplicate: true},
		{
			name:      "wrapped ErrSessionExists",
			err:       fmt.Errorf("create session: %w", ErrSessionExists),
			duplicate: true,
		},
		{name: "ErrInternal", err: ErrInternal, internal: true},
		{
			name:     "store error wrapping ErrInternal",
			err:      NewStoreError("screening_session", "update", "query failed", ErrInternal),
			internal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.duplicate, IsDuplicateError(tt.err))
			assert.Equal(t, tt.internal, IsInternalError(tt.err))
		})
	}
}

func TestEntityErrorMessages(t *testing.T) {
	t.Parallel() // Enable parallel execution

	assert.Equal(t, "entity not found: screening session", ErrSessionNotFound.Error())
	assert.Equal(t, "entity not found: education article", ErrArticleNotFound.Error())
	assert.Equal(t, "entity already exists: screening session", ErrSessionExists.Error())
	assert.False(t, errors.Is(ErrSessionNotFound, ErrArticleNotFound))
}

func TestStoreError(t *testing.T) {
	t.Parallel() // Enable parallel execution

	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError("screening_session", "create", "database error", originalErr)

	assert.Equal(t,
		"create operation on screening_session failed: database error: database connection failed",
		storeErr.Error())
	assert.True(t, errors.Is(storeErr, originalErr))

	var target *StoreError
	require.True(t, errors.As(fmt.Errorf("outer: %w", storeErr), &target))
	assert.Equal(t, "create", target.Operation)

	bare := NewStoreError("education_article", "list", "bad session id", nil)
	assert.Equal(t, "list operation on education_article failed: bad session id", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
