package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumcred/pkg/domain"
	"quorumcred/pkg/testutil"
)

func TestInMemoryStore_AddRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	added, err := s.Add(ctx, domain.CapabilityValidator, testutil.Validator1)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.Add(ctx, domain.CapabilityValidator, testutil.Validator1)
	require.NoError(t, err)
	assert.False(t, added)

	has, _ := s.Has(ctx, domain.CapabilityValidator, testutil.Validator1)
	assert.True(t, has)
	has, _ = s.Has(ctx, domain.CapabilityIssuer, testutil.Validator1)
	assert.False(t, has, "capabilities are independent sets")

	removed, err := s.Remove(ctx, domain.CapabilityValidator, testutil.Validator1)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Remove(ctx, domain.CapabilityValidator, testutil.Validator1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestInMemoryStore_MembersSortedAndCounted(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	for _, a := range []domain.Address{testutil.Validator3, testutil.Validator1, testutil.Validator2} {
		_, err := s.Add(ctx, domain.CapabilityValidator, a)
		require.NoError(t, err)
	}

	members, err := s.Members(ctx, domain.CapabilityValidator)
	require.NoError(t, err)
	assert.Equal(t, []domain.Address{testutil.Validator1, testutil.Validator2, testutil.Validator3}, members)

	n, err := s.Count(ctx, domain.CapabilityValidator)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	empty, err := s.Members(ctx, domain.CapabilityIssuer)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
