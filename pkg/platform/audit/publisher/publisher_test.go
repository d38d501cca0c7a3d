package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/requestcontext"
)

type failingStore struct {
	audit.Store
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

var actor = domain.Address{0x0a}

func TestPublisher_EmitStoresEnrichedEvent(t *testing.T) {
	store := audit.NewInMemoryStore(0)
	pub := New(store)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-1"), now)

	require.NoError(t, pub.Emit(ctx, audit.Event{Actor: actor, Action: audit.ActionRoleGranted, CredentialID: 3}))

	events, err := pub.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)

	byCred, err := pub.ListByCredential(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, byCred, 1)
}

func TestPublisher_SyncPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	pub := New(&failingStore{err: boom})
	assert.ErrorIs(t, pub.Emit(context.Background(), audit.Event{Action: "x"}), boom)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := audit.NewInMemoryStore(0)
	pub := New(store, WithAsyncBuffer(64))

	for i := 0; i < 20; i++ {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Actor: actor, Action: "tick"}))
	}
	pub.Close()

	recent, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}

func TestInMemoryStore_BoundedRing(t *testing.T) {
	store := audit.NewInMemoryStore(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(context.Background(), audit.Event{CredentialID: domain.CredentialID(i)}))
	}
	recent, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.EqualValues(t, 5, recent[0].CredentialID)
	assert.EqualValues(t, 3, recent[2].CredentialID)
}
