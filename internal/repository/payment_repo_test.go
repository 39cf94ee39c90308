package repository

import (
	"context"
	"testing"
	"time"

	"recovr/internal/kvstore"
	"recovr/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepo_AppendAndFilterByClient(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := NewPaymentRepository(store)
	ctx := context.Background()

	clientA, clientB := uuid.New(), uuid.New()
	for i, cid := range []uuid.UUID{clientA, clientB, clientA} {
		p := model.Payment{
			ID:         uuid.New(),
			ClientID:   cid,
			PaidAmount: decimal.NewFromInt(int64(100 * (i + 1))),
			CreatedAt:  time.Now(),
		}
		err := store.Update(ctx, []string{PaymentsCollection}, func(txn kvstore.Txn) error {
			return repo.AppendTx(txn, p)
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forA, err := repo.ListByClient(ctx, clientA)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.True(t, forA[0].PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, forA[1].PaidAmount.Equal(decimal.NewFromInt(300)))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientRepo_EmptyStoreListsNothing(t *testing.T) {
	repo := NewClientRepository(kvstore.NewMemoryStore())
	clients, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
	assert.NotNil(t, clients)
}

func TestClientRepo_CorruptCollectionIsAnError(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.WriteCollection(context.Background(), ClientsCollection, []byte(`{not json`)))

	_, err := NewClientRepository(store).List(context.Background())
	assert.Error(t, err)
}
