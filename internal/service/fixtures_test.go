package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"recovr/internal/config"
	"recovr/internal/dto"
	"recovr/internal/kvstore"
	"recovr/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

type fixture struct {
	store    kvstore.Store
	clients  repository.ClientRepository
	payments repository.PaymentRepository
	users    repository.UserRepository
	chats    repository.ChatRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(kvstore.NewMemoryStore())
}

func newFixtureWithStore(store kvstore.Store) *fixture {
	return &fixture{
		store:    store,
		clients:  repository.NewClientRepository(store),
		payments: repository.NewPaymentRepository(store),
		users:    repository.NewUserRepository(store),
		chats:    repository.NewChatRepository(store),
	}
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 8, JWTRefreshHours: 24}
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func enrollShop(t *testing.T, svc ClientService, salesman uuid.UUID, name, cnic, phone string) *dto.ClientResponse {
	t.Helper()
	c, err := svc.Enroll(context.Background(), salesman, dto.ClientDraft{ShopName: name, CNIC: cnic, Phone: phone})
	require.NoError(t, err)
	return c
}
