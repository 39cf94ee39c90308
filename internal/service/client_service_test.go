package service

import (
	"context"
	"errors"
	"testing"

	"recovr/internal/dto"
	"recovr/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll_NormalizesAndStartsAtZero(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.clients, f.users)

	c, err := svc.Enroll(context.Background(), uuid.New(), dto.ClientDraft{
		ShopName: "  Madina Traders ",
		CNIC:     "35202-1234567-1",
		Phone:    "0300 1234567",
		Location: "Anarkali Bazaar, Lahore",
	})
	require.NoError(t, err)
	assert.Equal(t, "Madina Traders", c.ShopName)
	assert.Equal(t, "3520212345671", c.CNIC)
	assert.Equal(t, "03001234567", c.Phone)
	assert.True(t, c.TotalPending.IsZero())
	assert.True(t, c.TotalRecovered.IsZero())
	assert.NotEmpty(t, c.ID)
}

func TestEnroll_DuplicateCNICNamesExistingShop(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.clients, f.users)
	enrollShop(t, svc, uuid.New(), "Madina Traders", "3520212345671", "03001234567")

	_, err := svc.Enroll(context.Background(), uuid.New(), dto.ClientDraft{
		ShopName: "Other Shop", CNIC: "35202-1234567-1", Phone: "03009999999",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	var dup *DuplicateIdentityError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "Madina Traders", dup.ShopName)

	all, _ := svc.Lookup(context.Background(), dto.ClientFilter{})
	assert.Len(t, all, 1)
}

func TestEnroll_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.clients, f.users)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, uuid.New(), dto.ClientDraft{ShopName: " ab ", CNIC: "3520212345671", Phone: "03001234567"})
	assert.ErrorIs(t, err, ErrShopNameTooShort)

	_, err = svc.Enroll(ctx, uuid.New(), dto.ClientDraft{ShopName: "Valid Shop", CNIC: "35202-12345", Phone: "03001234567"})
	assert.ErrorIs(t, err, ErrInvalidCNIC)
}

func TestLookup_Filters(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.clients, f.users)
	ledger := NewLedgerService(f.clients, f.payments, nil)
	ctx := context.Background()
	ali, bilal := uuid.New(), uuid.New()

	a := enrollShop(t, svc, ali, "Madina Traders", "3520212345671", "03001234567")
	b := enrollShop(t, svc, ali, "Noor Electronics", "3520212345672", "03001234568")
	enrollShop(t, svc, bilal, "Karachi Mart", "4210112345671", "03211234567")
	_, err := ledger.RecordPayment(ctx, ali, dto.PaymentDraft{ClientID: b.ID, InvoiceAmount: d(9000)})
	require.NoError(t, err)
	_, err = ledger.RecordPayment(ctx, ali, dto.PaymentDraft{ClientID: a.ID, InvoiceAmount: d(100)})
	require.NoError(t, err)

	t.Run("no filter lists everyone in insertion order", func(t *testing.T) {
		all, err := svc.Lookup(ctx, dto.ClientFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Madina Traders", all[0].ShopName)
		assert.Equal(t, "Karachi Mart", all[2].ShopName)
	})

	t.Run("salesman portfolio", func(t *testing.T) {
		mine, err := svc.Lookup(ctx, dto.ClientFilter{SalesmanID: ali.String()})
		require.NoError(t, err)
		assert.Len(t, mine, 2)
	})

	t.Run("self-service by cnic or phone", func(t *testing.T) {
		byCNIC, err := svc.Lookup(ctx, dto.ClientFilter{CNIC: "42101-1234567-1"})
		require.NoError(t, err)
		require.Len(t, byCNIC, 1)
		assert.Equal(t, "Karachi Mart", byCNIC[0].ShopName)

		byPhone, err := svc.Lookup(ctx, dto.ClientFilter{CNIC: "0000000000000", Phone: "0300-1234568"})
		require.NoError(t, err)
		require.Len(t, byPhone, 1)
		assert.Equal(t, "Noor Electronics", byPhone[0].ShopName)
	})

	t.Run("search and pending sort", func(t *testing.T) {
		out, err := svc.Lookup(ctx, dto.ClientFilter{SalesmanID: ali.String(), Sort: "pending_desc"})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "Noor Electronics", out[0].ShopName)

		out, err = svc.Lookup(ctx, dto.ClientFilter{Query: "madina"})
		require.NoError(t, err)
		require.Len(t, out, 1)

		out, err = svc.Lookup(ctx, dto.ClientFilter{Query: "4567"})
		require.NoError(t, err)
		assert.Len(t, out, 2) // 03001234567 and 03211234567
	})
}

func TestFindForUser(t *testing.T) {
	f := newFixture(t)
	svc := NewClientService(f.clients, f.users)
	auth := NewAuthService(f.users, testConfig())
	ctx := context.Background()

	enrollShop(t, svc, uuid.New(), "Madina Traders", "3520212345671", "03001234567")
	owner, err := auth.CreateUser(ctx, dto.RegisterRequest{
		Name: "Usman", Phone: "03001234567", Email: "usman@example.com", CNIC: "3520299999999",
		Password: "secret1", Role: model.RoleClient,
	})
	require.NoError(t, err)
	stranger, err := auth.CreateUser(ctx, dto.RegisterRequest{
		Name: "Zara", Phone: "03337654321", Email: "zara@example.com", CNIC: "3520288888888",
		Password: "secret1", Role: model.RoleClient,
	})
	require.NoError(t, err)

	c, err := svc.FindForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Madina Traders", c.ShopName)

	_, err = svc.FindForUser(ctx, stranger.ID)
	assert.ErrorIs(t, err, ErrNoClientProfile)
}
