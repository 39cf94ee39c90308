package repository

import (
	"context"

	"recovr/internal/kvstore"
	"recovr/internal/model"

	"github.com/google/uuid"
)

// PaymentRepository is append-only: there is no Update or Delete.
type PaymentRepository interface {
	List(ctx context.Context) ([]model.Payment, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByClientTx(txn kvstore.Txn, clientID uuid.UUID) ([]model.Payment, error)
	AppendTx(txn kvstore.Txn, p model.Payment) error
}

type paymentRepo struct{ store kvstore.Store }

func NewPaymentRepository(store kvstore.Store) PaymentRepository { return &paymentRepo{store: store} }

func (r *paymentRepo) List(ctx context.Context) ([]model.Payment, error) {
	return load[model.Payment](ctx, r.store, PaymentsCollection)
}

func (r *paymentRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.Payment, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return forClient(all, clientID), nil
}

func (r *paymentRepo) ListByClientTx(txn kvstore.Txn, clientID uuid.UUID) ([]model.Payment, error) {
	all, err := loadTx[model.Payment](txn, PaymentsCollection)
	if err != nil {
		return nil, err
	}
	return forClient(all, clientID), nil
}

func forClient(all []model.Payment, clientID uuid.UUID) []model.Payment {
	out := make([]model.Payment, 0)
	for _, p := range all {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *paymentRepo) AppendTx(txn kvstore.Txn, p model.Payment) error {
	payments, err := loadTx[model.Payment](txn, PaymentsCollection)
	if err != nil {
		return err
	}
	return saveTx(txn, PaymentsCollection, append(payments, p))
}
