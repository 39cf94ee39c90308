package repository

import (
	"context"

	"recovr/internal/kvstore"
	"recovr/internal/model"

	"github.com/google/uuid"
)

type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListTx(txn kvstore.Txn) ([]model.User, error)
	SaveAllTx(txn kvstore.Txn, users []model.User) error
	Store() kvstore.Store
}

type userRepo struct{ store kvstore.Store }

func NewUserRepository(store kvstore.Store) UserRepository { return &userRepo{store: store} }

func (r *userRepo) Store() kvstore.Store { return r.store }

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	return load[model.User](ctx, r.store, UsersCollection)
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepo) ListTx(txn kvstore.Txn) ([]model.User, error) {
	return loadTx[model.User](txn, UsersCollection)
}

func (r *userRepo) SaveAllTx(txn kvstore.Txn, users []model.User) error {
	return saveTx(txn, UsersCollection, users)
}
