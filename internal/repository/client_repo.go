package repository

import (
	"context"

	"recovr/internal/kvstore"
	"recovr/internal/model"

	"github.com/google/uuid"
)

type ClientRepository interface {
	List(ctx context.Context) ([]model.Client, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	ListTx(txn kvstore.Txn) ([]model.Client, error)
	SaveAllTx(txn kvstore.Txn, clients []model.Client) error
	Store() kvstore.Store // exposes the store for multi-collection updates in the service layer
}

type clientRepo struct{ store kvstore.Store }

func NewClientRepository(store kvstore.Store) ClientRepository { return &clientRepo{store: store} }

func (r *clientRepo) Store() kvstore.Store { return r.store }

func (r *clientRepo) List(ctx context.Context) ([]model.Client, error) {
	return load[model.Client](ctx, r.store, ClientsCollection)
}

func (r *clientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ID == id {
			return &clients[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *clientRepo) ListTx(txn kvstore.Txn) ([]model.Client, error) {
	return loadTx[model.Client](txn, ClientsCollection)
}

func (r *clientRepo) SaveAllTx(txn kvstore.Txn, clients []model.Client) error {
	return saveTx(txn, ClientsCollection, clients)
}
