package repository

import (
	"context"

	"recovr/internal/kvstore"
	"recovr/internal/model"

	"github.com/google/uuid"
)

type ChatRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatMessage, error)
	Append(ctx context.Context, msgs ...model.ChatMessage) error
}

type chatRepo struct{ store kvstore.Store }

func NewChatRepository(store kvstore.Store) ChatRepository { return &chatRepo{store: store} }

func (r *chatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatMessage, error) {
	all, err := load[model.ChatMessage](ctx, r.store, ChatCollection)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChatMessage, 0)
	for _, m := range all {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *chatRepo) Append(ctx context.Context, msgs ...model.ChatMessage) error {
	return r.store.Update(ctx, []string{ChatCollection}, func(txn kvstore.Txn) error {
		existing, err := loadTx[model.ChatMessage](txn, ChatCollection)
		if err != nil {
			return err
		}
		return saveTx(txn, ChatCollection, append(existing, msgs...))
	})
}
