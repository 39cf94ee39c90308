package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"recovr/internal/dto"
	"recovr/internal/kvstore"
	"recovr/internal/model"
	"recovr/internal/repository"
	"recovr/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LedgerService records payment events and is the only writer of client balances.
type LedgerService interface {
	RecordPayment(ctx context.Context, salesmanID uuid.UUID, draft dto.PaymentDraft) (*dto.PaymentResponse, error)
	// History returns the client's payments in log order (oldest first).
	History(ctx context.Context, clientID uuid.UUID) ([]dto.PaymentResponse, error)
	// Ledger returns the client with its payments newest first.
	Ledger(ctx context.Context, clientID uuid.UUID) (*dto.LedgerResponse, error)
}

type ledgerService struct {
	clients    repository.ClientRepository
	payments   repository.PaymentRepository
	dispatcher *worker.Dispatcher
	now        func() time.Time
}

func NewLedgerService(
	clients repository.ClientRepository,
	payments repository.PaymentRepository,
	dispatcher *worker.Dispatcher,
) LedgerService {
	return &ledgerService{
		clients:    clients,
		payments:   payments,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// NextBalance applies one event to a client's running totals.
// Overpayment beyond what is owed is discarded: pending floors at zero and
// no credit is carried forward.
func NextBalance(pending, recovered, invoice, paid decimal.Decimal) (newPending, newRecovered decimal.Decimal) {
	newRecovered = recovered.Add(paid)
	newPending = pending.Add(invoice).Sub(paid)
	if newPending.IsNegative() {
		newPending = decimal.Zero
	}
	return newPending, newRecovered
}

// ── RecordPayment ─────────────────────────────────────────────────────────────
//   1. Validate amounts and client id
//   2. In one store update over clients+payments: load the client, apply
//      NextBalance, append the payment with the post-update snapshot
//   3. (async) enqueue receipt and voice jobs, best-effort

func (s *ledgerService) RecordPayment(ctx context.Context, salesmanID uuid.UUID, draft dto.PaymentDraft) (*dto.PaymentResponse, error) {
	if draft.InvoiceAmount.IsNegative() || draft.PaidAmount.IsNegative() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmounts, ErrNegativeAmount)
	}
	if draft.InvoiceAmount.IsZero() && draft.PaidAmount.IsZero() {
		return nil, ErrInvalidAmounts
	}
	clientID, err := uuid.Parse(draft.ClientID)
	if err != nil {
		return nil, ErrClientNotFound
	}

	paymentType := draft.PaymentType
	if paymentType == "" {
		paymentType = model.PaymentCash
	}

	payment := model.Payment{
		ID:          uuid.New(),
		ClientID:    clientID,
		SalesmanID:  salesmanID,
		TotalBill:   draft.InvoiceAmount,
		PaidAmount:  draft.PaidAmount,
		PaymentType: paymentType,
		ReceiptURL:  draft.ReceiptURL,
		Note:        draft.Note,
		CreatedAt:   s.now().UTC(),
	}
	var shopName string

	collections := []string{repository.ClientsCollection, repository.PaymentsCollection}
	err = s.clients.Store().Update(ctx, collections, func(txn kvstore.Txn) error {
		clients, err := s.clients.ListTx(txn)
		if err != nil {
			return err
		}
		idx := -1
		for i := range clients {
			if clients[i].ID == clientID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrClientNotFound
		}

		c := &clients[idx]
		c.TotalPending, c.TotalRecovered = NextBalance(c.TotalPending, c.TotalRecovered, draft.InvoiceAmount, draft.PaidAmount)
		payment.RemainingAmount = c.TotalPending
		shopName = c.ShopName

		if err := s.clients.SaveAllTx(txn, clients); err != nil {
			return err
		}
		return s.payments.AppendTx(txn, payment)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", payment.ID.String()).
		Str("client_id", clientID.String()).
		Str("paid", payment.PaidAmount.String()).
		Str("remaining", payment.RemainingAmount.String()).
		Msg("payment recorded")

	s.enqueueFollowUps(ctx, &payment, shopName)

	resp := paymentToResponse(&payment)
	return &resp, nil
}

// enqueueFollowUps is fire and forget: the payment is already committed.
func (s *ledgerService) enqueueFollowUps(ctx context.Context, p *model.Payment, shopName string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueReceipt(ctx, worker.ReceiptJobPayload{PaymentID: p.ID.String()}); err != nil {
		log.Warn().Err(err).Str("payment_id", p.ID.String()).Msg("failed to enqueue receipt job")
	}
	if err := s.dispatcher.EnqueueVoice(ctx, worker.VoiceJobPayload{PaymentID: p.ID.String(), Text: confirmationText(p, shopName)}); err != nil {
		log.Warn().Err(err).Str("payment_id", p.ID.String()).Msg("failed to enqueue voice job")
	}
}

// confirmationText is the spoken summary queued for every recorded event.
func confirmationText(p *model.Payment, shopName string) string {
	what := "Recovery"
	if p.PaidAmount.IsZero() {
		what = "Invoice"
	}
	return fmt.Sprintf("%s recorded for %s. Balance is now Rs. %s.", what, shopName, p.RemainingAmount.StringFixed(0))
}

// ── History / Ledger ──────────────────────────────────────────────────────────

func (s *ledgerService) History(ctx context.Context, clientID uuid.UUID) ([]dto.PaymentResponse, error) {
	payments, err := s.payments.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PaymentResponse, len(payments))
	for i := range payments {
		out[i] = paymentToResponse(&payments[i])
	}
	return out, nil
}

func (s *ledgerService) Ledger(ctx context.Context, clientID uuid.UUID) (*dto.LedgerResponse, error) {
	var (
		client   *model.Client
		payments []model.Payment
	)
	// client totals and its payment log come from one snapshot
	err := s.clients.Store().View(ctx, []string{repository.ClientsCollection, repository.PaymentsCollection}, func(txn kvstore.Txn) error {
		clients, err := s.clients.ListTx(txn)
		if err != nil {
			return err
		}
		for i := range clients {
			if clients[i].ID == clientID {
				client = &clients[i]
				break
			}
		}
		if client == nil {
			return ErrClientNotFound
		}
		payments, err = s.payments.ListByClientTx(txn, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	// newest first; equal timestamps keep reverse log order
	for i, j := 0, len(payments)-1; i < j; i, j = i+1, j-1 {
		payments[i], payments[j] = payments[j], payments[i]
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	resp := &dto.LedgerResponse{
		Client:     clientToResponse(client),
		TotalTrade: client.TotalPending.Add(client.TotalRecovered),
		Payments:   make([]dto.PaymentResponse, len(payments)),
	}
	for i := range payments {
		resp.Payments[i] = paymentToResponse(&payments[i])
	}
	return resp, nil
}

func paymentToResponse(p *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:              p.ID.String(),
		ClientID:        p.ClientID.String(),
		SalesmanID:      p.SalesmanID.String(),
		TotalBill:       p.TotalBill,
		PaidAmount:      p.PaidAmount,
		RemainingAmount: p.RemainingAmount,
		PaymentType:     p.PaymentType,
		ReceiptURL:      p.ReceiptURL,
		Note:            p.Note,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339Nano),
	}
}
