package worker

// receipt_worker.go
// Renders the PDF receipt for a recorded payment, optionally copies it to
// the object store and queues an email to the salesman who collected it.

import (
	"context"
	"encoding/json"
	"fmt"

	"recovr/internal/infra"
	"recovr/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	PaymentID string `json:"payment_id"`
}

// ReceiptStore uploads a rendered receipt and returns its public URL.
type ReceiptStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type ReceiptWorker struct {
	payments    repository.PaymentRepository
	clients     repository.ClientRepository
	users       repository.UserRepository
	store       ReceiptStore // optional
	dispatcher  *Dispatcher  // optional, email is skipped without it
	storagePath string
	company     string
}

func NewReceiptWorker(
	payments repository.PaymentRepository,
	clients repository.ClientRepository,
	users repository.UserRepository,
	store ReceiptStore,
	dispatcher *Dispatcher,
	storagePath string,
	company string,
) *ReceiptWorker {
	return &ReceiptWorker{
		payments:    payments,
		clients:     clients,
		users:       users,
		store:       store,
		dispatcher:  dispatcher,
		storagePath: storagePath,
		company:     company,
	}
}

// Process handles a single receipt job:
//  1. Load the payment and its client
//  2. Render the PDF
//  3. Upload it when an object store is configured
//  4. Queue an email to the salesman when they have an address
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// a malformed payload will never succeed; do not retry it
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return nil
	}
	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		log.Error().Str("payment_id", payload.PaymentID).Msg("receipt_worker: invalid payment_id")
		return nil
	}

	payment, err := w.payments.FindByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	client, err := w.clients.FindByID(ctx, payment.ClientID)
	if err != nil {
		return fmt.Errorf("load client %s: %w", payment.ClientID, err)
	}

	salesmanName, salesmanEmail := "", ""
	if u, err := w.users.FindByID(ctx, payment.SalesmanID); err == nil {
		salesmanName, salesmanEmail = u.Name, u.Email
	}

	pdfPath, err := infra.GenerateReceiptPDF(infra.ReceiptInput{
		Company:  w.company,
		Client:   client,
		Payment:  payment,
		Salesman: salesmanName,
	}, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Str("payment_id", payload.PaymentID).Msg("receipt_worker: PDF generated")

	link := ""
	if w.store != nil {
		link, err = w.store.Upload(ctx, pdfPath)
		if err != nil {
			return err
		}
		log.Info().Str("url", link).Str("payment_id", payload.PaymentID).Msg("receipt_worker: receipt uploaded")
	}

	if w.dispatcher == nil || salesmanEmail == "" {
		return nil
	}
	body := fmt.Sprintf("Recovery of Rs. %s recorded for %s.\nRemaining balance: Rs. %s.",
		payment.PaidAmount.StringFixed(2), client.ShopName, payment.RemainingAmount.StringFixed(2))
	if link != "" {
		body += "\nReceipt: " + link
	}
	emailJob := EmailJobPayload{
		ToEmail: salesmanEmail,
		Subject: fmt.Sprintf("%s receipt for %s", w.company, client.ShopName),
		Body:    body,
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", salesmanEmail).Msg("receipt_worker: failed to enqueue email")
	}
	return nil
}
