package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recovr/internal/kvstore"
	"recovr/internal/model"
	"recovr/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct{ uploaded []string }

func (f *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	f.uploaded = append(f.uploaded, localPath)
	return "https://receipts.example/" + filepath.Base(localPath), nil
}

type seeded struct {
	payments repository.PaymentRepository
	clients  repository.ClientRepository
	users    repository.UserRepository
	payment  model.Payment
}

func seedLedger(t *testing.T, salesmanEmail string) seeded {
	t.Helper()
	store := kvstore.NewMemoryStore()
	s := seeded{
		payments: repository.NewPaymentRepository(store),
		clients:  repository.NewClientRepository(store),
		users:    repository.NewUserRepository(store),
	}
	salesman := model.User{ID: uuid.New(), Name: "Ali Raza", Email: salesmanEmail, Role: model.RoleSalesman}
	client := model.Client{
		ID: uuid.New(), ShopName: "Madina Traders", Phone: "03001234567", CNIC: "3520212345671",
		SalesmanID: salesman.ID, TotalPending: decimal.NewFromInt(2000), TotalRecovered: decimal.NewFromInt(3000),
	}
	s.payment = model.Payment{
		ID: uuid.New(), ClientID: client.ID, SalesmanID: salesman.ID,
		TotalBill: decimal.NewFromInt(5000), PaidAmount: decimal.NewFromInt(3000),
		RemainingAmount: decimal.NewFromInt(2000), PaymentType: model.PaymentCash,
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	collections := []string{repository.UsersCollection, repository.ClientsCollection, repository.PaymentsCollection}
	err := store.Update(context.Background(), collections, func(txn kvstore.Txn) error {
		if err := s.users.SaveAllTx(txn, []model.User{salesman}); err != nil {
			return err
		}
		if err := s.clients.SaveAllTx(txn, []model.Client{client}); err != nil {
			return err
		}
		return s.payments.AppendTx(txn, s.payment)
	})
	require.NoError(t, err)
	return s
}

func TestReceiptWorker_RendersUploadsAndQueuesEmail(t *testing.T) {
	rdb, mr := newTestRedis(t)
	s := seedLedger(t, "ali@recovr.pk")
	dir := t.TempDir()
	up := &fakeUploader{}
	w := NewReceiptWorker(s.payments, s.clients, s.users, up, NewDispatcher(rdb), dir, "RECOVR")

	raw, _ := json.Marshal(ReceiptJobPayload{PaymentID: s.payment.ID.String()})
	require.NoError(t, w.Process(context.Background(), raw))

	pdfPath := filepath.Join(dir, "receipt_"+s.payment.ID.String()+".pdf")
	_, err := os.Stat(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, []string{pdfPath}, up.uploaded)

	job := popJob(t, mr, QueueEmail)
	assert.Equal(t, JobEmail, job.Type)
	var email EmailJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &email))
	assert.Equal(t, "ali@recovr.pk", email.ToEmail)
	assert.Equal(t, pdfPath, email.PDFPath)
	assert.Contains(t, email.Body, "Madina Traders")
	assert.Contains(t, email.Body, "Receipt: https://receipts.example/")
}

func TestReceiptWorker_NoEmailWithoutAddress(t *testing.T) {
	rdb, mr := newTestRedis(t)
	s := seedLedger(t, "")
	w := NewReceiptWorker(s.payments, s.clients, s.users, nil, NewDispatcher(rdb), t.TempDir(), "RECOVR")

	raw, _ := json.Marshal(ReceiptJobPayload{PaymentID: s.payment.ID.String()})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.False(t, mr.Exists(QueueEmail))
}

func TestReceiptWorker_UnknownPaymentIsRetried(t *testing.T) {
	s := seedLedger(t, "")
	w := NewReceiptWorker(s.payments, s.clients, s.users, nil, nil, t.TempDir(), "RECOVR")

	raw, _ := json.Marshal(ReceiptJobPayload{PaymentID: uuid.NewString()})
	assert.Error(t, w.Process(context.Background(), raw))
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"payment_id":"nope"}`)))
}

type fakeMailer struct {
	to  string
	err error
}

func (f *fakeMailer) SendReceipt(to, _, _, _ string) error {
	f.to = to
	return f.err
}

func TestEmailWorker(t *testing.T) {
	m := &fakeMailer{}
	w := NewEmailWorker(m)
	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "ali@recovr.pk", Subject: "s", Body: "b"})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Equal(t, "ali@recovr.pk", m.to)

	m.err = assert.AnError
	assert.ErrorIs(t, w.Process(context.Background(), raw), assert.AnError)

	empty, _ := json.Marshal(EmailJobPayload{})
	assert.NoError(t, w.Process(context.Background(), empty))
}
