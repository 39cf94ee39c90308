package infra

import (
	"os"
	"testing"
	"time"

	"recovr/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountInWords(t *testing.T) {
	assert.Equal(t, "Rupees three thousand only", AmountInWords(decimal.NewFromInt(3000)))
	assert.Equal(t, "Rupees five and 50 paisa only", AmountInWords(decimal.RequireFromString("5.50")))
}

func TestGenerateReceiptPDF_WritesFile(t *testing.T) {
	dir := t.TempDir()
	note := "cheque #4411"
	p := &model.Payment{
		ID:              uuid.New(),
		TotalBill:       decimal.NewFromInt(5000),
		PaidAmount:      decimal.NewFromInt(3000),
		RemainingAmount: decimal.NewFromInt(2000),
		PaymentType:     model.PaymentCheque,
		Note:            &note,
		CreatedAt:       time.Now(),
	}
	c := &model.Client{ID: uuid.New(), ShopName: "Madina General Store"}

	path, err := GenerateReceiptPDF(ReceiptInput{Company: "RECOVR", Client: c, Payment: p, Salesman: "Asif"}, dir)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Contains(t, path, ReceiptFileName(p))
}

func TestGenerateReceiptPDF_RequiresPayment(t *testing.T) {
	_, err := GenerateReceiptPDF(ReceiptInput{Company: "RECOVR"}, t.TempDir())
	assert.Error(t, err)
}
