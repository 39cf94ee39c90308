package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"recovr/internal/dto"
	"recovr/internal/kvstore"
	"recovr/internal/repository"
	"recovr/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newLedger(f *fixture, dispatcher *worker.Dispatcher) (*ledgerService, ClientService) {
	l := NewLedgerService(f.clients, f.payments, dispatcher).(*ledgerService)
	l.now = steppingClock()
	return l, NewClientService(f.clients, f.users)
}

func pay(invoice, paid int64, clientID string) dto.PaymentDraft {
	return dto.PaymentDraft{ClientID: clientID, InvoiceAmount: d(invoice), PaidAmount: d(paid)}
}

func TestNextBalance(t *testing.T) {
	cases := []struct {
		name                         string
		pending, recovered, inv, pay int64
		wantPending, wantRecovered   int64
	}{
		{"invoice only", 0, 0, 5000, 0, 5000, 0},
		{"partial recovery", 5000, 0, 0, 3000, 2000, 3000},
		{"invoice and recovery", 2000, 3000, 1000, 1500, 1500, 4500},
		{"overpayment floors at zero", 2000, 3000, 0, 5000, 0, 8000},
		{"overpayment with invoice", 100, 0, 100, 1000, 0, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, r := NextBalance(d(tc.pending), d(tc.recovered), d(tc.inv), d(tc.pay))
			assert.True(t, p.Equal(d(tc.wantPending)), "pending %s", p)
			assert.True(t, r.Equal(d(tc.wantRecovered)), "recovered %s", r)
		})
	}
}

func TestRecordPayment_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Madina Traders", "35202-1234567-1", "0300-1234567")

	steps := []struct {
		invoice, paid              int64
		wantPending, wantRecovered int64
	}{
		{5000, 0, 5000, 0},
		{0, 3000, 2000, 3000},
		{0, 5000, 0, 8000},
	}
	for _, st := range steps {
		p, err := ledger.RecordPayment(ctx, salesman, pay(st.invoice, st.paid, shop.ID))
		require.NoError(t, err)
		assert.True(t, p.RemainingAmount.Equal(d(st.wantPending)))

		c, err := registry.Get(ctx, uuid.MustParse(shop.ID))
		require.NoError(t, err)
		assert.True(t, c.TotalPending.Equal(d(st.wantPending)), "pending %s", c.TotalPending)
		assert.True(t, c.TotalRecovered.Equal(d(st.wantRecovered)), "recovered %s", c.TotalRecovered)
	}

	history, err := ledger.History(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	require.Len(t, history, 3)
	// log order, snapshots untouched by later events
	assert.True(t, history[0].RemainingAmount.Equal(d(5000)))
	assert.True(t, history[1].RemainingAmount.Equal(d(2000)))
	assert.True(t, history[2].RemainingAmount.Equal(d(0)))
	assert.Equal(t, "CASH", history[0].PaymentType)
}

func TestRecordPayment_RecoveredIsSumOfPaidAndNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Al-Noor Store", "3520212345672", "03001234568")

	prev, paidSum := decimal.Zero, decimal.Zero
	// {0, 0} is rejected; {300, 2000} overpays
	for _, ev := range [][2]int64{{1000, 0}, {0, 400}, {0, 0}, {300, 2000}, {50, 0}, {0, 10}} {
		if _, err := ledger.RecordPayment(ctx, salesman, pay(ev[0], ev[1], shop.ID)); err == nil {
			paidSum = paidSum.Add(d(ev[1]))
		}
		c, err := registry.Get(ctx, uuid.MustParse(shop.ID))
		require.NoError(t, err)
		assert.False(t, c.TotalRecovered.LessThan(prev))
		assert.False(t, c.TotalPending.IsNegative())
		assert.True(t, c.TotalRecovered.Equal(paidSum), "recovered %s, paid so far %s", c.TotalRecovered, paidSum)
		prev = c.TotalRecovered
	}
	assert.True(t, paidSum.Equal(d(2410)))

	history, err := ledger.History(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	logged := decimal.Zero
	for _, p := range history {
		logged = logged.Add(p.PaidAmount)
	}
	assert.True(t, logged.Equal(paidSum))
}

func TestRecordPayment_EmptyEventRejectedBalanceUnchanged(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Karachi Mart", "4210112345671", "03211234567")
	_, err := ledger.RecordPayment(ctx, salesman, pay(700, 0, shop.ID))
	require.NoError(t, err)

	_, err = ledger.RecordPayment(ctx, salesman, pay(0, 0, shop.ID))
	assert.ErrorIs(t, err, ErrInvalidAmounts)

	c, _ := registry.Get(ctx, uuid.MustParse(shop.ID))
	assert.True(t, c.TotalPending.Equal(d(700)))
	history, _ := ledger.History(ctx, uuid.MustParse(shop.ID))
	assert.Len(t, history, 1)
}

func TestRecordPayment_NegativeAmountRejected(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	shop := enrollShop(t, registry, uuid.New(), "Lahore Cloth", "3520112345671", "03331234567")

	_, err := ledger.RecordPayment(context.Background(), uuid.New(), pay(0, -5, shop.ID))
	assert.ErrorIs(t, err, ErrInvalidAmounts)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRecordPayment_UnknownClient(t *testing.T) {
	f := newFixture(t)
	ledger, _ := newLedger(f, nil)

	_, err := ledger.RecordPayment(context.Background(), uuid.New(), pay(100, 0, uuid.NewString()))
	assert.ErrorIs(t, err, ErrClientNotFound)

	all, err := f.payments.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordPayment_ConcurrentPaymentsLoseNothing(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Faisal Hardware", "3310012345671", "03451234567")
	_, err := ledger.RecordPayment(ctx, salesman, pay(1000, 0, shop.ID))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordPayment(ctx, salesman, pay(0, 10, shop.ID))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, _ := registry.Get(ctx, uuid.MustParse(shop.ID))
	assert.True(t, c.TotalRecovered.Equal(d(500)), "recovered %s", c.TotalRecovered)
	assert.True(t, c.TotalPending.Equal(d(500)), "pending %s", c.TotalPending)
	history, _ := ledger.History(ctx, uuid.MustParse(shop.ID))
	assert.Len(t, history, n+1)
}

func TestRecordPayment_RedisStoreCommitsClientAndPaymentTogether(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixtureWithStore(kvstore.NewRedisStore(rdb))
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Quetta Dry Fruit", "5440012345671", "03121234567")

	_, err := ledger.RecordPayment(ctx, salesman, pay(5000, 1200, shop.ID))
	require.NoError(t, err)

	c, err := registry.Get(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	assert.True(t, c.TotalPending.Equal(d(3800)))
	history, err := ledger.History(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].RemainingAmount.Equal(d(3800)))
}

func TestLedger_NewestFirstWithTotalTrade(t *testing.T) {
	f := newFixture(t)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Peshawar Mobiles", "1730112345671", "03151234567")

	for _, ev := range [][2]int64{{5000, 0}, {0, 3000}} {
		_, err := ledger.RecordPayment(ctx, salesman, pay(ev[0], ev[1], shop.ID))
		require.NoError(t, err)
	}

	l, err := ledger.Ledger(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	require.Len(t, l.Payments, 2)
	assert.True(t, l.Payments[0].PaidAmount.Equal(d(3000)))
	assert.True(t, l.TotalTrade.Equal(d(5000)))

	_, err = ledger.Ledger(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestRecordPayment_EnqueuesReceiptAndVoice(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t)
	ledger, registry := newLedger(f, worker.NewDispatcher(rdb))
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Sialkot Sports", "3460112345671", "03001112223")

	p, err := ledger.RecordPayment(ctx, salesman, pay(5000, 3000, shop.ID))
	require.NoError(t, err)

	raw, err := mr.Lpop(worker.QueueReceipt)
	require.NoError(t, err)
	var job worker.Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.JSONEq(t, `{"payment_id":"`+p.ID+`"}`, string(job.Payload))

	raw, err = mr.Lpop(worker.QueueVoice)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	var voice worker.VoiceJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &voice))
	assert.Equal(t, "Recovery recorded for Sialkot Sports. Balance is now Rs. 2000.", voice.Text)
}

// interleavingStore records a payment the first time the payments
// collection is read, whichever read path the caller takes.
type interleavingStore struct {
	*kvstore.MemoryStore
	once   sync.Once
	inject func()
	done   chan struct{}
}

func (s *interleavingStore) fire(async bool) {
	s.once.Do(func() {
		run := func() { s.inject(); close(s.done) }
		if async {
			go run()
			return
		}
		run()
	})
}

func (s *interleavingStore) ReadCollection(ctx context.Context, name string) ([]byte, error) {
	if name == repository.PaymentsCollection {
		s.fire(false)
	}
	return s.MemoryStore.ReadCollection(ctx, name)
}

func (s *interleavingStore) View(ctx context.Context, collections []string, fn func(txn kvstore.Txn) error) error {
	return s.MemoryStore.View(ctx, collections, func(txn kvstore.Txn) error {
		return fn(interleavingTxn{Txn: txn, s: s})
	})
}

type interleavingTxn struct {
	kvstore.Txn
	s *interleavingStore
}

func (t interleavingTxn) ReadCollection(name string) ([]byte, error) {
	if name == repository.PaymentsCollection {
		// the snapshot is held here, so the write has to wait for it
		t.s.fire(true)
	}
	return t.Txn.ReadCollection(name)
}

func TestLedger_ReadsClientAndPaymentsFromOneSnapshot(t *testing.T) {
	store := &interleavingStore{MemoryStore: kvstore.NewMemoryStore(), done: make(chan struct{})}
	f := newFixtureWithStore(store)
	ledger, registry := newLedger(f, nil)
	ctx := context.Background()
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Multan Crockery", "3610112345671", "03061234567")
	_, err := ledger.RecordPayment(ctx, salesman, pay(5000, 0, shop.ID))
	require.NoError(t, err)

	store.inject = func() {
		_, err := ledger.RecordPayment(ctx, salesman, pay(0, 3000, shop.ID))
		assert.NoError(t, err)
	}

	assertConsistent := func(l *dto.LedgerResponse) {
		require.NotEmpty(t, l.Payments)
		assert.True(t, l.Client.TotalPending.Equal(l.Payments[0].RemainingAmount),
			"client pending %s, newest payment remaining %s", l.Client.TotalPending, l.Payments[0].RemainingAmount)
	}

	first, err := ledger.Ledger(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	assertConsistent(first)

	select {
	case <-store.done:
	case <-time.After(5 * time.Second):
		t.Fatal("interleaved payment never committed")
	}

	second, err := ledger.Ledger(ctx, uuid.MustParse(shop.ID))
	require.NoError(t, err)
	assertConsistent(second)
	assert.Len(t, second.Payments, 2)
	assert.True(t, second.Client.TotalPending.Equal(d(2000)))
}

func TestRecordPayment_InvoiceOnlyEventIsSpokenToo(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t)
	ledger, registry := newLedger(f, worker.NewDispatcher(rdb))
	salesman := uuid.New()
	shop := enrollShop(t, registry, salesman, "Hyderabad Bangles", "4130112345671", "03011234567")

	_, err := ledger.RecordPayment(context.Background(), salesman, pay(4500, 0, shop.ID))
	require.NoError(t, err)

	raw, err := mr.Lpop(worker.QueueVoice)
	require.NoError(t, err)
	var job worker.Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	var voice worker.VoiceJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &voice))
	assert.Equal(t, "Invoice recorded for Hyderabad Bangles. Balance is now Rs. 4500.", voice.Text)
}
