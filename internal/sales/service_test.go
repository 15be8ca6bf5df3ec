package sales

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

var cashier = auth.Actor{UserID: uuid.MustParse("0d3f6a7e-2f4b-4d7a-8b61-2f7d8e9c1a20"), Role: enums.StaffRoleCashier}

type fixture struct {
	svc    Service
	client *db.Client
	items  *items.Repository
	ledger ledger.Repository
	reg    *prometheus.Registry
	spans  *tracetest.SpanRecorder
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, cfg config.SalesConfig) *fixture {
	t.Helper()
	return newFixtureOn(t, cfg, dbtest.NewClient(t))
}

func newFixtureOn(t *testing.T, cfg config.SalesConfig, client *db.Client) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	logs := &bytes.Buffer{}

	itemRepo := items.NewRepository(client.DB())
	ledgerRepo := ledger.NewRepository(client.DB())
	svc, err := NewService(Params{
		DB:      client,
		Items:   itemRepo,
		Ledger:  ledgerRepo,
		Config:  cfg,
		Metrics: metrics.NewSalesMetrics(reg),
		Logger:  logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: logs}),
		Tracer:  tp.Tracer("sales-test"),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, client: client, items: itemRepo, ledger: ledgerRepo, reg: reg, spans: spans, logs: logs}
}

func defaultConfig() config.SalesConfig {
	return config.SalesConfig{MaxRetries: 3, RetryBaseDelay: time.Millisecond, Timeout: 5 * time.Second}
}

func (f *fixture) seedItem(t *testing.T, price string, stock int) *models.Item {
	t.Helper()
	item := &models.Item{
		Name:         "Espresso",
		Price:        types.MustParseMoney(price),
		Category:     enums.ItemCategoryDrink,
		InitialStock: stock,
		CurrentStock: stock,
	}
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	item, err := f.items.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.CurrentStock
}

func (f *fixture) soldUnits(t *testing.T, id int64) int64 {
	t.Helper()
	sum, err := f.ledger.SumQuantityByItemID(context.Background(), id)
	require.NoError(t, err)
	return sum
}

func TestSellCommitsTransactionAndDecrementsStock(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "100.00", 10)

	before := time.Now().UTC().Add(-time.Second)
	txn, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 5})
	require.NoError(t, err)

	assert.NotZero(t, txn.ID)
	assert.Equal(t, item.ID, txn.ItemID)
	assert.Equal(t, 5, txn.Quantity)
	assert.Equal(t, "500.00", txn.TotalPrice.String())
	assert.True(t, txn.TransactionDate.After(before))
	assert.Equal(t, 5, f.stock(t, item.ID))
	assert.Contains(t, f.logs.String(), `"message":"sale.committed"`)
}

func TestSellInsufficientStockLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "100.00", 10)

	_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 5})
	require.NoError(t, err)

	_, err = f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 7})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	assert.Equal(t, "Insufficient stock", typed.Message())
	assert.Equal(t, map[string]any{"current_stock": 5}, typed.Fields())

	assert.Equal(t, 5, f.stock(t, item.ID))
	rows, err := f.ledger.List(context.Background(), ledger.ListOptions{ItemID: item.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSellNotFoundWritesNothing(t *testing.T) {
	f := newFixture(t, defaultConfig())

	_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: 42, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, "Item not found", typed.Message())

	rows, err := f.ledger.List(context.Background(), ledger.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSellRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "1.00", 3)

	for _, qty := range []int{0, -2} {
		_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: qty})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		assert.Contains(t, typed.Details(), "quantity")
	}

	_, err := f.svc.Sell(context.Background(), auth.Actor{}, SaleInput{ItemID: item.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, 3, f.stock(t, item.ID))
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t, defaultConfig())
	const (
		stock    = 10
		qty      = 3
		attempts = 12
	)
	item := f.seedItem(t, "2.50", stock)

	var (
		wg           sync.WaitGroup
		successes    atomic.Int32
		insufficient atomic.Int32
		unexpected   = make(chan error, attempts)
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: qty})
			switch {
			case err == nil:
				successes.Add(1)
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
				insufficient.Add(1)
			default:
				unexpected <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(unexpected)

	for err := range unexpected {
		t.Fatalf("unexpected sale error: %v", err)
	}
	assert.EqualValues(t, stock/qty, successes.Load())
	assert.EqualValues(t, attempts-stock/qty, insufficient.Load())

	remaining := f.stock(t, item.ID)
	assert.Equal(t, stock-qty*(stock/qty), remaining)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.EqualValues(t, stock-remaining, f.soldUnits(t, item.ID))
}

func TestRandomSalesReconcile(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "0.99", 50)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, _ = f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: qty})
		}(i%4 + 1)
	}
	wg.Wait()

	remaining := f.stock(t, item.ID)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.EqualValues(t, item.InitialStock-remaining, f.soldUnits(t, item.ID))
}

func TestPriceChangeDoesNotAlterCommittedTotal(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "4.20", 10)

	txn, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "8.40", txn.TotalPrice.String())

	item.Price = types.MustParseMoney("9.99")
	require.NoError(t, f.items.Save(context.Background(), item))

	rows, err := f.ledger.List(context.Background(), ledger.ListOptions{JoinItem: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "8.40", rows[0].TotalPrice.String())
	assert.Equal(t, "9.99", rows[0].Item.Price.String())
}

func TestConcurrentSalesOnPooledConnections(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 10
	cfg.Timeout = 30 * time.Second
	f := newFixtureOn(t, cfg, dbtest.NewPooledClient(t, 8))
	const (
		stock    = 10
		qty      = 3
		attempts = 8
	)
	item := f.seedItem(t, "2.50", stock)

	var (
		wg           sync.WaitGroup
		successes    atomic.Int32
		insufficient atomic.Int32
		transient    atomic.Int32
		unexpected   = make(chan error, attempts)
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: qty})
			switch {
			case err == nil:
				successes.Add(1)
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
				insufficient.Add(1)
			case pkgerrors.IsCode(err, pkgerrors.CodeTransient):
				transient.Add(1)
			default:
				unexpected <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(unexpected)

	for err := range unexpected {
		t.Fatalf("unexpected sale error: %v", err)
	}
	assert.EqualValues(t, attempts, successes.Load()+insufficient.Load()+transient.Load())
	assert.LessOrEqual(t, successes.Load(), int32(stock/qty))
	if transient.Load() == 0 {
		assert.EqualValues(t, stock/qty, successes.Load())
	}

	remaining := f.stock(t, item.ID)
	assert.GreaterOrEqual(t, remaining, 0)
	assert.Equal(t, stock-qty*int(successes.Load()), remaining)
	assert.EqualValues(t, stock-remaining, f.soldUnits(t, item.ID))
}

// lowerStockBeforeFirstInsert sets the item's stock to newStock inside the
// sale transaction, after the locked read and before the guarded decrement.
func lowerStockBeforeFirstInsert(t *testing.T, conn *gorm.DB, itemID int64, newStock int) *atomic.Int32 {
	t.Helper()
	var fired atomic.Int32
	err := conn.Callback().Create().Before("gorm:create").Register("test:lower_stock", func(tx *gorm.DB) {
		if tx.Statement.Table != "transactions" || fired.Add(1) > 1 {
			return
		}
		res := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE items SET current_stock = ? WHERE id = ?", newStock, itemID)
		if res.Error != nil {
			_ = tx.AddError(res.Error)
		}
	})
	require.NoError(t, err)
	return &fired
}

func TestSellReplaysWhenGuardedDecrementMisses(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "1.25", 5)
	fired := lowerStockBeforeFirstInsert(t, f.client.DB(), item.ID, 1)

	txn, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "2.50", txn.TotalPrice.String())
	assert.EqualValues(t, 2, fired.Load(), "scope should run twice")

	// the first attempt rolled back together with the stock change it observed
	assert.Equal(t, 3, f.stock(t, item.ID))
	assert.EqualValues(t, 2, f.soldUnits(t, item.ID))
	assert.Equal(t, 1, strings.Count(f.logs.String(), `"message":"sale.retry"`))

	expected := `
# HELP pos_sale_retries_total Atomic sale scopes replayed after a transient store conflict.
# TYPE pos_sale_retries_total counter
pos_sale_retries_total 1
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "pos_sale_retries_total"))
}

func TestSellStockConflictExhaustsRetries(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 1
	f := newFixture(t, cfg)
	item := f.seedItem(t, "1.25", 5)

	var calls atomic.Int32
	err := f.client.DB().Callback().Create().Before("gorm:create").Register("test:always_lower", func(tx *gorm.DB) {
		if tx.Statement.Table != "transactions" {
			return
		}
		calls.Add(1)
		_ = tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE items SET current_stock = 0 WHERE id = ?", item.ID).Error
	})
	require.NoError(t, err)

	_, err = f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransient))
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 5, f.stock(t, item.ID))
	assert.Zero(t, f.soldUnits(t, item.ID))
}

func TestSellAcceptsLargeTotals(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "99999999.99", 4)

	txn, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "299999999.97", txn.TotalPrice.String())

	rows, err := f.ledger.List(context.Background(), ledger.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "299999999.97", rows[0].TotalPrice.String())
}

func TestSellRejectsTotalBeyondColumnRange(t *testing.T) {
	f := newFixture(t, defaultConfig())
	const stock = 20_000_000_000
	item := f.seedItem(t, "99999999.99", stock)

	_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 10_000_000_002})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details(), "quantity")
	assert.Equal(t, stock, f.stock(t, item.ID))
	assert.Zero(t, f.soldUnits(t, item.ID))
}

// failItemUpdates makes the first n item updates fail with SQLITE_BUSY.
func failItemUpdates(t *testing.T, conn *gorm.DB, n int32) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	err := conn.Callback().Update().Before("gorm:update").Register("test:busy", func(tx *gorm.DB) {
		if tx.Statement.Table != "items" {
			return
		}
		if calls.Add(1) <= n {
			_ = tx.AddError(sqlite3.Error{Code: sqlite3.ErrBusy})
		}
	})
	require.NoError(t, err)
	return &calls
}

func TestSellRetriesTransientConflicts(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "1.50", 5)
	failItemUpdates(t, f.client.DB(), 2)

	txn, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "3.00", txn.TotalPrice.String())

	assert.Equal(t, 3, f.stock(t, item.ID))
	assert.EqualValues(t, 2, f.soldUnits(t, item.ID), "rolled back attempts must not leave ledger rows")
	assert.Equal(t, 2, strings.Count(f.logs.String(), `"message":"sale.retry"`))

	expected := `
# HELP pos_sale_retries_total Atomic sale scopes replayed after a transient store conflict.
# TYPE pos_sale_retries_total counter
pos_sale_retries_total 2
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "pos_sale_retries_total"))
}

func TestSellSurfacesTransientFailureAfterRetries(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxRetries = 2
	f := newFixture(t, cfg)
	item := f.seedItem(t, "1.50", 5)
	calls := failItemUpdates(t, f.client.DB(), 100)

	_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeTransient, typed.Code())
	assert.True(t, errors.As(err, new(sqlite3.Error)))
	assert.EqualValues(t, 3, calls.Load())

	assert.Equal(t, 5, f.stock(t, item.ID))
	assert.Zero(t, f.soldUnits(t, item.ID))
	assert.Contains(t, f.logs.String(), `"message":"sale.failed"`)
}

func TestSellContinuesWhenCallerCancels(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "1.00", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Sell(ctx, cashier, SaleInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, item.ID))
}

func TestSellRecordsSpan(t *testing.T) {
	f := newFixture(t, defaultConfig())
	item := f.seedItem(t, "1.00", 1)

	_, err := f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Sell(context.Background(), cashier, SaleInput{ItemID: item.ID, Quantity: 1})
	require.Error(t, err)

	ended := f.spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "sales.Sell", ended[0].Name())

	attrs := map[string]string{}
	for _, kv := range ended[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, metrics.OutcomeInsufficientStock, attrs["sale.outcome"])
	assert.Equal(t, "1", attrs["sale.quantity"])
}
