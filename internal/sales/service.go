// Package sales is the sale processor: one atomic stock check, ledger insert
// and stock decrement per sale, replayed on transient store conflicts.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	"github.com/angelmondragon/pos-inventory-backend/pkg/tracing"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
	"github.com/angelmondragon/pos-inventory-backend/pkg/validation"
)

// errStockConflict means the guarded decrement matched no row after the stock
// check passed. The scope is replayed and re-reads the item.
var errStockConflict = errors.New("sales: stock changed during sale")

// SaleInput is a request to sell quantity units of one item.
type SaleInput struct {
	ItemID   int64 `json:"item_id" validate:"required,min=1"`
	Quantity int   `json:"quantity" validate:"min=1"`
}

// Service sells items.
type Service interface {
	Sell(ctx context.Context, actor auth.Actor, input SaleInput) (*ledger.TransactionDTO, error)
}

type Params struct {
	DB      *db.Client
	Items   *items.Repository
	Ledger  ledger.Repository
	Config  config.SalesConfig
	Metrics *metrics.SalesMetrics
	Logger  *logger.Logger
	// Tracer defaults to the global provider.
	Tracer trace.Tracer
}

type service struct {
	db      *db.Client
	items   *items.Repository
	ledger  ledger.Repository
	cfg     config.SalesConfig
	metrics *metrics.SalesMetrics
	logg    *logger.Logger
	tracer  trace.Tracer
}

func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if p.Items == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if p.Config.Timeout <= 0 {
		return nil, fmt.Errorf("sale timeout must be positive")
	}
	if p.Config.RetryBaseDelay <= 0 {
		return nil, fmt.Errorf("sale retry base delay must be positive")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Tracer == nil {
		p.Tracer = otel.Tracer(tracing.InstrumentationName)
	}
	return &service{
		db:      p.DB,
		items:   p.Items,
		ledger:  p.Ledger,
		cfg:     p.Config,
		metrics: p.Metrics,
		logg:    p.Logger,
		tracer:  p.Tracer,
	}, nil
}

type saleResult struct {
	txn      *models.Transaction
	category string
}

// Sell runs the sale scope. NotFound, InsufficientStock and validation errors
// are returned as-is; retryable store errors are replayed up to
// Config.MaxRetries times and then reported as TRANSIENT_STORE_FAILURE.
func (s *service) Sell(ctx context.Context, actor auth.Actor, input SaleInput) (*ledger.TransactionDTO, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "sales.Sell", trace.WithAttributes(
		attribute.Int64("item.id", input.ItemID),
		attribute.Int("sale.quantity", input.Quantity),
	))
	defer span.End()

	ctx = s.logg.WithFields(s.logg.WithItemID(ctx, input.ItemID), map[string]any{
		"user_id":  actor.UserID.String(),
		"quantity": input.Quantity,
	})

	if err := auth.RequireActor(actor); err != nil {
		return nil, s.fail(ctx, span, start, metrics.OutcomeInvalid, err)
	}
	if err := validation.Struct(&input); err != nil {
		return nil, s.fail(ctx, span, start, metrics.OutcomeInvalid, err)
	}

	// The scope runs to commit or rollback even if the caller goes away.
	scopeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	attempts := 0
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(s.cfg.RetryBaseDelay))
	var result saleResult
	err := retry.Do(scopeCtx, backoff, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			s.metrics.IncRetry()
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempts), "sale.retry")
		}
		res, err := s.sellOnce(ctx, input)
		if err != nil {
			if errors.Is(err, errStockConflict) || db.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	span.SetAttributes(attribute.Int("sale.attempts", attempts))
	if err != nil {
		return nil, s.fail(ctx, span, start, "", s.classify(err, attempts))
	}

	txn := result.txn
	s.metrics.ObserveSale(metrics.OutcomeCommitted, time.Since(start))
	s.metrics.AddUnits(result.category, txn.Quantity)
	span.SetAttributes(attribute.Int64("transaction.id", txn.ID))

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.ID,
		"total_price":    txn.TotalPrice.String(),
		"attempts":       attempts,
	}), "sale.committed")

	dto := ledger.FromModel(*txn)
	return &dto, nil
}

// sellOnce is one attempt of the atomic scope. Errors that abort the scope roll
// back every write made in it.
func (s *service) sellOnce(ctx context.Context, input SaleInput) (saleResult, error) {
	var res saleResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		itemRepo := s.items.WithTx(tx)

		item, err := itemRepo.FindByIDForUpdate(ctx, input.ItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Item not found")
		}
		if err != nil {
			return err
		}

		if item.CurrentStock < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock").
				WithField("current_stock", item.CurrentStock)
		}

		total := item.Price.Times(input.Quantity)
		if total.GreaterThan(types.MaxTransactionTotal.Decimal) {
			return pkgerrors.New(pkgerrors.CodeValidation, "sale total exceeds the maximum transaction amount").
				WithDetails(map[string]string{"quantity": "sale total must not exceed " + types.MaxTransactionTotal.String()})
		}
		txn, err := s.ledger.WithTx(tx).Create(ctx, item.ID, input.Quantity, total, time.Now().UTC())
		if err != nil {
			return err
		}

		ok, err := itemRepo.DecrementStock(ctx, item.ID, input.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return errStockConflict
		}

		res = saleResult{txn: txn, category: item.Category.String()}
		return nil
	})
	return res, err
}

func (s *service) classify(err error, attempts int) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, errStockConflict) || db.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTransient, err, fmt.Sprintf("sale aborted after %d attempts", attempts))
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to process transaction")
}

func (s *service) fail(ctx context.Context, span trace.Span, start time.Time, outcome string, err error) error {
	code := pkgerrors.CodeOf(err)
	if outcome == "" {
		outcome = outcomeFor(code)
	}
	s.metrics.ObserveSale(outcome, time.Since(start))
	span.SetAttributes(attribute.String("sale.outcome", outcome))

	switch code {
	case pkgerrors.CodeInsufficientStock:
		typed := pkgerrors.As(err)
		s.logg.Info(s.logg.WithFields(ctx, typed.Fields()), "sale.insufficient_stock")
	case pkgerrors.CodeNotFound, pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized:
		s.logg.Info(s.logg.WithField(ctx, "error_code", string(code)), "sale.rejected")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.logg.Error(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "sale.failed", err)
	}
	return err
}

func outcomeFor(code pkgerrors.Code) string {
	switch code {
	case pkgerrors.CodeInsufficientStock:
		return metrics.OutcomeInsufficientStock
	case pkgerrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized:
		return metrics.OutcomeInvalid
	case pkgerrors.CodeTransient:
		return metrics.OutcomeTransient
	}
	return metrics.OutcomeFailed
}
