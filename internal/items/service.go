// Package items is the item catalog store: CRUD over catalog items with
// image ownership and the administrative stock override.
package items

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-inventory-backend/internal/images"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	"github.com/angelmondragon/pos-inventory-backend/pkg/tracing"
	"github.com/angelmondragon/pos-inventory-backend/pkg/validation"
)

// Service exposes catalog management operations.
type Service interface {
	Get(ctx context.Context, id int64) (*ItemDTO, error)
	List(ctx context.Context) ([]ItemDTO, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput, image *images.File) (*ItemDTO, error)
	Update(ctx context.Context, actor auth.Actor, id int64, input UpdateInput, image *images.File) (*ItemDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id int64) error
}

type imageStore interface {
	Acquire(ctx context.Context, file *images.File) (*images.Lease, error)
	Release(ctx context.Context, url string)
}

type service struct {
	repo    *Repository
	ledger  ledger.Repository
	db      *db.Client
	images  imageStore
	metrics *metrics.CatalogMetrics
	logg    *logger.Logger
	tracer  trace.Tracer
}

// NewService constructs the catalog service.
func NewService(repo *Repository, ledgerRepo ledger.Repository, dbClient *db.Client, imgs imageStore, m *metrics.CatalogMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if imgs == nil {
		return nil, fmt.Errorf("image store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		ledger:  ledgerRepo,
		db:      dbClient,
		images:  imgs,
		metrics: m,
		logg:    logg,
		tracer:  otel.Tracer(tracing.InstrumentationName),
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := FromModel(*item)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]ItemDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list items")
	}
	return FromModels(rows), nil
}

// Create stores the item with current_stock equal to initial_stock. An
// uploaded image wins over image_url and is released if the insert fails.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput, image *images.File) (*ItemDTO, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}
	if fields := ValidateCreate(&input); len(fields) > 0 {
		return nil, validation.Error(fields)
	}

	ctx, span := s.tracer.Start(ctx, "items.Create")
	defer span.End()

	lease, err := s.images.Acquire(ctx, image)
	if err != nil {
		return nil, err
	}
	defer lease.Close(ctx)

	item := &models.Item{
		Name:         input.Name,
		Price:        *input.Price,
		Category:     input.Category,
		InitialStock: *input.InitialStock,
		CurrentStock: *input.InitialStock,
		ImageURL:     imageRef(lease, input.ImageURL),
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), item); err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
	}
	lease.Keep()

	span.SetAttributes(attribute.Int64("item.id", item.ID))
	logCtx := s.logg.WithUserID(s.logg.WithItemID(ctx, item.ID), actor.UserID.String())
	s.logg.Info(logCtx, "item.created")

	dto := FromModel(*item)
	return &dto, nil
}

type stockOverride struct {
	from, to int
}

// Update replaces the catalog fields. A differing current_stock is an
// administrative override and is logged and counted. The replaced image is
// released after commit.
func (s *service) Update(ctx context.Context, actor auth.Actor, id int64, input UpdateInput, image *images.File) (*ItemDTO, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}
	if fields := ValidateUpdate(&input); len(fields) > 0 {
		return nil, validation.Error(fields)
	}

	ctx, span := s.tracer.Start(ctx, "items.Update", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	lease, err := s.images.Acquire(ctx, image)
	if err != nil {
		return nil, err
	}
	defer lease.Close(ctx)

	var (
		updated  *models.Item
		previous *string
		override *stockOverride
	)
	txCtx := context.WithoutCancel(ctx)
	err = s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return mapLoadError(err)
		}
		previous = item.ImageURL

		item.Name = input.Name
		item.Price = *input.Price
		item.Category = input.Category
		item.InitialStock = *input.InitialStock
		if input.CurrentStock != nil && *input.CurrentStock != item.CurrentStock {
			override = &stockOverride{from: item.CurrentStock, to: *input.CurrentStock}
			item.CurrentStock = *input.CurrentStock
		}
		if lease != nil || input.ImageURL != nil {
			item.ImageURL = imageRef(lease, input.ImageURL)
		}

		if err := repo.Save(txCtx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update item")
		}
		updated = item
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	lease.Keep()

	logCtx := s.logg.WithUserID(s.logg.WithItemID(ctx, id), actor.UserID.String())
	if override != nil {
		s.metrics.IncStockOverride()
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"role":              actor.Role.String(),
			"old_current_stock": override.from,
			"new_current_stock": override.to,
		}), "item.stock.override")
	}
	if previous != nil && (updated.ImageURL == nil || *updated.ImageURL != *previous) {
		s.images.Release(ctx, *previous)
	}
	s.logg.Info(logCtx, "item.updated")

	dto := FromModel(*updated)
	return &dto, nil
}

// Delete removes the item together with its transactions and releases its
// image once the delete has committed.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	if err := auth.RequireActor(actor); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "items.Delete", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	var (
		image   *string
		removed int64
	)
	txCtx := context.WithoutCancel(ctx)
	err := s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return mapLoadError(err)
		}
		image = item.ImageURL

		removed, err = s.ledger.WithTx(tx).DeleteByItemID(txCtx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete item transactions")
		}
		deleted, err := repo.Delete(txCtx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete item")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Item not found")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if image != nil {
		s.images.Release(ctx, *image)
	}

	logCtx := s.logg.WithUserID(s.logg.WithItemID(ctx, id), actor.UserID.String())
	s.logg.Info(s.logg.WithField(logCtx, "transactions_removed", removed), "item.deleted")
	return nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
}

// imageRef picks the stored upload over a hand-entered URL. An empty URL
// clears the reference.
func imageRef(lease *images.Lease, url *string) *string {
	if u := lease.URL(); u != "" {
		return &u
	}
	if url == nil || *url == "" {
		return nil
	}
	v := *url
	return &v
}
