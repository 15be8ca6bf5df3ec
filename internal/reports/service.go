// Package reports projects catalog and ledger rows into read-only reports.
package reports

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// StockRow is one line of the stock report.
type StockRow struct {
	Name         string             `json:"name"`
	Category     enums.ItemCategory `json:"category"`
	CurrentStock int                `json:"current_stock"`
	Price        types.Money        `json:"price"`
}

type Service interface {
	StockReport(ctx context.Context) ([]StockRow, error)
	TransactionReport(ctx context.Context) ([]ledger.TransactionDTO, error)
}

type service struct {
	db     *gorm.DB
	ledger ledger.Repository
}

func NewService(db *gorm.DB, ledgerRepo ledger.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{db: db, ledger: ledgerRepo}, nil
}

// StockReport lists every item's stock and price in id order.
func (s *service) StockReport(ctx context.Context) ([]StockRow, error) {
	rows := []StockRow{}
	err := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Select("name", "category", "current_stock", "price").
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: stock report")
	}
	return rows, nil
}

// TransactionReport lists transactions newest first with the item as it reads
// now.
func (s *service) TransactionReport(ctx context.Context) ([]ledger.TransactionDTO, error) {
	rows, err := s.ledger.List(ctx, ledger.ListOptions{JoinItem: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transaction report")
	}
	return ledger.FromModels(rows), nil
}
