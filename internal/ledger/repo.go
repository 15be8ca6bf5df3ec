package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// Repository manages persistence for sale transactions. Rows are insert-only;
// the only delete path is the item cascade.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, itemID int64, quantity int, total types.Money, at time.Time) (*models.Transaction, error)
	List(ctx context.Context, opts ListOptions) ([]models.Transaction, error)
	DeleteByItemID(ctx context.Context, itemID int64) (int64, error)
	SumQuantityByItemID(ctx context.Context, itemID int64) (int64, error)
}

// ListOptions controls List. JoinItem loads the item snapshot at read time.
type ListOptions struct {
	JoinItem bool
	ItemID   int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts a transaction. Stock rules are the caller's concern; only
// required fields are checked. A zero timestamp defaults to now.
func (r *repository) Create(ctx context.Context, itemID int64, quantity int, total types.Money, at time.Time) (*models.Transaction, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("item id is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if at.IsZero() {
		at = time.Now()
	}

	txn := &models.Transaction{
		ItemID:          itemID,
		Quantity:        quantity,
		TotalPrice:      total,
		TransactionDate: at.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit("Item").Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// List returns transactions newest first. Ties on transaction_date fall back
// to id so the order is stable.
func (r *repository) List(ctx context.Context, opts ListOptions) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Order("transaction_date DESC").Order("id DESC")
	if opts.ItemID > 0 {
		q = q.Where("item_id = ?", opts.ItemID)
	}
	if opts.JoinItem {
		q = q.Preload("Item")
	}

	var txns []models.Transaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) DeleteByItemID(ctx context.Context, itemID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}

func (r *repository) SumQuantityByItemID(ctx context.Context, itemID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}
