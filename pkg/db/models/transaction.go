package models

import (
	"time"

	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// Transaction is an immutable sale record. TotalPrice is the item price at
// sale time multiplied by Quantity and is never recomputed.
type Transaction struct {
	ID              int64       `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID          int64       `gorm:"column:item_id;not null;index"`
	Quantity        int         `gorm:"column:quantity;not null;check:chk_transactions_quantity,quantity >= 1"`
	TotalPrice      types.Money `gorm:"column:total_price;type:numeric(20,2);not null"`
	TransactionDate time.Time   `gorm:"column:transaction_date;not null;index"`
	CreatedAt       time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time   `gorm:"column:updated_at;autoUpdateTime"`

	Item *Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (Transaction) TableName() string { return "transactions" }
