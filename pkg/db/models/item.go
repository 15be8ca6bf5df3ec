package models

import (
	"time"

	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// Item is a sellable catalog entry and the only contended row in a sale.
type Item struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string             `gorm:"column:name;size:255;not null"`
	Price        types.Money        `gorm:"column:price;type:numeric(10,2);not null"`
	Category     enums.ItemCategory `gorm:"column:category;size:16;not null"`
	InitialStock int                `gorm:"column:initial_stock;not null;check:chk_items_initial_stock,initial_stock >= 0"`
	CurrentStock int                `gorm:"column:current_stock;not null;check:chk_items_current_stock,current_stock >= 0"`
	ImageURL     *string            `gorm:"column:image_url;size:255"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }
