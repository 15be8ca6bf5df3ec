package ledger

import (
	"time"

	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// TransactionDTO is the transaction payload returned to clients.
type TransactionDTO struct {
	ID              int64         `json:"id"`
	ItemID          int64         `json:"item_id"`
	Quantity        int           `json:"quantity"`
	TotalPrice      types.Money   `json:"total_price"`
	TransactionDate time.Time     `json:"transaction_date"`
	Item            *ItemSnapshot `json:"item,omitempty"`
}

// ItemSnapshot is the item as it reads now, not as it was at sale time.
type ItemSnapshot struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name"`
	Price    types.Money        `json:"price"`
	Category enums.ItemCategory `json:"category"`
}

func FromModel(m models.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:              m.ID,
		ItemID:          m.ItemID,
		Quantity:        m.Quantity,
		TotalPrice:      m.TotalPrice,
		TransactionDate: m.TransactionDate.UTC(),
	}
	if m.Item != nil {
		dto.Item = &ItemSnapshot{
			ID:       m.Item.ID,
			Name:     m.Item.Name,
			Price:    m.Item.Price,
			Category: m.Item.Category,
		}
	}
	return dto
}

func FromModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
