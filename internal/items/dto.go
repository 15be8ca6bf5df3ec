package items

import (
	"strings"
	"time"

	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
	"github.com/angelmondragon/pos-inventory-backend/pkg/validation"
)

// ItemFields are the catalog attributes shared by create and update. Update is
// a full replace of these fields.
type ItemFields struct {
	Name         string             `json:"name" validate:"required,max=255"`
	Price        *types.Money       `json:"price" validate:"required,min=0,max=99999999.99"`
	Category     enums.ItemCategory `json:"category" validate:"required,oneof=Food Drink Other"`
	InitialStock *int               `json:"initial_stock" validate:"required,min=0"`
	ImageURL     *string            `json:"image_url,omitempty" validate:"omitempty,max=255"`
}

type CreateInput struct {
	ItemFields
}

// UpdateInput may also override current_stock directly.
type UpdateInput struct {
	ItemFields
	CurrentStock *int `json:"current_stock,omitempty" validate:"omitempty,min=0"`
}

// ValidateCreate trims and checks a create payload.
func ValidateCreate(in *CreateInput) validation.FieldErrors {
	in.normalize()
	return validation.Fields(in)
}

// ValidateUpdate trims and checks an update payload.
func ValidateUpdate(in *UpdateInput) validation.FieldErrors {
	in.normalize()
	return validation.Fields(in)
}

func (f *ItemFields) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	if f.ImageURL != nil {
		trimmed := strings.TrimSpace(*f.ImageURL)
		f.ImageURL = &trimmed
	}
}

// ItemDTO is the item payload returned to clients.
type ItemDTO struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Price        types.Money        `json:"price"`
	Category     enums.ItemCategory `json:"category"`
	InitialStock int                `json:"initial_stock"`
	CurrentStock int                `json:"current_stock"`
	ImageURL     *string            `json:"image_url"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func FromModel(m models.Item) ItemDTO {
	return ItemDTO{
		ID:           m.ID,
		Name:         m.Name,
		Price:        m.Price,
		Category:     m.Category,
		InitialStock: m.InitialStock,
		CurrentStock: m.CurrentStock,
		ImageURL:     m.ImageURL,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func FromModels(rows []models.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
