package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-inventory-backend/pkg/db/models"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	User         *StaffDTO `json:"user,omitempty"`
}

// CreateStaffInput provisions an account from the staff CLI.
type CreateStaffInput struct {
	Email    string          `json:"email" validate:"required,email,max=255"`
	Name     string          `json:"name" validate:"required,max=255"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     enums.StaffRole `json:"role" validate:"required,oneof=admin cashier"`
}

type StaffDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Role        enums.StaffRole `json:"role"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func FromModel(m *models.StaffUser) *StaffDTO {
	if m == nil {
		return nil
	}
	return &StaffDTO{
		ID:          m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Role:        m.Role,
		IsActive:    m.IsActive,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
	}
}
