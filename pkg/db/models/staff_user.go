package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
)

// StaffUser is an account allowed to operate the POS.
type StaffUser struct {
	ID           uuid.UUID       `gorm:"column:id;size:36;primaryKey"`
	Email        string          `gorm:"column:email;size:255;not null;uniqueIndex"`
	Name         string          `gorm:"column:name;size:255;not null"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Role         enums.StaffRole `gorm:"column:role;size:16;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (StaffUser) TableName() string { return "staff_users" }

// All lists the models managed by gorm AutoMigrate for non-postgres drivers.
func All() []any {
	return []any{&StaffUser{}, &Item{}, &Transaction{}}
}
