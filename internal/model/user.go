package model

import (
	"time"

	"github.com/google/uuid"
)

// Role constants, lowest trust last. The role stamped on a transfer at
// creation decides whether it needs warehouse verification before approval.
const (
	RoleAdmin     = "admin"
	RoleWarehouse = "warehouse"
	RoleCashier   = "cashier"
)

// User stores local accounts with role-based access.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	FullName     string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
