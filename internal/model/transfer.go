package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the closed set of lifecycle states for a transfer.
// Transitions are one-directional: pending_verification → pending → confirmed,
// with cancelled reachable from either pending state. Confirmed and cancelled
// are terminal.
type TransferStatus string

const (
	StatusPendingVerification TransferStatus = "pending_verification"
	StatusPending             TransferStatus = "pending"
	StatusConfirmed           TransferStatus = "confirmed"
	StatusCancelled           TransferStatus = "cancelled"
)

// CanVerify reports whether a verify transition is legal from this state.
func (s TransferStatus) CanVerify() bool { return s == StatusPendingVerification }

// CanConfirm reports whether a confirm transition is legal from this state.
func (s TransferStatus) CanConfirm() bool { return s == StatusPending }

// CanCancel reports whether a cancel transition is legal from this state.
func (s TransferStatus) CanCancel() bool {
	return s == StatusPendingVerification || s == StatusPending
}

// Terminal reports whether no further transition is allowed.
func (s TransferStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// TransitionTo validates one state-machine edge.
func (s TransferStatus) TransitionTo(next TransferStatus) error {
	ok := false
	switch next {
	case StatusPending:
		ok = s.CanVerify()
	case StatusConfirmed:
		ok = s.CanConfirm()
	case StatusCancelled:
		ok = s.CanCancel()
	}
	if !ok {
		return fmt.Errorf("illegal transfer transition %s → %s", s, next)
	}
	return nil
}

// Transfer is the mutable aggregate root for one requested stock movement.
// Cancellation is a status, never a row deletion, for audit continuity.
type Transfer struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	// Requester. UserID is nullable: externally-authenticated admins have no
	// local user row.
	UserID        *uuid.UUID `gorm:"type:uuid"`
	Username      string     `gorm:"size:50;not null"`
	CreatedByRole string     `gorm:"size:20"` // admin | warehouse | cashier

	Status TransferStatus `gorm:"type:varchar(25);not null;index"`

	// Destination resolved at prepare time; an admin may override at confirm.
	DestinationID   string `gorm:"size:50;not null"`
	DestinationName string `gorm:"size:100;not null"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	VerifiedAt  *time.Time
	VerifiedBy  *string `gorm:"size:50"`
	ConfirmedAt *time.Time
	ConfirmedBy *string `gorm:"size:50"`

	Items []TransferItem `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
}

func (Transfer) TableName() string { return "transfers" }

// TotalQuantity sums the requested quantities across all lines.
func (t *Transfer) TotalQuantity() int {
	total := 0
	for _, item := range t.Items {
		total += item.Quantity
	}
	return total
}

// TransferItem is one line of a transfer. Product fields are snapshots taken
// at validation time, informational only — confirmation re-reads live state.
type TransferItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransferID uuid.UUID `gorm:"type:uuid;not null;index"`

	Barcode     string `gorm:"size:100;not null;index"`
	ProductID   int    `gorm:"not null"` // remote-system product id
	ProductName string `gorm:"size:255;not null"`

	Quantity       int             `gorm:"not null"`
	AvailableStock int             `gorm:"not null"` // stock at validation time
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2)"`

	CreatedAt time.Time
}

func (TransferItem) TableName() string { return "transfer_items" }
