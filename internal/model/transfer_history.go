package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is a captured copy of a product's state at one instant,
// serialized into the history record's JSON snapshot arrays.
type ProductSnapshot struct {
	ProductID int     `json:"product_id"`
	Barcode   string  `json:"barcode"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	CostPrice float64 `json:"cost_price"`
	SalePrice float64 `json:"sale_price"`
}

// TransferHistory is the immutable account of one confirmation attempt.
// The link back to the originating transfer is nullable so deleting a header
// can never cascade into the audit trail.
type TransferHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransferID *uuid.UUID `gorm:"type:uuid;index"`

	OriginLocation  string `gorm:"size:50;not null;default:'principal'"`
	DestinationID   string `gorm:"size:50;not null"`
	DestinationName string `gorm:"size:100;not null"`

	ExecutedBy string    `gorm:"size:50;not null"`
	ExecutedAt time.Time `gorm:"not null;index"`

	TotalItems               int `gorm:"not null"`
	SuccessfulItems          int `gorm:"not null"`
	FailedItems              int `gorm:"not null"`
	TotalQuantityRequested   int `gorm:"not null"`
	TotalQuantityTransferred int `gorm:"not null"`

	// Generated artifacts captured at execution time.
	XMLContent  string `gorm:"type:text"`
	PDFContent  string `gorm:"type:text"` // base64
	PDFFilename string `gorm:"size:255"`

	// Four snapshot arrays plus the newly-created destination products,
	// stored as JSON arrays of ProductSnapshot.
	OriginBefore      string `gorm:"type:text"`
	OriginAfter       string `gorm:"type:text"`
	DestinationBefore string `gorm:"type:text"`
	DestinationAfter  string `gorm:"type:text"`
	NewProducts       string `gorm:"type:text"`

	HasErrors    bool   `gorm:"not null;default:false"`
	ErrorSummary string `gorm:"type:text"`

	CreatedAt time.Time

	Items []TransferHistoryItem `gorm:"foreignKey:HistoryID;constraint:OnDelete:CASCADE"`
}

func (TransferHistory) TableName() string { return "transfer_history" }

// TransferHistoryItem is the per-line outcome row. The item set of a history
// record is a complete accounting of every line in the originating request —
// failed lines included.
type TransferHistoryItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	HistoryID uuid.UUID `gorm:"type:uuid;not null;index"`

	Barcode     string `gorm:"size:100;not null;index"`
	ProductID   int    `gorm:"not null"`
	ProductName string `gorm:"size:255;not null"`

	QuantityRequested   int `gorm:"not null"`
	QuantityTransferred int `gorm:"not null"` // 0 when the line failed

	Success      bool    `gorm:"not null"`
	ErrorMessage *string `gorm:"type:text"` // nil iff Success

	StockOriginBefore      *int
	StockOriginAfter       *int
	StockDestinationBefore *int
	StockDestinationAfter  *int

	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2)"`
	TotalValue decimal.Decimal `gorm:"type:decimal(12,2)"`

	// IsNewProduct marks lines whose destination product was created during
	// this transfer.
	IsNewProduct bool `gorm:"not null;default:false"`

	CreatedAt time.Time
}

func (TransferHistoryItem) TableName() string { return "transfer_history_items" }
