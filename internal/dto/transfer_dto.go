package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferItemInput is one (barcode, quantity) pair submitted by a caller.
type TransferItemInput struct {
	Barcode  string `json:"barcode" validate:"required,min=5,max=20"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// PrepareTransferRequest starts the transfer lifecycle.
type PrepareTransferRequest struct {
	Products      []TransferItemInput `json:"products" validate:"required,min=1,dive"`
	DestinationID string              `json:"destination_id"`
}

// VerifyTransferRequest carries the possibly-edited line list a warehouse
// user submits when reviewing a cashier's transfer.
type VerifyTransferRequest struct {
	TransferID string              `json:"transfer_id" validate:"required,uuid"`
	Products   []TransferItemInput `json:"products" validate:"required,min=1,dive"`
}

// ConfirmTransferRequest carries the final line list to execute.
type ConfirmTransferRequest struct {
	Products      []TransferItemInput `json:"products" validate:"required,min=1,dive"`
	DestinationID string              `json:"destination_id"`
}

// TransferProductDetail is the per-line outcome reported to the caller.
type TransferProductDetail struct {
	Barcode             string  `json:"barcode"`
	Name                string  `json:"name"`
	QuantityRequested   int     `json:"quantity_requested"`
	QuantityTransferred int     `json:"quantity_transferred"`
	StockBefore         float64 `json:"stock_before"`
	StockAfter          float64 `json:"stock_after"`
	Success             bool    `json:"success"`
	ErrorMessage        *string `json:"error_message,omitempty"`
}

// TransferResponse is the envelope for prepare and confirm calls.
type TransferResponse struct {
	Success          bool                    `json:"success"`
	Message          string                  `json:"message"`
	XMLContent       string                  `json:"xml_content,omitempty"`
	PDFContent       string                  `json:"pdf_content,omitempty"` // base64
	PDFFilename      string                  `json:"pdf_filename,omitempty"`
	ProcessedCount   int                     `json:"processed_count"`
	InventoryReduced bool                    `json:"inventory_reduced"`
	Products         []TransferProductDetail `json:"products,omitempty"`
}

// Validation error types surfaced per line.
const (
	ValidationNotFound          = "not_found"
	ValidationInsufficientStock = "insufficient_stock"
	ValidationExceedsLimit      = "exceeds_limit"
)

// TransferValidationError describes one rejected line with its numeric
// context so clients can handle it programmatically.
type TransferValidationError struct {
	Barcode            string   `json:"barcode"`
	ProductName        string   `json:"product_name"`
	ErrorType          string   `json:"error_type"` // not_found | insufficient_stock | exceeds_limit
	RequestedQuantity  int      `json:"requested_quantity"`
	AvailableQuantity  float64  `json:"available_quantity"`
	MaxAllowedQuantity *float64 `json:"max_allowed_quantity,omitempty"`
}

// TransferValidationResponse is the dry-run validation result.
type TransferValidationResponse struct {
	Valid    bool                      `json:"valid"`
	Errors   []TransferValidationError `json:"errors"`
	Warnings []string                  `json:"warnings"`
}

// PendingTransferItemResponse mirrors one persisted line.
type PendingTransferItemResponse struct {
	ID             string          `json:"id"`
	Barcode        string          `json:"barcode"`
	ProductID      int             `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"available_stock"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// PendingTransferResponse mirrors one persisted transfer header.
type PendingTransferResponse struct {
	ID              string                        `json:"id"`
	UserID          *string                       `json:"user_id,omitempty"`
	Username        string                        `json:"username"`
	CreatedByRole   string                        `json:"created_by_role"`
	Status          string                        `json:"status"`
	DestinationID   string                        `json:"destination_id"`
	DestinationName string                        `json:"destination_name"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
	VerifiedAt      *time.Time                    `json:"verified_at,omitempty"`
	VerifiedBy      *string                       `json:"verified_by,omitempty"`
	ConfirmedAt     *time.Time                    `json:"confirmed_at,omitempty"`
	ConfirmedBy     *string                       `json:"confirmed_by,omitempty"`
	Items           []PendingTransferItemResponse `json:"items"`
}

// PendingTransferListResponse wraps the role-filtered pending list.
type PendingTransferListResponse struct {
	Transfers []PendingTransferResponse `json:"transfers"`
	Total     int                       `json:"total"`
}
