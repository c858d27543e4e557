package dto

import (
	"time"

	"stocklink/internal/model"

	"github.com/shopspring/decimal"
)

// HistoryItemResponse is one per-line outcome row of a history record.
type HistoryItemResponse struct {
	Barcode                string          `json:"barcode"`
	ProductID              int             `json:"product_id"`
	ProductName            string          `json:"product_name"`
	QuantityRequested      int             `json:"quantity_requested"`
	QuantityTransferred    int             `json:"quantity_transferred"`
	Success                bool            `json:"success"`
	ErrorMessage           *string         `json:"error_message,omitempty"`
	StockOriginBefore      *int            `json:"stock_origin_before,omitempty"`
	StockOriginAfter       *int            `json:"stock_origin_after,omitempty"`
	StockDestinationBefore *int            `json:"stock_destination_before,omitempty"`
	StockDestinationAfter  *int            `json:"stock_destination_after,omitempty"`
	UnitPrice              decimal.Decimal `json:"unit_price"`
	TotalValue             decimal.Decimal `json:"total_value"`
	IsNewProduct           bool            `json:"is_new_product"`
}

// HistoryDetailResponse is one fully expanded history record.
type HistoryDetailResponse struct {
	ID                       string                  `json:"id"`
	TransferID               *string                 `json:"transfer_id,omitempty"`
	OriginLocation           string                  `json:"origin_location"`
	DestinationID            string                  `json:"destination_id"`
	DestinationName          string                  `json:"destination_name"`
	ExecutedBy               string                  `json:"executed_by"`
	ExecutedAt               time.Time               `json:"executed_at"`
	TotalItems               int                     `json:"total_items"`
	SuccessfulItems          int                     `json:"successful_items"`
	FailedItems              int                     `json:"failed_items"`
	TotalQuantityRequested   int                     `json:"total_quantity_requested"`
	TotalQuantityTransferred int                     `json:"total_quantity_transferred"`
	HasErrors                bool                    `json:"has_errors"`
	ErrorSummary             string                  `json:"error_summary,omitempty"`
	PDFFilename              string                  `json:"pdf_filename,omitempty"`
	Items                    []HistoryItemResponse   `json:"items"`
	OriginBefore             []model.ProductSnapshot `json:"origin_snapshots_before"`
	OriginAfter              []model.ProductSnapshot `json:"origin_snapshots_after"`
	DestinationBefore        []model.ProductSnapshot `json:"destination_snapshots_before"`
	DestinationAfter         []model.ProductSnapshot `json:"destination_snapshots_after"`
	NewProducts              []model.ProductSnapshot `json:"new_products"`
}

// HistoryFeedEntry is one row of the merged history feed. Confirmed transfers
// appear through their history record; transfers still in flight (or
// cancelled) appear through their header.
type HistoryFeedEntry struct {
	// Source is "history" or "pending" depending on which store produced it.
	Source          string    `json:"source"`
	ID              string    `json:"id"`
	TransferID      *string   `json:"transfer_id,omitempty"`
	Status          string    `json:"status"`
	Username        string    `json:"username"`
	DestinationID   string    `json:"destination_id"`
	DestinationName string    `json:"destination_name"`
	Timestamp       time.Time `json:"timestamp"`
	TotalItems      int       `json:"total_items"`
	SuccessfulItems int       `json:"successful_items"`
	FailedItems     int       `json:"failed_items"`
	TotalQuantity   int       `json:"total_quantity"`
	HasErrors       bool      `json:"has_errors"`
}

// HistoryFeedResponse wraps the merged, time-ordered feed.
type HistoryFeedResponse struct {
	Entries []HistoryFeedEntry `json:"entries"`
	Total   int                `json:"total"`
}

// ProductSearchMatch is one history item matching a product search.
type ProductSearchMatch struct {
	HistoryID       string              `json:"history_id"`
	ExecutedAt      time.Time           `json:"executed_at"`
	ExecutedBy      string              `json:"executed_by"`
	DestinationName string              `json:"destination_name"`
	Item            HistoryItemResponse `json:"item"`
}

// ProductSearchResponse wraps product search results across history.
type ProductSearchResponse struct {
	Matches []ProductSearchMatch `json:"matches"`
	Total   int                  `json:"total"`
}
