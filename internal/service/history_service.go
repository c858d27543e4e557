package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"stocklink/internal/dto"
	"stocklink/internal/infra"
	"stocklink/internal/model"
	"stocklink/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	feedCacheKey = "stocklink:history:feed"
	feedCacheTTL = 30 * time.Second
)

type HistoryService interface {
	// Feed returns the merged movement feed: executed history records plus
	// transfer headers that have no history record yet (or never will, for
	// cancellations), newest first.
	Feed(ctx context.Context) (*dto.HistoryFeedResponse, error)
	// FeedForUser is the caller-scoped variant of Feed.
	FeedForUser(ctx context.Context, username string) (*dto.HistoryFeedResponse, error)
	Detail(ctx context.Context, id uuid.UUID) (*dto.HistoryDetailResponse, error)
	// PDF returns the stored audit report bytes and filename.
	PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	SearchProducts(ctx context.Context, query string, searchType repository.ProductSearchType) (*dto.ProductSearchResponse, error)
	// ExportWorkbook renders the merged feed as an xlsx workbook.
	ExportWorkbook(ctx context.Context) ([]byte, string, error)
}

type historyService struct {
	history   repository.HistoryRepository
	transfers repository.TransferRepository
	rdb       *redis.Client // optional read cache for the feed
}

func NewHistoryService(history repository.HistoryRepository, transfers repository.TransferRepository, rdb *redis.Client) HistoryService {
	return &historyService{history: history, transfers: transfers, rdb: rdb}
}

func (s *historyService) Feed(ctx context.Context) (*dto.HistoryFeedResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, feedCacheKey).Bytes(); err == nil {
			var resp dto.HistoryFeedResponse
			if json.Unmarshal(cached, &resp) == nil {
				return &resp, nil
			}
		}
	}

	resp, err := s.buildFeed(ctx, "")
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, feedCacheKey, payload, feedCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("history feed cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *historyService) FeedForUser(ctx context.Context, username string) (*dto.HistoryFeedResponse, error) {
	return s.buildFeed(ctx, username)
}

// buildFeed merges history records with transfer headers. A confirmed header
// whose confirmation already produced a history record is suppressed so the
// movement never appears twice.
func (s *historyService) buildFeed(ctx context.Context, username string) (*dto.HistoryFeedResponse, error) {
	var (
		records []model.TransferHistory
		err     error
	)
	if username == "" {
		records, err = s.history.List(ctx)
	} else {
		records, err = s.history.ListByUser(ctx, username)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]dto.HistoryFeedEntry, 0, len(records))
	covered := make(map[uuid.UUID]bool)
	for _, rec := range records {
		entry := dto.HistoryFeedEntry{
			Source:          "history",
			ID:              rec.ID.String(),
			Status:          string(model.StatusConfirmed),
			Username:        rec.ExecutedBy,
			DestinationID:   rec.DestinationID,
			DestinationName: rec.DestinationName,
			Timestamp:       rec.ExecutedAt,
			TotalItems:      rec.TotalItems,
			SuccessfulItems: rec.SuccessfulItems,
			FailedItems:     rec.FailedItems,
			TotalQuantity:   rec.TotalQuantityTransferred,
			HasErrors:       rec.HasErrors,
		}
		if rec.TransferID != nil {
			id := rec.TransferID.String()
			entry.TransferID = &id
			covered[*rec.TransferID] = true
		}
		entries = append(entries, entry)
	}

	var headers []model.Transfer
	if username == "" {
		headers, err = s.transfers.ListByStatus(ctx,
			model.StatusPendingVerification, model.StatusPending,
			model.StatusConfirmed, model.StatusCancelled)
	} else {
		headers, err = s.transfers.ListByUsername(ctx, username)
	}
	if err != nil {
		return nil, err
	}

	for i := range headers {
		h := &headers[i]
		// Confirmed headers normally ride along with their history record; a
		// header-only confirmed row means the history write failed and the
		// header is the only surviving evidence.
		if covered[h.ID] {
			continue
		}
		id := h.ID.String()
		entries = append(entries, dto.HistoryFeedEntry{
			Source:          "pending",
			ID:              id,
			TransferID:      &id,
			Status:          string(h.Status),
			Username:        h.Username,
			DestinationID:   h.DestinationID,
			DestinationName: h.DestinationName,
			Timestamp:       h.UpdatedAt,
			TotalItems:      len(h.Items),
			TotalQuantity:   h.TotalQuantity(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return &dto.HistoryFeedResponse{Entries: entries, Total: len(entries)}, nil
}

func (s *historyService) Detail(ctx context.Context, id uuid.UUID) (*dto.HistoryDetailResponse, error) {
	rec, err := s.history.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.HistoryDetailResponse{
		ID:                       rec.ID.String(),
		OriginLocation:           rec.OriginLocation,
		DestinationID:            rec.DestinationID,
		DestinationName:          rec.DestinationName,
		ExecutedBy:               rec.ExecutedBy,
		ExecutedAt:               rec.ExecutedAt,
		TotalItems:               rec.TotalItems,
		SuccessfulItems:          rec.SuccessfulItems,
		FailedItems:              rec.FailedItems,
		TotalQuantityRequested:   rec.TotalQuantityRequested,
		TotalQuantityTransferred: rec.TotalQuantityTransferred,
		HasErrors:                rec.HasErrors,
		ErrorSummary:             rec.ErrorSummary,
		PDFFilename:              rec.PDFFilename,
		Items:                    []dto.HistoryItemResponse{},
		OriginBefore:             unmarshalSnapshots(rec.OriginBefore),
		OriginAfter:              unmarshalSnapshots(rec.OriginAfter),
		DestinationBefore:        unmarshalSnapshots(rec.DestinationBefore),
		DestinationAfter:         unmarshalSnapshots(rec.DestinationAfter),
		NewProducts:              unmarshalSnapshots(rec.NewProducts),
	}
	if rec.TransferID != nil {
		tid := rec.TransferID.String()
		resp.TransferID = &tid
	}
	for _, item := range rec.Items {
		resp.Items = append(resp.Items, toHistoryItemResponse(item))
	}
	return resp, nil
}

func (s *historyService) PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	rec, err := s.history.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec.PDFContent == "" {
		return nil, "", fmt.Errorf("history record %s has no stored report", id)
	}
	pdf, err := base64.StdEncoding.DecodeString(rec.PDFContent)
	if err != nil {
		return nil, "", fmt.Errorf("stored report is corrupt: %w", err)
	}
	return pdf, rec.PDFFilename, nil
}

func (s *historyService) SearchProducts(ctx context.Context, query string, searchType repository.ProductSearchType) (*dto.ProductSearchResponse, error) {
	items, parents, err := s.history.SearchItems(ctx, query, searchType)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProductSearchResponse{Matches: []dto.ProductSearchMatch{}}
	for _, item := range items {
		match := dto.ProductSearchMatch{
			HistoryID: item.HistoryID.String(),
			Item:      toHistoryItemResponse(item),
		}
		if parent, ok := parents[item.HistoryID]; ok {
			match.ExecutedAt = parent.ExecutedAt
			match.ExecutedBy = parent.ExecutedBy
			match.DestinationName = parent.DestinationName
		}
		resp.Matches = append(resp.Matches, match)
	}
	resp.Total = len(resp.Matches)
	return resp, nil
}

func (s *historyService) ExportWorkbook(ctx context.Context) ([]byte, string, error) {
	feed, err := s.buildFeed(ctx, "")
	if err != nil {
		return nil, "", err
	}
	book, err := infra.GenerateHistoryWorkbook(feed.Entries)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("transfer_history_%s.xlsx", time.Now().Format("20060102_150405"))
	return book, filename, nil
}

func toHistoryItemResponse(item model.TransferHistoryItem) dto.HistoryItemResponse {
	return dto.HistoryItemResponse{
		Barcode:                item.Barcode,
		ProductID:              item.ProductID,
		ProductName:            item.ProductName,
		QuantityRequested:      item.QuantityRequested,
		QuantityTransferred:    item.QuantityTransferred,
		Success:                item.Success,
		ErrorMessage:           item.ErrorMessage,
		StockOriginBefore:      item.StockOriginBefore,
		StockOriginAfter:       item.StockOriginAfter,
		StockDestinationBefore: item.StockDestinationBefore,
		StockDestinationAfter:  item.StockDestinationAfter,
		UnitPrice:              item.UnitPrice,
		TotalValue:             item.TotalValue,
		IsNewProduct:           item.IsNewProduct,
	}
}

func unmarshalSnapshots(raw string) []model.ProductSnapshot {
	out := []model.ProductSnapshot{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn().Err(err).Msg("stored snapshot array is corrupt")
	}
	return out
}
