package repository

import (
	"context"

	"stocklink/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSearchType selects which item fields a history product search scans.
type ProductSearchType string

const (
	SearchByBarcode ProductSearchType = "barcode"
	SearchByName    ProductSearchType = "name"
	SearchByBoth    ProductSearchType = "both"
)

type HistoryRepository interface {
	// Create persists a history record with its items; the record is never
	// mutated afterwards.
	Create(ctx context.Context, h *model.TransferHistory) error
	List(ctx context.Context) ([]model.TransferHistory, error)
	ListByUser(ctx context.Context, username string) ([]model.TransferHistory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.TransferHistory, error)
	// SearchItems scans per-line outcome rows by product barcode and/or name
	// and returns them with their parent records resolved.
	SearchItems(ctx context.Context, query string, searchType ProductSearchType) ([]model.TransferHistoryItem, map[uuid.UUID]model.TransferHistory, error)
}

type historyRepo struct{ db *gorm.DB }

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Create(ctx context.Context, h *model.TransferHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *historyRepo) List(ctx context.Context) ([]model.TransferHistory, error) {
	var out []model.TransferHistory
	err := r.db.WithContext(ctx).
		Order("executed_at DESC").
		Find(&out).Error
	return out, err
}

func (r *historyRepo) ListByUser(ctx context.Context, username string) ([]model.TransferHistory, error) {
	var out []model.TransferHistory
	err := r.db.WithContext(ctx).
		Where("executed_by = ?", username).
		Order("executed_at DESC").
		Find(&out).Error
	return out, err
}

func (r *historyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.TransferHistory, error) {
	var h model.TransferHistory
	err := r.db.WithContext(ctx).Preload("Items").First(&h, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *historyRepo) SearchItems(ctx context.Context, query string, searchType ProductSearchType) ([]model.TransferHistoryItem, map[uuid.UUID]model.TransferHistory, error) {
	pattern := "%" + query + "%"

	q := r.db.WithContext(ctx).Model(&model.TransferHistoryItem{})
	switch searchType {
	case SearchByBarcode:
		q = q.Where("barcode LIKE ?", pattern)
	case SearchByName:
		q = q.Where("product_name ILIKE ?", pattern)
	default:
		q = q.Where("barcode LIKE ? OR product_name ILIKE ?", pattern, pattern)
	}

	var items []model.TransferHistoryItem
	if err := q.Order("created_at DESC").Limit(200).Find(&items).Error; err != nil {
		return nil, nil, err
	}

	parents := make(map[uuid.UUID]model.TransferHistory, len(items))
	if len(items) > 0 {
		ids := make([]uuid.UUID, 0, len(items))
		seen := make(map[uuid.UUID]bool, len(items))
		for _, item := range items {
			if !seen[item.HistoryID] {
				seen[item.HistoryID] = true
				ids = append(ids, item.HistoryID)
			}
		}
		var records []model.TransferHistory
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
			return nil, nil, err
		}
		for _, rec := range records {
			parents[rec.ID] = rec
		}
	}
	return items, parents, nil
}
