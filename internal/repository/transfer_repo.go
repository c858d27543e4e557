package repository

import (
	"context"
	"errors"
	"time"

	"stocklink/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStatusConflict means a guarded status update matched no row: either the
// transfer does not exist or another caller already moved it out of the
// expected state.
var ErrStatusConflict = errors.New("transfer status conflict")

type TransferRepository interface {
	Create(ctx context.Context, t *model.Transfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error)
	ListByStatus(ctx context.Context, statuses ...model.TransferStatus) ([]model.Transfer, error)
	ListByUsername(ctx context.Context, username string) ([]model.Transfer, error)
	// ReplaceItems swaps the header's whole line set in one transaction and
	// stamps the verifier, moving the transfer to PENDING.
	ReplaceItems(ctx context.Context, id uuid.UUID, items []model.TransferItem, verifiedBy string) error
	// UpdateStatus performs a guarded transition: the UPDATE only matches rows
	// still in `from`, so concurrent confirms cannot double-execute.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.TransferStatus, actor string) error
}

type transferRepo struct{ db *gorm.DB }

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepo{db: db}
}

func (r *transferRepo) Create(ctx context.Context, t *model.Transfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transferRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	var t model.Transfer
	err := r.db.WithContext(ctx).Preload("Items").First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) ListByStatus(ctx context.Context, statuses ...model.TransferStatus) ([]model.Transfer, error) {
	var out []model.Transfer
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status IN ?", statuses).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *transferRepo) ListByUsername(ctx context.Context, username string) ([]model.Transfer, error) {
	var out []model.Transfer
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("username = ?", username).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *transferRepo) ReplaceItems(ctx context.Context, id uuid.UUID, items []model.TransferItem, verifiedBy string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transfer_id = ?", id).Delete(&model.TransferItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].TransferID = id
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Transfer{}).
			Where("id = ? AND status = ?", id, model.StatusPendingVerification).
			Updates(map[string]any{
				"status":      model.StatusPending,
				"verified_at": now,
				"verified_by": verifiedBy,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return nil
	})
}

func (r *transferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.TransferStatus, actor string) error {
	now := time.Now()
	values := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case model.StatusConfirmed:
		values["confirmed_at"] = now
		values["confirmed_by"] = actor
	case model.StatusCancelled:
		// cancel keeps the row; only the status and timestamp move
	}

	res := r.db.WithContext(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
