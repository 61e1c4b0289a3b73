package repository

import (
	"context"
	"fmt"

	"zerostress/internal/model"

	"gorm.io/gorm"
)

// LlaveRepository is the storage contract for locker keys. Adapters: Postgres
// (this file) and the external API (remote_llave_repo.go).
type LlaveRepository interface {
	List(ctx context.Context) ([]model.Llave, error)
	FindByID(ctx context.Context, id string) (*model.Llave, error)
	// CompareAndSwap writes next only if the stored key still matches
	// expected; otherwise it returns ErrConflict.
	CompareAndSwap(ctx context.Context, expected model.Llave, next *model.Llave) error
}

type llaveRepo struct{ db *gorm.DB }

func NewLlaveRepository(db *gorm.DB) LlaveRepository { return &llaveRepo{db: db} }

func (r *llaveRepo) List(ctx context.Context) ([]model.Llave, error) {
	var llaves []model.Llave
	err := r.db.WithContext(ctx).Order("zone ASC, number ASC").Find(&llaves).Error
	return llaves, err
}

func (r *llaveRepo) FindByID(ctx context.Context, id string) (*model.Llave, error) {
	var l model.Llave
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err, "llave "+id)
	}
	return &l, nil
}

func (r *llaveRepo) CompareAndSwap(ctx context.Context, expected model.Llave, next *model.Llave) error {
	res := r.db.WithContext(ctx).Model(&model.Llave{}).
		Where("id = ? AND version = ?", expected.ID, expected.Version).
		Updates(map[string]interface{}{
			"available":            next.Available,
			"last_assigned_client": next.LastAssignedClient,
			"notes":                next.Notes,
			"assigned_at":          next.AssignedAt,
			"version":              gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("llave %s: %w", expected.ID, ErrConflict)
	}
	next.Version = expected.Version + 1
	return nil
}
