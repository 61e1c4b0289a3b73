package repository

import (
	"context"

	"zerostress/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CajaRepository persists register-days and their manual moves.
// Missing rows are reported as apierror.ErrNotFound.
type CajaRepository interface {
	FindByDate(ctx context.Context, dateKey string) (*model.Caja, error)
	Create(ctx context.Context, c *model.Caja) error
	Update(ctx context.Context, c *model.Caja) error
	ListDates(ctx context.Context) ([]string, error)

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	// ListMovimientos returns the day's manual moves, most recent first.
	ListMovimientos(ctx context.Context, dateKey string) ([]model.MovimientoCaja, error)
	// DeleteMovimiento is a no-op when the move does not exist.
	DeleteMovimiento(ctx context.Context, dateKey string, id uuid.UUID) error
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) FindByDate(ctx context.Context, dateKey string) (*model.Caja, error) {
	var c model.Caja
	err := r.db.WithContext(ctx).Where("date_key = ?", dateKey).First(&c).Error
	if err != nil {
		return nil, translate(err, "caja "+dateKey)
	}
	return &c, nil
}

func (r *cajaRepo) Create(ctx context.Context, c *model.Caja) error {
	return translate(r.db.WithContext(ctx).Create(c).Error, "caja "+c.DateKey)
}

func (r *cajaRepo) Update(ctx context.Context, c *model.Caja) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *cajaRepo) ListDates(ctx context.Context) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).Model(&model.Caja{}).Order("date_key DESC").Pluck("date_key", &dates).Error
	return dates, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, dateKey string) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("date_key = ?", dateKey).
		Order("created_at DESC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) DeleteMovimiento(ctx context.Context, dateKey string, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("date_key = ? AND id = ? AND source = ?", dateKey, id, model.SourceManual).
		Delete(&model.MovimientoCaja{}).Error
}
