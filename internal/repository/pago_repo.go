package repository

import (
	"context"

	"zerostress/internal/model"

	"gorm.io/gorm"
)

// PagoRepository is the storage contract for payments. Adapters: Postgres
// (this file) and the external API (remote_pago_repo.go).
type PagoRepository interface {
	List(ctx context.Context) ([]model.Pago, error)
	Create(ctx context.Context, p *model.Pago) error
	// FindByTransactionID returns the payment recorded for txID, or
	// apierror.ErrNotFound.
	FindByTransactionID(ctx context.Context, txID string) (*model.Pago, error)
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) List(ctx context.Context) ([]model.Pago, error) {
	var pagos []model.Pago
	err := r.db.WithContext(ctx).Order("paid_at DESC NULLS LAST").Find(&pagos).Error
	return pagos, err
}

func (r *pagoRepo) Create(ctx context.Context, p *model.Pago) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "pago "+p.ID)
}

func (r *pagoRepo) FindByTransactionID(ctx context.Context, txID string) (*model.Pago, error) {
	var p model.Pago
	err := r.db.WithContext(ctx).Where("transaction_id = ?", txID).First(&p).Error
	if err != nil {
		return nil, translate(err, "pago de la transacción "+txID)
	}
	return &p, nil
}
