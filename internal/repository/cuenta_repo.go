package repository

import (
	"context"
	"time"

	"zerostress/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CuentaLlaveFinder looks up the account link that still holds a locker key.
type CuentaLlaveFinder interface {
	// FindActiveLlave returns the unreleased link for llaveID, or
	// apierror.ErrNotFound when no account holds it.
	FindActiveLlave(ctx context.Context, llaveID string) (*model.CuentaLlave, error)
}

type CuentaRepository interface {
	CuentaLlaveFinder
	// Create inserts the account with its charges and links. A locker already
	// linked to another open account yields ErrDuplicate.
	Create(ctx context.Context, c *model.Cuenta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cuenta, error)
	// List filters by estado when non-empty, most recently opened first.
	List(ctx context.Context, estado string) ([]model.Cuenta, error)
	// Update saves the account row only; charges and keys have their own calls.
	Update(ctx context.Context, c *model.Cuenta) error
	AddCargo(ctx context.Context, cargo *model.CargoCuenta) error
	AddLlave(ctx context.Context, l *model.CuentaLlave) error
	ReleaseLlave(ctx context.Context, cuentaID uuid.UUID, llaveID string, at time.Time) error
}

type cuentaRepo struct{ db *gorm.DB }

func NewCuentaRepository(db *gorm.DB) CuentaRepository { return &cuentaRepo{db: db} }

func (r *cuentaRepo) Create(ctx context.Context, c *model.Cuenta) error {
	return translate(r.db.WithContext(ctx).Create(c).Error, "cuenta "+c.ID.String())
}

func (r *cuentaRepo) FindActiveLlave(ctx context.Context, llaveID string) (*model.CuentaLlave, error) {
	var l model.CuentaLlave
	err := r.db.WithContext(ctx).
		Where("llave_id = ? AND released_at IS NULL", llaveID).
		First(&l).Error
	if err != nil {
		return nil, translate(err, "vínculo de la llave "+llaveID)
	}
	return &l, nil
}

func (r *cuentaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cuenta, error) {
	var c model.Cuenta
	err := r.db.WithContext(ctx).
		Preload("Cargos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Llaves", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "cuenta "+id.String())
	}
	return &c, nil
}

func (r *cuentaRepo) List(ctx context.Context, estado string) ([]model.Cuenta, error) {
	var cuentas []model.Cuenta
	q := r.db.WithContext(ctx).Preload("Llaves").Order("opened_at DESC")
	if estado != "" {
		q = q.Where("estado = ?", estado)
	}
	err := q.Find(&cuentas).Error
	return cuentas, err
}

func (r *cuentaRepo) Update(ctx context.Context, c *model.Cuenta) error {
	return r.db.WithContext(ctx).Omit("Cargos", "Llaves").Save(c).Error
}

func (r *cuentaRepo) AddCargo(ctx context.Context, cargo *model.CargoCuenta) error {
	return r.db.WithContext(ctx).Create(cargo).Error
}

func (r *cuentaRepo) AddLlave(ctx context.Context, l *model.CuentaLlave) error {
	return translate(r.db.WithContext(ctx).Create(l).Error, "llave "+l.Code)
}

func (r *cuentaRepo) ReleaseLlave(ctx context.Context, cuentaID uuid.UUID, llaveID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.CuentaLlave{}).
		Where("cuenta_id = ? AND llave_id = ? AND released_at IS NULL", cuentaID, llaveID).
		Update("released_at", at).Error
}
