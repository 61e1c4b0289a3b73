package infra

import (
	"fmt"

	"zerostress/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates the
// schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables, then applies the constraints
// AutoMigrate cannot express. Safe to re-run.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Caja{},
		&model.MovimientoCaja{},
		&model.Llave{},
		&model.Cuenta{},
		&model.CargoCuenta{},
		&model.CuentaLlave{},
		&model.Pago{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements guarded by existence
// checks so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// amounts carry no sign: the sign lives in tipo
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimientos_caja_amount_positive') THEN
		    ALTER TABLE movimientos_caja ADD CONSTRAINT chk_movimientos_caja_amount_positive CHECK (amount > 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_llaves_number_range') THEN
		    ALTER TABLE llaves ADD CONSTRAINT chk_llaves_number_range CHECK (number BETWEEN 1 AND 16);
		  END IF;
		END $$`,
		// at most one open account per locker
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cuenta_llaves_activa
		    ON cuenta_llaves (llave_id) WHERE released_at IS NULL`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
