package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CajaAbierta = "Abierta"
	CajaCerrada = "Cerrada"
)

// Caja is one register-day. At most one per DateKey (YYYY-MM-DD, local time).
// Estado moves Abierta → Cerrada and never back.
type Caja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DateKey       string          `gorm:"type:varchar(10);uniqueIndex;not null"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'Abierta'"`
	OpenedAt      time.Time
	OpenedBy      string          `gorm:"not null"`
	OpeningAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// Populated only on close
	ClosedAt    *time.Time
	ClosedBy    *string
	CountedCash *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Note        *string
}

func (Caja) TableName() string { return "cajas" }

// IsOpen reports whether manual moves may still be added or removed.
func (c *Caja) IsOpen() bool { return c.Estado == CajaAbierta }

const (
	MovIngreso = "Ingreso"
	MovEgreso  = "Egreso"

	SourceManual  = "Manual"
	SourcePayment = "Payment"
)

// MovimientoCaja is an operator-entered cash move. Amount is always positive;
// the sign is carried by Tipo. Moves are never edited, only deleted while the
// day's Caja is open.
type MovimientoCaja struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DateKey   string          `gorm:"type:varchar(10);index;not null"`
	Tipo      string          `gorm:"type:varchar(10);not null"`
	Source    string          `gorm:"type:varchar(10);not null;default:'Manual'"`
	Concept   string          `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"index"`
	CreatedBy string          `gorm:"not null"`
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
