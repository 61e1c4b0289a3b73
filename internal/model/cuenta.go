package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CuentaAbierta = "abierta"
	CuentaCerrada = "cerrada"
)

// Cargo kinds. CargoKey lines are audit entries and always carry a zero subtotal.
const (
	CargoProduct  = "Product"
	CargoEntrance = "Entrance"
	CargoParking  = "Parking"
	CargoKey      = "Key"
	CargoOther    = "Other"
)

// Cuenta is a POS account (tab) opened for a client.
type Cuenta struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Cliente   string          `gorm:"not null"`
	ClienteID *string         `gorm:"type:varchar(64)"`
	Estado    string          `gorm:"type:varchar(20);not null;default:'abierta';index"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	OpenedAt  time.Time
	OpenedBy  string `gorm:"not null"`
	ClosedAt  *time.Time
	ClosedBy  *string
	TipoPago  *string `gorm:"type:varchar(30)"`
	PagoID    *string `gorm:"type:varchar(64)"`

	Cargos []CargoCuenta `gorm:"foreignKey:CuentaID"`
	Llaves []CuentaLlave `gorm:"foreignKey:CuentaID"`
}

func (Cuenta) TableName() string { return "cuentas" }

// CargoCuenta is a charge line on an account.
type CargoCuenta struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Kind           string          `gorm:"type:varchar(20);not null"`
	Concepto       string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null;default:1"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time
}

func (CargoCuenta) TableName() string { return "cargos_cuenta" }

// CuentaLlave links an account to a locker it holds. ReleasedAt is set when
// the locker is given back, either explicitly or on account close.
type CuentaLlave struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaID   uuid.UUID `gorm:"type:uuid;index;not null"`
	LlaveID    string    `gorm:"type:varchar(64);not null"`
	Code       string    `gorm:"type:varchar(4);not null"`
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

func (CuentaLlave) TableName() string { return "cuenta_llaves" }

// LlavesActivas returns the lockers the account still holds.
func (c *Cuenta) LlavesActivas() []CuentaLlave {
	var out []CuentaLlave
	for _, l := range c.Llaves {
		if l.ReleasedAt == nil {
			out = append(out, l)
		}
	}
	return out
}
