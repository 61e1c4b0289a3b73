package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pago is a recorded payment. A negative Total is a refund. PaidAt is nil
// when the source record carried no usable date.
type Pago struct {
	ID            string          `gorm:"type:varchar(64);primaryKey"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentType   string          `gorm:"type:varchar(30)"`
	Bank          *string
	Reference     *string
	TransactionID *string    `gorm:"type:varchar(64)"`
	PaidAt        *time.Time `gorm:"index"`
}

func (Pago) TableName() string { return "pagos" }
