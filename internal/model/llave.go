package model

import "time"

const (
	ZonaHombres = "Hombres"
	ZonaMujeres = "Mujeres"

	LockersPorZona = 16
)

// Llave is one locker key. Zone and Number are explicit attributes; the
// legacy remote entities may lack them (zero values), in which case the board
// falls back to positional derivation.
type Llave struct {
	ID                 string     `gorm:"type:varchar(64);primaryKey"`
	Zone               string     `gorm:"type:varchar(10);uniqueIndex:idx_llaves_zone_number"`
	Number             int        `gorm:"uniqueIndex:idx_llaves_zone_number"`
	Available          bool       `gorm:"not null;default:true"`
	LastAssignedClient *string
	Notes              *string
	AssignedAt         *time.Time
	// Version is bumped on every write; updates are compare-and-swap on it.
	Version   int `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (Llave) TableName() string { return "llaves" }
