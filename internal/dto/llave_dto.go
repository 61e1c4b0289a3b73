package dto

import "time"

const (
	LockerDisponible = "disponible"
	LockerOcupada    = "ocupada"
)

// LockerView is the board representation of one locker.
type LockerView struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Zone       string     `json:"zone"`
	Number     int        `json:"number"`
	Status     string     `json:"status"`
	Available  bool       `json:"available"`
	AssignedTo *string    `json:"assigned_to"`
	Since      *time.Time `json:"since"`
}

// TableroResponse groups the board by zone, each zone ordered by number.
type TableroResponse struct {
	Hombres     []LockerView `json:"hombres"`
	Mujeres     []LockerView `json:"mujeres"`
	Disponibles int          `json:"disponibles"`
	Ocupadas    int          `json:"ocupadas"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type ActualizarLlaveRequest struct {
	Available          bool    `json:"available"`
	LastAssignedClient *string `json:"last_assigned_client"`
	Notes              *string `json:"notes"`
}

type AsignarLlaveRequest struct {
	Cliente string `json:"cliente" validate:"required"`
	Notas   string `json:"notas"`
}
