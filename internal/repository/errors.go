package repository

import (
	"errors"
	"fmt"

	"zerostress/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("registro duplicado")
	// ErrConflict is returned when a compare-and-swap update finds the row
	// changed since it was read.
	ErrConflict = errors.New("el registro cambió desde la última lectura")
)

// translate maps driver errors onto the repository contract: missing rows
// become apierror.ErrNotFound and unique violations ErrDuplicate.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apierror.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return err
}
