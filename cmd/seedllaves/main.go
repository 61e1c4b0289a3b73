// cmd/seedllaves/main.go: creates the 32 locker keys (16 Hombres + 16 Mujeres)
// in the database named by DATABASE_URL (.env or environment, same loader as
// the server). Existing keys are left untouched.
// Uso: go run ./cmd/seedllaves
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"zerostress/internal/config"
	"zerostress/internal/infra"
	"zerostress/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.UsesRemote() {
		log.Warn().Str("data_source", cfg.DataSource).Msg("seeding the local database although keys are served remotely")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	llaves := make([]model.Llave, 0, 2*model.LockersPorZona)
	for _, zona := range []string{model.ZonaHombres, model.ZonaMujeres} {
		for n := 1; n <= model.LockersPorZona; n++ {
			llaves = append(llaves, model.Llave{
				ID:        seedID(zona, n),
				Zone:      zona,
				Number:    n,
				Available: true,
			})
		}
	}

	result := db.WithContext(context.Background()).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&llaves)
	if result.Error != nil {
		log.Fatal().Err(result.Error).Msg("insert error")
	}
	fmt.Printf("%d llaves creadas (%d ya existían)\n", result.RowsAffected, int64(len(llaves))-result.RowsAffected)
}

// seedID keeps ids sortable in board order so the positional fallback
// agrees with the explicit zone/number.
func seedID(zona string, n int) string {
	prefix := "h"
	if zona == model.ZonaMujeres {
		prefix = "m"
	}
	return fmt.Sprintf("%s%02d", prefix, n)
}
