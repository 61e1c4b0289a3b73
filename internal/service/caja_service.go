package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/model"
	"zerostress/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CajaService is the day-scoped cash ledger: one Caja per dateKey, manual
// moves entered by operators, and moves derived on read from payments.
type CajaService interface {
	// Obtener returns nil, nil when the day has no cashbox.
	Obtener(ctx context.Context, fecha string) (*dto.CajaResponse, error)
	Abrir(ctx context.Context, req dto.AbrirCajaRequest) (*dto.CajaResponse, error)
	Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	ListarManuales(ctx context.Context, fecha string) ([]dto.CashMove, error)
	AgregarManual(ctx context.Context, req dto.MovimientoManualRequest) (*dto.CashMove, error)
	EliminarManual(ctx context.Context, fecha string, id uuid.UUID) error
	ListarPagos(ctx context.Context, fecha string) ([]dto.CashMove, error)
	Resumen(ctx context.Context, fecha string) (*dto.ResumenCajaResponse, error)
	ListarFechas(ctx context.Context) ([]string, error)
}

// CierreNotifier is told about every successful close (report generation).
type CierreNotifier interface {
	EnqueueCierre(ctx context.Context, dateKey string) error
}

type cajaService struct {
	repo     repository.CajaRepository
	pagos    repository.PagoRepository
	notifier CierreNotifier
	loc      *time.Location
	locks    *keyLock
	now      func() time.Time
}

// NewCajaService builds the ledger. notifier may be nil.
func NewCajaService(repo repository.CajaRepository, pagos repository.PagoRepository, notifier CierreNotifier, loc *time.Location) CajaService {
	if loc == nil {
		loc = time.Local
	}
	return &cajaService{
		repo:     repo,
		pagos:    pagos,
		notifier: notifier,
		loc:      loc,
		locks:    newKeyLock(),
		now:      time.Now,
	}
}

// ── Obtener ───────────────────────────────────────────────────────────────────

func (s *cajaService) Obtener(ctx context.Context, fecha string) (*dto.CajaResponse, error) {
	if _, err := parseDateKey(fecha, s.loc); err != nil {
		return nil, err
	}
	caja, err := s.repo.FindByDate(ctx, fecha)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cajaToResponse(caja), nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// Repeat-open of an open day returns the existing box untouched. A closed day
// cannot be reopened.

func (s *cajaService) Abrir(ctx context.Context, req dto.AbrirCajaRequest) (*dto.CajaResponse, error) {
	if _, err := parseDateKey(req.DateKey, s.loc); err != nil {
		return nil, err
	}
	if req.OpeningAmount.IsNegative() {
		return nil, fmt.Errorf("el monto de apertura no puede ser negativo: %w", apierror.ErrInvalidInput)
	}

	unlock := s.locks.Lock(req.DateKey)
	defer unlock()

	existing, err := s.repo.FindByDate(ctx, req.DateKey)
	switch {
	case err == nil:
		return s.existingOnOpen(existing)
	case !errors.Is(err, apierror.ErrNotFound):
		return nil, err
	}

	caja := &model.Caja{
		ID:            uuid.New(),
		DateKey:       req.DateKey,
		Estado:        model.CajaAbierta,
		OpenedAt:      s.now(),
		OpenedBy:      strings.TrimSpace(req.OpenedBy),
		OpeningAmount: req.OpeningAmount.Round(2),
	}
	if err := s.repo.Create(ctx, caja); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// Another instance opened the same day between our read and insert.
		existing, ferr := s.repo.FindByDate(ctx, req.DateKey)
		if ferr != nil {
			return nil, ferr
		}
		return s.existingOnOpen(existing)
	}

	cajasAbiertas.Inc()
	log.Info().
		Str("date_key", caja.DateKey).
		Str("opened_by", caja.OpenedBy).
		Str("opening_amount", caja.OpeningAmount.StringFixed(2)).
		Msg("caja abierta")
	return cajaToResponse(caja), nil
}

func (s *cajaService) existingOnOpen(c *model.Caja) (*dto.CajaResponse, error) {
	if c.IsOpen() {
		return cajaToResponse(c), nil
	}
	return nil, fmt.Errorf("la caja del %s ya fue cerrada y no puede reabrirse: %w", c.DateKey, apierror.ErrInvalidState)
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Closing an already closed day is a no-op: the stored count and operator are
// kept and the stored totals are returned.

func (s *cajaService) Cerrar(ctx context.Context, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	if _, err := parseDateKey(req.DateKey, s.loc); err != nil {
		return nil, err
	}
	if req.CountedCash.IsNegative() {
		return nil, fmt.Errorf("el efectivo contado no puede ser negativo: %w", apierror.ErrInvalidInput)
	}

	unlock := s.locks.Lock(req.DateKey)
	defer unlock()

	caja, err := s.repo.FindByDate(ctx, req.DateKey)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, fmt.Errorf("no existe caja para %s: %w", req.DateKey, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if !caja.IsOpen() {
		totals, err := s.totalsFor(ctx, caja)
		if err != nil {
			return nil, err
		}
		return &dto.CierreCajaResponse{Caja: *cajaToResponse(caja), Totales: totals}, nil
	}

	now := s.now()
	counted := req.CountedCash.Round(2)
	closedBy := strings.TrimSpace(req.ClosedBy)
	caja.Estado = model.CajaCerrada
	caja.ClosedAt = &now
	caja.ClosedBy = &closedBy
	caja.CountedCash = &counted
	if note := strings.TrimSpace(req.Note); note != "" {
		caja.Note = &note
	}

	totals, err := s.totalsFor(ctx, caja)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, caja); err != nil {
		return nil, err
	}

	cajasCerradas.Inc()
	log.Info().
		Str("date_key", caja.DateKey).
		Str("closed_by", closedBy).
		Str("theoretical", totals.Theoretical.StringFixed(2)).
		Str("counted", counted.StringFixed(2)).
		Str("diff", totals.Diff.StringFixed(2)).
		Msg("caja cerrada")

	if s.notifier != nil {
		if err := s.notifier.EnqueueCierre(ctx, caja.DateKey); err != nil {
			log.Error().Err(err).Str("date_key", caja.DateKey).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	return &dto.CierreCajaResponse{Caja: *cajaToResponse(caja), Totales: totals}, nil
}

// ── Movimientos manuales ──────────────────────────────────────────────────────

func (s *cajaService) ListarManuales(ctx context.Context, fecha string) ([]dto.CashMove, error) {
	if _, err := parseDateKey(fecha, s.loc); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, fecha)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CashMove, 0, len(movs))
	for _, m := range movs {
		out = append(out, manualToMove(m))
	}
	sortMovesDesc(out)
	return out, nil
}

func (s *cajaService) AgregarManual(ctx context.Context, req dto.MovimientoManualRequest) (*dto.CashMove, error) {
	if _, err := parseDateKey(req.DateKey, s.loc); err != nil {
		return nil, err
	}
	if req.Tipo != model.MovIngreso && req.Tipo != model.MovEgreso {
		return nil, fmt.Errorf("tipo de movimiento %q inválido: %w", req.Tipo, apierror.ErrInvalidInput)
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("el monto debe ser mayor a cero: %w", apierror.ErrInvalidInput)
	}

	unlock := s.locks.Lock(req.DateKey)
	defer unlock()

	if err := s.requireOpen(ctx, req.DateKey); err != nil {
		return nil, err
	}

	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		concept = conceptoPorDefecto
	}
	mov := &model.MovimientoCaja{
		ID:        uuid.New(),
		DateKey:   req.DateKey,
		Tipo:      req.Tipo,
		Source:    model.SourceManual,
		Concept:   concept,
		Amount:    amount,
		CreatedAt: s.now(),
		CreatedBy: strings.TrimSpace(req.CreatedBy),
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, err
	}

	movimientosManuales.WithLabelValues(mov.Tipo).Inc()
	out := manualToMove(*mov)
	return &out, nil
}

// EliminarManual ignores unknown ids and days without a cashbox.
func (s *cajaService) EliminarManual(ctx context.Context, fecha string, id uuid.UUID) error {
	if _, err := parseDateKey(fecha, s.loc); err != nil {
		return err
	}

	unlock := s.locks.Lock(fecha)
	defer unlock()

	caja, err := s.repo.FindByDate(ctx, fecha)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !caja.IsOpen() {
		return fmt.Errorf("la caja del %s está cerrada: %w", fecha, apierror.ErrInvalidState)
	}
	return s.repo.DeleteMovimiento(ctx, fecha, id)
}

func (s *cajaService) requireOpen(ctx context.Context, fecha string) error {
	caja, err := s.repo.FindByDate(ctx, fecha)
	if errors.Is(err, apierror.ErrNotFound) {
		return fmt.Errorf("no hay caja abierta para %s: %w", fecha, apierror.ErrInvalidState)
	}
	if err != nil {
		return err
	}
	if !caja.IsOpen() {
		return fmt.Errorf("la caja del %s está cerrada: %w", fecha, apierror.ErrInvalidState)
	}
	return nil
}

// ── Movimientos derivados de pagos ────────────────────────────────────────────
// Payments are a secondary source: if they cannot be fetched the ledger shows
// only manual moves instead of blocking the cashier.

func (s *cajaService) ListarPagos(ctx context.Context, fecha string) ([]dto.CashMove, error) {
	start, err := parseDateKey(fecha, s.loc)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByDate(ctx, fecha); err != nil {
		if errors.Is(err, apierror.ErrNotFound) {
			return []dto.CashMove{}, nil
		}
		return nil, err
	}

	return s.pagosDelDia(ctx, fecha, start), nil
}

func (s *cajaService) pagosDelDia(ctx context.Context, fecha string, start time.Time) []dto.CashMove {
	out := []dto.CashMove{}
	if s.pagos == nil {
		return out
	}

	pagos, err := s.pagos.List(ctx)
	if err != nil {
		pagosFetchErrors.Inc()
		log.Warn().Err(err).Str("date_key", fecha).Msg("pagos no disponibles, se omiten del libro")
		return out
	}

	end := start.AddDate(0, 0, 1)
	for _, p := range pagos {
		if p.Total.IsZero() || p.PaidAt == nil {
			continue
		}
		t := p.PaidAt.In(s.loc)
		if t.Before(start) || !t.Before(end) {
			continue
		}
		out = append(out, pagoToMove(p, fecha, s.loc))
	}
	sortMovesDesc(out)
	return out
}

// ── Resumen ───────────────────────────────────────────────────────────────────

func (s *cajaService) Resumen(ctx context.Context, fecha string) (*dto.ResumenCajaResponse, error) {
	start, err := parseDateKey(fecha, s.loc)
	if err != nil {
		return nil, err
	}
	caja, err := s.repo.FindByDate(ctx, fecha)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, fmt.Errorf("no existe caja para %s: %w", fecha, apierror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	manual, err := s.ListarManuales(ctx, fecha)
	if err != nil {
		return nil, err
	}
	pagos := s.pagosDelDia(ctx, fecha, start)
	moves := MergeMoves(manual, pagos)

	return &dto.ResumenCajaResponse{
		Caja:        cajaToResponse(caja),
		Movimientos: moves,
		Totales:     CalcTotals(caja.OpeningAmount, moves, caja.CountedCash),
		Pagos:       SummarizePayments(pagos),
	}, nil
}

func (s *cajaService) totalsFor(ctx context.Context, caja *model.Caja) (dto.CashboxTotals, error) {
	start, err := parseDateKey(caja.DateKey, s.loc)
	if err != nil {
		return dto.CashboxTotals{}, err
	}
	manual, err := s.ListarManuales(ctx, caja.DateKey)
	if err != nil {
		return dto.CashboxTotals{}, err
	}
	moves := MergeMoves(manual, s.pagosDelDia(ctx, caja.DateKey, start))
	return CalcTotals(caja.OpeningAmount, moves, caja.CountedCash), nil
}

func (s *cajaService) ListarFechas(ctx context.Context) ([]string, error) {
	dates, err := s.repo.ListDates(ctx)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}
