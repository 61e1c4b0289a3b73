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
	"github.com/shopspring/decimal"
)

// CuentaService manages POS accounts. Lockers held by an account are assigned
// and released through LlaveService; closing an account records its payment.
type CuentaService interface {
	Abrir(ctx context.Context, req dto.AbrirCuentaRequest) (*dto.CuentaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.CuentaResponse, error)
	Listar(ctx context.Context, estado string) ([]dto.CuentaResponse, error)
	AgregarCargo(ctx context.Context, id uuid.UUID, req dto.CargoRequest) (*dto.CuentaResponse, error)
	AgregarLlave(ctx context.Context, id uuid.UUID, codigo string) (*dto.CuentaResponse, error)
	QuitarLlave(ctx context.Context, id uuid.UUID, codigo string) (*dto.CuentaResponse, error)
	Cerrar(ctx context.Context, id uuid.UUID, req dto.CerrarCuentaRequest) (*dto.CuentaResponse, error)
}

type cuentaService struct {
	repo   repository.CuentaRepository
	llaves LlaveService
	pagos  repository.PagoRepository
	locks  *keyLock
	now    func() time.Time
}

func NewCuentaService(repo repository.CuentaRepository, llaves LlaveService, pagos repository.PagoRepository) CuentaService {
	return &cuentaService{
		repo:   repo,
		llaves: llaves,
		pagos:  pagos,
		locks:  newKeyLock(),
		now:    time.Now,
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// Lockers are reserved one by one. If any reservation fails the ones already
// taken are released before returning the error.

func (s *cuentaService) Abrir(ctx context.Context, req dto.AbrirCuentaRequest) (*dto.CuentaResponse, error) {
	cliente := strings.TrimSpace(req.Cliente)
	if cliente == "" {
		return nil, fmt.Errorf("el cliente es obligatorio: %w", apierror.ErrInvalidInput)
	}
	codigos, err := normalizarCodigos(req.Llaves)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cuenta := &model.Cuenta{
		ID:        uuid.New(),
		Cliente:   cliente,
		ClienteID: trimmed(req.ClienteID),
		Estado:    model.CuentaAbierta,
		Total:     decimal.Zero,
		OpenedAt:  now,
		OpenedBy:  strings.TrimSpace(req.AbiertaPor),
	}

	var reservadas []dto.LockerView
	for _, codigo := range codigos {
		view, err := s.llaves.Asignar(ctx, codigo, dto.AsignarLlaveRequest{Cliente: cliente})
		if err != nil {
			s.compensar(ctx, cliente, reservadas)
			return nil, err
		}
		reservadas = append(reservadas, *view)
		cuenta.Llaves = append(cuenta.Llaves, model.CuentaLlave{
			ID:        uuid.New(),
			CuentaID:  cuenta.ID,
			LlaveID:   view.ID,
			Code:      view.Code,
			CreatedAt: now,
		})
		cuenta.Cargos = append(cuenta.Cargos, cargoLlave(cuenta.ID, view.Code, "asignada", now))
	}

	if err := s.repo.Create(ctx, cuenta); err != nil {
		s.compensar(ctx, cliente, reservadas)
		return nil, vinculoDuplicado(err)
	}

	log.Info().
		Str("cuenta", cuenta.ID.String()).
		Str("cliente", cliente).
		Strs("llaves", codigos).
		Msg("cuentas: cuenta abierta")
	return cuentaToResponse(cuenta), nil
}

func (s *cuentaService) compensar(ctx context.Context, cliente string, reservadas []dto.LockerView) {
	for _, v := range reservadas {
		if _, err := s.llaves.LiberarTitular(ctx, v.ID, cliente); err != nil {
			log.Error().Err(err).Str("llave", v.Code).Msg("cuentas: no se pudo liberar el casillero reservado")
		}
	}
}

// liberarTitular gives back a locker the account links. A locker that is
// already free or now assigned to someone else is left alone.
func (s *cuentaService) liberarTitular(ctx context.Context, cuenta *model.Cuenta, l model.CuentaLlave) error {
	_, err := s.llaves.LiberarTitular(ctx, l.LlaveID, cuenta.Cliente)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apierror.ErrInvalidState) {
		return err
	}
	log.Warn().Err(err).
		Str("cuenta", cuenta.ID.String()).
		Str("llave", l.Code).
		Msg("cuentas: el casillero ya no estaba en poder de la cuenta")
	return nil
}

// vinculoDuplicado reports a locker still linked to another open account as
// an invalid state.
func vinculoDuplicado(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("el casillero sigue vinculado a otra cuenta abierta: %w", apierror.ErrInvalidState)
	}
	return err
}

// ── Consulta ──────────────────────────────────────────────────────────────────

func (s *cuentaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.CuentaResponse, error) {
	cuenta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return cuentaToResponse(cuenta), nil
}

func (s *cuentaService) Listar(ctx context.Context, estado string) ([]dto.CuentaResponse, error) {
	estado = strings.ToLower(strings.TrimSpace(estado))
	if estado != "" && estado != model.CuentaAbierta && estado != model.CuentaCerrada {
		return nil, fmt.Errorf("estado %q inválido: %w", estado, apierror.ErrInvalidInput)
	}
	cuentas, err := s.repo.List(ctx, estado)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CuentaResponse, 0, len(cuentas))
	for i := range cuentas {
		out = append(out, *cuentaToResponse(&cuentas[i]))
	}
	return out, nil
}

// ── Cargos ────────────────────────────────────────────────────────────────────

func (s *cuentaService) AgregarCargo(ctx context.Context, id uuid.UUID, req dto.CargoRequest) (*dto.CuentaResponse, error) {
	if req.Kind == model.CargoKey {
		return nil, fmt.Errorf("los cargos de llave se registran al asignar casilleros: %w", apierror.ErrInvalidInput)
	}
	if req.Cantidad < 1 {
		return nil, fmt.Errorf("la cantidad debe ser al menos 1: %w", apierror.ErrInvalidInput)
	}
	if req.PrecioUnitario.IsNegative() {
		return nil, fmt.Errorf("el precio no puede ser negativo: %w", apierror.ErrInvalidInput)
	}

	unlock := s.locks.Lock(id.String())
	defer unlock()

	cuenta, err := s.abierta(ctx, id)
	if err != nil {
		return nil, err
	}

	precio := req.PrecioUnitario.Round(2)
	cargo := model.CargoCuenta{
		ID:             uuid.New(),
		CuentaID:       cuenta.ID,
		Kind:           req.Kind,
		Concepto:       strings.TrimSpace(req.Concepto),
		Cantidad:       req.Cantidad,
		PrecioUnitario: precio,
		Subtotal:       precio.Mul(decimal.NewFromInt(int64(req.Cantidad))).Round(2),
		CreatedAt:      s.now(),
	}
	if err := s.repo.AddCargo(ctx, &cargo); err != nil {
		return nil, err
	}
	cuenta.Cargos = append(cuenta.Cargos, cargo)
	cuenta.Total = sumarCargos(cuenta.Cargos)
	if err := s.repo.Update(ctx, cuenta); err != nil {
		return nil, err
	}
	return cuentaToResponse(cuenta), nil
}

// ── Llaves ────────────────────────────────────────────────────────────────────

func (s *cuentaService) AgregarLlave(ctx context.Context, id uuid.UUID, codigo string) (*dto.CuentaResponse, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	cuenta, err := s.abierta(ctx, id)
	if err != nil {
		return nil, err
	}
	zona, numero, err := ParseLockerCode(codigo)
	if err != nil {
		return nil, err
	}
	code := LockerCode(zona, numero)
	for _, l := range cuenta.LlavesActivas() {
		if l.Code == code {
			return nil, fmt.Errorf("la cuenta ya tiene el casillero %s: %w", code, apierror.ErrInvalidState)
		}
	}

	view, err := s.llaves.Asignar(ctx, code, dto.AsignarLlaveRequest{Cliente: cuenta.Cliente})
	if err != nil {
		return nil, err
	}
	now := s.now()
	link := model.CuentaLlave{
		ID:        uuid.New(),
		CuentaID:  cuenta.ID,
		LlaveID:   view.ID,
		Code:      view.Code,
		CreatedAt: now,
	}
	if err := s.repo.AddLlave(ctx, &link); err != nil {
		s.compensar(ctx, cuenta.Cliente, []dto.LockerView{*view})
		return nil, vinculoDuplicado(err)
	}
	cargo := cargoLlave(cuenta.ID, view.Code, "asignada", now)
	if err := s.repo.AddCargo(ctx, &cargo); err != nil {
		s.compensar(ctx, cuenta.Cliente, []dto.LockerView{*view})
		if relErr := s.repo.ReleaseLlave(ctx, cuenta.ID, link.LlaveID, now); relErr != nil {
			log.Error().Err(relErr).Str("llave", view.Code).Msg("cuentas: no se pudo cerrar el vínculo del casillero")
		}
		return nil, err
	}
	cuenta.Llaves = append(cuenta.Llaves, link)
	cuenta.Cargos = append(cuenta.Cargos, cargo)
	return cuentaToResponse(cuenta), nil
}

func (s *cuentaService) QuitarLlave(ctx context.Context, id uuid.UUID, codigo string) (*dto.CuentaResponse, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	cuenta, err := s.abierta(ctx, id)
	if err != nil {
		return nil, err
	}
	zona, numero, err := ParseLockerCode(codigo)
	if err != nil {
		return nil, err
	}
	code := LockerCode(zona, numero)

	idx := -1
	for i, l := range cuenta.Llaves {
		if l.Code == code && l.ReleasedAt == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("la cuenta no tiene el casillero %s: %w", code, apierror.ErrNotFound)
	}

	if err := s.liberarTitular(ctx, cuenta, cuenta.Llaves[idx]); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.ReleaseLlave(ctx, cuenta.ID, cuenta.Llaves[idx].LlaveID, now); err != nil {
		return nil, err
	}
	cargo := cargoLlave(cuenta.ID, code, "liberada", now)
	if err := s.repo.AddCargo(ctx, &cargo); err != nil {
		return nil, err
	}
	cuenta.Llaves[idx].ReleasedAt = &now
	cuenta.Cargos = append(cuenta.Cargos, cargo)
	return cuentaToResponse(cuenta), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Lockers are released and their links persisted before the payment is
// recorded. A locker that is already free, or was reassigned, is left as is.
// The payment carries the account id as transaction id, so a retried close
// reuses it instead of charging twice.

func (s *cuentaService) Cerrar(ctx context.Context, id uuid.UUID, req dto.CerrarCuentaRequest) (*dto.CuentaResponse, error) {
	tipoPago := strings.TrimSpace(req.TipoPago)
	if tipoPago == "" {
		return nil, fmt.Errorf("el tipo de pago es obligatorio: %w", apierror.ErrInvalidInput)
	}

	unlock := s.locks.Lock(id.String())
	defer unlock()

	cuenta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cuenta.Estado == model.CuentaCerrada {
		return nil, fmt.Errorf("la cuenta %s ya está cerrada: %w", id, apierror.ErrInvalidState)
	}

	now := s.now()
	for i := range cuenta.Llaves {
		l := &cuenta.Llaves[i]
		if l.ReleasedAt != nil {
			continue
		}
		if err := s.liberarTitular(ctx, cuenta, *l); err != nil {
			return nil, err
		}
		if err := s.repo.ReleaseLlave(ctx, cuenta.ID, l.LlaveID, now); err != nil {
			return nil, err
		}
		l.ReleasedAt = &now
	}

	total := sumarCargos(cuenta.Cargos)
	if !total.IsZero() {
		pagoID, err := s.registrarPago(ctx, cuenta, total, tipoPago, req, now)
		if err != nil {
			return nil, err
		}
		cuenta.PagoID = &pagoID
	}

	cerradaPor := strings.TrimSpace(req.CerradaPor)
	cuenta.Estado = model.CuentaCerrada
	cuenta.Total = total
	cuenta.ClosedAt = &now
	cuenta.ClosedBy = &cerradaPor
	cuenta.TipoPago = &tipoPago
	if err := s.repo.Update(ctx, cuenta); err != nil {
		return nil, err
	}

	log.Info().
		Str("cuenta", id.String()).
		Str("total", total.StringFixed(2)).
		Str("tipo_pago", tipoPago).
		Msg("cuentas: cuenta cerrada")
	return cuentaToResponse(cuenta), nil
}

// registrarPago returns the id of the account's payment, creating it unless a
// previous close attempt already did.
func (s *cuentaService) registrarPago(ctx context.Context, cuenta *model.Cuenta, total decimal.Decimal, tipoPago string, req dto.CerrarCuentaRequest, now time.Time) (string, error) {
	txID := cuenta.ID.String()
	prev, err := s.pagos.FindByTransactionID(ctx, txID)
	if err == nil {
		log.Info().Str("cuenta", txID).Str("pago", prev.ID).Msg("cuentas: pago ya registrado, se reutiliza")
		return prev.ID, nil
	}
	if !errors.Is(err, apierror.ErrNotFound) {
		return "", err
	}
	pago := &model.Pago{
		ID:            uuid.NewString(),
		Total:         total,
		PaymentType:   tipoPago,
		Bank:          trimmed(req.Banco),
		Reference:     trimmed(req.Referencia),
		TransactionID: &txID,
		PaidAt:        &now,
	}
	if err := s.pagos.Create(ctx, pago); err != nil {
		return "", err
	}
	return pago.ID, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *cuentaService) abierta(ctx context.Context, id uuid.UUID) (*model.Cuenta, error) {
	cuenta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cuenta.Estado != model.CuentaAbierta {
		return nil, fmt.Errorf("la cuenta %s está cerrada: %w", id, apierror.ErrInvalidState)
	}
	return cuenta, nil
}

func normalizarCodigos(codigos []string) ([]string, error) {
	out := make([]string, 0, len(codigos))
	seen := make(map[string]bool, len(codigos))
	for _, c := range codigos {
		zona, numero, err := ParseLockerCode(c)
		if err != nil {
			return nil, err
		}
		code := LockerCode(zona, numero)
		if seen[code] {
			return nil, fmt.Errorf("casillero %s repetido: %w", code, apierror.ErrInvalidInput)
		}
		seen[code] = true
		out = append(out, code)
	}
	return out, nil
}

func cargoLlave(cuentaID uuid.UUID, code, accion string, at time.Time) model.CargoCuenta {
	return model.CargoCuenta{
		ID:             uuid.New(),
		CuentaID:       cuentaID,
		Kind:           model.CargoKey,
		Concepto:       "Llave " + code + " " + accion,
		Cantidad:       1,
		PrecioUnitario: decimal.Zero,
		Subtotal:       decimal.Zero,
		CreatedAt:      at,
	}
}

func sumarCargos(cargos []model.CargoCuenta) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cargos {
		if c.Kind == model.CargoKey {
			continue
		}
		total = total.Add(c.Subtotal)
	}
	return total
}

func cuentaToResponse(c *model.Cuenta) *dto.CuentaResponse {
	resp := &dto.CuentaResponse{
		ID:        c.ID.String(),
		Cliente:   c.Cliente,
		ClienteID: c.ClienteID,
		Estado:    c.Estado,
		Total:     c.Total,
		OpenedAt:  c.OpenedAt,
		OpenedBy:  c.OpenedBy,
		ClosedAt:  c.ClosedAt,
		ClosedBy:  c.ClosedBy,
		TipoPago:  c.TipoPago,
		PagoID:    c.PagoID,
		Cargos:    make([]dto.CargoResponse, 0, len(c.Cargos)),
		Llaves:    make([]dto.CuentaLlaveResponse, 0, len(c.Llaves)),
	}
	for _, cg := range c.Cargos {
		resp.Cargos = append(resp.Cargos, dto.CargoResponse{
			ID:             cg.ID.String(),
			Kind:           cg.Kind,
			Concepto:       cg.Concepto,
			Cantidad:       cg.Cantidad,
			PrecioUnitario: cg.PrecioUnitario,
			Subtotal:       cg.Subtotal,
			CreatedAt:      cg.CreatedAt,
		})
	}
	for _, l := range c.Llaves {
		resp.Llaves = append(resp.Llaves, dto.CuentaLlaveResponse{
			LlaveID:    l.LlaveID,
			Code:       l.Code,
			ReleasedAt: l.ReleasedAt,
		})
	}
	return resp
}
