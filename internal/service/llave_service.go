package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/model"
	"zerostress/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const tableroCacheKey = "llaves:tablero"

// LlaveService is the locker/key inventory: 16 lockers per zone, each backed
// by one key entity in the configured store.
type LlaveService interface {
	ListarLlaves(ctx context.Context) ([]model.Llave, error)
	// Tablero serves the board from cache when possible.
	Tablero(ctx context.Context) (*dto.TableroResponse, error)
	// RefrescarTablero reloads the board from the store and re-caches it.
	RefrescarTablero(ctx context.Context) (*dto.TableroResponse, error)
	Obtener(ctx context.Context, codigo string) (*dto.LockerView, error)
	BuscarPorZonaNumero(ctx context.Context, zona string, numero int) (*model.Llave, error)
	Actualizar(ctx context.Context, codigo string, req dto.ActualizarLlaveRequest) (*dto.LockerView, error)
	Asignar(ctx context.Context, codigo string, req dto.AsignarLlaveRequest) (*dto.LockerView, error)
	// Liberar frees an occupied locker. A locker still held by an open
	// account must be released through that account.
	Liberar(ctx context.Context, codigo string) (*dto.LockerView, error)
	// LiberarTitular frees key llaveID only while it is still assigned to
	// cliente; otherwise it returns ErrInvalidState and leaves it untouched.
	LiberarTitular(ctx context.Context, llaveID, cliente string) (*dto.LockerView, error)
}

// tableroLoadTimeout bounds a shared board load, which outlives the caller
// that started it.
const tableroLoadTimeout = 15 * time.Second

type llaveService struct {
	repo     repository.LlaveRepository
	links    repository.CuentaLlaveFinder
	rdb      *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
	// gen is bumped on every mutation; a load only caches its board if no
	// mutation happened while it ran.
	gen   atomic.Uint64
	locks *keyLock
	now   func() time.Time
}

// NewLlaveService builds the inventory. links reports which account holds a
// locker and may be nil when accounts are not in use. rdb may be nil, in
// which case the board is always loaded from the store.
func NewLlaveService(repo repository.LlaveRepository, links repository.CuentaLlaveFinder, rdb *redis.Client, cacheTTL time.Duration) LlaveService {
	return &llaveService{
		repo:     repo,
		links:    links,
		rdb:      rdb,
		cacheTTL: cacheTTL,
		locks:    newKeyLock(),
		now:      time.Now,
	}
}

func (s *llaveService) ListarLlaves(ctx context.Context) ([]model.Llave, error) {
	return s.repo.List(ctx)
}

// ── Tablero ───────────────────────────────────────────────────────────────────

func (s *llaveService) Tablero(ctx context.Context) (*dto.TableroResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, tableroCacheKey).Bytes(); err == nil {
			var t dto.TableroResponse
			if jsonErr := json.Unmarshal(cached, &t); jsonErr == nil {
				return &t, nil
			}
		}
	}
	return s.RefrescarTablero(ctx)
}

// RefrescarTablero loads the board once for all concurrent callers. The
// shared load is detached from the caller's cancellation.
func (s *llaveService) RefrescarTablero(ctx context.Context) (*dto.TableroResponse, error) {
	ch := s.group.DoChan(tableroCacheKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tableroLoadTimeout)
		defer cancel()

		gen := s.gen.Load()
		keys, err := s.repo.List(loadCtx)
		if err != nil {
			return nil, err
		}
		t := buildTablero(DeriveLockerView(keys))
		t.UpdatedAt = s.now()
		s.cacheTablero(t, gen)
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dto.TableroResponse), nil
	}
}

// fresh reports whether no mutation happened since gen was read.
func (s *llaveService) fresh(gen uint64) bool { return s.gen.Load() == gen }

func (s *llaveService) cacheTablero(t *dto.TableroResponse, gen uint64) {
	if s.rdb == nil || s.cacheTTL <= 0 || !s.fresh(gen) {
		return
	}
	if b, err := json.Marshal(t); err == nil {
		_ = s.rdb.Set(context.Background(), tableroCacheKey, b, s.cacheTTL).Err()
	}
}

func (s *llaveService) invalidarTablero() {
	s.gen.Add(1)
	s.group.Forget(tableroCacheKey)
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(context.Background(), tableroCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("llaves: no se pudo invalidar el tablero en cache")
	}
}

// ── Búsqueda ──────────────────────────────────────────────────────────────────

func (s *llaveService) Obtener(ctx context.Context, codigo string) (*dto.LockerView, error) {
	view, _, err := s.resolver(ctx, codigo)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *llaveService) BuscarPorZonaNumero(ctx context.Context, zona string, numero int) (*model.Llave, error) {
	if zona != model.ZonaHombres && zona != model.ZonaMujeres {
		return nil, fmt.Errorf("zona %q inválida: %w", zona, apierror.ErrInvalidInput)
	}
	if numero < 1 || numero > model.LockersPorZona {
		return nil, fmt.Errorf("número de casillero %d fuera de rango: %w", numero, apierror.ErrInvalidInput)
	}
	_, llave, err := s.resolver(ctx, LockerCode(zona, numero))
	return llave, err
}

// resolverID finds the board view of key id.
func (s *llaveService) resolverID(ctx context.Context, id string) (dto.LockerView, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return dto.LockerView{}, err
	}
	for _, v := range DeriveLockerView(keys) {
		if v.ID == id {
			return v, nil
		}
	}
	return dto.LockerView{}, fmt.Errorf("llave %s fuera del tablero: %w", id, apierror.ErrNotFound)
}

// resolver maps a locker code onto its view and the key entity behind it.
func (s *llaveService) resolver(ctx context.Context, codigo string) (dto.LockerView, *model.Llave, error) {
	zona, numero, err := ParseLockerCode(codigo)
	if err != nil {
		return dto.LockerView{}, nil, err
	}
	keys, err := s.repo.List(ctx)
	if err != nil {
		return dto.LockerView{}, nil, err
	}
	for _, v := range DeriveLockerView(keys) {
		if v.Zone != zona || v.Number != numero {
			continue
		}
		for i := range keys {
			if keys[i].ID == v.ID {
				return v, &keys[i], nil
			}
		}
	}
	return dto.LockerView{}, nil, fmt.Errorf("casillero %s: %w", LockerCode(zona, numero), apierror.ErrNotFound)
}

// ── Escritura ─────────────────────────────────────────────────────────────────

// Actualizar writes the raw fields without transition checks.
func (s *llaveService) Actualizar(ctx context.Context, codigo string, req dto.ActualizarLlaveRequest) (*dto.LockerView, error) {
	return s.mutar(ctx, codigo, "actualizar", func(cur model.Llave) (model.Llave, error) {
		next := cur
		if req.Available != cur.Available {
			if req.Available {
				next.AssignedAt = nil
			} else {
				t := s.now()
				next.AssignedAt = &t
			}
		}
		next.Available = req.Available
		next.LastAssignedClient = trimmed(req.LastAssignedClient)
		next.Notes = trimmed(req.Notes)
		return next, nil
	})
}

func (s *llaveService) Asignar(ctx context.Context, codigo string, req dto.AsignarLlaveRequest) (*dto.LockerView, error) {
	cliente := strings.TrimSpace(req.Cliente)
	if cliente == "" {
		return nil, fmt.Errorf("el cliente es obligatorio: %w", apierror.ErrInvalidInput)
	}
	return s.mutar(ctx, codigo, "asignar", func(cur model.Llave) (model.Llave, error) {
		if !cur.Available {
			return cur, fmt.Errorf("el casillero %s ya está ocupado: %w", strings.ToUpper(codigo), apierror.ErrInvalidState)
		}
		t := s.now()
		next := cur
		next.Available = false
		next.LastAssignedClient = &cliente
		next.Notes = trimmed(&req.Notas)
		next.AssignedAt = &t
		return next, nil
	})
}

func (s *llaveService) Liberar(ctx context.Context, codigo string) (*dto.LockerView, error) {
	view, llave, err := s.resolver(ctx, codigo)
	if err != nil {
		return nil, err
	}
	return s.aplicar(ctx, view, llave.ID, "liberar", func(ctx context.Context, cur model.Llave) (model.Llave, error) {
		if s.links != nil {
			link, err := s.links.FindActiveLlave(ctx, cur.ID)
			switch {
			case err == nil:
				return cur, fmt.Errorf("el casillero %s pertenece a la cuenta %s, libérelo desde la cuenta: %w",
					view.Code, link.CuentaID, apierror.ErrInvalidState)
			case !errors.Is(err, apierror.ErrNotFound):
				return cur, err
			}
		}
		return liberada(cur, view.Code)
	})
}

func (s *llaveService) LiberarTitular(ctx context.Context, llaveID, cliente string) (*dto.LockerView, error) {
	view, err := s.resolverID(ctx, llaveID)
	if err != nil {
		return nil, err
	}
	cliente = strings.TrimSpace(cliente)
	return s.aplicar(ctx, view, llaveID, "liberar", func(_ context.Context, cur model.Llave) (model.Llave, error) {
		if !cur.Available && (cur.LastAssignedClient == nil || !strings.EqualFold(strings.TrimSpace(*cur.LastAssignedClient), cliente)) {
			return cur, fmt.Errorf("el casillero %s ya no está asignado a %s: %w", view.Code, cliente, apierror.ErrInvalidState)
		}
		return liberada(cur, view.Code)
	})
}

func liberada(cur model.Llave, code string) (model.Llave, error) {
	if cur.Available {
		return cur, fmt.Errorf("el casillero %s ya está libre: %w", code, apierror.ErrInvalidState)
	}
	next := cur
	next.Available = true
	next.LastAssignedClient = nil
	next.Notes = nil
	next.AssignedAt = nil
	return next, nil
}

// mutar resolves the locker by code and applies change to it.
func (s *llaveService) mutar(ctx context.Context, codigo, accion string, change func(model.Llave) (model.Llave, error)) (*dto.LockerView, error) {
	view, llave, err := s.resolver(ctx, codigo)
	if err != nil {
		return nil, err
	}
	return s.aplicar(ctx, view, llave.ID, accion, func(_ context.Context, cur model.Llave) (model.Llave, error) {
		return change(cur)
	})
}

// aplicar re-reads key id under its lock, applies change and writes the
// result with compare-and-swap.
func (s *llaveService) aplicar(ctx context.Context, view dto.LockerView, id, accion string, change func(context.Context, model.Llave) (model.Llave, error)) (*dto.LockerView, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := change(ctx, *cur)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CompareAndSwap(ctx, *cur, &next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("el casillero %s cambió mientras se actualizaba: %w", view.Code, apierror.ErrInvalidState)
		}
		return nil, err
	}
	s.invalidarTablero()
	llavesTransiciones.WithLabelValues(accion).Inc()

	log.Info().
		Str("llave", next.ID).
		Str("codigo", view.Code).
		Str("accion", accion).
		Bool("disponible", next.Available).
		Msg("llaves: casillero actualizado")

	out := toLockerView(next, view.Zone, view.Number)
	return &out, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
