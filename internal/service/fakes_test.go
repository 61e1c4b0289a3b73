package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"zerostress/internal/apierror"
	"zerostress/internal/model"
	"zerostress/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

type fakeCajaRepo struct {
	mu          sync.Mutex
	cajas       map[string]model.Caja
	movimientos []model.MovimientoCaja
	creates     int
}

func newFakeCajaRepo() *fakeCajaRepo {
	return &fakeCajaRepo{cajas: make(map[string]model.Caja)}
}

func (r *fakeCajaRepo) FindByDate(_ context.Context, dateKey string) (*model.Caja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cajas[dateKey]
	if !ok {
		return nil, fmt.Errorf("caja %s: %w", dateKey, apierror.ErrNotFound)
	}
	return &c, nil
}

func (r *fakeCajaRepo) Create(_ context.Context, c *model.Caja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cajas[c.DateKey]; ok {
		return fmt.Errorf("caja %s: %w", c.DateKey, repository.ErrDuplicate)
	}
	r.cajas[c.DateKey] = *c
	r.creates++
	return nil
}

func (r *fakeCajaRepo) Update(_ context.Context, c *model.Caja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cajas[c.DateKey] = *c
	return nil
}

func (r *fakeCajaRepo) ListDates(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.cajas {
		out = append(out, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func (r *fakeCajaRepo) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, dateKey string) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.DateKey == dateKey {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCajaRepo) DeleteMovimiento(_ context.Context, dateKey string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.movimientos {
		if m.ID == id && m.DateKey == dateKey {
			r.movimientos = append(r.movimientos[:i], r.movimientos[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repository.CajaRepository = (*fakeCajaRepo)(nil)

// ── In-memory PagoRepository ─────────────────────────────────────────────────

type fakePagoRepo struct {
	mu      sync.Mutex
	pagos   []model.Pago
	listErr error
}

func (r *fakePagoRepo) List(_ context.Context) ([]model.Pago, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]model.Pago, len(r.pagos))
	copy(out, r.pagos)
	return out, nil
}

func (r *fakePagoRepo) Create(_ context.Context, p *model.Pago) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pagos = append(r.pagos, *p)
	return nil
}

func (r *fakePagoRepo) FindByTransactionID(_ context.Context, txID string) (*model.Pago, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.pagos {
		if r.pagos[i].TransactionID != nil && *r.pagos[i].TransactionID == txID {
			p := r.pagos[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("pago %s: %w", txID, apierror.ErrNotFound)
}

var _ repository.PagoRepository = (*fakePagoRepo)(nil)

// ── In-memory LlaveRepository ────────────────────────────────────────────────

type fakeLlaveRepo struct {
	mu     sync.Mutex
	llaves map[string]model.Llave

	// beforeSwap runs inside CompareAndSwap before the version check, to
	// simulate a concurrent writer.
	beforeSwap func(id string)
	// beforeList runs at the start of List with its context.
	beforeList func(ctx context.Context)
}

// newFakeLlaveRepo seeds 16 + 16 free lockers with explicit placement.
func newFakeLlaveRepo() *fakeLlaveRepo {
	r := &fakeLlaveRepo{llaves: make(map[string]model.Llave)}
	for _, zona := range []string{model.ZonaHombres, model.ZonaMujeres} {
		for n := 1; n <= model.LockersPorZona; n++ {
			id := fmt.Sprintf("%s-%02d", zona, n)
			r.llaves[id] = model.Llave{ID: id, Zone: zona, Number: n, Available: true}
		}
	}
	return r
}

func (r *fakeLlaveRepo) List(ctx context.Context) ([]model.Llave, error) {
	if r.beforeList != nil {
		r.beforeList(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Llave, 0, len(r.llaves))
	for _, l := range r.llaves {
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeLlaveRepo) FindByID(_ context.Context, id string) (*model.Llave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.llaves[id]
	if !ok {
		return nil, fmt.Errorf("llave %s: %w", id, apierror.ErrNotFound)
	}
	return &l, nil
}

func (r *fakeLlaveRepo) CompareAndSwap(_ context.Context, expected model.Llave, next *model.Llave) error {
	if r.beforeSwap != nil {
		r.beforeSwap(expected.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.llaves[expected.ID]
	if !ok {
		return fmt.Errorf("llave %s: %w", expected.ID, apierror.ErrNotFound)
	}
	if cur.Version != expected.Version {
		return fmt.Errorf("llave %s: %w", expected.ID, repository.ErrConflict)
	}
	next.Version = cur.Version + 1
	r.llaves[expected.ID] = *next
	return nil
}

func (r *fakeLlaveRepo) get(id string) model.Llave {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.llaves[id]
}

var _ repository.LlaveRepository = (*fakeLlaveRepo)(nil)

// ── In-memory CuentaRepository ───────────────────────────────────────────────

type fakeCuentaRepo struct {
	mu      sync.Mutex
	cuentas map[uuid.UUID]model.Cuenta

	// failUpdates makes the next n Update calls fail.
	failUpdates int
	cargoErr    error
}

func newFakeCuentaRepo() *fakeCuentaRepo {
	return &fakeCuentaRepo{cuentas: make(map[uuid.UUID]model.Cuenta)}
}

// Create and AddLlave enforce one active link per locker, like the partial
// unique index in Postgres.
func (r *fakeCuentaRepo) Create(_ context.Context, c *model.Cuenta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range c.LlavesActivas() {
		if _, held := r.activeLocked(l.LlaveID); held {
			return fmt.Errorf("cuenta %s: %w", c.ID, repository.ErrDuplicate)
		}
	}
	r.cuentas[c.ID] = cloneCuenta(*c)
	return nil
}

func (r *fakeCuentaRepo) activeLocked(llaveID string) (model.CuentaLlave, bool) {
	for _, c := range r.cuentas {
		for _, l := range c.Llaves {
			if l.LlaveID == llaveID && l.ReleasedAt == nil {
				return l, true
			}
		}
	}
	return model.CuentaLlave{}, false
}

func (r *fakeCuentaRepo) FindActiveLlave(_ context.Context, llaveID string) (*model.CuentaLlave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.activeLocked(llaveID)
	if !ok {
		return nil, fmt.Errorf("vínculo %s: %w", llaveID, apierror.ErrNotFound)
	}
	return &l, nil
}

func (r *fakeCuentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cuenta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[id]
	if !ok {
		return nil, fmt.Errorf("cuenta %s: %w", id, apierror.ErrNotFound)
	}
	out := cloneCuenta(c)
	return &out, nil
}

func (r *fakeCuentaRepo) List(_ context.Context, estado string) ([]model.Cuenta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cuenta
	for _, c := range r.cuentas {
		if estado == "" || c.Estado == estado {
			out = append(out, cloneCuenta(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func (r *fakeCuentaRepo) Update(_ context.Context, c *model.Cuenta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates > 0 {
		r.failUpdates--
		return errors.New("conexión perdida")
	}
	stored, ok := r.cuentas[c.ID]
	if !ok {
		return fmt.Errorf("cuenta %s: %w", c.ID, apierror.ErrNotFound)
	}
	upd := cloneCuenta(*c)
	upd.Cargos = stored.Cargos
	upd.Llaves = stored.Llaves
	r.cuentas[c.ID] = upd
	return nil
}

func (r *fakeCuentaRepo) AddCargo(_ context.Context, cargo *model.CargoCuenta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cargoErr != nil {
		return r.cargoErr
	}
	c, ok := r.cuentas[cargo.CuentaID]
	if !ok {
		return errors.New("cuenta inexistente")
	}
	c.Cargos = append(c.Cargos, *cargo)
	r.cuentas[c.ID] = c
	return nil
}

func (r *fakeCuentaRepo) AddLlave(_ context.Context, l *model.CuentaLlave) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[l.CuentaID]
	if !ok {
		return errors.New("cuenta inexistente")
	}
	if _, held := r.activeLocked(l.LlaveID); held {
		return fmt.Errorf("llave %s: %w", l.Code, repository.ErrDuplicate)
	}
	c.Llaves = append(c.Llaves, *l)
	r.cuentas[c.ID] = c
	return nil
}

func (r *fakeCuentaRepo) ReleaseLlave(_ context.Context, cuentaID uuid.UUID, llaveID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[cuentaID]
	if !ok {
		return errors.New("cuenta inexistente")
	}
	for i := range c.Llaves {
		if c.Llaves[i].LlaveID == llaveID && c.Llaves[i].ReleasedAt == nil {
			t := at
			c.Llaves[i].ReleasedAt = &t
		}
	}
	r.cuentas[cuentaID] = c
	return nil
}

func cloneCuenta(c model.Cuenta) model.Cuenta {
	c.Cargos = append([]model.CargoCuenta(nil), c.Cargos...)
	c.Llaves = append([]model.CuentaLlave(nil), c.Llaves...)
	return c
}

var _ repository.CuentaRepository = (*fakeCuentaRepo)(nil)

// ── Notifier ─────────────────────────────────────────────────────────────────

type fakeNotifier struct {
	mu     sync.Mutex
	fechas []string
}

func (n *fakeNotifier) EnqueueCierre(_ context.Context, dateKey string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fechas = append(n.fechas, dateKey)
	return nil
}

// ── Clock ────────────────────────────────────────────────────────────────────

// stepClock returns base, base+1s, base+2s, ... so records get distinct,
// increasing timestamps.
func stepClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := base.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}
