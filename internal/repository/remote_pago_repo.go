package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zerostress/internal/apierror"
	"zerostress/internal/infra"
	"zerostress/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// paymentTypeLabels maps the API's numeric payment type codes.
var paymentTypeLabels = map[int]string{
	0: "Efectivo",
	1: "Tarjeta",
	2: "Transferencia",
	3: "Otro",
}

// remotePayment is the /api/Payments entity. The API has shipped several
// names for the amount and the date over time; all are accepted.
type remotePayment struct {
	ID            remoteID        `json:"id"`
	Total         json.RawMessage `json:"total"`
	Amount        json.RawMessage `json:"amount"`
	PaymentType   json.RawMessage `json:"paymentType"`
	Bank          *string         `json:"bank"`
	Reference     *string         `json:"reference"`
	TransactionID remoteID        `json:"transactionId"`
	PaymentDate   *string         `json:"paymentDate"`
	Date          *string         `json:"date"`
	CreatedAt     *string         `json:"createdAt"`
	CreatedDate   *string         `json:"createdDate"`
}

type remotePaymentBody struct {
	Total         decimal.Decimal `json:"total"`
	PaymentType   string          `json:"paymentType"`
	Bank          *string         `json:"bank,omitempty"`
	Reference     *string         `json:"reference,omitempty"`
	TransactionID *string         `json:"transactionId,omitempty"`
	PaymentDate   *string         `json:"paymentDate,omitempty"`
}

type remotePagoRepo struct {
	client *infra.ZSClient
	loc    *time.Location
}

// NewRemotePagoRepository adapts the external /api/Payments collection.
// Naive timestamps are interpreted in loc.
func NewRemotePagoRepository(client *infra.ZSClient, loc *time.Location) PagoRepository {
	return &remotePagoRepo{client: client, loc: loc}
}

// List drops records whose amount is missing or not a finite number.
func (r *remotePagoRepo) List(ctx context.Context) ([]model.Pago, error) {
	var raw []remotePayment
	if err := r.client.GetJSON(ctx, "/api/Payments", &raw); err != nil {
		return nil, err
	}
	out := make([]model.Pago, 0, len(raw))
	for _, p := range raw {
		pago, ok := r.toModel(p)
		if !ok {
			log.Debug().Str("payment_id", string(p.ID)).Msg("remote payment without a usable total, skipped")
			continue
		}
		out = append(out, pago)
	}
	return out, nil
}

func (r *remotePagoRepo) Create(ctx context.Context, p *model.Pago) error {
	body := remotePaymentBody{
		Total:         p.Total,
		PaymentType:   p.PaymentType,
		Bank:          p.Bank,
		Reference:     p.Reference,
		TransactionID: p.TransactionID,
	}
	if p.PaidAt != nil {
		s := p.PaidAt.Format(time.RFC3339)
		body.PaymentDate = &s
	}
	var created remotePayment
	if err := r.client.PostJSON(ctx, "/api/Payments", body, &created); err != nil {
		return err
	}
	if created.ID != "" {
		p.ID = string(created.ID)
	}
	return nil
}

// FindByTransactionID scans the collection; the API has no filter for it.
func (r *remotePagoRepo) FindByTransactionID(ctx context.Context, txID string) (*model.Pago, error) {
	pagos, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range pagos {
		if pagos[i].TransactionID != nil && *pagos[i].TransactionID == txID {
			return &pagos[i], nil
		}
	}
	return nil, fmt.Errorf("pago de la transacción %s: %w", txID, apierror.ErrNotFound)
}

func (r *remotePagoRepo) toModel(p remotePayment) (model.Pago, bool) {
	total, ok := parseAmount(p.Total)
	if !ok {
		total, ok = parseAmount(p.Amount)
	}
	if !ok {
		return model.Pago{}, false
	}
	pago := model.Pago{
		ID:          string(p.ID),
		Total:       total,
		PaymentType: paymentTypeLabel(p.PaymentType),
		Bank:        nonEmpty(p.Bank),
		Reference:   nonEmpty(p.Reference),
	}
	if p.TransactionID != "" {
		tx := string(p.TransactionID)
		pago.TransactionID = &tx
	}
	for _, s := range []*string{p.PaymentDate, p.Date, p.CreatedAt, p.CreatedDate} {
		if s == nil {
			continue
		}
		if t, ok := parseRemoteTime(*s, r.loc); ok {
			pago.PaidAt = &t
			break
		}
	}
	return pago, true
}

// parseAmount accepts a JSON number or numeric string. NaN, Infinity, null
// and garbage are rejected.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func paymentTypeLabel(raw json.RawMessage) string {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return ""
	}
	if code, err := strconv.Atoi(s); err == nil {
		if label, ok := paymentTypeLabels[code]; ok {
			return label
		}
		return "Tipo " + s
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return strings.TrimSpace(unq)
	}
	return ""
}
