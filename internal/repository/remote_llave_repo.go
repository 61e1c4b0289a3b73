package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"zerostress/internal/infra"
	"zerostress/internal/model"
)

// remoteKey is the /api/Keys entity. Zone, Number and Since are optional:
// older records carry only id, availability and assignment fields.
// encoding/json matches field names case-insensitively, so both the camelCase
// and PascalCase shapes of the API decode into it.
type remoteKey struct {
	ID                 remoteID `json:"id"`
	Available          bool     `json:"available"`
	LastAssignedClient *string  `json:"lastAssignedClient"`
	Notes              *string  `json:"notes"`
	Zone               string   `json:"zone,omitempty"`
	Number             int      `json:"number,omitempty"`
	Since              *string  `json:"since,omitempty"`
	AssignedAt         *string  `json:"assignedAt,omitempty"`
}

type remoteLlaveRepo struct {
	client *infra.ZSClient
	loc    *time.Location
}

// NewRemoteLlaveRepository adapts the external /api/Keys collection.
func NewRemoteLlaveRepository(client *infra.ZSClient, loc *time.Location) LlaveRepository {
	return &remoteLlaveRepo{client: client, loc: loc}
}

func (r *remoteLlaveRepo) List(ctx context.Context) ([]model.Llave, error) {
	var raw []remoteKey
	if err := r.client.GetJSON(ctx, "/api/Keys", &raw); err != nil {
		return nil, err
	}
	out := make([]model.Llave, 0, len(raw))
	for _, k := range raw {
		out = append(out, r.toModel(k))
	}
	return out, nil
}

func (r *remoteLlaveRepo) FindByID(ctx context.Context, id string) (*model.Llave, error) {
	var raw remoteKey
	if err := r.client.GetJSON(ctx, "/api/Keys/"+url.PathEscape(id), &raw); err != nil {
		return nil, err
	}
	l := r.toModel(raw)
	return &l, nil
}

// CompareAndSwap re-reads the key and only issues the PUT when its assignment
// state still matches expected. The API has no version field, so the window
// between the read and the PUT is not closed; callers serialize per key.
func (r *remoteLlaveRepo) CompareAndSwap(ctx context.Context, expected model.Llave, next *model.Llave) error {
	current, err := r.FindByID(ctx, expected.ID)
	if err != nil {
		return err
	}
	if current.Available != expected.Available ||
		deref(current.LastAssignedClient) != deref(expected.LastAssignedClient) ||
		deref(current.Notes) != deref(expected.Notes) {
		return fmt.Errorf("llave %s: %w", expected.ID, ErrConflict)
	}

	body := remoteKey{
		ID:                 remoteID(expected.ID),
		Available:          next.Available,
		LastAssignedClient: next.LastAssignedClient,
		Notes:              next.Notes,
		Zone:               next.Zone,
		Number:             next.Number,
	}
	if next.AssignedAt != nil {
		s := next.AssignedAt.Format(time.RFC3339)
		body.AssignedAt = &s
	}
	return r.client.PutJSON(ctx, "/api/Keys/"+url.PathEscape(expected.ID), body, nil)
}

func (r *remoteLlaveRepo) toModel(k remoteKey) model.Llave {
	l := model.Llave{
		ID:                 string(k.ID),
		Zone:               normalizeZone(k.Zone),
		Number:             k.Number,
		Available:          k.Available,
		LastAssignedClient: nonEmpty(k.LastAssignedClient),
		Notes:              nonEmpty(k.Notes),
	}
	for _, s := range []*string{k.Since, k.AssignedAt} {
		if s == nil {
			continue
		}
		if t, ok := parseRemoteTime(*s, r.loc); ok {
			l.AssignedAt = &t
			break
		}
	}
	return l
}

func normalizeZone(z string) string {
	switch strings.ToLower(strings.TrimSpace(z)) {
	case "hombres", "h":
		return model.ZonaHombres
	case "mujeres", "m":
		return model.ZonaMujeres
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
