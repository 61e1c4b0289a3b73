package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/model"
)

// LockerCode formats a locker code: "3H", "16M".
func LockerCode(zone string, number int) string {
	suffix := "H"
	if zone == model.ZonaMujeres {
		suffix = "M"
	}
	return strconv.Itoa(number) + suffix
}

// ParseLockerCode reads "<n><H|M>" (case-insensitive), n in 1..16.
func ParseLockerCode(code string) (zone string, number int, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return "", 0, fmt.Errorf("código de casillero %q inválido: %w", code, apierror.ErrInvalidInput)
	}
	switch code[len(code)-1] {
	case 'H':
		zone = model.ZonaHombres
	case 'M':
		zone = model.ZonaMujeres
	default:
		return "", 0, fmt.Errorf("código de casillero %q inválido: %w", code, apierror.ErrInvalidInput)
	}
	number, convErr := strconv.Atoi(code[:len(code)-1])
	if convErr != nil || number < 1 || number > model.LockersPorZona {
		return "", 0, fmt.Errorf("código de casillero %q inválido: %w", code, apierror.ErrInvalidInput)
	}
	return zone, number, nil
}

// DeriveLockerView maps key entities onto the 16 + 16 locker board, Hombres
// first, each zone ordered by number.
//
// Keys are placed by their explicit zone and number when every key carries a
// valid one and no two keys share a slot. Otherwise the whole set falls back
// to the legacy positional rule: sort by raw id, the first 16 are Hombres
// 1..16 and the next 16 Mujeres 1..16, extra keys are left off the board.
func DeriveLockerView(keys []model.Llave) []dto.LockerView {
	var views []dto.LockerView
	if hasExplicitPlacement(keys) {
		views = make([]dto.LockerView, 0, len(keys))
		for _, k := range keys {
			views = append(views, toLockerView(k, k.Zone, k.Number))
		}
	} else {
		sorted := make([]model.Llave, len(keys))
		copy(sorted, keys)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

		total := 2 * model.LockersPorZona
		if len(sorted) < total {
			total = len(sorted)
		}
		views = make([]dto.LockerView, 0, total)
		for i := 0; i < total; i++ {
			zone, number := model.ZonaHombres, i+1
			if i >= model.LockersPorZona {
				zone, number = model.ZonaMujeres, i-model.LockersPorZona+1
			}
			views = append(views, toLockerView(sorted[i], zone, number))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Zone != views[j].Zone {
			return views[i].Zone == model.ZonaHombres
		}
		return views[i].Number < views[j].Number
	})
	return views
}

// hasExplicitPlacement reports whether keys map one-to-one onto board slots.
// Distinct valid slots also bound the set to 32 keys.
func hasExplicitPlacement(keys []model.Llave) bool {
	if len(keys) == 0 || len(keys) > 2*model.LockersPorZona {
		return false
	}
	taken := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.Zone != model.ZonaHombres && k.Zone != model.ZonaMujeres {
			return false
		}
		if k.Number < 1 || k.Number > model.LockersPorZona {
			return false
		}
		code := LockerCode(k.Zone, k.Number)
		if taken[code] {
			return false
		}
		taken[code] = true
	}
	return true
}

func toLockerView(k model.Llave, zone string, number int) dto.LockerView {
	status := dto.LockerOcupada
	if k.Available {
		status = dto.LockerDisponible
	}
	return dto.LockerView{
		ID:         k.ID,
		Code:       LockerCode(zone, number),
		Zone:       zone,
		Number:     number,
		Status:     status,
		Available:  k.Available,
		AssignedTo: assignedTo(k),
		Since:      k.AssignedAt,
	}
}

// assignedTo joins the client name and the note with " · ", or returns
// whichever is present.
func assignedTo(k model.Llave) *string {
	client := ""
	if k.LastAssignedClient != nil {
		client = strings.TrimSpace(*k.LastAssignedClient)
	}
	note := ""
	if k.Notes != nil {
		note = strings.TrimSpace(*k.Notes)
	}
	var out string
	switch {
	case client != "" && note != "":
		out = client + " · " + note
	case client != "":
		out = client
	case note != "":
		out = note
	default:
		return nil
	}
	return &out
}

func buildTablero(views []dto.LockerView) *dto.TableroResponse {
	t := &dto.TableroResponse{
		Hombres: []dto.LockerView{},
		Mujeres: []dto.LockerView{},
	}
	for _, v := range views {
		if v.Zone == model.ZonaHombres {
			t.Hombres = append(t.Hombres, v)
		} else {
			t.Mujeres = append(t.Mujeres, v)
		}
		if v.Available {
			t.Disponibles++
		} else {
			t.Ocupadas++
		}
	}
	return t
}
