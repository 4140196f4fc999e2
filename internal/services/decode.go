package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
)

// ErrInvalidRecord marks a record the data API returned without the fields settlement needs.
var ErrInvalidRecord = errors.New("invalid service record")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// wireService is the raw record shape; relations are pointers so absence is detectable.
type wireService struct {
	ID               int          `json:"id"`
	DocumentID       string       `json:"documentId"`
	FechaSolicitud   string       `json:"fechaSolicitud"`
	Estado           string       `json:"estado"`
	Liquidado        *bool        `json:"liquidado"`
	FechaLiquidacion *string      `json:"fechaLiquidacion"`
	Tipo             *ServiceType `json:"tipo"`
	Comercio         *Merchant    `json:"comercio"`
	Colaborador      *Courier     `json:"colaborador"`
	Locacion         *Location    `json:"locacion"`
}

func (w wireService) toService() (Service, error) {
	if w.ID == 0 {
		return Service{}, invalidRecord(w.ID, "id")
	}
	if strings.TrimSpace(w.DocumentID) == "" {
		return Service{}, invalidRecord(w.ID, "documentId")
	}
	if w.Comercio == nil {
		return Service{}, invalidRecord(w.ID, "comercio")
	}
	if w.Colaborador == nil {
		return Service{}, invalidRecord(w.ID, "colaborador")
	}

	requestedAt, err := parseTimestamp(w.FechaSolicitud)
	if err != nil {
		return Service{}, invalidRecord(w.ID, "fechaSolicitud")
	}

	svc := Service{
		ID:          w.ID,
		DocumentID:  strings.TrimSpace(w.DocumentID),
		RequestedAt: requestedAt,
		Status:      enums.ServiceStatus(strings.TrimSpace(w.Estado)),
		Settled:     w.Liquidado != nil && *w.Liquidado,
		Type:        w.Tipo,
		Merchant:    *w.Comercio,
		Courier:     *w.Colaborador,
		Location:    w.Locacion,
	}

	if w.FechaLiquidacion != nil && strings.TrimSpace(*w.FechaLiquidacion) != "" {
		settledAt, err := parseTimestamp(*w.FechaLiquidacion)
		if err != nil {
			return Service{}, invalidRecord(w.ID, "fechaLiquidacion")
		}
		svc.SettledAt = &settledAt
	}
	if svc.Settled && svc.SettledAt == nil {
		return Service{}, invalidRecord(w.ID, "fechaLiquidacion")
	}

	return svc, nil
}

func decodeServices(rows []wireService) ([]Service, error) {
	out := make([]Service, 0, len(rows))
	for _, row := range rows {
		svc, err := row.toService()
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func invalidRecord(id int, field string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: service %d missing %s", ErrInvalidRecord, id, field), "data api returned an incomplete service").
		WithDetails(map[string]any{"serviceId": id, "field": field})
}
