package notifications

import (
	"time"

	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/valuation"
)

// Payload is the settlement document posted to both webhooks. Field names are a wire
// contract with the messaging automation and must not change.
type Payload struct {
	TelefonoDomiciliario string        `json:"telefonoDomiciliario"`
	NombreDomiciliario   string        `json:"nombreDomiciliario"`
	ServiciosCount       int           `json:"serviciosCount"`
	FechaInicio          string        `json:"fechaInicio"`
	FechaFin             string        `json:"fechaFin"`
	Urbanos              int           `json:"urbanos"`
	Rurales              int           `json:"rurales"`
	TotalValor           int64         `json:"totalValor"`
	ValorDomiciliario    int64         `json:"valorDomiciliario"`
	ValorAplicacion      int64         `json:"valorAplicacion"`
	Servicios            []ServiceLine `json:"servicios"`
}

// ServiceLine is one service inside Payload.
type ServiceLine struct {
	ID             int    `json:"id"`
	FechaSolicitud string `json:"fechaSolicitud"`
	Estado         string `json:"estado"`
	Comercio       string `json:"comercio"`
	Tipo           string `json:"tipo"`
	Valor          int64  `json:"valor"`
	Locacion       string `json:"locacion"`
	Cliente        string `json:"cliente"`
	Liquidado      bool   `json:"liquidado"`
}

// BuildPayload renders batch and its summary. Dates are formatted as calendar days in loc;
// per-service timestamps keep the time of day.
func BuildPayload(batch []services.Service, summary valuation.Summary, loc *time.Location) Payload {
	if loc == nil {
		loc = time.UTC
	}
	lines := make([]ServiceLine, 0, len(batch))
	for _, svc := range batch {
		lines = append(lines, ServiceLine{
			ID:             svc.ID,
			FechaSolicitud: svc.RequestedAt.In(loc).Format(time.RFC3339),
			Estado:         svc.Status.String(),
			Comercio:       svc.Merchant.Name,
			Tipo:           svc.TypeDescription(),
			Valor:          valuation.ValueOf(svc),
			Locacion:       svc.LocationDescription(),
			Cliente:        svc.Courier.FullName(),
			Liquidado:      svc.Settled,
		})
	}

	return Payload{
		TelefonoDomiciliario: summary.CourierPhone,
		NombreDomiciliario:   summary.CourierName,
		ServiciosCount:       summary.Count,
		FechaInicio:          valuation.FormatDate(summary.DateFrom, loc),
		FechaFin:             valuation.FormatDate(summary.DateTo, loc),
		Urbanos:              summary.UrbanCount,
		Rurales:              summary.RuralCount,
		TotalValor:           summary.Total,
		ValorDomiciliario:    summary.CourierShare,
		ValorAplicacion:      summary.PlatformShare,
		Servicios:            lines,
	}
}
