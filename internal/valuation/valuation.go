package valuation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/domiciliarios-backend/internal/services"
)

const (
	// UrbanValue is paid for any in-town delivery.
	UrbanValue int64 = 5000
	// RuralValue is paid for out-of-town (foráneo) deliveries.
	RuralValue int64 = 8000

	ruralDescription = "foráneo"

	// DateUnavailable stands in for the date range of an empty batch.
	DateUnavailable = "N/A"
	// NoCourier stands in for the courier name of an empty batch.
	NoCourier = "Sin domiciliario"
)

var (
	courierRate  = decimal.RequireFromString("0.7")
	platformRate = decimal.RequireFromString("0.3")
)

// Kind classifies a service for valuation.
type Kind string

const (
	KindUrban Kind = "urbano"
	KindRural Kind = "foraneo"
)

// KindOf classifies by tipo.descripcion; anything other than foráneo, including no type, is urban.
func KindOf(svc services.Service) Kind {
	if strings.ToLower(strings.TrimSpace(svc.TypeDescription())) == ruralDescription {
		return KindRural
	}
	return KindUrban
}

// ValueOf returns the unit value of a service.
func ValueOf(svc services.Service) int64 {
	if KindOf(svc) == KindRural {
		return RuralValue
	}
	return UrbanValue
}

// Summary aggregates a batch. Shares are rounded independently and are not re-normalized,
// so CourierShare+PlatformShare may differ from Total by one unit.
type Summary struct {
	Count         int        `json:"count"`
	UrbanCount    int        `json:"urbanCount"`
	RuralCount    int        `json:"ruralCount"`
	Total         int64      `json:"total"`
	CourierShare  int64      `json:"courierShare"`
	PlatformShare int64      `json:"platformShare"`
	DateFrom      *time.Time `json:"dateFrom"`
	DateTo        *time.Time `json:"dateTo"`
	CourierName   string     `json:"courierName"`
	CourierPhone  string     `json:"courierPhone"`
}

// Summarize folds ValueOf over the batch. It never fails; an empty batch yields zeros, no
// date range and the NoCourier name.
func Summarize(batch []services.Service) Summary {
	summary := Summary{
		Count:       len(batch),
		CourierName: NoCourier,
	}
	if len(batch) == 0 {
		return summary
	}

	first := batch[0].Courier
	if name := first.FullName(); name != "" {
		summary.CourierName = name
	}
	summary.CourierPhone = strings.TrimSpace(first.Phone)

	from := batch[0].RequestedAt
	to := batch[0].RequestedAt
	for _, svc := range batch {
		switch KindOf(svc) {
		case KindRural:
			summary.RuralCount++
		default:
			summary.UrbanCount++
		}
		summary.Total += ValueOf(svc)
		if svc.RequestedAt.Before(from) {
			from = svc.RequestedAt
		}
		if svc.RequestedAt.After(to) {
			to = svc.RequestedAt
		}
	}
	summary.DateFrom = &from
	summary.DateTo = &to

	summary.CourierShare, summary.PlatformShare = shares(summary.Total)

	return summary
}

// shares splits total 70/30, each side rounded half away from zero on its own.
func shares(total int64) (courier, platform int64) {
	amount := decimal.NewFromInt(total)
	return amount.Mul(courierRate).Round(0).IntPart(), amount.Mul(platformRate).Round(0).IntPart()
}

// FormatDate renders a summary bound as a calendar day in loc, or DateUnavailable.
func FormatDate(ts *time.Time, loc *time.Location) string {
	if ts == nil {
		return DateUnavailable
	}
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(time.DateOnly)
}
