package services

import (
	"fmt"
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

const (
	fieldCourier     = "colaborador"
	fieldMerchant    = "comercio"
	fieldRequestedAt = "fechaSolicitud"
	fieldSettled     = "liquidado"
	fieldSettledAt   = "fechaLiquidacion"
)

// DefaultSort lists newest requests first.
var DefaultSort = []strapi.Sort{
	{Field: fieldRequestedAt, Direction: strapi.SortDesc},
	{Field: "id", Direction: strapi.SortDesc},
}

// FilterState is everything that selects the visible result set. From and To are inclusive
// instants; callers resolve calendar days to start/end of day before building one.
type FilterState struct {
	CourierID  int                    `json:"courierId"`
	From       *time.Time             `json:"fechaInicio,omitempty"`
	To         *time.Time             `json:"fechaFin,omitempty"`
	MerchantID *int                   `json:"merchantId,omitempty"`
	Settlement enums.SettlementFilter `json:"settlement"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
}

// Normalize fills defaults for page, page size and settlement filter.
func (f FilterState) Normalize(defaultPageSize int) FilterState {
	params := pagination.Params{Page: f.Page, PageSize: f.PageSize}.Normalize(defaultPageSize)
	f.Page = params.Page
	f.PageSize = params.PageSize
	if f.Settlement == "" {
		f.Settlement = enums.SettlementFilterUnsettled
	}
	return f
}

// Validate rejects filter states that cannot produce a courier-scoped query.
func (f FilterState) Validate() error {
	details := map[string]string{}
	if f.CourierID <= 0 {
		details["courierId"] = "is required"
	}
	if f.MerchantID != nil && *f.MerchantID <= 0 {
		details["merchantId"] = "must be positive"
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		details["fechaInicio"] = "must not be after fechaFin"
	}
	if f.Settlement != "" && !f.Settlement.IsValid() {
		details["settlement"] = fmt.Sprintf("must be one of %s, %s, %s",
			enums.SettlementFilterUnsettled, enums.SettlementFilterSettled, enums.SettlementFilterAll)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").WithDetails(details)
	}
	return nil
}

// BaseFilter is the predicate shared by the detail query and every aggregate count:
// courier, date range and merchant. It never pins the settlement flag.
func BaseFilter(f FilterState) strapi.Filters {
	filters := strapi.Filters{
		fieldCourier: strapi.Filters{"id": strapi.Eq(f.CourierID)},
	}
	switch {
	case f.From != nil && f.To != nil:
		filters[fieldRequestedAt] = strapi.Between(*f.From, *f.To)
	case f.From != nil:
		filters[fieldRequestedAt] = strapi.Gte(*f.From)
	case f.To != nil:
		filters[fieldRequestedAt] = strapi.Lte(*f.To)
	}
	if f.MerchantID != nil {
		filters[fieldMerchant] = strapi.Filters{"id": strapi.Eq(*f.MerchantID)}
	}
	return filters
}

// PinSettled returns base with the liquidado flag pinned; nil leaves it unpinned.
func PinSettled(base strapi.Filters, settled *bool) strapi.Filters {
	if settled == nil {
		return base
	}
	return base.With(fieldSettled, strapi.Eq(*settled))
}

// DetailFilter is BaseFilter plus the three-way settlement filter.
func DetailFilter(f FilterState) strapi.Filters {
	return PinSettled(BaseFilter(f), f.Settlement.Flag())
}

// DayRange resolves calendar days (YYYY-MM-DD) in loc to inclusive instants. Either may be empty.
func DayRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	var start, end *time.Time
	if from != "" {
		day, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fechaInicio").
				WithDetails(map[string]string{"fechaInicio": "must be YYYY-MM-DD"})
		}
		start = &day
	}
	if to != "" {
		day, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fechaFin").
				WithDetails(map[string]string{"fechaFin": "must be YYYY-MM-DD"})
		}
		last := day.AddDate(0, 0, 1).Add(-time.Millisecond)
		end = &last
	}
	return start, end, nil
}
