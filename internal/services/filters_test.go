package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

func TestBaseFilterNeverPinsSettlement(t *testing.T) {
	merchant := 7
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	f := FilterState{CourierID: 3, From: &from, To: &to, MerchantID: &merchant, Settlement: enums.SettlementFilterSettled}

	values := strapi.Query{Filters: BaseFilter(f)}.Values()
	if values.Get("filters[liquidado][$eq]") != "" {
		t.Fatalf("base filter must not pin liquidado: %v", values)
	}
	if values.Get("filters[comercio][id][$eq]") != "7" {
		t.Fatalf("merchant filter missing: %v", values)
	}
	if values.Get("filters[fechaSolicitud][$between][0]") != "2024-03-01T00:00:00Z" {
		t.Fatalf("date range missing: %v", values)
	}

	detail := strapi.Query{Filters: DetailFilter(f)}.Values()
	if detail.Get("filters[liquidado][$eq]") != "true" {
		t.Fatalf("detail filter should pin liquidado=true: %v", detail)
	}

	f.Settlement = enums.SettlementFilterAll
	if (strapi.Query{Filters: DetailFilter(f)}).Values().Get("filters[liquidado][$eq]") != "" {
		t.Fatalf("all filter should not pin liquidado")
	}
}

func TestBaseFilterOpenEndedRanges(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	values := strapi.Query{Filters: BaseFilter(FilterState{CourierID: 1, From: &from})}.Values()
	if values.Get("filters[fechaSolicitud][$gte]") == "" {
		t.Fatalf("expected $gte bound: %v", values)
	}
	values = strapi.Query{Filters: BaseFilter(FilterState{CourierID: 1, To: &from})}.Values()
	if values.Get("filters[fechaSolicitud][$lte]") == "" {
		t.Fatalf("expected $lte bound: %v", values)
	}
}

func TestFilterStateValidate(t *testing.T) {
	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := FilterState{From: &from, To: &to, Settlement: "paid"}.Validate()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := typed.Details().(map[string]string)
	for _, field := range []string{"courierId", "fechaInicio", "settlement"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
	if err := (FilterState{CourierID: 3}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFilterStateNormalize(t *testing.T) {
	f := FilterState{CourierID: 3, PageSize: 1000}.Normalize(10)
	if f.Page != 1 || f.PageSize != 100 || f.Settlement != enums.SettlementFilterUnsettled {
		t.Fatalf("unexpected normalized filter %+v", f)
	}
}

func TestDayRangeIsInclusive(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	start, end, err := DayRange("2024-03-01", "2024-03-31", loc)
	if err != nil {
		t.Fatalf("day range: %v", err)
	}
	if start.UTC() != time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected start %v", start.UTC())
	}
	if end.UTC() != time.Date(2024, 4, 1, 4, 59, 59, 999000000, time.UTC) {
		t.Fatalf("unexpected end %v", end.UTC())
	}
	if _, _, err := DayRange("01/03/2024", "", loc); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	start, end, err = DayRange("", "", nil)
	if err != nil || start != nil || end != nil {
		t.Fatalf("expected open range")
	}
}

type recordingCounter struct {
	mu     sync.Mutex
	pinned []string
	counts map[string]int
}

func (c *recordingCounter) CountOnly(ctx context.Context, base strapi.Filters, settled *bool) (int, error) {
	key := "all"
	if settled != nil && *settled {
		key = "settled"
	} else if settled != nil {
		key = "unsettled"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := base["liquidado"]; ok {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "base filter leaked a settlement pin")
	}
	c.pinned = append(c.pinned, key)
	return c.counts[key], nil
}

func TestFetchTotalsRunsThreeNamedCounts(t *testing.T) {
	counter := &recordingCounter{counts: map[string]int{"settled": 4, "unsettled": 3, "all": 7}}
	totals, err := FetchTotals(context.Background(), counter, FilterState{CourierID: 3, Settlement: enums.SettlementFilterSettled})
	if err != nil {
		t.Fatalf("fetch totals: %v", err)
	}
	if totals != (Totals{Settled: 4, Unsettled: 3, All: 7}) {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if len(counter.pinned) != 3 {
		t.Fatalf("expected three count queries, got %v", counter.pinned)
	}
}

type failingCounter struct{}

func (failingCounter) CountOnly(context.Context, strapi.Filters, *bool) (int, error) {
	return 0, pkgerrors.New(pkgerrors.CodeDependency, "boom")
}

func TestFetchTotalsPropagatesFailure(t *testing.T) {
	if _, err := FetchTotals(context.Background(), failingCounter{}, FilterState{CourierID: 3}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
