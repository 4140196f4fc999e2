package strapi

import (
	"net/url"
	"testing"
	"time"
)

func TestQueryValuesNestedFilters(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	q := Query{
		Filters: Filters{
			"liquidado":      Eq(false),
			"fechaSolicitud": Between(from, to),
			"comercio":       Filters{"id": Eq(7)},
		},
	}
	values := q.Values()

	expect := map[string]string{
		"filters[liquidado][$eq]":              "false",
		"filters[fechaSolicitud][$between][0]": "2024-03-01T00:00:00Z",
		"filters[fechaSolicitud][$between][1]": "2024-03-31T23:59:59Z",
		"filters[comercio][id][$eq]":           "7",
	}
	for key, want := range expect {
		if got := values.Get(key); got != want {
			t.Fatalf("key %s: expected %q got %q (all=%v)", key, want, got, values)
		}
	}
	if len(values) != len(expect) {
		t.Fatalf("unexpected extra keys: %v", values)
	}
}

func TestQueryValuesLogicalGroupsAreIndexed(t *testing.T) {
	q := Query{
		Filters: Filters{
			OpOr: Or(
				Filters{"estado": Eq("entregado")},
				Filters{"estado": NotIn("cancelado", "eliminado")},
			),
		},
	}
	values := q.Values()

	if got := values.Get("filters[$or][0][estado][$eq]"); got != "entregado" {
		t.Fatalf("unexpected first branch %q", got)
	}
	if got := values.Get("filters[$or][1][estado][$notIn][0]"); got != "cancelado" {
		t.Fatalf("unexpected notIn[0] %q", got)
	}
	if got := values.Get("filters[$or][1][estado][$notIn][1]"); got != "eliminado" {
		t.Fatalf("unexpected notIn[1] %q", got)
	}
}

func TestQueryValuesUnknownOperatorPassesThrough(t *testing.T) {
	q := Query{Filters: Filters{"nombre": Condition{"$startsWithi": "ju"}}}
	if got := q.Values().Get("filters[nombre][$startsWithi]"); got != "ju" {
		t.Fatalf("expected unknown operator to serialize verbatim, got %q", got)
	}
}

func TestQueryValuesSortPaginationPopulate(t *testing.T) {
	q := Query{
		Sort:     []Sort{{Field: "fechaSolicitud", Direction: SortDesc}, {Field: "id"}},
		Page:     2,
		PageSize: 25,
		Populate: []string{PopulateAll},
	}
	values := q.Values()
	if values.Get("sort[0]") != "fechaSolicitud:desc" || values.Get("sort[1]") != "id" {
		t.Fatalf("unexpected sort tokens %v", values)
	}
	if values.Get("pagination[page]") != "2" || values.Get("pagination[pageSize]") != "25" {
		t.Fatalf("unexpected pagination %v", values)
	}
	if values.Get("populate") != "*" {
		t.Fatalf("expected populate=*, got %v", values)
	}

	q.Populate = []string{"comercio", "colaborador"}
	values = q.Values()
	if values.Get("populate[0]") != "comercio" || values.Get("populate[1]") != "colaborador" {
		t.Fatalf("unexpected populate list %v", values)
	}
}

func TestQueryEncodeIsDeterministic(t *testing.T) {
	q := Query{Filters: Filters{"b": Eq(1), "a": Gte(2), "c": Lte(3)}}
	first := q.Encode()
	for i := 0; i < 10; i++ {
		if q.Encode() != first {
			t.Fatalf("encode should be stable")
		}
	}
	decoded, err := url.ParseQuery(first)
	if err != nil {
		t.Fatalf("parse encoded: %v", err)
	}
	if decoded.Get("filters[a][$gte]") != "2" {
		t.Fatalf("encoded query lost a leaf: %v", decoded)
	}
}

func TestFiltersWithDoesNotMutate(t *testing.T) {
	base := Filters{"colaborador": Filters{"id": Eq(3)}}
	pinned := base.With("liquidado", Eq(true))
	if _, ok := base["liquidado"]; ok {
		t.Fatalf("With mutated the receiver")
	}
	if _, ok := pinned["colaborador"]; !ok {
		t.Fatalf("With dropped existing keys")
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("fechaSolicitud:DESC")
	if err != nil || s.Field != "fechaSolicitud" || s.Direction != SortDesc {
		t.Fatalf("unexpected sort %+v err=%v", s, err)
	}
	if _, err := ParseSort("id:sideways"); err == nil {
		t.Fatalf("expected invalid direction error")
	}
	if _, err := ParseSort(":asc"); err == nil {
		t.Fatalf("expected missing field error")
	}
}
