package strapi

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Operator is a comparison or logical operator understood by the data API.
type Operator string

const (
	OpEq        Operator = "$eq"
	OpNe        Operator = "$ne"
	OpGt        Operator = "$gt"
	OpGte       Operator = "$gte"
	OpLt        Operator = "$lt"
	OpLte       Operator = "$lte"
	OpIn        Operator = "$in"
	OpNotIn     Operator = "$notIn"
	OpBetween   Operator = "$between"
	OpNull      Operator = "$null"
	OpContainsi Operator = "$containsi"

	OpOr  = "$or"
	OpAnd = "$and"
)

// PopulateAll asks the data API to expand every first-level relation.
const PopulateAll = "*"

// Filters maps a field path, or a logical operator, to its condition. Values may be
// literals, Condition, nested Filters (relations), or []Filters under $or/$and.
type Filters map[string]any

// Condition maps operators to their arguments for a single field.
type Condition map[Operator]any

func Eq(value any) Condition { return Condition{OpEq: value} }

func Ne(value any) Condition { return Condition{OpNe: value} }

func Gte(value any) Condition { return Condition{OpGte: value} }

func Lte(value any) Condition { return Condition{OpLte: value} }

func IsNull(null bool) Condition { return Condition{OpNull: null} }

// Between builds an inclusive range condition; bounds are serialized positionally.
func Between(from, to any) Condition {
	return Condition{OpBetween: []any{from, to}}
}

func In(values ...any) Condition { return Condition{OpIn: values} }

func NotIn(values ...any) Condition { return Condition{OpNotIn: values} }

// Or groups alternative branches.
func Or(branches ...Filters) []Filters { return branches }

// And groups branches that must all match.
func And(branches ...Filters) []Filters { return branches }

// With returns a shallow copy of f with key set to value; f is left untouched.
func (f Filters) With(key string, value any) Filters {
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}

// Merge returns a copy of f overlaid with other.
func (f Filters) Merge(other Filters) Filters {
	out := make(Filters, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is one `field:direction` token.
type Sort struct {
	Field     string
	Direction SortDirection
}

func (s Sort) String() string {
	if s.Direction == "" {
		return s.Field
	}
	return fmt.Sprintf("%s:%s", s.Field, s.Direction)
}

// ParseSort reads a `field:direction` token.
func ParseSort(token string) (Sort, error) {
	field, dir, found := strings.Cut(strings.TrimSpace(token), ":")
	if strings.TrimSpace(field) == "" {
		return Sort{}, fmt.Errorf("sort field is required")
	}
	out := Sort{Field: strings.TrimSpace(field)}
	if !found {
		return out, nil
	}
	switch SortDirection(strings.ToLower(strings.TrimSpace(dir))) {
	case SortAsc:
		out.Direction = SortAsc
	case SortDesc:
		out.Direction = SortDesc
	default:
		return Sort{}, fmt.Errorf("invalid sort direction %q", dir)
	}
	return out, nil
}

// Query is the structured form of a list request.
type Query struct {
	Filters  Filters
	Sort     []Sort
	Page     int
	PageSize int
	Populate []string
	Fields   []string
}

// Values serializes the query using bracketed keys, e.g. filters[comercio][id][$eq]=7.
// Operators are not validated; the data API rejects what it does not understand.
func (q Query) Values() url.Values {
	values := url.Values{}
	if len(q.Filters) > 0 {
		encode(values, "filters", q.Filters)
	}
	for i, s := range q.Sort {
		values.Set(fmt.Sprintf("sort[%d]", i), s.String())
	}
	if q.Page > 0 {
		values.Set("pagination[page]", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pagination[pageSize]", strconv.Itoa(q.PageSize))
	}
	switch {
	case len(q.Populate) == 1 && q.Populate[0] == PopulateAll:
		values.Set("populate", PopulateAll)
	default:
		for i, field := range q.Populate {
			values.Set(fmt.Sprintf("populate[%d]", i), field)
		}
	}
	for i, field := range q.Fields {
		values.Set(fmt.Sprintf("fields[%d]", i), field)
	}
	return values
}

// Encode returns the URL-encoded query string.
func (q Query) Encode() string {
	return q.Values().Encode()
}

func encode(values url.Values, prefix string, value any) {
	switch v := value.(type) {
	case nil:
		values.Add(prefix, "")
	case Filters:
		for _, key := range sortedKeys(v) {
			encode(values, prefix+"["+key+"]", v[key])
		}
	case Condition:
		keys := make([]string, 0, len(v))
		for op := range v {
			keys = append(keys, string(op))
		}
		sort.Strings(keys)
		for _, key := range keys {
			encode(values, prefix+"["+key+"]", v[Operator(key)])
		}
	case map[string]any:
		encode(values, prefix, Filters(v))
	case []Filters:
		for i, branch := range v {
			encode(values, fmt.Sprintf("%s[%d]", prefix, i), branch)
		}
	case time.Time:
		values.Add(prefix, v.UTC().Format(time.RFC3339))
	case string:
		values.Add(prefix, v)
	case bool:
		values.Add(prefix, strconv.FormatBool(v))
	case float64:
		values.Add(prefix, strconv.FormatFloat(v, 'f', -1, 64))
	case fmt.Stringer:
		values.Add(prefix, v.String())
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				encode(values, fmt.Sprintf("%s[%d]", prefix, i), rv.Index(i).Interface())
			}
		case reflect.Pointer:
			if rv.IsNil() {
				values.Add(prefix, "")
				return
			}
			encode(values, prefix, rv.Elem().Interface())
		default:
			values.Add(prefix, fmt.Sprint(value))
		}
	}
}

func sortedKeys(f Filters) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
