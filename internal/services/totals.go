package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

// Counter is the part of Repository the aggregate queries use.
type Counter interface {
	CountOnly(ctx context.Context, base strapi.Filters, settled *bool) (int, error)
}

// Totals are the aggregate counts shown next to the detail list.
type Totals struct {
	Settled   int `json:"settled"`
	Unsettled int `json:"unsettled"`
	All       int `json:"total"`
}

// FetchTotals runs the three aggregate counts concurrently over the same base predicate.
// Each count pins the settlement flag itself, so the filter state's own settlement filter
// never leaks into the totals.
func FetchTotals(ctx context.Context, counter Counter, f FilterState) (Totals, error) {
	base := BaseFilter(f)

	var totals Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := countSettled(gctx, counter, base)
		totals.Settled = n
		return err
	})
	g.Go(func() error {
		n, err := countUnsettled(gctx, counter, base)
		totals.Unsettled = n
		return err
	})
	g.Go(func() error {
		n, err := countAll(gctx, counter, base)
		totals.All = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return totals, nil
}

func countSettled(ctx context.Context, counter Counter, base strapi.Filters) (int, error) {
	settled := true
	return counter.CountOnly(ctx, base, &settled)
}

func countUnsettled(ctx context.Context, counter Counter, base strapi.Filters) (int, error) {
	settled := false
	return counter.CountOnly(ctx, base, &settled)
}

func countAll(ctx context.Context, counter Counter, base strapi.Filters) (int, error) {
	return counter.CountOnly(ctx, base, nil)
}
