package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
	"github.com/angelmondragon/domiciliarios-backend/pkg/strapi"
)

const (
	defaultResource          = "servicios"
	defaultSettleConcurrency = 4
)

// TokenSource yields the data API token of the session the repository acts for.
type TokenSource interface {
	CurrentToken() string
}

// DataAPI is the subset of the data API client used here.
type DataAPI interface {
	Find(ctx context.Context, token, resource string, query strapi.Query, out any) (*strapi.Pagination, error)
	Update(ctx context.Context, token, resource, documentID string, data any, out any) error
}

// Repository exposes the delivery-service operations the settlement workflow needs.
type Repository interface {
	List(ctx context.Context, filters strapi.Filters, sort []strapi.Sort, page, pageSize int) (*ServiceList, error)
	CountOnly(ctx context.Context, base strapi.Filters, settled *bool) (int, error)
	MarkSettled(ctx context.Context, documentIDs []string) (SettleOutcomes, error)
}

// ServiceList is one page of validated services.
type ServiceList struct {
	Records    []Service       `json:"records"`
	Pagination pagination.Meta `json:"pagination"`
}

// SettleOutcome is the result of marking one service settled.
type SettleOutcome struct {
	DocumentID string     `json:"documentId"`
	Success    bool       `json:"success"`
	SettledAt  *time.Time `json:"settledAt,omitempty"`
	Error      string     `json:"error,omitempty"`
	err        error
}

// Err returns the underlying failure, if any.
func (o SettleOutcome) Err() error {
	return o.err
}

// SettleOutcomes holds one outcome per attempted documentId, in request order.
type SettleOutcomes []SettleOutcome

// AllSucceeded reports whether every attempt succeeded. An empty set is not a success.
func (o SettleOutcomes) AllSucceeded() bool {
	if len(o) == 0 {
		return false
	}
	for _, outcome := range o {
		if !outcome.Success {
			return false
		}
	}
	return true
}

// Succeeded lists the documentIds that were settled.
func (o SettleOutcomes) Succeeded() []string {
	out := []string{}
	for _, outcome := range o {
		if outcome.Success {
			out = append(out, outcome.DocumentID)
		}
	}
	return out
}

// Failed returns the failed outcomes.
func (o SettleOutcomes) Failed() SettleOutcomes {
	out := SettleOutcomes{}
	for _, outcome := range o {
		if !outcome.Success {
			out = append(out, outcome)
		}
	}
	return out
}

// Err combines every failure into one error, or nil.
func (o SettleOutcomes) Err() error {
	var combined error
	for _, outcome := range o {
		if outcome.Success {
			continue
		}
		err := outcome.err
		if err == nil {
			err = errors.New(outcome.Error)
		}
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", outcome.DocumentID, err))
	}
	return combined
}

// RepositoryParams wires a data API backed repository.
type RepositoryParams struct {
	API               DataAPI
	Tokens            TokenSource
	Resource          string
	SettleConcurrency int
	Now               func() time.Time
}

type repository struct {
	api         DataAPI
	tokens      TokenSource
	resource    string
	concurrency int
	now         func() time.Time
}

// NewRepository returns a repository acting on behalf of the given session.
func NewRepository(params RepositoryParams) (Repository, error) {
	if params.API == nil {
		return nil, fmt.Errorf("data api client required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token source required")
	}
	repo := &repository{
		api:         params.API,
		tokens:      params.Tokens,
		resource:    strings.TrimSpace(params.Resource),
		concurrency: params.SettleConcurrency,
		now:         params.Now,
	}
	if repo.resource == "" {
		repo.resource = defaultResource
	}
	if repo.concurrency < 1 {
		repo.concurrency = defaultSettleConcurrency
	}
	if repo.now == nil {
		repo.now = time.Now
	}
	return repo, nil
}

func (r *repository) token() (string, error) {
	token := strings.TrimSpace(r.tokens.CurrentToken())
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session has no data api token")
	}
	return token, nil
}

// List fetches one page with every relation populated and validates each record.
func (r *repository) List(ctx context.Context, filters strapi.Filters, sort []strapi.Sort, page, pageSize int) (*ServiceList, error) {
	token, err := r.token()
	if err != nil {
		return nil, err
	}
	params := pagination.Params{Page: page, PageSize: pageSize}.Normalize(pagination.DefaultPageSize)

	var rows []wireService
	meta, err := r.api.Find(ctx, token, r.resource, strapi.Query{
		Filters:  filters,
		Sort:     sort,
		Page:     params.Page,
		PageSize: params.PageSize,
		Populate: []string{strapi.PopulateAll},
	}, &rows)
	if err != nil {
		return nil, err
	}

	records, err := decodeServices(rows)
	if err != nil {
		return nil, err
	}

	return &ServiceList{
		Records: records,
		Pagination: pagination.Meta{
			Page:      meta.Page,
			PageSize:  meta.PageSize,
			PageCount: meta.PageCount,
			Total:     meta.Total,
		},
	}, nil
}

// CountOnly reads pagination.total from a one-row page.
func (r *repository) CountOnly(ctx context.Context, base strapi.Filters, settled *bool) (int, error) {
	token, err := r.token()
	if err != nil {
		return 0, err
	}
	meta, err := r.api.Find(ctx, token, r.resource, strapi.Query{
		Filters:  PinSettled(base, settled),
		Page:     1,
		PageSize: 1,
		Fields:   []string{"documentId"},
	}, nil)
	if err != nil {
		return 0, err
	}
	return meta.Total, nil
}

// MarkSettled issues one update per documentId. Every id is attempted regardless of other
// failures, and exactly one outcome per id is returned in input order. The error return is
// reserved for whole-call failures: nothing could be dispatched, or no attempt reached the
// data API at all.
func (r *repository) MarkSettled(ctx context.Context, documentIDs []string) (SettleOutcomes, error) {
	if len(documentIDs) == 0 {
		return SettleOutcomes{}, nil
	}
	token, err := r.token()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement canceled before dispatch")
	}

	settledAt := r.now().UTC()
	payload := map[string]any{
		fieldSettled:   true,
		fieldSettledAt: settledAt,
	}

	outcomes := make(SettleOutcomes, len(documentIDs))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, documentID := range documentIDs {
		g.Go(func() error {
			outcome := SettleOutcome{DocumentID: documentID}
			if err := r.api.Update(ctx, token, r.resource, documentID, payload, nil); err != nil {
				outcome.err = err
				outcome.Error = failureMessage(err)
			} else {
				outcome.Success = true
				at := settledAt
				outcome.SettledAt = &at
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	if unreachable(outcomes) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, outcomes.Err(), "data api unreachable, no service settled").
			WithDetails(map[string]any{"attempted": len(outcomes)})
	}
	return outcomes, nil
}

// unreachable reports whether every attempt failed without a response from the data API.
func unreachable(outcomes SettleOutcomes) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, outcome := range outcomes {
		if outcome.Success || !errors.Is(outcome.err, strapi.ErrTransport) {
			return false
		}
	}
	return true
}

func failureMessage(err error) string {
	var apiErr *strapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, strapi.ErrTransport) {
		return strapi.ErrTransport.Error()
	}
	return err.Error()
}
