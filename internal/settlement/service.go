package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	"github.com/angelmondragon/domiciliarios-backend/internal/notifications"
	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/valuation"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
)

// Actor is the authenticated administrator driving a workflow. Tokens supplies the data API
// token of their login; it is handed to every repository built on their behalf.
type Actor struct {
	UserID   int
	Username string
	Tokens   services.TokenSource
}

// RepositoryFactory builds a service repository bound to one actor's token.
type RepositoryFactory func(tokens services.TokenSource) (services.Repository, error)

// RunRecorder is the audit ledger surface used by Confirm.
type RunRecorder interface {
	RecordRun(ctx context.Context, input ledger.RecordRunInput) (*ledger.Run, error)
}

// CommitObserver receives one observation per confirm that reached the data API.
type CommitObserver interface {
	ObserveCommit(outcome string, settledCount int)
}

// Preview is the projection shown before confirming.
type Preview struct {
	Summary  valuation.Summary     `json:"summary"`
	Payload  notifications.Payload `json:"payload"`
	Workflow *Workflow             `json:"session"`
}

// SharedPreview is a preview plus the result of posting it.
type SharedPreview struct {
	Preview
	Notification notifications.Result `json:"notification"`
}

// CommitResult reports a confirm. Aborted means the batch was empty and nothing happened.
// Outcomes always holds one entry per attempted service.
type CommitResult struct {
	Aborted      bool                    `json:"aborted"`
	Outcome      enums.SettlementOutcome `json:"outcome,omitempty"`
	Outcomes     services.SettleOutcomes `json:"outcomes"`
	Succeeded    []string                `json:"succeeded"`
	Failed       services.SettleOutcomes `json:"failed"`
	Summary      *valuation.Summary      `json:"summary,omitempty"`
	Notification *notifications.Result   `json:"notification,omitempty"`
	RunID        string                  `json:"runId,omitempty"`
	RefreshError string                  `json:"refreshError,omitempty"`
	Workflow     *Workflow               `json:"session"`
}

// Service drives settlement workflows.
type Service interface {
	Open(ctx context.Context, actor Actor, filter services.FilterState) (*Workflow, error)
	Get(ctx context.Context, actor Actor, id string) (*Workflow, error)
	SetFilter(ctx context.Context, actor Actor, id string, filter services.FilterState) (*Workflow, error)
	Refresh(ctx context.Context, actor Actor, id string) (*Workflow, error)
	Toggle(ctx context.Context, actor Actor, id string, serviceID int) (*Workflow, error)
	SelectAll(ctx context.Context, actor Actor, id string, selected bool) (*Workflow, error)
	Preview(ctx context.Context, actor Actor, id string) (*Preview, error)
	SharePreview(ctx context.Context, actor Actor, id string) (*SharedPreview, error)
	Confirm(ctx context.Context, actor Actor, id string) (*CommitResult, error)
	Close(ctx context.Context, actor Actor, id string) error
}

// ServiceParams wires the workflow service.
type ServiceParams struct {
	Store           Store
	Repositories    RepositoryFactory
	Notifier        notifications.Notifier
	Ledger          RunRecorder
	Metrics         CommitObserver
	Logger          *logger.Logger
	Location        *time.Location
	DefaultPageSize int
	Now             func() time.Time
	NewID           func() string
}

type service struct {
	store           Store
	repositories    RepositoryFactory
	notifier        notifications.Notifier
	ledger          RunRecorder
	metrics         CommitObserver
	logg            *logger.Logger
	loc             *time.Location
	defaultPageSize int
	now             func() time.Time
	newID           func() string

	locks sync.Map
}

// NewService validates dependencies and builds the workflow service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("workflow store required")
	}
	if params.Repositories == nil {
		return nil, fmt.Errorf("repository factory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		store:           params.Store,
		repositories:    params.Repositories,
		notifier:        params.Notifier,
		ledger:          params.Ledger,
		metrics:         params.Metrics,
		logg:            params.Logger,
		loc:             params.Location,
		defaultPageSize: params.DefaultPageSize,
		now:             params.Now,
		newID:           params.NewID,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc, nil
}

// lock serializes operations on one workflow within this process.
func (s *service) lock(id string) func() {
	value, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *service) prepareFilter(filter services.FilterState) (services.FilterState, error) {
	if err := filter.Validate(); err != nil {
		return services.FilterState{}, err
	}
	return filter.Normalize(s.defaultPageSize), nil
}

func (s *service) repository(actor Actor) (services.Repository, error) {
	if actor.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session has no data api token")
	}
	repo, err := s.repositories(actor.Tokens)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build service repository")
	}
	return repo, nil
}

func (s *service) logContext(ctx context.Context, wf *Workflow) context.Context {
	ctx = s.logg.WithSettlementSession(ctx, wf.ID)
	return s.logg.WithCourierID(ctx, wf.Filter.CourierID)
}

// load fetches a workflow owned by actor. Another user's workflow is reported as missing.
func (s *service) load(ctx context.Context, actor Actor, id string) (*Workflow, error) {
	wf, err := s.store.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			// expired or closed elsewhere; drop its lock
			s.locks.Delete(id)
		}
		return nil, err
	}
	if wf.OwnerID != actor.UserID {
		return nil, errWorkflowNotFound(id)
	}
	return wf, nil
}

func (s *service) save(ctx context.Context, wf *Workflow) error {
	wf.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, wf)
}

// reload runs the detail page and the three aggregate counts concurrently, then drops any
// batch entry the new page no longer shows as selectable.
func (s *service) reload(ctx context.Context, repo services.Repository, wf *Workflow) error {
	filter := wf.Filter

	var (
		list   *services.ServiceList
		totals services.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := repo.List(gctx, services.DetailFilter(filter), services.DefaultSort, filter.Page, filter.PageSize)
		list = page
		return err
	})
	g.Go(func() error {
		counts, err := services.FetchTotals(gctx, repo, filter)
		totals = counts
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	wf.Records = list.Records
	wf.Pagination = list.Pagination
	wf.Totals = totals
	wf.prune()
	return nil
}

func (s *service) Open(ctx context.Context, actor Actor, filter services.FilterState) (*Workflow, error) {
	filter, err := s.prepareFilter(filter)
	if err != nil {
		return nil, err
	}
	repo, err := s.repository(actor)
	if err != nil {
		return nil, err
	}

	wf := newWorkflow(s.newID(), actor.UserID, filter, s.now().UTC())
	ctx = s.logContext(ctx, wf)
	if err := s.reload(ctx, repo, wf); err != nil {
		s.logg.Error(ctx, "failed to load settlement session", err)
		return nil, err
	}
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "settlement session opened")
	return wf, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id string) (*Workflow, error) {
	return s.load(ctx, actor, id)
}

// SetFilter covers every change to courier, dates, merchant, settlement filter or page. The
// batch is always emptied, even when the new filter equals the old one.
func (s *service) SetFilter(ctx context.Context, actor Actor, id string, filter services.FilterState) (*Workflow, error) {
	filter, err := s.prepareFilter(filter)
	if err != nil {
		return nil, err
	}
	repo, err := s.repository(actor)
	if err != nil {
		return nil, err
	}

	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	wf.reset(filter)
	wf.clearPage()
	ctx = s.logContext(ctx, wf)
	reloadErr := s.reload(ctx, repo, wf)
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	if reloadErr != nil {
		s.logg.Error(ctx, "failed to reload settlement session", reloadErr)
		return nil, reloadErr
	}
	return wf, nil
}

func (s *service) Refresh(ctx context.Context, actor Actor, id string) (*Workflow, error) {
	repo, err := s.repository(actor)
	if err != nil {
		return nil, err
	}

	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := wf.guardSelection(); err != nil {
		return nil, err
	}

	ctx = s.logContext(ctx, wf)
	if err := s.reload(ctx, repo, wf); err != nil {
		s.logg.Error(ctx, "failed to refresh settlement session", err)
		return nil, err
	}
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (s *service) Toggle(ctx context.Context, actor Actor, id string, serviceID int) (*Workflow, error) {
	return s.mutate(ctx, actor, id, func(wf *Workflow) error {
		return wf.toggle(serviceID)
	})
}

func (s *service) SelectAll(ctx context.Context, actor Actor, id string, selected bool) (*Workflow, error) {
	return s.mutate(ctx, actor, id, func(wf *Workflow) error {
		return wf.selectAll(selected)
	})
}

func (s *service) mutate(ctx context.Context, actor Actor, id string, fn func(*Workflow) error) (*Workflow, error) {
	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := fn(wf); err != nil {
		return nil, err
	}
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (s *service) Preview(ctx context.Context, actor Actor, id string) (*Preview, error) {
	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	summary, batch, err := wf.preview()
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}
	return &Preview{
		Summary:  summary,
		Payload:  notifications.BuildPayload(batch, summary, s.loc),
		Workflow: wf,
	}, nil
}

// SharePreview posts the current preview. It never changes the workflow and a failed post
// does not block confirmation.
func (s *service) SharePreview(ctx context.Context, actor Actor, id string) (*SharedPreview, error) {
	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	summary, batch, err := wf.summarize()
	if err != nil {
		return nil, err
	}
	payload := notifications.BuildPayload(batch, summary, s.loc)
	result := s.notifier.SendPreview(s.logContext(ctx, wf), payload)
	return &SharedPreview{
		Preview: Preview{
			Summary:  summary,
			Payload:  payload,
			Workflow: wf,
		},
		Notification: result,
	}, nil
}

func (s *service) Close(ctx context.Context, actor Actor, id string) error {
	defer s.lock(id)()
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)
	return nil
}
