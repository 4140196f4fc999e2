package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/domiciliarios-backend/pkg/db/models"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
)

// Service records and lists settlement runs.
type Service interface {
	RecordRun(ctx context.Context, input RecordRunInput) (*Run, error)
	ListRuns(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordRunInput captures the immutable facts of one confirmed settlement.
type RecordRunInput struct {
	WorkflowID         string
	ActorUserID        int
	ActorUsername      string
	CourierID          int
	CourierName        string
	ServicesCount      int
	UrbanCount         int
	RuralCount         int
	TotalValue         int64
	CourierShare       int64
	PlatformShare      int64
	DateFrom           *time.Time
	DateTo             *time.Time
	Succeeded          int
	FailedDocumentIDs  []string
	NotificationSent   bool
	NotificationStatus int
	NotificationError  string
}

// Outcome classifies the run from its success and failure counts.
func (in RecordRunInput) Outcome() enums.SettlementOutcome {
	switch {
	case len(in.FailedDocumentIDs) == 0:
		return enums.SettlementOutcomeCommitted
	case in.Succeeded == 0:
		return enums.SettlementOutcomeFailed
	default:
		return enums.SettlementOutcomePartial
	}
}

// Run is the API view of a stored settlement run.
type Run struct {
	ID                 string                  `json:"id"`
	WorkflowID         string                  `json:"workflowId"`
	ActorUserID        int                     `json:"actorUserId"`
	ActorUsername      string                  `json:"actorUsername,omitempty"`
	CourierID          int                     `json:"courierId"`
	CourierName        string                  `json:"courierName,omitempty"`
	Outcome            enums.SettlementOutcome `json:"outcome"`
	ServicesCount      int                     `json:"servicesCount"`
	UrbanCount         int                     `json:"urbanCount"`
	RuralCount         int                     `json:"ruralCount"`
	TotalValue         int64                   `json:"totalValue"`
	CourierShare       int64                   `json:"courierShare"`
	PlatformShare      int64                   `json:"platformShare"`
	DateFrom           *time.Time              `json:"dateFrom,omitempty"`
	DateTo             *time.Time              `json:"dateTo,omitempty"`
	SucceededCount     int                     `json:"succeededCount"`
	FailedCount        int                     `json:"failedCount"`
	FailedDocumentIDs  []string                `json:"failedDocumentIds"`
	NotificationSent   bool                    `json:"notificationSent"`
	NotificationStatus int                     `json:"notificationStatus,omitempty"`
	NotificationError  string                  `json:"notificationError,omitempty"`
	CreatedAt          time.Time               `json:"createdAt"`
}

// ListParams filters and pages the run history.
type ListParams struct {
	CourierID int
	Page      int
	PageSize  int
}

// ListResult wraps one page of runs.
type ListResult struct {
	Items      []Run           `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RecordRun(ctx context.Context, input RecordRunInput) (*Run, error) {
	if strings.TrimSpace(input.WorkflowID) == "" {
		return nil, fmt.Errorf("workflow id is required")
	}
	if input.ActorUserID <= 0 {
		return nil, fmt.Errorf("actor user id is required")
	}
	if input.CourierID <= 0 {
		return nil, fmt.Errorf("courier id is required")
	}
	if input.ServicesCount <= 0 {
		return nil, fmt.Errorf("services count must be positive")
	}
	if input.Succeeded+len(input.FailedDocumentIDs) != input.ServicesCount {
		return nil, fmt.Errorf("outcome counts (%d ok, %d failed) do not cover %d services",
			input.Succeeded, len(input.FailedDocumentIDs), input.ServicesCount)
	}

	failed := input.FailedDocumentIDs
	if failed == nil {
		failed = []string{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return nil, fmt.Errorf("encode failed document ids: %w", err)
	}

	run := &models.SettlementRun{
		ID:                 uuid.NewString(),
		WorkflowID:         input.WorkflowID,
		ActorUserID:        input.ActorUserID,
		ActorUsername:      input.ActorUsername,
		CourierID:          input.CourierID,
		CourierName:        input.CourierName,
		Outcome:            input.Outcome(),
		ServicesCount:      input.ServicesCount,
		UrbanCount:         input.UrbanCount,
		RuralCount:         input.RuralCount,
		TotalValue:         input.TotalValue,
		CourierShare:       input.CourierShare,
		PlatformShare:      input.PlatformShare,
		DateFrom:           input.DateFrom,
		DateTo:             input.DateTo,
		SucceededCount:     input.Succeeded,
		FailedCount:        len(failed),
		FailedDocumentIDs:  string(failedJSON),
		NotificationSent:   input.NotificationSent,
		NotificationStatus: input.NotificationStatus,
		NotificationError:  input.NotificationError,
		CreatedAt:          s.now().UTC(),
	}

	if err := s.repo.Create(ctx, run); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record settlement run")
	}
	view := toRun(*run)
	return &view, nil
}

func (s *service) ListRuns(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.CourierID < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id must be positive")
	}
	page := pagination.Params{Page: params.Page, PageSize: params.PageSize}.Normalize(pagination.DefaultPageSize)

	rows, total, err := s.repo.List(ctx, params.CourierID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement runs")
	}

	items := make([]Run, 0, len(rows))
	for _, row := range rows {
		items = append(items, toRun(row))
	}
	return &ListResult{
		Items:      items,
		Pagination: pagination.NewMeta(page, int(total)),
	}, nil
}

func toRun(row models.SettlementRun) Run {
	failed := []string{}
	if row.FailedDocumentIDs != "" {
		_ = json.Unmarshal([]byte(row.FailedDocumentIDs), &failed)
	}
	return Run{
		ID:                 row.ID,
		WorkflowID:         row.WorkflowID,
		ActorUserID:        row.ActorUserID,
		ActorUsername:      row.ActorUsername,
		CourierID:          row.CourierID,
		CourierName:        row.CourierName,
		Outcome:            row.Outcome,
		ServicesCount:      row.ServicesCount,
		UrbanCount:         row.UrbanCount,
		RuralCount:         row.RuralCount,
		TotalValue:         row.TotalValue,
		CourierShare:       row.CourierShare,
		PlatformShare:      row.PlatformShare,
		DateFrom:           row.DateFrom,
		DateTo:             row.DateTo,
		SucceededCount:     row.SucceededCount,
		FailedCount:        row.FailedCount,
		FailedDocumentIDs:  failed,
		NotificationSent:   row.NotificationSent,
		NotificationStatus: row.NotificationStatus,
		NotificationError:  row.NotificationError,
		CreatedAt:          row.CreatedAt,
	}
}
