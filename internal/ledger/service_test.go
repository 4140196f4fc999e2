package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/domiciliarios-backend/pkg/db/models"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, run *models.SettlementRun) error
	listFn   func(ctx context.Context, courierID int, params pagination.Params) ([]models.SettlementRun, int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, run *models.SettlementRun) error {
	if f.createFn != nil {
		return f.createFn(ctx, run)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, courierID int, params pagination.Params) ([]models.SettlementRun, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, courierID, params)
	}
	return nil, 0, nil
}

func validInput() RecordRunInput {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	return RecordRunInput{
		WorkflowID:       "wf-1",
		ActorUserID:      9,
		ActorUsername:    "admin",
		CourierID:        3,
		CourierName:      "Luis Gomez",
		ServicesCount:    3,
		UrbanCount:       2,
		RuralCount:       1,
		TotalValue:       18000,
		CourierShare:     12600,
		PlatformShare:    5400,
		DateFrom:         &from,
		DateTo:           &to,
		Succeeded:        3,
		NotificationSent: true,
	}
}

func TestService_RecordRun(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.SettlementRun
	repo.createFn = func(ctx context.Context, run *models.SettlementRun) error {
		created = run
		return nil
	}

	got, err := svc.RecordRun(context.Background(), validInput())
	if err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	if created == nil {
		t.Fatal("expected settlement run to be created")
	}
	if created.ID == "" || created.Outcome != enums.SettlementOutcomeCommitted {
		t.Fatalf("unexpected run %+v", created)
	}
	if created.FailedDocumentIDs != "[]" || created.FailedCount != 0 {
		t.Fatalf("expected empty failure list, got %q", created.FailedDocumentIDs)
	}
	if got.ID != created.ID || got.TotalValue != 18000 || len(got.FailedDocumentIDs) != 0 {
		t.Fatalf("unexpected view %+v", got)
	}
}

func TestService_RecordRunPartial(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	var created *models.SettlementRun
	repo.createFn = func(ctx context.Context, run *models.SettlementRun) error {
		created = run
		return nil
	}

	input := validInput()
	input.Succeeded = 2
	input.FailedDocumentIDs = []string{"doc-2"}
	input.NotificationSent = false

	got, err := svc.RecordRun(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	if created.Outcome != enums.SettlementOutcomePartial || created.FailedCount != 1 {
		t.Fatalf("unexpected run %+v", created)
	}
	if created.FailedDocumentIDs != `["doc-2"]` {
		t.Fatalf("unexpected failed ids %q", created.FailedDocumentIDs)
	}
	if len(got.FailedDocumentIDs) != 1 || got.FailedDocumentIDs[0] != "doc-2" {
		t.Fatalf("unexpected view failures %v", got.FailedDocumentIDs)
	}
}

func TestRecordRunInputOutcome(t *testing.T) {
	input := validInput()
	if input.Outcome() != enums.SettlementOutcomeCommitted {
		t.Fatalf("expected committed")
	}
	input.Succeeded = 0
	input.FailedDocumentIDs = []string{"a", "b", "c"}
	if input.Outcome() != enums.SettlementOutcomeFailed {
		t.Fatalf("expected failed")
	}
}

func TestService_RecordRunValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RecordRunInput)
	}{
		{name: "missing workflow", mutate: func(in *RecordRunInput) { in.WorkflowID = " " }},
		{name: "missing actor", mutate: func(in *RecordRunInput) { in.ActorUserID = 0 }},
		{name: "missing courier", mutate: func(in *RecordRunInput) { in.CourierID = 0 }},
		{name: "empty batch", mutate: func(in *RecordRunInput) { in.ServicesCount = 0; in.Succeeded = 0 }},
		{name: "counts mismatch", mutate: func(in *RecordRunInput) { in.Succeeded = 1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			if _, err := svc.RecordRun(context.Background(), input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_RecordRunRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, run *models.SettlementRun) error {
		return expectedErr
	}

	_, err := svc.RecordRun(context.Background(), validInput())
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestService_ListRuns(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	repo.listFn = func(ctx context.Context, courierID int, params pagination.Params) ([]models.SettlementRun, int64, error) {
		if courierID != 3 || params.Page != 2 || params.PageSize != 5 {
			t.Fatalf("unexpected list args courier=%d params=%+v", courierID, params)
		}
		return []models.SettlementRun{{ID: "run-1", Outcome: enums.SettlementOutcomePartial, FailedDocumentIDs: `["doc-9"]`}}, 11, nil
	}

	result, err := svc.ListRuns(context.Background(), ListParams{CourierID: 3, Page: 2, PageSize: 5})
	if err != nil {
		t.Fatalf("ListRuns error: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].FailedDocumentIDs[0] != "doc-9" {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if result.Pagination.Total != 11 || result.Pagination.PageCount != 3 {
		t.Fatalf("unexpected pagination %+v", result.Pagination)
	}

	if _, err := svc.ListRuns(context.Background(), ListParams{CourierID: -1}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
