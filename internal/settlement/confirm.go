package settlement

import (
	"context"

	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	"github.com/angelmondragon/domiciliarios-backend/internal/notifications"
	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/valuation"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// Confirm settles the batch.
//
// An empty batch is a no-op. Otherwise every documentId is attempted. If the call fails as a
// whole (including a data API that answered none of the updates) the workflow stays
// committing with its batch so the same confirm can be retried.
// When every service settles the confirmation webhook fires; on a partial failure it does
// not, and the failed outcomes are returned. Either way the page and totals are reloaded
// from the data API and the workflow returns to browsing with an empty batch.
func (s *service) Confirm(ctx context.Context, actor Actor, id string) (*CommitResult, error) {
	repo, err := s.repository(actor)
	if err != nil {
		return nil, err
	}

	defer s.lock(id)()
	wf, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logContext(ctx, wf)

	batch := wf.BatchServices()
	if len(batch) == 0 {
		s.logg.Info(ctx, "settlement confirm ignored: empty batch")
		return &CommitResult{
			Aborted:   true,
			Outcomes:  services.SettleOutcomes{},
			Succeeded: []string{},
			Failed:    services.SettleOutcomes{},
			Workflow:  wf,
		}, nil
	}

	wf.State = enums.WorkflowStateConfirming
	documentIDs := make([]string, 0, len(batch))
	for _, svc := range batch {
		documentIDs = append(documentIDs, svc.DocumentID)
	}
	wf.State = enums.WorkflowStateCommitting
	if err := s.save(ctx, wf); err != nil {
		return nil, err
	}

	outcomes, err := repo.MarkSettled(ctx, documentIDs)
	if err != nil {
		s.logg.Error(ctx, "settlement commit failed before any update", err)
		if s.metrics != nil {
			s.metrics.ObserveCommit("error", 0)
		}
		// batch is untouched; the workflow is already persisted as committing
		return nil, err
	}

	summary := valuation.Summarize(batch)
	result := &CommitResult{
		Outcomes:  outcomes,
		Succeeded: outcomes.Succeeded(),
		Failed:    outcomes.Failed(),
		Summary:   &summary,
	}

	if outcomes.AllSucceeded() {
		wf.State = enums.WorkflowStateCommitted
		result.Outcome = enums.SettlementOutcomeCommitted
		payload := notifications.BuildPayload(markSettled(batch, outcomes), summary, s.loc)
		sent := s.notifier.SendConfirmation(ctx, payload)
		result.Notification = &sent
		s.logg.Info(ctx, "settlement committed")
	} else {
		result.Outcome = enums.SettlementOutcomePartial
		if len(result.Succeeded) == 0 {
			result.Outcome = enums.SettlementOutcomeFailed
		}
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
		}), "settlement partially failed", outcomes.Err())
	}
	if s.metrics != nil {
		s.metrics.ObserveCommit(result.Outcome.String(), len(result.Succeeded))
	}

	result.RunID = s.recordRun(ctx, actor, wf, summary, result)

	// the visible page must reflect the settlement even if the reload below fails
	wf.Records = markSettled(wf.Records, outcomes)
	wf.reset(wf.Filter)
	if err := s.reload(ctx, repo, wf); err != nil {
		s.logg.Error(ctx, "failed to refresh after settlement", err)
		result.RefreshError = err.Error()
	}
	if err := s.save(ctx, wf); err != nil {
		s.logg.Error(ctx, "failed to persist settlement session after commit", err)
	}
	result.Workflow = wf
	return result, nil
}

// recordRun writes the audit row. A ledger failure is logged and never fails the commit.
func (s *service) recordRun(ctx context.Context, actor Actor, wf *Workflow, summary valuation.Summary, result *CommitResult) string {
	if s.ledger == nil {
		return ""
	}
	failed := make([]string, 0, len(result.Failed))
	for _, outcome := range result.Failed {
		failed = append(failed, outcome.DocumentID)
	}
	input := ledger.RecordRunInput{
		WorkflowID:        wf.ID,
		ActorUserID:       actor.UserID,
		ActorUsername:     actor.Username,
		CourierID:         wf.Filter.CourierID,
		CourierName:       summary.CourierName,
		ServicesCount:     summary.Count,
		UrbanCount:        summary.UrbanCount,
		RuralCount:        summary.RuralCount,
		TotalValue:        summary.Total,
		CourierShare:      summary.CourierShare,
		PlatformShare:     summary.PlatformShare,
		DateFrom:          summary.DateFrom,
		DateTo:            summary.DateTo,
		Succeeded:         len(result.Succeeded),
		FailedDocumentIDs: failed,
	}
	if result.Notification != nil {
		input.NotificationSent = result.Notification.Success
		input.NotificationStatus = result.Notification.StatusCode
		if !result.Notification.Success {
			input.NotificationError = result.Notification.Message
		}
	}
	run, err := s.ledger.RecordRun(ctx, input)
	if err != nil {
		s.logg.Warn(ctx, "failed to record settlement run: "+err.Error())
		return ""
	}
	return run.ID
}

// markSettled reflects successful outcomes on services, so the confirmation payload and the
// visible page report them as settled.
func markSettled(batch []services.Service, outcomes services.SettleOutcomes) []services.Service {
	settledAt := make(map[string]services.SettleOutcome, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Success {
			settledAt[outcome.DocumentID] = outcome
		}
	}
	out := make([]services.Service, len(batch))
	for i, svc := range batch {
		if outcome, ok := settledAt[svc.DocumentID]; ok {
			svc.Settled = true
			svc.SettledAt = outcome.SettledAt
		}
		out[i] = svc
	}
	return out
}
