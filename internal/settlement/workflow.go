package settlement

import (
	"time"

	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/valuation"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
)

// Workflow is one administrator's settlement session: the current filter, the visible page,
// the aggregate totals and the batch being settled. Batch holds service ids (not documentIds)
// in selection order and is always a subset of the visible, unsettled records.
type Workflow struct {
	ID         string               `json:"id"`
	OwnerID    int                  `json:"ownerId"`
	State      enums.WorkflowState  `json:"state"`
	Filter     services.FilterState `json:"filter"`
	Records    []services.Service   `json:"records"`
	Pagination pagination.Meta      `json:"pagination"`
	Totals     services.Totals      `json:"totals"`
	Batch      []int                `json:"batch"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

func newWorkflow(id string, ownerID int, filter services.FilterState, now time.Time) *Workflow {
	wf := &Workflow{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	wf.reset(filter)
	return wf
}

// reset installs filter and returns to browsing with an empty batch. Records are left for
// the caller to reload.
func (w *Workflow) reset(filter services.FilterState) {
	w.Filter = filter
	w.Batch = []int{}
	w.State = enums.WorkflowStateBrowsing
}

// clearPage drops the loaded page and totals so a failed reload never shows stale rows
// under a new filter.
func (w *Workflow) clearPage() {
	w.Records = []services.Service{}
	w.Pagination = pagination.Meta{}
	w.Totals = services.Totals{}
}

// busy reports whether a commit is in flight; selection is frozen until it resolves.
func (w *Workflow) busy() bool {
	return w.State == enums.WorkflowStateConfirming || w.State == enums.WorkflowStateCommitting
}

func (w *Workflow) guardSelection() error {
	if w.busy() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "settlement in progress").
			WithDetails(map[string]any{"state": w.State})
	}
	return nil
}

func (w *Workflow) record(id int) (services.Service, bool) {
	for _, rec := range w.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return services.Service{}, false
}

// Selected reports whether the service id is in the batch.
func (w *Workflow) Selected(id int) bool {
	for _, selected := range w.Batch {
		if selected == id {
			return true
		}
	}
	return false
}

// toggle flips one visible service in or out of the batch. Settled services are ignored.
func (w *Workflow) toggle(id int) error {
	if err := w.guardSelection(); err != nil {
		return err
	}
	rec, ok := w.record(id)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service is not in the visible page").
			WithDetails(map[string]any{"serviceId": id})
	}
	if !rec.Selectable() {
		return nil
	}

	if w.Selected(id) {
		kept := make([]int, 0, len(w.Batch))
		for _, selected := range w.Batch {
			if selected != id {
				kept = append(kept, selected)
			}
		}
		w.Batch = kept
	} else {
		w.Batch = append(w.Batch, id)
	}
	w.State = enums.WorkflowStateSelecting
	return nil
}

// selectAll selects every visible unsettled service, or clears the batch.
func (w *Workflow) selectAll(selected bool) error {
	if err := w.guardSelection(); err != nil {
		return err
	}
	batch := []int{}
	if selected {
		for _, rec := range w.Records {
			if rec.Selectable() {
				batch = append(batch, rec.ID)
			}
		}
	}
	w.Batch = batch
	w.State = enums.WorkflowStateSelecting
	return nil
}

// BatchServices resolves the batch against the visible records, in selection order.
func (w *Workflow) BatchServices() []services.Service {
	out := make([]services.Service, 0, len(w.Batch))
	for _, id := range w.Batch {
		if rec, ok := w.record(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// prune drops batch entries that are no longer visible or have been settled elsewhere.
func (w *Workflow) prune() {
	kept := make([]int, 0, len(w.Batch))
	for _, id := range w.Batch {
		if rec, ok := w.record(id); ok && rec.Selectable() {
			kept = append(kept, id)
		}
	}
	w.Batch = kept
}

// preview summarizes the live batch and moves to preview_ready. It is recomputed on every
// call, never cached.
func (w *Workflow) preview() (valuation.Summary, []services.Service, error) {
	summary, batch, err := w.summarize()
	if err != nil {
		return valuation.Summary{}, nil, err
	}
	w.State = enums.WorkflowStatePreviewReady
	return summary, batch, nil
}

// summarize is preview without the state change.
func (w *Workflow) summarize() (valuation.Summary, []services.Service, error) {
	if err := w.guardSelection(); err != nil {
		return valuation.Summary{}, nil, err
	}
	batch := w.BatchServices()
	if len(batch) == 0 {
		return valuation.Summary{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one unsettled service")
	}
	return valuation.Summarize(batch), batch, nil
}
