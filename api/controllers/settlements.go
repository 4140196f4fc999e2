package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/domiciliarios-backend/api/middleware"
	"github.com/angelmondragon/domiciliarios-backend/api/responses"
	"github.com/angelmondragon/domiciliarios-backend/api/validators"
	"github.com/angelmondragon/domiciliarios-backend/internal/services"
	"github.com/angelmondragon/domiciliarios-backend/internal/settlement"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
)

// filterRequest is the wire form of a filter change. Dates are calendar days in the
// settlement time zone.
type filterRequest struct {
	CourierID   int    `json:"courierId" validate:"required,min=1"`
	FechaInicio string `json:"fechaInicio" validate:"omitempty,datetime=2006-01-02"`
	FechaFin    string `json:"fechaFin" validate:"omitempty,datetime=2006-01-02"`
	MerchantID  *int   `json:"merchantId" validate:"omitempty,min=1"`
	Settlement  string `json:"settlement" validate:"omitempty,oneof=unsettled settled all"`
	Page        int    `json:"page" validate:"omitempty,min=1"`
	PageSize    int    `json:"pageSize" validate:"omitempty,min=1,max=100"`
}

func (f filterRequest) toFilterState(loc *time.Location) (services.FilterState, error) {
	from, to, err := services.DayRange(f.FechaInicio, f.FechaFin, loc)
	if err != nil {
		return services.FilterState{}, err
	}
	state := services.FilterState{
		CourierID:  f.CourierID,
		From:       from,
		To:         to,
		MerchantID: f.MerchantID,
		Page:       f.Page,
		PageSize:   f.PageSize,
	}
	if raw := strings.TrimSpace(f.Settlement); raw != "" {
		parsed, err := enums.ParseSettlementFilter(raw)
		if err != nil {
			return services.FilterState{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settlement filter")
		}
		state.Settlement = parsed
	}
	return state, nil
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

// actorFromRequest builds the workflow actor from the authenticated session. The session
// itself is the token source handed to the data API repository.
func actorFromRequest(r *http.Request) (settlement.Actor, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return settlement.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return settlement.Actor{
		UserID:   sess.UserID,
		Username: sess.Username,
		Tokens:   sess,
	}, nil
}

func sessionIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return id, nil
}

// SettlementHandlers exposes the settlement workflow over HTTP.
type SettlementHandlers struct {
	svc  settlement.Service
	loc  *time.Location
	logg *logger.Logger
}

// NewSettlementHandlers binds the workflow service. loc resolves filter dates.
func NewSettlementHandlers(svc settlement.Service, loc *time.Location, logg *logger.Logger) *SettlementHandlers {
	if loc == nil {
		loc = time.UTC
	}
	return &SettlementHandlers{svc: svc, loc: loc, logg: logg}
}

func (h *SettlementHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	responses.WriteError(r.Context(), h.logg, w, err)
}

func (h *SettlementHandlers) decodeFilter(r *http.Request) (services.FilterState, error) {
	var body filterRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return services.FilterState{}, err
	}
	return body.toFilterState(h.loc)
}

// withSession resolves the actor and session id, then runs fn.
func (h *SettlementHandlers) withSession(fn func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		id, err := sessionIDParam(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		fn(w, r, actor, id)
	}
}

// Open starts a workflow for the courier in the body.
func (h *SettlementHandlers) Open() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filter, err := h.decodeFilter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		wf, err := h.svc.Open(r.Context(), actor, filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, wf)
	}
}

func (h *SettlementHandlers) Get() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		wf, err := h.svc.Get(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, wf)
	})
}

// SetFilter replaces the filter; the batch is always emptied.
func (h *SettlementHandlers) SetFilter() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		filter, err := h.decodeFilter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		wf, err := h.svc.SetFilter(r.Context(), actor, id, filter)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, wf)
	})
}

func (h *SettlementHandlers) Refresh() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		wf, err := h.svc.Refresh(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, wf)
	})
}

func (h *SettlementHandlers) Toggle() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		serviceID, err := validators.ParsePathInt(chi.URLParam(r, "serviceId"), "serviceId")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		wf, err := h.svc.Toggle(r.Context(), actor, id, serviceID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, wf)
	})
}

func (h *SettlementHandlers) SelectAll() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		var body selectAllRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			h.fail(w, r, err)
			return
		}
		wf, err := h.svc.SelectAll(r.Context(), actor, id, body.Selected)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, wf)
	})
}

func (h *SettlementHandlers) Preview() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		preview, err := h.svc.Preview(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, preview)
	})
}

// SharePreview posts the preview webhook. A rejected webhook is still a 200; the
// notification result carries the failure.
func (h *SettlementHandlers) SharePreview() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		shared, err := h.svc.SharePreview(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, shared)
	})
}

// Confirm settles the batch. Partial failures are a 200 with the failed outcomes listed.
func (h *SettlementHandlers) Confirm() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		result, err := h.svc.Confirm(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func (h *SettlementHandlers) Close() http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, actor settlement.Actor, id string) {
		if err := h.svc.Close(r.Context(), actor, id); err != nil {
			h.fail(w, r, err)
			return
		}
		responses.WriteNoContent(w)
	})
}
