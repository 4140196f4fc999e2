package controllers

import (
	"net/http"

	"github.com/angelmondragon/domiciliarios-backend/api/responses"
	"github.com/angelmondragon/domiciliarios-backend/api/validators"
	"github.com/angelmondragon/domiciliarios-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	"github.com/angelmondragon/domiciliarios-backend/pkg/logger"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
)

// SettlementRuns lists recorded settlement runs, optionally for one courier.
func SettlementRuns(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}
		courierID, err := validators.ParseQueryInt(r, "courierId", 0, 0, 1<<31-1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageSize, err := validators.ParseQueryInt(r, "pageSize", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListRuns(r.Context(), ledger.ListParams{
			CourierID: courierID,
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
