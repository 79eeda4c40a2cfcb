package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/dropDatabas3/tokenbridge/internal/http/errors"
	"github.com/dropDatabas3/tokenbridge/internal/http/helpers"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/store/core"
)

// Sheets handles GET /api/customer/{id}/sheets: the spreadsheet selections
// a customer has made, newest first. Optional ?purpose= filter.
func (c *Controller) Sheets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	links, err := c.deps.Store.ListSheets(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	if purpose := r.URL.Query().Get("purpose"); purpose != "" {
		filtered := links[:0]
		for _, l := range links {
			if l.Purpose == purpose {
				filtered = append(filtered, l)
			}
		}
		links = filtered
	}
	if links == nil {
		links = []core.SheetLink{}
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"customer_id": id,
		"sheets":      links,
	})
}

type saveSheetRequest struct {
	SheetID string `json:"sheetId"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// SaveSheet handles POST /api/customer/{id}/sheets: records which
// spreadsheet a workflow should target for a given purpose.
func (c *Controller) SaveSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req saveSheetRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SheetID) == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithMessage("sheetId is required"))
		return
	}

	link := core.SheetLink{
		CustomerID: id,
		SheetID:    req.SheetID,
		Name:       req.Name,
		Purpose:    req.Purpose,
	}
	if err := c.deps.Store.SaveSheet(ctx, link); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			apperrors.WriteError(w, apperrors.ErrCustomerNotFound)
			return
		}
		apperrors.WriteError(w, apperrors.ErrInternal.WithCause(err))
		return
	}

	logger.From(ctx).Info("sheet link saved",
		logger.Op("api.sheets.save"),
		logger.CustomerID(id),
		logger.String("sheet_id", req.SheetID),
		logger.String("purpose", req.Purpose),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
