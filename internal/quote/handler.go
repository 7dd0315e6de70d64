package quote

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/obs"
)

// Handler serves quote requests.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var payload Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeDecodeError(w, r, err)
		return
	}
	out, err := h.Svc.Build(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func (h *Handler) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if verr := fieldValidationError(typeErr.Field); verr != nil {
			obs.RecordQuote(r.Context(), "", "invalid")
			common.WriteError(w, common.Unprocessable(verr.ID, verr.Message, err).
				WithDetails(map[string]string{"field": typeErr.Field}))
			return
		}
	}
	obs.RecordQuote(r.Context(), "", "malformed")
	common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if !common.WriteError(w, err) {
		h.Svc.Logger.Error().Err(err).Msg("quote failed")
	}
}
