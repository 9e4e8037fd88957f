package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/shadecraft/storefront-api/internal/common"
)

// Handler exposes the cart pricing endpoint.
type Handler struct {
	Engine   *Engine
	Validate *validator.Validate
}

// Calculate prices the posted cart. Domain rejections such as an unmet
// minimum order come back as 200 with success=false; only malformed input
// and infrastructure failures map to error statuses.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "items must each carry a positive productId and quantity", fieldErrors(err))
			return
		}
	}
	result, err := h.Engine.Calculate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoItems):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "at least one item is required", nil)
	case errors.Is(err, ErrNoProducts):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no matching products found", nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
	}
}

func fieldErrors(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}
