package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// writeDomainError maps the error taxonomy onto HTTP status codes. Anything
// unrecognised is a 500 whose detail is logged, not returned.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *domain.NotFoundError
		conflict   *domain.OptimisticLockError
		duplicate  *domain.DuplicateResourceError
		stock      *domain.InsufficientStockError
		transition *domain.InvalidStatusTransitionError
		validation *domain.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "optimistic_lock", err.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusConflict, "duplicate_resource", err.Error())
	case errors.As(err, &stock):
		writeError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, "invalid_status_transition", err.Error())
	case errors.Is(err, domain.ErrDuplicateLineItem):
		writeError(w, http.StatusBadRequest, "duplicate_line_item", err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		slog.ErrorContext(r.Context(), "unexpected error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
