package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-wms/meridian/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Permission denials get their own status so callers can show an actionable
// message instead of a generic failure.
func RespondError(w http.ResponseWriter, err error) {
	var ve *shared.ValidationError
	if errors.As(err, &ve) {
		Problem(w, http.StatusBadRequest, "Validation Failed", ve.Error())
		return
	}
	var pf *shared.PartialFailureError
	if errors.As(err, &pf) {
		Problem(w, http.StatusConflict, "Partial Failure", pf.Error())
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Permission Denied", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case shared.IsTransient(err):
		Problem(w, http.StatusServiceUnavailable, "Store Unavailable", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
