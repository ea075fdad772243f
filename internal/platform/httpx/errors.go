package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/shared"
)

// RespondError maps domain errors onto the envelope and status codes. Policy
// denials and authentication failures keep their specific semantics; anything
// unrecognised becomes a 500 with no internal detail leaked.
func RespondError(w http.ResponseWriter, err error) {
	var denyErr *authz.DenyError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, authz.ErrNotAuthenticated):
		Fail(w, http.StatusUnauthorized, "authentication required")
	case errors.As(err, &denyErr):
		Fail(w, http.StatusForbidden, "access denied")
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, shared.ErrValidation), errors.As(err, &validationErrs):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, "duplicate entry")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "invalid credentials")
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
