package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/helios-saas/helios/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAndValidate decodes the JSON body into target and runs struct
// validation. Both failure modes surface as shared.ErrValidation so handlers
// can map them to a single 400 path.
func DecodeAndValidate(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: malformed request body", shared.ErrValidation)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}
	return nil
}
