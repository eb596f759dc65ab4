package errors

import "github.com/sohoz88/promo-site/internal/domain"

// Result converts an AppError into the uniform failure result returned by
// every action.
func Result(appErr *AppError) domain.ActionResult {
	if appErr == nil {
		return domain.ActionResult{Success: false, Error: "Error."}
	}

	return domain.ActionResult{
		Success:     false,
		Error:       appErr.Short(),
		Message:     appErr.UserMessage,
		Kind:        string(appErr.Kind),
		FieldErrors: appErr.Fields,
	}
}
