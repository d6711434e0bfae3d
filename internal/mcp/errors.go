package mcp

import (
	"errors"
	"fmt"

	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/utils"
)

// APIError is the error payload returned by a failed tool call.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to tool error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var fetchErr *database.FetchError
	switch {
	case utils.IsValidationError(err),
		errors.Is(err, finance.ErrInvalidRange),
		errors.Is(err, finance.ErrInvalidProject):
		return &APIError{Code: "INVALID_ARGUMENT", Message: err.Error(), RecoveryHint: "Send project_id and YYYY-MM-DD dates with end_date on or after start_date"}
	case errors.As(err, &fetchErr):
		return &APIError{Code: "DATA_UNAVAILABLE", Message: "financial data could not be read", RecoveryHint: "Retry later; no partial data was returned"}
	case errors.Is(err, finance.ErrConfigurationMissing):
		return &APIError{Code: "CONFIGURATION_MISSING", Message: err.Error(), RecoveryHint: "Ask an operator to set the financial core start date"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
