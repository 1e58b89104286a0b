package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrAccountNotFound   = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrStatementNotFound = &AppError{http.StatusNotFound, "STATEMENT_NOT_FOUND", "Statement not found"}
	ErrAccountExists     = &AppError{http.StatusConflict, "ACCOUNT_ALREADY_EXISTS", "Account code already exists"}
	ErrStatementExists   = &AppError{http.StatusConflict, "STATEMENT_ALREADY_EXISTS", "A current statement already exists for this period"}

	ErrInvalidDate        = &AppError{http.StatusBadRequest, "INVALID_DATE", "Invalid date"}
	ErrInvalidPeriod      = &AppError{http.StatusBadRequest, "INVALID_PERIOD", "Invalid period type or key"}
	ErrMissingField       = &AppError{http.StatusBadRequest, "MISSING_FIELD", "Required field is missing"}
	ErrInvalidAccountType = &AppError{http.StatusBadRequest, "INVALID_ACCOUNT_TYPE", "Invalid account type"}
	ErrInvalidCategory    = &AppError{http.StatusBadRequest, "INVALID_CATEGORY", "Category does not belong to the account type"}
	ErrInvalidEntry       = &AppError{http.StatusBadRequest, "INVALID_ENTRY", "Entry must have exactly one positive side"}

	ErrInvalidParent     = &AppError{http.StatusUnprocessableEntity, "INVALID_PARENT", "Parent account does not exist"}
	ErrSystemAccount     = &AppError{http.StatusUnprocessableEntity, "SYSTEM_ACCOUNT_PROTECTED", "System accounts cannot be modified"}
	ErrPostingNotAllowed = &AppError{http.StatusUnprocessableEntity, "POSTING_NOT_ALLOWED", "Account does not allow direct posting"}
	ErrNotBalanceSheet   = &AppError{http.StatusUnprocessableEntity, "NOT_A_BALANCE_SHEET", "Ratios require a balance sheet statement"}

	ErrEntryTransition    = &AppError{http.StatusConflict, "INVALID_ENTRY_TRANSITION", "Entry status cannot change that way"}
	ErrInvalidTransition  = &AppError{http.StatusConflict, "INVALID_STATUS_TRANSITION", "Statement status cannot change that way"}
	ErrStatementImmutable = &AppError{http.StatusConflict, "STATEMENT_IMMUTABLE", "Published statements cannot be modified"}
	ErrStatementNotDraft  = &AppError{http.StatusConflict, "STATEMENT_NOT_DRAFT", "Only draft statements can be deleted"}
)
