package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrStatementNotFound  = errors.New("statement not found")
	ErrStatementExists    = errors.New("statement already exists for this period")
	ErrAccountExists      = errors.New("account code already exists")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPeriodType  = errors.New("invalid period type")
	ErrInvalidDateRange   = errors.New("date range start must not be after end")
	ErrMissingField       = errors.New("required field is missing")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidCategory    = errors.New("category does not belong to account type")
	ErrInvalidParent      = errors.New("invalid parent account")
	ErrInvalidEntry       = errors.New("entry must have exactly one of debit or credit")
	ErrEntryTransition    = errors.New("invalid entry status transition")
	ErrInvalidTransition  = errors.New("invalid statement status transition")
	ErrNotBalanceSheet    = errors.New("operation requires a balance sheet statement")
	ErrNotDraft           = errors.New("only draft statements can be deleted")
	ErrPublishedImmutable = errors.New("published statements are immutable")
	ErrSystemAccount      = errors.New("system accounts cannot be modified or deleted")
	ErrPostingNotAllowed  = errors.New("account does not allow direct posting")
)
