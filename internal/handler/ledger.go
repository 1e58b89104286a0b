package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/service"
)

const dateLayout = "2006-01-02"

type ledgerService interface {
	PostEntry(ctx context.Context, input service.PostEntryInput) (*domain.LedgerEntry, error)
	PostBatch(ctx context.Context, inputs []service.PostEntryInput) ([]domain.LedgerEntry, error)
	CompleteEntry(ctx context.Context, id uuid.UUID) error
	VoidEntry(ctx context.Context, id uuid.UUID) error
	ListEntries(ctx context.Context, code string, limit, offset int) ([]domain.LedgerEntry, int, error)
}

type LedgerHandler struct {
	ledger ledgerService
}

func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type postEntryRequest struct {
	AccountCode string          `json:"account_code"`
	EntryDate   string          `json:"entry_date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
}

func (r postEntryRequest) Validate() []FieldError {
	var errs []FieldError

	if r.AccountCode == "" {
		errs = append(errs, FieldError{Field: "account_code", Message: "required"})
	}

	if r.EntryDate == "" {
		errs = append(errs, FieldError{Field: "entry_date", Message: "required"})
	} else if _, err := time.ParseInLocation(dateLayout, r.EntryDate, time.UTC); err != nil {
		errs = append(errs, FieldError{Field: "entry_date", Message: "must be YYYY-MM-DD"})
	}

	if r.Debit.IsNegative() {
		errs = append(errs, FieldError{Field: "debit", Message: "must not be negative"})
	}

	if r.Credit.IsNegative() {
		errs = append(errs, FieldError{Field: "credit", Message: "must not be negative"})
	}

	if r.Debit.IsZero() == r.Credit.IsZero() {
		errs = append(errs, FieldError{Field: "debit", Message: "exactly one of debit or credit must be positive"})
	}

	if r.Status != "" && r.Status != string(domain.EntryStatusPending) && r.Status != string(domain.EntryStatusCompleted) {
		errs = append(errs, FieldError{Field: "status", Message: "must be pending or completed"})
	}

	return errs
}

func (r postEntryRequest) toInput() service.PostEntryInput {
	entryDate, _ := time.ParseInLocation(dateLayout, r.EntryDate, time.UTC)
	return service.PostEntryInput{
		AccountCode: r.AccountCode,
		EntryDate:   entryDate,
		Description: r.Description,
		Debit:       r.Debit,
		Credit:      r.Credit,
		Status:      domain.EntryStatus(r.Status),
		Reference:   r.Reference,
	}
}

type postBatchRequest struct {
	Entries []postEntryRequest `json:"entries"`
}

func (r postBatchRequest) Validate() []FieldError {
	if len(r.Entries) == 0 {
		return []FieldError{{Field: "entries", Message: "required"}}
	}

	var errs []FieldError
	for i, entry := range r.Entries {
		for _, fe := range entry.Validate() {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("entries[%d].%s", i, fe.Field),
				Message: fe.Message,
			})
		}
	}
	return errs
}

type entryDTO struct {
	ID          uuid.UUID       `json:"id"`
	AccountCode string          `json:"account_code"`
	EntryDate   string          `json:"entry_date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toEntryDTO(e *domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:          e.ID,
		AccountCode: e.AccountCode,
		EntryDate:   e.EntryDate.Format(dateLayout),
		Description: e.Description,
		Debit:       e.Debit,
		Credit:      e.Credit,
		Status:      string(e.Status),
		Reference:   e.Reference,
		CreatedAt:   e.CreatedAt,
	}
}

func (h *LedgerHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entry, err := h.ledger.PostEntry(r.Context(), req.toInput())
	if err != nil {
		logging.FromContext(r.Context()).Warn("entry posting failed", "account_code", req.AccountCode, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *LedgerHandler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req postBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	inputs := make([]service.PostEntryInput, len(req.Entries))
	for i, entry := range req.Entries {
		inputs[i] = entry.toInput()
	}

	entries, err := h.ledger.PostBatch(r.Context(), inputs)
	if err != nil {
		logging.FromContext(r.Context()).Warn("batch posting failed", "count", len(inputs), "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusCreated, dtos)
}

func (h *LedgerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.EntryStatusCompleted, h.ledger.CompleteEntry)
}

func (h *LedgerHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.EntryStatusVoided, h.ledger.VoidEntry)
}

func (h *LedgerHandler) setStatus(w http.ResponseWriter, r *http.Request, to domain.EntryStatus, apply func(context.Context, uuid.UUID) error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := apply(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("entry status change failed", "entry_id", id, "to", to, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"id": id.String(), "status": string(to)})
}

func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	limit, offset, fields := parsePagination(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entries, total, err := h.ledger.ListEntries(r.Context(), code, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list entries", "account_code", code, "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"entries": dtos,
		"total":   total,
	})
}

func parsePagination(r *http.Request) (limit, offset int, errs []FieldError) {
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "limit", Message: "must be a non-negative integer"})
		} else {
			limit = n
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			offset = n
		}
	}

	return limit, offset, errs
}
