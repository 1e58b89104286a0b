package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/domain"
	"github.com/bookclose/bookclose/internal/logging"
	"github.com/bookclose/bookclose/internal/service/statement"
)

type statementService interface {
	GenerateBalanceSheet(ctx context.Context, pt domain.PeriodType, periodKey string, params statement.Params) (*domain.Statement, error)
	GenerateProfitLoss(ctx context.Context, pt domain.PeriodType, periodKey string, params statement.Params) (*domain.Statement, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Statement, error)
	GetByNumber(ctx context.Context, number string) (*domain.Statement, error)
	List(ctx context.Context, filter domain.StatementFilter) ([]domain.Statement, int, error)
	Versions(ctx context.Context, number string) ([]domain.Statement, error)
	Transition(ctx context.Context, id uuid.UUID, to domain.StatementStatus, actor, details string) (*domain.Statement, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Regenerate(ctx context.Context, id uuid.UUID, params statement.Params) (*domain.Statement, error)
	CalculateRatios(ctx context.Context, st *domain.Statement) (map[string]decimal.Decimal, error)
}

type StatementHandler struct {
	statements statementService
}

func NewStatementHandler(statements statementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

type generateStatementRequest struct {
	PeriodType     string          `json:"period_type"`
	PeriodKey      string          `json:"period_key"`
	StatementDate  string          `json:"statement_date"`
	Tolerance      decimal.Decimal `json:"tolerance"`
	AllowanceRate  decimal.Decimal `json:"allowance_rate"`
	IncludePending bool            `json:"include_pending"`
	GeneratedBy    string          `json:"generated_by"`
}

func (r generateStatementRequest) Validate() []FieldError {
	var errs []FieldError

	if r.PeriodType == "" {
		errs = append(errs, FieldError{Field: "period_type", Message: "required"})
	} else if !domain.PeriodType(r.PeriodType).IsValid() {
		errs = append(errs, FieldError{Field: "period_type", Message: "must be monthly, quarterly, yearly, or custom"})
	}

	if r.PeriodKey == "" {
		errs = append(errs, FieldError{Field: "period_key", Message: "required"})
	}

	errs = append(errs, validateParams(r.StatementDate, r.Tolerance, r.AllowanceRate)...)

	return errs
}

func (r generateStatementRequest) params() statement.Params {
	return buildParams(r.StatementDate, r.Tolerance, r.AllowanceRate, r.IncludePending, r.GeneratedBy)
}

type regenerateRequest struct {
	StatementDate  string          `json:"statement_date"`
	Tolerance      decimal.Decimal `json:"tolerance"`
	AllowanceRate  decimal.Decimal `json:"allowance_rate"`
	IncludePending bool            `json:"include_pending"`
	GeneratedBy    string          `json:"generated_by"`
}

func (r regenerateRequest) Validate() []FieldError {
	return validateParams(r.StatementDate, r.Tolerance, r.AllowanceRate)
}

func (r regenerateRequest) params() statement.Params {
	return buildParams(r.StatementDate, r.Tolerance, r.AllowanceRate, r.IncludePending, r.GeneratedBy)
}

func validateParams(statementDate string, tolerance, allowanceRate decimal.Decimal) []FieldError {
	var errs []FieldError

	if statementDate != "" {
		if _, err := time.ParseInLocation(dateLayout, statementDate, time.UTC); err != nil {
			errs = append(errs, FieldError{Field: "statement_date", Message: "must be YYYY-MM-DD"})
		}
	}

	if tolerance.IsNegative() {
		errs = append(errs, FieldError{Field: "tolerance", Message: "must not be negative"})
	}

	if allowanceRate.IsNegative() {
		errs = append(errs, FieldError{Field: "allowance_rate", Message: "must not be negative"})
	}

	return errs
}

func buildParams(statementDate string, tolerance, allowanceRate decimal.Decimal, includePending bool, generatedBy string) statement.Params {
	p := statement.Params{
		Tolerance:      tolerance,
		AllowanceRate:  allowanceRate,
		IncludePending: includePending,
		GeneratedBy:    generatedBy,
	}
	if statementDate != "" {
		p.StatementDate, _ = time.ParseInLocation(dateLayout, statementDate, time.UTC)
	}
	return p
}

type transitionRequest struct {
	Status      string `json:"status"`
	PerformedBy string `json:"performed_by"`
	Details     string `json:"details"`
}

func (r transitionRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Status == "" {
		errs = append(errs, FieldError{Field: "status", Message: "required"})
	}

	if r.PerformedBy == "" {
		errs = append(errs, FieldError{Field: "performed_by", Message: "required"})
	}

	return errs
}

type statementDTO struct {
	ID              uuid.UUID                  `json:"id"`
	StatementNumber string                     `json:"statement_number"`
	Type            string                     `json:"type"`
	StatementDate   string                     `json:"statement_date"`
	PeriodType      string                     `json:"period_type"`
	PeriodKey       string                     `json:"period_key"`
	PeriodStart     string                     `json:"period_start"`
	PeriodEnd       string                     `json:"period_end"`
	Title           string                     `json:"title"`
	Status          string                     `json:"status"`
	Version         int                        `json:"version"`
	IsCurrent       bool                       `json:"is_current"`
	GeneratedBy     string                     `json:"generated_by"`
	GeneratedAt     time.Time                  `json:"generated_at"`
	ApprovedBy      *string                    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time                 `json:"approved_at,omitempty"`
	PublishedAt     *time.Time                 `json:"published_at,omitempty"`
	BalanceSheet    *domain.BalanceSheetDoc    `json:"balance_sheet,omitempty"`
	ProfitLoss      *domain.ProfitLossDoc      `json:"profit_loss,omitempty"`
	Ratios          map[string]decimal.Decimal `json:"ratios,omitempty"`
	Metadata        domain.StatementMetadata   `json:"metadata"`
	AuditTrail      []domain.AuditEntry        `json:"audit_trail,omitempty"`
	VersionHistory  []domain.VersionChange     `json:"version_history,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

func toStatementDTO(s *domain.Statement) statementDTO {
	return statementDTO{
		ID:              s.ID,
		StatementNumber: s.StatementNumber,
		Type:            string(s.Type),
		StatementDate:   s.StatementDate.Format(dateLayout),
		PeriodType:      string(s.PeriodType),
		PeriodKey:       s.PeriodKey,
		PeriodStart:     s.PeriodStart.Format(dateLayout),
		PeriodEnd:       s.PeriodEnd.Format(dateLayout),
		Title:           s.Title,
		Status:          string(s.Status),
		Version:         s.Version,
		IsCurrent:       s.IsCurrent,
		GeneratedBy:     s.GeneratedBy,
		GeneratedAt:     s.GeneratedAt,
		ApprovedBy:      s.ApprovedBy,
		ApprovedAt:      s.ApprovedAt,
		PublishedAt:     s.PublishedAt,
		BalanceSheet:    s.BalanceSheet,
		ProfitLoss:      s.ProfitLoss,
		Ratios:          s.Ratios,
		Metadata:        s.Metadata,
		AuditTrail:      s.AuditTrail,
		VersionHistory:  s.VersionHistory,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type statementSummaryDTO struct {
	ID              uuid.UUID `json:"id"`
	StatementNumber string    `json:"statement_number"`
	Type            string    `json:"type"`
	PeriodType      string    `json:"period_type"`
	PeriodKey       string    `json:"period_key"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Version         int       `json:"version"`
	IsCurrent       bool      `json:"is_current"`
	GeneratedAt     time.Time `json:"generated_at"`
	HasImbalance    bool      `json:"has_imbalance"`
}

func toStatementSummaryDTO(s *domain.Statement) statementSummaryDTO {
	return statementSummaryDTO{
		ID:              s.ID,
		StatementNumber: s.StatementNumber,
		Type:            string(s.Type),
		PeriodType:      string(s.PeriodType),
		PeriodKey:       s.PeriodKey,
		Title:           s.Title,
		Status:          string(s.Status),
		Version:         s.Version,
		IsCurrent:       s.IsCurrent,
		GeneratedAt:     s.GeneratedAt,
		HasImbalance:    s.Metadata.HasImbalance,
	}
}

func (h *StatementHandler) GenerateBalanceSheet(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, domain.StatementBalanceSheet, h.statements.GenerateBalanceSheet)
}

func (h *StatementHandler) GenerateProfitLoss(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, domain.StatementProfitLoss, h.statements.GenerateProfitLoss)
}

type generateFunc func(ctx context.Context, pt domain.PeriodType, periodKey string, params statement.Params) (*domain.Statement, error)

func (h *StatementHandler) generate(w http.ResponseWriter, r *http.Request, st domain.StatementType, gen generateFunc) {
	log := logging.FromContext(r.Context())

	var req generateStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := gen(r.Context(), domain.PeriodType(req.PeriodType), req.PeriodKey, req.params())
	if err != nil {
		log.Warn("statement generation failed", "type", st, "period_key", req.PeriodKey, "error", err)
		RespondDomainError(w, err)
		return
	}

	statementsGenerated.WithLabelValues(string(st)).Inc()
	w.Header().Set("Location", fmt.Sprintf("/api/v1/statements/%s", result.ID))
	RespondSuccess(w, http.StatusCreated, toStatementDTO(result))
}

func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	st, err := h.statements.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toStatementDTO(st))
}

func (h *StatementHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	st, err := h.statements.GetByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toStatementDTO(st))
}

func (h *StatementHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.StatementFilter{}

	if t := q.Get("type"); t != "" {
		if !domain.StatementType(t).IsValid() {
			RespondValidationError(w, []FieldError{{Field: "type", Message: "must be balance_sheet or profit_loss"}})
			return
		}
		filter.Type = domain.StatementType(t)
	}

	if s := q.Get("status"); s != "" {
		if !domain.StatementStatus(s).IsValid() {
			RespondValidationError(w, []FieldError{{Field: "status", Message: "must be draft, review, approved, published, or final"}})
			return
		}
		filter.Status = domain.StatementStatus(s)
	}

	if pt := q.Get("period_type"); pt != "" {
		if !domain.PeriodType(pt).IsValid() {
			RespondValidationError(w, []FieldError{{Field: "period_type", Message: "must be monthly, quarterly, yearly, or custom"}})
			return
		}
		filter.PeriodType = domain.PeriodType(pt)
	}

	limit, offset, fields := parsePagination(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	statements, total, err := h.statements.List(r.Context(), filter)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list statements", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]statementSummaryDTO, len(statements))
	for i := range statements {
		dtos[i] = toStatementSummaryDTO(&statements[i])
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"statements": dtos,
		"total":      total,
	})
}

func (h *StatementHandler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.statements.Versions(r.Context(), r.PathValue("number"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]statementSummaryDTO, len(versions))
	for i := range versions {
		dtos[i] = toStatementSummaryDTO(&versions[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *StatementHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	st, err := h.statements.Transition(r.Context(), id, domain.StatementStatus(req.Status), req.PerformedBy, req.Details)
	if err != nil {
		logging.FromContext(r.Context()).Warn("statement transition failed", "statement_id", id, "to", req.Status, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toStatementDTO(st))
}

func (h *StatementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	if err := h.statements.Delete(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("statement deletion failed", "statement_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, nil)
}

func (h *StatementHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	// Body is optional; an empty regenerate reuses the configured defaults.
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	st, err := h.statements.Regenerate(r.Context(), id, req.params())
	if err != nil {
		log.Warn("statement regeneration failed", "statement_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/statements/%s", st.ID))
	RespondSuccess(w, http.StatusCreated, toStatementDTO(st))
}

func (h *StatementHandler) Ratios(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrStatementNotFound, nil)
		return
	}

	st, err := h.statements.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	ratios, err := h.statements.CalculateRatios(r.Context(), st)
	if err != nil {
		logging.FromContext(r.Context()).Warn("ratio calculation failed", "statement_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"statement_number": st.StatementNumber,
		"as_of":            st.StatementDate.Format(dateLayout),
		"ratios":           ratios,
	})
}
