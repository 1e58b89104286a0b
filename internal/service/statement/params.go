package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/domain"
)

// Params carries the generation settings for one request. Every call threads
// its own copy; the engine keeps no mutable process-wide configuration, so
// two concurrent generations with different settings cannot bleed into each
// other.
type Params struct {
	// StatementDate is the reporting date; defaults to the period end.
	StatementDate time.Time
	// Tolerance bounds the accounting-identity check.
	Tolerance decimal.Decimal
	// AllowanceRate is applied to gross receivables for the
	// allowance-for-doubtful-accounts line.
	AllowanceRate decimal.Decimal
	// IncludePending counts pending entries alongside completed ones.
	IncludePending bool
	GeneratedBy    string
}

func (p Params) withDefaults(cfg *config.Config, period domain.Period) Params {
	if p.StatementDate.IsZero() {
		p.StatementDate = period.End
	}
	return p.normalized(cfg)
}

// normalized fills the period-independent defaults; validation paths with no
// period use it directly.
func (p Params) normalized(cfg *config.Config) Params {
	if p.Tolerance.IsZero() {
		p.Tolerance = decimal.NewFromFloat(cfg.ImbalanceTolerance)
	}
	if p.AllowanceRate.IsZero() {
		p.AllowanceRate = decimal.NewFromFloat(cfg.AllowanceRate)
	}
	if p.GeneratedBy == "" {
		p.GeneratedBy = cfg.DefaultGeneratedBy
	}
	return p
}
