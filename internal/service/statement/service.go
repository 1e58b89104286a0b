// Package statement derives financial statements from the ledger: balance
// sheets, profit and loss statements, trial balances and their ratios, plus
// the versioning lifecycle around them.
package statement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookclose/bookclose/internal/config"
	"github.com/bookclose/bookclose/internal/domain"
)

type accountStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
	ListActive(ctx context.Context) ([]domain.Account, error)
}

type ledgerStore interface {
	SumByAccount(ctx context.Context, from, to time.Time, includePending bool, codes []string) (map[string]domain.DebitCredit, error)
}

type statementStore interface {
	Create(ctx context.Context, s *domain.Statement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Statement, error)
	GetCurrent(ctx context.Context, st domain.StatementType, pt domain.PeriodType, periodKey string) (*domain.Statement, error)
	GetByNumber(ctx context.Context, number string) (*domain.Statement, error)
	ListVersions(ctx context.Context, number string) ([]domain.Statement, error)
	List(ctx context.Context, filter domain.StatementFilter) ([]domain.Statement, int, error)
	Update(ctx context.Context, s *domain.Statement) error
	CreateVersion(ctx context.Context, previousID uuid.UUID, next *domain.Statement) error
	DeleteByNumber(ctx context.Context, number string) error
	NextSequence(ctx context.Context, st domain.StatementType, periodKey string) (int, error)
}

type Service struct {
	accounts   accountStore
	ledger     ledgerStore
	statements statementStore
	config     *config.Config
}

func NewService(accounts accountStore, ledger ledgerStore, statements statementStore, cfg *config.Config) *Service {
	return &Service{
		accounts:   accounts,
		ledger:     ledger,
		statements: statements,
		config:     cfg,
	}
}
