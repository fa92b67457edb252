// Package store defines the persistence contract shared by the in-memory and
// the relational backends. The ingestion pipeline and the reporting layer only
// ever see these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"sales-analytics-backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// TransactionFilter - optional ledger filters. Zero values mean "no filter".
// StartDate/EndDate are inclusive YYYY-MM-DD strings.
type TransactionFilter struct {
	StartDate       string
	EndDate         string
	PaymentType     models.PaymentType
	ProductContains string
	Year            int
	Month           int
	Day             int
}

// Match is the reference implementation of the filter, used by the memory
// store and by tests.
func (f TransactionFilter) Match(t *models.Transaction) bool {
	if f.StartDate != "" && t.OperationDate < f.StartDate {
		return false
	}
	if f.EndDate != "" && t.OperationDate > f.EndDate {
		return false
	}
	if f.PaymentType != "" && t.PaymentType != f.PaymentType {
		return false
	}
	if f.ProductContains != "" && !containsFold(t.ProductName, f.ProductContains) {
		return false
	}
	if f.Year != 0 && t.Year != f.Year {
		return false
	}
	if f.Month != 0 && t.Month != f.Month {
		return false
	}
	if f.Day != 0 && t.Day != f.Day {
		return false
	}
	return true
}

// Ledger is the append-only transaction collection.
type Ledger interface {
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
	CountTransactions(ctx context.Context) (int64, error)
}

// Aggregates is the read side of the rollups.
type Aggregates interface {
	GetBucket(ctx context.Context, g models.Granularity, periodKey string) (models.PaymentTypeMap, error)
	ListBuckets(ctx context.Context, g models.Granularity) ([]models.AggregateBucket, error)
	ListProducts(ctx context.Context) ([]models.ProductAggregate, error)
}

// Writer is what the ingestion critical section can do. It is only valid
// inside Store.WithinWriteLock.
type Writer interface {
	TransactionExists(ctx context.Context, key models.DedupKey) (bool, error)
	AppendTransaction(ctx context.Context, t *models.Transaction) error
	// ApplyTransaction folds t into the year, month, day and product
	// aggregates. It must run exactly once per appended transaction.
	ApplyTransaction(ctx context.Context, t *models.Transaction) error
}

type Files interface {
	CreateUploadedFile(ctx context.Context, f *models.UploadedFile) error
	ListUploadedFiles(ctx context.Context) ([]models.UploadedFile, error)
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// AuditFilter - optional audit log filters. Limit 0 means no limit.
type AuditFilter struct {
	Action     models.AuditAction
	EntityType string
	UserID     uint
	Limit      int
}

// AuditLogs is append-only, newest first on read.
type AuditLogs interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}

// Info - database summary for the admin screen.
type Info struct {
	Backend      string     `json:"backend"`
	TotalRecords int64      `json:"totalRecords"`
	TotalFiles   int64      `json:"totalFiles"`
	LastUpdate   *time.Time `json:"lastUpdate"`
}

// Store is the full persistence collaborator.
type Store interface {
	Ledger
	Aggregates
	Files
	Users
	AuditLogs

	// WithinWriteLock runs fn as one serialized unit: concurrent callers
	// (and Clear/RebuildAggregates) never interleave with it. Backends that
	// support it commit fn atomically.
	WithinWriteLock(ctx context.Context, fn func(w Writer) error) error

	// Clear wipes transactions, uploaded files and every aggregate in one
	// atomic step. Users and audit logs survive.
	Clear(ctx context.Context) error

	// RebuildAggregates drops all aggregates and re-derives them from the
	// ledger.
	RebuildAggregates(ctx context.Context) error

	Info(ctx context.Context) (Info, error)
	Close() error
}
