// Package gormstore implements store.Store over GORM. SQLite is the embedded
// backend; Postgres (Supabase included) is the hosted one.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	// advisoryLockKey serializes writers across processes sharing one
	// Postgres database.
	advisoryLockKey = 7319501

	rebuildBatchSize = 500
)

type Store struct {
	db      *gorm.DB
	backend string

	// mu serializes writers inside this process.
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" works
// for tests.
func OpenSQLite(path string, log zerolog.Logger) (*Store, error) {
	return Open(sqlite.Open(path), BackendSQLite, log)
}

func OpenPostgres(dsn string, log zerolog.Logger) (*Store, error) {
	return Open(postgres.Open(dsn), BackendPostgres, log)
}

// Open connects through dialector and migrates the schema.
func Open(dialector gorm.Dialector, backend string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(gormWriter{log: log}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", backend, err)
	}

	if backend == BackendSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite has a single writer and ":memory:" lives per connection.
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.UploadedFile{},
		&models.Transaction{},
		&models.AggregateBucket{},
		&models.ProductAggregate{},
		&models.AuditLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate %s: %w", backend, err)
	}

	log.Info().Str("backend", backend).Msg("database connected, migration complete")
	return &Store{db: db, backend: backend}, nil
}

// gormWriter sends GORM's own log lines to zerolog.
type gormWriter struct{ log zerolog.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Str("component", "gorm").Msgf(format, args...)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// exclusive runs fn in one DB transaction while holding the writer locks.
func (s *Store) exclusive(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.backend == BackendPostgres {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryLockKey).Error; err != nil {
				return fmt.Errorf("advisory lock: %w", err)
			}
		}
		return fn(tx)
	})
}

// WithinWriteLock implements store.Store. fn commits atomically; any error
// rolls it back.
func (s *Store) WithinWriteLock(ctx context.Context, fn func(w store.Writer) error) error {
	return s.exclusive(ctx, func(tx *gorm.DB) error {
		return fn(writer{tx: tx})
	})
}

type writer struct{ tx *gorm.DB }

func (w writer) TransactionExists(ctx context.Context, key models.DedupKey) (bool, error) {
	var n int64
	err := w.tx.WithContext(ctx).Model(&models.Transaction{}).
		Where("order_number = ? AND check_number = ? AND operation_date = ?",
			key.OrderNumber, key.CheckNumber, key.OperationDate).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (w writer) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	if err := w.tx.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %v: %w", t.DedupKey(), store.ErrConflict)
		}
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (w writer) ApplyTransaction(ctx context.Context, t *models.Transaction) error {
	db := w.tx.WithContext(ctx)

	for g, key := range store.BucketKeys(t) {
		var b models.AggregateBucket
		err := db.Where("granularity = ? AND period_key = ? AND payment_type = ?", g, key, t.PaymentType).
			Take(&b).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			b = models.AggregateBucket{Granularity: g, PeriodKey: key, PaymentType: t.PaymentType}
		case err != nil:
			return fmt.Errorf("load %s bucket %s: %w", g, key, err)
		}
		v := models.BucketValue{Count: b.Count, Sum: b.Sum}.Add(t.TotalAmount)
		b.Count, b.Sum = v.Count, v.Sum
		if err := db.Save(&b).Error; err != nil {
			return fmt.Errorf("save %s bucket %s: %w", g, key, err)
		}
	}

	var p models.ProductAggregate
	err := db.Where("product_name = ? AND product_variant = ?", t.ProductName, t.ProductVariant).Take(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		p = models.ProductAggregate{ProductName: t.ProductName, ProductVariant: t.ProductVariant}
	case err != nil:
		return fmt.Errorf("load product aggregate: %w", err)
	}
	p.Apply(t)
	if err := db.Save(&p).Error; err != nil {
		return fmt.Errorf("save product aggregate: %w", err)
	}
	return nil
}

// ListTransactions implements store.Ledger. Newest operation date first.
func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if f.StartDate != "" {
		q = q.Where("operation_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("operation_date <= ?", f.EndDate)
	}
	if f.PaymentType != "" {
		q = q.Where("payment_type = ?", f.PaymentType)
	}
	if f.ProductContains != "" {
		q = q.Where("LOWER(product_name) LIKE ?", "%"+strings.ToLower(f.ProductContains)+"%")
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.Month != 0 {
		q = q.Where("month = ?", f.Month)
	}
	if f.Day != 0 {
		q = q.Where("day = ?", f.Day)
	}

	result := make([]models.Transaction, 0)
	if err := q.Order("operation_date DESC").Order("id ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return result, nil
}

func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).Count(&n).Error
	return n, err
}

func (s *Store) GetBucket(ctx context.Context, g models.Granularity, periodKey string) (models.PaymentTypeMap, error) {
	var rows []models.AggregateBucket
	err := s.db.WithContext(ctx).
		Where("granularity = ? AND period_key = ?", g, periodKey).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	out := make(models.PaymentTypeMap, len(rows))
	for _, r := range rows {
		out[r.PaymentType] = models.BucketValue{Count: r.Count, Sum: r.Sum}
	}
	return out, nil
}

func (s *Store) ListBuckets(ctx context.Context, g models.Granularity) ([]models.AggregateBucket, error) {
	result := make([]models.AggregateBucket, 0)
	err := s.db.WithContext(ctx).
		Where("granularity = ?", g).
		Order("period_key ASC").Order("payment_type ASC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return result, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.ProductAggregate, error) {
	result := make([]models.ProductAggregate, 0)
	err := s.db.WithContext(ctx).
		Order("product_name ASC").Order("product_variant ASC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}

func (s *Store) CreateUploadedFile(ctx context.Context, f *models.UploadedFile) error {
	if f.ID == "" {
		return fmt.Errorf("file ID is required")
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create uploaded file: %w", err)
	}
	return nil
}

func (s *Store) ListUploadedFiles(ctx context.Context) ([]models.UploadedFile, error) {
	result := make([]models.UploadedFile, 0)
	if err := s.db.WithContext(ctx).Order("upload_date DESC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("list uploaded files: %w", err)
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Username, store.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, f store.AuditFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	logs := make([]models.AuditLog, 0)
	if err := q.Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// Clear implements store.Store. Users and audit logs are kept.
func (s *Store) Clear(ctx context.Context) error {
	return s.exclusive(ctx, func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.Transaction{},
			&models.AggregateBucket{},
			&models.ProductAggregate{},
			&models.UploadedFile{},
		} {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return fmt.Errorf("clear: %w", err)
			}
		}
		return nil
	})
}

type bucketID struct {
	g   models.Granularity
	key string
	pt  models.PaymentType
}

// RebuildAggregates implements store.Store. The ledger is folded in memory
// batch by batch and the result replaces the aggregate tables.
func (s *Store) RebuildAggregates(ctx context.Context) error {
	return s.exclusive(ctx, func(tx *gorm.DB) error {
		buckets := make(map[bucketID]*models.AggregateBucket)
		products := make(map[models.ProductKey]*models.ProductAggregate)

		var batch []models.Transaction
		err := tx.Model(&models.Transaction{}).Order("id ASC").
			FindInBatches(&batch, rebuildBatchSize, func(_ *gorm.DB, _ int) error {
				for i := range batch {
					t := &batch[i]
					for g, key := range store.BucketKeys(t) {
						id := bucketID{g: g, key: key, pt: t.PaymentType}
						b, ok := buckets[id]
						if !ok {
							b = &models.AggregateBucket{Granularity: g, PeriodKey: key, PaymentType: t.PaymentType}
							buckets[id] = b
						}
						v := models.BucketValue{Count: b.Count, Sum: b.Sum}.Add(t.TotalAmount)
						b.Count, b.Sum = v.Count, v.Sum
					}
					pk := t.ProductKey()
					p, ok := products[pk]
					if !ok {
						p = &models.ProductAggregate{ProductName: pk.Name, ProductVariant: pk.Variant}
						products[pk] = p
					}
					p.Apply(t)
				}
				return nil
			}).Error
		if err != nil {
			return fmt.Errorf("scan ledger: %w", err)
		}

		if err := tx.Where("1 = 1").Delete(&models.AggregateBucket{}).Error; err != nil {
			return fmt.Errorf("drop buckets: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.ProductAggregate{}).Error; err != nil {
			return fmt.Errorf("drop products: %w", err)
		}

		bucketRows := make([]models.AggregateBucket, 0, len(buckets))
		for _, b := range buckets {
			bucketRows = append(bucketRows, *b)
		}
		productRows := make([]models.ProductAggregate, 0, len(products))
		for _, p := range products {
			productRows = append(productRows, *p)
		}
		if len(bucketRows) > 0 {
			if err := tx.CreateInBatches(bucketRows, rebuildBatchSize).Error; err != nil {
				return fmt.Errorf("write buckets: %w", err)
			}
		}
		if len(productRows) > 0 {
			if err := tx.CreateInBatches(productRows, rebuildBatchSize).Error; err != nil {
				return fmt.Errorf("write products: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) Info(ctx context.Context) (store.Info, error) {
	info := store.Info{Backend: s.backend}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Transaction{}).Count(&info.TotalRecords).Error; err != nil {
		return info, err
	}
	if err := db.Model(&models.UploadedFile{}).Count(&info.TotalFiles).Error; err != nil {
		return info, err
	}
	if info.TotalRecords > 0 {
		var last models.Transaction
		if err := db.Select("id", "uploaded_at").Order("id DESC").Take(&last).Error; err != nil {
			return info, err
		}
		info.LastUpdate = &last.UploadedAt
	}
	return info, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*Store)(nil)
