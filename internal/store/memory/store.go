package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu sync.RWMutex

	transactions []models.Transaction
	dedup        map[models.DedupKey]struct{}
	nextTxID     uint

	buckets  map[models.Granularity]map[string]models.PaymentTypeMap
	products map[models.ProductKey]*models.ProductAggregate

	files []models.UploadedFile

	users      map[uint]*models.User
	nextUserID uint

	auditLogs   []models.AuditLog
	nextAuditID uint
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	s := &Store{
		users: make(map[uint]*models.User),
	}
	s.resetData()
	return s
}

func (s *Store) resetData() {
	s.transactions = nil
	s.dedup = make(map[models.DedupKey]struct{})
	s.files = nil
	s.resetAggregates()
}

func (s *Store) resetAggregates() {
	s.buckets = make(map[models.Granularity]map[string]models.PaymentTypeMap, len(models.Granularities))
	for _, g := range models.Granularities {
		s.buckets[g] = make(map[string]models.PaymentTypeMap)
	}
	s.products = make(map[models.ProductKey]*models.ProductAggregate)
}

// writer operates on the store without locking; only handed out while the
// write lock is held.
type writer struct{ s *Store }

func (w writer) TransactionExists(_ context.Context, key models.DedupKey) (bool, error) {
	_, ok := w.s.dedup[key]
	return ok, nil
}

func (w writer) AppendTransaction(_ context.Context, t *models.Transaction) error {
	key := t.DedupKey()
	if _, ok := w.s.dedup[key]; ok {
		return fmt.Errorf("transaction %v: %w", key, store.ErrConflict)
	}
	w.s.nextTxID++
	t.ID = w.s.nextTxID
	w.s.transactions = append(w.s.transactions, *t)
	w.s.dedup[key] = struct{}{}
	return nil
}

func (w writer) ApplyTransaction(_ context.Context, t *models.Transaction) error {
	w.s.apply(t)
	return nil
}

func (s *Store) apply(t *models.Transaction) {
	for g, key := range store.BucketKeys(t) {
		bucket, ok := s.buckets[g][key]
		if !ok {
			bucket = make(models.PaymentTypeMap)
			s.buckets[g][key] = bucket
		}
		bucket[t.PaymentType] = bucket[t.PaymentType].Add(t.TotalAmount)
	}

	pk := t.ProductKey()
	p, ok := s.products[pk]
	if !ok {
		p = &models.ProductAggregate{ProductName: pk.Name, ProductVariant: pk.Variant}
		s.products[pk] = p
	}
	p.Apply(t)
}

// WithinWriteLock implements store.Store.
func (s *Store) WithinWriteLock(ctx context.Context, fn func(w store.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(writer{s: s})
}

// ListTransactions implements store.Ledger. Newest operation date first.
func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Transaction, 0)
	for i := range s.transactions {
		if f.Match(&s.transactions[i]) {
			result = append(result, s.transactions[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OperationDate > result[j].OperationDate
	})
	return result, nil
}

func (s *Store) CountTransactions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.transactions)), nil
}

// GetBucket implements store.Aggregates. A missing bucket is an empty map.
func (s *Store) GetBucket(_ context.Context, g models.Granularity, periodKey string) (models.PaymentTypeMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(models.PaymentTypeMap)
	if byKey, ok := s.buckets[g]; ok {
		out.Merge(byKey[periodKey])
	}
	return out, nil
}

func (s *Store) ListBuckets(_ context.Context, g models.Granularity) ([]models.AggregateBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.AggregateBucket, 0)
	for key, m := range s.buckets[g] {
		for pt, v := range m {
			result = append(result, models.AggregateBucket{
				Granularity: g,
				PeriodKey:   key,
				PaymentType: pt,
				Count:       v.Count,
				Sum:         v.Sum,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PeriodKey != result[j].PeriodKey {
			return result[i].PeriodKey < result[j].PeriodKey
		}
		return result[i].PaymentType < result[j].PaymentType
	})
	return result, nil
}

func (s *Store) ListProducts(_ context.Context) ([]models.ProductAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ProductAggregate, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductName != result[j].ProductName {
			return result[i].ProductName < result[j].ProductName
		}
		return result[i].ProductVariant < result[j].ProductVariant
	})
	return result, nil
}

func (s *Store) CreateUploadedFile(_ context.Context, f *models.UploadedFile) error {
	if f.ID == "" {
		return fmt.Errorf("file ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, *f)
	return nil
}

// ListUploadedFiles implements store.Files. Newest first.
func (s *Store) ListUploadedFiles(_ context.Context) ([]models.UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.UploadedFile, len(s.files))
	copy(result, s.files)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UploadDate.After(result[j].UploadDate)
	})
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("user %s: %w", u.Username, store.ErrConflict)
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	userCopy := *u
	s.users[u.ID] = &userCopy
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
}

func (s *Store) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	userCopy := *u
	return &userCopy, nil
}

func (s *Store) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	u.LastLoginAt = &at
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAuditID++
	l.ID = s.nextAuditID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.auditLogs = append(s.auditLogs, *l)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, f store.AuditFilter) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.AuditLog, 0)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		l := s.auditLogs[i]
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.UserID != 0 && l.UserID != f.UserID {
			continue
		}
		result = append(result, l)
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result, nil
}

// Clear implements store.Store. Users and audit logs are kept.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetData()
	return nil
}

func (s *Store) RebuildAggregates(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetAggregates()
	for i := range s.transactions {
		s.apply(&s.transactions[i])
	}
	return nil
}

func (s *Store) Info(_ context.Context) (store.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := store.Info{
		Backend:      "memory",
		TotalRecords: int64(len(s.transactions)),
		TotalFiles:   int64(len(s.files)),
	}
	if n := len(s.transactions); n > 0 {
		last := s.transactions[n-1].UploadedAt
		info.LastUpdate = &last
	}
	return info, nil
}

func (s *Store) Close() error { return nil }

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
