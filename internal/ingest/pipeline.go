// Package ingest turns uploaded spreadsheet rows into ledger transactions
// and aggregate updates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type FileMeta struct {
	Name string
	Size int64
}

// Uploader is the already authenticated caller of Ingest.
type Uploader struct {
	ID   uint
	Role models.UserRole
}

// Limits bound a single run. Zero means unbounded.
type Limits struct {
	MaxRows     int
	MaxDuration time.Duration
}

type Pipeline struct {
	store  store.Store
	parser *RowParser
	gate   DedupGate
	limits Limits
	log    zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewPipeline(st store.Store, parser *RowParser, limits Limits, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:  st,
		parser: parser,
		limits: limits,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Ingest processes rows (row 0 is the header) in file order.
//
// Row problems are counted and never stop the run. A store failure stops it
// with a *PersistenceError and no file record. A limit or cancellation stops
// it with an *AbortError; the file record is still written with the partial
// stats. In every case the returned stats describe what was done.
func (p *Pipeline) Ingest(ctx context.Context, rows [][]string, meta FileMeta, uploader Uploader) (models.IngestionStats, error) {
	var stats models.IngestionStats

	if uploader.Role != models.RoleAdmin {
		return stats, ErrForbidden
	}
	if !hasDataRow(rows, p.parser.Layout.MinColumns) {
		return stats, ErrNoDataRows
	}

	if p.limits.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.limits.MaxDuration)
		defer cancel()
	}

	file := models.UploadedFile{
		ID:         p.newID(),
		FileName:   meta.Name,
		Size:       meta.Size,
		UploadDate: p.now(),
		UploadedBy: uploader.ID,
	}
	log := p.log.With().Str("file_id", file.ID).Str("file_name", meta.Name).Logger()

	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return p.abort(ctx, &file, stats, &AbortError{Row: i, Reason: abortReason(err), Err: err}, log)
		}

		tx, err := p.parser.Parse(rows[i], i)
		if errors.Is(err, ErrShortRow) {
			continue
		}
		if p.limits.MaxRows > 0 && stats.Total >= p.limits.MaxRows {
			return p.abort(ctx, &file, stats, &AbortError{
				Row:    i,
				Reason: fmt.Sprintf("row limit of %d reached", p.limits.MaxRows),
			}, log)
		}

		stats.Total++
		if err != nil {
			stats.Errors++
			log.Warn().Int("row", i).Err(err).Msg("row rejected")
			continue
		}

		tx.FileID = file.ID
		tx.UploadedBy = uploader.ID
		tx.UploadedAt = file.UploadDate

		duplicate, err := p.accept(ctx, tx)
		switch {
		case err == nil && duplicate:
			stats.Duplicate++
		case err == nil:
			stats.New++
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			stats.Total--
			return p.abort(ctx, &file, stats, &AbortError{Row: i, Reason: abortReason(err), Err: err}, log)
		default:
			log.Error().Int("row", i).Err(err).
				Int("new", stats.New).Int("duplicate", stats.Duplicate).
				Msg("persistence failed, ingestion stopped")
			return stats, &PersistenceError{Row: i, Err: err}
		}
	}

	stats.Complete = true
	file.SetStats(stats)
	if err := p.store.CreateUploadedFile(ctx, &file); err != nil {
		stats.Complete = false
		log.Error().Err(err).Msg("file record could not be saved")
		return stats, &PersistenceError{Row: len(rows), Err: err}
	}

	log.Info().
		Int("total", stats.Total).
		Int("new", stats.New).
		Int("duplicate", stats.Duplicate).
		Int("errors", stats.Errors).
		Msg("ingestion finished")
	return stats, nil
}

// accept runs the dedup check and the append as one critical section.
func (p *Pipeline) accept(ctx context.Context, tx *models.Transaction) (duplicate bool, err error) {
	err = p.store.WithinWriteLock(ctx, func(w store.Writer) error {
		dup, err := p.gate.IsDuplicate(ctx, w, tx)
		if err != nil {
			return err
		}
		if dup {
			duplicate = true
			return nil
		}
		if err := w.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return w.ApplyTransaction(ctx, tx)
	})
	// Another process may have inserted the same key between our check and
	// the insert; the unique index turns that into a conflict.
	if errors.Is(err, store.ErrConflict) {
		return true, nil
	}
	return duplicate, err
}

func (p *Pipeline) abort(ctx context.Context, file *models.UploadedFile, stats models.IngestionStats, abortErr *AbortError, log zerolog.Logger) (models.IngestionStats, error) {
	stats.Complete = false
	file.SetStats(stats)

	log.Warn().Int("row", abortErr.Row).Str("reason", abortErr.Reason).
		Int("total", stats.Total).Int("new", stats.New).
		Msg("ingestion stopped early")

	if err := p.store.CreateUploadedFile(context.WithoutCancel(ctx), file); err != nil {
		log.Error().Err(err).Msg("file record could not be saved")
		return stats, &PersistenceError{Row: abortErr.Row, Err: err}
	}
	return stats, abortErr
}

func abortReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "time limit exceeded"
	}
	return "cancelled"
}

// hasDataRow reports whether any row after the header is wide enough to parse.
func hasDataRow(rows [][]string, minColumns int) bool {
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) >= minColumns {
			return true
		}
	}
	return false
}
