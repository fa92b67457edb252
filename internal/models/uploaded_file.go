package models

import (
	"fmt"
	"time"
)

// IngestionStats - counters of one ingestion run.
type IngestionStats struct {
	Total     int  `json:"total"`
	New       int  `json:"new"`
	Updated   int  `json:"updated"` // always 0: the ledger has no update path
	Duplicate int  `json:"duplicate"`
	Errors    int  `json:"errors"`
	Complete  bool `json:"complete"`
}

// Summary is the human readable line returned next to the counters.
func (s IngestionStats) Summary() string {
	msg := fmt.Sprintf("File processed. %d new, %d duplicate, %d errors out of %d rows.",
		s.New, s.Duplicate, s.Errors, s.Total)
	if !s.Complete {
		msg = fmt.Sprintf("File processing stopped early. %d new, %d duplicate, %d errors out of %d rows read.",
			s.New, s.Duplicate, s.Errors, s.Total)
	}
	return msg
}

// UploadedFile - one ingestion run. Written once, after the run, with the
// final stats.
type UploadedFile struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	FileName         string    `gorm:"size:255;not null" json:"fileName"`
	Size             int64     `gorm:"not null" json:"size"`
	UploadDate       time.Time `gorm:"index;not null" json:"uploadDate"`
	RecordsTotal     int       `gorm:"not null;default:0" json:"recordsTotal"`
	RecordsNew       int       `gorm:"not null;default:0" json:"recordsNew"`
	RecordsUpdated   int       `gorm:"not null;default:0" json:"recordsUpdated"`
	RecordsDuplicate int       `gorm:"not null;default:0" json:"recordsDuplicate"`
	RecordsErrors    int       `gorm:"not null;default:0" json:"recordsErrors"`
	Complete         bool      `gorm:"not null" json:"complete"`
	UploadedBy       uint      `gorm:"index" json:"uploadedBy"`
}

func (f *UploadedFile) SetStats(s IngestionStats) {
	f.RecordsTotal = s.Total
	f.RecordsNew = s.New
	f.RecordsUpdated = s.Updated
	f.RecordsDuplicate = s.Duplicate
	f.RecordsErrors = s.Errors
	f.Complete = s.Complete
}
