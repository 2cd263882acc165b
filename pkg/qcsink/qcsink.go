/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package qcsink implements the quality metrics sink: an
// append-only QC-record store plus PDF residual-plot artefacts. Built on
// gorm.io/gorm + gorm.io/driver/sqlite for the record store, and on
// seehuhn.de/go/pdf's document.CreateSinglePage + path/fill/stroke sequence
// for the plots (plot.go).
package qcsink

/*****************************************************************************************************************/

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thespacedoctor/soxs-pipeline/internal/errs"
)

/*****************************************************************************************************************/

// Record is one append-only QC row: a single measured quality metric,
// inserted in run order and never updated or deleted in place.
type Record struct {
	gorm.Model
	RecipeName        string
	MetricName        string
	Value             float64
	Unit              string
	Comment           string
	ObservationUTC    string
	ReductionUTC      string
	PropagateToHeader bool
}

/*****************************************************************************************************************/

// Sink wraps an append-only SQLite QC table.
type Sink struct {
	db *gorm.DB
}

/*****************************************************************************************************************/

// Open opens (creating if absent) the QC database at path and ensures the
// record table exists.
func Open(path string) (*Sink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errs.New(errs.WriteFailure, "qcsink.Open", path, err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errs.New(errs.WriteFailure, "qcsink.Open", path, err)
	}

	return &Sink{db: db}, nil
}

/*****************************************************************************************************************/

// Append inserts one QC record. Callers are responsible for calling Append
// in source-code order — the sink never reorders or batches.
func (s *Sink) Append(rec Record) error {
	if err := s.db.Create(&rec).Error; err != nil {
		return errs.New(errs.WriteFailure, "qcsink.Append", rec.MetricName, err)
	}

	return nil
}

/*****************************************************************************************************************/

// AppendAll inserts records in order, one metric row per call to Append.
func (s *Sink) AppendAll(records []Record) error {
	for _, rec := range records {
		if err := s.Append(rec); err != nil {
			return err
		}
	}

	return nil
}

/*****************************************************************************************************************/

// All returns every QC record currently stored, ordered by primary key
// (insertion order).
func (s *Sink) All() ([]Record, error) {
	var records []Record

	if err := s.db.Order("id asc").Find(&records).Error; err != nil {
		return nil, errs.New(errs.WriteFailure, "qcsink.All", "", err)
	}

	return records, nil
}

/*****************************************************************************************************************/

// Close releases the underlying database connection.
func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errs.New(errs.WriteFailure, "qcsink.Close", "", err)
	}

	return sqlDB.Close()
}

/*****************************************************************************************************************/
