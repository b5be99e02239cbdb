// Package store writes finished matches to Postgres. Records are an audit
// trail only; nothing is read back into the coordinator.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MatchRecord is one finished best-of-N match.
type MatchRecord struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID   string    `gorm:"index;not null" json:"session_id"`
	WinnerName  string    `gorm:"type:varchar(20);not null" json:"winner_name"`
	LoserName   string    `gorm:"type:varchar(20);not null" json:"loser_name"`
	WinnerScore int       `json:"winner_score"`
	LoserScore  int       `json:"loser_score"`
	Rounds      int       `json:"rounds"`
	WinsNeeded  int       `json:"wins_needed"`
	FinishedAt  time.Time `gorm:"index" json:"finished_at"`
}

func (MatchRecord) TableName() string { return "match_records" }

// Open connects and migrates the match_records table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type writeFunc func(ctx context.Context, rec *MatchRecord) error

// Recorder buffers records so the hub loop never waits on the database.
type Recorder struct {
	in    chan MatchRecord
	write writeFunc
	log   *zap.Logger
}

func NewRecorder(db *gorm.DB, buffer int, log *zap.Logger) *Recorder {
	return newRecorder(func(ctx context.Context, rec *MatchRecord) error {
		return db.WithContext(ctx).Create(rec).Error
	}, buffer, log)
}

func newRecorder(write writeFunc, buffer int, log *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		in:    make(chan MatchRecord, buffer),
		write: write,
		log:   log.Named("store"),
	}
}

// Record queues rec and reports false if the buffer was full.
func (r *Recorder) Record(rec MatchRecord) bool {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	select {
	case r.in <- rec:
		return true
	default:
		r.log.Warn("match record dropped, buffer full", zap.String("session", rec.SessionID))
		return false
	}
}

// Run writes queued records until ctx is cancelled, then flushes what is
// already buffered.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-r.in:
			r.persist(ctx, rec)
		case <-ctx.Done():
			r.flush()
			return nil
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-r.in:
			r.persist(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) persist(ctx context.Context, rec MatchRecord) {
	if err := r.write(ctx, &rec); err != nil {
		r.log.Error("write match record", zap.String("session", rec.SessionID), zap.Error(err))
		return
	}
	r.log.Debug("match recorded",
		zap.String("session", rec.SessionID),
		zap.String("winner", rec.WinnerName),
		zap.String("loser", rec.LoserName))
}
