package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uarix/WashWise/internal/model"
)

// dateLayout is the calendar-date key format used in the usage table.
const dateLayout = "2006-01-02"

// windowDays is the size of the usage history window served to clients.
const windowDays = 7

// DayCount is one calendar date's usage count.
type DayCount struct {
	Date  string
	Count int
}

// Ledger records cycle-start events and serves the recent usage history.
// Writes are durable before the call returns.
type Ledger interface {
	// RecordUsage increments the machine's count for the calendar date of
	// at. Each call is one increment; idempotency is the caller's problem.
	RecordUsage(ctx context.Context, machineID string, at time.Time) error

	// LastSevenDays returns exactly 7 day buckets ending at asOf inclusive,
	// zero-filled for dates without a stored row. The bool reports whether
	// any row existed in the window at all.
	LastSevenDays(ctx context.Context, machineID string, asOf time.Time) ([]DayCount, bool, error)
}

type gormLedger struct {
	db *gorm.DB
}

// New creates a GORM-backed ledger.
func New(db *gorm.DB) Ledger {
	return &gormLedger{db: db}
}

// RecordUsage performs an atomic increment-or-insert keyed on
// (machine_id, use_date), so concurrent callers never lose an update.
func (l *gormLedger) RecordUsage(ctx context.Context, machineID string, at time.Time) error {
	row := model.MachineUsage{
		MachineID: machineID,
		UseDate:   at.Format(dateLayout),
		UseCount:  1,
	}

	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "machine_id"}, {Name: "use_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"use_count": gorm.Expr("use_count + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record usage for machine %s: %w", machineID, err)
	}
	return nil
}

func (l *gormLedger) LastSevenDays(ctx context.Context, machineID string, asOf time.Time) ([]DayCount, bool, error) {
	start := asOf.AddDate(0, 0, -(windowDays - 1))

	var rows []model.MachineUsage
	err := l.db.WithContext(ctx).
		Where("machine_id = ? AND use_date BETWEEN ? AND ?",
			machineID, start.Format(dateLayout), asOf.Format(dateLayout)).
		Order("use_date").
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to query usage for machine %s: %w", machineID, err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.UseDate] = row.UseCount
	}

	days := make([]DayCount, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		days = append(days, DayCount{Date: date, Count: counts[date]})
	}
	return days, len(rows) > 0, nil
}
