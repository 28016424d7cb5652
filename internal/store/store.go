package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"machine-utilization-backend/internal/model"
)

// Store defines the single interface for all database operations. Every
// handler goes through it; the underlying driver is an implementation
// detail, never a per-handler decision.
type Store interface {
	// Machine settings
	ListSettings(ctx context.Context, group string) ([]model.MachineSetting, error)
	CreateSetting(ctx context.Context, setting *model.MachineSetting) error
	UpdateSetting(ctx context.Context, id int64, patch SettingPatch) (*model.MachineSetting, error)
	DeleteSetting(ctx context.Context, id int64) (int64, error)
	SeedSettings(ctx context.Context, defaults []model.MachineSetting) (int64, bool, error)

	// Hour logs
	ListHourLogs(ctx context.Context, filter HourLogFilter) ([]model.HourLog, error)
	AppendHourLog(ctx context.Context, hourLog *model.HourLog) error
	DeleteAllHourLogs(ctx context.Context) (int64, error)

	// Aggregation inputs. Each returns everything one aggregation call
	// needs from a single snapshot-consistent read.
	StatusSnapshot(ctx context.Context, since time.Time) (*StatusData, error)
	RangeSnapshot(ctx context.Context, from, to time.Time) (*RangeData, error)

	// DB exposes the underlying handle for components that manage their
	// own queries (subscriptions, health checks).
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ListSettings returns machine settings ordered by group then machine name.
// An empty group or the literal "All" means unfiltered.
func (s *gormStore) ListSettings(ctx context.Context, group string) ([]model.MachineSetting, error) {
	q := s.db.WithContext(ctx).Order("group_name, machine_name")
	if group != "" && group != "All" {
		q = q.Where("group_name = ?", group)
	}

	var settings []model.MachineSetting
	if err := q.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (s *gormStore) CreateSetting(ctx context.Context, setting *model.MachineSetting) error {
	if err := s.db.WithContext(ctx).Create(setting).Error; err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create setting: %w", err)
	}
	return nil
}

// UpdateSetting applies a partial update and returns the updated row.
// A nonexistent id yields ErrNotFound.
func (s *gormStore) UpdateSetting(ctx context.Context, id int64, patch SettingPatch) (*model.MachineSetting, error) {
	var setting model.MachineSetting
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&setting, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if patch.MachineName != nil {
			setting.MachineName = *patch.MachineName
		}
		if patch.GroupName != nil {
			setting.GroupName = *patch.GroupName
		}
		if patch.WeeklyTarget != nil {
			setting.WeeklyTarget = *patch.WeeklyTarget
		}
		if patch.MonthlyTarget != nil {
			setting.MonthlyTarget = *patch.MonthlyTarget
		}

		return tx.Save(&setting).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if isDuplicateErr(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update setting %d: %w", id, err)
	}
	return &setting, nil
}

// DeleteSetting removes a setting by id. Deleting a missing id is not an
// error; the affected row count is reported instead.
func (s *gormStore) DeleteSetting(ctx context.Context, id int64) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&model.MachineSetting{}, id)
	if res.Error != nil {
		return 0, fmt.Errorf("delete setting %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// SeedSettings inserts the default machine list when the table is empty.
// It reports the resulting row count and whether anything was inserted.
func (s *gormStore) SeedSettings(ctx context.Context, defaults []model.MachineSetting) (int64, bool, error) {
	var count int64
	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.MachineSetting{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(&defaults).Error; err != nil {
			return err
		}
		count = int64(len(defaults))
		seeded = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("seed settings: %w", err)
	}
	return count, seeded, nil
}

// ListHourLogs returns hour logs matching the filter, newest first. The
// limit defaults to 100 and is capped at 1000.
func (s *gormStore) ListHourLogs(ctx context.Context, filter HourLogFilter) ([]model.HourLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > MaxHourLogLimit {
		limit = MaxHourLogLimit
	}

	q := s.db.WithContext(ctx).Order("log_time DESC").Limit(limit)
	if filter.Machine != "" {
		q = q.Where("machine_name = ?", filter.Machine)
	}
	if filter.From != nil {
		q = q.Where("log_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("log_time <= ?", *filter.To)
	}

	var logs []model.HourLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list hour logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) AppendHourLog(ctx context.Context, hourLog *model.HourLog) error {
	if err := s.db.WithContext(ctx).Create(hourLog).Error; err != nil {
		return fmt.Errorf("append hour log: %w", err)
	}
	return nil
}

// DeleteAllHourLogs wipes the log table. Only used when reseeding demo data.
func (s *gormStore) DeleteAllHourLogs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.HourLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete hour logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// StatusSnapshot fetches everything the status aggregation needs inside one
// transaction, so the window sums and the latest observed rows reflect the
// same commit state even under concurrent appends.
func (s *gormStore) StatusSnapshot(ctx context.Context, since time.Time) (*StatusData, error) {
	data := &StatusData{Since: since, Latest: make(map[string]model.HourLog)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("group_name, machine_name").Find(&data.Settings).Error; err != nil {
			return err
		}

		if err := tx.Where("log_time >= ?", since).Find(&data.Logs).Error; err != nil {
			return err
		}

		// Latest observed row per machine: max log_time, id as tiebreak.
		var latest []model.HourLog
		if err := tx.Raw(`
			SELECT mh.* FROM machine_hours mh
			WHERE mh.id = (
				SELECT mh2.id FROM machine_hours mh2
				WHERE mh2.machine_name = mh.machine_name
				ORDER BY mh2.log_time DESC, mh2.id DESC
				LIMIT 1
			)`).Scan(&latest).Error; err != nil {
			return err
		}
		for _, row := range latest {
			data.Latest[row.MachineName] = row
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status snapshot: %w", err)
	}
	return data, nil
}

// RangeSnapshot fetches settings plus the hour logs inside [from, to] in one
// transaction, ordered for the timeline reconstruction.
func (s *gormStore) RangeSnapshot(ctx context.Context, from, to time.Time) (*RangeData, error) {
	data := &RangeData{From: from, To: to}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("group_name, machine_name").Find(&data.Settings).Error; err != nil {
			return err
		}
		return tx.
			Where("log_time >= ? AND log_time <= ?", from, to).
			Order("machine_name, log_time, id").
			Find(&data.Logs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("range snapshot: %w", err)
	}
	return data, nil
}

// isDuplicateErr recognizes unique-constraint violations across the drivers
// we run against (postgres in production, sqlite in tests).
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
