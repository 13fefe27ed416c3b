package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

// ReportStore persists reports. Create must be durable when it returns nil.
type ReportStore interface {
	Create(ctx context.Context, r *Report) error
	ByUser(ctx context.Context, userID string) ([]Report, error)
	Recent(ctx context.Context, limit int) ([]Report, error)
	WithinBoxes(ctx context.Context, boxes []geo.Box) ([]Report, error)
}

type PostgresReportStore struct {
	db *gorm.DB
}

func NewPostgresReportStore(d *gorm.DB) *PostgresReportStore {
	return &PostgresReportStore{db: d}
}

func (s *PostgresReportStore) Create(ctx context.Context, r *Report) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) ByUser(ctx context.Context, userID string) ([]Report, error) {
	var out []Report
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("reports by user: %w", err)
	}
	return out, nil
}

func (s *PostgresReportStore) Recent(ctx context.Context, limit int) ([]Report, error) {
	var out []Report
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("recent reports: %w", err)
	}
	return out, nil
}

func (s *PostgresReportStore) WithinBoxes(ctx context.Context, boxes []geo.Box) ([]Report, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	var conds []string
	var args []interface{}
	for _, b := range boxes {
		conds = append(conds, "(lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?)")
		args = append(args, b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}
	var out []Report
	if err := s.db.WithContext(ctx).Where(strings.Join(conds, " OR "), args...).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("reports within boxes: %w", err)
	}
	return out, nil
}

// MemoryReportStore is an in-process ReportStore for tests.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []Report
	// FailCreate, when set, is returned by Create.
	FailCreate error
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

var errDuplicateReport = errors.New("duplicate report id")

func (s *MemoryReportStore) Create(ctx context.Context, r *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	for _, existing := range s.reports {
		if existing.ID == r.ID {
			return errDuplicateReport
		}
	}
	s.reports = append(s.reports, *r)
	return nil
}

func (s *MemoryReportStore) ByUser(ctx context.Context, userID string) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []Report
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryReportStore) Recent(ctx context.Context, limit int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := append([]Report(nil), s.reports...)
	s.mu.RUnlock()
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryReportStore) WithinBoxes(ctx context.Context, boxes []geo.Box) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Report
	for _, r := range s.reports {
		if geo.AnyContains(boxes, r.Coordinate()) {
			out = append(out, r)
		}
	}
	return out, nil
}

func sortNewestFirst(rs []Report) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}
