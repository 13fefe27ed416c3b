package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore serializes per-user work with SELECT ... FOR UPDATE on the
// user's score row inside a gorm transaction.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(d *gorm.DB) *PostgresStore {
	return &PostgresStore{db: d}
}

func (s *PostgresStore) WithUser(ctx context.Context, userID string, fn func(tx UserTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// first writer creates the row, everyone else finds it
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&UserScore{UserID: userID}).Error; err != nil {
			return fmt.Errorf("create score row: %w", err)
		}

		var score UserScore
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&score).Error; err != nil {
			return fmt.Errorf("lock score row: %w", err)
		}
		return fn(&pgUserTx{tx: tx, userID: userID, points: score.Points})
	})
}

func (s *PostgresStore) Score(ctx context.Context, userID string) (int64, error) {
	var score UserScore
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNoUser
	}
	if err != nil {
		return 0, fmt.Errorf("load score: %w", err)
	}
	return score.Points, nil
}

func (s *PostgresStore) Badges(ctx context.Context, userID string) ([]UserBadge, error) {
	var out []UserBadge
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("milestone ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UserIDs(ctx context.Context, after string, limit int) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&UserScore{}).
		Where("user_id > ?", after).
		Order("user_id ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Top(ctx context.Context, limit int) ([]UserScore, error) {
	var out []UserScore
	if err := s.db.WithContext(ctx).
		Order("points DESC, user_id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return out, nil
}

type pgUserTx struct {
	tx     *gorm.DB
	userID string
	points int64
}

func (t *pgUserTx) Points() int64 { return t.points }

func (t *pgUserTx) SetPoints(points int64) error {
	if err := t.tx.Model(&UserScore{}).
		Where("user_id = ?", t.userID).
		Update("points", points).Error; err != nil {
		return fmt.Errorf("update points: %w", err)
	}
	t.points = points
	return nil
}

func (t *pgUserTx) InsertBadge(b UserBadge) (bool, error) {
	b.UserID = t.userID
	res := t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&b)
	if res.Error != nil {
		return false, fmt.Errorf("insert badge %s: %w", b.BadgeID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *pgUserTx) BadgeIDs() (map[string]bool, error) {
	var ids []string
	if err := t.tx.Model(&UserBadge{}).
		Where("user_id = ?", t.userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load badge ids: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
