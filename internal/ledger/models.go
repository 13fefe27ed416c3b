package ledger

import (
	"time"

	"github.com/StreetCred/SC-Backend/internal/db"
)

// UserScore is the running point total of one user.
type UserScore struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Points    int64     `gorm:"not null;default:0;check:points >= 0;index:idx_user_scores_points" json:"points"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserScore) TableName() string { return db.Schema + ".user_scores" }

// UserBadge records a milestone crossing. (UserID, BadgeID) is unique, so a
// badge is issued at most once per user however many times an award or a
// reconcile replays.
type UserBadge struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"size:64;not null;uniqueIndex:idx_user_badges_user_badge,priority:1" json:"userId"`
	BadgeID      string    `gorm:"size:128;not null;uniqueIndex:idx_user_badges_user_badge,priority:2" json:"badgeId"`
	Milestone    int64     `gorm:"not null" json:"milestone"`
	Neighborhood string    `gorm:"size:128" json:"neighborhood,omitempty"`
	EarnedAt     time.Time `gorm:"not null;autoCreateTime" json:"earnedAt"`
}

func (UserBadge) TableName() string { return db.Schema + ".user_badges" }

// EarnedBadge is the {badgeId, milestone} pair returned to callers.
type EarnedBadge struct {
	BadgeID   string `json:"badgeId"`
	Milestone int64  `json:"milestone"`
	Name      string `json:"name,omitempty"`
}
