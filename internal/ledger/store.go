package ledger

import (
	"context"
	"errors"
)

// ErrNoUser is returned by Store.Score for a user with no score row.
var ErrNoUser = errors.New("user has no score")

// Store persists scores and badges. WithUser is the unit of atomicity: fn
// runs with exclusive access to one user's score and every write made
// through tx commits or rolls back together. Calls for different users
// never wait on each other.
type Store interface {
	WithUser(ctx context.Context, userID string, fn func(tx UserTx) error) error
	Score(ctx context.Context, userID string) (int64, error)
	Badges(ctx context.Context, userID string) ([]UserBadge, error)
	UserIDs(ctx context.Context, after string, limit int) ([]string, error)
	// Top lists the highest scores, ties broken by user id ascending.
	Top(ctx context.Context, limit int) ([]UserScore, error)
}

// UserTx is the view of one locked user inside WithUser.
type UserTx interface {
	// Points is the total as of the lock, zero for a new user.
	Points() int64
	SetPoints(points int64) error
	// InsertBadge adds b unless (UserID, BadgeID) exists; inserted reports
	// which happened.
	InsertBadge(b UserBadge) (inserted bool, err error)
	BadgeIDs() (map[string]bool, error)
}
