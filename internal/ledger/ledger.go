// Package ledger owns user point totals and milestone badges. Every award
// runs as one per-user transaction, so concurrent awards add up and a badge
// is never issued twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/metrics"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxRetries = 4
	reconcileBatch    = 500
)

// Locator names the neighborhood recorded on new badges. A false ok leaves
// the label blank.
type Locator interface {
	Lookup(ctx context.Context, c geo.Coordinate) (string, bool)
}

type Ledger struct {
	store      Store
	milestones *Milestones
	locator    Locator
	log        *zap.Logger
	timeout    time.Duration
	maxRetries uint64
	backOff    func() backoff.BackOff
}

type Option func(*Ledger)

func WithLocator(l Locator) Option { return func(lg *Ledger) { lg.locator = l } }

// WithTimeout bounds each store transaction, retries included.
func WithTimeout(d time.Duration) Option { return func(lg *Ledger) { lg.timeout = d } }

func WithRetries(n uint64) Option { return func(lg *Ledger) { lg.maxRetries = n } }

// WithBackOff replaces the exponential policy between retries.
func WithBackOff(fn func() backoff.BackOff) Option { return func(lg *Ledger) { lg.backOff = fn } }

func New(store Store, milestones *Milestones, log *zap.Logger, opts ...Option) *Ledger {
	lg := &Ledger{
		store:      store,
		milestones: milestones,
		log:        log.Named("ledger"),
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
	for _, o := range opts {
		o(lg)
	}
	return lg
}

func (l *Ledger) Milestones() *Milestones { return l.milestones }

// AwardResult describes one committed award.
type AwardResult struct {
	UserID            string        `json:"userId"`
	PreviousPoints    int64         `json:"previousPoints"`
	NewTotal          int64         `json:"newTotal"`
	PointsAdded       int64         `json:"pointsAdded"`
	NewlyEarnedBadges []EarnedBadge `json:"newlyEarnedBadges"`
	NextMilestone     *int64        `json:"nextMilestone"`
	Neighborhood      string        `json:"neighborhood,omitempty"`
}

// AwardPoints adds points to userID and issues a badge for every milestone
// m with previous < m <= new total. The coordinate is resolved to a
// neighborhood label for the new badges when a Locator is configured.
func (l *Ledger) AwardPoints(ctx context.Context, userID string, points int64, at geo.Coordinate) (AwardResult, error) {
	var label string
	if l.locator != nil && at.Validate() == nil {
		label, _ = l.locator.Lookup(ctx, at)
	}
	return l.AwardPointsLabeled(ctx, userID, points, label)
}

// AwardPointsLabeled is AwardPoints for a caller that already knows the
// neighborhood (possibly blank).
func (l *Ledger) AwardPointsLabeled(ctx context.Context, userID string, points int64, neighborhood string) (AwardResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return AwardResult{}, apperr.Invalid("invalid_user", "userId is required")
	}
	if points <= 0 {
		return AwardResult{}, apperr.Invalid("invalid_points", fmt.Sprintf("points must be positive, got %d", points))
	}

	var res AwardResult
	err := l.withRetry(ctx, "award", userID, func(ctx context.Context) error {
		return l.store.WithUser(ctx, userID, func(tx UserTx) error {
			// reset on every attempt, a retried transaction starts clean
			res = AwardResult{
				UserID:            userID,
				PreviousPoints:    tx.Points(),
				NewTotal:          tx.Points() + points,
				PointsAdded:       points,
				NewlyEarnedBadges: []EarnedBadge{},
				Neighborhood:      neighborhood,
			}
			for _, m := range l.milestones.Crossed(res.PreviousPoints, res.NewTotal) {
				inserted, err := tx.InsertBadge(UserBadge{
					BadgeID:      m.BadgeID,
					Milestone:    m.Points,
					Neighborhood: neighborhood,
				})
				if err != nil {
					return err
				}
				if inserted {
					res.NewlyEarnedBadges = append(res.NewlyEarnedBadges, EarnedBadge{BadgeID: m.BadgeID, Milestone: m.Points, Name: m.Name})
				}
			}
			return tx.SetPoints(res.NewTotal)
		})
	})
	if err != nil {
		return AwardResult{}, err
	}

	if next, ok := l.milestones.Next(res.NewTotal); ok {
		res.NextMilestone = &next.Points
	}
	metrics.PointsAwardedTotal.Add(float64(points))
	metrics.BadgesIssuedTotal.Add(float64(len(res.NewlyEarnedBadges)))
	l.log.Info("points awarded",
		zap.String("user_id", userID),
		zap.Int64("previous", res.PreviousPoints),
		zap.Int64("total", res.NewTotal),
		zap.Int("new_badges", len(res.NewlyEarnedBadges)))
	return res, nil
}

// Reconcile issues every badge whose milestone is at or below the user's
// current total but which has no row yet, and returns what it inserted.
// It repairs totals that were written without their badges.
func (l *Ledger) Reconcile(ctx context.Context, userID string) ([]EarnedBadge, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Invalid("invalid_user", "userId is required")
	}

	var added []EarnedBadge
	err := l.withRetry(ctx, "reconcile", userID, func(ctx context.Context) error {
		return l.store.WithUser(ctx, userID, func(tx UserTx) error {
			added = []EarnedBadge{}
			have, err := tx.BadgeIDs()
			if err != nil {
				return err
			}
			for _, m := range l.milestones.Reached(tx.Points()) {
				if have[m.BadgeID] {
					continue
				}
				inserted, err := tx.InsertBadge(UserBadge{BadgeID: m.BadgeID, Milestone: m.Points})
				if err != nil {
					return err
				}
				if inserted {
					added = append(added, EarnedBadge{BadgeID: m.BadgeID, Milestone: m.Points, Name: m.Name})
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		metrics.BadgesIssuedTotal.Add(float64(len(added)))
		l.log.Info("badges reconciled", zap.String("user_id", userID), zap.Int("added", len(added)))
	}
	return added, nil
}

// ReconcileAll walks every user with a score and reconciles each one.
// A failure for one user is logged and counted, not fatal.
func (l *Ledger) ReconcileAll(ctx context.Context) (users, added, failed int, err error) {
	after := ""
	for {
		ids, err := l.store.UserIDs(ctx, after, reconcileBatch)
		if err != nil {
			return users, added, failed, storeError("list users", err)
		}
		if len(ids) == 0 {
			return users, added, failed, nil
		}
		for _, id := range ids {
			users++
			badges, err := l.Reconcile(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return users, added, failed, ctx.Err()
				}
				failed++
				l.log.Warn("reconcile failed", zap.String("user_id", id), zap.Error(err))
				continue
			}
			added += len(badges)
		}
		after = ids[len(ids)-1]
	}
}

// Progress reports how far a user is from the next milestone. An unknown
// user has zero points.
type Progress struct {
	UserID            string  `json:"userId"`
	CurrentPoints     int64   `json:"currentPoints"`
	NextMilestone     *int64  `json:"nextMilestone"`
	PointsRemaining   int64   `json:"pointsRemaining"`
	TotalBadges       int     `json:"totalBadges"`
	MilestonesReached int     `json:"milestonesReached"`
	ProgressPercent   float64 `json:"progressPercent"`
}

func (l *Ledger) Progress(ctx context.Context, userID string) (Progress, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Progress{}, apperr.Invalid("invalid_user", "userId is required")
	}
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	points, err := l.store.Score(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoUser) {
		return Progress{}, storeError("load score", err)
	}
	badges, err := l.store.Badges(ctx, userID)
	if err != nil {
		return Progress{}, storeError("load badges", err)
	}

	p := Progress{
		UserID:            userID,
		CurrentPoints:     points,
		TotalBadges:       len(badges),
		MilestonesReached: len(l.milestones.Reached(points)),
		ProgressPercent:   100,
	}
	if next, ok := l.milestones.Next(points); ok {
		p.NextMilestone = &next.Points
		p.PointsRemaining = next.Points - points
		prev := l.milestones.previous(points)
		p.ProgressPercent = float64(points-prev) / float64(next.Points-prev) * 100
	}
	return p, nil
}

// MaxLeaderboard caps one leaderboard page.
const MaxLeaderboard = 100

// Standing is one leaderboard row. Equal totals share a rank and the next
// rank skips accordingly (1, 1, 3).
type Standing struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Points int64  `json:"points"`
}

// Leaderboard lists the top limit users by points.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit < 1 || limit > MaxLeaderboard {
		return nil, apperr.Invalid("invalid_limit", fmt.Sprintf("limit must be between 1 and %d", MaxLeaderboard))
	}
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	rows, err := l.store.Top(ctx, limit)
	if err != nil {
		return nil, storeError("load leaderboard", err)
	}
	out := make([]Standing, 0, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && r.Points == rows[i-1].Points {
			rank = out[i-1].Rank
		}
		out = append(out, Standing{Rank: rank, UserID: r.UserID, Points: r.Points})
	}
	return out, nil
}

// Badges lists a user's earned badges by ascending milestone.
func (l *Ledger) Badges(ctx context.Context, userID string) ([]UserBadge, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Invalid("invalid_user", "userId is required")
	}
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	badges, err := l.store.Badges(ctx, userID)
	if err != nil {
		return nil, storeError("load badges", err)
	}
	if badges == nil {
		badges = []UserBadge{}
	}
	return badges, nil
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// withRetry runs op until it succeeds, fails permanently, or the retry
// budget or timeout runs out. Only errors that guarantee nothing committed
// are replayed; a lost connection surfaces as Unavailable instead.
func (l *Ledger) withRetry(ctx context.Context, op, userID string, fn func(ctx context.Context) error) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	operation := func() error {
		err := fn(ctx)
		if err == nil || db.IsSafeToReplay(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(l.backOff(), l.maxRetries), ctx),
		func(err error, d time.Duration) {
			metrics.LedgerRetriesTotal.Inc()
			l.log.Warn("ledger transaction retry",
				zap.String("op", op),
				zap.String("user_id", userID),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		return storeError(op, err)
	}
	return nil
}

func storeError(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if db.IsTransient(err) {
		return apperr.Unavailable(op+" could not complete, try again", err)
	}
	return apperr.Internal(op+" failed", err)
}
