// Package verify runs a verification end to end: pick the asset, apply the
// proximity gate, label the neighborhood, store the report and award the
// points, in that order.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/ledger"
	"github.com/StreetCred/SC-Backend/internal/metrics"
	"github.com/StreetCred/SC-Backend/internal/neighborhood"
)

const (
	DefaultSearchRadiusMeters = 200
	DefaultPointsPerReport    = 25

	ReasonTooFar = "too_far"
)

type AssetFinder interface {
	Nearest(ctx context.Context, center geo.Coordinate, radiusMeters float64, assetType assets.AssetType) (assets.Candidate, bool, error)
	Get(ctx context.Context, id string) (assets.Asset, error)
}

type Resolver interface {
	Resolve(ctx context.Context, c geo.Coordinate) neighborhood.Result
}

type Awarder interface {
	AwardPointsLabeled(ctx context.Context, userID string, points int64, neighborhood string) (ledger.AwardResult, error)
}

type Settings struct {
	SearchRadiusMeters float64
	PointsPerReport    int64
	StoreTimeout       time.Duration
}

type Service struct {
	assets   AssetFinder
	resolver Resolver
	ledger   Awarder
	reports  ReportStore
	settings Settings
	log      *zap.Logger
	now      func() time.Time
}

func NewService(finder AssetFinder, resolver Resolver, awarder Awarder, reports ReportStore, s Settings, log *zap.Logger) *Service {
	if s.SearchRadiusMeters <= 0 {
		s.SearchRadiusMeters = DefaultSearchRadiusMeters
	}
	if s.PointsPerReport <= 0 {
		s.PointsPerReport = DefaultPointsPerReport
	}
	return &Service{
		assets:   finder,
		resolver: resolver,
		ledger:   awarder,
		reports:  reports,
		settings: s,
		log:      log.Named("verify"),
		now:      time.Now,
	}
}

// Request is one verification submission.
type Request struct {
	UserID          string           `json:"userId" validate:"required,max=64"`
	Lat             *float64         `json:"lat" validate:"required,latitude"`
	Lng             *float64         `json:"lng" validate:"required,longitude"`
	AssetID         string           `json:"assetId" validate:"omitempty,max=64"`
	Type            assets.AssetType `json:"type"`
	ConditionRating int              `json:"conditionRating" validate:"gte=1,lte=10"`
	Functional      bool             `json:"functional"`
	Description     string           `json:"description" validate:"max=2000"`
	PhotoRef        string           `json:"photoRef" validate:"omitempty,max=512"`
	AccuracyMeters  *float64         `json:"accuracyMeters" validate:"omitempty,gte=0"`
}

// Outcome is returned for both accepted and rejected verifications.
type Outcome struct {
	Decision
	AssetID            string              `json:"assetId"`
	AssetType          assets.AssetType    `json:"assetType"`
	Neighborhood       string              `json:"neighborhood,omitempty"`
	NeighborhoodSource string              `json:"neighborhoodSource,omitempty"`
	ReportID           string              `json:"reportId,omitempty"`
	Award              *ledger.AwardResult `json:"award,omitempty"`
	Reason             string              `json:"reason,omitempty"`
	FeetToGo           float64             `json:"feetToGo,omitempty"`
}

// Verify runs the whole flow. A gate rejection is a normal Outcome with
// Allowed false, not an error.
func (s *Service) Verify(ctx context.Context, req Request) (Outcome, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.AssetID = strings.TrimSpace(req.AssetID)
	if req.Lat == nil || req.Lng == nil {
		return Outcome{}, apperr.Invalid("missing_coordinate", "lat and lng are required")
	}
	user := geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if err := user.Validate(); err != nil {
		return Outcome{}, apperr.InvalidWrap("invalid_coordinate", err)
	}
	if req.UserID == "" {
		return Outcome{}, apperr.Invalid("invalid_user", "userId is required")
	}
	if req.AssetID == "" && req.Type == "" {
		return Outcome{}, apperr.Invalid("missing_type", "type is required when assetId is not given")
	}
	if req.Type != "" && !req.Type.Valid() {
		return Outcome{}, apperr.Invalid("invalid_type", fmt.Sprintf("unknown asset type %q", req.Type))
	}

	// the label only depends on where the user stands, so it is looked up
	// while the asset search and gate run
	resolveCtx, cancelResolve := context.WithCancel(ctx)
	defer cancelResolve()
	labelCh := make(chan neighborhood.Result, 1)
	go func() {
		labelCh <- s.resolver.Resolve(resolveCtx, user)
	}()

	asset, err := s.pickAsset(ctx, user, req)
	if err != nil {
		return Outcome{}, err
	}

	dec := CanVerify(user, asset.Coordinate(), req.AccuracyMeters)
	out := Outcome{
		Decision:  dec,
		AssetID:   asset.ID,
		AssetType: asset.Type,
	}
	if !dec.Allowed {
		metrics.VerificationsTotal.WithLabelValues("rejected").Inc()
		out.Reason = ReasonTooFar
		out.FeetToGo = math.Ceil(dec.FeetToGo())
		s.log.Info("verification rejected",
			zap.String("user_id", req.UserID),
			zap.String("asset_id", asset.ID),
			zap.Float64("distance_ft", dec.DistanceFeet))
		return out, nil
	}

	var label neighborhood.Result
	select {
	case label = <-labelCh:
	case <-ctx.Done():
		return Outcome{}, apperr.Unavailable("request cancelled while resolving neighborhood", ctx.Err())
	}
	out.Neighborhood = label.Name
	out.NeighborhoodSource = label.Source

	assetID := asset.ID
	report := &Report{
		ID:              uuid.New(),
		UserID:          req.UserID,
		AssetID:         &assetID,
		Type:            asset.Type,
		Lat:             user.Lat,
		Lng:             user.Lng,
		ConditionRating: req.ConditionRating,
		Functional:      req.Functional,
		Description:     strings.TrimSpace(req.Description),
		PhotoRef:        req.PhotoRef,
		Neighborhood:    label.Name,
		AccuracyMeters:  req.AccuracyMeters,
		DistanceMeters:  dec.DistanceMeters,
		PointsAwarded:   s.settings.PointsPerReport,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.createReport(ctx, report); err != nil {
		return Outcome{}, err
	}
	out.ReportID = report.ID.String()

	// points go last so a failure here never leaves points without a report
	award, err := s.ledger.AwardPointsLabeled(ctx, req.UserID, s.settings.PointsPerReport, label.Name)
	if err != nil {
		s.log.Error("report stored but points not awarded",
			zap.String("report_id", out.ReportID),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return Outcome{}, err
	}
	out.Award = &award
	metrics.VerificationsTotal.WithLabelValues("accepted").Inc()
	s.log.Info("verification accepted",
		zap.String("user_id", req.UserID),
		zap.String("asset_id", asset.ID),
		zap.String("report_id", out.ReportID),
		zap.String("neighborhood", label.Name),
		zap.Float64("distance_m", dec.DistanceMeters))
	return out, nil
}

func (s *Service) pickAsset(ctx context.Context, user geo.Coordinate, req Request) (assets.Asset, error) {
	if req.AssetID != "" {
		a, err := s.assets.Get(ctx, req.AssetID)
		if err != nil {
			return assets.Asset{}, err
		}
		if req.Type != "" && a.Type != req.Type {
			return assets.Asset{}, apperr.Invalid("type_mismatch",
				fmt.Sprintf("asset %s is a %s, not a %s", a.ID, a.Type, req.Type))
		}
		return a, nil
	}

	c, ok, err := s.assets.Nearest(ctx, user, s.settings.SearchRadiusMeters, req.Type)
	if err != nil {
		return assets.Asset{}, err
	}
	if !ok {
		return assets.Asset{}, apperr.NotFound("no_asset_nearby",
			fmt.Sprintf("no %s within %.0f meters", req.Type.DisplayName(), s.settings.SearchRadiusMeters))
	}
	return c.Asset, nil
}

func (s *Service) createReport(ctx context.Context, r *Report) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.reports.Create(ctx, r); err != nil {
		return storeError("store report", err)
	}
	return nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.settings.StoreTimeout)
}

// UserReports lists a user's reports newest first.
func (s *Service) UserReports(ctx context.Context, userID string) ([]Report, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Invalid("invalid_user", "userId is required")
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	rs, err := s.reports.ByUser(ctx, userID)
	if err != nil {
		return nil, storeError("load reports", err)
	}
	return nonNil(rs), nil
}

// RecentReports lists the newest reports across all users.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]Report, error) {
	if limit < 1 || limit > 100 {
		return nil, apperr.Invalid("invalid_limit", "limit must be between 1 and 100")
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	rs, err := s.reports.Recent(ctx, limit)
	if err != nil {
		return nil, storeError("load reports", err)
	}
	return nonNil(rs), nil
}

// NearbyReport is a report with its distance from the query point.
type NearbyReport struct {
	Report
	QueryDistanceMeters float64 `json:"queryDistanceMeters"`
}

// NearbyReports lists reports within radiusMeters of center, nearest first.
func (s *Service) NearbyReports(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]NearbyReport, error) {
	if err := center.Validate(); err != nil {
		return nil, apperr.InvalidWrap("invalid_coordinate", err)
	}
	if radiusMeters < 0 {
		return nil, apperr.Invalid("invalid_radius", "radius must not be negative")
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	rows, err := s.reports.WithinBoxes(ctx, geo.Bounds(center, radiusMeters))
	if err != nil {
		return nil, storeError("nearby reports", err)
	}
	out := make([]NearbyReport, 0, len(rows))
	for _, r := range rows {
		if d := geo.Distance(center, r.Coordinate()); d <= radiusMeters {
			out = append(out, NearbyReport{Report: r, QueryDistanceMeters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QueryDistanceMeters < out[j].QueryDistanceMeters })
	return out, nil
}

func nonNil(rs []Report) []Report {
	if rs == nil {
		return []Report{}
	}
	return rs
}

func storeError(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if db.IsTransient(err) {
		return apperr.Unavailable(op+" timed out or lost its connection", err)
	}
	return apperr.Internal(op+" failed", err)
}
