package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// AnalysisStore defines the read operations the aggregator needs.
type AnalysisStore interface {
	ListAnalysesSince(ctx context.Context, userID string, since time.Time) ([]*models.Analysis, error)
}

// Cache caches computed stats. A nil Cache disables caching.
type Cache interface {
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	SetUserStats(ctx context.Context, userID string, stats *models.UserStats, ttl time.Duration) error
	DeleteUserStats(ctx context.Context, userID string) error
}

// Service derives display stats from a user's analysis history for the
// current calendar month. Read-only; it never feeds back into admission.
type Service struct {
	analyses AnalysisStore
	cache    Cache
	cacheTTL time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

// NewService creates a stats service. cache may be nil.
func NewService(analyses AnalysisStore, cache Cache, cacheTTL time.Duration, logger *logging.Logger) *Service {
	return &Service{
		analyses: analyses,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// UserStats computes this month's analysis count, rounded average overall
// score (0 with no records) and the number of distinct non-empty candidate
// emails.
func (s *Service) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	if s.cache != nil {
		cached, err := s.cache.GetUserStats(ctx, userID)
		if err != nil {
			// A broken cache degrades to a recompute.
			s.logger.WithUserID(userID).WithError(err).Warn("Stats cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	analyses, err := s.analyses.ListAnalysesSince(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis history: %w", err)
	}

	stats := aggregate(analyses)

	if s.cache != nil {
		if err := s.cache.SetUserStats(ctx, userID, stats, s.cacheTTL); err != nil {
			s.logger.WithUserID(userID).WithError(err).Warn("Stats cache write failed")
		}
	}

	return stats, nil
}

// Invalidate drops a user's cached stats after a new analysis lands.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteUserStats(ctx, userID); err != nil {
		s.logger.WithUserID(userID).WithError(err).Warn("Stats cache invalidation failed")
	}
}

func aggregate(analyses []*models.Analysis) *models.UserStats {
	count := len(analyses)

	avg := 0
	if count > 0 {
		sum := 0
		for _, a := range analyses {
			sum += a.MatchScore
		}
		avg = int(math.Round(float64(sum) / float64(count)))
	}

	emails := make(map[string]struct{})
	for _, a := range analyses {
		if a.CandidateEmail != "" {
			emails[a.CandidateEmail] = struct{}{}
		}
	}

	return &models.UserStats{
		MonthlyAnalyses:   count,
		AvgMatchScore:     avg,
		MessagesGenerated: count,
		ActiveCandidates:  len(emails),
	}
}
