package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/internal/metrics"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/internal/scoring"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// UserStore defines the user persistence operations the gate needs.
// ChargeUsage must apply only while the row still carries expectedPlan and
// expectedCount, returning database.ErrStale otherwise, so a charge can
// never land over an entitlement update from another process.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ChargeUsage(ctx context.Context, userID string, count int, resetAt time.Time, expectedPlan string, expectedCount int) error
}

// AnalysisStore defines the analysis persistence operations the gate needs.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, analysis *models.Analysis) error
}

// Scorer is the external scoring engine: either a fully structured result or
// a failure, never partial output.
type Scorer interface {
	Assess(ctx context.Context, resumeText, jobDescription string) (*models.ScoreResult, error)
	Draft(ctx context.Context, req models.DraftRequest) (*models.DraftResult, error)
}

// Gate wraps the scoring call in the quota check-then-commit protocol. The
// per-user lock is held for the check and for the commit but never across
// the scoring call, and admission is re-validated at commit time so an
// entitlement downgrade landing mid-flight still takes effect.
type Gate struct {
	users    UserStore
	analyses AnalysisStore
	scorer   Scorer
	ledger   *quota.Ledger
	locks    *quota.LockRegistry
	logger   *logging.Logger
	now      func() time.Time
}

// NewGate creates an admission gate.
func NewGate(users UserStore, analyses AnalysisStore, scorer Scorer, ledger *quota.Ledger, locks *quota.LockRegistry, logger *logging.Logger) *Gate {
	return &Gate{
		users:    users,
		analyses: analyses,
		scorer:   scorer,
		ledger:   ledger,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}
}

// Run admits and executes one analysis request. On rejection it returns a
// *quota.ExceededError without touching any state; on scoring failure it
// returns a *scoring.UnavailableError, again without touching state. Only a
// fully successful run persists an analysis record and charges usage.
func (g *Gate) Run(ctx context.Context, userID string, input *models.AnalysisInput) (*models.Analysis, error) {
	if _, err := g.check(ctx, userID); err != nil {
		return nil, err
	}

	score, draft, err := g.invokeScorer(ctx, input)
	if err != nil {
		// The engine failed; ledger and history stay untouched.
		return nil, scoring.Unavailable(err)
	}

	return g.commit(ctx, userID, input, score, draft)
}

// check runs the admission decision under the user's lock.
func (g *Gate) check(ctx context.Context, userID string) (quota.Decision, error) {
	g.locks.Lock(userID)
	defer g.locks.Unlock(userID)

	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("failed to load user: %w", err)
	}

	decision := g.ledger.Check(user, g.now())
	g.logger.LogAdmission(userID, decision.Plan, decision.Admitted, decision.EffectiveCount)

	if !decision.Admitted {
		metrics.QuotaRejectionsTotal.WithLabelValues(decision.Plan).Inc()
		return decision, &quota.ExceededError{Plan: decision.Plan, Quota: decision.Quota}
	}

	return decision, nil
}

// invokeScorer runs the assessment and draft outside the per-user lock.
func (g *Gate) invokeScorer(ctx context.Context, input *models.AnalysisInput) (*models.ScoreResult, *models.DraftResult, error) {
	metrics.ScoringRequestsTotal.Inc()
	start := time.Now()

	score, err := g.scorer.Assess(ctx, input.ResumeText, input.JobDescription)
	if err != nil {
		metrics.ScoringFailuresTotal.Inc()
		return nil, nil, err
	}

	draft, err := g.scorer.Draft(ctx, models.DraftRequest{
		CandidateName:  input.CandidateName,
		JobTitle:       input.JobTitle,
		CompanyName:    input.CompanyName,
		MatchingSkills: score.MatchingSkills,
		Tone:           input.OutreachTone,
		OverallScore:   score.OverallScore,
	})
	if err != nil {
		metrics.ScoringFailuresTotal.Inc()
		return nil, nil, err
	}

	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	return score, draft, nil
}

// maxChargeAttempts bounds retries when the usage charge loses a race
// against a writer in another process.
const maxChargeAttempts = 3

// commit re-validates admission under the lock, persists the record, then
// charges usage. The record is persisted before the usage commit so a
// failure between the two under-counts instead of silently locking the user
// out for work that completed. The charge is a compare-and-swap on the
// plan and count the decision saw; losing that race forces a fresh reload
// and re-check, so an entitlement update from another process cannot be
// overwritten or bypassed.
func (g *Gate) commit(ctx context.Context, userID string, input *models.AnalysisInput, score *models.ScoreResult, draft *models.DraftResult) (*models.Analysis, error) {
	g.locks.Lock(userID)
	defer g.locks.Unlock(userID)

	var analysis *models.Analysis

	for attempt := 0; attempt < maxChargeAttempts; attempt++ {
		user, err := g.users.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}

		now := g.now()

		// An entitlement downgrade may have landed while the engine ran.
		decision := g.ledger.Check(user, now)
		if !decision.Admitted {
			if analysis == nil {
				metrics.QuotaRejectionsTotal.WithLabelValues(decision.Plan).Inc()
				return nil, &quota.ExceededError{Plan: decision.Plan, Quota: decision.Quota}
			}
			// The record already persisted and the entitlement shrank while
			// the charge was in flight. Keep the result, charge nothing.
			metrics.InconsistentCommitsTotal.Inc()
			g.logger.WithUserID(userID).WithAnalysisID(analysis.ID).
				Warn("Entitlement shrank during usage charge, result kept uncharged")
			return analysis, nil
		}

		if analysis == nil {
			analysis = newAnalysis(userID, input, score, draft, now)
			if err := g.analyses.CreateAnalysis(ctx, analysis); err != nil {
				return nil, fmt.Errorf("failed to persist analysis: %w", err)
			}
			metrics.AnalysesCreatedTotal.WithLabelValues(decision.Plan).Inc()
		}

		expectedPlan, expectedCount := user.Plan, user.UsageCount
		g.ledger.Commit(user, now)

		err = g.users.ChargeUsage(ctx, userID, user.UsageCount, user.UsageResetDate, expectedPlan, expectedCount)
		if err == nil {
			return analysis, nil
		}
		if errors.Is(err, database.ErrStale) {
			// The row moved since the reload; read it again and decide anew.
			continue
		}

		// Record exists but the charge did not land. Prefer under-counting:
		// the request still succeeds and the miss is observable.
		metrics.InconsistentCommitsTotal.Inc()
		g.logger.WithUserID(userID).WithAnalysisID(analysis.ID).
			ErrorWithErr("Usage commit failed after analysis persisted", err)
		return analysis, nil
	}

	metrics.InconsistentCommitsTotal.Inc()
	g.logger.WithUserID(userID).WithAnalysisID(analysis.ID).
		Error("Usage charge kept losing races, result kept uncharged")
	return analysis, nil
}

func newAnalysis(userID string, input *models.AnalysisInput, score *models.ScoreResult, draft *models.DraftResult, now time.Time) *models.Analysis {
	return &models.Analysis{
		ID:                     uuid.New().String(),
		UserID:                 userID,
		CandidateName:          input.CandidateName,
		CandidateEmail:         input.CandidateEmail,
		JobTitle:               input.JobTitle,
		CompanyName:            input.CompanyName,
		JobDescription:         input.JobDescription,
		ResumeText:             input.ResumeText,
		OutreachTone:           input.OutreachTone,
		MatchScore:             score.OverallScore,
		TechnicalScore:         score.TechnicalScore,
		ExperienceScore:        score.ExperienceScore,
		DomainScore:            score.DomainScore,
		MatchingSkills:         score.MatchingSkills,
		MissingSkills:          score.MissingSkills,
		OutreachMessage:        draft.Message,
		ImprovementSuggestions: draft.ImprovementSuggestions,
		CreatedAt:              now,
	}
}
