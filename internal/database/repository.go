package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Jashneer/HireIQ/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var (
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned when a conditional write loses a race with a
	// concurrent writer.
	ErrStale = errors.New("concurrent modification")
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Users

const userColumns = `id, email, password_hash, first_name, last_name, plan,
       payment_customer_id, subscription_status, usage_count, usage_reset_date,
       created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Plan, &user.PaymentCustomerID, &user.SubscriptionStatus,
		&user.UsageCount, &user.UsageResetDate, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// CreateUser creates a new user record
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, plan,
		                   payment_customer_id, subscription_status, usage_count, usage_reset_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Plan, user.PaymentCustomerID, user.SubscriptionStatus,
		user.UsageCount, user.UsageResetDate,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, email))
}

// GetUserByCustomerID retrieves a user by payment provider customer ID
func (r *Repository) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE payment_customer_id = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, customerID))
}

// UpdateEntitlement sets a user's plan and subscription status
func (r *Repository) UpdateEntitlement(ctx context.Context, userID, plan, status string) error {
	query := `
		UPDATE users
		SET plan = $2, subscription_status = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, plan, status)
	if err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetPaymentCustomerID associates a payment provider customer with a user
func (r *Repository) SetPaymentCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE users SET payment_customer_id = $2, updated_at = now() WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, userID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set payment customer id: %w", err)
	}

	return nil
}

// ChargeUsage persists a usage commit only while the row still carries the
// plan and count the admission decision was made against. The conditional
// write serializes charges against entitlement updates landing from the
// worker process; a lost race surfaces as ErrStale so the caller can reload
// and decide again.
func (r *Repository) ChargeUsage(ctx context.Context, userID string, count int, resetAt time.Time, expectedPlan string, expectedCount int) error {
	query := `
		UPDATE users
		SET usage_count = $2, usage_reset_date = $3, updated_at = now()
		WHERE id = $1 AND plan = $4 AND usage_count = $5
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, count, resetAt, expectedPlan, expectedCount)
	if err != nil {
		return fmt.Errorf("failed to charge usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	return nil
}

// Analyses

// CreateAnalysis creates a new analysis record
func (r *Repository) CreateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}

	query := `
		INSERT INTO analyses (id, user_id, candidate_name, candidate_email, job_title,
		                      company_name, job_description, resume_text, outreach_tone,
		                      match_score, technical_score, experience_score, domain_score,
		                      matching_skills, missing_skills, outreach_message, improvement_suggestions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		analysis.ID, analysis.UserID, analysis.CandidateName, analysis.CandidateEmail,
		analysis.JobTitle, analysis.CompanyName, analysis.JobDescription, analysis.ResumeText,
		analysis.OutreachTone, analysis.MatchScore, analysis.TechnicalScore,
		analysis.ExperienceScore, analysis.DomainScore, analysis.MatchingSkills,
		analysis.MissingSkills, analysis.OutreachMessage, analysis.ImprovementSuggestions,
	).Scan(&analysis.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

const analysisColumns = `id, user_id, candidate_name, candidate_email, job_title,
       company_name, job_description, resume_text, outreach_tone, match_score,
       technical_score, experience_score, domain_score, matching_skills,
       missing_skills, outreach_message, improvement_suggestions, created_at`

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	err := row.Scan(
		&a.ID, &a.UserID, &a.CandidateName, &a.CandidateEmail, &a.JobTitle,
		&a.CompanyName, &a.JobDescription, &a.ResumeText, &a.OutreachTone,
		&a.MatchScore, &a.TechnicalScore, &a.ExperienceScore, &a.DomainScore,
		&a.MatchingSkills, &a.MissingSkills, &a.OutreachMessage,
		&a.ImprovementSuggestions, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	return &a, nil
}

// GetAnalysis retrieves an analysis by ID
func (r *Repository) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	return scanAnalysis(r.db.Pool.QueryRow(ctx, query, id))
}

// ListAnalyses retrieves a user's analyses, newest first
func (r *Repository) ListAnalyses(ctx context.Context, userID string, limit int) ([]*models.Analysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, nil
}

// ListAnalysesSince retrieves a user's analyses created at or after the given time
func (r *Repository) ListAnalysesSince(ctx context.Context, userID string, since time.Time) ([]*models.Analysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, nil
}
