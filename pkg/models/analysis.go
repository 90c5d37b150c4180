package models

import (
	"time"
)

// Outreach tones accepted by the draft generator.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneEnthusiastic = "enthusiastic"
	ToneDirect       = "direct"
)

// AnalysisInput is the snapshot of a single analysis request.
type AnalysisInput struct {
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	JobTitle       string `json:"job_title"`
	CompanyName    string `json:"company_name"`
	JobDescription string `json:"job_description"`
	ResumeText     string `json:"resume_text"`
	OutreachTone   string `json:"outreach_tone"`
}

// ScoreResult holds the structured output of a resume-vs-job assessment.
// Scores are on a 0-100 scale.
type ScoreResult struct {
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
	TechnicalScore  int      `json:"technical_score"`
	ExperienceScore int      `json:"experience_score"`
	DomainScore     int      `json:"domain_score"`
	OverallScore    int      `json:"overall_score"`
}

// DraftRequest carries the context for generating an outreach message.
type DraftRequest struct {
	CandidateName  string
	JobTitle       string
	CompanyName    string
	MatchingSkills []string
	Tone           string
	OverallScore   int
}

// DraftResult holds a generated outreach message and follow-up suggestions.
type DraftResult struct {
	Message                string   `json:"message"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

// Analysis is a persisted analysis record. Immutable once created.
type Analysis struct {
	ID                     string    `json:"id" db:"id"`
	UserID                 string    `json:"user_id" db:"user_id"`
	CandidateName          string    `json:"candidate_name" db:"candidate_name"`
	CandidateEmail         string    `json:"candidate_email" db:"candidate_email"`
	JobTitle               string    `json:"job_title" db:"job_title"`
	CompanyName            string    `json:"company_name" db:"company_name"`
	JobDescription         string    `json:"job_description" db:"job_description"`
	ResumeText             string    `json:"resume_text" db:"resume_text"`
	OutreachTone           string    `json:"outreach_tone" db:"outreach_tone"`
	MatchScore             int       `json:"match_score" db:"match_score"`
	TechnicalScore         int       `json:"technical_score" db:"technical_score"`
	ExperienceScore        int       `json:"experience_score" db:"experience_score"`
	DomainScore            int       `json:"domain_score" db:"domain_score"`
	MatchingSkills         []string  `json:"matching_skills" db:"matching_skills"`
	MissingSkills          []string  `json:"missing_skills" db:"missing_skills"`
	OutreachMessage        string    `json:"outreach_message" db:"outreach_message"`
	ImprovementSuggestions []string  `json:"improvement_suggestions" db:"improvement_suggestions"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}
