package scoring

import (
	"fmt"
	"strings"

	"github.com/Jashneer/HireIQ/pkg/models"
)

// FallbackScore returns the deterministic neutral assessment callers may use
// when the engine is unavailable. Whether to fall back is the caller's policy.
func FallbackScore() *models.ScoreResult {
	return &models.ScoreResult{
		MatchingSkills:  []string{},
		MissingSkills:   []string{},
		TechnicalScore:  50,
		ExperienceScore: 50,
		DomainScore:     50,
		OverallScore:    50,
	}
}

// FallbackDraft returns a templated outreach message built from the request
// alone, used when the engine is unavailable.
func FallbackDraft(req models.DraftRequest) *models.DraftResult {
	name := req.CandidateName
	if name == "" {
		name = "[Candidate Name]"
	}

	skills := strings.Join(req.MatchingSkills, ", ")
	if skills == "" {
		skills = "your field"
	}

	message := fmt.Sprintf(
		"Hi %s,\n\nI came across your profile and was impressed by your experience with %s. "+
			"Your background seems like a great fit for our %s role at %s.\n\n"+
			"I'd love to schedule a brief call to discuss this opportunity further. "+
			"Are you available for a 15-minute conversation this week?\n\nBest regards,\n[Your Name]",
		name, skills, req.JobTitle, req.CompanyName,
	)

	return &models.DraftResult{
		Message: message,
		ImprovementSuggestions: []string{
			"Consider gaining more experience in emerging technologies",
			"Strengthen your portfolio with recent projects",
			"Develop leadership and communication skills",
		},
	}
}
