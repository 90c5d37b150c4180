package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Jashneer/HireIQ/pkg/models"
)

// extractJSON strips markdown code fences the model sometimes wraps its
// output in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// clampScore coerces a JSON number into the 0-100 integer scale.
func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	score := int(math.Round(v))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func parseScoreResult(raw string) (*models.ScoreResult, error) {
	var payload struct {
		MatchingSkills  []string `json:"matching_skills"`
		MissingSkills   []string `json:"missing_skills"`
		TechnicalScore  float64  `json:"technical_score"`
		ExperienceScore float64  `json:"experience_score"`
		DomainScore     float64  `json:"domain_score"`
		OverallScore    float64  `json:"overall_score"`
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse assessment response: %w", err)
	}

	result := &models.ScoreResult{
		MatchingSkills:  payload.MatchingSkills,
		MissingSkills:   payload.MissingSkills,
		TechnicalScore:  clampScore(payload.TechnicalScore),
		ExperienceScore: clampScore(payload.ExperienceScore),
		DomainScore:     clampScore(payload.DomainScore),
		OverallScore:    clampScore(payload.OverallScore),
	}

	if result.MatchingSkills == nil {
		result.MatchingSkills = []string{}
	}
	if result.MissingSkills == nil {
		result.MissingSkills = []string{}
	}

	return result, nil
}

func parseDraftResult(raw string) (*models.DraftResult, error) {
	var payload struct {
		Message                string   `json:"message"`
		ImprovementSuggestions []string `json:"improvement_suggestions"`
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse draft response: %w", err)
	}

	if strings.TrimSpace(payload.Message) == "" {
		return nil, errors.New("draft response has no message")
	}

	if payload.ImprovementSuggestions == nil {
		payload.ImprovementSuggestions = []string{}
	}

	return &models.DraftResult{
		Message:                payload.Message,
		ImprovementSuggestions: payload.ImprovementSuggestions,
	}, nil
}
