package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// stubGenerator returns a canned response or error.
type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func newStubEngine(response string, err error) *Engine {
	logger, _ := logging.NewDefaultLogger()
	return &Engine{
		gen:    &stubGenerator{response: response, err: err},
		logger: logger,
	}
}

func TestExtractJSON(t *testing.T) {
	plain := `{"overall_score": 80}`
	assert.Equal(t, plain, extractJSON(plain))

	fenced := "```json\n{\"overall_score\": 80}\n```"
	assert.Equal(t, `{"overall_score": 80}`, extractJSON(fenced))

	fencedNoLang := "```\n{\"overall_score\": 80}\n```"
	assert.Equal(t, `{"overall_score": 80}`, extractJSON(fencedNoLang))

	padded := "\n\n  {\"overall_score\": 80}  \n"
	assert.Equal(t, `{"overall_score": 80}`, extractJSON(padded))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 0, clampScore(0))
	assert.Equal(t, 72, clampScore(72.4))
	assert.Equal(t, 73, clampScore(72.5))
	assert.Equal(t, 100, clampScore(100))
	assert.Equal(t, 100, clampScore(250))
}

func TestParseScoreResult(t *testing.T) {
	raw := "```json\n" + `{
		"matching_skills": ["Go", "Postgres"],
		"missing_skills": ["Kubernetes"],
		"technical_score": 85,
		"experience_score": 70.6,
		"domain_score": 60,
		"overall_score": 75
	}` + "\n```"

	result, err := parseScoreResult(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Postgres"}, result.MatchingSkills)
	assert.Equal(t, []string{"Kubernetes"}, result.MissingSkills)
	assert.Equal(t, 85, result.TechnicalScore)
	assert.Equal(t, 71, result.ExperienceScore)
	assert.Equal(t, 75, result.OverallScore)
}

func TestParseScoreResult_MissingSkillArrays(t *testing.T) {
	result, err := parseScoreResult(`{"overall_score": 50}`)
	require.NoError(t, err)

	// Absent arrays come back empty, not nil.
	assert.NotNil(t, result.MatchingSkills)
	assert.NotNil(t, result.MissingSkills)
	assert.Empty(t, result.MatchingSkills)
}

func TestParseScoreResult_Malformed(t *testing.T) {
	_, err := parseScoreResult("I'm sorry, I can't help with that.")
	assert.Error(t, err)
}

func TestParseDraftResult(t *testing.T) {
	raw := `{"message": "Hi Alice, ...", "improvement_suggestions": ["Do X", "Do Y"]}`

	result, err := parseDraftResult(raw)
	require.NoError(t, err)

	assert.Equal(t, "Hi Alice, ...", result.Message)
	assert.Len(t, result.ImprovementSuggestions, 2)
}

func TestParseDraftResult_EmptyMessage(t *testing.T) {
	_, err := parseDraftResult(`{"message": "  "}`)
	assert.Error(t, err)
}

func TestEngine_AssessUnavailableOnGeneratorError(t *testing.T) {
	engine := newStubEngine("", errors.New("connection refused"))

	_, err := engine.Assess(context.Background(), "resume", "job")
	assert.True(t, IsUnavailable(err))
}

func TestEngine_AssessUnavailableOnMalformedOutput(t *testing.T) {
	engine := newStubEngine("not json at all", nil)

	_, err := engine.Assess(context.Background(), "resume", "job")
	assert.True(t, IsUnavailable(err))
}

func TestEngine_DraftSuccess(t *testing.T) {
	engine := newStubEngine(`{"message": "Hello!", "improvement_suggestions": []}`, nil)

	result, err := engine.Draft(context.Background(), models.DraftRequest{
		CandidateName: "Alice",
		JobTitle:      "Backend Engineer",
		CompanyName:   "Acme",
		Tone:          models.ToneProfessional,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.Message)
}

func TestFallbackScore(t *testing.T) {
	result := FallbackScore()

	assert.Equal(t, 50, result.OverallScore)
	assert.Equal(t, 50, result.TechnicalScore)
	assert.Empty(t, result.MatchingSkills)
}

func TestFallbackDraft(t *testing.T) {
	result := FallbackDraft(models.DraftRequest{
		CandidateName:  "Alice",
		JobTitle:       "Backend Engineer",
		CompanyName:    "Acme",
		MatchingSkills: []string{"Go"},
	})

	assert.Contains(t, result.Message, "Alice")
	assert.Contains(t, result.Message, "Backend Engineer")
	assert.Contains(t, result.Message, "Acme")
	assert.Contains(t, result.Message, "Go")
	assert.NotEmpty(t, result.ImprovementSuggestions)

	// Placeholder when no candidate name was given.
	anon := FallbackDraft(models.DraftRequest{JobTitle: "Role", CompanyName: "Acme"})
	assert.Contains(t, anon.Message, "[Candidate Name]")
}

func TestUnavailable(t *testing.T) {
	assert.Nil(t, Unavailable(nil))

	base := errors.New("boom")
	wrapped := Unavailable(base)
	assert.True(t, IsUnavailable(wrapped))
	assert.ErrorIs(t, wrapped, base)

	// Already-wrapped errors are not double-wrapped.
	assert.Equal(t, wrapped, Unavailable(wrapped))
}
