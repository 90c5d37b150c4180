package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Jashneer/HireIQ/internal/config"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/pkg/models"
)

const defaultModel = "gemini-2.5-pro"

// generator abstracts the model call so tests can stub it.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine assesses resume-vs-job matches and drafts outreach messages using
// a Gemini model. All failures, including malformed model output, surface as
// UnavailableError so callers never see partial results.
type Engine struct {
	gen     generator
	timeout time.Duration
	logger  *logging.Logger
}

// NewEngine creates an engine backed by the Gemini API.
func NewEngine(ctx context.Context, cfg config.ScoringConfig, logger *logging.Logger) (*Engine, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("scoring api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Engine{
		gen:     &geminiGenerator{client: client, model: model},
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Assess scores a resume against a job description.
func (e *Engine) Assess(ctx context.Context, resumeText, jobDescription string) (*models.ScoreResult, error) {
	prompt := buildAssessPrompt(resumeText, jobDescription)

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, Unavailable(err)
	}

	result, err := parseScoreResult(raw)
	if err != nil {
		e.logger.WithError(err).Warn("Discarding malformed assessment response")
		return nil, Unavailable(err)
	}

	return result, nil
}

// Draft generates a personalized outreach message.
func (e *Engine) Draft(ctx context.Context, req models.DraftRequest) (*models.DraftResult, error) {
	prompt := buildDraftPrompt(req)

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, Unavailable(err)
	}

	result, err := parseDraftResult(raw)
	if err != nil {
		e.logger.WithError(err).Warn("Discarding malformed draft response")
		return nil, Unavailable(err)
	}

	return result, nil
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.gen.Generate(ctx, prompt)
}

// geminiGenerator wraps the Google GenAI client behind the generator
// interface.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("model returned empty response")
	}

	return output, nil
}

func buildAssessPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(`Analyze the following resume and job description to extract skills and calculate match scores.

RESUME:
%s

JOB DESCRIPTION:
%s

Provide a JSON response with the following structure:
{
  "matching_skills": ["skill1", "skill2", ...],
  "missing_skills": ["skill1", "skill2", ...],
  "technical_score": number (0-100),
  "experience_score": number (0-100),
  "domain_score": number (0-100),
  "overall_score": number (0-100)
}

Calculate scores based on:
- Technical Skills: how well the candidate's technical skills match the job requirements
- Experience Level: how the candidate's experience level matches what's needed
- Domain Relevance: how relevant the candidate's industry/domain experience is
- Overall Score: weighted average of the above scores

Only return the JSON, no additional text.`, resumeText, jobDescription)
}

func buildDraftPrompt(req models.DraftRequest) string {
	name := req.CandidateName
	if name == "" {
		name = "[Candidate Name]"
	}

	return fmt.Sprintf(`Generate a personalized outreach message for a recruitment scenario.

DETAILS:
- Candidate: %s
- Job Title: %s
- Company: %s
- Matching Skills: %s
- Tone: %s
- Match Score: %d%%

Provide a JSON response with:
{
  "message": "personalized outreach message",
  "improvement_suggestions": ["suggestion1", "suggestion2", ...]
}

The message should:
- Be %s in tone
- Mention specific skills that match
- Be engaging and personalized
- Include a clear call to action
- Be approximately 100-150 words

Improvement suggestions should be 2-3 actionable recommendations for the candidate.

Only return the JSON, no additional text.`,
		name, req.JobTitle, req.CompanyName, strings.Join(req.MatchingSkills, ", "),
		req.Tone, req.OverallScore, req.Tone)
}
