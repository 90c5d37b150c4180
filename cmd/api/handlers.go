package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jashneer/HireIQ/internal/auth"
	"github.com/Jashneer/HireIQ/internal/billing"
	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/metrics"
	"github.com/Jashneer/HireIQ/internal/middleware"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/internal/scoring"
	"github.com/Jashneer/HireIQ/internal/storage"
	"github.com/Jashneer/HireIQ/pkg/models"
)

const (
	maxResumeSize = 10 << 20 // 10 MB

	// resumeURLTTL bounds how long a shared download link stays valid.
	resumeURLTTL = 15 * time.Minute
)

// Auth handlers

func (api *API) register(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8"`
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := api.auth.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

func (api *API) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := api.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (api *API) currentUser(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := api.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Analysis handlers

func (api *API) createAnalysis(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		CandidateName  string `json:"candidate_name" binding:"required"`
		CandidateEmail string `json:"candidate_email" binding:"omitempty,email"`
		JobTitle       string `json:"job_title" binding:"required"`
		CompanyName    string `json:"company_name" binding:"required"`
		JobDescription string `json:"job_description" binding:"required,min=10"`
		ResumeText     string `json:"resume_text" binding:"required,min=10"`
		OutreachTone   string `json:"outreach_tone" binding:"required,oneof=professional casual enthusiastic direct"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := &models.AnalysisInput{
		CandidateName:  req.CandidateName,
		CandidateEmail: req.CandidateEmail,
		JobTitle:       req.JobTitle,
		CompanyName:    req.CompanyName,
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
		OutreachTone:   req.OutreachTone,
	}

	analysis, err := api.gate.Run(c.Request.Context(), userID, input)
	if err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.As(err, &exceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": exceeded.Error()})
		case scoring.IsUnavailable(err):
			// The engine is down. Return neutral results so the dashboard
			// stays usable; nothing is persisted and no usage is charged.
			api.logger.WithUserID(userID).WithError(err).Warn("Scoring unavailable, serving fallback")
			score := scoring.FallbackScore()
			draft := scoring.FallbackDraft(models.DraftRequest{
				CandidateName: req.CandidateName,
				JobTitle:      req.JobTitle,
				CompanyName:   req.CompanyName,
				Tone:          req.OutreachTone,
				OverallScore:  score.OverallScore,
			})
			c.JSON(http.StatusOK, gin.H{
				"fallback": true,
				"score":    score,
				"draft":    draft,
			})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		}
		return
	}

	api.stats.Invalidate(c.Request.Context(), userID)

	c.JSON(http.StatusCreated, analysis)
}

func (api *API) listAnalyses(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	analyses, err := api.repo.ListAnalyses(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list analyses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": analyses,
		"limit":    limit,
	})
}

func (api *API) getAnalysis(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	analysisID := c.Param("id")

	analysis, err := api.repo.GetAnalysis(c.Request.Context(), analysisID)
	if err != nil || analysis.UserID != userID {
		// Hide other users' records behind the same 404
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// Stats handler

func (api *API) userStats(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	stats, err := api.stats.UserStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Resume upload handler

func (api *API) uploadResume(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, err := c.FormFile("resume")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No resume file provided"})
		return
	}

	if file.Size > maxResumeSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Resume file too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	objectName, err := api.storage.StoreResume(c.Request.Context(), userID, file.Filename, src, file.Size)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported resume format"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store resume"})
		return
	}

	metrics.ResumeUploadsTotal.Inc()
	metrics.ResumeUploadSizeBytes.Observe(float64(file.Size))

	c.JSON(http.StatusCreated, gin.H{
		"object_key": objectName,
		"filename":   file.Filename,
		"size":       file.Size,
	})
}

func (api *API) listResumes(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	keys, err := api.storage.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list resumes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resumes": keys})
}

func (api *API) downloadResume(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	key, ok := api.ownedResumeKey(c, userID)
	if !ok {
		return
	}

	url, err := api.storage.PresignedURL(c.Request.Context(), key, resumeURLTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate download URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(resumeURLTTL.Seconds()),
	})
}

func (api *API) deleteResume(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	key, ok := api.ownedResumeKey(c, userID)
	if !ok {
		return
	}

	if err := api.storage.Delete(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete resume"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// ownedResumeKey reads the key query parameter and rejects keys outside the
// caller's prefix. Foreign keys get the same 404 as missing ones so the
// namespace leaks nothing.
func (api *API) ownedResumeKey(c *gin.Context, userID string) (string, bool) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing resume key"})
		return "", false
	}

	if !strings.HasPrefix(key, fmt.Sprintf("resumes/%s/", userID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resume not found"})
		return "", false
	}

	return key, true
}

// Billing webhook handler

func (api *API) billingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if err := api.billing.HandleEvent(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
