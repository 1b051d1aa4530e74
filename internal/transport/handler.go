package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go-structural-validator/internal/config"
	apperrors "go-structural-validator/internal/errors"
	"go-structural-validator/internal/logger"
	"go-structural-validator/internal/orchestrator"
	"go-structural-validator/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ValidateRequest is the direct validation endpoint's payload
type ValidateRequest struct {
	BaselineURL  string `json:"baseline_url" binding:"required"`
	CandidateURL string `json:"candidate_url" binding:"required"`
	Stage        string `json:"stage" binding:"required"`
	Mode         string `json:"mode,omitempty"`
	SceneType    string `json:"scene_type,omitempty"`
	JobID        string `json:"job_id,omitempty"`
}

// SubmitJobRequest enqueues a full enhance job
type SubmitJobRequest struct {
	OriginalURL  string `json:"original_url" binding:"required"`
	Declutter    bool   `json:"declutter,omitempty"`
	VirtualStage bool   `json:"virtual_stage,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the HTTP router
func NewHandler(v *validator.Validator, orch *orchestrator.Orchestrator, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.GET("/health", healthCheck)
	r.POST("/validate-structure", validateStructure(v, cfg))
	r.POST("/jobs", submitJob(orch))
	r.GET("/jobs/:id", getJob(orch))

	return r
}

func validateStructure(v *validator.Validator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		stage, err := config.ParseStage(req.Stage)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid stage", err)
			return
		}
		var mode config.Mode
		if req.Mode != "" {
			if req.Mode != string(config.ModeLog) && req.Mode != string(config.ModeBlock) {
				respondError(c, http.StatusBadRequest, "invalid mode",
					fmt.Errorf("mode must be log or block, got %q", req.Mode))
				return
			}
			mode = config.Mode(req.Mode)
		}
		for _, ref := range []string{req.BaselineURL, req.CandidateURL} {
			if err := validateImageRef(ref); err != nil {
				respondError(c, apperrors.GetStatusCode(err), "invalid image reference", err)
				return
			}
		}

		summary := v.Validate(ctx, validator.Params{
			Stage:         stage,
			BaselinePath:  req.BaselineURL,
			CandidatePath: req.CandidateURL,
			Mode:          mode,
			SceneType:     req.SceneType,
			JobID:         req.JobID,
		})

		logger.WithFields(logrus.Fields{
			"stage":  summary.Stage,
			"risk":   summary.Risk,
			"passed": summary.Passed,
		}).Info("Direct validation request completed")

		c.JSON(http.StatusOK, summary)
	}
}

func submitJob(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		if err := validateImageRef(req.OriginalURL); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid image reference", err)
			return
		}

		job, err := orch.Submit(c.Request.Context(), req.OriginalURL, orchestrator.Options{
			Declutter:    req.Declutter,
			VirtualStage: req.VirtualStage,
		})
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, "failed to enqueue job", err)
			return
		}
		c.JSON(http.StatusAccepted, job)
	}
}

func getJob(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := orch.Job(c.Param("id"))
		if !ok {
			respondError(c, http.StatusNotFound, "job not found", nil)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "2.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// validateImageRef accepts http(s) and azure URLs plus local paths
func validateImageRef(ref string) error {
	if ref == "" {
		return apperrors.NewValidationError("image reference must not be empty", nil)
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return apperrors.NewValidationError("invalid reference format", err)
	}
	switch parsed.Scheme {
	case "http", "https", "azure":
		if parsed.Host == "" {
			return apperrors.NewValidationError("reference must have a valid host", nil)
		}
	}
	return nil
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
	}).Error("Request failed")

	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: detail,
	})
}
