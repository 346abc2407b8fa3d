package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/signature-verify/internal/auth"
	"github.com/example/signature-verify/internal/imaging"
	"github.com/example/signature-verify/internal/metrics"
	"github.com/example/signature-verify/internal/repository"
	"github.com/example/signature-verify/internal/signature"
	"github.com/example/signature-verify/internal/usecase"
)

// GatewayStatus reports which variant each model family resolved to.
type GatewayStatus interface {
	CleanerMode() signature.Mode
	MatcherMode() signature.Mode
}

type imagePayload struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

type cleanRequest struct {
	Images []imagePayload `json:"images"`
}

type matchRequest struct {
	Image1 *imagePayload `json:"image1" binding:"required"`
	Image2 *imagePayload `json:"image2" binding:"required"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Health and
// Prometheus metrics stay open; the processing and query routes require a
// valid bearer token.
func RegisterRoutes(router *gin.Engine, uc *usecase.ProcessingUseCase, status GatewayStatus, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"cleaning_model": status.CleanerMode(),
			"matching_model": status.MatcherMode(),
		})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := router.Group("/", authMiddleware)

	authed.POST("/clean", func(c *gin.Context) {
		var req cleanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		items := make([]usecase.ImagePayload, len(req.Images))
		for i, img := range req.Images {
			items[i] = usecase.ImagePayload{ID: img.ID, Data: img.Data}
		}

		result, err := uc.CleanBatch(c.Request.Context(), items)
		if err != nil {
			var procErr *usecase.ProcessingError
			if errors.As(err, &procErr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":    procErr.Error(),
					"failures": procErr.Failures,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	authed.POST("/match", func(c *gin.Context) {
		var req matchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "image1 and image2 are required"})
			return
		}

		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}

		result, err := uc.MatchPair(c.Request.Context(), userID,
			usecase.ImagePayload{ID: req.Image1.ID, Data: req.Image1.Data},
			usecase.ImagePayload{ID: req.Image2.ID, Data: req.Image2.Data},
		)
		if err != nil {
			c.JSON(matchErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	authed.GET("/result/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}

		log, err := uc.GetResult(c.Request.Context(), userID, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, matchLogResponse(log))
	})

	authed.GET("/result/:id/duplicates", func(c *gin.Context) {
		requestID := c.Param("id")
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}

		report, err := uc.GetDuplicateReport(c.Request.Context(), userID, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		duplicates := make([]gin.H, len(report.Duplicates))
		for i, dup := range report.Duplicates {
			duplicates[i] = matchLogResponse(dup)
		}
		c.JSON(http.StatusOK, gin.H{
			"request":    matchLogResponse(report.Request),
			"duplicates": duplicates,
		})
	})

	authed.GET("/metrics/summary", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

func matchLogResponse(log *repository.MatchLog) gin.H {
	return gin.H{
		"request_id": log.RequestID,
		"user_id":    log.UserID,
		"score":      log.Score,
		"decision":   log.Decision,
		"pair_sha1":  log.PairSHA1,
		"created_at": log.CreatedAt,
	}
}

func matchErrorStatus(err error) int {
	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusBadRequest
	}
	var invocationErr *signature.InvocationError
	if errors.As(err, &invocationErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
