package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-assessment/internal/services"
	"github.com/SAP-F-2025/learning-assessment/internal/utils"
	"github.com/SAP-F-2025/learning-assessment/pkg/monitoring"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	studentHandler *StudentHandler
	authMiddleware *CasdoorAuthMiddleware
	services       services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *CasdoorAuthMiddleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		studentHandler: NewStudentHandler(
			serviceManager.Student(),
			serviceManager.Completion(),
			serviceManager.ImportExport(),
			logger,
		),
		authMiddleware: authMiddleware,
		services:       serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		assessments := v1.Group("/assessments")
		{
			assessments.POST("/start", hm.attemptHandler.StartModuleAttempt)
			assessments.POST("/start-final", hm.attemptHandler.StartFinalAttempt)
			assessments.POST("/submissions", hm.attemptHandler.SubmitAttempt)
			assessments.GET("/submissions", hm.attemptHandler.ListSubmissions)
			assessments.GET("/submissions/:attempt_id", hm.attemptHandler.GetSubmission)
		}

		courses := v1.Group("/courses/:course_id")
		{
			courses.GET("/unlock-final", hm.studentHandler.GetFinalUnlockStatus)
			courses.GET("/latest-by-module", hm.studentHandler.GetLatestByModule)
			courses.GET("/latest-final", hm.studentHandler.GetLatestFinal)
			courses.GET("/stats", hm.studentHandler.GetCourseStats)
			courses.GET("/module-stats", hm.studentHandler.GetCourseModuleStats)
			courses.GET("/certificate", hm.studentHandler.GetCertificate)
			courses.GET("/results/export", hm.studentHandler.ExportResults)
		}
	}

	router.GET("/health", hm.health)
	router.GET("/metrics", monitoring.PrometheusHandler())
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.services.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "learning-assessment",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "learning-assessment",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
