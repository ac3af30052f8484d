package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/services"
	"github.com/SAP-F-2025/learning-assessment/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentHandler serves the per-course views of the signed-in learner
type StudentHandler struct {
	BaseHandler
	student      services.StudentService
	completion   services.CompletionService
	importExport services.ImportExportService
}

func NewStudentHandler(
	student services.StudentService,
	completion services.CompletionService,
	importExport services.ImportExportService,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler:  NewBaseHandler(logger),
		student:      student,
		completion:   completion,
		importExport: importExport,
	}
}

// GetFinalUnlockStatus reports whether the final exam is open to the learner
// @Summary Final exam gate
// @Tags courses
// @Produce json
// @Param course_id path string true "Course"
// @Success 200 {object} models.FinalUnlockStatus
// @Router /courses/{course_id}/unlock-final [get]
func (h *StudentHandler) GetFinalUnlockStatus(c *gin.Context) {
	h.withLearnerCourse(c, "Getting final unlock status", func(learnerID, courseID string) (interface{}, error) {
		return h.student.GetFinalUnlockStatus(c.Request.Context(), learnerID, courseID)
	})
}

// GetLatestByModule returns the latest result of every lineage in the course
// @Summary Latest result per module
// @Tags courses
// @Produce json
// @Param course_id path string true "Course"
// @Success 200 {array} models.ModuleResult
// @Router /courses/{course_id}/latest-by-module [get]
func (h *StudentHandler) GetLatestByModule(c *gin.Context) {
	h.withLearnerCourse(c, "Getting latest results by module", func(learnerID, courseID string) (interface{}, error) {
		return h.student.GetLatestByModule(c.Request.Context(), learnerID, courseID)
	})
}

// @Router /courses/{course_id}/latest-final [get]
func (h *StudentHandler) GetLatestFinal(c *gin.Context) {
	h.withLearnerCourse(c, "Getting latest final attempt", func(learnerID, courseID string) (interface{}, error) {
		return h.student.GetLatestFinal(c.Request.Context(), learnerID, courseID)
	})
}

// @Router /courses/{course_id}/stats [get]
func (h *StudentHandler) GetCourseStats(c *gin.Context) {
	h.withLearnerCourse(c, "Getting course stats", func(learnerID, courseID string) (interface{}, error) {
		return h.student.GetCourseStats(c.Request.Context(), learnerID, courseID)
	})
}

// @Router /courses/{course_id}/module-stats [get]
func (h *StudentHandler) GetCourseModuleStats(c *gin.Context) {
	h.withLearnerCourse(c, "Getting course module stats", func(learnerID, courseID string) (interface{}, error) {
		return h.student.GetCourseModuleStats(c.Request.Context(), learnerID, courseID)
	})
}

// @Router /courses/{course_id}/certificate [get]
func (h *StudentHandler) GetCertificate(c *gin.Context) {
	h.withLearnerCourse(c, "Getting certificate", func(learnerID, courseID string) (interface{}, error) {
		return h.completion.GetCertificate(c.Request.Context(), learnerID, courseID)
	})
}

// ExportResults downloads submitted results of a course as xlsx. Learners
// get their own rows; teachers get the whole course or one learner_id.
// @Summary Export course results
// @Tags courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param course_id path string true "Course"
// @Param learner_id query string false "Learner (teachers and admins)"
// @Router /courses/{course_id}/results/export [get]
func (h *StudentHandler) ExportResults(c *gin.Context) {
	courseID := c.Param("course_id")
	h.LogRequest(c, "Exporting course results", "course_id", courseID)

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if h.importExport == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Export is disabled"})
		return
	}

	var learnerID *string
	if requested := c.Query("learner_id"); user.CanViewOthers() {
		if requested != "" {
			learnerID = &requested
		}
	} else {
		if requested != "" && requested != user.ID {
			h.handleServiceError(c, services.NewPermissionError(user.ID, requested, "results", "export", "insufficient permissions"))
			return
		}
		learnerID = &user.ID
	}

	buf, err := h.importExport.ExportCourseResults(c.Request.Context(), courseID, learnerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results-%s-%s.xlsx", courseID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// withLearnerCourse runs fn for the signed-in learner and the course in the path
func (h *StudentHandler) withLearnerCourse(c *gin.Context, message string, fn func(learnerID, courseID string) (interface{}, error)) {
	courseID := c.Param("course_id")
	h.LogRequest(c, message, "course_id", courseID)

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := fn(learnerOf(c, user), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// learnerOf lets teachers and admins look at another learner via learner_id
func learnerOf(c *gin.Context, user *models.User) string {
	if requested := c.Query("learner_id"); requested != "" && user.CanViewOthers() {
		return requested
	}
	return user.ID
}
