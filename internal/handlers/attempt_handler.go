package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/services"
	"github.com/SAP-F-2025/learning-assessment/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartModuleAttempt starts or resumes a module attempt
// @Summary Start module attempt
// @Tags assessments
// @Accept json
// @Produce json
// @Param attempt body services.StartModuleAttemptRequest true "Module to attempt"
// @Success 201 {object} services.AttemptResponse "New attempt"
// @Success 200 {object} services.AttemptResponse "Resumed attempt"
// @Failure 400 {object} ErrorResponse
// @Router /assessments/start [post]
func (h *AttemptHandler) StartModuleAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting module attempt")

	var req services.StartModuleAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.StartModule(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(startStatus(attempt), attempt)
}

// StartFinalAttempt starts or resumes the final exam of a course
// @Summary Start final exam attempt
// @Tags assessments
// @Accept json
// @Produce json
// @Param attempt body services.StartFinalAttemptRequest true "Course"
// @Success 201 {object} services.AttemptResponse
// @Failure 403 {object} FinalLockedResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /assessments/start-final [post]
func (h *AttemptHandler) StartFinalAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting final attempt")

	var req services.StartFinalAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.StartFinal(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(startStatus(attempt), attempt)
}

// SubmitAttempt records a graded submission for the latest attempt
// @Summary Submit attempt
// @Tags assessments
// @Accept json
// @Produce json
// @Param submission body services.SubmitAttemptRequest true "Submission"
// @Success 201 {object} services.SubmitAttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/submissions [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	h.LogRequest(c, "Submitting attempt")

	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.Submit(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListSubmissions lists attempts; learners only see their own
// @Summary List submissions
// @Tags assessments
// @Produce json
// @Param course_id query string false "Course"
// @Param module_id query string false "Module id or final"
// @Param status query string false "started or submitted"
// @Param learner_id query string false "Learner (teachers and admins)"
// @Param limit query int false "Page size (max 200)"
// @Param skip query int false "Offset"
// @Success 200 {object} services.SubmissionListResponse
// @Router /assessments/submissions [get]
func (h *AttemptHandler) ListSubmissions(c *gin.Context) {
	h.LogRequest(c, "Listing submissions")

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters, err := parseSubmissionFilters(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	resp, err := h.attemptService.List(c.Request.Context(), filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSubmission returns the latest attempt of a lineage
// @Summary Get submission by attempt id
// @Tags assessments
// @Produce json
// @Param attempt_id path string true "Attempt id"
// @Success 200 {object} models.Attempt
// @Failure 404 {object} ErrorResponse
// @Router /assessments/submissions/{attempt_id} [get]
func (h *AttemptHandler) GetSubmission(c *gin.Context) {
	attemptID := c.Param("attempt_id")
	h.LogRequest(c, "Getting submission", "attempt_id", attemptID)

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByAttemptID(c.Request.Context(), attemptID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func startStatus(attempt *services.AttemptResponse) int {
	if attempt.Resumed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func parseSubmissionFilters(c *gin.Context) (repositories.AttemptFilters, error) {
	var filters repositories.AttemptFilters

	if v := c.Query("course_id"); v != "" {
		filters.CourseID = &v
	}
	if v := c.Query("learner_id"); v != "" {
		filters.LearnerID = &v
	}
	if v := c.Query("module_id"); v != "" {
		ref := models.ParseModuleRef(v)
		filters.ModuleRef = &ref
	}
	if v := c.Query("status"); v != "" {
		state := models.AttemptState(v)
		if state != models.AttemptStarted && state != models.AttemptSubmitted {
			return filters, services.NewValidationError("status", "must be started or submitted", v)
		}
		filters.State = &state
	}

	var err error
	if filters.Limit, err = queryInt(c, "limit"); err != nil {
		return filters, err
	}
	if filters.Offset, err = queryInt(c, "skip"); err != nil {
		return filters, err
	}
	if filters.Limit < 0 || filters.Offset < 0 {
		return filters, services.NewValidationError("limit", "limit and skip must not be negative", c.Request.URL.RawQuery)
	}

	filters.SortBy = c.DefaultQuery("sort_by", "created_at")
	filters.SortOrder = c.DefaultQuery("sort_order", "desc")
	return filters, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.NewValidationError(key, "must be an integer", raw)
	}
	return v, nil
}
