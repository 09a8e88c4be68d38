package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/services"
	"github.com/yigit/musicschool/internal/middleware"
)

// EntitlementController exposes per-student video permissions to admins
type EntitlementController struct {
	entitlements services.EntitlementStore
	logger       zerolog.Logger
}

// NewEntitlementController creates a new EntitlementController
func NewEntitlementController(entitlements services.EntitlementStore, logger zerolog.Logger) *EntitlementController {
	return &EntitlementController{
		entitlements: entitlements,
		logger:       logger,
	}
}

// GetAll returns every student's unlocked videos
// @Summary List all entitlements
// @Description Returns a map of student id to unlocked video ids. Storage failures yield an empty map.
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=map[string][]int} "Entitlements retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Router /entitlements [get]
func (c *EntitlementController) GetAll(ctx *gin.Context) {
	all := c.entitlements.GetAll(ctx.Request.Context())

	data := make(map[string][]int, len(all))
	for studentID, videos := range all {
		data[studentID] = videos.Ints()
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data, ""))
}

// GetForStudent returns one student's unlocked videos
// @Summary Get a student's entitlements
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.EntitlementsResponse} "Entitlements retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - Admin only"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/{studentId} [get]
func (c *EntitlementController) GetForStudent(ctx *gin.Context) {
	c.respondWithSet(ctx, ctx.Param("studentId"), http.StatusOK, "")
}

// Replace sets a student's full list of unlocked videos
// @Summary Replace a student's entitlements
// @Description Duplicates are removed. Every id must be positive.
// @Tags entitlements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param request body dto.ReplaceEntitlementsRequest true "New video set"
// @Success 200 {object} dto.APIResponse{data=dto.EntitlementsResponse} "Entitlements replaced"
// @Failure 400 {object} dto.ErrorResponse "Invalid video id"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/{studentId} [put]
func (c *EntitlementController) Replace(ctx *gin.Context) {
	studentID := ctx.Param("studentId")

	var req dto.ReplaceEntitlementsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.entitlements.ReplaceForStudent(ctx.Request.Context(), studentID, req.VideoIDs); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondWithSet(ctx, studentID, http.StatusOK, "Entitlements replaced")
}

// Grant unlocks one video for a student
// @Summary Grant a video
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param videoId path int true "Video ID" minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.EntitlementsResponse} "Video granted"
// @Failure 400 {object} dto.ErrorResponse "Invalid video id"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/{studentId}/{videoId} [post]
func (c *EntitlementController) Grant(ctx *gin.Context) {
	studentID := ctx.Param("studentId")
	videoID, ok := parseVideoID(ctx)
	if !ok {
		return
	}

	if err := c.entitlements.Grant(ctx.Request.Context(), studentID, videoID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondWithSet(ctx, studentID, http.StatusOK, "Video granted")
}

// Revoke locks one video for a student
// @Summary Revoke a video
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param videoId path int true "Video ID" minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.EntitlementsResponse} "Video revoked"
// @Failure 400 {object} dto.ErrorResponse "Invalid video id"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/{studentId}/{videoId} [delete]
func (c *EntitlementController) Revoke(ctx *gin.Context) {
	studentID := ctx.Param("studentId")
	videoID, ok := parseVideoID(ctx)
	if !ok {
		return
	}

	if err := c.entitlements.Revoke(ctx.Request.Context(), studentID, videoID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondWithSet(ctx, studentID, http.StatusOK, "Video revoked")
}

// Drift reports students whose record copy disagrees with the entitlement store
// @Summary Detect entitlement drift
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DriftReportResponse} "Drift report"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/drift [get]
func (c *EntitlementController) Drift(ctx *gin.Context) {
	drifts, err := c.entitlements.FindDrift(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DriftReportResponse{Drifts: drifts, Count: len(drifts)}, ""))
}

// Repair rewrites every drifted record copy from the entitlement store
// @Summary Repair entitlement drift
// @Tags entitlements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RepairResponse} "Repair finished"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /entitlements/drift/repair [post]
func (c *EntitlementController) Repair(ctx *gin.Context) {
	repaired, err := c.entitlements.RepairDrift(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int("repaired", len(repaired)).Msg("Entitlement drift repaired")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RepairResponse{Repaired: repaired, Count: len(repaired)}, "Repair finished"))
}

// respondWithSet re-reads the set so the response reflects committed state
func (c *EntitlementController) respondWithSet(ctx *gin.Context, studentID string, status int, message string) {
	videos, err := c.entitlements.GetForStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(status, dto.NewSuccessResponse(dto.EntitlementsResponse{
		StudentID: studentID,
		VideoIDs:  videos.Ints(),
	}, message))
}

func parseVideoID(ctx *gin.Context) (int, bool) {
	videoID, err := strconv.Atoi(ctx.Param("videoId"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid video ID")
		errorDetail = errorDetail.WithField("videoId").WithDetails("Video ID must be a valid number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return videoID, true
}
